// Package domain models the occupancy state of campus parking lots.
//
// # Data Source
//
// Occupancy counts originate from an upstream sensor/CV service that watches
// each lot and exposes per-lot counts over HTTP. Standard lots report three
// numbers (available, leaving soon, total) plus an ordered list of upcoming
// departures. Live-CV lots report a different shape (free, occupied, total,
// last_updated) refreshed directly from the detector.
//
// The upstream is the source of truth and is not always consistent: counts
// may arrive partially populated, late, or contradictory. The relation
//
//	available_spots + leaving_soon <= total_spots
//
// is expected but not guaranteed; merges tolerate violations rather than
// rejecting a response. A response that omits its numeric fields leaves the
// last-known counts in place, and an omitted departures list reads as empty.
// Stale-but-present data with an error annotation is always preferred over
// blanking the display.
//
// # Departure Entries
//
// Departure records are upstream-defined and vary by lot generation: older
// lots report {time, count}, newer ones {section, spot, time, timeUntil}.
// They are carried as opaque JSON and passed through in upstream order.
//
// # Range Check
//
// The lot "geofence" is an axis-wise bounding-box test against a per-lot
// anchor, not a great-circle distance. The threshold is lot configuration,
// expressed in degrees on each axis. See [InRange].
//
// # Availability Tiers
//
// A lot's user-facing status derives from the free fraction: Available above
// 50% free, Limited above 20%, Full at or below 20%, Unknown when the total
// is zero (no data yet). See [OccupancySnapshot.Tier].
package domain
