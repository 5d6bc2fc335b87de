package domain

import "time"

// LastUpdatedUnknown is the sentinel shown before any data has arrived.
const LastUpdatedUnknown = "Unknown"

// OccupancySnapshot is the reconciled occupancy view for one lot. It is
// owned by the lot session controller; updates arrive as SnapshotUpdate
// values and are applied whole, never field by field from the outside.
type OccupancySnapshot struct {
	AvailableSpots int              `json:"available_spots"`
	LeavingSoon    int              `json:"leaving_soon"`
	OccupiedSpots  int              `json:"occupied_spots"`
	TotalSpots     int              `json:"total_spots"`
	Departures     []DepartureEntry `json:"departures"`
	LastUpdated    string           `json:"last_updated"`
	Error          string           `json:"error,omitempty"`
}

// NewOccupancySnapshot returns the zero-data snapshot: all counts zero,
// no departures, last-updated unknown.
func NewOccupancySnapshot() OccupancySnapshot {
	return OccupancySnapshot{
		Departures:  []DepartureEntry{},
		LastUpdated: LastUpdatedUnknown,
	}
}

// SnapshotUpdate is a reconciled delta produced by a completed upstream
// response. Updates mutate nothing themselves; the session controller applies
// them to the snapshot it owns via Apply.
type SnapshotUpdate interface {
	applyTo(s *OccupancySnapshot)
}

// Apply merges one completed upstream response into the snapshot and clears
// any previous error annotation. Updates are applied in completion order;
// the snapshot always reflects the most recently completed response.
func (s *OccupancySnapshot) Apply(u SnapshotUpdate) {
	u.applyTo(s)
	s.Error = ""
}

// SetError annotates the snapshot with a fetch failure while keeping all
// last-known values in place.
func (s *OccupancySnapshot) SetError(msg string) {
	s.Error = msg
}

// LotUpdate carries the fields of a standard lot response. AvailableSpots is
// nil when the response omitted its numeric fields; in that case the merge
// leaves the prior counts untouched. The other counts default to zero when
// absent, matching the upstream contract.
type LotUpdate struct {
	AvailableSpots *int
	LeavingSoon    int
	TotalSpots     int
	Departures     []DepartureEntry
}

func (u LotUpdate) applyTo(s *OccupancySnapshot) {
	u.applyCounts(s)
	// A poll response without departures reads as an empty list.
	if u.Departures != nil {
		s.Departures = u.Departures
	} else {
		s.Departures = []DepartureEntry{}
	}
	s.LastUpdated = clock.Now().UTC().Format(time.RFC3339)
}

func (u LotUpdate) applyCounts(s *OccupancySnapshot) {
	if u.AvailableSpots == nil {
		return
	}
	s.AvailableSpots = *u.AvailableSpots
	s.LeavingSoon = u.LeavingSoon
	s.TotalSpots = u.TotalSpots
	s.OccupiedSpots = u.TotalSpots - *u.AvailableSpots - u.LeavingSoon
	if s.OccupiedSpots < 0 {
		// Upstream violated available+leaving <= total; tolerated.
		s.OccupiedSpots = 0
	}
}

// ActionUpdate carries the optional occupancy fields echoed by a successful
// leaving-soon action. Unlike a poll, an action response without departures
// keeps the current list instead of clearing it.
type ActionUpdate LotUpdate

func (u ActionUpdate) applyTo(s *OccupancySnapshot) {
	LotUpdate(u).applyCounts(s)
	if u.Departures != nil {
		s.Departures = u.Departures
	}
	s.LastUpdated = clock.Now().UTC().Format(time.RFC3339)
}

// LiveCVUpdate carries a live-CV detector response. All counts are replaced
// on every cycle; the upstream supplies its own last-updated stamp.
type LiveCVUpdate struct {
	Free        int
	Occupied    int
	Total       int
	LastUpdated string
}

func (u LiveCVUpdate) applyTo(s *OccupancySnapshot) {
	s.AvailableSpots = u.Free
	s.OccupiedSpots = u.Occupied
	s.TotalSpots = u.Total
	if u.LastUpdated != "" {
		s.LastUpdated = u.LastUpdated
	} else {
		s.LastUpdated = LastUpdatedUnknown
	}
}

// AvailabilityTier is the user-facing status derived from the free fraction.
type AvailabilityTier string

const (
	TierUnknown   AvailabilityTier = "Unknown"
	TierAvailable AvailabilityTier = "Available"
	TierLimited   AvailabilityTier = "Limited"
	TierFull      AvailabilityTier = "Full"
)

// Tier classifies the snapshot: Available above 50% free, Limited above 20%,
// Full at or below 20%, Unknown when no total is known.
func (s OccupancySnapshot) Tier() AvailabilityTier {
	if s.TotalSpots == 0 {
		return TierUnknown
	}
	percentFree := float64(s.AvailableSpots) / float64(s.TotalSpots) * 100
	switch {
	case percentFree > 50:
		return TierAvailable
	case percentFree > 20:
		return TierLimited
	default:
		return TierFull
	}
}
