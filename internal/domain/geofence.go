package domain

import "math"

// InRange reports whether a device coordinate falls inside the lot's range
// box: the absolute latitude and longitude differences from the anchor must
// both be within RangeThreshold. Total over all numeric input; no error path.
func InRange(p Coordinate, a LotAnchor) bool {
	latDiff := math.Abs(a.Latitude - p.Latitude)
	lonDiff := math.Abs(a.Longitude - p.Longitude)
	return latDiff <= a.RangeThreshold && lonDiff <= a.RangeThreshold
}
