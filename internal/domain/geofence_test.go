package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/parkwatch/lot-occupancy-service/internal/domain"
)

func TestInRange_ObservedLotConfiguration(t *testing.T) {
	// Jarvis B anchor with its shipped oversized threshold accepts a point
	// hundreds of miles away; a tight threshold rejects the same point.
	anchor := domain.LotAnchor{Latitude: 43.003778, Longitude: -78.786947, RangeThreshold: 10}
	point := domain.Coordinate{Latitude: 40, Longitude: -70}

	assert.True(t, domain.InRange(point, anchor))

	anchor.RangeThreshold = 0.0001
	assert.False(t, domain.InRange(point, anchor))
}

func TestInRange_AxisSymmetry(t *testing.T) {
	// Swapping which axis carries the offset must not change the outcome.
	anchor := domain.LotAnchor{Latitude: 10, Longitude: 20, RangeThreshold: 0.5}

	latOffset := domain.Coordinate{Latitude: 10.3, Longitude: 20}
	lonOffset := domain.Coordinate{Latitude: 10, Longitude: 20.3}
	assert.Equal(t, domain.InRange(latOffset, anchor), domain.InRange(lonOffset, anchor))

	latFar := domain.Coordinate{Latitude: 10.7, Longitude: 20}
	lonFar := domain.Coordinate{Latitude: 10, Longitude: 20.7}
	assert.Equal(t, domain.InRange(latFar, anchor), domain.InRange(lonFar, anchor))
	assert.False(t, domain.InRange(latFar, anchor))
}

func TestInRange_MonotonicInThreshold(t *testing.T) {
	anchor := domain.LotAnchor{Latitude: 43.003778, Longitude: -78.786947}
	point := domain.Coordinate{Latitude: 43.01, Longitude: -78.79}

	// Once a threshold admits the point, every larger threshold must too.
	admitted := false
	for _, threshold := range []float64{0.0001, 0.001, 0.01, 0.1, 1, 10} {
		anchor.RangeThreshold = threshold
		in := domain.InRange(point, anchor)
		if admitted {
			assert.True(t, in, "threshold %v turned true back to false", threshold)
		}
		if in {
			admitted = true
		}
	}
	assert.True(t, admitted)
}

func TestInRange_BoundaryInclusive(t *testing.T) {
	anchor := domain.LotAnchor{Latitude: 0, Longitude: 0, RangeThreshold: 0.005}
	assert.True(t, domain.InRange(domain.Coordinate{Latitude: 0.005, Longitude: -0.005}, anchor))
	assert.False(t, domain.InRange(domain.Coordinate{Latitude: 0.0051, Longitude: 0}, anchor))
}
