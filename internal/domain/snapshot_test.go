package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"

	"github.com/parkwatch/lot-occupancy-service/internal/domain"
)

func intPtr(n int) *int { return &n }

func freezeClock(t *testing.T) clockwork.Clock {
	t.Helper()
	fakeClock := clockwork.NewFakeClockAt(time.Date(2025, time.October, 3, 14, 30, 0, 0, time.UTC))
	domain.SetClock(fakeClock)
	t.Cleanup(func() {
		domain.SetClock(nil)
	})
	return fakeClock
}

func TestOccupancySnapshot_ApplyLotUpdate(t *testing.T) {
	freezeClock(t)

	s := domain.NewOccupancySnapshot()
	s.Apply(domain.LotUpdate{
		AvailableSpots: intPtr(42),
		LeavingSoon:    3,
		TotalSpots:     150,
		Departures:     []domain.DepartureEntry{json.RawMessage(`{"time":"2:30 PM","count":2}`)},
	})

	assert.Equal(t, 42, s.AvailableSpots)
	assert.Equal(t, 3, s.LeavingSoon)
	assert.Equal(t, 150, s.TotalSpots)
	assert.Equal(t, 105, s.OccupiedSpots)
	assert.Len(t, s.Departures, 1)
	assert.Equal(t, "2025-10-03T14:30:00Z", s.LastUpdated)
	assert.Empty(t, s.Error)
}

func TestOccupancySnapshot_EmptyResponseKeepsCounts(t *testing.T) {
	freezeClock(t)

	s := domain.NewOccupancySnapshot()
	s.Apply(domain.LotUpdate{AvailableSpots: intPtr(5), TotalSpots: 10})

	// A response with no numeric fields must not zero out the last-known
	// counts. Departures read as empty when absent.
	s.Apply(domain.LotUpdate{})

	assert.Equal(t, 5, s.AvailableSpots)
	assert.Equal(t, 10, s.TotalSpots)
	assert.Empty(t, s.Departures)
}

func TestOccupancySnapshot_ToleratesInconsistentCounts(t *testing.T) {
	freezeClock(t)

	s := domain.NewOccupancySnapshot()
	s.Apply(domain.LotUpdate{AvailableSpots: intPtr(9), LeavingSoon: 4, TotalSpots: 10})

	assert.Equal(t, 9, s.AvailableSpots)
	assert.Equal(t, 4, s.LeavingSoon)
	assert.Equal(t, 10, s.TotalSpots)
	assert.Equal(t, 0, s.OccupiedSpots)
}

func TestOccupancySnapshot_ErrorPreservesLastKnown(t *testing.T) {
	freezeClock(t)

	s := domain.NewOccupancySnapshot()
	s.Apply(domain.LotUpdate{AvailableSpots: intPtr(7), TotalSpots: 20})
	before := s

	s.SetError("failed to fetch occupancy")

	assert.Equal(t, "failed to fetch occupancy", s.Error)
	before.Error = s.Error
	assert.Empty(t, cmp.Diff(before, s))

	// The next successful merge clears the annotation.
	s.Apply(domain.LotUpdate{AvailableSpots: intPtr(6), TotalSpots: 20})
	assert.Empty(t, s.Error)
}

func TestOccupancySnapshot_ActionUpdateKeepsDeparturesWhenAbsent(t *testing.T) {
	freezeClock(t)

	s := domain.NewOccupancySnapshot()
	s.Apply(domain.LotUpdate{
		AvailableSpots: intPtr(10),
		TotalSpots:     20,
		Departures:     []domain.DepartureEntry{json.RawMessage(`{"time":"3:00 PM","count":1}`)},
	})

	// Leaving-soon ack without a departures list keeps the current one.
	s.Apply(domain.ActionUpdate{AvailableSpots: intPtr(10), LeavingSoon: 1, TotalSpots: 20})
	assert.Len(t, s.Departures, 1)
	assert.Equal(t, 1, s.LeavingSoon)

	// And a list in the ack replaces it.
	s.Apply(domain.ActionUpdate{Departures: []domain.DepartureEntry{
		json.RawMessage(`{"section":"A","spot":23,"time":"2:30 PM","timeUntil":"15 min"}`),
		json.RawMessage(`{"section":"B","spot":45,"time":"3:00 PM","timeUntil":"45 min"}`),
	}})
	assert.Len(t, s.Departures, 2)
}

func TestOccupancySnapshot_LiveCVUpdate(t *testing.T) {
	s := domain.NewOccupancySnapshot()
	s.Apply(domain.LiveCVUpdate{Free: 3, Occupied: 7, Total: 10, LastUpdated: "2025-10-03 14:30:01"})

	assert.Equal(t, 3, s.AvailableSpots)
	assert.Equal(t, 7, s.OccupiedSpots)
	assert.Equal(t, 10, s.TotalSpots)
	assert.Equal(t, "2025-10-03 14:30:01", s.LastUpdated)

	s.Apply(domain.LiveCVUpdate{Free: 2, Occupied: 8, Total: 10})
	assert.Equal(t, domain.LastUpdatedUnknown, s.LastUpdated)
}

func TestOccupancySnapshot_Tier(t *testing.T) {
	tests := []struct {
		name      string
		available int
		total     int
		want      domain.AvailabilityTier
	}{
		{"no data", 0, 0, domain.TierUnknown},
		{"30 percent free is limited", 3, 10, domain.TierLimited},
		{"over half free is available", 6, 10, domain.TierAvailable},
		{"exactly half free is limited", 5, 10, domain.TierLimited},
		{"20 percent free is full", 2, 10, domain.TierFull},
		{"nothing free is full", 0, 10, domain.TierFull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := domain.OccupancySnapshot{AvailableSpots: tt.available, TotalSpots: tt.total}
			assert.Equal(t, tt.want, s.Tier())
		})
	}
}
