package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/parkwatch/lot-occupancy-service/internal/domain"
)

// LotMode selects how a lot is polled and gated.
type LotMode string

const (
	// ModeScheduled lots carry only the departure schedule; long poll interval.
	ModeScheduled LotMode = "scheduled"
	// ModeGeofenced lots gate the leaving-soon action on device location.
	ModeGeofenced LotMode = "geofenced"
	// ModeLiveCV lots stream detector counts; short poll interval.
	ModeLiveCV LotMode = "live_cv"
)

// Lot is the static per-lot configuration record. The anchor and threshold
// are lot data, not universal constants; the shipped lots file carries the
// observed values.
type Lot struct {
	ID              string            `toml:"id"`
	Name            string            `toml:"name"`
	Path            string            `toml:"path"`
	Mode            LotMode           `toml:"mode"`
	PollInterval    Duration          `toml:"poll_interval"`
	RequireGeofence bool              `toml:"require_geofence"`
	Anchor          *domain.LotAnchor `toml:"anchor"`
}

// Interval returns the lot's poll interval as a time.Duration.
func (l Lot) Interval() time.Duration {
	return time.Duration(l.PollInterval)
}

type lotsFile struct {
	Lots []Lot `toml:"lot"`
}

// LoadLots parses and validates the TOML lots file.
func LoadLots(path string) ([]Lot, error) {
	var f lotsFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("parse lots file %s: %w", path, err)
	}
	if len(f.Lots) == 0 {
		return nil, fmt.Errorf("lots file %s defines no lots", path)
	}

	seen := make(map[string]bool, len(f.Lots))
	for i, lot := range f.Lots {
		if err := validateLot(lot); err != nil {
			return nil, fmt.Errorf("lot %d (%q): %w", i, lot.ID, err)
		}
		if seen[lot.ID] {
			return nil, fmt.Errorf("duplicate lot id %q", lot.ID)
		}
		seen[lot.ID] = true
	}
	return f.Lots, nil
}

func validateLot(lot Lot) error {
	if lot.ID == "" {
		return fmt.Errorf("id is required")
	}
	if lot.Name == "" {
		return fmt.Errorf("name is required")
	}
	switch lot.Mode {
	case ModeScheduled, ModeGeofenced:
		if lot.Path == "" {
			return fmt.Errorf("path is required for mode %q", lot.Mode)
		}
	case ModeLiveCV:
	default:
		return fmt.Errorf("unknown mode %q", lot.Mode)
	}
	if lot.Interval() <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if lot.RequireGeofence && lot.Anchor == nil {
		return fmt.Errorf("require_geofence is set but no anchor is configured")
	}
	if lot.Anchor != nil && lot.Anchor.RangeThreshold <= 0 {
		return fmt.Errorf("anchor range_threshold must be positive")
	}
	return nil
}

// Duration parses TOML duration strings like "5s".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}
