package domain

import "encoding/json"

// Coordinate is a single WGS-84 device location sample. A sample is taken
// once per acquisition attempt and never mutated afterward.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LotAnchor is the static geofence configuration of one lot: the anchor
// point and the per-axis range threshold in degrees.
type LotAnchor struct {
	Latitude       float64 `json:"latitude" toml:"latitude"`
	Longitude      float64 `json:"longitude" toml:"longitude"`
	RangeThreshold float64 `json:"range_threshold" toml:"range_threshold"`
}

// DepartureEntry is an upstream-defined departure record, carried opaquely.
// The wire shape varies by lot generation and is passed through unchanged.
type DepartureEntry = json.RawMessage

// GateState holds the per-session flags controlling the one-shot
// "leaving soon" action. HasActed is terminal: once set it stays set for
// the remainder of the session, which is what disables the control.
type GateState struct {
	LocationChecked bool `json:"location_checked"`
	InRange         bool `json:"in_range"`
	HasActed        bool `json:"has_acted"`
}
