// Package session hosts the per-lot occupancy session: location acquisition,
// geofence evaluation, the recurring occupancy poll, and the one-shot gated
// actions. The controller owns the snapshot and gate state exclusively; the
// poller and the upstream client only return results for it to apply. All
// mutations are serialized under the controller's lock, so concurrent
// completions resolve last-applied-wins by completion order.
package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/parkwatch/lot-occupancy-service/internal/config"
	"github.com/parkwatch/lot-occupancy-service/internal/domain"
	"github.com/parkwatch/lot-occupancy-service/internal/observability"
)

// Locator produces one fresh device coordinate per acquisition attempt.
type Locator interface {
	Acquire(ctx context.Context) (domain.Coordinate, error)
}

// UpstreamService is the occupancy/action collaborator consumed by a session.
type UpstreamService interface {
	FetchLot(ctx context.Context, path, lotName string) (domain.LotUpdate, error)
	FetchLiveCV(ctx context.Context) (domain.LiveCVUpdate, error)
	SubmitSchedule(ctx context.Context, lotName, departureTime string, loc *domain.Coordinate) error
	LeavingSoon(ctx context.Context, lotName string, loc domain.Coordinate) (domain.ActionUpdate, error)
}

// SnapshotSink receives every applied snapshot update, e.g. the Kafka feed.
type SnapshotSink interface {
	Publish(ctx context.Context, ev SnapshotEvent) error
}

// SnapshotEvent is one applied snapshot update, ready for the feed.
type SnapshotEvent struct {
	LotID    string                   `json:"lot_id"`
	LotName  string                   `json:"lot_name"`
	Mode     config.LotMode           `json:"mode"`
	Snapshot domain.OccupancySnapshot `json:"snapshot"`
}

// State is the session lifecycle position.
type State string

const (
	// StateAwaitingLocation blocks polling until location resolves.
	StateAwaitingLocation State = "awaiting_location"
	// StatePolling is the steady state: poller active, gate rules apply.
	StatePolling State = "polling"
	// StateActed means leaving-soon succeeded; polling continues but the
	// action stays disabled for the session lifetime.
	StateActed State = "acted"
	// StateTornDown is terminal: poller cancelled, no further mutation.
	StateTornDown State = "torn_down"
)

// Deps are the collaborators a controller needs. Clock and Logger default to
// the real clock and slog.Default when unset; Sink may be nil.
type Deps struct {
	Locator  Locator
	Upstream UpstreamService
	Sink     SnapshotSink
	Clock    clockwork.Clock
	Logger   *slog.Logger
	Metrics  *observability.Metrics
}

// Controller orchestrates one lot session.
type Controller struct {
	lot      config.Lot
	locator  Locator
	upstream UpstreamService
	sink     SnapshotSink
	logger   *slog.Logger
	metrics  *observability.Metrics
	poller   *Poller

	mu          sync.Mutex
	state       State
	snapshot    domain.OccupancySnapshot
	gate        domain.GateState
	location    *domain.Coordinate
	locationErr string
}

// Status is the read surface handed to the presentation layer.
type Status struct {
	LotID         string                   `json:"lot_id"`
	LotName       string                   `json:"lot_name"`
	Mode          config.LotMode           `json:"mode"`
	State         State                    `json:"state"`
	Snapshot      domain.OccupancySnapshot `json:"snapshot"`
	Gate          domain.GateState         `json:"gate"`
	Tier          domain.AvailabilityTier  `json:"availability"`
	LocationError string                   `json:"location_error,omitempty"`
}

// NewController builds a session for one configured lot. The session starts
// in the awaiting-location state; call Start to begin.
func NewController(lot config.Lot, deps Deps) *Controller {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	c := &Controller{
		lot:      lot,
		locator:  deps.Locator,
		upstream: deps.Upstream,
		sink:     deps.Sink,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
		state:    StateAwaitingLocation,
		snapshot: domain.NewOccupancySnapshot(),
	}
	c.poller = newPoller(lot.ID, c.fetchCycle, lot.Interval(), deps.Clock,
		deps.Logger, deps.Metrics, c.applyUpdate, c.applyError)
	return c
}

// Start begins the session: resolve location (success or typed failure, both
// advance), then start polling. Returns immediately.
func (c *Controller) Start(ctx context.Context) {
	c.metrics.SessionsActive.Inc()
	go c.resolveLocation(ctx)
}

func (c *Controller) resolveLocation(ctx context.Context) {
	coord, err := c.locator.Acquire(ctx)

	c.mu.Lock()
	if c.state == StateTornDown {
		c.mu.Unlock()
		return
	}
	c.gate.LocationChecked = true
	if err != nil {
		// A failed acquisition still advances the session; it just leaves
		// the gate closed and records the failure for display.
		c.locationErr = err.Error()
		c.metrics.LocationsTotal.WithLabelValues(locationOutcome(err)).Inc()
		c.logger.Warn("location acquisition failed", "lot", c.lot.ID, "error", err)
	} else {
		c.setLocationLocked(coord)
		c.metrics.LocationsTotal.WithLabelValues("success").Inc()
		c.logger.Info("location resolved", "lot", c.lot.ID, "in_range", c.gate.InRange)
	}
	c.state = StatePolling
	c.mu.Unlock()

	c.poller.Start()
}

// setLocationLocked records a fresh coordinate and re-evaluates the geofence.
// Caller holds c.mu.
func (c *Controller) setLocationLocked(coord domain.Coordinate) {
	c.location = &coord
	c.locationErr = ""
	if c.lot.Anchor != nil {
		c.gate.InRange = domain.InRange(coord, *c.lot.Anchor)
	}
}

func (c *Controller) fetchCycle(ctx context.Context) (domain.SnapshotUpdate, error) {
	if c.lot.Mode == config.ModeLiveCV {
		u, err := c.upstream.FetchLiveCV(ctx)
		if err != nil {
			return nil, err
		}
		return u, nil
	}
	u, err := c.upstream.FetchLot(ctx, c.lot.Path, c.lot.Name)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (c *Controller) applyUpdate(u domain.SnapshotUpdate) {
	c.mu.Lock()
	if c.state == StateTornDown {
		c.mu.Unlock()
		return
	}
	c.snapshot.Apply(u)
	snap := c.snapshot
	c.mu.Unlock()

	c.publish(snap)
}

func (c *Controller) applyError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateTornDown {
		return
	}
	c.snapshot.SetError(err.Error())
}

// SubmitSchedule validates and posts a planned departure time. Location is
// acquired fresh on a best-effort basis; its absence never blocks the
// submission.
func (c *Controller) SubmitSchedule(ctx context.Context, departureTime string) error {
	c.mu.Lock()
	closed := c.state == StateTornDown
	c.mu.Unlock()
	if closed {
		c.metrics.ActionsTotal.WithLabelValues("submit_schedule", "rejected").Inc()
		return domain.ErrSessionClosed
	}
	if strings.TrimSpace(departureTime) == "" {
		c.metrics.ActionsTotal.WithLabelValues("submit_schedule", "rejected").Inc()
		return domain.ErrInvalidInput
	}

	var loc *domain.Coordinate
	if coord, err := c.locator.Acquire(ctx); err == nil {
		loc = &coord
		c.mu.Lock()
		if c.state != StateTornDown {
			c.setLocationLocked(coord)
		}
		c.mu.Unlock()
	} else {
		c.logger.Debug("schedule submission proceeding without location", "lot", c.lot.ID, "error", err)
	}

	if err := c.upstream.SubmitSchedule(ctx, c.lot.Name, departureTime, loc); err != nil {
		c.metrics.ActionsTotal.WithLabelValues("submit_schedule", "error").Inc()
		c.logger.Warn("schedule submission failed", "lot", c.lot.ID, "error", err)
		return err
	}
	c.metrics.ActionsTotal.WithLabelValues("submit_schedule", "success").Inc()
	c.logger.Info("schedule submitted", "lot", c.lot.ID, "departure_time", departureTime)
	return nil
}

// MarkLeavingSoon performs the one-shot gated action. Gate rejections are
// local and never reach the network; a success merges any echoed occupancy
// fields and closes the gate for the rest of the session.
func (c *Controller) MarkLeavingSoon(ctx context.Context) error {
	c.mu.Lock()
	var reject error
	switch {
	case c.state == StateTornDown:
		reject = domain.ErrSessionClosed
	case c.gate.HasActed:
		reject = domain.ErrAlreadyActed
	case c.location == nil:
		reject = domain.ErrLocationRequired
	case c.lot.RequireGeofence && !c.gate.InRange:
		reject = domain.ErrOutOfRange
	}
	if reject != nil {
		c.mu.Unlock()
		c.metrics.ActionsTotal.WithLabelValues("leaving_soon", "rejected").Inc()
		return reject
	}
	loc := *c.location
	c.mu.Unlock()

	update, err := c.upstream.LeavingSoon(ctx, c.lot.Name, loc)
	if err != nil {
		c.metrics.ActionsTotal.WithLabelValues("leaving_soon", "error").Inc()
		c.logger.Warn("leaving soon failed", "lot", c.lot.ID, "error", err)
		return err
	}

	c.mu.Lock()
	if c.state == StateTornDown {
		c.mu.Unlock()
		c.metrics.StaleDiscards.Inc()
		return domain.ErrSessionClosed
	}
	c.snapshot.Apply(update)
	c.gate.HasActed = true
	c.state = StateActed
	snap := c.snapshot
	c.mu.Unlock()

	c.metrics.ActionsTotal.WithLabelValues("leaving_soon", "success").Inc()
	c.logger.Info("leaving soon recorded", "lot", c.lot.ID)
	c.publish(snap)
	return nil
}

// Status returns the current read surface.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		LotID:         c.lot.ID,
		LotName:       c.lot.Name,
		Mode:          c.lot.Mode,
		State:         c.state,
		Snapshot:      c.snapshot,
		Gate:          c.gate,
		Tier:          c.snapshot.Tier(),
		LocationError: c.locationErr,
	}
}

// Ready reports whether the session has left the awaiting-location state.
func (c *Controller) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state != StateAwaitingLocation
}

// Close tears the session down: the poller is cancelled, in-flight results
// are discarded on arrival, and every further command fails with
// ErrSessionClosed. Safe to call multiple times.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.state == StateTornDown {
		c.mu.Unlock()
		return
	}
	c.state = StateTornDown
	c.mu.Unlock()

	c.poller.Stop()
	c.metrics.SessionsActive.Dec()
}

func (c *Controller) publish(snap domain.OccupancySnapshot) {
	if c.sink == nil {
		return
	}
	ev := SnapshotEvent{
		LotID:    c.lot.ID,
		LotName:  c.lot.Name,
		Mode:     c.lot.Mode,
		Snapshot: snap,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.sink.Publish(ctx, ev); err != nil {
			c.logger.Warn("snapshot feed publish failed", "lot", c.lot.ID, "error", err)
		}
	}()
}

func locationOutcome(err error) string {
	if le, ok := domain.AsLocationError(err); ok {
		return string(le.Kind)
	}
	return "unavailable"
}
