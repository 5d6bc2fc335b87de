package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/parkwatch/lot-occupancy-service/internal/config"
)

// Manager owns one controller per configured lot and aggregates readiness.
type Manager struct {
	controllers []*Controller
	byID        map[string]*Controller
	logger      *slog.Logger
}

// NewManager builds a controller for each lot with shared collaborators.
func NewManager(lots []config.Lot, deps Deps) *Manager {
	m := &Manager{
		byID:   make(map[string]*Controller, len(lots)),
		logger: deps.Logger,
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	for _, lot := range lots {
		c := NewController(lot, deps)
		m.controllers = append(m.controllers, c)
		m.byID[lot.ID] = c
	}
	return m
}

// StartAll starts every session.
func (m *Manager) StartAll(ctx context.Context) {
	for _, c := range m.controllers {
		c.Start(ctx)
	}
	m.logger.Info("sessions started", "count", len(m.controllers))
}

// CloseAll tears every session down.
func (m *Manager) CloseAll() {
	for _, c := range m.controllers {
		c.Close()
	}
}

// Get returns the controller for a lot id.
func (m *Manager) Get(id string) (*Controller, bool) {
	c, ok := m.byID[id]
	return c, ok
}

// All returns every controller in configuration order.
func (m *Manager) All() []*Controller {
	return m.controllers
}

// CheckReadiness returns nil once every session has resolved its location
// and begun polling.
func (m *Manager) CheckReadiness(_ context.Context) error {
	for _, c := range m.controllers {
		if !c.Ready() {
			return fmt.Errorf("lot %s is still awaiting location", c.lot.ID)
		}
	}
	return nil
}
