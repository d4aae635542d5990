package bot

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/eventarena/server/internal/clock"
	"github.com/eventarena/server/internal/events"
	"github.com/eventarena/server/internal/sim"
)

// Manager owns a fixed roster of bot controllers, started together at
// process startup and torn down together at shutdown.
type Manager struct {
	controllers []*Controller
}

// NewManager constructs count bot controllers against the same engine/bus,
// each with a distinct RNG seed so their wander/strafe choices diverge.
func NewManager(log *zap.Logger, bus *events.Bus, clk *clock.Clock, engine *sim.Engine, count int, cfg Config, seed int64) *Manager {
	m := &Manager{}
	for i := 0; i < count; i++ {
		name := fmt.Sprintf("Bot-%d", i+1)
		m.controllers = append(m.controllers, New(log, bus, clk, engine, name, cfg, seed+int64(i)))
	}
	return m
}

// Start joins every bot into the arena.
func (m *Manager) Start() {
	for _, c := range m.controllers {
		c.Join()
	}
}

// Stop removes every bot from the arena.
func (m *Manager) Stop() {
	for _, c := range m.controllers {
		c.Leave()
	}
}
