// Package hud implements the per-widget snapshot + change-detection +
// throttled-flush projection layer: five independent
// widgets plus a Dispatcher that batches dirty widgets into a single flush.
package hud

import (
	"github.com/eventarena/server/internal/events"
	"github.com/eventarena/server/internal/sim"
)

// EngineView is the read-only slice of sim.Engine the widgets need.
// Satisfied directly by *sim.Engine.
type EngineView interface {
	PlayerSnapshots() []sim.PlayerSnapshot
	CurrentMatch() *sim.MatchSnapshot
}

// Widget is the capability every HUD projection implements:
// a stable key, a pure snapshot function over current world state plus any
// widget-local buffer, and an event hook that reports whether the widget's
// output may have changed.
type Widget interface {
	Key() string
	OnEvent(now int64, ev events.Event) bool
	Snapshot(now int64, view EngineView) any
}
