package sim

import "github.com/eventarena/server/internal/events"

// matchEndedGraceMs is how long an ended match lingers before being
// cleared and (optionally) replaced.
const matchEndedGraceMs = 10000

type matchState struct {
	ID    string
	Mode  string
	Phase string // idle, countdown, active, ended

	StartsAt *int64
	EndsAt   *int64

	CountdownMs int64
	DurationMs  int64
}

// MatchSnapshot is the read-only view handed to the HUD match widget and to
// session:started frames; it never aliases Engine's internal matchState.
type MatchSnapshot struct {
	ID       string
	Mode     string
	Phase    string
	StartsAt *int64
	EndsAt   *int64
}

// CurrentMatch returns a snapshot of the single current match, or nil if
// there is none; an ended match is still returned until it is cleared.
// There is never more than one.
func (e *Engine) CurrentMatch() *MatchSnapshot {
	if e.match == nil {
		return nil
	}
	m := *e.match
	return &MatchSnapshot{ID: m.ID, Mode: m.Mode, Phase: m.Phase, StartsAt: m.StartsAt, EndsAt: m.EndsAt}
}

// EnableAutoRestart configures what CreateMatch arguments to reuse when
// an ended match's grace period elapses. Passing an empty mode disables
// auto-restart.
func (e *Engine) EnableAutoRestart(mode string, countdownMs, durationMs int64) {
	e.autoRestartMode = mode
	e.autoRestartCountdownMs = countdownMs
	e.autoRestartDurationMs = durationMs
}

// CreateMatch starts a brand new match in the idle phase and immediately
// schedules its transition into countdown. durationMs of 0 means the match
// has no fixed end time and must be ended by some external trigger.
func (e *Engine) CreateMatch(mode string, countdownMs, durationMs int64) string {
	t := e.clockNow()
	id := newID()
	e.match = &matchState{ID: id, Mode: mode, Phase: "idle", CountdownMs: countdownMs, DurationMs: durationMs}

	e.bus.Emit(events.New(events.TypeMatchCreated, events.MatchCreatedPayload{
		ID:          id,
		Mode:        mode,
		CountdownMs: countdownMs,
	}))

	e.sched.Schedule(t, func(now int64) { e.transitionToCountdown(id, now) })
	return id
}

func (e *Engine) transitionToCountdown(id string, now int64) {
	if e.match == nil || e.match.ID != id || e.match.Phase != "idle" {
		return
	}
	e.match.Phase = "countdown"
	startsAt := now + e.match.CountdownMs
	e.match.StartsAt = &startsAt
	e.sched.Schedule(startsAt, func(now int64) { e.transitionToActive(id, now) })
}

func (e *Engine) transitionToActive(id string, now int64) {
	if e.match == nil || e.match.ID != id || e.match.Phase != "countdown" {
		return
	}
	e.match.Phase = "active"

	for _, p := range e.world.Players {
		p.ResetStats(now)
		e.emitScoreUpdate(p)
	}

	if e.match.DurationMs > 0 {
		endsAt := now + e.match.DurationMs
		e.match.EndsAt = &endsAt
		e.sched.Schedule(endsAt, func(now int64) { e.transitionToEnded(id, now) })
	}

	e.bus.Emit(events.New(events.TypeMatchStarted, events.MatchStartedPayload{ID: id}))
}

func (e *Engine) transitionToEnded(id string, now int64) {
	if e.match == nil || e.match.ID != id || e.match.Phase != "active" {
		return
	}
	e.match.Phase = "ended"
	endsAt := now
	e.match.EndsAt = &endsAt

	e.bus.Emit(events.New(events.TypeMatchEnded, events.MatchEndedPayload{ID: id, At: now}))

	e.sched.Schedule(now+matchEndedGraceMs, func(now int64) { e.clearEndedMatch(id) })
}

func (e *Engine) clearEndedMatch(id string) {
	if e.match != nil && e.match.ID == id {
		e.match = nil
	}
	if e.autoRestartMode != "" {
		e.CreateMatch(e.autoRestartMode, e.autoRestartCountdownMs, e.autoRestartDurationMs)
	}
}
