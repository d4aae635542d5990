package hud

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/eventarena/server/internal/events"
)

// flushDelayMs is the default batching window between a dirtying event and
// the flush that sends widget snapshots.
const flushDelayMs = 30

// triggerTypes is the union of every widget's trigger types; the dispatcher
// subscribes to exactly these and asks every widget about each one.
var triggerTypes = []events.Type{
	events.TypeScoreUpdate,
	events.TypePlayerJoin,
	events.TypePlayerLeave,
	events.TypePlayerDie,
	events.TypeSessionStarted,
	events.TypeMatchCreated,
	events.TypeMatchStarted,
	events.TypeMatchEnded,
	events.TypeFeedEntry,
	events.TypeStreakChanged,
	events.TypeTickPost,
}

// immediateTypes flush immediately instead of waiting out the batching
// window, keeping kill-feed and streak updates snappy.
var immediateTypes = map[events.Type]bool{
	events.TypeFeedEntry:     true,
	events.TypeStreakChanged: true,
}

// Sink receives one marshaled widget update per flushed widget, addressed
// by widget key so the caller can route it to the right subscriber set.
type Sink interface {
	PublishHUD(widgetKey string, data []byte)
}

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

var widgetEventType = map[string]events.Type{
	"scoreboard":    events.TypeHUDScoreboardUpdate,
	"match":         events.TypeHUDMatchUpdate,
	"feed":          events.TypeHUDFeedUpdate,
	"streaks":       events.TypeHUDStreaksUpdate,
	"announcements": events.TypeHUDAnnounceUpdate,
}

// Dispatcher owns the five widgets, collects dirty keys per event, and
// flushes them on a short batching schedule.
type Dispatcher struct {
	log    *zap.Logger
	bus    *events.Bus
	engine EngineView
	sink   Sink
	now    func() int64

	widgets     []Widget
	widgetByKey map[string]Widget

	dirty         map[string]bool
	flushDeadline int64

	subs []events.Subscription
}

// NewDispatcher constructs the five widgets and subscribes the trigger
// union on bus.
func NewDispatcher(log *zap.Logger, bus *events.Bus, engine EngineView, sink Sink, now func() int64) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	if now == nil {
		now = func() int64 { return time.Now().UnixMilli() }
	}
	widgets := []Widget{&Scoreboard{}, &Match{}, &Feed{}, &Streaks{}, &Announcements{}}
	d := &Dispatcher{
		log: log, bus: bus, engine: engine, sink: sink, now: now,
		widgets:     widgets,
		widgetByKey: make(map[string]Widget, len(widgets)),
		dirty:       make(map[string]bool),
	}
	for _, w := range widgets {
		d.widgetByKey[w.Key()] = w
	}
	for _, t := range triggerTypes {
		d.subs = append(d.subs, bus.On(t, d.onEvent))
	}
	return d
}

// SetSink binds the dispatcher's flush target after construction, needed
// because the transport hub (the usual Sink) itself takes the dispatcher
// as a constructor argument (the wiring is mutually referential).
func (d *Dispatcher) SetSink(sink Sink) {
	d.sink = sink
}

// AllowedWidgetKeys lists the subscribable widget keys.
func AllowedWidgetKeys() []string {
	return []string{"scoreboard", "match", "feed", "streaks", "announcements"}
}

func (d *Dispatcher) onEvent(ev events.Event) {
	now := d.now()
	anyDirty := false
	for _, w := range d.widgets {
		if w.OnEvent(now, ev) {
			d.dirty[w.Key()] = true
			anyDirty = true
		}
	}

	if anyDirty {
		if immediateTypes[ev.Type] {
			d.flush(now)
			return
		}
		if d.flushDeadline == 0 {
			d.flushDeadline = now + flushDelayMs
		}
	}

	if d.flushDeadline != 0 && now >= d.flushDeadline {
		d.flush(now)
	}
}

func (d *Dispatcher) flush(now int64) {
	for key := range d.dirty {
		w, ok := d.widgetByKey[key]
		if !ok {
			continue
		}
		data, err := d.marshal(key, w.Snapshot(now, d.engine))
		if err != nil {
			d.log.Warn("hud snapshot marshal failed", zap.String("widget", key), zap.Error(err))
			continue
		}
		d.sink.PublishHUD(key, data)
	}
	d.dirty = make(map[string]bool)
	d.flushDeadline = 0
}

func (d *Dispatcher) marshal(key string, data any) ([]byte, error) {
	t, ok := widgetEventType[key]
	if !ok {
		t = events.Type(key)
	}
	return json.Marshal(envelope{Type: string(t), Data: data})
}

// SnapshotFor returns a freshly marshaled snapshot for a single widget,
// used for the immediate per-connection send on cmd:hud:subscribe. It does
// not touch the dirty set.
func (d *Dispatcher) SnapshotFor(key string) ([]byte, bool) {
	w, ok := d.widgetByKey[key]
	if !ok {
		return nil, false
	}
	data, err := d.marshal(key, w.Snapshot(d.now(), d.engine))
	if err != nil {
		d.log.Warn("hud initial snapshot marshal failed", zap.String("widget", key), zap.Error(err))
		return nil, false
	}
	return data, true
}

// Shutdown releases the dispatcher's bus subscriptions.
func (d *Dispatcher) Shutdown() {
	for _, sub := range d.subs {
		d.bus.Off(sub)
	}
}
