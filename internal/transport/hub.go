// Package transport adapts the simulation's event bus to websocket clients:
// inbound frames become cmd:* events submitted on the clock's goroutine,
// and a fixed allowlist of outbound events (plus HUD widget snapshots) is
// fanned out to every connection.
package transport

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/eventarena/server/internal/clock"
	"github.com/eventarena/server/internal/config"
	"github.com/eventarena/server/internal/events"
	"github.com/eventarena/server/internal/hud"
)

// EngineInfo is the slice of *sim.Engine the transport layer needs for the
// connect-time welcome sequence (connected, then map:loaded, then one
// pickup:spawned per live pickup).
type EngineInfo interface {
	MapSnapshot() []events.ObstaclePayload
	PickupSnapshots() []events.PickupSpawnedPayload
}

// broadcastTypes is the fixed allowlist of "source" events fanned out to
// every connection. Private frames (session:started, connected),
// connect-only frames (map:loaded), the HUD delivery path (hud:*), inbound
// commands (cmd:*) and internal clock events (tick:*) are excluded.
var broadcastTypes = []events.Type{
	events.TypePlayerJoin, events.TypePlayerMove, events.TypePlayerAimed,
	events.TypePlayerDie, events.TypePlayerKill, events.TypePlayerLeave,
	events.TypeProjectileSpawned, events.TypeProjectileMoved, events.TypeProjectileDespawned, events.TypeProjectileBounced,
	events.TypeDamageApplied, events.TypeExplosionSpawn, events.TypeKnockbackApplied, events.TypeDashStarted, events.TypeDashEnded,
	events.TypePickupSpawned, events.TypePickupCollected, events.TypeBuffApplied, events.TypeBuffExpired,
	events.TypeMatchCreated, events.TypeMatchStarted, events.TypeMatchEnded, events.TypeScoreUpdate,
	events.TypeFeedEntry, events.TypeStreakChanged,
}

type hudMsg struct {
	widget string
	data   []byte
}

// Hub owns every connection; its Run loop is the only goroutine that
// mutates the clients/conns maps.
type Hub struct {
	log    *zap.Logger
	bus    *events.Bus
	clk    *clock.Clock
	engine EngineInfo
	hud    *hud.Dispatcher
	cfg    config.TransportConfig

	upgrader    websocket.Upgrader
	connLimiter *connLimiter
	msgLimiter  *msgLimiter

	registerCh   chan *Client
	unregisterCh chan *Client
	broadcastCh  chan []byte
	hudCh        chan hudMsg

	mu      sync.RWMutex
	clients map[*Client]struct{}
	byConn  map[string]*Client

	subs []events.Subscription
}

// NewHub wires the hub to the bus (broadcast allowlist) and to the HUD
// dispatcher (as its Sink).
func NewHub(log *zap.Logger, bus *events.Bus, clk *clock.Clock, engine EngineInfo, dispatcher *hud.Dispatcher, cfg config.TransportConfig) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Hub{
		log:    log,
		bus:    bus,
		clk:    clk,
		engine: engine,
		hud:    dispatcher,
		cfg:    cfg,

		connLimiter: newConnLimiter(cfg.MaxConnectionsPerIP),
		msgLimiter:  newMsgLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst),

		registerCh:   make(chan *Client),
		unregisterCh: make(chan *Client),
		broadcastCh:  make(chan []byte, 256),
		hudCh:        make(chan hudMsg, 256),

		clients: make(map[*Client]struct{}),
		byConn:  make(map[string]*Client),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return isAllowedOrigin(cfg.CORSOrigins, r.Header.Get("Origin"))
		},
	}

	for _, t := range broadcastTypes {
		h.subs = append(h.subs, bus.On(t, h.onBroadcastEvent))
	}
	h.subs = append(h.subs, bus.On(events.TypeCmdHUDSubscribe, h.onHUDSubscribe))
	h.subs = append(h.subs, bus.On(events.TypeCmdHUDUnsubscribe, h.onHUDUnsubscribe))
	h.subs = append(h.subs, bus.On(events.TypeSessionStarted, h.onSessionStarted))
	h.subs = append(h.subs, bus.On(events.TypePlayerDead, h.onPlayerDead))

	return h
}

// Run is the only goroutine that mutates clients/byConn; other goroutines
// either read them under mu's read lock or talk to the hub through channels.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.registerCh:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.byConn[c.connID] = c
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("client connected", zap.String("ip", c.ip), zap.Int("total", total))

		case c := <-h.unregisterCh:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				delete(h.byConn, c.connID)
				close(c.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.connLimiter.Release(c.ip)
			h.msgLimiter.Forget(c.ip)
			h.log.Debug("client disconnected", zap.String("ip", c.ip), zap.Int("total", total))

		case data := <-h.broadcastCh:
			h.mu.RLock()
			for c := range h.clients {
				c.trySend(data)
			}
			h.mu.RUnlock()

		case m := <-h.hudCh:
			h.mu.RLock()
			for c := range h.clients {
				if c.isSubscribed(m.widget) {
					c.trySend(m.data)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Shutdown releases the hub's bus subscriptions. It does not close
// individual connections; ServeHTTP's caller is expected to shut the HTTP
// server down first, which drains connections via their own read errors.
func (h *Hub) Shutdown() {
	for _, sub := range h.subs {
		h.bus.Off(sub)
	}
}

func (h *Hub) onBroadcastEvent(ev events.Event) {
	data, err := json.Marshal(outEnvelope{Type: string(ev.Type), Data: ev.Payload})
	if err != nil {
		h.log.Warn("broadcast marshal failed", zap.String("type", string(ev.Type)), zap.Error(err))
		return
	}
	select {
	case h.broadcastCh <- data:
	default:
		h.log.Warn("broadcast channel full, dropping frame", zap.String("type", string(ev.Type)))
	}
}

// onSessionStarted delivers the private session:started frame only to the
// connection bound to the joining player id; every other
// connection never sees it.
func (h *Hub) onSessionStarted(ev events.Event) {
	p, ok := ev.Payload.(events.SessionStartedPayload)
	if !ok {
		return
	}
	data, err := json.Marshal(outEnvelope{Type: string(events.TypeSessionStarted), Data: p})
	if err != nil {
		h.log.Warn("session:started marshal failed", zap.Error(err))
		return
	}
	h.sendToPlayer(p.PlayerID, data)
}

// onPlayerDead delivers the private player:dead{until} frame to the dying
// player's connection only.
func (h *Hub) onPlayerDead(ev events.Event) {
	p, ok := ev.Payload.(events.PlayerDeadPayload)
	if !ok {
		return
	}
	data, err := json.Marshal(outEnvelope{Type: string(events.TypePlayerDead), Data: p})
	if err != nil {
		h.log.Warn("player:dead marshal failed", zap.Error(err))
		return
	}
	h.sendToPlayer(p.PlayerID, data)
}

// sendToPlayer finds the connection currently bound to playerID and sends
// it data; a no-op if the player has since disconnected. Player counts are
// small enough (a single arena) that a linear scan is cheaper than keeping
// a second id-keyed map in sync.
func (h *Hub) sendToPlayer(playerID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.playerIDOrEmpty() == playerID {
			c.trySend(data)
			return
		}
	}
}

// PublishHUD implements hud.Sink by pushing onto hudCh; called from the
// clock goroutine (the dispatcher is driven off the same bus), never
// blocking it.
func (h *Hub) PublishHUD(widgetKey string, data []byte) {
	select {
	case h.hudCh <- hudMsg{widget: widgetKey, data: data}:
	default:
		h.log.Warn("hud channel full, dropping frame", zap.String("widget", widgetKey))
	}
}

// onHUDSubscribe updates the subscribing connection's widget set and pushes
// an immediate snapshot per newly-subscribed widget.
func (h *Hub) onHUDSubscribe(ev events.Event) {
	p, ok := ev.Payload.(events.CmdHUDSubscribePayload)
	if !ok {
		return
	}
	h.mu.RLock()
	c, ok := h.byConn[p.ConnID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	for _, w := range p.Widgets {
		if !isAllowedWidget(w) {
			continue
		}
		c.setSubscribed(w, true)
		if data, ok := h.hud.SnapshotFor(w); ok {
			c.trySend(data)
		}
	}
}

func (h *Hub) onHUDUnsubscribe(ev events.Event) {
	p, ok := ev.Payload.(events.CmdHUDUnsubscribePayload)
	if !ok {
		return
	}
	h.mu.RLock()
	c, ok := h.byConn[p.ConnID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	for _, w := range p.Widgets {
		c.setSubscribed(w, false)
	}
}

func isAllowedWidget(key string) bool {
	for _, k := range hud.AllowedWidgetKeys() {
		if k == key {
			return true
		}
	}
	return false
}

// isAllowedOrigin matches an Origin header against the configured
// patterns: a pattern ending in ":*" matches any port on that scheme+host,
// otherwise exact match is required.
func isAllowedOrigin(patterns []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, p := range patterns {
		if strings.HasSuffix(p, ":*") {
			if strings.HasPrefix(origin, strings.TrimSuffix(p, "*")) {
				return true
			}
			continue
		}
		if origin == p {
			return true
		}
	}
	return false
}

// ServeHTTP upgrades the request to a websocket connection, enforcing the
// total and per-IP connection limits before the upgrade.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)

	h.mu.RLock()
	total := len(h.clients)
	h.mu.RUnlock()
	if total >= h.cfg.MaxConnectionsTotal {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}
	if !h.connLimiter.Allow(ip) {
		http.Error(w, "too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.connLimiter.Release(ip)
		return
	}

	c := newClient(h, conn, ip, uuid.NewString())
	h.registerCh <- c

	go c.writePump()
	h.sendWelcome(c)
	go c.readPump()
}

// sendWelcome pushes connected -> map:loaded -> one pickup:spawned per
// live pickup, the private connect-time welcome sequence. Reading the
// engine must happen on the clock goroutine.
func (h *Hub) sendWelcome(c *Client) {
	h.clk.Submit(func() {
		connected, err := json.Marshal(outEnvelope{Type: string(events.TypeConnected), Data: events.ConnectedPayload{Timestamp: time.Now().UnixMilli()}})
		if err == nil {
			c.trySend(connected)
		}

		mapData, err := json.Marshal(outEnvelope{Type: string(events.TypeMapLoaded), Data: events.MapLoadedPayload{Obstacles: h.engine.MapSnapshot()}})
		if err == nil {
			c.trySend(mapData)
		}

		for _, pk := range h.engine.PickupSnapshots() {
			data, err := json.Marshal(outEnvelope{Type: string(events.TypePickupSpawned), Data: pk})
			if err == nil {
				c.trySend(data)
			}
		}
	})
}
