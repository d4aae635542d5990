package transport

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/eventarena/server/internal/events"
)

// maxBufferedBytes is the per-connection backpressure threshold: once a
// client's queued-but-unsent bytes exceed this, further sends to it are
// dropped rather than buffered without bound.
const maxBufferedBytes = 1_000_000

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMessage = 8192
)

// inbound is the discriminated-union shape of every client->server message,
// decoded once per frame then dispatched on Type.
type inbound struct {
	Type    string             `json:"type"`
	Name    string             `json:"name,omitempty"`
	Dir     events.Vec2Payload `json:"dir,omitempty"`
	Skill   string             `json:"skill,omitempty"`
	Widgets []string           `json:"widgets,omitempty"`
}

type outEnvelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Client is one connected websocket peer: its socket, outbound send queue,
// and HUD subscription set. Bound to a player id only after cmd:join.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	ip     string
	connID string

	send        chan []byte
	bufferedLen int64 // tracked under mu, not atomic: only mutated while mu held

	mu       sync.RWMutex
	playerID string
	hudSubs  map[string]bool
}

func newClient(hub *Hub, conn *websocket.Conn, ip, connID string) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		ip:      ip,
		connID:  connID,
		send:    make(chan []byte, 256),
		hudSubs: make(map[string]bool),
	}
}

// trySend enqueues data for the write pump, dropping it if the connection
// is already over its backpressure budget or its queue is full; sends are
// never retried.
func (c *Client) trySend(data []byte) {
	c.mu.Lock()
	if c.bufferedLen+int64(len(data)) > maxBufferedBytes {
		c.mu.Unlock()
		return
	}
	c.bufferedLen += int64(len(data))
	c.mu.Unlock()

	select {
	case c.send <- data:
	default:
		c.mu.Lock()
		c.bufferedLen -= int64(len(data))
		c.mu.Unlock()
	}
}

func (c *Client) playerIDOrEmpty() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

func (c *Client) bindPlayerID(id string) {
	c.mu.Lock()
	c.playerID = id
	c.mu.Unlock()
}

func (c *Client) isSubscribed(widget string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hudSubs[widget]
}

func (c *Client) setSubscribed(widget string, on bool) {
	c.mu.Lock()
	if on {
		c.hudSubs[widget] = true
	} else {
		delete(c.hudSubs, widget)
	}
	c.mu.Unlock()
}

// writePump drains c.send to the socket until the channel is closed by the
// hub on unregister.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
			c.mu.Lock()
			c.bufferedLen -= int64(len(data))
			c.mu.Unlock()

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump decodes inbound frames and dispatches them, handing anything
// that touches simulation state to the hub's command submission path so it
// runs on the sim loop goroutine, never on this connection's own
// goroutine.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregisterCh <- c
	}()

	c.conn.SetReadLimit(maxMessage)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		if !c.hub.msgLimiter.Allow(c.ip) {
			continue
		}

		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.hub.log.Debug("dropping malformed inbound frame", zap.String("ip", c.ip), zap.Error(err))
			continue
		}
		c.handle(msg)
	}

	if id := c.playerIDOrEmpty(); id != "" {
		pid := id
		c.hub.clk.Submit(func() {
			c.hub.bus.Emit(events.New(events.TypeCmdLeave, events.CmdLeavePayload{PlayerID: pid}))
		})
	}
}

func (c *Client) handle(msg inbound) {
	switch events.Type(msg.Type) {
	case events.TypeCmdJoin:
		id := uuid.NewString()
		c.bindPlayerID(id)
		connID := c.connID
		c.hub.clk.Submit(func() {
			c.hub.bus.Emit(events.New(events.TypeCmdJoin, events.CmdJoinPayload{
				ConnID: connID, PlayerID: id, Name: msg.Name,
			}))
		})

	case events.TypeCmdMove:
		pid := c.playerIDOrEmpty()
		if pid == "" {
			return
		}
		dir := msg.Dir
		c.hub.clk.Submit(func() {
			c.hub.bus.Emit(events.New(events.TypeCmdMove, events.CmdMovePayload{PlayerID: pid, Dir: dir}))
		})

	case events.TypeCmdAim:
		pid := c.playerIDOrEmpty()
		if pid == "" {
			return
		}
		dir := msg.Dir
		c.hub.clk.Submit(func() {
			c.hub.bus.Emit(events.New(events.TypeCmdAim, events.CmdAimPayload{PlayerID: pid, Dir: dir}))
		})

	case events.TypeCmdCast:
		pid := c.playerIDOrEmpty()
		if pid == "" {
			return
		}
		skill := msg.Skill
		c.hub.clk.Submit(func() {
			c.hub.bus.Emit(events.New(events.TypeCmdCast, events.CmdCastPayload{PlayerID: pid, Skill: skill}))
		})

	case events.TypeCmdRespawn:
		pid := c.playerIDOrEmpty()
		if pid == "" {
			return
		}
		c.hub.clk.Submit(func() {
			c.hub.bus.Emit(events.New(events.TypeCmdRespawn, events.CmdRespawnPayload{PlayerID: pid}))
		})

	case events.TypeCmdHUDSubscribe:
		widgets := msg.Widgets
		connID := c.connID
		c.hub.clk.Submit(func() {
			c.hub.bus.Emit(events.New(events.TypeCmdHUDSubscribe, events.CmdHUDSubscribePayload{
				ConnID: connID, Widgets: widgets,
			}))
		})

	case events.TypeCmdHUDUnsubscribe:
		widgets := msg.Widgets
		connID := c.connID
		c.hub.clk.Submit(func() {
			c.hub.bus.Emit(events.New(events.TypeCmdHUDUnsubscribe, events.CmdHUDUnsubscribePayload{
				ConnID: connID, Widgets: widgets,
			}))
		})

	default:
		c.hub.log.Debug("unknown cmd", zap.String("type", msg.Type), zap.String("ip", c.ip))
	}
}
