// Package ws adapts a Proxy to a single websocket connection: one UI
// client per tracker process, reading CommandEnvelopes and writing
// ResponseEnvelopes, with the same keepalive shape as a typical
// gorilla/websocket hub.
package ws

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/archipelago-tracker/core/internal/proxy"
	"github.com/archipelago-tracker/core/internal/transport"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
	sendBufferSize = 256

	// commandTimeout bounds how long Conn waits for the worker to
	// answer a single command before replying with commandFailed.
	commandTimeout = 5 * time.Second
)

// Conn owns one websocket connection end to end: it decodes inbound
// CommandEnvelopes, calls through to Proxy.Send, and forwards every
// event the proxy publishes back out as an eventPublish envelope.
type Conn struct {
	conn  *websocket.Conn
	proxy *proxy.Proxy
	send  chan *transport.ResponseEnvelope
}

// New wraps conn around an already-upgraded websocket connection and
// subscribes it to every named event the proxy can publish.
func New(conn *websocket.Conn, p *proxy.Proxy) *Conn {
	c := &Conn{conn: conn, proxy: p, send: make(chan *transport.ResponseEnvelope, sendBufferSize)}
	for _, name := range []string{
		proxy.EventReady, proxy.EventRulesLoaded, proxy.EventSnapshotUpdated,
		proxy.EventInventoryChanged, proxy.EventComputationProgress,
		proxy.EventWorkerError, proxy.EventWorkerQueueStatus,
	} {
		name := name
		p.Events().On(name, func(payload any) { c.forwardEvent(name, payload) })
	}
	return c
}

// Run starts the read and write pumps and blocks until the connection
// closes. Call it in its own goroutine per connection.
func (c *Conn) Run() {
	done := make(chan struct{})
	go c.writePump(done)
	c.readPump()
	close(done)
}

func (c *Conn) readPump() {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Msg("websocket unexpected close")
			}
			return
		}

		var env transport.CommandEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.trySend(&transport.ResponseEnvelope{
				Type:  transport.TypeCommandFailed,
				Error: "invalid command envelope: " + err.Error(),
			})
			continue
		}

		go c.handleCommand(env)
	}
}

func (c *Conn) handleCommand(env transport.CommandEnvelope) {
	var payload any
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			c.trySend(&transport.ResponseEnvelope{
				Type:    transport.TypeCommandFailed,
				QueryID: env.QueryID,
				Command: env.Command,
				Error:   "invalid payload: " + err.Error(),
			})
			return
		}
	}

	result, err := c.proxy.Send(env.Command, payload, commandTimeout)
	if err != nil {
		c.trySend(transport.NewCommandFailed(env.QueryID, "", env.Command, err))
		return
	}

	resp, err := transport.NewCommandResult(env.QueryID, "", env.Command, result)
	if err != nil {
		c.trySend(transport.NewCommandFailed(env.QueryID, "", env.Command, err))
		return
	}
	c.trySend(resp)
}

func (c *Conn) forwardEvent(name string, payload any) {
	env, err := transport.NewEventPublish(name, payload)
	if err != nil {
		log.Warn().Err(err).Str("event", name).Msg("failed to marshal event payload")
		return
	}
	c.trySend(env)
}

func (c *Conn) trySend(env *transport.ResponseEnvelope) {
	select {
	case c.send <- env:
	default:
		log.Warn().Str("type", env.Type).Msg("send buffer full, dropping message")
	}
}

func (c *Conn) writePump(done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case env := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
