package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/brian-jones-mt/epb-home-energy-model/internal/engine"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RunFunc executes one simulation run, feeding events to the callback.
type RunFunc func(ctx context.Context, strict bool, cb engine.Callback) error

// Controller serializes run execution: at most one run at a time, abortable
// from any client.
type Controller struct {
	mu      sync.Mutex
	hub     *Hub
	run     RunFunc
	cancel  context.CancelFunc
	running bool
}

func NewController(hub *Hub, run RunFunc) *Controller {
	return &Controller{hub: hub, run: run}
}

// Start launches a run unless one is already in flight.
func (c *Controller) Start(strict bool) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.running = true
	c.cancel = cancel
	c.mu.Unlock()

	c.broadcastState(true, nil)

	go func() {
		err := c.run(ctx, strict, NewBridge(c.hub))
		cancel()

		c.mu.Lock()
		c.running = false
		c.cancel = nil
		c.mu.Unlock()

		if errors.Is(err, context.Canceled) {
			err = nil
		}
		c.broadcastState(false, err)
	}()
}

// Abort cancels the in-flight run, if any.
func (c *Controller) Abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

// Running reports whether a run is in flight.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Controller) broadcastState(running bool, err error) {
	p := RunStatePayload{Running: running}
	if err != nil {
		p.Error = err.Error()
	}
	msg, merr := NewEnvelope(TypeRunState, p)
	if merr != nil {
		log.Printf("Error marshaling run state: %v", merr)
		return
	}
	c.hub.Broadcast(msg)
}

// Handler accepts WebSocket connections and routes client messages to the
// run controller.
type Handler struct {
	hub      *Hub
	ctrl     *Controller
	scenario ScenarioPayload
}

func NewHandler(hub *Hub, ctrl *Controller, scenario ScenarioPayload) *Handler {
	return &Handler{hub: hub, ctrl: ctrl, scenario: scenario}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
	}

	h.hub.Register(client)
	go client.writePump()

	h.sendScenario(client)
	h.sendRunState(client)

	h.readPump(client)
}

func (h *Handler) readPump(c *Client) {
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			return
		}
		h.handleMessage(msg)
	}
}

func (h *Handler) handleMessage(msg []byte) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		log.Printf("Invalid message: %v", err)
		return
	}

	switch env.Type {
	case TypeRunStart:
		var p RunStartPayload
		if len(env.Payload) > 0 {
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				log.Printf("Invalid run:start payload: %v", err)
				return
			}
		}
		h.ctrl.Start(p.Strict)

	case TypeRunAbort:
		h.ctrl.Abort()

	default:
		log.Printf("Unknown message type: %s", env.Type)
	}
}

func (h *Handler) sendScenario(c *Client) {
	msg, err := NewEnvelope(TypeScenario, h.scenario)
	if err != nil {
		log.Printf("Error marshaling scenario: %v", err)
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (h *Handler) sendRunState(c *Client) {
	msg, err := NewEnvelope(TypeRunState, RunStatePayload{Running: h.ctrl.Running()})
	if err != nil {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}
