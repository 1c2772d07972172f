package main

import (
	"net"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/sarchlab/gbacore/emu"
)

const clientBuffer = 256

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// traceHub fans trace lines out to websocket clients. Slow clients are
// dropped rather than stalling the CPU.
type traceHub struct {
	logger *logrus.Logger

	clients              map[*traceClient]bool
	register, unregister chan *traceClient
	broadcast            chan []byte

	connected atomic.Int32
}

type traceClient struct {
	conn *websocket.Conn
	send chan []byte
}

func newTraceHub(logger *logrus.Logger) *traceHub {
	h := &traceHub{
		logger:     logger,
		clients:    make(map[*traceClient]bool),
		register:   make(chan *traceClient),
		unregister: make(chan *traceClient),
		broadcast:  make(chan []byte, clientBuffer),
	}
	go h.run()
	return h
}

// listen serves the hub at addr in the background.
func (h *traceHub) listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	go func() {
		if err := http.Serve(ln, h); err != nil {
			h.logger.WithError(err).Warn("trace stream stopped")
		}
	}()

	h.logger.Infof("trace stream available at ws://%s/", ln.Addr())
	return nil
}

// ServeHTTP upgrades the connection and registers a client.
func (h *traceHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Debug("websocket upgrade failed")
		return
	}

	c := &traceClient{conn: conn, send: make(chan []byte, clientBuffer)}
	h.register <- c

	go c.writePump()
	go c.readPump(h)
}

// Publish queues a line for every client. It never blocks.
func (h *traceHub) Publish(line []byte) {
	select {
	case h.broadcast <- line:
	default:
	}
}

// Clients returns the number of connected clients.
func (h *traceHub) Clients() int {
	return int(h.connected.Load())
}

func (h *traceHub) run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			h.connected.Add(1)
		case c := <-h.unregister:
			h.drop(c)
		case line := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- line:
				default:
					h.drop(c)
				}
			}
		}
	}
}

func (h *traceHub) drop(c *traceClient) {
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.connected.Add(-1)
}

// readPump discards client messages and unregisters on close.
func (c *traceClient) readPump(h *traceHub) {
	defer func() {
		h.unregister <- c
		_ = c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *traceClient) writePump() {
	for line := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, line); err != nil {
			break
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// publisher receives formatted trace lines.
type publisher interface {
	Publish(line []byte)
}

// tracer is a core.Peripheral that publishes every retired instruction.
type tracer struct {
	cpu  *emu.CPU
	out  publisher
	seen uint64
}

func newTracer(cpu *emu.CPU, out publisher) *tracer {
	return &tracer{cpu: cpu, out: out, seen: cpu.Stats().Instructions}
}

// Step implements core.Peripheral.
func (t *tracer) Step(int) {
	n := t.cpu.Stats().Instructions
	if n == t.seen {
		return
	}
	t.seen = n
	t.out.Publish([]byte(t.cpu.LastExecuted().String()))
}
