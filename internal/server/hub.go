// Package server tracks live WebSocket clients for the chat hub and delivers
// encoded frames to them on behalf of the broadcast engine.
package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Tyrowin/chathub/internal/hub"
	"github.com/Tyrowin/chathub/internal/logging"
	"github.com/rs/zerolog"
)

// EventRouter consumes the lifecycle and message events produced by clients.
type EventRouter interface {
	Route(ctx context.Context, evt hub.Event) []hub.Emission
}

// Hub owns the live WebSocket clients. It reports connects and disconnects
// to the router from a single goroutine and implements hub.Transport so the
// broadcast engine can reach each client's send queue.
type Hub struct {
	log        zerolog.Logger
	cfg        Config
	router     EventRouter
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates a Hub. The router must be attached with setRouter before Run.
func NewHub(log zerolog.Logger, cfg Config) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		log:        log,
		cfg:        cfg.Sanitize(),
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

func (h *Hub) setRouter(r EventRouter) {
	h.router = r
}

// Register hands a freshly upgraded client to the hub. It returns false if
// the hub is shutting down.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// Unregister asks the hub to drop client. It never blocks after shutdown.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// Dispatch routes an event produced by a client's read pump.
func (h *Hub) Dispatch(evt hub.Event) {
	h.router.Route(h.ctx, evt)
}

// ClientCount returns the number of clients currently attached.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Deliver enqueues frame on the client's send channel without blocking.
func (h *Hub) Deliver(ctx context.Context, id string, frame []byte) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", hub.ErrConnectionGone, r)
		}
	}()

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	client, exists := h.clients[id]
	if !exists || client.closed {
		return hub.ErrConnectionGone
	}

	select {
	case client.send <- frame:
		return nil
	default:
		// Slow consumers are dropped; the disconnect is routed like any other.
		go h.Unregister(client)
		return hub.ErrSendBufferFull
	}
}

// Run starts the hub's main event loop, handling client registration and
// unregistration. It returns once Shutdown is called.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				h.log.Warn().Msg("Received nil client registration; skipping")
				continue
			}
			h.attach(client)

		case client := <-h.unregister:
			h.detach(client)
		}
	}
}

func (h *Hub) attach(client *Client) {
	h.mutex.Lock()
	client.closed = false
	h.clients[client.id] = client
	clientCount := len(h.clients)
	h.mutex.Unlock()

	h.log.Debug().
		Str(logging.FieldConnID, client.id).
		Str(logging.FieldRemoteAddr, client.addr).
		Int(logging.FieldUserCount, clientCount).
		Msg("Client attached")

	// The join status is queued before the pumps start so it is the first
	// frame the client sees and no message can be routed before the connect.
	h.router.Route(h.ctx, hub.Connect(client.id))

	if client.conn == nil {
		return
	}
	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

func (h *Hub) detach(client *Client) {
	if client == nil {
		return
	}

	h.mutex.Lock()
	current, ok := h.clients[client.id]
	if !ok || current != client {
		h.mutex.Unlock()
		return
	}
	delete(h.clients, client.id)
	client.closed = true
	clientCount := len(h.clients)
	h.mutex.Unlock()

	// Close the channel after releasing the lock
	close(client.send)
	h.log.Debug().
		Str(logging.FieldConnID, client.id).
		Str(logging.FieldRemoteAddr, client.addr).
		Int(logging.FieldUserCount, clientCount).
		Msg("Client detached")

	h.router.Route(h.ctx, hub.Disconnect(client.id))
}

// shutdownClients closes every client connection; their read pumps then exit.
func (h *Hub) shutdownClients() {
	h.log.Info().Msg("Shutting down all client connections...")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				h.log.Warn().Err(err).Str(logging.FieldConnID, client.id).Msg("Error closing client connection")
			}
		}
	}

	h.log.Info().Int("closed", len(clients)).Msg("Closed client connections")
}

// Shutdown initiates graceful shutdown of the hub and waits for all goroutines to complete.
// It returns after all client connections are closed and goroutines have finished,
// or when the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info().Msg("Initiating hub shutdown...")

	h.cancel()

	select {
	case <-h.done:
	case <-time.After(timeout):
		return context.DeadlineExceeded
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info().Msg("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		h.log.Warn().Msg("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
