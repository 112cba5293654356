// Package server manages individual WebSocket clients, handling read/write
// pumps, protocol decoding, and lifecycle control for each connection.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Tyrowin/chathub/internal/hub"
	"github.com/Tyrowin/chathub/internal/logging"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Client represents a WebSocket client connection in the chat system.
// It manages the connection state, message sending channel, hub reference,
// and client address information.
type Client struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
	addr   string
	closed bool
	log    zerolog.Logger
}

// NewClient creates a new Client instance for the connection identified by
// id. The client's send channel is buffered to absorb bursts of broadcasts.
func NewClient(id string, conn *websocket.Conn, h *Hub, addr string) *Client {
	if conn != nil {
		conn.SetReadLimit(h.cfg.MaxMessageSize)
	}

	return &Client{
		id:     id,
		conn:   conn,
		send:   make(chan []byte, h.cfg.SendBufferSize),
		hub:    h,
		addr:   addr,
		closed: false,
		log: h.log.With().
			Str(logging.FieldConnID, id).
			Str(logging.FieldRemoteAddr, addr).
			Logger(),
	}
}

// ID returns the connection identifier assigned at upgrade time.
func (c *Client) ID() string {
	return c.id
}

// GetSendChan returns the client's send channel for reading outgoing messages.
// This channel is read-only from the caller's perspective.
func (c *Client) GetSendChan() <-chan []byte {
	return c.send
}

// setupReadConnection configures read deadlines and pong handler for the WebSocket connection
func (c *Client) setupReadConnection() {
	pongWait := c.hub.cfg.PongWait
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Warn().Err(err).Msg("Error setting initial read deadline")
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.log.Warn().Err(err).Msg("Error setting read deadline in pong handler")
		}
		return nil
	})
}

// handleReadError logs the read failure at a level matching how expected it
// is. Every read error ends the read loop.
func (c *Client) handleReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn().Int64("limit", c.hub.cfg.MaxMessageSize).Msg("Frame exceeded maximum size")
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.log.Debug().Err(err).Msg("Client disconnected")
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.log.Debug().Err(err).Msg("Client connection closed")
	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig):
		c.log.Warn().Err(err).Msg("Unexpected WebSocket close")
	default:
		c.log.Warn().Err(err).Msg("WebSocket read error")
	}
}

// decodeEvent turns one inbound frame into a hub event. Frames that are not
// a known envelope become transport errors for this connection.
func (c *Client) decodeEvent(raw []byte) hub.Event {
	var env hub.InboundEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return hub.TransportFailure(c.id, fmt.Errorf("decode frame: %w", err))
	}

	switch env.Event {
	case eventMessage:
		return hub.Message(c.id, env.Data)
	case eventGetUsers:
		return hub.GetUsers(c.id)
	default:
		return hub.TransportFailure(c.id, fmt.Errorf("unknown event %q", env.Event))
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.Warn().Err(err).Msg("Error closing connection in readPump")
		}
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}

		c.hub.Dispatch(c.decodeEvent(raw))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-c.send:
		return c.handleMessage(message, ok)
	case <-ticker.C:
		return c.handlePing()
	case <-c.hub.ctx.Done():
		return false
	}
}

// closeConnection safely closes the WebSocket connection with proper error handling
func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.log.Warn().Err(err).Msg("Error closing connection in writePump")
	}
}

// handleMessage processes outgoing messages and returns false if the connection should be closed
func (c *Client) handleMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait)); err != nil {
		c.log.Warn().Err(err).Msg("Error setting write deadline")
		return false
	}

	if !ok {
		return c.writeCloseMessage()
	}

	return c.writeTextMessage(message)
}

// writeCloseMessage sends a close message to the client
func (c *Client) writeCloseMessage() bool {
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
		c.log.Debug().Err(err).Msg("Error writing close message")
	}
	return false
}

// writeTextMessage writes one envelope per WebSocket frame so that clients
// can decode every frame as a single JSON document.
func (c *Client) writeTextMessage(message []byte) bool {
	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Warn().Err(err).Msg("Error writing message")
		}
		return false
	}
	return true
}

// handlePing sends a ping message to keep the connection alive
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteWait)); err != nil {
		c.log.Warn().Err(err).Msg("Error setting write deadline for ping")
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.log.Debug().Err(err).Msg("Error writing ping message")
		return false
	}
	return true
}
