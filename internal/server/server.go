// Package server assembles the chat hub: the broadcast engine from package
// hub, the WebSocket session table, and the HTTP surface in front of them.
package server

import (
	"fmt"

	"github.com/Tyrowin/chathub/internal/hub"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Server owns one independent hub instance and its HTTP handlers.
type Server struct {
	log      zerolog.Logger
	cfg      Config
	hub      *Hub
	registry *hub.Registry
	router   *hub.Router
	upgrader websocket.Upgrader
}

// New wires a Registry, Broadcaster and Router around a fresh Hub.
func New(cfg Config, log zerolog.Logger) (*Server, error) {
	cfg = cfg.Sanitize()

	sanitizer, err := hub.NewSanitizer(cfg.sanitizerConfig())
	if err != nil {
		return nil, fmt.Errorf("create sanitizer: %w", err)
	}

	h := NewHub(log, cfg)
	registry := hub.NewRegistry()
	router := hub.NewRouter(log, registry, hub.NewBroadcaster(h, cfg.FanoutConcurrency), sanitizer)
	h.setRouter(router)

	origins := newOriginPolicy(log, cfg.AllowedOrigins)

	return &Server{
		log:      log,
		cfg:      cfg,
		hub:      h,
		registry: registry,
		router:   router,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.checkOrigin,
		},
	}, nil
}

// Config returns the sanitized configuration the server runs with.
func (s *Server) Config() Config {
	return s.cfg
}

// Hub returns the WebSocket session table.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Registry returns the connection registry backing the router.
func (s *Server) Registry() *hub.Registry {
	return s.registry
}

// StartHub starts the hub's event loop in a separate goroutine.
// This should be called before starting the HTTP server.
func (s *Server) StartHub() {
	go s.hub.Run()
	s.log.Info().Msg("Hub started and ready to manage WebSocket connections")
}
