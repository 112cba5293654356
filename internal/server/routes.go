// Package server wires HTTP handlers into a ServeMux for the chat hub
// application via routing helpers.
package server

import (
	"net/http"

	"github.com/Tyrowin/chathub/internal/logging"
)

// SetupRoutes configures and returns an HTTP ServeMux with all application routes.
// It sets up handlers for health check, WebSocket endpoint, and test page.
func (s *Server) SetupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler)
	mux.HandleFunc("/ws", s.WebSocketHandler)
	mux.HandleFunc("/test", s.withLogger(TestPageHandler))
	return mux
}

// withLogger makes the server's logger available to h via logging.Ctx.
func (s *Server) withLogger(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h(w, r.WithContext(logging.WithLogger(r.Context(), s.log)))
	}
}
