// Package server defines the inbound event names of the WebSocket protocol
// and small helpers shared by client and hub logic.
package server

import "strings"

// Inbound event names. Connect and disconnect come from the socket itself.
const (
	eventMessage  = "message"
	eventGetUsers = "get_users"
)

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
