// Package server implements the HTTP and WebSocket transport of the chat hub.
//
// The implementation is organized into specialized files for configuration,
// the client session table (Hub), individual clients, routing, and HTTP
// handlers. The hub's registry and broadcast rules live in package hub; this
// package only turns sockets into events and frames into socket writes.
//
// Every WebSocket frame is a JSON envelope {"event": name, "data": object}.
// Clients send "message" and "get_users"; the hub sends "status",
// "response", "error" and "user_list".
package server
