// Package hub implements the connection registry and broadcast engine behind
// the chat server.
//
// The package is transport agnostic. A transport reports lifecycle and
// message events to the Router, which mutates the Registry and asks the
// Broadcaster to fan payloads out through the Transport interface. Registry
// mutations are serialized behind a single lock while delivery to each
// recipient runs independently, so lock hold time does not grow with the
// number of recipients.
package hub
