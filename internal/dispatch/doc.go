// Package dispatch implements the handler registry.
//
// Decoded messages are routed by event code to exactly one Handler:
//   - unknown codes are logged and dropped
//   - handler errors and panics are logged and never reach the caller
//   - duplicate codes are rejected when the registry is built
//
// Handlers see the connection through the Client interface and write
// renderable output to a Sink.
package dispatch
