// Package protocol defines the logical messages exchanged with the Ratel server.
//
// A frame on the wire decodes into a Message:
//   - Code: integer event code (see codes.go)
//   - Payload: opaque JSON value owned by the handler for that code
//   - Info: optional auxiliary string
//
// The wire encoding sits behind the Codec interface. JSONCodec is the default.
package protocol
