// Package connection implements the Connection Manager component.
//
// The Connection Manager:
//   - Owns one WebSocket transport at a time, rebuilt on every open
//   - Reconnects after abnormal closes with a fixed delay and bounded attempts
//   - Queues outbound messages while no transport is open and flushes them in order
//   - Probes liveness with the heartbeat monitor and closes with 4000 on timeout
//   - Snapshots the session on every drop and restores it on every open
//   - Decodes frames and hands them to the handler registry
package connection
