// Package heartbeat implements the liveness monitor for an open connection.
//
// Every Interval the Monitor sends a probe carrying its send time and arms a
// Timeout. A matching Ack disarms it and records the round trip; an expired
// probe fires the timeout callback once. While a probe is armed further ticks
// are skipped.
//
// Round trips are classified for display:
//   - good: up to 300ms
//   - fair: up to 500ms
//   - poor: anything slower
package heartbeat
