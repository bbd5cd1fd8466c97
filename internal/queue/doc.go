// Package queue implements the outbound operation queue.
//
// Operations sent while the transport is down are held in a bounded ring and
// replayed in FIFO order once it opens again. When the ring is full the
// oldest entry is dropped, so after a long outage only the most recent
// operations survive.
package queue
