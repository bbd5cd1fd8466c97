// Package session implements the session state store.
//
// The Store owns the live Session and keeps two snapshot slots:
//   - an in-process slot, checked first on restore
//   - a Durable slot that survives restarts (file, sqlite, redis, postgres)
//
// A snapshot older than the freshness window is never restored. Restore
// overwrites the client id, user profile and room facts in place and leaves
// live-only fields alone.
package session
