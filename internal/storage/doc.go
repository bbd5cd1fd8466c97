// Package storage holds the durable snapshot backends.
//
// Each subpackage implements session.Durable over one store:
//   - sqlite: a local database file
//   - redis: a key expiring with the freshness window
//   - postgres: a shared table, for clients on several hosts
//
// Every backend keeps a single record per key and overwrites it on save.
package storage
