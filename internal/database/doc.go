// Package database provides PostgreSQL connection pool management.
//
// The pool backs the postgres snapshot backend, which lets several client
// hosts share one session record.
package database
