// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// After the file is read, RATEL_* variables override individual fields, e.g.
// RATEL_SERVER_ADDRESS or RATEL_SNAPSHOT_BACKEND. Load with an empty path uses
// the environment alone.
package config
