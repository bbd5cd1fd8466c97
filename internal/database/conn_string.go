package database

import (
	"net"
	"net/url"
	"strconv"

	"github.com/rickgao/ratel-client/internal/config"
)

// ApplicationName tags snapshot connections in pg_stat_activity.
const ApplicationName = "ratel-client"

// BuildConnString builds a PostgreSQL connection URL for the snapshot
// backend. Credentials are escaped by url.URL.
func BuildConnString(cfg config.DBConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	q := url.Values{}
	q.Set("sslmode", sslMode)
	q.Set("application_name", ApplicationName)

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}
