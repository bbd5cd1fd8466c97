package config

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// DefaultMinServerVersion is the oldest server the client talks to without warning.
const DefaultMinServerVersion = "v1.2.7"

var serverPattern = regexp.MustCompile(`^([\w.\-]+):(\d+)(?::(\w+)(?:\[v?(\d+\.\d+\.\d+)\])?)?$`)

// Server is a parsed server address of the form host:port[:name[vX.Y.Z]].
type Server struct {
	Host    string
	Port    int
	Name    string
	Version string // X.Y.Z without the leading v, empty if not advertised
}

// ParseServer parses a server address.
func ParseServer(s string) (Server, error) {
	m := serverPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Server{}, fmt.Errorf("illegal server address %q, want host:port[:name[vX.Y.Z]]", s)
	}

	port, err := strconv.Atoi(m[2])
	if err != nil || port < 1 || port > 65535 {
		return Server{}, fmt.Errorf("illegal server port %q", m[2])
	}

	return Server{
		Host:    m[1],
		Port:    port,
		Name:    m[3],
		Version: m[4],
	}, nil
}

// WSURL builds the websocket endpoint. The port is elided when it is the
// scheme default.
func (s Server) WSURL(secure bool, path string) string {
	scheme := "ws"
	if secure {
		scheme = "wss"
	}
	if path == "" {
		path = DefaultPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	host := s.Host
	if !(scheme == "ws" && s.Port == 80) && !(scheme == "wss" && s.Port == 443) {
		host = net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
	}

	u := url.URL{Scheme: scheme, Host: host, Path: path}
	return u.String()
}

// Supports reports whether the advertised version is at least min. A server
// that advertises no version is assumed to be current.
func (s Server) Supports(min string) bool {
	if s.Version == "" {
		return true
	}
	have, err := parseVersion(s.Version)
	if err != nil {
		return false
	}
	want, err := parseVersion(min)
	if err != nil {
		return true
	}
	for i := range have {
		if have[i] != want[i] {
			return have[i] > want[i]
		}
	}
	return true
}

// String formats the address back into its canonical form.
func (s Server) String() string {
	out := s.Host + ":" + strconv.Itoa(s.Port)
	if s.Name != "" {
		out += ":" + s.Name
		if s.Version != "" {
			out += "[v" + s.Version + "]"
		}
	}
	return out
}

func parseVersion(v string) ([3]int, error) {
	var out [3]int
	v = strings.TrimPrefix(strings.TrimPrefix(v, "v"), "V")
	parts := strings.Split(v, ".")
	if len(parts) != 3 {
		return out, fmt.Errorf("version %q: want X.Y.Z", v)
	}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return out, fmt.Errorf("version %q: %w", v, err)
		}
		out[i] = n
	}
	return out, nil
}

// Endpoint resolves the websocket URL from the server settings.
func (c ServerConfig) Endpoint() (string, error) {
	if c.WSURL != "" {
		return c.WSURL, nil
	}
	srv, err := ParseServer(c.Address)
	if err != nil {
		return "", err
	}
	return srv.WSURL(c.Secure, c.Path), nil
}
