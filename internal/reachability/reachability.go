// Package reachability probes whether an IP Office appliance is accepting
// connections on its management port before the console attempts a session.
package reachability

import (
	"net"
	"net/url"
	"strings"
	"time"
)

const defaultManagementPort = "7070"

// Status is the result of a single probe.
type Status struct {
	Reachable bool   `json:"reachable"`
	Address   string `json:"address"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// Probe attempts a TCP connection to the appliance's management port. A host
// may be given bare ("pbx.example.com"), with a scheme, or with a port; a
// missing port defaults to the management port.
func Probe(host string, timeout time.Duration) Status {
	address := normalizeAddress(host)

	start := time.Now()
	conn, err := net.DialTimeout("tcp", address, timeout)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return Status{Reachable: false, Address: address, LatencyMS: latency, Error: err.Error()}
	}
	conn.Close()

	return Status{Reachable: true, Address: address, LatencyMS: latency}
}

func normalizeAddress(host string) string {
	host = strings.TrimSpace(host)
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}

	u, err := url.Parse(host)
	if err != nil || u.Hostname() == "" {
		return net.JoinHostPort(strings.TrimPrefix(host, "https://"), defaultManagementPort)
	}

	port := u.Port()
	if port == "" {
		port = defaultManagementPort
	}
	return net.JoinHostPort(u.Hostname(), port)
}
