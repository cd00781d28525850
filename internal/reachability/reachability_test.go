package reachability

import (
	"net"
	"testing"
	"time"
)

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"pbx.example.com", "pbx.example.com:7070"},
		{"https://pbx.example.com", "pbx.example.com:7070"},
		{"https://pbx.example.com:9443", "pbx.example.com:9443"},
		{"  pbx.example.com  ", "pbx.example.com:7070"},
		{"10.0.0.5:8443", "10.0.0.5:8443"},
	}

	for _, tt := range tests {
		if got := normalizeAddress(tt.host); got != tt.want {
			t.Errorf("normalizeAddress(%q) = %q, want %q", tt.host, got, tt.want)
		}
	}
}

func TestProbe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	status := Probe(ln.Addr().String(), 2*time.Second)
	if !status.Reachable {
		t.Errorf("expected listener to be reachable: %s", status.Error)
	}

	// A closed port must report unreachable with the dial error attached.
	ln.Close()
	status = Probe(ln.Addr().String(), 500*time.Millisecond)
	if status.Reachable {
		t.Error("expected closed port to be unreachable")
	}
	if status.Error == "" {
		t.Error("expected dial error to be reported")
	}
}
