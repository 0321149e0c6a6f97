// internal/token/request_test.go
package token

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		forwarded  string
		remoteAddr string
		want       string
	}{
		{"first forwarded entry wins", "203.0.113.9, 10.0.0.1", "192.0.2.1:4433", "203.0.113.9"},
		{"forwarded entry is trimmed", "  203.0.113.9 , 10.0.0.1", "192.0.2.1:4433", "203.0.113.9"},
		{"falls back to peer address", "", "192.0.2.1:4433", "192.0.2.1"},
		{"peer address without port", "", "192.0.2.1", "192.0.2.1"},
		{"nothing available", "", "", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			assert.Equal(t, tt.want, ClientIP(req))
		})
	}
}

func TestUserAgent(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	assert.Equal(t, "unknown", UserAgent(req))

	req.Header.Set("User-Agent", "Mozilla/5.0")
	assert.Equal(t, "Mozilla/5.0", UserAgent(req))
}

func TestMetaFromRequest(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.7:1000"
	req.Header.Set("User-Agent", "curl/8.0")

	meta := MetaFromRequest(req)
	assert.Equal(t, "192.0.2.7", meta.IP)
	assert.Equal(t, "curl/8.0", meta.UserAgent)
}
