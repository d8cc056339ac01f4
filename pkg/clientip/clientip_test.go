package clientip_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/servicehub/pkg/clientip"
)

func TestGetIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		{"remote addr", nil, "192.0.2.10:5555", "192.0.2.10"},
		{"cloudflare wins", map[string]string{"CF-Connecting-IP": "203.0.113.1", "X-Forwarded-For": "198.51.100.1"}, "10.0.0.1:1", "203.0.113.1"},
		{"forwarded leftmost", map[string]string{"X-Forwarded-For": "198.51.100.7, 10.0.0.2"}, "10.0.0.1:1", "198.51.100.7"},
		{"real ip", map[string]string{"X-Real-IP": "2001:db8::1"}, "10.0.0.1:1", "2001:db8::1"},
		{"invalid header skipped", map[string]string{"X-Forwarded-For": "garbage", "X-Real-IP": "198.51.100.9"}, "10.0.0.1:1", "198.51.100.9"},
		{"unspecified skipped", map[string]string{"X-Real-IP": "0.0.0.0"}, "192.0.2.3:80", "192.0.2.3"},
		{"raw remote addr", nil, "not-an-ip", "not-an-ip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientip.GetIP(r))
		})
	}
}
