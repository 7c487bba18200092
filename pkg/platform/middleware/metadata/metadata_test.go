package metadata

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded chain takes first hop", headers: map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, remote: "10.0.0.1:5000", want: "203.0.113.7"},
		{name: "real ip header", headers: map[string]string{"X-Real-IP": "198.51.100.2"}, remote: "10.0.0.1:5000", want: "198.51.100.2"},
		{name: "socket peer ipv4", remote: "192.0.2.10:443", want: "192.0.2.10"},
		{name: "socket peer ipv6", remote: "[::1]:8080", want: "::1"},
		{name: "no address", remote: "", want: "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(r))
		})
	}
}

func TestClientAgent(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	assert.Equal(t, "unknown", ClientAgent(r))

	r.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	assert.Contains(t, ClientAgent(r), "Chrome")

	r.Header.Set("User-Agent", "Googlebot/2.1 (+http://www.google.com/bot.html)")
	assert.Contains(t, ClientAgent(r), "bot:")
}
