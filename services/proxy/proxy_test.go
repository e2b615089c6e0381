package proxy

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseProxyList(t *testing.T) {
	text := `1.2.3.4:1080
# comment line
8.8.8.8:9050

10.0.0.1:1080
127.0.0.1:1080
not-a-proxy
5.6.7.8:70
9.10.11.12:abc
`
	proxies := parseProxyList(text)

	assert.Len(t, proxies, 2)
	assert.Equal(t, "1.2.3.4", proxies[0].Host)
	assert.Equal(t, 1080, proxies[0].Port)
	assert.Equal(t, "8.8.8.8", proxies[1].Host)
	assert.Equal(t, 9050, proxies[1].Port)
}

func TestIsPublicIPv4(t *testing.T) {
	tests := []struct {
		ip     string
		public bool
	}{
		{"8.8.8.8", true},
		{"1.2.3.4", true},
		{"10.0.0.1", false},
		{"192.168.1.1", false},
		{"172.16.0.1", false},
		{"127.0.0.1", false},
		{"169.254.1.1", false},
		{"0.0.0.0", false},
		{"240.0.0.1", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			assert.Equal(t, tt.public, isPublicIPv4(net.ParseIP(tt.ip)))
		})
	}
}

func TestGetTopProxiesEmpty(t *testing.T) {
	m := NewManager()

	assert.Empty(t, m.GetTopProxies(3))

	_, err := m.GetFastestProxy()
	assert.Error(t, err)
}
