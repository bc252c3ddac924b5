package wireguard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderClientConfig(t *testing.T) {
	got := RenderClientConfig(ClientConfig{
		PrivateKey:      "PK",
		Address:         "10.0.0.100",
		DNS:             []string{"1.1.1.1", "8.8.8.8"},
		ServerPublicKey: "SPK",
		Endpoint:        "vpn.example.com:51820",
		AllowedIPs:      "10.0.0.0/24",
	})

	want := `[Interface]
PrivateKey = PK
Address = 10.0.0.100/24
DNS = 1.1.1.1, 8.8.8.8

[Peer]
PublicKey = SPK
Endpoint = vpn.example.com:51820
AllowedIPs = 10.0.0.0/24
PersistentKeepalive = 25
`
	assert.Equal(t, want, got)
}

func TestRenderClientConfig_SingleDNS(t *testing.T) {
	got := RenderClientConfig(ClientConfig{DNS: []string{"9.9.9.9"}})
	assert.Contains(t, got, "DNS = 9.9.9.9\n")
}
