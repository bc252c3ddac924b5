package wireguard

import (
	"fmt"
	"strings"
)

// Keepalive клиента в секундах; клиенты обычно за NAT.
const PersistentKeepalive = 25

// ClientConfig — всё, что нужно для [Interface]/[Peer] клиентского wg0.conf.
type ClientConfig struct {
	PrivateKey      string
	Address         string // адрес клиента без маски
	DNS             []string
	ServerPublicKey string
	Endpoint        string // host:port
	AllowedIPs      string // маршрутизируемая через туннель сеть
}

// RenderClientConfig — чистое форматирование, порядок строк фиксирован.
func RenderClientConfig(c ClientConfig) string {
	var b strings.Builder
	b.WriteString("[Interface]\n")
	fmt.Fprintf(&b, "PrivateKey = %s\n", c.PrivateKey)
	fmt.Fprintf(&b, "Address = %s/24\n", c.Address)
	fmt.Fprintf(&b, "DNS = %s\n", strings.Join(c.DNS, ", "))
	b.WriteString("\n[Peer]\n")
	fmt.Fprintf(&b, "PublicKey = %s\n", c.ServerPublicKey)
	fmt.Fprintf(&b, "Endpoint = %s\n", c.Endpoint)
	fmt.Fprintf(&b, "AllowedIPs = %s\n", c.AllowedIPs)
	fmt.Fprintf(&b, "PersistentKeepalive = %d\n", PersistentKeepalive)
	return b.String()
}
