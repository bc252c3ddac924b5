package models

import "time"

// Peer — выданный клиент WireGuard, зарегистрированный на firewall.
type Peer struct {
	ID          string
	Description string
	PublicKey   string
	Address     string // "10.6.0.100", без маски
	// PlaceholderKeys — ключи выданы заглушкой (wg недоступен), конфиг нерабочий.
	PlaceholderKeys bool
	CreatedAt       time.Time
}
