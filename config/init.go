package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Конечная структура конфигурации приложения.
type Config struct {
	Server struct {
		Address   string `mapstructure:"address"`    // 0.0.0.0
		HTTPPort  string `mapstructure:"http_port"`  // 5000
		SecretKey string `mapstructure:"secret_key"` // под подпись сессий, пока не используется
	} `mapstructure:"server"`

	Logging struct {
		Level  string `mapstructure:"level"`  // trace|debug|info|warning|error|fatal
		Format string `mapstructure:"format"` // text|json
		File   string `mapstructure:"file"`   // путь/префикс файла, пусто — только stdout
	} `mapstructure:"logs"`

	Firewall struct {
		IP                 string        `mapstructure:"ip"`
		APIURL             string        `mapstructure:"api_url"` // https://fw/api/v1; пусто — строим из ip
		APIKey             string        `mapstructure:"api_key"`
		APISecret          string        `mapstructure:"api_secret"`
		InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"` // self-signed сертификат на роутере
		Timeout            time.Duration `mapstructure:"timeout"`
	} `mapstructure:"firewall"`

	VPN struct {
		Subnet          string   `mapstructure:"subnet"`        // откуда выдаём адреса клиентам
		RouteNetwork    string   `mapstructure:"route_network"` // AllowedIPs в клиентском конфиге
		DNSServers      []string `mapstructure:"dns_servers"`
		ServerPublicKey string   `mapstructure:"server_public_key"`
		ServerEndpoint  string   `mapstructure:"server_endpoint"` // host:port
	} `mapstructure:"vpn"`

	Demo struct {
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
	} `mapstructure:"demo"`

	Keys struct {
		Mode   string `mapstructure:"mode"`    // wg|native
		WGPath string `mapstructure:"wg_path"` // бинарь wireguard-tools
	} `mapstructure:"keys"`
}

// FirewallBaseURL — api_url, либо https://<ip>/api/v1, если задан только ip.
func (c *Config) FirewallBaseURL() string {
	if u := strings.TrimSpace(c.Firewall.APIURL); u != "" {
		return strings.TrimRight(u, "/")
	}
	if ip := strings.TrimSpace(c.Firewall.IP); ip != "" {
		return "https://" + ip + "/api/v1"
	}
	return ""
}

// Subnet возвращает распарсенную vpn.subnet (после Load всегда валидна).
func (c *Config) Subnet() netip.Prefix {
	p, _ := netip.ParsePrefix(c.VPN.Subnet)
	return p.Masked()
}

// Load читает конфиг из env/файла с дефолтами. Файл берётся из CONFIG_FILE.
func Load() (*Config, error) {
	return LoadFile(os.Getenv("CONFIG_FILE"))
}

// LoadFile — то же, что Load, но с явным путём к файлу (пусто — поиск по стандартным путям).
func LoadFile(cfgFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.http_port", "5000")
	v.SetDefault("server.secret_key", "")

	v.SetDefault("logs.level", "info")
	v.SetDefault("logs.format", "text")
	v.SetDefault("logs.file", "")

	// AutomaticEnv видит только известные ключи, поэтому дефолты нужны всем
	v.SetDefault("firewall.ip", "")
	v.SetDefault("firewall.api_url", "")
	v.SetDefault("firewall.api_key", "")
	v.SetDefault("firewall.api_secret", "")
	v.SetDefault("firewall.insecure_skip_verify", false)
	v.SetDefault("firewall.timeout", 10*time.Second)

	v.SetDefault("vpn.subnet", "10.6.0.0/24")
	v.SetDefault("vpn.route_network", "10.0.0.0/24")
	v.SetDefault("vpn.dns_servers", []string{"1.1.1.1", "8.8.8.8"})
	v.SetDefault("vpn.server_public_key", "")
	v.SetDefault("vpn.server_endpoint", "")

	v.SetDefault("demo.username", "")
	v.SetDefault("demo.password", "")

	v.SetDefault("keys.mode", "wg")
	v.SetDefault("keys.wg_path", "wg")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			v.AddConfigPath(filepath.Join(xdg, "vpnportal"))
		}
		v.AddConfigPath("/etc/vpnportal")
	}

	// Чтение файла (опционально)
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, fmt.Errorf("config read error: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}
	cfg.VPN.DNSServers = trimAll(cfg.VPN.DNSServers)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(c *Config) error {
	if strings.TrimSpace(c.Server.Address) == "" {
		return errors.New("server.address must not be empty")
	}
	if strings.TrimSpace(c.Server.HTTPPort) == "" {
		return errors.New("server.http_port must not be empty")
	}
	if c.FirewallBaseURL() == "" {
		return errors.New("firewall.api_url or firewall.ip must be set")
	}
	if c.Firewall.Timeout <= 0 {
		return errors.New("firewall.timeout must be positive")
	}
	p, err := netip.ParsePrefix(strings.TrimSpace(c.VPN.Subnet))
	if err != nil {
		return fmt.Errorf("vpn.subnet: %w", err)
	}
	if !p.Addr().Is4() {
		return fmt.Errorf("vpn.subnet must be an IPv4 network, got %s", c.VPN.Subnet)
	}
	if _, err := netip.ParsePrefix(strings.TrimSpace(c.VPN.RouteNetwork)); err != nil {
		return fmt.Errorf("vpn.route_network: %w", err)
	}
	if len(c.VPN.DNSServers) == 0 {
		return errors.New("vpn.dns_servers must not be empty")
	}
	if strings.TrimSpace(c.VPN.ServerPublicKey) == "" {
		return errors.New("vpn.server_public_key must be set")
	}
	if strings.TrimSpace(c.VPN.ServerEndpoint) == "" {
		return errors.New("vpn.server_endpoint must be set")
	}
	if c.Demo.Username == "" || c.Demo.Password == "" {
		return errors.New("demo.username and demo.password must be set")
	}
	switch c.Keys.Mode {
	case "wg", "native":
	default:
		return fmt.Errorf("keys.mode must be wg or native, got %q", c.Keys.Mode)
	}
	return nil
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
