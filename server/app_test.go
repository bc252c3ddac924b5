package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vpnportal/config"
)

func testConfig(fwURL string) *config.Config {
	var cfg config.Config
	cfg.Server.Address = "127.0.0.1"
	cfg.Server.HTTPPort = "0"
	cfg.Logging.Level = "error"
	cfg.Firewall.APIURL = fwURL
	cfg.Firewall.Timeout = time.Second
	cfg.VPN.Subnet = "10.0.0.0/24"
	cfg.VPN.RouteNetwork = "10.0.0.0/24"
	cfg.VPN.DNSServers = []string{"1.1.1.1"}
	cfg.VPN.ServerPublicKey = "SPK"
	cfg.VPN.ServerEndpoint = "vpn.example.com:51820"
	cfg.Demo.Username = "demo"
	cfg.Demo.Password = "secret"
	cfg.Keys.Mode = "native"
	return &cfg
}

func TestInitialize_WiresRoutes(t *testing.T) {
	fw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"id":"abc"}}`))
	}))
	defer fw.Close()

	app := &App{}
	require.NoError(t, app.Initialize(testConfig(fw.URL)))

	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	body, _ := json.Marshal(map[string]string{"username": "jdoe", "realName": "Jane Doe"})
	rec = httptest.NewRecorder()
	app.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/request_vpn", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "abc", out["peer_id"])
}

func TestInitialize_BadKeyMode(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Keys.Mode = "magic"
	assert.Error(t, (&App{}).Initialize(cfg))
}

func TestRun_NotInitialized(t *testing.T) {
	assert.Error(t, (&App{}).Run())
}
