// Package firewall — клиент REST API роутера (pfSense API) для пиров WireGuard.
package firewall

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"vpnportal/internal/logs"
)

// Gateway — то, что нужно провижинингу от firewall.
type Gateway interface {
	CreatePeer(ctx context.Context, publicKey, address, description string) (string, error)
	DeletePeer(ctx context.Context, id string) error
}

type Options struct {
	BaseURL   string // https://fw/api/v1
	APIKey    string
	APISecret string
	// InsecureSkipVerify отключает проверку TLS-сертификата firewall.
	// Только для self-signed сертификатов в доверенной сети.
	InsecureSkipVerify bool
	Timeout            time.Duration
}

// StatusError — firewall ответил не 200.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("firewall %s: unexpected status %d: %s", e.Op, e.Code, e.Body)
}

type Client struct {
	base   string
	key    string
	secret string
	http   *http.Client
}

func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if opts.InsecureSkipVerify {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &Client{
		base:   strings.TrimRight(opts.BaseURL, "/"),
		key:    opts.APIKey,
		secret: opts.APISecret,
		http:   &http.Client{Transport: tr, Timeout: timeout},
	}
}

type createPeerRequest struct {
	Enabled       bool   `json:"enabled"`
	PublicKey     string `json:"publickey"`
	TunnelAddress string `json:"tunneladdress"`
	Description   string `json:"description"`
	AllowedIPs    string `json:"allowedips"`
}

// ErrBadResponse — firewall ответил 200, но тело не похоже на ответ API
// (HTML страницы логина, ошибка прокси и т.п.).
var ErrBadResponse = errors.New("firewall: malformed response body")

// CreatePeer регистрирует клиента; address — IP без маски, отправляется как /32.
func (c *Client) CreatePeer(ctx context.Context, publicKey, address, description string) (string, error) {
	cidr := address + "/32"
	body, err := json.Marshal(createPeerRequest{
		Enabled:       true,
		PublicKey:     publicKey,
		TunnelAddress: cidr,
		Description:   description,
		AllowedIPs:    cidr,
	})
	if err != nil {
		return "", err
	}

	raw, err := c.do(ctx, "create peer", http.MethodPost, c.base+"/wireguard/client", body)
	if err != nil {
		return "", err
	}

	id, err := peerIDFromResponse(raw)
	if err != nil {
		logs.Logger.WithError(err).Error("firewall create peer: unexpected response")
		return "", err
	}
	if id == "" {
		id = uuid.NewString()
		logs.Logger.WithFields(logrus.Fields{"peer_id": id, "address": address}).
			Warn("firewall create peer: response has no id, using generated one")
	}
	return id, nil
}

// peerIDFromResponse достаёт data.id. Пустая строка без ошибки — корректный
// JSON-объект, в котором data или data.id отсутствуют.
func peerIDFromResponse(raw []byte) (string, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil || top == nil {
		return "", fmt.Errorf("%w: expected JSON object", ErrBadResponse)
	}
	rawData, ok := top["data"]
	if !ok {
		return "", nil
	}
	var data map[string]json.RawMessage
	if err := json.Unmarshal(rawData, &data); err != nil || data == nil {
		return "", fmt.Errorf("%w: data is not an object", ErrBadResponse)
	}
	rawID, ok := data["id"]
	if !ok {
		return "", nil
	}
	id := parseID(rawID)
	if id == "" {
		return "", fmt.Errorf("%w: data.id is empty", ErrBadResponse)
	}
	return id, nil
}

func (c *Client) DeletePeer(ctx context.Context, id string) error {
	_, err := c.do(ctx, "delete peer", http.MethodDelete, c.base+"/wireguard/client/"+url.PathEscape(id), nil)
	return err
}

func (c *Client) do(ctx context.Context, op, method, target string, body []byte) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return nil, fmt.Errorf("firewall %s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.key)
	if c.secret != "" {
		req.Header.Set("Authorization", c.key+" "+c.secret)
	}

	res, err := c.http.Do(req)
	if err != nil {
		logs.Logger.WithError(err).Errorf("firewall %s: request failed", op)
		return nil, fmt.Errorf("firewall %s: %w", op, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("firewall %s: read body: %w", op, err)
	}
	if res.StatusCode != http.StatusOK {
		serr := &StatusError{Op: op, Code: res.StatusCode, Body: strings.TrimSpace(string(raw))}
		logs.Logger.WithField("status", res.StatusCode).Error(serr.Error())
		return nil, serr
	}
	return raw, nil
}

// parseID: pfSense отдаёт id числом, другие прошивки — строкой.
func parseID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
