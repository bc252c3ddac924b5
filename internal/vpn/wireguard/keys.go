package wireguard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/google/uuid"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"

	"vpnportal/internal/logs"
)

const (
	ModeTool   = "wg"     // wireguard-tools, как wg genkey | wg pubkey
	ModeNative = "native" // wgtypes внутри процесса
)

// KeyPair — ключи клиента в base64. Placeholder=true значит, что это заглушки,
// а не настоящие ключи: такой конфиг подключиться не сможет.
type KeyPair struct {
	PrivateKey  string
	PublicKey   string
	Placeholder bool
}

type Provider interface {
	Generate(ctx context.Context) (KeyPair, error)
}

// ToolProvider вызывает внешний бинарь wg.
type ToolProvider struct {
	Path string // по умолчанию "wg" из PATH
}

func (p ToolProvider) Generate(ctx context.Context) (KeyPair, error) {
	bin := p.Path
	if bin == "" {
		bin = "wg"
	}
	out, err := exec.CommandContext(ctx, bin, "genkey").Output()
	if err != nil {
		return KeyPair{}, fmt.Errorf("%s genkey: %w", bin, err)
	}
	priv := strings.TrimSpace(string(out))
	if priv == "" {
		return KeyPair{}, fmt.Errorf("%s genkey: empty output", bin)
	}

	cmd := exec.CommandContext(ctx, bin, "pubkey")
	cmd.Stdin = strings.NewReader(priv + "\n")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err = cmd.Output()
	if err != nil {
		return KeyPair{}, fmt.Errorf("%s pubkey: %w (%s)", bin, err, strings.TrimSpace(stderr.String()))
	}
	pub := strings.TrimSpace(string(out))
	if pub == "" {
		return KeyPair{}, fmt.Errorf("%s pubkey: empty output", bin)
	}
	return KeyPair{PrivateKey: priv, PublicKey: pub}, nil
}

// NativeProvider генерирует curve25519-ключи через wgtypes, без внешних бинарей.
type NativeProvider struct{}

func (NativeProvider) Generate(context.Context) (KeyPair, error) {
	priv, err := wgtypes.GeneratePrivateKey()
	if err != nil {
		return KeyPair{}, fmt.Errorf("generate private key: %w", err)
	}
	return KeyPair{PrivateKey: priv.String(), PublicKey: priv.PublicKey().String()}, nil
}

const (
	PlaceholderPrivatePrefix = "placeholder_private_key_"
	PlaceholderPublicPrefix  = "placeholder_public_key_"
)

// PlaceholderProvider — деградированный режим: уникальные, явно помеченные заглушки.
type PlaceholderProvider struct{}

func (PlaceholderProvider) Generate(context.Context) (KeyPair, error) {
	return KeyPair{
		PrivateKey:  PlaceholderPrivatePrefix + uuid.NewString(),
		PublicKey:   PlaceholderPublicPrefix + uuid.NewString(),
		Placeholder: true,
	}, nil
}

// FallbackProvider пробует Primary и при ошибке отдаёт ключи Fallback.
// Запрос при этом не падает, оператор видит warning в логе.
type FallbackProvider struct {
	Primary  Provider
	Fallback Provider
}

func (p FallbackProvider) Generate(ctx context.Context) (KeyPair, error) {
	kp, err := p.Primary.Generate(ctx)
	if err == nil {
		return kp, nil
	}
	// отменённый запрос — не повод выдавать заглушки
	if ctxErr := ctx.Err(); ctxErr != nil {
		return KeyPair{}, errors.Join(err, ctxErr)
	}
	logs.Logger.WithError(err).Warn("key generation degraded: WireGuard tools not available, using placeholder keys")
	return p.Fallback.Generate(ctx)
}

// NewProvider собирает цепочку по keys.mode.
func NewProvider(mode, wgPath string) (Provider, error) {
	switch mode {
	case ModeTool, "":
		return FallbackProvider{Primary: ToolProvider{Path: wgPath}, Fallback: PlaceholderProvider{}}, nil
	case ModeNative:
		return FallbackProvider{Primary: NativeProvider{}, Fallback: PlaceholderProvider{}}, nil
	default:
		return nil, fmt.Errorf("unknown key mode %q", mode)
	}
}

// ValidatePublicKey проверяет, что строка — base64 32-байтового ключа.
func ValidatePublicKey(s string) error {
	_, err := wgtypes.ParseKey(s)
	return err
}
