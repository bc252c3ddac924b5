package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"vpnportal/config"
	"vpnportal/internal/api"
	"vpnportal/internal/firewall"
	"vpnportal/internal/health"
	"vpnportal/internal/logs"
	"vpnportal/internal/middleware"
	"vpnportal/internal/provision"
	"vpnportal/internal/repo"
	"vpnportal/internal/vpn/wireguard"
)

type App struct {
	cfg        *config.Config
	Router     *mux.Router
	httpServer *http.Server
	ready      *health.Readiness

	ctx    context.Context
	cancel context.CancelFunc
}

func (a *App) Initialize(cfg *config.Config) error {
	a.cfg = cfg

	/* 1) Логи */
	logs.Init(logs.Options{
		Level:  a.cfg.Logging.Level,
		Format: a.cfg.Logging.Format,
		File:   a.cfg.Logging.File,
	})

	/* 2) Ключи и firewall */
	keys, err := wireguard.NewProvider(a.cfg.Keys.Mode, a.cfg.Keys.WGPath)
	if err != nil {
		return err
	}
	if err := wireguard.ValidatePublicKey(a.cfg.VPN.ServerPublicKey); err != nil {
		logs.Logger.Warnf("vpn.server_public_key does not look like a WireGuard key: %v", err)
	}
	if a.cfg.Firewall.InsecureSkipVerify {
		logs.Logger.Warn("firewall TLS certificate verification is DISABLED (firewall.insecure_skip_verify)")
	}
	gw := firewall.New(firewall.Options{
		BaseURL:            a.cfg.FirewallBaseURL(),
		APIKey:             a.cfg.Firewall.APIKey,
		APISecret:          a.cfg.Firewall.APISecret,
		InsecureSkipVerify: a.cfg.Firewall.InsecureSkipVerify,
		Timeout:            a.cfg.Firewall.Timeout,
	})

	/* 3) Провижининг; реестр пиров только в памяти процесса */
	svc := provision.New(repo.NewMemPeerStore(), gw, keys, provision.Params{
		Subnet:          a.cfg.Subnet(),
		RouteNetwork:    a.cfg.VPN.RouteNetwork,
		DNS:             a.cfg.VPN.DNSServers,
		ServerPublicKey: a.cfg.VPN.ServerPublicKey,
		ServerEndpoint:  a.cfg.VPN.ServerEndpoint,
		DemoUser:        a.cfg.Demo.Username,
		DemoPassword:    a.cfg.Demo.Password,
	})

	/* 4) Router + middleware */
	a.Router = mux.NewRouter().StrictSlash(true)
	a.Router.Use(
		middleware.RequestID,
		middleware.Recoverer,
		middleware.LoggerMW,
	)

	a.ready = &health.Readiness{}
	health.RegisterRoutes(a.Router, a.ready)
	api.RegisterRoutes(a.Router, svc)

	_ = a.Router.Walk(func(rt *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, err := rt.GetPathTemplate()
		if err != nil {
			return nil
		}
		methods, _ := rt.GetMethods()
		if len(methods) == 0 {
			methods = []string{"ANY"}
		}
		logs.Logger.Debugf("route: %-6v %s", methods, path)
		return nil
	})
	return nil
}

func (a *App) Run() error {
	if a.Router == nil || a.cfg == nil {
		return fmt.Errorf("server not initialized")
	}

	bind := net.JoinHostPort(a.cfg.Server.Address, a.cfg.Server.HTTPPort)

	a.ctx, a.cancel = context.WithCancel(context.Background())
	defer a.cancel()
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		select {
		case s := <-sigs:
			logs.Logger.Infof("shutdown signal: %s", s)
			a.cancel()
		case <-a.ctx.Done():
		}
	}()

	a.httpServer = &http.Server{
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// запрос ждёт firewall, запас сверху на рендер ответа
		WriteTimeout: a.cfg.Firewall.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("listen %s: %w", bind, err)
	}

	errCh := make(chan error, 1)
	go func() {
		logs.Logger.Infof("HTTP listening on %s", bind)
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	a.ready.Set(true)

	select {
	case <-a.ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
	}
	a.ready.Set(false)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.httpServer.Shutdown(ctx); err != nil {
		logs.Logger.Errorf("http shutdown: %v", err)
	}
	return nil
}
