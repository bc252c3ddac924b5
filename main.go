package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vpnportal/config"
	"vpnportal/internal/vpn/wireguard"
	"vpnportal/server"
)

func main() {
	var cfgFile string

	load := func() (*config.Config, error) {
		if cfgFile != "" {
			return config.LoadFile(cfgFile)
		}
		return config.Load()
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the provisioning HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			app := &server.App{}
			if err := app.Initialize(cfg); err != nil {
				return err
			}
			return app.Run()
		},
	}

	root := &cobra.Command{
		Use:           "vpnportal",
		Short:         "Issue WireGuard client configs through the firewall API",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          serve.RunE,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: $CONFIG_FILE or ./config.yaml)")

	root.AddCommand(serve, keygenCmd(load), renderCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// keygenCmd берёт keys.mode/keys.wg_path из конфига, явные флаги важнее.
// Без валидного конфига работает на значениях флагов по умолчанию.
func keygenCmd(load func() (*config.Config, error)) *cobra.Command {
	var mode, wgPath string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Print a WireGuard keypair using the configured key provider",
		RunE: func(cmd *cobra.Command, _ []string) error {
			f := cmd.Flags()
			if !f.Changed("mode") || !f.Changed("wg-path") {
				cfg, err := load()
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: config not loaded (%v), using flag defaults\n", err)
				} else {
					if !f.Changed("mode") {
						mode = cfg.Keys.Mode
					}
					if !f.Changed("wg-path") {
						wgPath = cfg.Keys.WGPath
					}
				}
			}

			p, err := wireguard.NewProvider(mode, wgPath)
			if err != nil {
				return err
			}
			kp, err := p.Generate(context.Background())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "PrivateKey = %s\nPublicKey = %s\n", kp.PrivateKey, kp.PublicKey)
			if kp.Placeholder {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: placeholder keys, install wireguard-tools or use --mode native")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", wireguard.ModeTool, "Key provider: wg|native (default: keys.mode)")
	cmd.Flags().StringVar(&wgPath, "wg-path", "wg", "Path to the wg binary (default: keys.wg_path)")
	return cmd
}

func renderCmd() *cobra.Command {
	var c wireguard.ClientConfig
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a client config from flags",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.PrivateKey == "" || c.Address == "" {
				return fmt.Errorf("--private-key and --address are required")
			}
			_, err := fmt.Fprint(cmd.OutOrStdout(), wireguard.RenderClientConfig(c))
			return err
		},
	}
	f := cmd.Flags()
	f.StringVar(&c.PrivateKey, "private-key", "", "Client private key")
	f.StringVar(&c.Address, "address", "", "Client address without mask")
	f.StringSliceVar(&c.DNS, "dns", []string{"1.1.1.1", "8.8.8.8"}, "DNS servers")
	f.StringVar(&c.ServerPublicKey, "server-public-key", "", "Server public key")
	f.StringVar(&c.Endpoint, "endpoint", "", "Server endpoint host:port")
	f.StringVar(&c.AllowedIPs, "allowed-ips", "10.0.0.0/24", "Network routed through the tunnel")
	return cmd
}
