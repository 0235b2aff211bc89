package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tapmesh/tapmesh/internal/config"
	"github.com/tapmesh/tapmesh/internal/log"
	"github.com/tapmesh/tapmesh/internal/metrics"
	"github.com/tapmesh/tapmesh/network"
	"github.com/tapmesh/tapmesh/tap"
	"github.com/tapmesh/tapmesh/types"
)

func newStartCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Create the TAP interface and join the mesh",
		Long: `
Create the TAP interface and bridge it to the mesh until interrupted.

Examples:
  tapmesh start --auto                                   # find peers by multicast discovery
  tapmesh start --peers b=10.0.0.2,c=10.0.0.3:9909       # start from a static peer list
  tapmesh start -c /etc/tapmesh.yaml --address 10.9.0.1/24
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath, cmd.Flags())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runNode(ctx, cfg)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	flags.String("name", config.DefaultName, "node name, defaults to $HOSTNAME or $HOST")
	flags.String("ifname", "tap0", "TAP interface name")
	flags.Int("mtu", 1500, "TAP interface MTU")
	flags.String("address", "", "CIDR address to assign to the interface, e.g. 10.9.0.1/24")
	flags.Bool("auto", false, "enable periodic multicast discovery")
	flags.String("peers", "", "initial peers as name=addr[:port],...")
	flags.String("control", fmt.Sprintf("0.0.0.0:%d", types.DefaultControlPort), "control listen address, data uses the port below it")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text or json")
	flags.Bool("metrics", false, "serve Prometheus metrics")
	flags.String("metrics-listen", ":9910", "metrics listen address")
	return cmd
}

func runNode(ctx context.Context, cfg *config.Config) error {
	if err := log.Init(cfg.Log); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	logger := log.Component("main")

	dev, err := tap.Create(cfg.Ifname, cfg.MTU, cfg.Address)
	if err != nil {
		return fmt.Errorf("create interface %s: %w", cfg.Ifname, err)
	}
	node, err := network.NewNode(cfg.Name, dev, cfg.NodeOptions()...)
	if err != nil {
		dev.Close()
		return fmt.Errorf("start node: %w", err)
	}

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		if err := srv.Start(); err != nil {
			node.Close()
			return fmt.Errorf("start metrics server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Stop(shutdownCtx); err != nil {
				logger.WithError(err).Warn("metrics server shutdown failed")
			}
		}()
	}

	if len(cfg.Peers) > 0 {
		logger.WithField("peers", len(cfg.Peers)).Info("registering initial peers")
		node.AddPeers(cfg.Peers)
	}
	err = node.Run(ctx)
	self := node.Debug.GetSelf()
	logger.WithFields(map[string]interface{}{
		"peers":      self.Peers,
		"unresolved": self.Unresolved,
	}).Info("node stopped")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
