// Command relayd runs the relay server.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"vpnrelay/config"
	"vpnrelay/crypto/aesgcm"
	"vpnrelay/metrics"
	"vpnrelay/protocol"
	"vpnrelay/server"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "relayd",
	Short: "Run the VPN relay server",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&envFile, "env-file", "", "path to a KEY=VALUE env file (overrides the process environment)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	log := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Str("component", "relayd").Logger()

	cfg, err := config.LoadServer(envFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	unit, err := aesgcm.New(cfg.Key)
	if err != nil {
		return fmt.Errorf("init encryption unit: %w", err)
	}
	codec := protocol.NewCodec(unit)

	defaultConfig := protocol.VpnConfig{
		MTU:               cfg.MTU,
		KeepaliveInterval: cfg.KeepaliveInterval,
		ReconnectAttempts: cfg.ReconnectAttempts,
	}

	addr, err := net.ResolveTCPAddr("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("resolve listen addr: %w", err)
	}
	listener, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	m := metrics.NewServer()
	keepaliveInterval := time.Duration(cfg.KeepaliveInterval) * time.Second
	sup := server.New(listener, codec, defaultConfig, keepaliveInterval, m, log)

	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: m.Handler()}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn().Err(err).Msg("metrics server stopped")
		}
	}()

	log.Info().Str("addr", listener.Addr().String()).Str("metrics_addr", cfg.MetricsAddr).Msg("relay server starting")
	sup.Start()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)

	if err := sup.Shutdown(); err != nil {
		log.Error().Err(err).Msg("shutdown did not complete cleanly")
		return err
	}
	log.Info().Msg("shutdown complete")
	return nil
}
