// Command relayc is a small interactive client for the VPN relay server:
// it connects, performs the handshake, echoes one payload, and
// disconnects, exercising the same client session code a real caller
// would embed.
package main

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"vpnrelay/client"
	"vpnrelay/config"
	"vpnrelay/crypto/aesgcm"
	"vpnrelay/protocol"
)

var (
	envFile string
	message string
)

var rootCmd = &cobra.Command{
	Use:   "relayc",
	Short: "Connect to a VPN relay server, handshake, and echo a message",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&envFile, "env-file", "", "path to a KEY=VALUE env file (overrides the process environment)")
	rootCmd.Flags().StringVar(&message, "message", "Hello, VPN Server!", "payload to echo off the server")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	log := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Str("component", "relayc").Logger()

	cfg, err := config.LoadClient(envFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	unit, err := aesgcm.New(cfg.Key)
	if err != nil {
		return fmt.Errorf("init encryption unit: %w", err)
	}
	codec := protocol.NewCodec(unit)

	c, err := client.Dial(cfg.ServerAddr, codec, log)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() {
		if err := c.Disconnect(); err != nil {
			log.Warn().Err(err).Msg("disconnect failed")
		}
	}()

	if err := c.Handshake(); err != nil {
		return fmt.Errorf("handshake: %w", err)
	}
	log.Info().Interface("config", c.Config()).Msg("handshake complete")

	localIP := net.IPv4(127, 0, 0, 1)
	reply, err := c.Send(protocol.NewDataPacket(localIP, localIP, []byte(message)))
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	if !bytes.Equal(reply.Payload, []byte(message)) {
		return fmt.Errorf("unexpected echo payload: %q", reply.Payload)
	}

	log.Info().Str("reply", string(reply.Payload)).Msg("echo confirmed")
	time.Sleep(100 * time.Millisecond) // let the heartbeat goroutine settle before disconnecting
	return nil
}
