// Package config loads server and client settings from the OS
// environment (or an env file), the way cmd/atlas/main.go's readEnv does
// for Atlas: an optional file is parsed into KEY=VALUE pairs with
// github.com/hashicorp/go-envparse and layered over os.Environ().
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/go-envparse"

	"vpnrelay/crypto/aesgcm"
	"vpnrelay/protocol"
)

// ServerConfig holds everything cmd/relayd needs to start the service.
type ServerConfig struct {
	ListenAddr        string
	Key               []byte
	MTU               uint32
	KeepaliveInterval uint32
	ReconnectAttempts uint32
	MetricsAddr       string
}

// ClientConfig holds everything cmd/relayc needs to connect.
type ClientConfig struct {
	ServerAddr string
	Key        []byte
}

const (
	envListenAddr  = "VPNRELAY_LISTEN_ADDR"
	envServerAddr  = "VPNRELAY_SERVER_ADDR"
	envKey         = "VPNRELAY_KEY"
	envKeyFile     = "VPNRELAY_KEY_FILE"
	envMTU         = "VPNRELAY_MTU"
	envKeepalive   = "VPNRELAY_KEEPALIVE_INTERVAL"
	envReconnect   = "VPNRELAY_RECONNECT_ATTEMPTS"
	envMetricsAddr = "VPNRELAY_METRICS_ADDR"
)

// LoadServer reads a ServerConfig from os.Environ(), optionally overlaid
// with KEY=VALUE pairs from an env file at path (ignored if path is
// empty). File values take precedence over the process environment,
// mirroring readEnv's "if env_file is provided, config from the
// environment is ignored" behavior for any key the file sets.
func LoadServer(path string) (ServerConfig, error) {
	env, err := load(path)
	if err != nil {
		return ServerConfig{}, err
	}

	key, err := resolveKey(env)
	if err != nil {
		return ServerConfig{}, err
	}

	def := protocol.DefaultVpnConfig()
	mtu, err := getUint32(env, envMTU, def.MTU)
	if err != nil {
		return ServerConfig{}, err
	}
	keepalive, err := getUint32(env, envKeepalive, def.KeepaliveInterval)
	if err != nil {
		return ServerConfig{}, err
	}
	reconnect, err := getUint32(env, envReconnect, def.ReconnectAttempts)
	if err != nil {
		return ServerConfig{}, err
	}

	return ServerConfig{
		ListenAddr:        get(env, envListenAddr, ":9443"),
		Key:               key,
		MTU:               mtu,
		KeepaliveInterval: keepalive,
		ReconnectAttempts: reconnect,
		MetricsAddr:       get(env, envMetricsAddr, ":9444"),
	}, nil
}

// LoadClient reads a ClientConfig the same way LoadServer does.
func LoadClient(path string) (ClientConfig, error) {
	env, err := load(path)
	if err != nil {
		return ClientConfig{}, err
	}
	key, err := resolveKey(env)
	if err != nil {
		return ClientConfig{}, err
	}
	addr := get(env, envServerAddr, "")
	if addr == "" {
		return ClientConfig{}, fmt.Errorf("config: %s is required", envServerAddr)
	}
	return ClientConfig{ServerAddr: addr, Key: key}, nil
}

// load merges os.Environ() with an optional env file, file values winning.
func load(path string) (map[string]string, error) {
	env := map[string]string{}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	if path == "" {
		return env, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open env file: %w", err)
	}
	defer func() { _ = f.Close() }()

	fileVars, err := envparse.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse env file: %w", err)
	}
	for k, v := range fileVars {
		env[k] = v
	}
	return env, nil
}

func get(env map[string]string, key, def string) string {
	if v, ok := env[key]; ok && v != "" {
		return v
	}
	return def
}

func getUint32(env map[string]string, key string, def uint32) (uint32, error) {
	v, ok := env[key]
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return uint32(n), nil
}

// resolveKey reads the 32-byte symmetric key either directly from
// VPNRELAY_KEY (hex-encoded) or from the file named by
// VPNRELAY_KEY_FILE. Key provisioning itself is out of scope; this just
// hands the bytes to aesgcm.New unchanged.
func resolveKey(env map[string]string) ([]byte, error) {
	if hexKey, ok := env[envKey]; ok && hexKey != "" {
		key, err := hex.DecodeString(hexKey)
		if err != nil {
			return nil, fmt.Errorf("config: %s: %w", envKey, err)
		}
		return validateKey(key)
	}
	if path, ok := env[envKeyFile]; ok && path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", envKeyFile, err)
		}
		key, err := hex.DecodeString(strings.TrimSpace(string(data)))
		if err != nil {
			return nil, fmt.Errorf("config: %s: %w", envKeyFile, err)
		}
		return validateKey(key)
	}
	return nil, fmt.Errorf("config: one of %s or %s is required", envKey, envKeyFile)
}

func validateKey(key []byte) ([]byte, error) {
	if len(key) != aesgcm.KeySize {
		return nil, fmt.Errorf("config: key must be %d bytes, got %d", aesgcm.KeySize, len(key))
	}
	return key, nil
}
