package node

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
)

// Config holds everything needed to construct a node: network identity,
// storage location, bind address, logging, peer seeds, and the
// domain-specific knobs spec.md leaves to an operator (mining,
// mempool caps, sync timing).
type Config struct {
	Network  string   `json:"network"`
	DataDir  string   `json:"data_dir"`
	BindAddr string   `json:"bind_addr"`
	LogLevel string   `json:"log_level"`
	Peers    []string `json:"peers"`
	MaxPeers int      `json:"max_peers"`

	MinerEnabled    bool   `json:"miner_enabled"`
	MinerPubkeyHash string `json:"miner_pubkey_hash"` // hex-encoded, 32 bytes

	MaxMempoolTxs int `json:"max_mempool_txs"`

	// IBDQuietPeriodSeconds is how many seconds the tip height must be unchanged before
	// the driver leaves Syncing for Normal (spec.md §4.10).
	IBDQuietPeriodSeconds int `json:"ibd_quiet_period_seconds"`

	// SnapshotIntervalSeconds is how often the active chain and UTXO
	// set are written to the two JSON snapshot files (spec.md §6).
	SnapshotIntervalSeconds int `json:"snapshot_interval_seconds"`
}

var allowedLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".ledgerd"
	}
	return filepath.Join(home, ".ledgerd")
}

func DefaultConfig() Config {
	return Config{
		Network:                 "devnet",
		DataDir:                 DefaultDataDir(),
		BindAddr:                "0.0.0.0:19121",
		Peers:                   nil,
		LogLevel:                "info",
		MaxPeers:                64,
		MinerEnabled:            false,
		MaxMempoolTxs:           50_000,
		IBDQuietPeriodSeconds:   3,
		SnapshotIntervalSeconds: 30,
	}
}

func NormalizePeers(raw ...string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, token := range raw {
		for _, p := range strings.Split(token, ",") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.Network) == "" {
		return errors.New("network is required")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return errors.New("data_dir is required")
	}
	if err := validateAddr(cfg.BindAddr); err != nil {
		return fmt.Errorf("invalid bind_addr: %w", err)
	}
	for _, peer := range cfg.Peers {
		if err := validatePeerAddr(peer); err != nil {
			return fmt.Errorf("invalid peer %q: %w", peer, err)
		}
	}
	logLevel := strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if _, ok := allowedLogLevels[logLevel]; !ok {
		return fmt.Errorf("invalid log_level %q", cfg.LogLevel)
	}
	if cfg.MaxPeers <= 0 {
		return errors.New("max_peers must be > 0")
	}
	if cfg.MaxPeers > 4096 {
		return errors.New("max_peers must be <= 4096")
	}
	if cfg.MaxMempoolTxs <= 0 {
		return errors.New("max_mempool_txs must be > 0")
	}
	if cfg.MinerEnabled && strings.TrimSpace(cfg.MinerPubkeyHash) == "" {
		return errors.New("miner_pubkey_hash is required when miner_enabled")
	}
	if cfg.IBDQuietPeriodSeconds <= 0 {
		return errors.New("ibd_quiet_period_seconds must be > 0")
	}
	if cfg.SnapshotIntervalSeconds <= 0 {
		return errors.New("snapshot_interval_seconds must be > 0")
	}
	return nil
}

func validateAddr(addr string) error {
	if strings.TrimSpace(addr) == "" {
		return errors.New("empty address")
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	if strings.TrimSpace(port) == "" {
		return errors.New("missing port")
	}
	if strings.Contains(host, " ") {
		return errors.New("invalid host")
	}
	return nil
}

func validatePeerAddr(addr string) error {
	if err := validateAddr(addr); err != nil {
		return err
	}
	host, _, _ := net.SplitHostPort(addr)
	if strings.TrimSpace(host) == "" {
		return errors.New("missing host")
	}
	return nil
}
