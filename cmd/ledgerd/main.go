package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/coachworld-cj-coin/ledgerd/consensus"
	"github.com/coachworld-cj-coin/ledgerd/log"
	"github.com/coachworld-cj-coin/ledgerd/node"
	"github.com/coachworld-cj-coin/ledgerd/node/p2p"
	"github.com/coachworld-cj-coin/ledgerd/node/store"
)

var nowUnix = func() int64 { return time.Now().Unix() }

type multiStringFlag []string

func (m *multiStringFlag) String() string {
	if m == nil {
		return ""
	}
	return strings.Join(*m, ",")
}

func (m *multiStringFlag) Set(value string) error {
	*m = append(*m, value)
	return nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	defaults := node.DefaultConfig()
	var peers multiStringFlag

	cfg := defaults
	fs := flag.NewFlagSet("ledgerd", flag.ContinueOnError)
	fs.SetOutput(stderr)

	peerCSV := fs.String("peers", "", "bootstrap peers, comma-separated host:port")
	fs.Var(&peers, "peer", "single bootstrap peer host:port (repeatable)")
	fs.StringVar(&cfg.Network, "network", defaults.Network, "network name (devnet/testnet/mainnet)")
	fs.StringVar(&cfg.DataDir, "datadir", defaults.DataDir, "node data directory")
	fs.StringVar(&cfg.BindAddr, "bind", defaults.BindAddr, "bind address host:port")
	fs.StringVar(&cfg.LogLevel, "log-level", defaults.LogLevel, "log level: debug|info|warn|error")
	fs.IntVar(&cfg.MaxPeers, "max-peers", defaults.MaxPeers, "max connected peers")
	fs.IntVar(&cfg.MaxMempoolTxs, "max-mempool-txs", defaults.MaxMempoolTxs, "max mempool transaction count")
	fs.IntVar(&cfg.IBDQuietPeriodSeconds, "ibd-quiet-period", defaults.IBDQuietPeriodSeconds, "seconds of unchanged tip height before leaving sync state")
	fs.IntVar(&cfg.SnapshotIntervalSeconds, "snapshot-interval", defaults.SnapshotIntervalSeconds, "seconds between chain/utxo snapshot writes")
	fs.BoolVar(&cfg.MinerEnabled, "mine", defaults.MinerEnabled, "mine blocks once in normal state")
	fs.StringVar(&cfg.MinerPubkeyHash, "miner-pubkey-hash", defaults.MinerPubkeyHash, "hex-encoded 32-byte pubkey hash credited with coinbase rewards")
	jsonLog := fs.Bool("json-log", false, "emit JSON logs instead of console-formatted logs")
	dryRun := fs.Bool("dry-run", false, "print effective config and exit")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.Peers = node.NormalizePeers(append([]string{*peerCSV}, peers...)...)
	if err := node.ValidateConfig(cfg); err != nil {
		_, _ = fmt.Fprintf(stderr, "invalid config: %v\n", err)
		return 2
	}
	log.Init(cfg.LogLevel, *jsonLog)

	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		_, _ = fmt.Fprintf(stderr, "datadir create failed: %v\n", err)
		return 2
	}

	db, err := store.Open(cfg.DataDir)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "block store open failed: %v\n", err)
		return 2
	}
	defer db.Close()

	mempool := node.NewMempool(cfg.MaxMempoolTxs, nowUnix)
	chain, err := node.NewChain(consensus.Genesis(), mempool)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "chain init failed: %v\n", err)
		return 2
	}
	if err := node.RestoreFromDisk(chain, db, cfg.DataDir, nowUnix()); err != nil {
		_, _ = fmt.Fprintf(stderr, "chain restore failed: %v\n", err)
		return 2
	}

	var miner *node.Miner
	if cfg.MinerEnabled {
		pubkeyHash, err := decodePubkeyHash(cfg.MinerPubkeyHash)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "invalid miner-pubkey-hash: %v\n", err)
			return 2
		}
		minerCfg := node.DefaultMinerConfig(pubkeyHash)
		minerCfg.TimestampSource = nowUnix
		miner, err = node.NewMiner(chain, mempool, minerCfg)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "miner init failed: %v\n", err)
			return 2
		}
	}

	_, _ = fmt.Fprintf(stdout, "ledgerd: tip_height=%d peers=%d mining=%v\n", chain.TipHeight(), len(cfg.Peers), cfg.MinerEnabled)
	if err := printConfig(stdout, cfg); err != nil {
		_, _ = fmt.Fprintf(stderr, "config encode failed: %v\n", err)
		return 1
	}
	if *dryRun {
		return 0
	}

	driver := node.NewDriver(chain, mempool, miner, nil, cfg, nowUnix)
	transport := p2p.NewTCPTransport(driver)
	driver.SetTransport(transport)
	driver.SetStore(db)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := transport.Listen(ctx, cfg.BindAddr); err != nil {
			log.P2P.Error().Err(err).Msg("listener stopped")
		}
	}()

	hello := p2p.HelloMessage(chain.TipHeight(), "ledgerd")
	for _, peer := range cfg.Peers {
		if err := transport.Dial(ctx, peer); err != nil {
			log.P2P.Warn().Err(err).Str("peer", peer).Msg("failed to dial bootstrap peer")
			continue
		}
		if err := transport.Send(peer, hello); err != nil {
			log.P2P.Warn().Err(err).Str("peer", peer).Msg("failed to greet bootstrap peer")
		}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		node.PersistPeriodically(ctx, chain, cfg.DataDir, time.Duration(cfg.SnapshotIntervalSeconds)*time.Second)
	}()

	_, _ = fmt.Fprintln(stdout, "ledgerd running")
	if err := driver.Run(ctx); err != nil && ctx.Err() == nil {
		log.Node.Error().Err(err).Msg("driver stopped unexpectedly")
	}

	_ = transport.Close()
	wg.Wait()
	if err := node.PersistNow(chain, cfg.DataDir); err != nil {
		log.Chain.Error().Err(err).Msg("final snapshot failed")
	}
	_, _ = fmt.Fprintln(stdout, "ledgerd stopped")
	return 0
}

func decodePubkeyHash(s string) (consensus.Hash, error) {
	var h consensus.Hash
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return h, err
	}
	if len(raw) != len(h) {
		return h, fmt.Errorf("expected %d bytes, got %d", len(h), len(raw))
	}
	copy(h[:], raw)
	return h, nil
}

func printConfig(w io.Writer, cfg node.Config) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(cfg)
}
