package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	"github.com/eigerco/bilberry/internal/chain"
	"github.com/eigerco/bilberry/internal/consensus"
	"github.com/eigerco/bilberry/internal/crypto"
	"github.com/eigerco/bilberry/internal/decimal"
	"github.com/eigerco/bilberry/internal/forkset"
	"github.com/eigerco/bilberry/internal/lottery"
	"github.com/eigerco/bilberry/internal/mempool"
	"github.com/eigerco/bilberry/internal/pid"
	"github.com/eigerco/bilberry/internal/store"
	"github.com/eigerco/bilberry/pkg/db/pebble"
	"github.com/eigerco/bilberry/pkg/log"
)

// NodeConfig is the JSON node configuration file.
type NodeConfig struct {
	Stake            uint64        `json:"stake"`
	Seed             string        `json:"seed"` // hex VRF key seed
	Producer         string        `json:"producer"`
	Headstart        uint64        `json:"headstart"`
	GenesisTokens    uint64        `json:"genesis_tokens"`
	GenesisReward    uint64        `json:"genesis_reward"`
	Target           uint64        `json:"target"`
	VerifySignatures bool          `json:"verify_signatures"`
	FinalityDepth    uint64        `json:"finality_depth"`
	Tuning           *TuningConfig `json:"tuning,omitempty"`
}

// TuningConfig overrides the default PID constants. Values are decimal
// strings so they survive JSON without floating-point mangling.
type TuningConfig struct {
	Kp   string `json:"kp"`
	Ki   string `json:"ki"`
	Kd   string `json:"kd"`
	MinF string `json:"min_f"`
	MaxF string `json:"max_f"`
}

func loadNodeConfig(filename string) (*NodeConfig, error) {
	jsonData, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	cfg := &NodeConfig{}
	if err := json.Unmarshal(jsonData, cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling JSON: %w", err)
	}
	return cfg, nil
}

func (c *NodeConfig) tuning() (pid.Tuning, error) {
	t := pid.DefaultTuning()
	if c.Tuning == nil {
		return t, nil
	}
	for _, field := range []struct {
		raw string
		dst *decimal.Decimal
	}{
		{c.Tuning.Kp, &t.Kp},
		{c.Tuning.Ki, &t.Ki},
		{c.Tuning.Kd, &t.Kd},
		{c.Tuning.MinF, &t.MinF},
		{c.Tuning.MaxF, &t.MaxF},
	} {
		if field.raw == "" {
			continue
		}
		d, err := decimal.NewFromString(field.raw)
		if err != nil {
			return pid.Tuning{}, err
		}
		*field.dst = d
	}
	return t, t.Validate()
}

// devValidator prices a transaction by payload size. It stands in for the
// contract execution engine in single-node development runs.
type devValidator struct{}

func (devValidator) Verify(tx chain.PendingTransaction, _ *chain.Fork, _ mempool.BlockContext) (uint64, error) {
	if len(tx.Payload) == 0 {
		return 0, errors.New("empty transaction")
	}
	return uint64(len(tx.Payload)) * 1000, nil
}

// main starts a consensus node.
// go run main.go -config node.json -db ./data
func main() {
	configPath := flag.String("config", "node.json", "node configuration file")
	dbPath := flag.String("db", "bilberry-data", "database directory")
	logLevel := flag.String("log-level", "info", "log level")
	logJSON := flag.Bool("log-json", false, "log as JSON")
	flag.Parse()

	level, err := log.ParseLogLevel(*logLevel)
	if err != nil {
		stdlog.Fatalf("invalid log level %q: %v", *logLevel, err)
	}
	logType := log.ConsoleLogger
	if *logJSON {
		logType = log.JSONLogger
	}
	log.Init(log.Options{LogLevel: level, Type: logType})

	cfg, err := loadNodeConfig(*configPath)
	if err != nil {
		stdlog.Fatalf("load config: %v", err)
	}
	seed, err := hex.DecodeString(cfg.Seed)
	if err != nil || len(seed) == 0 {
		stdlog.Fatal("config: seed must be non-empty hex")
	}
	tuning, err := cfg.tuning()
	if err != nil {
		stdlog.Fatalf("config: tuning: %v", err)
	}

	kv, err := pebble.NewPersistentKVStore(*dbPath)
	if err != nil {
		stdlog.Fatalf("open database: %v", err)
	}
	defer kv.Close()

	controller, err := pid.NewController(tuning)
	if err != nil {
		stdlog.Fatalf("pid controller: %v", err)
	}
	ledger := store.NewLedger(kv, cfg.GenesisTokens, cfg.GenesisReward)

	forks := forkset.NewManager(crypto.HashData([]byte("genesis")), 0, crypto.Hash{}, log.Forks)
	restored, err := ledger.Forks.Forks()
	if err != nil {
		stdlog.Fatalf("restore forks: %v", err)
	}
	for _, f := range restored {
		forks.AdoptFork(f)
	}

	pool, err := mempool.NewPool(1<<16, log.Pool)
	if err != nil {
		stdlog.Fatalf("mempool: %v", err)
	}
	selector := mempool.NewSelector(pool, devValidator{}, log.Pool)
	prover := lottery.NewEvaluator(seed, cfg.Headstart)

	loop := consensus.New(consensus.Config{
		Stake:            cfg.Stake,
		Producer:         crypto.HashData([]byte(cfg.Producer)),
		Target:           cfg.Target,
		VerifySignatures: cfg.VerifySignatures,
		FinalityDepth:    cfg.FinalityDepth,
	}, controller, forks, pool, selector, prover, ledger, log.Consensus)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Root.Info().
		Uint64("stake", cfg.Stake).
		Int("restored_forks", len(restored)).
		Msg("node starting")

	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		stdlog.Fatalf("consensus loop: %v", err)
	}

	// Persist the surviving fork set for the next start.
	best, err := forks.Fork(loop.CurrentBestFork())
	if err == nil {
		if err := ledger.Forks.PutFork(&best); err != nil {
			log.Store.Warn().Err(err).Msg("persist best fork")
		}
	}
	log.Root.Info().Msg("node stopped")
}
