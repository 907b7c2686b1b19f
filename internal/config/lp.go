package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// Journal modes.
const (
	JournalNone     = "none"
	JournalJSONL    = "jsonl"
	JournalPostgres = "postgres"
)

// LPConfig holds configuration for the liquidity commands.
type LPConfig struct {
	Network        NetworkConfig
	PrivateKey     string
	Slippage       float64
	DryRun         bool
	GasLimit       uint64
	ReceiptTimeout time.Duration
	PollInterval   time.Duration
	Journal        string
	JournalPath    string
	PGDSN          string
	LogLevel       string
}

// LoadLP merges config file, environment variables, and flags into LPConfig.
// The private key is read from CRIKEY_PRIVATE_KEY or the config file only.
func LoadLP(cfgFile string, flags *pflag.FlagSet) (LPConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"slippage":        0.01,
		"receipt-timeout": 3 * time.Minute,
		"poll-interval":   2 * time.Second,
		"journal":         JournalJSONL,
		"journal-path":    "./data/user_cmds.jsonl",
	})
	if err != nil {
		return LPConfig{}, err
	}

	cfg := LPConfig{
		Network:        loadNetwork(v),
		PrivateKey:     v.GetString("private-key"),
		Slippage:       v.GetFloat64("slippage"),
		DryRun:         v.GetBool("dry-run"),
		GasLimit:       v.GetUint64("gas-limit"),
		ReceiptTimeout: getDuration(v, "receipt-timeout", 3*time.Minute),
		PollInterval:   getDuration(v, "poll-interval", 2*time.Second),
		Journal:        v.GetString("journal"),
		JournalPath:    v.GetString("journal-path"),
		PGDSN:          v.GetString("pg-dsn"),
		LogLevel:       v.GetString("log-level"),
	}

	if cfg.Network.RPCURL == "" {
		return cfg, fmt.Errorf("rpc is required")
	}
	if cfg.PrivateKey == "" {
		return cfg, fmt.Errorf("private-key is required (set %s_PRIVATE_KEY)", envPrefix)
	}
	if cfg.Slippage < 0 || cfg.Slippage >= 1 {
		return cfg, fmt.Errorf("slippage must be in [0, 1), got %v", cfg.Slippage)
	}
	switch cfg.Journal {
	case JournalNone, JournalJSONL:
	case JournalPostgres:
		if cfg.PGDSN == "" {
			return cfg, fmt.Errorf("pg-dsn is required for the postgres journal")
		}
	default:
		return cfg, fmt.Errorf("unknown journal %q", cfg.Journal)
	}
	return cfg, nil
}
