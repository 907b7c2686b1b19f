package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// HistoryConfig holds configuration for reading the command journal.
type HistoryConfig struct {
	Journal     string
	JournalPath string
	PGDSN       string
	ChainID     uint64
	Limit       int
	LogLevel    string
}

// LoadHistory merges config file, environment variables, and flags into HistoryConfig.
func LoadHistory(cfgFile string, flags *pflag.FlagSet) (HistoryConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"journal":      JournalJSONL,
		"journal-path": "./data/user_cmds.jsonl",
		"limit":        20,
	})
	if err != nil {
		return HistoryConfig{}, err
	}

	cfg := HistoryConfig{
		Journal:     v.GetString("journal"),
		JournalPath: v.GetString("journal-path"),
		PGDSN:       v.GetString("pg-dsn"),
		ChainID:     v.GetUint64("chain-id"),
		Limit:       v.GetInt("limit"),
		LogLevel:    v.GetString("log-level"),
	}
	switch cfg.Journal {
	case JournalJSONL:
	case JournalPostgres:
		if cfg.PGDSN == "" {
			return cfg, fmt.Errorf("pg-dsn is required for the postgres journal")
		}
	default:
		return cfg, fmt.Errorf("history reads the jsonl or postgres journal, got %q", cfg.Journal)
	}
	return cfg, nil
}
