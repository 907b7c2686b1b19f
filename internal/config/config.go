package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "CRIKEY"

// Goerli deployment used by the LP conduits.
const (
	DefaultDex     = "0xfAfcD1f5530827e7398B6D3C509f450b1b24a209"
	DefaultQuery   = "0x93a4baFDd49dB0e06f3F3f9FddC1A67792F47518"
	DefaultPoolIdx = 36000
)

// NetworkConfig holds the RPC endpoint and protocol contract addresses.
type NetworkConfig struct {
	RPCURL  string
	Dex     string
	Query   string
	PoolIdx uint64
	Workers int
}

// QueryConfig holds configuration for the read-only commands.
type QueryConfig struct {
	Network  NetworkConfig
	Accounts []string
	Tokens   []string
	Output   string
	LogLevel string
}

// LoadQuery merges config file, environment variables, and flags into QueryConfig.
func LoadQuery(cfgFile string, flags *pflag.FlagSet) (QueryConfig, error) {
	v, err := newViper(cfgFile, flags, nil)
	if err != nil {
		return QueryConfig{}, err
	}

	cfg := QueryConfig{
		Network:  loadNetwork(v),
		Accounts: getStringSlice(v, "account"),
		Tokens:   getStringSlice(v, "token"),
		Output:   v.GetString("output"),
		LogLevel: v.GetString("log-level"),
	}
	if cfg.Network.RPCURL == "" {
		return cfg, fmt.Errorf("rpc is required")
	}
	return cfg, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("dex", DefaultDex)
	v.SetDefault("query", DefaultQuery)
	v.SetDefault("pool-idx", uint64(DefaultPoolIdx))
	v.SetDefault("workers", 8)
	v.SetDefault("output", "text")
	v.SetDefault("log-level", "info")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func loadNetwork(v *viper.Viper) NetworkConfig {
	return NetworkConfig{
		RPCURL:  v.GetString("rpc"),
		Dex:     v.GetString("dex"),
		Query:   v.GetString("query"),
		PoolIdx: v.GetUint64("pool-idx"),
		Workers: v.GetInt("workers"),
	}
}

func getDuration(v *viper.Viper, key string, fallback time.Duration) time.Duration {
	d := v.GetDuration(key)
	if d <= 0 {
		return fallback
	}
	return d
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
