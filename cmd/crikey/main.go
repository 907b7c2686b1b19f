package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "crikey",
		Short:        "CrocSwap liquidity command toolkit",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		newEncodeCmd(),
		newDecodeCmd(),
		newVariantsCmd(),
		newPriceCmd(),
		newBalancesCmd(),
		newPoolCmd(),
		newPositionCmd(),
		newHistoryCmd(),
		newLPCmd("mint-ambient", "Mint ambient liquidity", "mint", "ambient", "quote"),
		newLPCmd("mint-range", "Mint concentrated liquidity", "mint", "range", "base"),
		newLPCmd("burn-ambient", "Burn ambient liquidity", "burn", "ambient", "liq"),
		newLPCmd("burn-range", "Burn concentrated liquidity", "burn", "range", "liq"),
		newHarvestCmd(),
	)
	return root
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
