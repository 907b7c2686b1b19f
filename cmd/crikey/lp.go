package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cronii/crikeyooo/internal/chain"
	"github.com/cronii/crikeyooo/internal/config"
	"github.com/cronii/crikeyooo/internal/dex"
	"github.com/cronii/crikeyooo/internal/lp"
	"github.com/cronii/crikeyooo/internal/storage"
	"github.com/cronii/crikeyooo/internal/storage/postgres"
	"github.com/cronii/crikeyooo/internal/submit"
	"github.com/cronii/crikeyooo/internal/units"
	"github.com/cronii/crikeyooo/internal/usercmd"
)

// liqDecimals scales human liquidity amounts the way ether amounts are scaled.
const liqDecimals = 18

func addLPFlags(cmd *cobra.Command) {
	addNetworkFlags(cmd)
	cmd.Flags().String("base", "eth", "base token address")
	cmd.Flags().String("quote", "", "quote token address")
	cmd.Flags().String("amount", "", "amount in whole units, so 1 means one token (see --raw)")
	cmd.Flags().String("value", "", "native value to attach in ether (defaults to the amount for native-base mints in base)")
	cmd.Flags().Bool("raw", false, "read --amount and --value as integer raw units (wei)")
	cmd.Flags().Float64("slippage", 0.01, "relative slippage tolerance for price limits")
	cmd.Flags().Bool("no-limits", false, "use the full price range instead of slippage limits")
	cmd.Flags().String("conduit", "", "LP conduit address (empty for none)")
	cmd.Flags().Uint8("reserve-flags", 0, "surplus collateral flags (1 base, 2 quote)")
	cmd.Flags().Uint64("gas-limit", 0, "gas limit (0 estimates)")
	cmd.Flags().Bool("dry-run", false, "simulate only")
	cmd.Flags().Duration("receipt-timeout", 0, "maximum wait for the receipt")
	cmd.Flags().Duration("poll-interval", 0, "receipt polling interval")
	cmd.Flags().String("journal", config.JournalJSONL, "command journal (none, jsonl, postgres)")
	cmd.Flags().String("journal-path", "./data/user_cmds.jsonl", "JSONL journal path")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN for the postgres journal")
}

func newLPCmd(use, short, action, shape, defaultDenom string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			denom, _ := cmd.Flags().GetString("denom")
			denom = strings.ToLower(strings.TrimSpace(denom))
			if denom == "liquidity" {
				denom = "liq"
			}
			variant, err := usercmd.LookupName(fmt.Sprintf("%s-%s-%s", action, shape, denom))
			if err != nil {
				return err
			}
			return runLP(cmd, variant)
		},
	}
	addLPFlags(cmd)
	cmd.Flags().String("denom", defaultDenom, "amount denomination (liq, base, quote)")
	if shape == "range" {
		cmd.Flags().Int32("bid-tick", 0, "lower tick")
		cmd.Flags().Int32("ask-tick", 0, "upper tick")
	}
	return cmd
}

func newHarvestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvest-range",
		Short: "Harvest accumulated rewards from a range position",
		RunE: func(cmd *cobra.Command, _ []string) error {
			variant, err := usercmd.Lookup(usercmd.ProxyLiquidity, usercmd.CodeHarvestRange)
			if err != nil {
				return err
			}
			return runLP(cmd, variant)
		},
	}
	addLPFlags(cmd)
	cmd.Flags().Int32("bid-tick", 0, "lower tick")
	cmd.Flags().Int32("ask-tick", 0, "upper tick")
	return cmd
}

func runLP(cmd *cobra.Command, variant usercmd.Variant) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadLP(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	dexAddress, err := dex.ParseAddress(cfg.Network.Dex)
	if err != nil {
		return fmt.Errorf("dex address: %w", err)
	}
	queryAddress, err := dex.ParseAddress(cfg.Network.Query)
	if err != nil {
		return fmt.Errorf("query address: %w", err)
	}
	signer, err := submit.NewSigner(cfg.PrivateKey)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.Network.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	journal, closeJournal, err := openJournal(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeJournal()

	reader := dex.NewReader(chainClient, queryAddress, cfg.Network.Workers, logger)
	submitter := submit.New(chainClient, signer, submit.Options{
		PollInterval:   cfg.PollInterval,
		ReceiptTimeout: cfg.ReceiptTimeout,
	}, logger)
	service := lp.NewService(dexAddress, reader, submitter, journal, logger)

	order, err := orderFromFlags(ctx, cmd, reader, variant, cfg)
	if err != nil {
		return err
	}

	logger.Info("lp command start",
		zap.String("variant", variant.Name),
		zap.String("sender", signer.Address().Hex()),
		zap.String("base", order.Pool.Base.Hex()),
		zap.String("quote", order.Pool.Quote.Hex()),
		zap.String("amount", order.Amount.String()),
		zap.Bool("dry_run", order.DryRun),
	)

	result, err := service.Execute(ctx, order)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), map[string]interface{}{
		"record":   result.Record,
		"calldata": hexutil.Encode(result.Calldata),
	})
}

func orderFromFlags(ctx context.Context, cmd *cobra.Command, reader *dex.Reader, variant usercmd.Variant, cfg config.LPConfig) (lp.Order, error) {
	flags := cmd.Flags()
	pool, err := poolFromFlags(cmd, cfg.Network.PoolIdx)
	if err != nil {
		return lp.Order{}, err
	}

	raw, _ := flags.GetBool("raw")
	amount := new(big.Int)
	if variant.LiquidityMeaningful() {
		amountInput, _ := flags.GetString("amount")
		if amountInput == "" {
			return lp.Order{}, fmt.Errorf("amount is required for %s", variant.Name)
		}
		decimals := uint8(liqDecimals)
		switch variant.Denom {
		case usercmd.DenomBase, usercmd.DenomQuote:
			token := pool.Base
			if variant.Denom == usercmd.DenomQuote {
				token = pool.Quote
			}
			meta, err := reader.TokenMeta(ctx, token)
			if err != nil {
				return lp.Order{}, err
			}
			decimals = meta.Decimals
		}
		if amount, err = units.ParseAmount(amountInput, decimals, raw); err != nil {
			return lp.Order{}, err
		}
	}

	var value *big.Int
	if valueInput, _ := flags.GetString("value"); valueInput != "" {
		if value, err = units.ParseAmount(valueInput, 18, raw); err != nil {
			return lp.Order{}, fmt.Errorf("value: %w", err)
		}
	}

	conduit := usercmd.NativeAsset
	if conduitInput, _ := flags.GetString("conduit"); conduitInput != "" {
		if conduit, err = dex.ParseAddress(conduitInput); err != nil {
			return lp.Order{}, err
		}
	}

	order := lp.Order{
		Proxy:     variant.Proxy,
		Code:      variant.Code,
		Pool:      pool,
		Amount:    amount,
		Slippage:  cfg.Slippage,
		LPConduit: conduit,
		Value:     value,
		GasLimit:  cfg.GasLimit,
		DryRun:    cfg.DryRun,
	}
	order.NoLimits, _ = flags.GetBool("no-limits")
	order.ReserveFlags, _ = flags.GetUint8("reserve-flags")
	if variant.TicksMeaningful() {
		order.BidTick, _ = flags.GetInt32("bid-tick")
		order.AskTick, _ = flags.GetInt32("ask-tick")
	}
	return order, nil
}

func openJournal(ctx context.Context, cfg config.LPConfig) (storage.Journal, func(), error) {
	switch cfg.Journal {
	case config.JournalPostgres:
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, nil, err
		}
		return store, store.Close, nil
	case config.JournalJSONL:
		return storage.NewJsonlJournal(cfg.JournalPath), func() {}, nil
	default:
		return storage.Discard{}, func() {}, nil
	}
}
