package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cronii/crikeyooo/internal/chain"
	"github.com/cronii/crikeyooo/internal/config"
	"github.com/cronii/crikeyooo/internal/dex"
	"github.com/cronii/crikeyooo/internal/usercmd"
)

func addNetworkFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "JSON-RPC URL")
	cmd.Flags().String("dex", config.DefaultDex, "dex dispatch contract address")
	cmd.Flags().String("query", config.DefaultQuery, "dex query contract address")
	cmd.Flags().Uint64("pool-idx", config.DefaultPoolIdx, "pool type index")
	cmd.Flags().Int("workers", 8, "concurrent RPC queries")
}

type queryEnv struct {
	cfg    config.QueryConfig
	logger *zap.Logger
	client *chain.Client
	reader *dex.Reader
}

func (e *queryEnv) Close() {
	e.client.Close()
	_ = e.logger.Sync()
}

func openQuery(ctx context.Context, cmd *cobra.Command) (*queryEnv, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuery(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	query, err := dex.ParseAddress(cfg.Network.Query)
	if err != nil {
		return nil, fmt.Errorf("query address: %w", err)
	}

	client, err := chain.NewClient(ctx, cfg.Network.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}

	return &queryEnv{
		cfg:    cfg,
		logger: logger,
		client: client,
		reader: dex.NewReader(client, query, cfg.Network.Workers, logger),
	}, nil
}

func newBalancesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balances",
		Short: "Show native and token balances for accounts",
		RunE:  runBalances,
	}
	addNetworkFlags(cmd)
	cmd.Flags().StringSlice("account", nil, "accounts to read (comma-separated)")
	cmd.Flags().StringSlice("token", nil, "tokens to read besides the native coin (comma-separated)")
	return cmd
}

func runBalances(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := openQuery(ctx, cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	accounts, err := dex.ParseAddresses(env.cfg.Accounts)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		return fmt.Errorf("at least one account is required")
	}
	tokens, err := dex.ParseAddresses(env.cfg.Tokens)
	if err != nil {
		return err
	}
	tokens = append([]common.Address{usercmd.NativeAsset}, tokens...)

	for _, account := range accounts {
		for _, token := range tokens {
			balance, err := env.reader.Balance(ctx, token, account)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), balance); err != nil {
				return err
			}
		}
	}
	return nil
}

func newPoolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Show spot price, tick and liquidity for pools",
		RunE:  runPool,
	}
	addNetworkFlags(cmd)
	cmd.Flags().String("base", "eth", "token paired with every --token")
	cmd.Flags().StringSlice("token", nil, "tokens to scout against --base (comma-separated)")
	return cmd
}

func runPool(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := openQuery(ctx, cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	baseInput, _ := cmd.Flags().GetString("base")
	base, err := dex.ParseAddress(baseInput)
	if err != nil {
		return err
	}
	tokens, err := dex.ParseAddresses(env.cfg.Tokens)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		return fmt.Errorf("at least one token is required")
	}

	for _, token := range tokens {
		pool, _, err := dex.NewPoolKey(base, token, env.cfg.Network.PoolIdx)
		if err != nil {
			return err
		}
		price, err := env.reader.PoolPrice(ctx, pool)
		if err != nil {
			env.logger.Warn("pool query failed", zap.String("token", token.Hex()), zap.Error(err))
			continue
		}
		if err := printJSON(cmd.OutOrStdout(), price); err != nil {
			return err
		}
	}
	return nil
}

func newPositionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "position",
		Short: "Show ambient or range positions for owners",
		RunE:  runPosition,
	}
	addNetworkFlags(cmd)
	cmd.Flags().StringSlice("account", nil, "position owners, e.g. a wallet and its LP conduit (comma-separated)")
	cmd.Flags().String("base", "eth", "base token address")
	cmd.Flags().String("quote", "", "quote token address")
	cmd.Flags().Bool("range", false, "query a range position between --bid-tick and --ask-tick")
	cmd.Flags().Int32("bid-tick", 0, "lower tick")
	cmd.Flags().Int32("ask-tick", 0, "upper tick")
	return cmd
}

func runPosition(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := openQuery(ctx, cmd)
	if err != nil {
		return err
	}
	defer env.Close()

	owners, err := dex.ParseAddresses(env.cfg.Accounts)
	if err != nil {
		return err
	}
	if len(owners) == 0 {
		return fmt.Errorf("at least one account is required")
	}
	pool, err := poolFromFlags(cmd, env.cfg.Network.PoolIdx)
	if err != nil {
		return err
	}

	shape := usercmd.ShapeAmbient
	if isRange, _ := cmd.Flags().GetBool("range"); isRange {
		shape = usercmd.ShapeRange
	}
	bidTick, _ := cmd.Flags().GetInt32("bid-tick")
	askTick, _ := cmd.Flags().GetInt32("ask-tick")

	queries := make([]dex.PositionQuery, 0, len(owners))
	for _, owner := range owners {
		queries = append(queries, dex.PositionQuery{Owner: owner, Pool: pool, Shape: shape, BidTick: bidTick, AskTick: askTick})
	}

	positions, err := env.reader.Positions(ctx, queries)
	if err != nil {
		return err
	}
	for _, position := range positions {
		if err := printJSON(cmd.OutOrStdout(), position); err != nil {
			return err
		}
	}
	return nil
}

func poolFromFlags(cmd *cobra.Command, poolIdx uint64) (dex.PoolKey, error) {
	baseInput, _ := cmd.Flags().GetString("base")
	base, err := dex.ParseAddress(baseInput)
	if err != nil {
		return dex.PoolKey{}, err
	}
	quoteInput, _ := cmd.Flags().GetString("quote")
	quote, err := dex.ParseAddress(quoteInput)
	if err != nil {
		return dex.PoolKey{}, err
	}
	pool, flipped, err := dex.NewPoolKey(base, quote, poolIdx)
	if err != nil {
		return pool, err
	}
	if flipped {
		return pool, fmt.Errorf("%w: base %s must sort below quote %s", usercmd.ErrUnorderedPair, base.Hex(), quote.Hex())
	}
	return pool, nil
}
