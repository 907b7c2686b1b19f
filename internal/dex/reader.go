package dex

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/cronii/crikeyooo/internal/chain"
	"github.com/cronii/crikeyooo/internal/model"
	"github.com/cronii/crikeyooo/internal/units"
	"github.com/cronii/crikeyooo/internal/usercmd"
)

const defaultReaderWorkers = 8

// PoolKey identifies a pool by its ordered pair and pool type index.
type PoolKey struct {
	Base    common.Address
	Quote   common.Address
	PoolIdx *big.Int
}

func (k PoolKey) poolIdx() *big.Int {
	if k.PoolIdx == nil {
		return new(big.Int)
	}
	return k.PoolIdx
}

// PositionQuery names one position to look up.
type PositionQuery struct {
	Owner   common.Address
	Pool    PoolKey
	Shape   usercmd.Shape
	BidTick int32
	AskTick int32
}

// Reader answers balance, metadata, price and position queries.
type Reader struct {
	caller  Caller
	query   common.Address
	cache   *TokenMetaCache
	workers int
	logger  *zap.Logger
}

// NewReader builds a Reader against the query contract at query.
func NewReader(caller Caller, query common.Address, workers int, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers <= 0 {
		workers = defaultReaderWorkers
	}
	return &Reader{
		caller:  caller,
		query:   query,
		cache:   NewTokenMetaCache(),
		workers: workers,
		logger:  logger,
	}
}

// NativeBalance returns the account's native coin balance.
func (r *Reader) NativeBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	balance, err := r.caller.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, fmt.Errorf("native balance %s: %w", account.Hex(), err)
	}
	return balance, nil
}

// TokenBalance returns the account's balance of token. The zero address
// reads the native balance.
func (r *Reader) TokenBalance(ctx context.Context, token, account common.Address) (*big.Int, error) {
	if token == usercmd.NativeAsset {
		return r.NativeBalance(ctx, account)
	}
	parsed, err := erc20ABIStringInstance()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	values, err := callMethod(ctx, r.caller, token, parsed, "balanceOf", account)
	if err != nil {
		return nil, fmt.Errorf("token %s: %w", token.Hex(), err)
	}
	return asBigInt(values[0])
}

// TokenMeta returns cached token metadata, fetching it on first use.
func (r *Reader) TokenMeta(ctx context.Context, token common.Address) (model.TokenMeta, error) {
	if meta, ok := r.cache.Get(token); ok {
		return meta, nil
	}
	meta, err := FetchTokenMeta(ctx, r.caller, token, r.logger)
	if err != nil {
		return meta, err
	}
	r.cache.Set(token, meta)
	return meta, nil
}

// Balance reads a balance and formats it with the token's decimals.
func (r *Reader) Balance(ctx context.Context, token, account common.Address) (model.Balance, error) {
	meta, err := r.TokenMeta(ctx, token)
	if err != nil {
		return model.Balance{}, err
	}
	raw, err := r.TokenBalance(ctx, token, account)
	if err != nil {
		return model.Balance{}, err
	}
	return model.Balance{
		Account:   account.Hex(),
		Token:     token.Hex(),
		Symbol:    meta.Symbol,
		Raw:       raw.String(),
		Formatted: units.Format(raw, meta.Decimals),
	}, nil
}

// SqrtPrice returns the pool's current Q64.64 square-root price.
func (r *Reader) SqrtPrice(ctx context.Context, pool PoolKey) (*big.Int, error) {
	parsed, err := QueryABI()
	if err != nil {
		return nil, fmt.Errorf("parse query abi: %w", err)
	}
	values, err := callMethod(ctx, r.caller, r.query, parsed, "queryPrice", pool.Base, pool.Quote, pool.poolIdx())
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// SpotPrice returns the pool's current price of base in quote, in raw units.
func (r *Reader) SpotPrice(ctx context.Context, pool PoolKey) (float64, error) {
	sqrtPrice, err := r.SqrtPrice(ctx, pool)
	if err != nil {
		return 0, err
	}
	if sqrtPrice.Sign() == 0 {
		return 0, fmt.Errorf("pool %s/%s/%s is not initialized", pool.Base.Hex(), pool.Quote.Hex(), pool.poolIdx())
	}
	return usercmd.DecodePrice(sqrtPrice), nil
}

// PoolPrice returns a full price snapshot for pool.
func (r *Reader) PoolPrice(ctx context.Context, pool PoolKey) (model.PoolPrice, error) {
	parsed, err := QueryABI()
	if err != nil {
		return model.PoolPrice{}, fmt.Errorf("parse query abi: %w", err)
	}

	sqrtPrice, err := r.SqrtPrice(ctx, pool)
	if err != nil {
		return model.PoolPrice{}, err
	}

	values, err := callMethod(ctx, r.caller, r.query, parsed, "queryCurveTick", pool.Base, pool.Quote, pool.poolIdx())
	if err != nil {
		return model.PoolPrice{}, err
	}
	tickBig, err := asBigInt(values[0])
	if err != nil {
		return model.PoolPrice{}, err
	}
	tick, err := int24FromBig(tickBig)
	if err != nil {
		return model.PoolPrice{}, err
	}

	values, err = callMethod(ctx, r.caller, r.query, parsed, "queryLiquidity", pool.Base, pool.Quote, pool.poolIdx())
	if err != nil {
		return model.PoolPrice{}, err
	}
	liquidity, err := asBigInt(values[0])
	if err != nil {
		return model.PoolPrice{}, err
	}

	baseMeta, err := r.TokenMeta(ctx, pool.Base)
	if err != nil {
		return model.PoolPrice{}, err
	}
	quoteMeta, err := r.TokenMeta(ctx, pool.Quote)
	if err != nil {
		return model.PoolPrice{}, err
	}

	spot := usercmd.DecodePrice(sqrtPrice)
	return model.PoolPrice{
		Base:         pool.Base.Hex(),
		Quote:        pool.Quote.Hex(),
		PoolIdx:      pool.poolIdx().String(),
		SqrtPriceX64: sqrtPrice.String(),
		SpotPrice:    spot,
		DisplayPrice: usercmd.DisplayFromSpot(spot, baseMeta.Decimals, quoteMeta.Decimals),
		Tick:         tick,
		Liquidity:    liquidity.String(),
	}, nil
}

// AmbientPosition returns owner's ambient liquidity in pool.
func (r *Reader) AmbientPosition(ctx context.Context, owner common.Address, pool PoolKey) (model.Position, error) {
	parsed, err := QueryABI()
	if err != nil {
		return model.Position{}, fmt.Errorf("parse query abi: %w", err)
	}
	values, err := callMethod(ctx, r.caller, r.query, parsed, "queryAmbientTokens", owner, pool.Base, pool.Quote, pool.poolIdx())
	if err != nil {
		return model.Position{}, err
	}
	return buildPosition(owner, pool, usercmd.ShapeAmbient, 0, 0, values)
}

// RangePosition returns owner's concentrated liquidity between bid and ask.
func (r *Reader) RangePosition(ctx context.Context, owner common.Address, pool PoolKey, bidTick, askTick int32) (model.Position, error) {
	if bidTick >= askTick {
		return model.Position{}, fmt.Errorf("bid tick %d must be below ask tick %d: %w", bidTick, askTick, usercmd.ErrInvertedTicks)
	}
	parsed, err := QueryABI()
	if err != nil {
		return model.Position{}, fmt.Errorf("parse query abi: %w", err)
	}
	values, err := callMethod(ctx, r.caller, r.query, parsed, "queryRangeTokens",
		owner, pool.Base, pool.Quote, pool.poolIdx(), big.NewInt(int64(bidTick)), big.NewInt(int64(askTick)))
	if err != nil {
		return model.Position{}, err
	}
	return buildPosition(owner, pool, usercmd.ShapeRange, bidTick, askTick, values)
}

// Positions runs queries concurrently and returns results in query order.
func (r *Reader) Positions(ctx context.Context, queries []PositionQuery) ([]model.Position, error) {
	if len(queries) == 0 {
		return nil, nil
	}
	pool, err := ants.NewPool(r.workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	results := make([]model.Position, len(queries))
	errs := make([]error, len(queries))
	wg := &sync.WaitGroup{}
	for i := range queries {
		i := i
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			q := queries[i]
			if q.Shape == usercmd.ShapeRange {
				results[i], errs[i] = r.RangePosition(ctx, q.Owner, q.Pool, q.BidTick, q.AskTick)
			} else {
				results[i], errs[i] = r.AmbientPosition(ctx, q.Owner, q.Pool)
			}
		})
		if err != nil {
			wg.Done()
			errs[i] = fmt.Errorf("submit position query: %w", err)
		}
	}
	r.logger.Debug("wait position queries", zap.Int("queries", len(queries)), zap.Int("waiting", pool.Waiting()))
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("position %s: %w", queries[i].Owner.Hex(), err)
		}
	}
	return results, nil
}

func buildPosition(owner common.Address, pool PoolKey, shape usercmd.Shape, bidTick, askTick int32, values []interface{}) (model.Position, error) {
	if len(values) != 3 {
		return model.Position{}, fmt.Errorf("unexpected position values: %d", len(values))
	}
	amounts := make([]*big.Int, 3)
	for i, v := range values {
		amount, err := asBigInt(v)
		if err != nil {
			return model.Position{}, err
		}
		amounts[i] = amount
	}
	return model.Position{
		Owner:    owner.Hex(),
		Base:     pool.Base.Hex(),
		Quote:    pool.Quote.Hex(),
		PoolIdx:  pool.poolIdx().String(),
		Shape:    shape.String(),
		BidTick:  bidTick,
		AskTick:  askTick,
		Liq:      amounts[0].String(),
		BaseQty:  amounts[1].String(),
		QuoteQty: amounts[2].String(),
	}, nil
}

var _ Caller = (*chain.Client)(nil)
