package lp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/cronii/crikeyooo/internal/dex"
	"github.com/cronii/crikeyooo/internal/model"
	"github.com/cronii/crikeyooo/internal/storage"
	"github.com/cronii/crikeyooo/internal/submit"
	"github.com/cronii/crikeyooo/internal/usercmd"
)

// Journal statuses.
const (
	StatusSimulated = "simulated"
	StatusSuccess   = "success"
	StatusReverted  = "reverted"
	StatusFailed    = "failed"
)

// PriceSource reads a pool's live spot price.
type PriceSource interface {
	SpotPrice(ctx context.Context, pool dex.PoolKey) (float64, error)
}

// Executor simulates and submits dispatch calls.
type Executor interface {
	From() common.Address
	ChainID(ctx context.Context) (*big.Int, error)
	Simulate(ctx context.Context, req submit.Request) (submit.Prepared, error)
	Send(ctx context.Context, p submit.Prepared) (*types.Transaction, error)
	WaitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// Order describes one liquidity operation.
type Order struct {
	Proxy        usercmd.Proxy
	Code         usercmd.Code
	Pool         dex.PoolKey
	BidTick      int32
	AskTick      int32
	Amount       *big.Int
	Slippage     float64
	NoLimits     bool
	ReserveFlags uint8
	LPConduit    common.Address
	Value        *big.Int
	GasLimit     uint64
	DryRun       bool
}

// Result reports what Execute built and, unless dry run, what was mined.
type Result struct {
	Variant  usercmd.Variant
	Command  usercmd.Command
	Payload  []byte
	Calldata []byte
	Prepared submit.Prepared
	Tx       *types.Transaction
	Receipt  *types.Receipt
	Record   model.CommandRecord
}

// Service runs liquidity orders against one dex deployment.
type Service struct {
	dex     common.Address
	prices  PriceSource
	exec    Executor
	journal storage.Journal
	logger  *zap.Logger
	now     func() time.Time
}

// NewService wires the workflow. A nil journal discards records.
func NewService(dexAddress common.Address, prices PriceSource, exec Executor, journal storage.Journal, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if journal == nil {
		journal = storage.Discard{}
	}
	return &Service{
		dex:     dexAddress,
		prices:  prices,
		exec:    exec,
		journal: journal,
		logger:  logger,
		now:     time.Now,
	}
}

// BuildCommand turns an order into a validated dispatch command.
func (s *Service) BuildCommand(ctx context.Context, order Order) (usercmd.Variant, usercmd.Command, error) {
	proxy := order.Proxy
	if proxy == 0 {
		proxy = usercmd.ProxyLiquidity
	}
	variant, err := usercmd.Lookup(proxy, order.Code)
	if err != nil {
		return usercmd.Variant{}, usercmd.Command{}, err
	}

	lower := new(big.Int).Set(usercmd.NoLimitLower)
	upper := new(big.Int).Set(usercmd.NoLimitUpper)
	if !order.NoLimits {
		spot, err := s.prices.SpotPrice(ctx, order.Pool)
		if err != nil {
			return variant, usercmd.Command{}, fmt.Errorf("spot price: %w", err)
		}
		lower, upper, err = usercmd.SlippageBounds(spot, order.Slippage)
		if err != nil {
			return variant, usercmd.Command{}, err
		}
		s.logger.Debug("slippage limits",
			zap.Float64("spot", spot),
			zap.Float64("tolerance", order.Slippage),
			zap.String("lower", lower.String()),
			zap.String("upper", upper.String()),
		)
	}

	amount := order.Amount
	if amount == nil {
		amount = new(big.Int)
	}
	poolIdx := order.Pool.PoolIdx
	if poolIdx == nil {
		poolIdx = new(big.Int)
	}

	cmd := usercmd.Command{
		Code:         order.Code,
		Base:         order.Pool.Base,
		Quote:        order.Pool.Quote,
		PoolIdx:      poolIdx,
		Liquidity:    amount,
		LimitLower:   lower,
		LimitHigher:  upper,
		ReserveFlags: order.ReserveFlags,
		LPConduit:    order.LPConduit,
	}
	if variant.TicksMeaningful() {
		cmd.BidTick = order.BidTick
		cmd.AskTick = order.AskTick
	}
	if err := usercmd.Validate(proxy, cmd); err != nil {
		return variant, cmd, err
	}
	return variant, cmd, nil
}

// NativeValue returns the value to attach: the explicit order value, or the
// base amount when minting a native-base pool in base terms.
func NativeValue(order Order, variant usercmd.Variant, cmd usercmd.Command) *big.Int {
	if order.Value != nil {
		return new(big.Int).Set(order.Value)
	}
	if cmd.IsNativeBase() && variant.Action == usercmd.ActionMint && variant.Denom == usercmd.DenomBase {
		return new(big.Int).Set(cmd.Liquidity)
	}
	return new(big.Int)
}

// Execute builds, simulates and, unless the order is a dry run, submits it.
// Every attempt that reaches simulation is journaled.
func (s *Service) Execute(ctx context.Context, order Order) (Result, error) {
	variant, cmd, err := s.BuildCommand(ctx, order)
	if err != nil {
		return Result{}, err
	}
	proxy := variant.Proxy

	payload, calldata, err := dex.BuildUserCmd(proxy, cmd)
	if err != nil {
		return Result{}, err
	}
	result := Result{Variant: variant, Command: cmd, Payload: payload, Calldata: calldata}

	chainID, err := s.exec.ChainID(ctx)
	if err != nil {
		return result, fmt.Errorf("chain id: %w", err)
	}
	record, err := s.newRecord(chainID, variant, cmd, payload, order.DryRun)
	if err != nil {
		return result, err
	}

	value := NativeValue(order, variant, cmd)
	record.Value = value.String()

	logger := s.logger.With(
		zap.String("variant", variant.Name),
		zap.String("payload_hash", record.PayloadHash),
		zap.String("value", record.Value),
	)

	prepared, err := s.exec.Simulate(ctx, submit.Request{To: s.dex, Data: calldata, Value: value, GasLimit: order.GasLimit})
	if err != nil {
		record.Status = StatusFailed
		record.Error = err.Error()
		result.Record = record
		return result, s.finish(ctx, record, err)
	}
	result.Prepared = prepared
	record.Gas = prepared.Gas

	if order.DryRun {
		record.Status = StatusSimulated
		result.Record = record
		logger.Info("dry run simulated", zap.Uint64("gas", prepared.Gas))
		return result, s.finish(ctx, record, nil)
	}

	tx, err := s.exec.Send(ctx, prepared)
	if err != nil {
		record.Status = StatusFailed
		record.Error = err.Error()
		result.Record = record
		return result, s.finish(ctx, record, err)
	}
	result.Tx = tx
	record.TxHash = tx.Hash().Hex()
	logger.Info("command submitted", zap.String("tx", record.TxHash))

	receipt, err := s.exec.WaitReceipt(ctx, tx.Hash())
	result.Receipt = receipt
	if receipt != nil && receipt.BlockNumber != nil {
		record.BlockNumber = receipt.BlockNumber.Uint64()
	}
	switch {
	case err == nil:
		record.Status = StatusSuccess
		record.Gas = receipt.GasUsed
	case errors.Is(err, submit.ErrReverted):
		record.Status = StatusReverted
		record.Error = err.Error()
	default:
		record.Status = StatusFailed
		record.Error = err.Error()
	}
	result.Record = record
	return result, s.finish(ctx, record, err)
}

func (s *Service) newRecord(chainID *big.Int, variant usercmd.Variant, cmd usercmd.Command, payload []byte, dryRun bool) (model.CommandRecord, error) {
	encoded, err := json.Marshal(cmd)
	if err != nil {
		return model.CommandRecord{}, fmt.Errorf("marshal command: %w", err)
	}
	return model.CommandRecord{
		ChainID:     chainID.Uint64(),
		Dex:         s.dex.Hex(),
		Sender:      s.exec.From().Hex(),
		Proxy:       uint16(variant.Proxy),
		Code:        uint8(variant.Code),
		Variant:     variant.Name,
		Command:     encoded,
		Payload:     hexutil.Encode(payload),
		PayloadHash: crypto.Keccak256Hash(payload).Hex(),
		DryRun:      dryRun,
		CreatedAt:   s.now().UTC().Format(time.RFC3339),
	}, nil
}

// finish journals record and returns cause, or the journal error when
// cause is nil.
func (s *Service) finish(ctx context.Context, record model.CommandRecord, cause error) error {
	if err := s.journal.PutCommandRecords(ctx, []model.CommandRecord{record}); err != nil {
		s.logger.Warn("journal write failed", zap.String("payload_hash", record.PayloadHash), zap.Error(err))
		if cause == nil {
			return fmt.Errorf("journal: %w", err)
		}
	}
	return cause
}

var _ PriceSource = (*dex.Reader)(nil)
var _ Executor = (*submit.Submitter)(nil)
