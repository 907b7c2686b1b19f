package submit

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/cronii/crikeyooo/internal/chain"
)

// gasHeadroom pads estimates by 20 percent.
const (
	gasHeadroomNum = 12
	gasHeadroomDen = 10
)

// Backend is the chain surface needed to simulate, sign and broadcast.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Request is an unsigned contract call.
type Request struct {
	To       common.Address
	Data     []byte
	Value    *big.Int
	GasLimit uint64
}

// Prepared is a simulated call ready to be signed.
type Prepared struct {
	From   common.Address
	To     common.Address
	Data   []byte
	Value  *big.Int
	Gas    uint64
	Result []byte
}

// Options tunes receipt polling.
type Options struct {
	PollInterval   time.Duration
	ReceiptTimeout time.Duration
}

// Submitter simulates, signs and broadcasts transactions for one signer.
type Submitter struct {
	backend Backend
	signer  *Signer
	opts    Options
	logger  *zap.Logger
}

// New builds a Submitter. Zero options fall back to 2s polling and a 3m timeout.
func New(backend Backend, signer *Signer, opts Options, logger *zap.Logger) *Submitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.ReceiptTimeout <= 0 {
		opts.ReceiptTimeout = 3 * time.Minute
	}
	return &Submitter{backend: backend, signer: signer, opts: opts, logger: logger}
}

// From returns the signing account.
func (s *Submitter) From() common.Address {
	return s.signer.Address()
}

// ChainID returns the backend's chain id.
func (s *Submitter) ChainID(ctx context.Context) (*big.Int, error) {
	return s.backend.ChainID(ctx)
}

// Simulate runs req as eth_call and estimates its gas.
func (s *Submitter) Simulate(ctx context.Context, req Request) (Prepared, error) {
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}
	to := req.To
	msg := ethereum.CallMsg{
		From:  s.signer.Address(),
		To:    &to,
		Value: value,
		Data:  req.Data,
	}

	result, err := s.backend.CallContract(ctx, msg, nil)
	if err != nil {
		return Prepared{}, newSimulationError("call", err)
	}

	gas := req.GasLimit
	if gas == 0 {
		estimate, err := s.backend.EstimateGas(ctx, msg)
		if err != nil {
			return Prepared{}, newSimulationError("estimate gas", err)
		}
		gas = estimate * gasHeadroomNum / gasHeadroomDen
	}

	s.logger.Debug("simulated call",
		zap.String("to", to.Hex()),
		zap.String("value", value.String()),
		zap.Uint64("gas", gas),
	)

	return Prepared{
		From:   msg.From,
		To:     to,
		Data:   req.Data,
		Value:  value,
		Gas:    gas,
		Result: result,
	}, nil
}

// Send signs p and broadcasts it.
func (s *Submitter) Send(ctx context.Context, p Prepared) (*types.Transaction, error) {
	chainID, err := s.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}
	nonce, err := s.backend.PendingNonceAt(ctx, s.signer.Address())
	if err != nil {
		return nil, fmt.Errorf("pending nonce: %w", err)
	}
	header, err := s.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("latest header: %w", err)
	}

	to := p.To
	var txData types.TxData
	if header.BaseFee != nil {
		tip, err := s.backend.SuggestGasTipCap(ctx)
		if err != nil {
			return nil, fmt.Errorf("suggest gas tip: %w", err)
		}
		feeCap := new(big.Int).Add(new(big.Int).Mul(header.BaseFee, big.NewInt(2)), tip)
		txData = &types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonce,
			GasTipCap: tip,
			GasFeeCap: feeCap,
			Gas:       p.Gas,
			To:        &to,
			Value:     p.Value,
			Data:      p.Data,
		}
	} else {
		gasPrice, err := s.backend.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("suggest gas price: %w", err)
		}
		txData = &types.LegacyTx{
			Nonce:    nonce,
			GasPrice: gasPrice,
			Gas:      p.Gas,
			To:       &to,
			Value:    p.Value,
			Data:     p.Data,
		}
	}

	tx, err := types.SignTx(types.NewTx(txData), types.NewLondonSigner(chainID), s.signer.key)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	if err := s.backend.SendTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("send transaction: %w", err)
	}

	s.logger.Info("transaction sent",
		zap.String("tx", tx.Hash().Hex()),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas", p.Gas),
	)
	return tx, nil
}

// WaitReceipt polls until hash is mined or the receipt timeout passes.
// A mined transaction with failed status returns its receipt and ErrReverted.
func (s *Submitter) WaitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, s.opts.ReceiptTimeout)
	defer cancel()

	receipt, err := retry.DoWithData(func() (*types.Receipt, error) {
		return s.backend.TransactionReceipt(waitCtx, hash)
	},
		retry.Attempts(0),
		retry.Delay(s.opts.PollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.Context(waitCtx),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Debug("receipt not ready", zap.String("tx", hash.Hex()), zap.Uint("attempt", n), zap.Error(err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("wait receipt %s: %w", hash.Hex(), err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: %s in block %d", ErrReverted, hash.Hex(), receipt.BlockNumber)
	}
	s.logger.Info("transaction mined",
		zap.String("tx", hash.Hex()),
		zap.Uint64("gas_used", receipt.GasUsed),
		zap.String("block", receipt.BlockNumber.String()),
	)
	return receipt, nil
}

var _ Backend = (*chain.Client)(nil)
