package lp

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/cronii/crikeyooo/internal/dex"
	"github.com/cronii/crikeyooo/internal/model"
	"github.com/cronii/crikeyooo/internal/submit"
	"github.com/cronii/crikeyooo/internal/usercmd"
)

var (
	testDex     = common.HexToAddress("0xfAfcD1f5530827e7398B6D3C509f450b1b24a209")
	testToken   = common.HexToAddress("0xa6024a169c2fc6bfd0feabee150b86d268aaf4ce")
	testConduit = common.HexToAddress("0xd97D770755C7f8ea1cbD6EA2D0C1A1EF3264e277")
	testSender  = common.HexToAddress("0x1111111111111111111111111111111111111111")
)

type fixedPrice struct {
	spot  float64
	err   error
	calls int
}

func (p *fixedPrice) SpotPrice(context.Context, dex.PoolKey) (float64, error) {
	p.calls++
	return p.spot, p.err
}

type fakeExecutor struct {
	simErr   error
	waitErr  error
	requests []submit.Request
	sent     int
}

func (f *fakeExecutor) From() common.Address { return testSender }

func (f *fakeExecutor) ChainID(context.Context) (*big.Int, error) { return big.NewInt(5), nil }

func (f *fakeExecutor) Simulate(_ context.Context, req submit.Request) (submit.Prepared, error) {
	f.requests = append(f.requests, req)
	if f.simErr != nil {
		return submit.Prepared{}, f.simErr
	}
	return submit.Prepared{From: testSender, To: req.To, Data: req.Data, Value: req.Value, Gas: 250000}, nil
}

func (f *fakeExecutor) Send(_ context.Context, p submit.Prepared) (*types.Transaction, error) {
	f.sent++
	to := p.To
	return types.NewTx(&types.LegacyTx{Nonce: 1, To: &to, Value: p.Value, Gas: p.Gas, GasPrice: big.NewInt(1), Data: p.Data}), nil
}

func (f *fakeExecutor) WaitReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	receipt := &types.Receipt{TxHash: hash, Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(42), GasUsed: 180000}
	if f.waitErr != nil {
		receipt.Status = types.ReceiptStatusFailed
	}
	return receipt, f.waitErr
}

type memoryJournal struct {
	records []model.CommandRecord
	err     error
}

func (m *memoryJournal) PutCommandRecords(_ context.Context, records []model.CommandRecord) error {
	m.records = append(m.records, records...)
	return m.err
}

func nativePool() dex.PoolKey {
	return dex.PoolKey{Base: usercmd.NativeAsset, Quote: testToken, PoolIdx: big.NewInt(36000)}
}

func newTestService(prices PriceSource, exec Executor, journal *memoryJournal) *Service {
	svc := NewService(testDex, prices, exec, journal, nil)
	svc.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return svc
}

func TestExecuteMintRangeBaseDefaultsNativeValue(t *testing.T) {
	prices := &fixedPrice{spot: 2000}
	exec := &fakeExecutor{}
	journal := &memoryJournal{}
	svc := newTestService(prices, exec, journal)

	liq := big.NewInt(20000000000000000)
	result, err := svc.Execute(context.Background(), Order{
		Code:      usercmd.CodeMintRangeBase,
		Pool:      nativePool(),
		BidTick:   -640000,
		AskTick:   80000,
		Amount:    liq,
		Slippage:  0.01,
		LPConduit: testConduit,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if len(exec.requests) != 1 || exec.requests[0].Value.Cmp(liq) != 0 {
		t.Fatalf("native value should default to the base amount")
	}
	if exec.requests[0].To != testDex {
		t.Fatalf("call target = %s", exec.requests[0].To.Hex())
	}
	if exec.sent != 1 {
		t.Fatalf("sent = %d", exec.sent)
	}

	decoded, err := usercmd.Decode(usercmd.ProxyLiquidity, result.Payload)
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if decoded.BidTick != -640000 || decoded.AskTick != 80000 || decoded.LPConduit != testConduit {
		t.Fatalf("unexpected decoded command: %+v", decoded)
	}
	spot, _ := usercmd.EncodePrice(2000)
	if decoded.LimitLower.Cmp(spot) >= 0 || decoded.LimitHigher.Cmp(spot) <= 0 {
		t.Fatalf("limits %s..%s do not bracket spot", decoded.LimitLower, decoded.LimitHigher)
	}

	if len(journal.records) != 1 {
		t.Fatalf("journal records = %d", len(journal.records))
	}
	record := journal.records[0]
	if record.Status != StatusSuccess || record.BlockNumber != 42 || record.Gas != 180000 {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.Variant != "mint-range-base" || record.ChainID != 5 || record.CreatedAt != "2024-01-01T00:00:00Z" {
		t.Fatalf("unexpected record metadata: %+v", record)
	}
	if record.TxHash != result.Tx.Hash().Hex() {
		t.Fatalf("record tx hash mismatch")
	}
}

func TestExecuteBurnAmbientDryRun(t *testing.T) {
	prices := &fixedPrice{spot: 2000}
	exec := &fakeExecutor{}
	journal := &memoryJournal{}
	svc := newTestService(prices, exec, journal)

	result, err := svc.Execute(context.Background(), Order{
		Code:     usercmd.CodeBurnAmbientLiq,
		Pool:     nativePool(),
		BidTick:  -10,
		AskTick:  10,
		Amount:   big.NewInt(1000),
		NoLimits: true,
		DryRun:   true,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if prices.calls != 0 {
		t.Fatalf("no-limit orders must not read the spot price")
	}
	if exec.sent != 0 {
		t.Fatalf("dry run must not send")
	}
	if exec.requests[0].Value.Sign() != 0 {
		t.Fatalf("burns carry no native value")
	}
	if result.Command.BidTick != 0 || result.Command.AskTick != 0 {
		t.Fatalf("ambient ticks must be zeroed")
	}
	if result.Command.LimitHigher.Cmp(usercmd.NoLimitUpper) != 0 {
		t.Fatalf("no-limit upper bound = %s", result.Command.LimitHigher)
	}
	if len(journal.records) != 1 || journal.records[0].Status != StatusSimulated || !journal.records[0].DryRun {
		t.Fatalf("unexpected journal: %+v", journal.records)
	}
}

func TestExecuteSimulationFailureIsJournaled(t *testing.T) {
	simErr := &submit.SimulationError{Stage: "call", Reason: "K", Err: errors.New("execution reverted")}
	exec := &fakeExecutor{simErr: simErr}
	journal := &memoryJournal{}
	svc := newTestService(&fixedPrice{spot: 1}, exec, journal)

	_, err := svc.Execute(context.Background(), Order{
		Code:     usercmd.CodeMintAmbientQuote,
		Pool:     nativePool(),
		Amount:   big.NewInt(1),
		Slippage: 0.05,
		Value:    big.NewInt(100000000000000000),
	})
	var got *submit.SimulationError
	if !errors.As(err, &got) {
		t.Fatalf("expected SimulationError, got %v", err)
	}
	if exec.requests[0].Value.Cmp(big.NewInt(100000000000000000)) != 0 {
		t.Fatalf("explicit value must be kept")
	}
	if len(journal.records) != 1 || journal.records[0].Status != StatusFailed || journal.records[0].Error == "" {
		t.Fatalf("unexpected journal: %+v", journal.records)
	}
}

func TestExecuteRevertedReceipt(t *testing.T) {
	exec := &fakeExecutor{waitErr: submit.ErrReverted}
	journal := &memoryJournal{}
	svc := newTestService(&fixedPrice{spot: 2000}, exec, journal)

	result, err := svc.Execute(context.Background(), Order{
		Code:     usercmd.CodeBurnRangeLiq,
		Pool:     nativePool(),
		BidTick:  -640000,
		AskTick:  -320000,
		Amount:   big.NewInt(1000),
		Slippage: 0.01,
	})
	if !errors.Is(err, submit.ErrReverted) {
		t.Fatalf("expected ErrReverted, got %v", err)
	}
	if result.Record.Status != StatusReverted || result.Record.BlockNumber != 42 {
		t.Fatalf("unexpected record: %+v", result.Record)
	}
}

func TestBuildCommandRejectsInvalidOrders(t *testing.T) {
	svc := newTestService(&fixedPrice{spot: 2000}, &fakeExecutor{}, &memoryJournal{})

	if _, _, err := svc.BuildCommand(context.Background(), Order{Code: 99, Pool: nativePool(), NoLimits: true}); !errors.Is(err, usercmd.ErrUnknownVariant) {
		t.Fatalf("expected ErrUnknownVariant, got %v", err)
	}

	_, _, err := svc.BuildCommand(context.Background(), Order{Code: usercmd.CodeMintRangeLiq, Pool: nativePool(), BidTick: 10, AskTick: 10, NoLimits: true})
	if !errors.Is(err, usercmd.ErrInvertedTicks) {
		t.Fatalf("expected ErrInvertedTicks, got %v", err)
	}

	swapped := dex.PoolKey{Base: testToken, Quote: usercmd.NativeAsset, PoolIdx: big.NewInt(36000)}
	_, _, err = svc.BuildCommand(context.Background(), Order{Code: usercmd.CodeBurnAmbientLiq, Pool: swapped, NoLimits: true})
	if !errors.Is(err, usercmd.ErrUnorderedPair) {
		t.Fatalf("expected ErrUnorderedPair, got %v", err)
	}

	priceErr := &fixedPrice{err: errors.New("rpc down")}
	svc = newTestService(priceErr, &fakeExecutor{}, &memoryJournal{})
	if _, _, err := svc.BuildCommand(context.Background(), Order{Code: usercmd.CodeBurnAmbientLiq, Pool: nativePool(), Slippage: 0.01}); err == nil {
		t.Fatalf("expected spot price error")
	}
}

func TestExecuteJournalErrorSurfaces(t *testing.T) {
	journal := &memoryJournal{err: errors.New("disk full")}
	svc := newTestService(&fixedPrice{spot: 2000}, &fakeExecutor{}, journal)

	_, err := svc.Execute(context.Background(), Order{Code: usercmd.CodeBurnAmbientLiq, Pool: nativePool(), Amount: big.NewInt(1), NoLimits: true, DryRun: true})
	if err == nil {
		t.Fatalf("expected journal error")
	}
}
