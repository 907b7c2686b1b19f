package main

import (
	"context"
	"testing"

	"github.com/cronii/crikeyooo/internal/config"
	"github.com/cronii/crikeyooo/internal/usercmd"
)

func TestOrderAmountUnits(t *testing.T) {
	variant, err := usercmd.LookupName("burn-ambient-liq")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	cfg := config.LPConfig{Slippage: 0.01}
	cfg.Network.PoolIdx = config.DefaultPoolIdx

	cases := []struct {
		raw  bool
		want string
	}{
		{false, "1000000000000000000"},
		{true, "1"},
	}
	for _, tc := range cases {
		cmd := newLPCmd("burn-ambient", "", "burn", "ambient", "liq")
		flags := cmd.Flags()
		_ = flags.Set("quote", "0xa6024a169c2fc6bfd0feabee150b86d268aaf4ce")
		_ = flags.Set("amount", "1")
		if tc.raw {
			_ = flags.Set("raw", "true")
		}

		order, err := orderFromFlags(context.Background(), cmd, nil, variant, cfg)
		if err != nil {
			t.Fatalf("raw=%v: order: %v", tc.raw, err)
		}
		if order.Amount.String() != tc.want {
			t.Fatalf("raw=%v: amount = %s, want %s", tc.raw, order.Amount, tc.want)
		}
	}

	cmd := newLPCmd("burn-ambient", "", "burn", "ambient", "liq")
	_ = cmd.Flags().Set("quote", "0xa6024a169c2fc6bfd0feabee150b86d268aaf4ce")
	_ = cmd.Flags().Set("amount", "0.5")
	_ = cmd.Flags().Set("raw", "true")
	if _, err := orderFromFlags(context.Background(), cmd, nil, variant, cfg); err == nil {
		t.Fatalf("expected error for fractional raw amount")
	}
}
