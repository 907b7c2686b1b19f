package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/cronii/crikeyooo/internal/usercmd"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestEncodeDecodeCLI(t *testing.T) {
	out, err := execute(t, "encode",
		"--variant", "burn-ambient-liq",
		"--quote", "0xa6024a169c2fc6bfd0feabee150b86d268aaf4ce",
		"--liq", "1000000000000000",
	)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	payload := strings.TrimSpace(out)
	if len(payload) != 2+2*usercmd.PayloadSize {
		t.Fatalf("payload hex length = %d", len(payload))
	}

	out, err = execute(t, "decode", payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var decoded decodedOutput
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("parse decode output: %v", err)
	}
	if decoded.Variant != "burn-ambient-liq" || decoded.Command.Liquidity.String() != "1000000000000000" {
		t.Fatalf("unexpected decode: %+v", decoded)
	}
}

func TestEncodeCalldataCLI(t *testing.T) {
	out, err := execute(t, "encode",
		"--variant", "11",
		"--quote", "0xa6024a169c2fc6bfd0feabee150b86d268aaf4ce",
		"--bid-tick", "-640000",
		"--ask-tick", "0",
		"--liq", "0x38d7ea4c68000",
		"--limit-lower", "0x46b274160800000000",
		"--limit-higher", "0x640000000000000000",
		"--conduit", "0xd97D770755C7f8ea1cbD6EA2D0C1A1EF3264e277",
		"--calldata",
	)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	calldata := strings.TrimSpace(out)
	if !strings.HasPrefix(calldata, "0xa15112f9") {
		t.Fatalf("calldata selector: %s", calldata[:10])
	}

	out, err = execute(t, "decode", calldata)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(out, `"mint-range-base"`) || !strings.Contains(out, `"bid_tick": -640000`) {
		t.Fatalf("unexpected decode output: %s", out)
	}
}

func TestEncodeRejectsInvalidCommand(t *testing.T) {
	_, err := execute(t, "encode",
		"--variant", "mint-range-liq",
		"--quote", "0xa6024a169c2fc6bfd0feabee150b86d268aaf4ce",
		"--bid-tick", "10",
		"--ask-tick", "5",
	)
	if err == nil {
		t.Fatalf("expected error for inverted ticks")
	}

	if _, err := execute(t, "encode", "--variant", "nope", "--quote", "0xa6024a169c2fc6bfd0feabee150b86d268aaf4ce"); err == nil {
		t.Fatalf("expected error for unknown variant")
	}
}

func TestPriceCLI(t *testing.T) {
	out, err := execute(t, "price", "encode", "1")
	if err != nil {
		t.Fatalf("price encode: %v", err)
	}
	if !strings.HasPrefix(out, "18446744073709551616 ") {
		t.Fatalf("price encode output: %s", out)
	}

	out, err = execute(t, "price", "decode", "0x20000000000000000")
	if err != nil {
		t.Fatalf("price decode: %v", err)
	}
	if strings.TrimSpace(out) != "4" {
		t.Fatalf("price decode output: %s", out)
	}

	out, err = execute(t, "price", "tick", "1", "--grid", "64")
	if err != nil {
		t.Fatalf("price tick: %v", err)
	}
	if strings.TrimSpace(out) != "0" {
		t.Fatalf("price tick output: %s", out)
	}

	out, err = execute(t, "price", "bounds", "2000", "--tolerance", "0.01")
	if err != nil {
		t.Fatalf("price bounds: %v", err)
	}
	var bounds map[string]string
	if err := json.Unmarshal([]byte(out), &bounds); err != nil {
		t.Fatalf("parse bounds: %v", err)
	}
	if bounds["limit_lower"] == "" || bounds["limit_higher"] == "" {
		t.Fatalf("bounds output: %s", out)
	}
}

func TestVariantsCLI(t *testing.T) {
	out, err := execute(t, "variants")
	if err != nil {
		t.Fatalf("variants: %v", err)
	}
	if strings.Count(out, "\n") != len(usercmd.Variants()) {
		t.Fatalf("expected one line per variant: %s", out)
	}
}
