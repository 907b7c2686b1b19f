package main

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/cronii/crikeyooo/internal/dex"
	"github.com/cronii/crikeyooo/internal/units"
	"github.com/cronii/crikeyooo/internal/usercmd"
)

func newEncodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Encode a dispatch command payload",
		RunE:  runEncode,
	}

	cmd.Flags().String("proxy", "liquidity", "proxy path (name or index)")
	cmd.Flags().String("variant", "", "variant name (e.g. mint-range-base) or numeric code")
	cmd.Flags().String("base", "eth", "base token address")
	cmd.Flags().String("quote", "", "quote token address")
	cmd.Flags().Uint64("pool-idx", 36000, "pool type index")
	cmd.Flags().Int32("bid-tick", 0, "lower tick (range variants)")
	cmd.Flags().Int32("ask-tick", 0, "upper tick (range variants)")
	cmd.Flags().String("liq", "0", "raw liquidity or quantity (decimal or 0x-hex)")
	cmd.Flags().String("limit-lower", "0", "raw lower price limit (Q64.64)")
	cmd.Flags().String("limit-higher", usercmd.NoLimitUpper.String(), "raw upper price limit (Q64.64)")
	cmd.Flags().Uint8("reserve-flags", 0, "surplus collateral flags (1 base, 2 quote)")
	cmd.Flags().String("conduit", "", "LP conduit address (empty for none)")
	cmd.Flags().Bool("calldata", false, "print the full userCmd calldata instead of the payload")
	return cmd
}

func runEncode(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	proxyInput, _ := flags.GetString("proxy")
	proxy, err := usercmd.ParseProxy(proxyInput)
	if err != nil {
		return err
	}
	variantInput, _ := flags.GetString("variant")
	variant, err := resolveVariant(proxy, variantInput)
	if err != nil {
		return err
	}

	baseInput, _ := flags.GetString("base")
	base, err := dex.ParseAddress(baseInput)
	if err != nil {
		return err
	}
	quoteInput, _ := flags.GetString("quote")
	quote, err := dex.ParseAddress(quoteInput)
	if err != nil {
		return err
	}
	conduit := usercmd.NativeAsset
	if conduitInput, _ := flags.GetString("conduit"); conduitInput != "" {
		if conduit, err = dex.ParseAddress(conduitInput); err != nil {
			return err
		}
	}

	poolIdx, _ := flags.GetUint64("pool-idx")
	bidTick, _ := flags.GetInt32("bid-tick")
	askTick, _ := flags.GetInt32("ask-tick")
	reserveFlags, _ := flags.GetUint8("reserve-flags")

	liq, err := rawFlag(cmd, "liq")
	if err != nil {
		return err
	}
	lower, err := rawFlag(cmd, "limit-lower")
	if err != nil {
		return err
	}
	upper, err := rawFlag(cmd, "limit-higher")
	if err != nil {
		return err
	}

	command := usercmd.Command{
		Code:         variant.Code,
		Base:         base,
		Quote:        quote,
		PoolIdx:      new(big.Int).SetUint64(poolIdx),
		BidTick:      bidTick,
		AskTick:      askTick,
		Liquidity:    liq,
		LimitLower:   lower,
		LimitHigher:  upper,
		ReserveFlags: reserveFlags,
		LPConduit:    conduit,
	}

	payload, calldata, err := dex.BuildUserCmd(proxy, command)
	if err != nil {
		return err
	}
	if full, _ := flags.GetBool("calldata"); full {
		fmt.Fprintln(cmd.OutOrStdout(), hexutil.Encode(calldata))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), hexutil.Encode(payload))
	return nil
}

type decodedOutput struct {
	Proxy   uint16          `json:"proxy"`
	Variant string          `json:"variant"`
	Command usercmd.Command `json:"command"`
}

func newDecodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode <hex>",
		Short: "Decode a command payload or full userCmd calldata",
		Args:  cobra.ExactArgs(1),
		RunE:  runDecode,
	}
	cmd.Flags().String("proxy", "liquidity", "proxy path for bare payloads")
	return cmd
}

func runDecode(cmd *cobra.Command, args []string) error {
	data, err := hexutil.Decode(ensureHexPrefix(args[0]))
	if err != nil {
		return fmt.Errorf("decode hex: %w", err)
	}

	decoder, err := dex.NewCallDecoder()
	if err != nil {
		return err
	}
	if decoder.CanDecode(data) {
		call, err := decoder.Decode(data)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), decodedOutput{Proxy: uint16(call.Proxy), Variant: call.Variant.Name, Command: call.Command})
	}

	proxyInput, _ := cmd.Flags().GetString("proxy")
	proxy, err := usercmd.ParseProxy(proxyInput)
	if err != nil {
		return err
	}
	command, err := usercmd.Decode(proxy, data)
	if err != nil {
		return err
	}
	variant, err := command.Variant(proxy)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), decodedOutput{Proxy: uint16(proxy), Variant: variant.Name, Command: command})
}

func newVariantsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "variants",
		Short: "List registered command variants",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, v := range usercmd.Variants() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s proxy=%d code=%-3d ticks=%v\n", v.Name, v.Proxy, v.Code, v.TicksMeaningful())
			}
			return nil
		},
	}
}

func resolveVariant(proxy usercmd.Proxy, input string) (usercmd.Variant, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return usercmd.Variant{}, fmt.Errorf("variant is required")
	}
	if code, err := strconv.ParseUint(input, 10, 8); err == nil {
		return usercmd.Lookup(proxy, usercmd.Code(code))
	}
	variant, err := usercmd.LookupName(input)
	if err != nil {
		return variant, err
	}
	if variant.Proxy != proxy {
		return variant, fmt.Errorf("variant %s belongs to proxy %d, not %d", variant.Name, variant.Proxy, proxy)
	}
	return variant, nil
}

func rawFlag(cmd *cobra.Command, name string) (*big.Int, error) {
	value, _ := cmd.Flags().GetString(name)
	parsed, err := units.ParseRaw(value, 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return parsed, nil
}

func ensureHexPrefix(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return s
	}
	return "0x" + s
}
