package main

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cronii/crikeyooo/internal/usercmd"
)

func newPriceCmd() *cobra.Command {
	price := &cobra.Command{
		Use:   "price",
		Short: "Q64.64 square-root price helpers",
	}

	encode := &cobra.Command{
		Use:   "encode <price>",
		Short: "Encode a price as a Q64.64 square root",
		Args:  cobra.ExactArgs(1),
		RunE:  runPriceEncode,
	}
	addDecimalFlags(encode)

	decode := &cobra.Command{
		Use:   "decode <sqrt-price-x64>",
		Short: "Decode a Q64.64 square-root price",
		Args:  cobra.ExactArgs(1),
		RunE:  runPriceDecode,
	}
	addDecimalFlags(decode)

	bounds := &cobra.Command{
		Use:   "bounds <price>",
		Short: "Encode slippage limits around a price",
		Args:  cobra.ExactArgs(1),
		RunE:  runPriceBounds,
	}
	addDecimalFlags(bounds)
	bounds.Flags().Float64("tolerance", 0.01, "relative slippage tolerance in [0, 1)")

	tick := &cobra.Command{
		Use:   "tick <price>",
		Short: "Convert a price to its tick, optionally pinned to a grid",
		Args:  cobra.ExactArgs(1),
		RunE:  runPriceTick,
	}
	addDecimalFlags(tick)
	tick.Flags().Uint16("grid", 0, "pool tick grid size (0 for none)")
	tick.Flags().Bool("up", false, "pin up to the next grid tick instead of down")

	price.AddCommand(encode, decode, bounds, tick)
	return price
}

func addDecimalFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("display", false, "prices are display prices (quote per whole base)")
	cmd.Flags().Uint8("base-decimals", 18, "base token decimals for display prices")
	cmd.Flags().Uint8("quote-decimals", 18, "quote token decimals for display prices")
}

func spotFromArg(cmd *cobra.Command, arg string) (float64, error) {
	value, err := strconv.ParseFloat(arg, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price: %w", err)
	}
	if display, _ := cmd.Flags().GetBool("display"); !display {
		return value, nil
	}
	baseDecimals, _ := cmd.Flags().GetUint8("base-decimals")
	quoteDecimals, _ := cmd.Flags().GetUint8("quote-decimals")
	return usercmd.SpotFromDisplay(value, baseDecimals, quoteDecimals)
}

func runPriceEncode(cmd *cobra.Command, args []string) error {
	spot, err := spotFromArg(cmd, args[0])
	if err != nil {
		return err
	}
	encoded, err := usercmd.EncodePrice(spot)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (0x%x)\n", encoded, encoded)
	return nil
}

func runPriceDecode(cmd *cobra.Command, args []string) error {
	encoded, err := rawArg(args[0])
	if err != nil {
		return err
	}
	spot := usercmd.DecodePrice(encoded)
	if display, _ := cmd.Flags().GetBool("display"); display {
		baseDecimals, _ := cmd.Flags().GetUint8("base-decimals")
		quoteDecimals, _ := cmd.Flags().GetUint8("quote-decimals")
		spot = usercmd.DisplayFromSpot(spot, baseDecimals, quoteDecimals)
	}
	fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatFloat(spot, 'g', -1, 64))
	return nil
}

func runPriceBounds(cmd *cobra.Command, args []string) error {
	spot, err := spotFromArg(cmd, args[0])
	if err != nil {
		return err
	}
	tolerance, _ := cmd.Flags().GetFloat64("tolerance")
	lower, upper, err := usercmd.SlippageBounds(spot, tolerance)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), map[string]string{
		"limit_lower":  lower.String(),
		"limit_higher": upper.String(),
	})
}

func runPriceTick(cmd *cobra.Command, args []string) error {
	spot, err := spotFromArg(cmd, args[0])
	if err != nil {
		return err
	}
	tick, err := usercmd.PriceToTick(spot)
	if err != nil {
		return err
	}
	if grid, _ := cmd.Flags().GetUint16("grid"); grid > 0 {
		up, _ := cmd.Flags().GetBool("up")
		if tick, err = usercmd.PinTick(tick, grid, up); err != nil {
			return err
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), tick)
	return nil
}

func rawArg(arg string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(arg, 0)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid unsigned integer: %s", arg)
	}
	return v, nil
}
