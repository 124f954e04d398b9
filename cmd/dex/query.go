package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"dexEngine/internal/config"
	"dexEngine/internal/dex"
	"dexEngine/internal/model"
)

func newPriceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Quote an amount of one asset in another at the cached pool price",
		RunE:  runPrice,
	}
	addEngineFlags(cmd)
	cmd.Flags().String("amount", "", "amount of --asset, in base units")
	cmd.Flags().String("asset", "", "asset being priced")
	cmd.Flags().String("other", "", "asset the price is expressed in")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}

func newPoolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pools",
		Short: "List every pool with its reserves, supply and price",
		RunE:  runPools,
	}
	addEngineFlags(cmd)
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}

type priceOutput struct {
	Amount string        `json:"amount"`
	Asset  model.AssetID `json:"asset"`
	Other  model.AssetID `json:"other"`
	Value  string        `json:"value"`
}

func runPrice(cmd *cobra.Command, _ []string) error {
	amountArg, _ := cmd.Flags().GetString("amount")
	assetArg, _ := cmd.Flags().GetString("asset")
	otherArg, _ := cmd.Flags().GetString("other")

	amount, err := dex.ParseAmount(amountArg)
	if err != nil {
		return err
	}
	asset, err := model.ParseAssetID(assetArg)
	if err != nil {
		return fmt.Errorf("asset: %w", err)
	}
	other, err := model.ParseAssetID(otherArg)
	if err != nil {
		return fmt.Errorf("other: %w", err)
	}

	state, err := openQueryState(cmd)
	if err != nil {
		return err
	}
	defer state.Close()

	value, err := state.engine.Price(amount, asset, other)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), priceOutput{Amount: amount.Dec(), Asset: asset, Other: other, Value: value.Dec()})
}

func runPools(cmd *cobra.Command, _ []string) error {
	state, err := openQueryState(cmd)
	if err != nil {
		return err
	}
	defer state.Close()

	pools, err := state.engine.Pools()
	if err != nil {
		return err
	}
	if pools == nil {
		pools = []model.Pool{}
	}
	return writeJSON(cmd.OutOrStdout(), pools)
}

func openQueryState(cmd *cobra.Command) (*engineState, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuery(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return openState(cfg.Engine, dex.Deps{}, true, logger)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
