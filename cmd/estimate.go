package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"account_listing_bot/internal/model"
	"account_listing_bot/internal/pricing"
)

// newEstimateCmd 命令行估价，便于核对定价配置
func newEstimateCmd(opts *rootOptions) *cobra.Command {
	values := map[model.Field]*string{}
	cmd := &cobra.Command{
		Use:     "estimate",
		Short:   "按当前定价配置估算账号价格",
		Example: "  listingbot estimate --coin_account 245000 --web_app \"Open web app\" --division_rivals Elite",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}

			f := model.Form{}
			for field, v := range values {
				if *v != "" {
					f[field] = *v
				}
			}
			est, err := pricing.NewEstimator(cfg.PricingConfig()).Estimate(f)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), est.Summary())
			fmt.Fprintln(cmd.OutOrStdout(), est.Details())
			return nil
		},
	}

	for _, field := range []model.Field{
		model.FieldCoinAccount,
		model.FieldTradePlayersValue,
		model.FieldNonTradePlayersValue,
		model.FieldWebApp,
		model.FieldMatchEarning,
		model.FieldSeasonLevel,
		model.FieldDivisionRivals,
	} {
		values[field] = cmd.Flags().String(string(field), "", "字段 "+string(field))
	}
	_ = cmd.MarkFlagRequired(string(model.FieldCoinAccount))
	return cmd
}
