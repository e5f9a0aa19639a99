package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"account_listing_bot/internal/middleware"
)

// newTokenCmd 为配置中的管理员签发管理 API 令牌
func newTokenCmd(opts *rootOptions) *cobra.Command {
	var (
		name string
		ttl  time.Duration
	)
	cmd := &cobra.Command{
		Use:     "token",
		Short:   "签发 /api/listings 使用的 Bearer 令牌",
		Example: "  listingbot token --name ops --ttl 24h",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.Bot.AdminUserID == 0 {
				return errors.New("bot.admin_user_id 未配置")
			}

			jwtCfg := cfg.JWT()
			if ttl > 0 {
				jwtCfg.TTL = ttl
			}
			token, err := middleware.IssueReviewerToken(jwtCfg, cfg.Bot.AdminUserID, name, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "admin", "审计日志中的审核人名称")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "有效期，默认取 server.jwt_ttl")
	return cmd
}
