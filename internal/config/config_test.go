package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"account_listing_bot/internal/model"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "Open web app", cfg.PricingConfig().WebAppOpenLabel)
	assert.Equal(t, 10*24*time.Hour, cfg.ListingTTL())
	assert.Empty(t, cfg.Privileged())
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
bot:
  channel_username: "@market"
  admin_user_id: 100
limits:
  digit_limits:
    price: 7
  max_photos: 5
pricing:
  range_percent: 0.2
  season_level_brackets:
    - {min: 0, max: 100, bonus: 7}
web_app_types:
  - {code: open, name: "Web open"}
  - {code: closed, name: "Web closed"}
`)
	t.Setenv("LISTINGBOT_BOT_TOKEN", "123:abc")
	t.Setenv("LISTINGBOT_BOT_TESTER_USER_ID", "200")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "123:abc", cfg.Bot.Token)
	assert.Equal(t, []int64{100, 200}, cfg.Privileged())

	limits := cfg.FormLimits()
	assert.Equal(t, 7, limits.MaxDigits(model.FieldPrice))
	assert.Equal(t, 8, limits.MaxDigits(model.FieldCoinAccount), "未覆盖的键保留默认值")
	assert.Equal(t, 5, limits.PhotoCap())

	assert.Equal(t, 0.2, cfg.Pricing.RangePercent)
	assert.Len(t, cfg.Pricing.SeasonLevelBrackets, 1, "列表整体替换")
	assert.Len(t, cfg.Pricing.MatchEarningBrackets, 4)
	assert.Equal(t, "Web open", cfg.PricingConfig().WebAppOpenLabel)

	assert.Equal(t, "PC - EA Play Pro", cfg.Directory().DisplayName("pc", "eaplay"))
	assert.True(t, cfg.Directory().RequiresDays("pc", "eaplay"), "默认平台表保留天数标记")
}

func TestLoad_PlatformAskDays(t *testing.T) {
	path := writeConfig(t, `
platforms:
  - code: switch
    name: Switch
    options:
      - {code: online, name: Online, ask_days: true}
      - {code: offline, name: Offline}
      - {code: family, name: Family}
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	dir := cfg.Directory()
	assert.True(t, dir.RequiresDays("switch", "online"))
	assert.False(t, dir.RequiresDays("switch", "offline"))
	assert.False(t, dir.RequiresDays("pc", "eaplay"), "列表整体替换")
}

func TestLoad_MissingDefaultFileIsFine(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ModePolling, cfg.Bot.Mode)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"未知数据库", func(c *Config) { c.Database.Driver = "mysql" }},
		{"未知模式", func(c *Config) { c.Bot.Mode = "push" }},
		{"平台选项不足", func(c *Config) { c.Platforms[0].Options = c.Platforms[0].Options[:2] }},
		{"缺少 open 选项", func(c *Config) { c.WebApp = []OptionConfig{{Code: "closed", Name: "x"}} }},
		{"除数为零", func(c *Config) { c.Pricing.CoinDivider = 0 }},
		{"有效期为零", func(c *Config) { c.Listing.ExpiryDays = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
