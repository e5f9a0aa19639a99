// Package config 基于 viper 的配置加载：YAML 文件 + LISTINGBOT_ 前缀环境变量
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"account_listing_bot/internal/form"
	"account_listing_bot/internal/middleware"
	"account_listing_bot/internal/model"
	"account_listing_bot/internal/pricing"
)

const EnvPrefix = "LISTINGBOT"

const (
	ModeWebhook = "webhook"
	ModePolling = "polling"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ==================== 配置结构 ====================

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Bot       BotConfig       `mapstructure:"bot"`
	Log       LogConfig       `mapstructure:"log"`
	Limits    LimitsConfig    `mapstructure:"limits"`
	Pricing   pricing.Config  `mapstructure:"pricing"`
	Platforms []BranchConfig  `mapstructure:"platforms"`
	EmailType []OptionConfig  `mapstructure:"email_types"`
	WebApp    []OptionConfig  `mapstructure:"web_app_types"`
	Listing   ListingConfig   `mapstructure:"listing"`
	Cooldowns CooldownsConfig `mapstructure:"cooldowns"`
}

type ServerConfig struct {
	Port      string        `mapstructure:"port"`
	JWTSecret string        `mapstructure:"jwt_secret"` // 管理 API 令牌的 HS256 密钥，为空时管理 API 拒绝所有请求
	JWTIssuer string        `mapstructure:"jwt_issuer"`
	JWTTTL    time.Duration `mapstructure:"jwt_ttl"` // token 子命令签发的有效期
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type BotConfig struct {
	Token           string        `mapstructure:"token"`
	APIBaseURL      string        `mapstructure:"api_base_url"`
	ChannelUsername string        `mapstructure:"channel_username"`
	AdminUserID     int64         `mapstructure:"admin_user_id"`
	TesterUserID    int64         `mapstructure:"tester_user_id"`
	Mode            string        `mapstructure:"mode"`
	WebhookURL      string        `mapstructure:"webhook_url"`
	WebhookSecret   string        `mapstructure:"webhook_secret"`
	PollTimeout     int           `mapstructure:"poll_timeout"`
	QueueSize       int           `mapstructure:"queue_size"`
	MembershipTTL   time.Duration `mapstructure:"membership_ttl"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type LimitsConfig struct {
	CharLimits          map[string]int `mapstructure:"char_limits"`
	DigitLimits         map[string]int `mapstructure:"digit_limits"`
	MaxPhotos           int            `mapstructure:"max_photos"`
	SubscriptionMaxDays int            `mapstructure:"subscription_max_days"`
}

type OptionConfig struct {
	Code string `mapstructure:"code"`
	Name string `mapstructure:"name"`
}

type BranchConfig struct {
	Code    string                 `mapstructure:"code"`
	Name    string                 `mapstructure:"name"`
	Options []PlatformOptionConfig `mapstructure:"options"`
}

// PlatformOptionConfig ask_days 为 true 的选项需要再录入剩余天数
type PlatformOptionConfig struct {
	Code    string `mapstructure:"code"`
	Name    string `mapstructure:"name"`
	AskDays bool   `mapstructure:"ask_days"`
}

type ListingConfig struct {
	ExpiryDays       int    `mapstructure:"expiry_days"`
	ExpirySpec       string `mapstructure:"expiry_spec"`
	PurchaseLinkBase string `mapstructure:"purchase_link_base"`
}

type CooldownsConfig struct {
	Estimate time.Duration `mapstructure:"estimate"`
	Submit   time.Duration `mapstructure:"submit"`
}

// ==================== 默认值 ====================

// Default 内置默认配置，只配置 token 即可运行
func Default() *Config {
	cfg := &Config{
		Server:   ServerConfig{Port: "8080", JWTIssuer: "listingbot", JWTTTL: 30 * 24 * time.Hour},
		Database: DatabaseConfig{Driver: DriverSQLite, DSN: "listingbot.db", MaxIdleConns: 10, MaxOpenConns: 50, ConnMaxLifetime: time.Hour},
		Bot: BotConfig{
			APIBaseURL:     "https://api.telegram.org",
			Mode:           ModePolling,
			PollTimeout:    30,
			QueueSize:      256,
			MembershipTTL:  5 * time.Minute,
			RequestTimeout: 40 * time.Second,
		},
		Log: LogConfig{Level: "info"},
		Limits: LimitsConfig{
			CharLimits: map[string]int{
				string(model.FieldTradePlayers):    25,
				string(model.FieldNonTradePlayers): 25,
			},
			DigitLimits: map[string]int{
				string(model.FieldCoinAccount):  8,
				string(model.FieldMatchEarning): 6,
				string(model.FieldSeasonLevel):  3,
				string(model.FieldPrice):        10,
			},
			MaxPhotos:           3,
			SubscriptionMaxDays: 3650,
		},
		Pricing: pricing.DefaultConfig(),
		EmailType: []OptionConfig{
			{Code: "gmail", Name: "Gmail"},
			{Code: "outlook", Name: "Outlook"},
			{Code: "hotmail", Name: "Hotmail"},
			{Code: "yahoo", Name: "Yahoo"},
			{Code: "other", Name: "Other"},
		},
		WebApp: []OptionConfig{
			{Code: "open", Name: "Open web app"},
			{Code: "closed", Name: "Closed web app"},
		},
		Listing: ListingConfig{
			ExpiryDays:       10,
			ExpirySpec:       "0 0 * * * *",
			PurchaseLinkBase: "https://t.me/listing_market",
		},
		Cooldowns: CooldownsConfig{Estimate: 3 * time.Second, Submit: 10 * time.Second},
	}
	for _, b := range form.DefaultDirectory().Branches() {
		bc := BranchConfig{Code: b.Code, Name: b.Name}
		for _, o := range b.Options {
			bc.Options = append(bc.Options, PlatformOptionConfig{Code: o.Code, Name: o.Name, AskDays: o.AskDays})
		}
		cfg.Platforms = append(cfg.Platforms, bc)
	}
	return cfg
}

// envKeys 没有配置文件时也能被环境变量覆盖的标量键
var envKeys = []string{
	"server.port", "server.jwt_secret", "server.jwt_issuer", "server.jwt_ttl",
	"database.driver", "database.dsn",
	"bot.token", "bot.api_base_url", "bot.channel_username", "bot.admin_user_id", "bot.tester_user_id",
	"bot.mode", "bot.webhook_url", "bot.webhook_secret", "bot.poll_timeout",
	"log.level",
	"listing.expiry_days", "listing.expiry_spec", "listing.purchase_link_base",
	"cooldowns.estimate", "cooldowns.submit",
}

// listKeys 文件中出现时整体替换默认列表，而不是按下标合并
var listKeys = map[string]func(*Config){
	"platforms":                      func(c *Config) { c.Platforms = nil },
	"email_types":                    func(c *Config) { c.EmailType = nil },
	"web_app_types":                  func(c *Config) { c.WebApp = nil },
	"pricing.match_earning_brackets": func(c *Config) { c.Pricing.MatchEarningBrackets = nil },
	"pricing.season_level_brackets":  func(c *Config) { c.Pricing.SeasonLevelBrackets = nil },
}

// ==================== 加载 ====================

// Load 读取配置文件（可为空）并叠加环境变量
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Default()
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("绑定环境变量 %s 失败: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	for key, reset := range listKeys {
		if v.InConfig(key) {
			reset(cfg)
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 启动前检查
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("config: unsupported database driver %q", c.Database.Driver)
	}
	switch c.Bot.Mode {
	case ModeWebhook, ModePolling:
	default:
		return fmt.Errorf("config: unsupported bot mode %q", c.Bot.Mode)
	}
	if c.Limits.MaxPhotos <= 0 {
		return errors.New("config: limits.max_photos must be positive")
	}
	if c.Limits.SubscriptionMaxDays <= 0 {
		return errors.New("config: limits.subscription_max_days must be positive")
	}
	if len(c.Platforms) == 0 {
		return errors.New("config: platforms must not be empty")
	}
	for _, b := range c.Platforms {
		if len(b.Options) != 3 {
			return fmt.Errorf("config: platform %q must have exactly 3 options, got %d", b.Code, len(b.Options))
		}
	}
	if c.WebAppOpenLabel() == "" {
		return errors.New("config: web_app_types must contain an \"open\" option")
	}
	if c.Listing.ExpiryDays <= 0 {
		return errors.New("config: listing.expiry_days must be positive")
	}
	return c.Pricing.Validate()
}

// ==================== 转换 ====================

// FormLimits 字段约束
func (c *Config) FormLimits() form.Limits {
	limits := form.Limits{
		CharLimits:  make(map[model.Field]int, len(c.Limits.CharLimits)),
		DigitLimits: make(map[model.Field]int, len(c.Limits.DigitLimits)),
		MaxPhotos:   c.Limits.MaxPhotos,
		MaxDays:     c.Limits.SubscriptionMaxDays,
	}
	for k, n := range c.Limits.CharLimits {
		limits.CharLimits[model.Field(k)] = n
	}
	for k, n := range c.Limits.DigitLimits {
		limits.DigitLimits[model.Field(k)] = n
	}
	return limits
}

// Directory 平台展示名称表
func (c *Config) Directory() *form.Directory {
	branches := make([]form.Branch, 0, len(c.Platforms))
	for _, b := range c.Platforms {
		branch := form.Branch{Code: b.Code, Name: b.Name}
		for _, o := range b.Options {
			branch.Options = append(branch.Options, form.Option{Code: o.Code, Name: o.Name, AskDays: o.AskDays})
		}
		branches = append(branches, branch)
	}
	return form.NewDirectory(branches)
}

// PricingConfig 估算常量；web_app "open" 的判断以配置的展示名为准
func (c *Config) PricingConfig() pricing.Config {
	p := c.Pricing
	if label := c.WebAppOpenLabel(); label != "" {
		p.WebAppOpenLabel = label
	}
	return p
}

// WebAppOpenLabel "open" 选项的展示名
func (c *Config) WebAppOpenLabel() string {
	for _, o := range c.WebApp {
		if o.Code == "open" {
			return o.Name
		}
	}
	return ""
}

// JWT 管理 API 令牌配置
func (c *Config) JWT() middleware.JWTConfig {
	return middleware.JWTConfig{Secret: c.Server.JWTSecret, Issuer: c.Server.JWTIssuer, TTL: c.Server.JWTTTL}
}

// ListingTTL listing 有效期
func (c *Config) ListingTTL() time.Duration {
	return time.Duration(c.Listing.ExpiryDays) * 24 * time.Hour
}

// Privileged 免配额的身份
func (c *Config) Privileged() []int64 {
	var ids []int64
	for _, id := range []int64{c.Bot.AdminUserID, c.Bot.TesterUserID} {
		if id != 0 {
			ids = append(ids, id)
		}
	}
	return ids
}
