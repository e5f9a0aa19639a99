// Package pricing 账号价格估算：纯函数，输入为（可能不完整的）表单
package pricing

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"account_listing_bot/internal/model"
	"account_listing_bot/pkg/utils"
)

// ErrEstimationFailed 估算失败，只对外暴露统一的提示
var ErrEstimationFailed = errors.New("estimation failed")

// FailureMessage 估算失败时展示给用户的文案
const FailureMessage = "❌ Could not calculate the price. Please make sure the required fields are filled in."

// Bracket 半开区间 [Min, Max) 对应的加成
type Bracket struct {
	Min   int64 `mapstructure:"min"`
	Max   int64 `mapstructure:"max"`
	Bonus int64 `mapstructure:"bonus"`
}

// Contains 半开区间判断
func (b Bracket) Contains(v int64) bool {
	return v >= b.Min && v < b.Max
}

// Config 估算常量
type Config struct {
	CoinDivider   float64 `mapstructure:"coin_divider"`
	CoinValueUnit float64 `mapstructure:"coin_value_unit"`

	TradeMultiplier float64 `mapstructure:"trade_multiplier"`
	TradeDivider    float64 `mapstructure:"trade_divider"`

	NonTradeMultiplier float64 `mapstructure:"nontrade_multiplier"`
	NonTradeDivider    float64 `mapstructure:"nontrade_divider"`
	NonTradeDiscount   float64 `mapstructure:"nontrade_discount"`

	WebAppOpenLabel   string `mapstructure:"web_app_open_label"`
	WebAppOpenBonus   int64  `mapstructure:"web_app_open_bonus"`
	WebAppClosedBonus int64  `mapstructure:"web_app_closed_bonus"`

	MatchEarningBrackets []Bracket        `mapstructure:"match_earning_brackets"`
	SeasonLevelBrackets  []Bracket        `mapstructure:"season_level_brackets"`
	DivisionBonuses      map[string]int64 `mapstructure:"division_bonuses"`

	RangePercent float64 `mapstructure:"range_percent"`
	Currency     string  `mapstructure:"currency"`
}

// DefaultConfig 内置常量
func DefaultConfig() Config {
	return Config{
		CoinDivider:        100000,
		CoinValueUnit:      80000,
		TradeMultiplier:    80000,
		TradeDivider:       100000,
		NonTradeMultiplier: 80000,
		NonTradeDivider:    100000,
		NonTradeDiscount:   0.5,
		WebAppOpenLabel:    "Open web app",
		WebAppOpenBonus:    200000,
		WebAppClosedBonus:  0,
		MatchEarningBrackets: []Bracket{
			{Min: 0, Max: 1000, Bonus: 0},
			{Min: 1000, Max: 5000, Bonus: 100000},
			{Min: 5000, Max: 10000, Bonus: 250000},
			{Min: 10000, Max: 1000000000, Bonus: 500000},
		},
		SeasonLevelBrackets: []Bracket{
			{Min: 0, Max: 10, Bonus: 0},
			{Min: 10, Max: 30, Bonus: 50000},
			{Min: 30, Max: 50, Bonus: 150000},
			{Min: 50, Max: 1000000, Bonus: 300000},
		},
		DivisionBonuses: map[string]int64{
			"elite": 400000,
			"1":     300000,
			"2":     250000,
			"3":     200000,
			"4":     150000,
			"5":     100000,
			"6":     50000,
		},
		RangePercent: 0.1,
		Currency:     "Toman",
	}
}

// Validate 检查除数与区间表
func (c Config) Validate() error {
	if c.CoinDivider == 0 || c.TradeDivider == 0 || c.NonTradeDivider == 0 {
		return errors.New("pricing: divider must not be zero")
	}
	if c.RangePercent < 0 || c.RangePercent >= 1 {
		return fmt.Errorf("pricing: range_percent %.2f out of [0,1)", c.RangePercent)
	}
	for name, brackets := range map[string][]Bracket{
		"match_earning_brackets": c.MatchEarningBrackets,
		"season_level_brackets":  c.SeasonLevelBrackets,
	} {
		for i, b := range brackets {
			if b.Min >= b.Max {
				return fmt.Errorf("pricing: %s[%d] min %d >= max %d", name, i, b.Min, b.Max)
			}
			if i > 0 && b.Min < brackets[i-1].Max {
				return fmt.Errorf("pricing: %s[%d] overlaps previous bracket", name, i)
			}
		}
	}
	return nil
}

// ==================== 估算结果 ====================

// Breakdown 每一项的贡献，已向零截断
type Breakdown struct {
	Coin          int64
	TradePlayers  int64
	NonTrade      int64
	WebApp        int64
	MatchEarning  int64
	SeasonLevel   int64
	DivisionRival int64
}

// Sum 各项之和
func (b Breakdown) Sum() int64 {
	return b.Coin + b.TradePlayers + b.NonTrade + b.WebApp + b.MatchEarning + b.SeasonLevel + b.DivisionRival
}

// Estimate 估算结果
type Estimate struct {
	Low       int64
	High      int64
	Total     float64
	Breakdown Breakdown
	currency  string
}

// Summary 价格区间一行
func (e Estimate) Summary() string {
	return fmt.Sprintf("💰 Estimated price: %s - %s %s", utils.FormatInt(e.Low), utils.FormatInt(e.High), e.currency)
}

// Details 计算明细
func (e Estimate) Details() string {
	rows := []struct {
		label string
		value int64
	}{
		{"Coin value", e.Breakdown.Coin},
		{"Trade players", e.Breakdown.TradePlayers},
		{"Non-trade players", e.Breakdown.NonTrade},
		{"Web app", e.Breakdown.WebApp},
		{"Match earning", e.Breakdown.MatchEarning},
		{"Season level", e.Breakdown.SeasonLevel},
		{"Division Rivals", e.Breakdown.DivisionRival},
	}

	var b strings.Builder
	b.WriteString("📊 Calculation details:\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "• %s: %s %s\n", r.label, utils.FormatInt(r.value), e.currency)
	}
	return strings.TrimRight(b.String(), "\n")
}

// ==================== 估算器 ====================

// Estimator 价格估算器
type Estimator struct {
	cfg Config
}

func NewEstimator(cfg Config) *Estimator {
	return &Estimator{cfg: cfg}
}

// Estimate 对当前表单估算；任何异常都折叠为 ErrEstimationFailed，不返回部分结果
func (e *Estimator) Estimate(f model.Form) (est Estimate, err error) {
	defer func() {
		if r := recover(); r != nil {
			est, err = Estimate{}, fmt.Errorf("%w: %v", ErrEstimationFailed, r)
		}
	}()

	c := e.cfg
	if c.CoinDivider == 0 || c.TradeDivider == 0 || c.NonTradeDivider == 0 {
		return Estimate{}, fmt.Errorf("%w: zero divider", ErrEstimationFailed)
	}

	coins := parseAmount(f.String(model.FieldCoinAccount))
	trade := parseAmount(f.String(model.FieldTradePlayersValue))
	nonTrade := parseAmount(f.String(model.FieldNonTradePlayersValue))

	coinValue := coins / c.CoinDivider * c.CoinValueUnit
	tradeValue := trade * c.TradeMultiplier / c.TradeDivider
	nonTradeValue := nonTrade * c.NonTradeMultiplier / c.NonTradeDivider * c.NonTradeDiscount

	webBonus := c.WebAppClosedBonus
	if f.String(model.FieldWebApp) == c.WebAppOpenLabel {
		webBonus = c.WebAppOpenBonus
	}

	matchBonus := lookupBracket(c.MatchEarningBrackets, parseInt(f.String(model.FieldMatchEarning)))
	seasonBonus := lookupBracket(c.SeasonLevelBrackets, parseInt(f.String(model.FieldSeasonLevel)))
	divisionBonus := c.DivisionBonuses[strings.ToLower(strings.TrimSpace(f.String(model.FieldDivisionRivals)))]

	total := coinValue + tradeValue + nonTradeValue +
		float64(webBonus) + float64(matchBonus) + float64(seasonBonus) + float64(divisionBonus)
	if math.IsNaN(total) || math.IsInf(total, 0) || math.Abs(total) > math.MaxInt64/2 {
		return Estimate{}, fmt.Errorf("%w: total out of range", ErrEstimationFailed)
	}

	return Estimate{
		Low:   int64(total * (1 - c.RangePercent)),
		High:  int64(total * (1 + c.RangePercent)),
		Total: total,
		Breakdown: Breakdown{
			Coin:          int64(coinValue),
			TradePlayers:  int64(tradeValue),
			NonTrade:      int64(nonTradeValue),
			WebApp:        webBonus,
			MatchEarning:  matchBonus,
			SeasonLevel:   seasonBonus,
			DivisionRival: divisionBonus,
		},
		currency: c.Currency,
	}, nil
}

// lookupBracket 第一个包含 v 的区间，没有则为 0
func lookupBracket(brackets []Bracket, v int64) int64 {
	for _, b := range brackets {
		if b.Contains(v) {
			return b.Bonus
		}
	}
	return 0
}

// parseAmount 缺失或无法解析时为 0；价值字段可能超过 int64
func parseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	if !utils.IsASCIIDigits(s) {
		return 0
	}
	// 超出 float64 时 ParseFloat 返回 +Inf，交给总额检查
	v, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0
	}
	return v
}

func parseInt(s string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
