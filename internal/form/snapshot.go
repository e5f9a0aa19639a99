package form

import (
	"fmt"
	"strings"

	"account_listing_bot/internal/model"
	"account_listing_bot/pkg/utils"
)

// displayTruncate 长文本（购买链接）展示时的截断长度，存储值不截断
const displayTruncate = 25

// Banner 完成度等级
type Banner string

const (
	BannerComplete Banner = "complete"
	BannerMostly   Banner = "mostly complete"
	BannerHalfway  Banner = "halfway"
	BannerEmpty    Banner = "mostly empty"
)

var bannerText = map[Banner]string{
	BannerComplete: "🎉 All information is complete!",
	BannerMostly:   "⚠️ Most of the information is complete",
	BannerHalfway:  "🔶 About half of the information is complete",
	BannerEmpty:    "🔴 Little information has been entered",
}

// LabeledField 快照中的一行
type LabeledField struct {
	Field model.Field
	Label string
}

// SnapshotFields 固定顺序的展示字段；platform_details 只作为结构化记录，不参与统计
var SnapshotFields = []LabeledField{
	{model.FieldPlatform, "🎮 Platform"},
	{model.FieldEmailType, "📧 Email type"},
	{model.FieldWebApp, "🌐 Web app"},
	{model.FieldCoinAccount, "💰 Coin balance"},
	{model.FieldTradePlayers, "⚡ Trade players"},
	{model.FieldTradePlayersValue, "💰 Trade players value"},
	{model.FieldNonTradePlayers, "❌ Non-trade players"},
	{model.FieldNonTradePlayersValue, "💰 Non-trade players value"},
	{model.FieldMatchEarning, "🏆 Match earning"},
	{model.FieldSeasonLevel, "⭐ Season level"},
	{model.FieldDivisionRivals, "🏅 Division Rivals"},
	{model.FieldSaleMethod, "📝 Sale method"},
	{model.FieldUserContact, "📱 Contact"},
	{model.FieldPurchaseLink, "🛒 Purchase link"},
	{model.FieldPrice, "💵 Price"},
	{model.FieldTeamPhotos, "📸 Team photos"},
}

// Label 字段展示名
func Label(field model.Field) string {
	for _, lf := range SnapshotFields {
		if lf.Field == field {
			return lf.Label
		}
	}
	return string(field)
}

// SnapshotLine 单个字段的状态
type SnapshotLine struct {
	LabeledField
	Done  bool
	Value string
}

// Snapshot 表单完成度
type Snapshot struct {
	Lines     []SnapshotLine
	Completed int
	Total     int
	Banner    Banner
}

// TakeSnapshot 计算完成度，纯函数
func TakeSnapshot(f model.Form) Snapshot {
	snap := Snapshot{Total: len(SnapshotFields)}
	for _, lf := range SnapshotFields {
		line := SnapshotLine{LabeledField: lf}
		if f.Has(lf.Field) {
			line.Done = true
			line.Value = displayValue(f, lf.Field)
			snap.Completed++
		}
		snap.Lines = append(snap.Lines, line)
	}
	snap.Banner = bannerFor(snap.Completed, snap.Total)
	return snap
}

// bannerFor 阈值用整数比较，避免浮点边界误差
func bannerFor(completed, total int) Banner {
	switch {
	case completed == total:
		return BannerComplete
	case completed*10 >= total*7:
		return BannerMostly
	case completed*10 >= total*4:
		return BannerHalfway
	default:
		return BannerEmpty
	}
}

func displayValue(f model.Form, field model.Field) string {
	switch field {
	case model.FieldTeamPhotos:
		return fmt.Sprintf("%d photos", len(f.Photos()))
	case model.FieldPurchaseLink:
		return utils.Truncate(f.String(field), displayTruncate)
	default:
		return f.String(field)
	}
}

// Ratio 例如 "7/16"
func (s Snapshot) Ratio() string {
	return fmt.Sprintf("%d/%d", s.Completed, s.Total)
}

// Render 完整快照文本
func (s Snapshot) Render() string {
	var b strings.Builder
	b.WriteString("┌─── 📋 Submitted information ───┐\n\n")
	for _, line := range s.Lines {
		if line.Done {
			fmt.Fprintf(&b, "✅ %s: %s\n", line.Label, line.Value)
		} else {
			fmt.Fprintf(&b, "❌ %s: not entered\n", line.Label)
		}
	}
	fmt.Fprintf(&b, "\n📊 Completion: %s\n", s.Ratio())
	b.WriteString(bannerText[s.Banner])
	b.WriteString("\n└─────────────────────────┘")
	return b.String()
}

// Summary 表单菜单上方的简短临时表单，只列出已填字段
func Summary(f model.Form) string {
	var b strings.Builder
	b.WriteString("┌─── 📋 Draft form ───┐\n")
	for _, lf := range SnapshotFields {
		if !f.Has(lf.Field) {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", lf.Label, displayValue(f, lf.Field))
	}
	b.WriteString("└────────────────┘")
	return b.String()
}
