package form

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"account_listing_bot/internal/model"
)

func TestTakeSnapshot_Banner(t *testing.T) {
	fill := func(n int) model.Form {
		f := model.Form{}
		for _, lf := range SnapshotFields[:n] {
			if lf.Field == model.FieldTeamPhotos {
				f[lf.Field] = []string{"p1"}
				continue
			}
			f[lf.Field] = "x"
		}
		return f
	}

	tests := []struct {
		name   string
		filled int
		want   Banner
	}{
		{"空表单", 0, BannerEmpty},
		{"6/16 低于 40%", 6, BannerEmpty},
		{"7/16 达到 40%", 7, BannerHalfway},
		{"11/16 低于 70%", 11, BannerHalfway},
		{"12/16 达到 70%", 12, BannerMostly},
		{"15/16", 15, BannerMostly},
		{"16/16", 16, BannerComplete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := TakeSnapshot(fill(tt.filled))
			assert.Equal(t, tt.filled, snap.Completed)
			assert.Equal(t, 16, snap.Total)
			assert.Equal(t, tt.want, snap.Banner)
		})
	}
}

func TestTakeSnapshot_Idempotent(t *testing.T) {
	f := model.Form{
		model.FieldPlatform:    "PC - Steam",
		model.FieldCoinAccount: "245000",
		model.FieldTeamPhotos:  []string{"a", "b"},
	}

	first := TakeSnapshot(f)
	second := TakeSnapshot(f)
	assert.Equal(t, first.Banner, second.Banner)
	assert.Equal(t, first.Ratio(), second.Ratio())
	assert.Equal(t, first.Render(), second.Render())
}

func TestSnapshot_Render(t *testing.T) {
	link := "https://t.me/market/abcdefghijklmnop"
	f := model.Form{
		model.FieldPurchaseLink: link,
		model.FieldTeamPhotos:   []string{"a", "b"},
		model.FieldEmailType:    "   ",
	}

	text := TakeSnapshot(f).Render()
	assert.Contains(t, text, "✅ 🛒 Purchase link: "+link[:25]+"...")
	assert.Contains(t, text, "✅ 📸 Team photos: 2 photos")
	assert.Contains(t, text, "❌ 📧 Email type: not entered")
	assert.Contains(t, text, "📊 Completion: 2/16")
	assert.Equal(t, link, f.String(model.FieldPurchaseLink), "存储值不截断")
}

func TestSummary_OnlyFilledFields(t *testing.T) {
	text := Summary(model.Form{model.FieldPrice: "250000"})
	assert.Contains(t, text, "💵 Price: 250000")
	assert.Equal(t, 3, len(strings.Split(text, "\n")))
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "💰 Coin balance", Label(model.FieldCoinAccount))
	assert.Equal(t, "platform_details", Label(model.FieldPlatformDetails))
}
