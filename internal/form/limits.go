package form

import "account_listing_bot/internal/model"

const (
	defaultMaxChars  = 25
	defaultMaxDigits = 8
	defaultMaxPhotos = 3
	defaultMaxDays   = 3650
)

// Limits 每个字段的外部配置约束，无论从哪个入口进入都相同
type Limits struct {
	CharLimits  map[model.Field]int
	DigitLimits map[model.Field]int
	MaxPhotos   int
	MaxDays     int
}

func (l Limits) MaxChars(field model.Field) int {
	if n, ok := l.CharLimits[field]; ok && n > 0 {
		return n
	}
	return defaultMaxChars
}

func (l Limits) MaxDigits(field model.Field) int {
	if n, ok := l.DigitLimits[field]; ok && n > 0 {
		return n
	}
	return defaultMaxDigits
}

func (l Limits) PhotoCap() int {
	if l.MaxPhotos > 0 {
		return l.MaxPhotos
	}
	return defaultMaxPhotos
}

func (l Limits) DayCap() int {
	if l.MaxDays > 0 {
		return l.MaxDays
	}
	return defaultMaxDays
}

// StateFor 根据字段构造初始子状态，第二个返回值表示该字段是否有子状态
// platform 不在此列，由 Cascade.Start 负责
func StateFor(field model.Field, limits Limits) (SubState, bool) {
	switch field {
	case model.FieldCoinAccount, model.FieldMatchEarning, model.FieldSeasonLevel, model.FieldPrice:
		return &NumberState{Field: field, MaxDigits: limits.MaxDigits(field)}, true
	case model.FieldTradePlayers, model.FieldNonTradePlayers:
		return &CharCountState{Field: field, MaxChars: limits.MaxChars(field)}, true
	case model.FieldTradePlayersValue:
		return &PlayerValueState{Field: field, PlayerType: PlayerTypeTrade}, true
	case model.FieldNonTradePlayersValue:
		return &PlayerValueState{Field: field, PlayerType: PlayerTypeNonTrade}, true
	case model.FieldDivisionRivals:
		return &DivisionState{Field: field}, true
	case model.FieldTeamPhotos:
		return &PhotoUploadState{Field: field, MaxPhotos: limits.PhotoCap()}, true
	default:
		return nil, false
	}
}
