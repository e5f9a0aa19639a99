package form

import (
	"fmt"

	"account_listing_bot/internal/model"
)

// CancelCommand 子状态内的显式返回命令
const CancelCommand = "/back"

const (
	PlayerTypeTrade    = "trade"
	PlayerTypeNonTrade = "non-trade"
)

const (
	MsgBackToForm      = "You are back on the main form."
	MsgTextExpected    = "❌ Please send text for this field."
	MsgPhotoExpected   = "❌ Only photos are allowed!\n\nPlease send a photo (JPG, JPEG, PNG, WEBP)."
	MsgDigitsOnly      = "❌ Only English digits are allowed!"
	MsgNumberRequired  = "❌ Please enter a number."
	MsgDivisionEmpty   = "❌ Please enter a value."
	MsgDivisionRange   = "❌ The number must be between 1 and 10."
	MsgDivisionInvalid = "❌ The value is not valid."
	MsgDaysDigitsOnly  = "❌ Please enter digits only (example: 110)"
	MsgDaysOutOfRange  = "❌ The number of days is not valid. Please enter a valid number."
	MsgUnknownPlatform = "❌ Unknown platform option, please choose from the buttons."
)

// numberTemplates 数字字段的提示模板，按字段区分，缺省走通用模板
var numberTemplates = map[model.Field]string{
	model.FieldCoinAccount:  "💰 Please enter the coin balance of the account.\nExample: 245000\n\nℹ️ English digits only\n🔢 At most %d digits",
	model.FieldMatchEarning: "🏆 Please enter your match earning.\nExample: 1200\n\nℹ️ English digits only\n🔢 At most %d digits",
	model.FieldSeasonLevel:  "⭐ Please enter your season level.\nExample: 5\n\nℹ️ English digits only\n🔢 At most %d digits",
	model.FieldPrice:        "💵 Enter the asking price of the account.\nExample: 250000\n\nℹ️ English digits only\n🔢 At most %d digits",
}

const genericNumberTemplate = "Please enter a valid number (at most %d digits)"

var numberSuccess = map[model.Field]string{
	model.FieldCoinAccount:  "Coin balance saved",
	model.FieldMatchEarning: "Match earning saved",
	model.FieldSeasonLevel:  "Season level saved",
	model.FieldPrice:        "Account price saved",
}

// NumberPrompt 数字字段提示
func NumberPrompt(field model.Field, maxDigits int) string {
	tpl, ok := numberTemplates[field]
	if !ok {
		tpl = genericNumberTemplate
	}
	return fmt.Sprintf(tpl, maxDigits)
}

func numberSuccessMessage(field model.Field) string {
	if msg, ok := numberSuccess[field]; ok {
		return msg
	}
	return "Saved"
}

func playerType(field model.Field) string {
	switch field {
	case model.FieldNonTradePlayers, model.FieldNonTradePlayersValue:
		return PlayerTypeNonTrade
	default:
		return PlayerTypeTrade
	}
}

const divisionPrompt = "🏅 Please enter your Division Rivals rank:\n- a 5-letter word (e.g. Elite)\n- or a number from 1 to 10"

// Prompt 子状态的输入说明，拒绝时会附在错误原因之后
func Prompt(st SubState) string {
	switch s := st.(type) {
	case *CharCountState:
		return fmt.Sprintf("Please enter the names of your best %s players.\nExample: Mbappe De Jong Pedri\n\n📝 Characters available: %d/%d\n⚠️ At most %d characters",
			playerType(s.Field), s.MaxChars, s.MaxChars, s.MaxChars)
	case *NumberState:
		return NumberPrompt(s.Field, s.MaxDigits)
	case *DivisionState:
		return divisionPrompt
	case *PhotoUploadState:
		return fmt.Sprintf("📸 Please send up to %d photos of your account.\n\n• Only image files are accepted\n• Formats: JPG, JPEG, PNG, WEBP\n\n↩️ %s to return to the form",
			s.MaxPhotos, CancelCommand)
	case *PlayerValueState:
		return fmt.Sprintf("💰 Please enter the total value of your %s players (in coins).\nExample: 400000\n\nℹ️ English digits only", s.PlayerType)
	case *PlatformState:
		switch s.Step {
		case StepChooseSub:
			return "🎯 Please choose the account type:"
		case StepEnterDays:
			return fmt.Sprintf("📅 How many days of the subscription are left?\nSend the number of remaining days (example: 110)\n\n↩️ %s to go back", CancelCommand)
		default:
			return "🎮 Please choose your platform:"
		}
	default:
		return ""
	}
}

func withPrompt(reason string, st SubState) string {
	return reason + "\n\n" + Prompt(st)
}
