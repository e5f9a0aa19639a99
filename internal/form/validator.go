package form

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"account_listing_bot/internal/model"
	"account_listing_bot/pkg/utils"
)

// Input 一次入站事件的载荷：文本、图片或其他文件
type Input struct {
	Text     string
	PhotoID  string
	Document bool
}

func TextInput(text string) Input {
	return Input{Text: text}
}

func PhotoInput(fileID string) Input {
	return Input{PhotoID: fileID}
}

func DocumentInput() Input {
	return Input{Document: true}
}

func (in Input) isText() bool {
	return in.PhotoID == "" && !in.Document
}

func (in Input) trimmed() string {
	return strings.TrimSpace(in.Text)
}

func (in Input) isCancel() bool {
	return in.isText() && in.trimmed() == CancelCommand
}

// Validator 按激活的子状态类型分派输入
type Validator struct {
	cascade *Cascade
}

func NewValidator(cascade *Cascade) *Validator {
	return &Validator{cascade: cascade}
}

// Process 处理一次输入；st 为 nil 时视为已取消
func (v *Validator) Process(st SubState, in Input) Outcome {
	switch s := st.(type) {
	case *CharCountState:
		return v.charCount(s, in)
	case *NumberState:
		return v.number(s, in)
	case *DivisionState:
		return v.division(s, in)
	case *PhotoUploadState:
		return v.photoUpload(s, in)
	case *PlayerValueState:
		return v.playerValue(s, in)
	case *PlatformState:
		return v.cascade.HandleInput(s, in)
	default:
		return Cancelled(MsgBackToForm)
	}
}

// ==================== 文本长度 ====================

func (v *Validator) charCount(s *CharCountState, in Input) Outcome {
	if in.isCancel() {
		return Cancelled(MsgBackToForm)
	}
	if !in.isText() {
		return Rejected(withPrompt(MsgTextExpected, s))
	}

	text := in.trimmed()
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return Rejected(withPrompt(MsgTextExpected, s))
	}
	if n > s.MaxChars {
		return Rejected(withPrompt(fmt.Sprintf(
			"❌ The names are longer than allowed!\n📝 Characters entered: %d\n✅ Maximum: %d characters", n, s.MaxChars), s))
	}

	switch s.Field {
	case model.FieldTradePlayers:
		next := &PlayerValueState{Field: model.FieldTradePlayersValue, PlayerType: PlayerTypeTrade}
		return Continuation(s.Field, text, next, "✅ Trade player names saved.\n\n"+Prompt(next))
	case model.FieldNonTradePlayers:
		next := &PlayerValueState{Field: model.FieldNonTradePlayersValue, PlayerType: PlayerTypeNonTrade}
		return Continuation(s.Field, text, next, "✅ Non-trade player names saved.\n\n"+Prompt(next))
	}
	return Accepted(s.Field, text, "✅ Saved:\n"+text)
}

// ==================== 数字 ====================

func (v *Validator) number(s *NumberState, in Input) Outcome {
	if in.isCancel() {
		return Cancelled(MsgBackToForm)
	}
	template := NumberPrompt(s.Field, s.MaxDigits)
	if !in.isText() {
		return Rejected(MsgTextExpected + "\n" + template)
	}

	text := in.trimmed()
	if text == "" {
		return Rejected(template)
	}
	if !utils.IsASCIIDigits(text) {
		return Rejected(MsgDigitsOnly + "\n" + template)
	}
	if len(text) > s.MaxDigits {
		return Rejected(fmt.Sprintf("❌ Too many digits!\n📊 Digits entered: %d\n✅ Maximum: %d digits\n\n%s",
			len(text), s.MaxDigits, template))
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return Rejected("❌ Could not read the number!\n" + template)
	}
	return Accepted(s.Field, text, fmt.Sprintf("✅ %s: %s", numberSuccessMessage(s.Field), utils.FormatInt(n)))
}

// ==================== Division Rivals ====================

// division 两种合法形态：1-10 的整数，或恰好 5 个字母
func (v *Validator) division(s *DivisionState, in Input) Outcome {
	if in.isCancel() {
		return Cancelled(MsgBackToForm)
	}
	if !in.isText() {
		return Rejected(withPrompt(MsgTextExpected, s))
	}

	text := in.trimmed()
	if text == "" {
		return Rejected(withPrompt(MsgDivisionEmpty, s))
	}

	if utils.IsASCIIDigits(text) {
		n, err := strconv.Atoi(text)
		if err != nil || n < 1 || n > 10 {
			return Rejected(withPrompt(MsgDivisionRange, s))
		}
		return Accepted(s.Field, text, "✅ Division Rivals saved: "+text)
	}

	if isLetters(text) && utf8.RuneCountInString(text) == 5 {
		return Accepted(s.Field, text, "✅ Division Rivals saved: "+text)
	}
	return Rejected(withPrompt(MsgDivisionInvalid+" (letters only, exactly 5 characters)", s))
}

func isLetters(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// ==================== 图片上传 ====================

func (v *Validator) photoUpload(s *PhotoUploadState, in Input) Outcome {
	if in.isCancel() {
		return Cancelled(MsgBackToForm)
	}
	if in.PhotoID == "" {
		return Rejected(MsgPhotoExpected)
	}

	s.Photos = append(s.Photos, in.PhotoID)
	count := len(s.Photos)
	if count >= s.MaxPhotos {
		photos := append([]string(nil), s.Photos...)
		return Accepted(s.Field, photos, fmt.Sprintf("✅ %d photos saved.\n\n%s", count, MsgBackToForm))
	}
	return Pending(fmt.Sprintf("✅ Photo %d saved.\n\n📸 You can send %d more.", count, s.MaxPhotos-count))
}

// ==================== 球员价值 ====================

// playerValue 只要求纯数字，没有位数上限
func (v *Validator) playerValue(s *PlayerValueState, in Input) Outcome {
	if in.isCancel() {
		return Cancelled(MsgBackToForm)
	}
	if !in.isText() {
		return Rejected(withPrompt(MsgTextExpected, s))
	}

	text := in.trimmed()
	if text == "" {
		return Rejected(withPrompt(MsgNumberRequired, s))
	}
	if !utils.IsASCIIDigits(text) {
		return Rejected(withPrompt(MsgDigitsOnly, s))
	}
	return Accepted(s.Field, text, fmt.Sprintf("✅ Value of %s players saved: %s coins", s.PlayerType, utils.FormatDigits(text)))
}
