// Package form 表单会话引擎：字段校验子状态机、平台级联选择、完成度快照
package form

import "account_listing_bot/internal/model"

// Kind 子状态类型
type Kind string

const (
	KindCharCount   Kind = "char_count"
	KindNumber      Kind = "number"
	KindDivision    Kind = "division"
	KindPhotoUpload Kind = "photo_upload"
	KindPlayerValue Kind = "player_value"
	KindPlatform    Kind = "platform"
)

// SubState 某个字段的多轮输入子状态
// 每个用户同一时刻最多一个，由 session.Session.Active 单槽位保证
type SubState interface {
	Kind() Kind
}

// CharCountState 有长度上限的自由文本
type CharCountState struct {
	Field    model.Field
	MaxChars int
}

// NumberState 有位数上限的纯数字
type NumberState struct {
	Field     model.Field
	MaxDigits int
}

// DivisionState 1-10 的整数或 5 个字母
type DivisionState struct {
	Field model.Field
}

// PhotoUploadState 图片引用列表，达到上限即完成
type PhotoUploadState struct {
	Field     model.Field
	MaxPhotos int
	Photos    []string
}

// PlayerValueState 球员名称之后的价值录入，只要求纯数字
type PlayerValueState struct {
	Field      model.Field
	PlayerType string
}

// PlatformStep 平台级联的层级
type PlatformStep int

const (
	StepChooseMain PlatformStep = iota + 1
	StepChooseSub
	StepEnterDays
)

// PlatformState 平台三级选择
type PlatformState struct {
	Step PlatformStep
	Main string
	Sub  string
}

func (*CharCountState) Kind() Kind   { return KindCharCount }
func (*NumberState) Kind() Kind      { return KindNumber }
func (*DivisionState) Kind() Kind    { return KindDivision }
func (*PhotoUploadState) Kind() Kind { return KindPhotoUpload }
func (*PlayerValueState) Kind() Kind { return KindPlayerValue }
func (*PlatformState) Kind() Kind    { return KindPlatform }

// ClaimsText 该子状态是否接管纯文本输入
// 平台级联只有在录入天数时才接管文本，前两级只接受按钮
func ClaimsText(st SubState) bool {
	if st == nil {
		return false
	}
	if p, ok := st.(*PlatformState); ok {
		return p.Step == StepEnterDays
	}
	return true
}
