package form

import (
	"fmt"
	"strconv"

	"account_listing_bot/internal/model"
	"account_listing_bot/pkg/utils"
)

const (
	MainPlayStation = "ps"
	MainXbox        = "xbox"
	MainPC          = "pc"

	// SubExtended 内置表中需要额外录入剩余天数的订阅选项
	SubExtended = "eaplay"

	unknownDisplayName = "Unknown"
)

// ==================== 平台目录 ====================

// Option 二级选项；AskDays 为 true 时进入第三级天数输入
type Option struct {
	Code    string
	Name    string
	AskDays bool
}

// Branch 一级平台及其二级选项
type Branch struct {
	Code    string
	Name    string
	Options []Option
}

// Directory 平台展示名称表，按 (main, sub) 查询
type Directory struct {
	branches []Branch
}

func NewDirectory(branches []Branch) *Directory {
	return &Directory{branches: branches}
}

// DefaultDirectory 内置平台表
func DefaultDirectory() *Directory {
	return NewDirectory([]Branch{
		{Code: MainPlayStation, Name: "PlayStation", Options: []Option{
			{Code: "ps3", Name: "Capacity 3"},
			{Code: "ps2", Name: "Capacity 2"},
			{Code: "psfull", Name: "Full"},
		}},
		{Code: MainXbox, Name: "Xbox", Options: []Option{
			{Code: "xboxhome", Name: "Home"},
			{Code: "xboxswitch", Name: "Switch"},
			{Code: "xboxfull", Name: "Full"},
		}},
		{Code: MainPC, Name: "PC", Options: []Option{
			{Code: "pcfull", Name: "Full game"},
			{Code: "pcsteam", Name: "Steam"},
			{Code: SubExtended, Name: "EA Play Pro", AskDays: true},
		}},
	})
}

func (d *Directory) Branches() []Branch {
	return d.branches
}

func (d *Directory) Branch(main string) (Branch, bool) {
	for _, b := range d.branches {
		if b.Code == main {
			return b, true
		}
	}
	return Branch{}, false
}

func (d *Directory) option(main, sub string) (Branch, Option, bool) {
	b, ok := d.Branch(main)
	if !ok {
		return Branch{}, Option{}, false
	}
	for _, o := range b.Options {
		if o.Code == sub {
			return b, o, true
		}
	}
	return b, Option{}, false
}

// DisplayName 组合展示名称，未知组合返回 "Unknown"
func (d *Directory) DisplayName(main, sub string) string {
	b, o, ok := d.option(main, sub)
	if !ok {
		return unknownDisplayName
	}
	return b.Name + " - " + o.Name
}

// RequiresDays 该二级选项是否需要第三级天数输入
func (d *Directory) RequiresDays(main, sub string) bool {
	_, o, ok := d.option(main, sub)
	return ok && o.AskDays
}

// ==================== 级联状态机 ====================

// Cascade 平台三级选择：平台 -> 子选项 -> 可选天数
type Cascade struct {
	dir     *Directory
	maxDays int
}

func NewCascade(dir *Directory, maxDays int) *Cascade {
	if dir == nil {
		dir = DefaultDirectory()
	}
	if maxDays <= 0 {
		maxDays = defaultMaxDays
	}
	return &Cascade{dir: dir, maxDays: maxDays}
}

func (c *Cascade) Directory() *Directory {
	return c.dir
}

// Start 进入第一级
func (c *Cascade) Start() *PlatformState {
	return &PlatformState{Step: StepChooseMain}
}

// SelectMain 第一级选择，任何层级都可以重新选平台
func (c *Cascade) SelectMain(st *PlatformState, main string) Outcome {
	if _, ok := c.dir.Branch(main); !ok {
		return Rejected(withPrompt(MsgUnknownPlatform, st))
	}
	st.Step = StepChooseSub
	st.Main = main
	st.Sub = ""
	return Pending(Prompt(st))
}

// SelectSub 第二级选择；除扩展订阅外直接完成 platform 字段
func (c *Cascade) SelectSub(st *PlatformState, sub string) Outcome {
	if st.Step != StepChooseSub {
		return Rejected(withPrompt(MsgUnknownPlatform, st))
	}
	if _, _, ok := c.dir.option(st.Main, sub); !ok {
		return Rejected(withPrompt(MsgUnknownPlatform, st))
	}

	if c.dir.RequiresDays(st.Main, sub) {
		st.Step = StepEnterDays
		st.Sub = sub
		return Pending(Prompt(st))
	}

	display := c.dir.DisplayName(st.Main, sub)
	return c.finalize(display, model.PlatformDetails{Main: st.Main, Sub: sub}, "✅ Platform saved: "+display)
}

// HandleInput 第三级的文本输入；前两级只接受按钮
func (c *Cascade) HandleInput(st *PlatformState, in Input) Outcome {
	if st.Step != StepEnterDays {
		return Rejected(withPrompt(MsgUnknownPlatform, st))
	}
	if in.isCancel() {
		return c.Back(st)
	}
	if !in.isText() {
		return Rejected(withPrompt(MsgTextExpected, st))
	}

	text := in.trimmed()
	if !utils.IsASCIIDigits(text) {
		return Rejected(withPrompt(MsgDaysDigitsOnly, st))
	}
	days, err := strconv.Atoi(text)
	if err != nil || days < 1 || days > c.maxDays {
		return Rejected(withPrompt(MsgDaysOutOfRange, st))
	}

	display := fmt.Sprintf("%s (%d days)", c.dir.DisplayName(st.Main, st.Sub), days)
	details := model.PlatformDetails{Main: st.Main, Sub: st.Sub, Days: days}
	return c.finalize(display, details, fmt.Sprintf("✅ Subscription saved: %d days", days))
}

// Back 第二、三级回到第一级；第一级退出级联且不写入
func (c *Cascade) Back(st *PlatformState) Outcome {
	if st.Step == StepChooseMain {
		return Cancelled(MsgBackToForm)
	}
	st.Step = StepChooseMain
	st.Main = ""
	st.Sub = ""
	return Pending(Prompt(st))
}

// finalize 同时覆盖 platform 和 platform_details，不做合并
func (c *Cascade) finalize(display string, details model.PlatformDetails, message string) Outcome {
	out := Accepted(model.FieldPlatform, display, message)
	out.Extra = map[model.Field]interface{}{model.FieldPlatformDetails: details}
	return out
}
