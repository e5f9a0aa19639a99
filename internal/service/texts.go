package service

import (
	"fmt"
	"strconv"
	"strings"

	"account_listing_bot/internal/form"
	"account_listing_bot/internal/model"
)

// ==================== 回调数据 ====================

const (
	CbBackToMenu     = "back_to_menu"
	CbBackToForm     = "back_to_form"
	CbCheckJoin      = "check_join"
	CbShowData       = "show_entered_data"
	CbSaleMethod     = "sale_method"
	CbAcceptRules    = "accept_rules"
	CbSaleSelf       = "sale_method_self"
	CbSaleChannel    = "sale_method_channel"
	CbEmailType      = "email_type"
	CbWebApp         = "web_app"
	CbPlatform       = "platform"
	CbBackToPlatform = "back_to_platform"
	CbEstimate       = "estimate_price"
	CbFinalSubmit    = "final_submit"
	CbConfirmSubmit  = "confirm_final_submit"
	CbTeamPhotos     = "team_photo"

	PrefixEmail       = "email_"
	PrefixWebApp      = "web_"
	PrefixPlatform    = "platform_"
	PrefixSubPlatform = "subplatform_"

	// 带参数的回调：<action>|<id>
	ActionApprove = "admin_approve"
	ActionReject  = "admin_reject"
	ActionEdit    = "edit_listing"
)

// CallbackWithID 组装带 ID 的回调数据
func CallbackWithID(action string, id int64) string {
	return action + "|" + strconv.FormatInt(id, 10)
}

// parseCallbackID 解析 <action>|<id>
func parseCallbackID(data string) (string, int64, bool) {
	action, raw, ok := strings.Cut(data, "|")
	if !ok {
		return "", 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return "", 0, false
	}
	return action, id, true
}

// ==================== 主菜单 ====================

const (
	MenuStart      = "/start"
	MenuRestart    = "🔄 Restart"
	MenuSell       = "💰 Sell account"
	MenuMyListings = "📂 My listings"
	MenuGuide      = "📖 Guide"
)

// MainMenuRows 主菜单回复键盘
var MainMenuRows = [][]string{
	{MenuSell, MenuMyListings},
	{MenuGuide, MenuRestart},
}

// ==================== 文案 ====================

const (
	textWelcome       = "Hi %s! 👋\n\nWelcome to the account market bot. Use the menu below to sell your account."
	textGuide         = "📖 Guide\n\n1. Tap \"%s\" and fill in the form step by step.\n2. Use \"Estimate price\" to get a rough price.\n3. Review your data and tap \"Final submit\".\n4. An admin reviews your listing before it is published.\n\nSend %s inside any step to return to the form."
	textJoinFirst     = "Please join our channel first."
	textJoinThanks    = "Thanks! You are a member. Use the main menu."
	textNotMemberYet  = "You are not a member of the channel yet. Please join."
	textMembershipErr = "❌ Could not verify your channel membership. Please try again later."
	textRoutingMiss   = "Please choose an option from the menu."
	textBackToMenu    = "🏠 You are back on the main menu."
	textFormIntro     = "🤖 Account form\n\n💎 You can list one account for free.\n⚠️ After the final submit the free listing cannot be changed.\n\n🟢 Please choose a field:"
	textPrivileged    = "👑 [Privileged mode - no limits]\n\n"
	textQuotaUsed     = "❌ You have already used your free listing."
	textFormEmpty     = "❌ The form is empty. Please fill in the fields before the final submit."
	textNoData        = "❌ You have not entered any information yet.\n\nPlease fill in the form first."
	textSessionLost   = "⚠️ This form is no longer active. Please start again from the menu."
	textPhotoNotAsked = "📸 To upload photos, open the form and choose \"Team photos\"."
	textEmailOther    = "📧 Please type your email provider:"
	textSaleRules     = "📜 Sale rules\n\n• The information you enter must be accurate.\n• The admin may reject listings with wrong data.\n• Channel sales are handled by the channel admins.\n\nDo you accept the rules?"
	textChooseSale    = "✅ Thanks for accepting the rules.\n\nPlease choose how you want to sell:"
	textEstimateNote  = "⚠️ The bot price is approximate and may not reflect the latest market."
	textConfirmSubmit = "⚠️ By tapping final submit your account information is sent to the admin to be published in the channel.\n🔍 Please make sure the information below is correct:\n\n%s\n\nAre you sure you want to submit?"
	textSubmitted     = "✅ Your account information was submitted and sent to the admin for review.\n\n📋 Once approved it will be published in the channel.\n⏳ Review time: up to 24 hours\n\nThank you! 🙏"
	textEdited        = "✅ Your listing #%d was updated and sent to the admin for review again."
	textSubmitFailed  = "❌ Could not send your information to the admin. Please try again or contact support."
	textNoListings    = "📂 You have no active or pending listings."
	textEditing       = "✏️ Editing listing #%d\n\n"
	textApproved      = "✅ Your listing #%d was approved and published."
	textRejected      = "❌ Your listing #%d was rejected by the admin."
)

var saleMethodNames = map[string]string{
	CbSaleSelf:    "Register my own ID",
	CbSaleChannel: "Sell through the channel",
}

// missingFieldsText 估价缺少必填字段
func missingFieldsText(fields []model.Field) string {
	labels := make([]string, 0, len(fields))
	for _, f := range fields {
		labels = append(labels, form.Label(f))
	}
	return "❌ To estimate the price please fill in:\n• " + strings.Join(labels, "\n• ")
}

// reviewPayload 发给管理员的审核内容
func reviewPayload(listingID int64, u User, f model.Form, editing bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👤 User: %d", u.ID)
	if contact := f.String(model.FieldUserContact); contact != "" {
		b.WriteString(" - " + contact)
	}
	if editing {
		fmt.Fprintf(&b, "\n✏️ Edited listing #%d", listingID)
	} else {
		fmt.Fprintf(&b, "\n📝 Listing #%d", listingID)
	}
	b.WriteString("\n\n")
	b.WriteString(form.TakeSnapshot(f).Render())
	return b.String()
}

// ==================== 键盘 ====================

func backToForm() [][]Button {
	return [][]Button{{{Text: "↩️ Back", Data: CbBackToForm}}}
}

// formMenu 表单主界面
func formMenu() [][]Button {
	return [][]Button{
		{{Text: "🎮 Platform", Data: CbPlatform}},
		{{Text: "📧 Email type", Data: CbEmailType}, {Text: "🌐 Web app", Data: CbWebApp}},
		{{Text: "💰 Coin balance", Data: string(model.FieldCoinAccount)}},
		{{Text: "⚡ Trade players", Data: string(model.FieldTradePlayers)}, {Text: "❌ Non-trade players", Data: string(model.FieldNonTradePlayers)}},
		{{Text: "💰 Trade value", Data: string(model.FieldTradePlayersValue)}, {Text: "💰 Non-trade value", Data: string(model.FieldNonTradePlayersValue)}},
		{{Text: "🏆 Match earning", Data: string(model.FieldMatchEarning)}, {Text: "⭐ Season level", Data: string(model.FieldSeasonLevel)}},
		{{Text: "🏅 Division Rivals", Data: string(model.FieldDivisionRivals)}, {Text: "📸 Team photos", Data: CbTeamPhotos}},
		{{Text: "📝 Sale method", Data: CbSaleMethod}, {Text: "💵 Price", Data: string(model.FieldPrice)}},
		{{Text: "🧮 Estimate price", Data: CbEstimate}, {Text: "👁 Show entered data", Data: CbShowData}},
		{{Text: "✅ Final submit", Data: CbFinalSubmit}},
		{{Text: "🏠 Main menu", Data: CbBackToMenu}},
	}
}

func optionMenu(prefix string, options []Option) [][]Button {
	rows := make([][]Button, 0, len(options)+1)
	for _, o := range options {
		rows = append(rows, []Button{{Text: o.Name, Data: prefix + o.Code}})
	}
	return append(rows, backToForm()...)
}

func saleRulesMenu() [][]Button {
	return [][]Button{
		{{Text: "✅ I accept", Data: CbAcceptRules}},
		{{Text: "↩️ Back", Data: CbBackToForm}},
	}
}

func saleMethodMenu() [][]Button {
	return [][]Button{
		{{Text: "👤 " + saleMethodNames[CbSaleSelf], Data: CbSaleSelf}},
		{{Text: "📢 " + saleMethodNames[CbSaleChannel], Data: CbSaleChannel}},
		{{Text: "↩️ Back", Data: CbSaleMethod}},
	}
}

func confirmMenu() [][]Button {
	return [][]Button{
		{{Text: "✅ Yes, submit", Data: CbConfirmSubmit}},
		{{Text: "↩️ Back and edit", Data: CbBackToForm}},
	}
}

func joinMenu(channel string) [][]Button {
	return [][]Button{
		{{Text: "📢 Join the channel", URL: "https://t.me/" + strings.TrimPrefix(channel, "@")}},
		{{Text: "✅ I joined (check again)", Data: CbCheckJoin}},
	}
}

func reviewMenu(listingID int64) [][]Button {
	return [][]Button{{
		{Text: "✅ Approve and publish", Data: CallbackWithID(ActionApprove, listingID)},
		{Text: "❌ Reject", Data: CallbackWithID(ActionReject, listingID)},
	}}
}

// platformMenu 按级联当前层级渲染
func platformMenu(dir *form.Directory, st *form.PlatformState) [][]Button {
	var rows [][]Button
	switch st.Step {
	case form.StepChooseMain:
		for _, b := range dir.Branches() {
			rows = append(rows, []Button{{Text: b.Name, Data: PrefixPlatform + b.Code}})
		}
		return append(rows, backToForm()...)
	case form.StepChooseSub:
		if b, ok := dir.Branch(st.Main); ok {
			for _, o := range b.Options {
				rows = append(rows, []Button{{Text: o.Name, Data: PrefixSubPlatform + o.Code}})
			}
		}
	}
	return append(rows, []Button{{Text: "↩️ Back", Data: CbBackToPlatform}})
}
