package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"account_listing_bot/internal/form"
	"account_listing_bot/internal/middleware"
	"account_listing_bot/internal/model"
	"account_listing_bot/internal/pricing"
	"account_listing_bot/internal/session"
	"account_listing_bot/pkg/utils"
)

// Option 封闭选项（邮箱类型、Web App）
type Option struct {
	Code string
	Name string
}

// emailOther 选择后转为自由文本输入
const emailOther = "other"

// FormConfig 表单引擎配置
type FormConfig struct {
	Limits           form.Limits
	Directory        *form.Directory
	EmailTypes       []Option
	WebAppTypes      []Option
	ChannelUsername  string
	PurchaseLinkBase string
	EstimateCooldown time.Duration
	SubmitCooldown   time.Duration
}

// FormService 会话引擎：把一次入站事件映射为会话变更和若干回复
// 事件由单个消费者顺序处理
type FormService struct {
	store      *session.Store
	validator  *form.Validator
	cascade    *form.Cascade
	estimator  *pricing.Estimator
	listings   *ListingService
	membership MembershipChecker
	cooldown   *middleware.Cooldown
	cfg        FormConfig
	log        *zap.Logger
}

func NewFormService(
	store *session.Store,
	estimator *pricing.Estimator,
	listings *ListingService,
	membership MembershipChecker,
	cooldown *middleware.Cooldown,
	cfg FormConfig,
	log *zap.Logger,
) *FormService {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Directory == nil {
		cfg.Directory = form.DefaultDirectory()
	}
	cascade := form.NewCascade(cfg.Directory, cfg.Limits.DayCap())
	return &FormService{
		store:      store,
		validator:  form.NewValidator(cascade),
		cascade:    cascade,
		estimator:  estimator,
		listings:   listings,
		membership: membership,
		cooldown:   cooldown,
		cfg:        cfg,
		log:        log,
	}
}

// ==================== 入站：文本 ====================

// HandleText 纯文本事件
// 顺序：激活的子状态 -> awaiting_field 直写 -> 菜单命令 -> 兜底提示
func (s *FormService) HandleText(ctx context.Context, u User, text string) []Reply {
	if sess := s.store.Get(u.ID); sess != nil {
		if sess.Active != nil && form.ClaimsText(sess.Active) {
			return s.process(u.ID, sess.Active, form.TextInput(text))
		}
		if sess.AwaitingField != "" {
			return s.captureAwaiting(u.ID, sess.AwaitingField, text)
		}
	}

	switch strings.TrimSpace(text) {
	case MenuStart, MenuRestart:
		return s.start(ctx, u)
	case MenuGuide:
		return []Reply{{Text: fmt.Sprintf(textGuide, MenuSell, form.CancelCommand), Controls: Controls{MainMenu: true}}}
	case MenuSell:
		return s.openForm(ctx, u)
	case MenuMyListings:
		return s.myListings(ctx, u)
	}
	return []Reply{{Text: textRoutingMiss, Controls: Controls{MainMenu: true}}}
}

// HandlePhoto 图片事件，只有图片上传子状态接收
func (s *FormService) HandlePhoto(ctx context.Context, u User, fileID string) []Reply {
	if sess := s.store.Get(u.ID); sess != nil {
		if st, ok := sess.Active.(*form.PhotoUploadState); ok {
			return s.process(u.ID, st, form.PhotoInput(fileID))
		}
	}
	return []Reply{{Text: textPhotoNotAsked}}
}

// HandleDocument 文件事件，上传图片时拒绝且不占名额
func (s *FormService) HandleDocument(ctx context.Context, u User) []Reply {
	if sess := s.store.Get(u.ID); sess != nil {
		if st, ok := sess.Active.(*form.PhotoUploadState); ok {
			return s.process(u.ID, st, form.DocumentInput())
		}
	}
	return []Reply{{Text: textRoutingMiss, Controls: Controls{MainMenu: true}}}
}

// process 把输入交给子状态并应用结果
func (s *FormService) process(userID int64, st form.SubState, in form.Input) []Reply {
	out := s.validator.Process(st, in)
	s.log.Debug("sub-state outcome",
		zap.Int64("user_id", userID),
		zap.String("kind", string(st.Kind())),
		zap.String("outcome", out.Kind.String()),
		zap.Error(out.Err()))
	return s.apply(userID, out)
}

// apply 应用子状态结果；Active 单槽位保证同一时刻只有一个子状态
func (s *FormService) apply(userID int64, out form.Outcome) []Reply {
	switch out.Kind {
	case form.OutcomeAccepted:
		for field, value := range out.Writes() {
			s.store.WriteField(userID, field, value)
		}
		s.store.Deactivate(userID)
		return []Reply{{Text: out.Message}, s.formReply(userID, "")}
	case form.OutcomeContinuation:
		for field, value := range out.Writes() {
			s.store.WriteField(userID, field, value)
		}
		s.store.Activate(userID, out.Next)
		return []Reply{{Text: out.Message, Controls: Controls{Inline: backToForm()}}}
	case form.OutcomeCancelled:
		s.store.Deactivate(userID)
		return []Reply{s.formReply(userID, out.Message)}
	default:
		// Rejected / Pending：子状态保持
		if st, ok := s.activePlatform(userID); ok {
			return []Reply{{Text: out.Message, Controls: Controls{Inline: platformMenu(s.cfg.Directory, st)}}}
		}
		return []Reply{{Text: out.Message, Controls: Controls{Inline: backToForm()}}}
	}
}

// captureAwaiting 通用直写路径，不做校验
func (s *FormService) captureAwaiting(userID int64, field model.Field, text string) []Reply {
	value := strings.TrimSpace(text)
	s.store.WriteField(userID, field, value)
	s.store.Await(userID, "")
	s.log.Debug("awaiting field captured", zap.Int64("user_id", userID), zap.String("field", string(field)))
	return []Reply{{Text: fmt.Sprintf("✅ %s saved: %s", form.Label(field), value)}, s.formReply(userID, "")}
}

// ==================== 入站：按钮 ====================

// HandleCallback 按钮事件
func (s *FormService) HandleCallback(ctx context.Context, u User, data string) []Reply {
	if action, id, ok := parseCallbackID(data); ok {
		switch action {
		case ActionApprove, ActionReject:
			return s.review(ctx, u, id, action == ActionApprove)
		case ActionEdit:
			return s.editListing(ctx, u, id)
		}
		return []Reply{{Text: textRoutingMiss, Controls: Controls{MainMenu: true}}}
	}

	switch data {
	case CbBackToMenu:
		s.store.Clear(u.ID)
		return []Reply{{Text: textBackToMenu, Controls: Controls{MainMenu: true}}}
	case CbCheckJoin:
		return s.checkJoin(ctx, u)
	case CbBackToForm:
		s.settle(u.ID)
		return []Reply{s.formReply(u.ID, form.MsgBackToForm)}
	}

	// 以下按钮都要求有进行中的会话
	sess := s.store.Get(u.ID)
	if sess == nil {
		return []Reply{{Text: textSessionLost, Controls: Controls{MainMenu: true}}}
	}

	switch {
	case data == CbShowData:
		return s.showData(sess)
	case data == CbSaleMethod:
		return []Reply{{Text: textSaleRules, Controls: Controls{Inline: saleRulesMenu()}}}
	case data == CbAcceptRules:
		return []Reply{{Text: textChooseSale, Controls: Controls{Inline: saleMethodMenu()}}}
	case data == CbSaleSelf:
		return s.saleSelf(u)
	case data == CbSaleChannel:
		return s.saleChannel(u)
	case data == CbEmailType:
		return []Reply{{Text: "📧 Choose the email type of the account:", Controls: Controls{Inline: optionMenu(PrefixEmail, s.cfg.EmailTypes)}}}
	case data == CbWebApp:
		return []Reply{{Text: "🌐 Choose the web app transfer type:", Controls: Controls{Inline: optionMenu(PrefixWebApp, s.cfg.WebAppTypes)}}}
	case data == CbPlatform:
		st := s.cascade.Start()
		s.store.Activate(u.ID, st)
		return []Reply{{Text: form.Prompt(st), Controls: Controls{Inline: platformMenu(s.cfg.Directory, st)}}}
	case data == CbBackToPlatform:
		return s.platformStep(u.ID, func(st *form.PlatformState) form.Outcome { return s.cascade.Back(st) })
	case data == CbEstimate:
		return s.estimate(u, sess)
	case data == CbFinalSubmit:
		return s.finalSubmit(sess)
	case data == CbConfirmSubmit:
		return s.confirmSubmit(ctx, u, sess)
	case data == CbTeamPhotos:
		return s.activateField(u.ID, model.FieldTeamPhotos)
	case strings.HasPrefix(data, PrefixSubPlatform):
		sub := strings.TrimPrefix(data, PrefixSubPlatform)
		return s.platformStep(u.ID, func(st *form.PlatformState) form.Outcome { return s.cascade.SelectSub(st, sub) })
	case strings.HasPrefix(data, PrefixPlatform):
		main := strings.TrimPrefix(data, PrefixPlatform)
		if _, ok := s.activePlatform(u.ID); !ok {
			s.store.Activate(u.ID, s.cascade.Start())
		}
		return s.platformStep(u.ID, func(st *form.PlatformState) form.Outcome { return s.cascade.SelectMain(st, main) })
	case strings.HasPrefix(data, PrefixEmail):
		return s.chooseEmail(u.ID, strings.TrimPrefix(data, PrefixEmail))
	case strings.HasPrefix(data, PrefixWebApp):
		return s.chooseOption(u.ID, model.FieldWebApp, s.cfg.WebAppTypes, strings.TrimPrefix(data, PrefixWebApp))
	}

	if field := model.Field(data); field.Valid() {
		return s.activateField(u.ID, field)
	}
	return []Reply{{Text: textRoutingMiss, Controls: Controls{MainMenu: true}}}
}

// ==================== 菜单 ====================

func (s *FormService) start(ctx context.Context, u User) []Reply {
	if replies, ok := s.requireMember(ctx, u); !ok {
		return replies
	}
	name := u.FirstName
	if name == "" {
		name = u.Contact()
	}
	return []Reply{{Text: fmt.Sprintf(textWelcome, name), Controls: Controls{MainMenu: true}}}
}

// openForm 成员检查 + 额度检查后进入表单
func (s *FormService) openForm(ctx context.Context, u User) []Reply {
	if replies, ok := s.requireMember(ctx, u); !ok {
		return replies
	}
	if err := s.listings.CheckQuota(ctx, u.ID); err != nil {
		if errors.Is(err, ErrQuotaUsed) {
			return []Reply{{Text: textQuotaUsed, Controls: Controls{MainMenu: true}}}
		}
		s.log.Error("检查免费额度失败", zap.Int64("user_id", u.ID), zap.Error(err))
		return []Reply{{Text: textSubmitFailed, Controls: Controls{MainMenu: true}}}
	}

	s.store.GetOrCreate(u.ID)
	intro := textFormIntro
	if s.listings.IsPrivileged(u.ID) {
		intro = textPrivileged + intro
	}
	return []Reply{s.formReply(u.ID, intro)}
}

func (s *FormService) requireMember(ctx context.Context, u User) ([]Reply, bool) {
	ok, err := s.membership.IsMember(ctx, u.ID)
	if err != nil {
		s.log.Warn("检查频道成员失败", zap.Int64("user_id", u.ID), zap.Error(err))
		return []Reply{{Text: textMembershipErr}}, false
	}
	if !ok {
		return []Reply{{Text: textJoinFirst, Controls: Controls{Inline: joinMenu(s.cfg.ChannelUsername)}}}, false
	}
	return nil, true
}

func (s *FormService) checkJoin(ctx context.Context, u User) []Reply {
	ok, err := s.membership.IsMember(ctx, u.ID)
	if err != nil {
		return []Reply{{Text: textMembershipErr}}
	}
	if !ok {
		return []Reply{{Text: textNotMemberYet, Controls: Controls{Inline: joinMenu(s.cfg.ChannelUsername)}}}
	}
	return []Reply{{Text: textJoinThanks, Controls: Controls{MainMenu: true}}}
}

func (s *FormService) myListings(ctx context.Context, u User) []Reply {
	var b strings.Builder
	if s.listings.IsPrivileged(u.ID) {
		b.WriteString("👑 Privileged account: no listing limit.\n\n")
	} else if err := s.listings.CheckQuota(ctx, u.ID); errors.Is(err, ErrQuotaUsed) {
		b.WriteString("ℹ️ Your free listing has been used.\n\n")
	} else {
		b.WriteString("ℹ️ You can still submit one free listing.\n\n")
	}

	listings, err := s.listings.MyListings(ctx, u.ID)
	if err != nil {
		s.log.Error("查询用户 listing 失败", zap.Int64("user_id", u.ID), zap.Error(err))
		return []Reply{{Text: textSubmitFailed, Controls: Controls{MainMenu: true}}}
	}
	if len(listings) == 0 {
		b.WriteString(textNoListings)
		return []Reply{{Text: b.String(), Controls: Controls{MainMenu: true}}}
	}

	var rows [][]Button
	b.WriteString("📂 Your listings:\n")
	for _, l := range listings {
		title := fmt.Sprintf("#%d", l.ID)
		if f, err := l.Form(); err == nil && f.Has(model.FieldPlatform) {
			title += " " + f.String(model.FieldPlatform)
		}
		fmt.Fprintf(&b, "• %s (%s)\n", title, l.Status)
		rows = append(rows, []Button{{Text: "✏️ Edit " + title, Data: CallbackWithID(ActionEdit, l.ID)}})
	}
	return []Reply{{Text: strings.TrimRight(b.String(), "\n"), Controls: Controls{Inline: rows}}}
}

// ==================== 字段 ====================

// activateField 为字段激活对应子状态，替换已有子状态
func (s *FormService) activateField(userID int64, field model.Field) []Reply {
	st, ok := form.StateFor(field, s.cfg.Limits)
	if !ok {
		return []Reply{{Text: textRoutingMiss, Controls: Controls{Inline: backToForm()}}}
	}
	s.store.Activate(userID, st)
	return []Reply{{Text: form.Prompt(st), Controls: Controls{Inline: backToForm()}}}
}

func (s *FormService) activePlatform(userID int64) (*form.PlatformState, bool) {
	sess := s.store.Get(userID)
	if sess == nil {
		return nil, false
	}
	st, ok := sess.Active.(*form.PlatformState)
	return st, ok
}

func (s *FormService) platformStep(userID int64, step func(*form.PlatformState) form.Outcome) []Reply {
	st, ok := s.activePlatform(userID)
	if !ok {
		return []Reply{s.formReply(userID, textSessionLost)}
	}
	return s.apply(userID, step(st))
}

func (s *FormService) chooseEmail(userID int64, code string) []Reply {
	if code == emailOther {
		s.store.Await(userID, model.FieldEmailType)
		return []Reply{{Text: textEmailOther, Controls: Controls{Inline: backToForm()}}}
	}
	return s.chooseOption(userID, model.FieldEmailType, s.cfg.EmailTypes, code)
}

// settle 按钮直接写值时结束正在进行的输入（子状态和 awaiting_field）
func (s *FormService) settle(userID int64) {
	if sess := s.store.Get(userID); sess != nil && !sess.Idle() {
		s.store.Await(userID, "")
	}
}

// chooseOption 封闭选项直接写入展示名
func (s *FormService) chooseOption(userID int64, field model.Field, options []Option, code string) []Reply {
	for _, o := range options {
		if o.Code == code {
			s.settle(userID)
			s.store.WriteField(userID, field, o.Name)
			return []Reply{s.formReply(userID, fmt.Sprintf("✅ %s saved: %s", form.Label(field), o.Name))}
		}
	}
	return []Reply{{Text: textRoutingMiss, Controls: Controls{Inline: backToForm()}}}
}

// saleSelf 自己联系：写入联系方式并移除购买链接
func (s *FormService) saleSelf(u User) []Reply {
	contact := u.Contact()
	s.settle(u.ID)
	s.store.DeleteField(u.ID, model.FieldPurchaseLink)
	s.store.WriteField(u.ID, model.FieldSaleMethod, saleMethodNames[CbSaleSelf])
	s.store.WriteField(u.ID, model.FieldUserContact, contact)
	return []Reply{s.formReply(u.ID, fmt.Sprintf("✅ Sale method saved: %s\n📱 Your ID: %s", saleMethodNames[CbSaleSelf], contact))}
}

// saleChannel 频道代售：生成购买链接并移除联系方式
func (s *FormService) saleChannel(u User) []Reply {
	link := utils.PurchaseLink(s.cfg.PurchaseLinkBase)
	s.settle(u.ID)
	s.store.DeleteField(u.ID, model.FieldUserContact)
	s.store.WriteField(u.ID, model.FieldSaleMethod, saleMethodNames[CbSaleChannel])
	s.store.WriteField(u.ID, model.FieldPurchaseLink, link)
	return []Reply{s.formReply(u.ID, fmt.Sprintf("✅ Sale method saved: %s\n🛒 Your purchase link:\n%s\n\nThe link is published after the admin approves your listing.", saleMethodNames[CbSaleChannel], link))}
}

// ==================== 估价与提交 ====================

func (s *FormService) estimate(u User, sess *session.Session) []Reply {
	if res := s.cooldown.Take(middleware.UserActionKey(u.ID, middleware.ActionEstimate), s.cfg.EstimateCooldown); !res.Allowed {
		return []Reply{{Text: middleware.RetryMessage(res.RetryAfter), Controls: Controls{Inline: backToForm()}}}
	}
	if !sess.Form.Has(model.FieldCoinAccount) {
		return []Reply{s.formReply(u.ID, missingFieldsText([]model.Field{model.FieldCoinAccount}))}
	}

	est, err := s.estimator.Estimate(sess.Form)
	if err != nil {
		s.log.Warn("估价失败", zap.Int64("user_id", u.ID), zap.Error(err))
		return []Reply{s.formReply(u.ID, pricing.FailureMessage)}
	}
	text := est.Summary() + "\n\n" + est.Details() + "\n\n" + textEstimateNote
	return []Reply{s.formReply(u.ID, text)}
}

func (s *FormService) showData(sess *session.Session) []Reply {
	if len(sess.Form) == 0 {
		return []Reply{s.formReply(sess.UserID, textNoData)}
	}
	return []Reply{{Text: form.TakeSnapshot(sess.Form).Render(), Controls: Controls{Inline: [][]Button{{{Text: "↩️ Back and edit", Data: CbBackToForm}}}}}}
}

func (s *FormService) finalSubmit(sess *session.Session) []Reply {
	if len(sess.Form) == 0 {
		return []Reply{s.formReply(sess.UserID, textFormEmpty)}
	}
	text := fmt.Sprintf(textConfirmSubmit, form.TakeSnapshot(sess.Form).Render())
	return []Reply{{Text: text, Controls: Controls{Inline: confirmMenu()}}}
}

// confirmSubmit 投递成功才清空会话；失败保留会话供重试
func (s *FormService) confirmSubmit(ctx context.Context, u User, sess *session.Session) []Reply {
	key := middleware.UserActionKey(u.ID, middleware.ActionSubmit)
	if res := s.cooldown.Peek(key, s.cfg.SubmitCooldown); !res.Allowed {
		return []Reply{{Text: middleware.RetryMessage(res.RetryAfter), Controls: Controls{Inline: confirmMenu()}}}
	}

	listing, err := s.listings.Submit(ctx, u, sess.Form, sess.PendingListingID)
	switch {
	case err == nil:
	case errors.Is(err, ErrEmptyForm):
		return []Reply{s.formReply(u.ID, textFormEmpty)}
	case errors.Is(err, ErrQuotaUsed):
		s.store.Clear(u.ID)
		return []Reply{{Text: textQuotaUsed, Controls: Controls{MainMenu: true}}}
	case errors.Is(err, ErrNotEditable):
		s.store.Clear(u.ID)
		return []Reply{{Text: textSessionLost, Controls: Controls{MainMenu: true}}}
	default:
		s.log.Error("提交失败", zap.Int64("user_id", u.ID), zap.Error(err))
		return []Reply{{Text: textSubmitFailed, Controls: Controls{Inline: confirmMenu()}}}
	}

	s.cooldown.Mark(key)
	edited := sess.PendingListingID != nil
	s.store.Clear(u.ID)
	if edited {
		return []Reply{{Text: fmt.Sprintf(textEdited, listing.ID), Controls: Controls{MainMenu: true}}}
	}
	return []Reply{{Text: textSubmitted, Controls: Controls{MainMenu: true}}}
}

// ==================== listing 回调 ====================

func (s *FormService) editListing(ctx context.Context, u User, id int64) []Reply {
	f, err := s.listings.LoadForEdit(ctx, u.ID, id)
	if err != nil {
		if !errors.Is(err, ErrNotEditable) {
			s.log.Error("加载 listing 失败", zap.Int64("listing_id", id), zap.Error(err))
		}
		return []Reply{{Text: textSessionLost, Controls: Controls{MainMenu: true}}}
	}
	s.store.Start(u.ID, f, &id)
	return []Reply{s.formReply(u.ID, fmt.Sprintf(textEditing, id)+textFormIntro)}
}

func (s *FormService) review(ctx context.Context, u User, id int64, approve bool) []Reply {
	if !s.listings.IsAdmin(u.ID) {
		return []Reply{{Text: textRoutingMiss}}
	}
	listing, err := s.listings.Review(ctx, id, approve, u.ID)
	if err != nil {
		return []Reply{{Text: fmt.Sprintf("⚠️ Listing #%d: %v", id, err)}}
	}
	return []Reply{{Text: fmt.Sprintf("Listing #%d is now %s.", id, listing.Status)}}
}

// formReply 表单主界面，附带已填字段摘要
func (s *FormService) formReply(userID int64, header string) Reply {
	var b strings.Builder
	if header != "" {
		b.WriteString(header)
		b.WriteString("\n\n")
	}
	if sess := s.store.Get(userID); sess != nil && len(sess.Form) > 0 {
		b.WriteString(form.Summary(sess.Form))
	} else {
		b.WriteString("🟢 Please choose a field:")
	}
	return Reply{Text: b.String(), Controls: Controls{Inline: formMenu()}}
}
