package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"account_listing_bot/internal/service"
	"account_listing_bot/pkg/telegram"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// ==================== Mock ====================

type mockAPI struct {
	mu sync.Mutex

	sent    []telegram.SendMessageParams
	photos  []telegram.SendPhotoParams
	edits   []telegram.EditMessageTextParams
	answers []string

	SendPhotoFn     func(p telegram.SendPhotoParams) error
	EditFn          func(p telegram.EditMessageTextParams) error
	GetChatMemberFn func(chatID string, userID int64) (*telegram.ChatMember, error)
	GetUpdatesFn    func(ctx context.Context, offset int64) ([]telegram.Update, error)
}

func (m *mockAPI) SendMessage(ctx context.Context, p telegram.SendMessageParams) (*telegram.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, p)
	return &telegram.Message{MessageID: int64(len(m.sent))}, nil
}

func (m *mockAPI) SendPhoto(ctx context.Context, p telegram.SendPhotoParams) (*telegram.Message, error) {
	m.mu.Lock()
	m.photos = append(m.photos, p)
	m.mu.Unlock()
	if m.SendPhotoFn != nil {
		if err := m.SendPhotoFn(p); err != nil {
			return nil, err
		}
	}
	return &telegram.Message{}, nil
}

func (m *mockAPI) EditMessageText(ctx context.Context, p telegram.EditMessageTextParams) error {
	m.mu.Lock()
	m.edits = append(m.edits, p)
	m.mu.Unlock()
	if m.EditFn != nil {
		return m.EditFn(p)
	}
	return nil
}

func (m *mockAPI) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answers = append(m.answers, callbackID)
	return nil
}

func (m *mockAPI) GetChatMember(ctx context.Context, chatID string, userID int64) (*telegram.ChatMember, error) {
	return m.GetChatMemberFn(chatID, userID)
}

func (m *mockAPI) GetUpdates(ctx context.Context, offset int64, timeout int) ([]telegram.Update, error) {
	return m.GetUpdatesFn(ctx, offset)
}

type mockEngine struct {
	texts     []string
	photos    []string
	callbacks []string
	documents int
	replies   []service.Reply
}

func (e *mockEngine) HandleText(ctx context.Context, u service.User, text string) []service.Reply {
	e.texts = append(e.texts, text)
	return e.replies
}

func (e *mockEngine) HandlePhoto(ctx context.Context, u service.User, fileID string) []service.Reply {
	e.photos = append(e.photos, fileID)
	return e.replies
}

func (e *mockEngine) HandleDocument(ctx context.Context, u service.User) []service.Reply {
	e.documents++
	return e.replies
}

func (e *mockEngine) HandleCallback(ctx context.Context, u service.User, data string) []service.Reply {
	e.callbacks = append(e.callbacks, data)
	return e.replies
}

func privateMessage(userID int64) *telegram.Message {
	return &telegram.Message{
		MessageID: 10,
		From:      &telegram.User{ID: userID, Username: "seller"},
		Chat:      telegram.Chat{ID: userID, Type: "private"},
	}
}

// ==================== Dispatcher ====================

func TestDispatcher_Message(t *testing.T) {
	api := &mockAPI{}
	engine := &mockEngine{replies: []service.Reply{{Text: "ok", Controls: service.Controls{MainMenu: true}}}}
	d := NewDispatcher(api, engine, zap.NewNop())
	ctx := context.Background()

	text := privateMessage(1)
	text.Text = "hello"
	d.Handle(ctx, telegram.Update{UpdateID: 1, Message: text})

	photo := privateMessage(1)
	photo.Photo = []telegram.PhotoSize{{FileID: "small", Width: 90, Height: 90}, {FileID: "large", Width: 800, Height: 800}}
	d.Handle(ctx, telegram.Update{UpdateID: 2, Message: photo})

	doc := privateMessage(1)
	doc.Document = &telegram.Document{FileID: "doc"}
	d.Handle(ctx, telegram.Update{UpdateID: 3, Message: doc})

	group := privateMessage(1)
	group.Chat.Type = "group"
	group.Text = "ignored"
	d.Handle(ctx, telegram.Update{UpdateID: 4, Message: group})

	assert.Equal(t, []string{"hello"}, engine.texts)
	assert.Equal(t, []string{"large"}, engine.photos)
	assert.Equal(t, 1, engine.documents)
	require.Len(t, api.sent, 3)
	assert.IsType(t, &telegram.ReplyKeyboardMarkup{}, api.sent[0].ReplyMarkup)
}

func TestDispatcher_Callback(t *testing.T) {
	tests := []struct {
		name      string
		replies   []service.Reply
		editErr   error
		wantEdits int
		wantSent  int
	}{
		{
			name:      "首条编辑，其余新发",
			replies:   []service.Reply{{Text: "a", Controls: service.Controls{Inline: [][]service.Button{{{Text: "x", Data: "y"}}}}}, {Text: "b"}},
			wantEdits: 1,
			wantSent:  1,
		},
		{
			name:      "主菜单回复改为新发",
			replies:   []service.Reply{{Text: "menu", Controls: service.Controls{MainMenu: true}}},
			wantEdits: 0,
			wantSent:  1,
		},
		{
			name:      "编辑失败退回新发",
			replies:   []service.Reply{{Text: "a"}},
			editErr:   errors.New("message can't be edited"),
			wantEdits: 1,
			wantSent:  1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockAPI{}
			if tt.editErr != nil {
				api.EditFn = func(telegram.EditMessageTextParams) error { return tt.editErr }
			}
			engine := &mockEngine{replies: tt.replies}
			d := NewDispatcher(api, engine, zap.NewNop())

			d.Handle(context.Background(), telegram.Update{CallbackQuery: &telegram.CallbackQuery{
				ID:      "cb-1",
				From:    telegram.User{ID: 1},
				Message: privateMessage(1),
				Data:    "show_entered_data",
			}})

			assert.Equal(t, []string{"cb-1"}, api.answers)
			assert.Equal(t, []string{"show_entered_data"}, engine.callbacks)
			assert.Len(t, api.edits, tt.wantEdits)
			assert.Len(t, api.sent, tt.wantSent)
		})
	}
}

// ==================== Deliverer ====================

func TestTelegramDeliverer_Deliver(t *testing.T) {
	api := &mockAPI{}
	d := NewTelegramDeliverer(api, zap.NewNop())
	controls := service.Controls{Inline: [][]service.Button{{{Text: "Approve", Data: "admin_approve|1"}}}}

	err := d.Deliver(context.Background(), 900, service.Content{Text: "review", Photos: []string{"p1", "p2"}}, controls)
	require.NoError(t, err)
	require.Len(t, api.photos, 2)
	assert.Equal(t, "review", api.photos[0].Caption)
	assert.NotNil(t, api.photos[0].ReplyMarkup)
	assert.Empty(t, api.photos[1].Caption)
	assert.Nil(t, api.photos[1].ReplyMarkup)
	assert.Empty(t, api.sent)

	require.NoError(t, d.Deliver(context.Background(), 900, service.Content{Text: "plain"}, service.Controls{}))
	require.Len(t, api.sent, 1)
	assert.Nil(t, api.sent[0].ReplyMarkup)
}

func TestTelegramDeliverer_PhotoFailure(t *testing.T) {
	api := &mockAPI{SendPhotoFn: func(telegram.SendPhotoParams) error {
		return &telegram.APIError{Code: 400, Description: "chat not found"}
	}}
	d := NewTelegramDeliverer(api, zap.NewNop())

	err := d.Deliver(context.Background(), 900, service.Content{Text: "review", Photos: []string{"p1"}}, service.Controls{})
	var apiErr *telegram.APIError
	assert.ErrorAs(t, err, &apiErr)
}

// ==================== Membership ====================

func TestChannelMembership_IsMember(t *testing.T) {
	calls := 0
	status := telegram.MemberLeft
	api := &mockAPI{GetChatMemberFn: func(chatID string, userID int64) (*telegram.ChatMember, error) {
		calls++
		assert.Equal(t, "@listing_market", chatID)
		return &telegram.ChatMember{Status: status}, nil
	}}
	m := NewChannelMembership(api, "@listing_market", time.Minute)
	ctx := context.Background()

	ok, err := m.IsMember(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	status = telegram.MemberMember
	ok, err = m.IsMember(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok, "否定结果不缓存")

	ok, err = m.IsMember(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, calls, "肯定结果命中缓存")
}

func TestChannelMembership_Error(t *testing.T) {
	api := &mockAPI{GetChatMemberFn: func(string, int64) (*telegram.ChatMember, error) {
		return nil, errors.New("timeout")
	}}
	_, err := NewChannelMembership(api, "@listing_market", time.Minute).IsMember(context.Background(), 1)
	assert.Error(t, err)

	ok, err := NewChannelMembership(api, "", time.Minute).IsMember(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

// ==================== Queue / Poller ====================

type recordingHandler struct {
	mu   sync.Mutex
	ids  []int64
	done chan struct{}
	want int
}

func (h *recordingHandler) Handle(ctx context.Context, upd telegram.Update) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if upd.UpdateID == 2 {
		panic("boom")
	}
	h.ids = append(h.ids, upd.UpdateID)
	if len(h.ids) == h.want {
		close(h.done)
	}
}

func TestUpdateQueue_OrderAndPanic(t *testing.T) {
	h := &recordingHandler{done: make(chan struct{}), want: 2}
	q := NewUpdateQueue(3, h, zap.NewNop())

	require.NoError(t, q.Enqueue(telegram.Update{UpdateID: 1}))
	require.NoError(t, q.Enqueue(telegram.Update{UpdateID: 2}))
	require.NoError(t, q.Enqueue(telegram.Update{UpdateID: 3}))
	assert.ErrorIs(t, q.Enqueue(telegram.Update{UpdateID: 4}), ErrQueueFull)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- q.Run(ctx) }()

	select {
	case <-h.done:
	case <-time.After(2 * time.Second):
		t.Fatal("队列未处理完")
	}
	cancel()
	require.NoError(t, <-errCh)

	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Equal(t, []int64{1, 3}, h.ids)
}

func TestPoller_Run(t *testing.T) {
	h := &recordingHandler{done: make(chan struct{}), want: 2}
	q := NewUpdateQueue(10, h, zap.NewNop())

	var mu sync.Mutex
	var offsets []int64
	polledAgain := make(chan struct{})
	api := &mockAPI{GetUpdatesFn: func(ctx context.Context, offset int64) ([]telegram.Update, error) {
		mu.Lock()
		offsets = append(offsets, offset)
		n := len(offsets)
		mu.Unlock()
		if n == 1 {
			return []telegram.Update{{UpdateID: 5}, {UpdateID: 6}}, nil
		}
		if n == 2 {
			close(polledAgain)
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	p := NewPoller(api, q, time.Second, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _ = q.Run(ctx) }()
	go func() { defer wg.Done(); _ = p.Run(ctx) }()

	select {
	case <-h.done:
	case <-time.After(2 * time.Second):
		t.Fatal("轮询未投递更新")
	}
	select {
	case <-polledAgain:
	case <-time.After(2 * time.Second):
		t.Fatal("未发起下一次轮询")
	}
	cancel()
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, int64(0), offsets[0])
	assert.Equal(t, int64(7), offsets[1])
}
