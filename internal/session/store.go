// Package session 每个用户一份的内存会话
package session

import (
	"sync"
	"time"

	"account_listing_bot/internal/form"
	"account_listing_bot/internal/model"
)

// Session 用户进行中的表单
// Active 是唯一的子状态槽位，激活新的子状态即替换旧的
type Session struct {
	UserID           int64
	AwaitingField    model.Field
	Form             model.Form
	PendingListingID *int64
	Active           form.SubState
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Idle 没有任何子状态或纯文本捕获
func (s *Session) Idle() bool {
	return s.Active == nil && s.AwaitingField == ""
}

// Store 会话存储，不做过期；重启即丢失
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	now      func() time.Time
}

func NewStore() *Store {
	return &Store{sessions: make(map[int64]*Session), now: time.Now}
}

// GetOrCreate 幂等，首次调用创建空表单
func (s *Store) GetOrCreate(userID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[userID]; ok {
		return sess
	}
	now := s.now()
	sess := &Session{UserID: userID, Form: model.Form{}, CreatedAt: now, UpdatedAt: now}
	s.sessions[userID] = sess
	return sess
}

// Get 不存在时返回 nil
func (s *Store) Get(userID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[userID]
}

// Start 以给定表单开始新会话（编辑已有 listing 时使用），覆盖旧会话
func (s *Store) Start(userID int64, f model.Form, listingID *int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f == nil {
		f = model.Form{}
	}
	now := s.now()
	sess := &Session{UserID: userID, Form: f, PendingListingID: listingID, CreatedAt: now, UpdatedAt: now}
	s.sessions[userID] = sess
	return sess
}

// Clear 删除会话，子状态随会话一起消失
func (s *Store) Clear(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// WriteField 写入一个字段，不做校验
func (s *Store) WriteField(userID int64, field model.Field, value interface{}) {
	sess := s.GetOrCreate(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.Form[field] = value
	sess.UpdatedAt = s.now()
}

// DeleteField 删除一个字段
func (s *Store) DeleteField(userID int64, field model.Field) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userID]; ok {
		delete(sess.Form, field)
		sess.UpdatedAt = s.now()
	}
}

// Activate 激活子状态，替换已有的子状态并清除纯文本捕获
func (s *Store) Activate(userID int64, st form.SubState) {
	sess := s.GetOrCreate(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.Active = st
	sess.AwaitingField = ""
	sess.UpdatedAt = s.now()
}

// Deactivate 清除子状态
func (s *Store) Deactivate(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userID]; ok {
		sess.Active = nil
		sess.UpdatedAt = s.now()
	}
}

// Await 绑定纯文本捕获字段，同时清除子状态
func (s *Store) Await(userID int64, field model.Field) {
	sess := s.GetOrCreate(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	sess.AwaitingField = field
	sess.Active = nil
	sess.UpdatedAt = s.now()
}
