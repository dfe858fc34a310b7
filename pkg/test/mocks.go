// Package test provides testify mocks for the transport seams.
package test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/kyrshv/go-telegram-musicbot/internal/transport"
)

// MockMessenger is a testify mock for transport.Messenger.
type MockMessenger struct {
	mock.Mock
}

// NewMockMessenger creates a MockMessenger whose expectations are asserted
// when the test finishes.
func NewMockMessenger(t *testing.T) *MockMessenger {
	m := &MockMessenger{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockMessenger) Send(ctx context.Context, chatID int64, text string) error {
	args := m.Called(ctx, chatID, text)

	return args.Error(0)
}

func (m *MockMessenger) MemberStatus(ctx context.Context, chatID, userID int64) (transport.MemberStatus, error) {
	args := m.Called(ctx, chatID, userID)

	return args.Get(0).(transport.MemberStatus), args.Error(1)
}

func (m *MockMessenger) InviteRelay(ctx context.Context, chatID int64) error {
	args := m.Called(ctx, chatID)

	return args.Error(0)
}

func (m *MockMessenger) GroupChats(ctx context.Context) ([]transport.Chat, error) {
	args := m.Called(ctx)
	if chats := args.Get(0); chats != nil {
		return chats.([]transport.Chat), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *MockMessenger) SelfID() int64 {
	args := m.Called()

	return args.Get(0).(int64)
}

// MockRelay is a testify mock for transport.Relay.
type MockRelay struct {
	mock.Mock
}

// NewMockRelay creates a MockRelay whose expectations are asserted when the
// test finishes.
func NewMockRelay(t *testing.T) *MockRelay {
	m := &MockRelay{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockRelay) ID() int64 {
	args := m.Called()

	return args.Get(0).(int64)
}

func (m *MockRelay) JoinByHandle(ctx context.Context, handle string) error {
	args := m.Called(ctx, handle)

	return args.Error(0)
}

// MockVoiceCaller is a testify mock for transport.VoiceCaller.
type MockVoiceCaller struct {
	mock.Mock
	finished []func(chatID int64)
}

// NewMockVoiceCaller creates a MockVoiceCaller whose expectations are
// asserted when the test finishes.
func NewMockVoiceCaller(t *testing.T) *MockVoiceCaller {
	m := &MockVoiceCaller{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *MockVoiceCaller) Play(ctx context.Context, chatID int64, path string) error {
	args := m.Called(ctx, chatID, path)

	return args.Error(0)
}

// AddFinishedHandler records the handler without a mock expectation so
// constructors can register freely.
func (m *MockVoiceCaller) AddFinishedHandler(h func(chatID int64)) {
	m.finished = append(m.finished, h)
}

// Finish invokes the registered handlers the way the real caller does when a
// chat's stream ends on its own.
func (m *MockVoiceCaller) Finish(chatID int64) {
	for _, h := range m.finished {
		h(chatID)
	}
}

// NotificationRecorder is a transport.Notifier that records every
// notification, letting tests assert on emitted events. Safe for use from
// concurrent handlers.
type NotificationRecorder struct {
	mu            sync.Mutex
	notifications []Notification
}

// Notification is one recorded Notify call.
type Notification struct {
	ChatID int64
	Text   string
}

func (r *NotificationRecorder) Notify(_ context.Context, chatID int64, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, Notification{ChatID: chatID, Text: text})
}

// Notifications returns a copy of the recorded notifications in order.
func (r *NotificationRecorder) Notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Notification(nil), r.notifications...)
}

// Texts returns the recorded notification texts in order.
func (r *NotificationRecorder) Texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.notifications))
	for _, n := range r.notifications {
		out = append(out, n.Text)
	}

	return out
}
