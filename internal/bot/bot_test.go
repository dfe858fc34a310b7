package bot_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/kyrshv/go-telegram-musicbot/internal/bot"
	"github.com/kyrshv/go-telegram-musicbot/internal/config"
	"github.com/kyrshv/go-telegram-musicbot/internal/player"
	"github.com/kyrshv/go-telegram-musicbot/internal/transport"
	"github.com/kyrshv/go-telegram-musicbot/pkg/test"
)

const (
	ownerID  int64 = 1
	memberID int64 = 2
	selfID   int64 = 999
)

type memoryStore struct {
	enabled  map[int64]bool
	elevated map[int64]string
	saveErr  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		enabled:  make(map[int64]bool),
		elevated: make(map[int64]string),
	}
}

func (s *memoryStore) Enabled(chatID int64) bool {
	on, ok := s.enabled[chatID]

	return !ok || on
}

func (s *memoryStore) SetEnabled(chatID int64, on bool) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.enabled[chatID] = on

	return nil
}

func (s *memoryStore) SetElevated(chatID int64, title string) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.elevated[chatID] = title

	return nil
}

func (s *memoryStore) ReplaceElevated(groups map[int64]string) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.elevated = groups

	return nil
}

func (s *memoryStore) ElevatedGroups() map[int64]string {
	return s.elevated
}

type recordingPlayer struct {
	requests []player.Request
}

func (p *recordingPlayer) HandlePlay(_ context.Context, req player.Request) {
	p.requests = append(p.requests, req)
}

type nopDispatcher struct{}

func (nopDispatcher) AddMessageHandler(func(context.Context, transport.Message))            {}
func (nopDispatcher) AddMembershipHandler(func(context.Context, transport.MembershipUpdate)) {}

type fixture struct {
	bot       *bot.Bot
	store     *memoryStore
	player    *recordingPlayer
	messenger *test.MockMessenger
	recorder  *test.NotificationRecorder
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		store:     newMemoryStore(),
		player:    &recordingPlayer{},
		messenger: test.NewMockMessenger(t),
		recorder:  &test.NotificationRecorder{},
	}
	f.messenger.On("SelfID").Return(selfID).Maybe()

	cfg := &config.Config{Telegram: config.TelegramConfig{OwnerID: ownerID}}
	f.bot = bot.NewBot(zap.NewNop(), cfg, f.store, f.player, f.messenger, f.recorder, nopDispatcher{})

	return f
}

func message(chatID, senderID int64, command string, args ...string) transport.Message {
	return transport.Message{
		Chat:     transport.Chat{ID: chatID, Title: "test group", IsGroup: true},
		SenderID: senderID,
		Command:  command,
		Args:     args,
	}
}

func privateMessage(senderID int64, command string, args ...string) transport.Message {
	return transport.Message{
		Chat:     transport.Chat{ID: senderID},
		SenderID: senderID,
		Command:  command,
		Args:     args,
	}
}

func TestPlay_DefaultEnabledGroupProceeds(t *testing.T) {
	f := newFixture(t)

	f.bot.HandleMessage(context.Background(), message(100, memberID, "play", "test", "song"))

	if assert.Len(t, f.player.requests, 1) {
		assert.Equal(t, int64(100), f.player.requests[0].Chat.ID)
		assert.Equal(t, "test song", f.player.requests[0].Query)
		assert.Equal(t, memberID, f.player.requests[0].RequesterID)
	}
}

func TestPlay_DisabledGroupIsSilentNoOp(t *testing.T) {
	f := newFixture(t)
	f.store.enabled[100] = false

	f.bot.HandleMessage(context.Background(), message(100, memberID, "play", "test song"))

	assert.Empty(t, f.player.requests)
	assert.Empty(t, f.recorder.Notifications(), "disabled groups get no reply at all")
}

func TestPlay_MissingQueryRepliesUsage(t *testing.T) {
	f := newFixture(t)

	f.bot.HandleMessage(context.Background(), message(100, memberID, "play"))

	assert.Empty(t, f.player.requests, "no downstream call on a usage error")
	if assert.Len(t, f.recorder.Texts(), 1) {
		assert.Contains(t, f.recorder.Texts()[0], "Usage")
	}
}

func TestGroupScopedCommandsIgnoredInPrivateChats(t *testing.T) {
	f := newFixture(t)

	f.bot.HandleMessage(context.Background(), privateMessage(memberID, "play", "some", "song"))
	f.bot.HandleMessage(context.Background(), privateMessage(ownerID, "off"))
	f.bot.HandleMessage(context.Background(), privateMessage(ownerID, "on"))

	assert.Empty(t, f.player.requests, "play never leaves a private chat")
	assert.Empty(t, f.recorder.Notifications(), "scope drops are silent")
	assert.NotContains(t, f.store.enabled, ownerID, "on/off do not toggle a private chat")
}

func TestGlobalCommandsWorkInPrivateChats(t *testing.T) {
	f := newFixture(t)
	f.store.elevated = map[int64]string{100: "group a"}
	f.messenger.On("Send", mock.Anything, int64(100), "hello").Return(nil)

	f.bot.HandleMessage(context.Background(), privateMessage(ownerID, "broadcast", "hello"))

	if assert.Len(t, f.recorder.Texts(), 1) {
		assert.Contains(t, f.recorder.Texts()[0], "1 groups")
	}
}

func TestOnOff_OwnerGating(t *testing.T) {
	t.Run("owner enables with confirmation", func(t *testing.T) {
		f := newFixture(t)
		f.store.enabled[100] = false

		f.bot.HandleMessage(context.Background(), message(100, ownerID, "on"))

		assert.True(t, f.store.Enabled(100))
		if assert.Len(t, f.recorder.Texts(), 1) {
			assert.Contains(t, f.recorder.Texts()[0], "enabled")
		}
	})

	t.Run("owner disables silently", func(t *testing.T) {
		f := newFixture(t)

		f.bot.HandleMessage(context.Background(), message(100, ownerID, "off"))

		assert.False(t, f.store.Enabled(100))
		assert.Empty(t, f.recorder.Notifications(), "/off succeeds without confirmation")
	})

	t.Run("non-owner is a silent no-op", func(t *testing.T) {
		f := newFixture(t)

		f.bot.HandleMessage(context.Background(), message(100, memberID, "on"))

		_, recorded := f.store.enabled[100]
		assert.False(t, recorded, "no state change")
		assert.Empty(t, f.recorder.Notifications(), "no reply leaks the command to non-owners")
	})

	t.Run("owner commands bypass the enablement gate", func(t *testing.T) {
		f := newFixture(t)
		f.store.enabled[100] = false

		f.bot.HandleMessage(context.Background(), message(100, ownerID, "on"))

		assert.True(t, f.store.Enabled(100))
	})
}

func TestScan_FullyReplacesElevatedSet(t *testing.T) {
	f := newFixture(t)
	f.store.elevated[50] = "stale group"

	f.messenger.On("GroupChats", mock.Anything).Return([]transport.Chat{
		{ID: 100, Title: "group a"},
		{ID: 200, Title: "group b"},
		{ID: 300, Title: "group c"},
	}, nil)
	f.messenger.On("MemberStatus", mock.Anything, int64(100), selfID).
		Return(transport.StatusAdmin, nil)
	f.messenger.On("MemberStatus", mock.Anything, int64(200), selfID).
		Return(transport.StatusMember, nil)
	f.messenger.On("MemberStatus", mock.Anything, int64(300), selfID).
		Return(transport.StatusNone, errors.New("CHAT_ADMIN_REQUIRED"))

	f.bot.HandleMessage(context.Background(), message(10, ownerID, "scangrup"))

	assert.Equal(t, map[int64]string{100: "group a"}, f.store.elevated,
		"scan replaces the whole set; probe failures and plain membership are skipped")
	if assert.Len(t, f.recorder.Texts(), 1) {
		assert.Contains(t, f.recorder.Texts()[0], "1 groups")
	}
}

func TestBroadcast_ContinuesPastFailures(t *testing.T) {
	f := newFixture(t)
	f.store.elevated = map[int64]string{
		100: "group a",
		200: "group b",
		300: "group c",
	}

	f.messenger.On("Send", mock.Anything, int64(100), "hello all").Return(nil)
	f.messenger.On("Send", mock.Anything, int64(200), "hello all").
		Return(errors.New("CHAT_WRITE_FORBIDDEN"))
	f.messenger.On("Send", mock.Anything, int64(300), "hello all").Return(nil)

	f.bot.HandleMessage(context.Background(), message(10, ownerID, "broadcast", "hello", "all"))

	// All three attempted, success count excludes the failed one.
	f.messenger.AssertNumberOfCalls(t, "Send", 3)
	if assert.Len(t, f.recorder.Texts(), 1) {
		assert.Contains(t, f.recorder.Texts()[0], "2 groups")
	}
}

func TestBroadcast_NoTextIsSilentlyIgnored(t *testing.T) {
	f := newFixture(t)
	f.store.elevated = map[int64]string{100: "group a"}

	f.bot.HandleMessage(context.Background(), message(10, ownerID, "broadcast"))

	f.messenger.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, f.recorder.Notifications())
}

func TestMembershipUpdate_PromotionRecordedAndOwnerNotified(t *testing.T) {
	f := newFixture(t)

	f.bot.HandleMembershipUpdate(context.Background(), transport.MembershipUpdate{
		Chat:      transport.Chat{ID: 100, Title: "new group"},
		UserID:    selfID,
		NewStatus: transport.StatusAdmin,
	})

	assert.Equal(t, "new group", f.store.elevated[100])
	if assert.Len(t, f.recorder.Notifications(), 1) {
		assert.Equal(t, ownerID, f.recorder.Notifications()[0].ChatID)
		assert.Contains(t, f.recorder.Notifications()[0].Text, "new group")
	}
}

func TestMembershipUpdate_IgnoresOtherUsersAndDemotions(t *testing.T) {
	f := newFixture(t)

	f.bot.HandleMembershipUpdate(context.Background(), transport.MembershipUpdate{
		Chat:      transport.Chat{ID: 100, Title: "group"},
		UserID:    memberID,
		NewStatus: transport.StatusAdmin,
	})
	f.bot.HandleMembershipUpdate(context.Background(), transport.MembershipUpdate{
		Chat:      transport.Chat{ID: 100, Title: "group"},
		UserID:    selfID,
		NewStatus: transport.StatusMember,
	})

	assert.Empty(t, f.store.elevated)
	assert.Empty(t, f.recorder.Notifications())
}

func TestUnknownCommandIsIgnored(t *testing.T) {
	f := newFixture(t)

	f.bot.HandleMessage(context.Background(), message(100, memberID, "bogus"))
	f.bot.HandleMessage(context.Background(), transport.Message{
		Chat: transport.Chat{ID: 100}, SenderID: memberID, Text: "plain chatter",
	})

	assert.Empty(t, f.player.requests)
	assert.Empty(t, f.recorder.Notifications())
}
