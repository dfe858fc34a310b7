// Package bot routes inbound commands to the orchestrator services, applying
// the gate chain (enablement, ownership, argument shape) before dispatch.
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kyrshv/go-telegram-musicbot/internal/config"
	"github.com/kyrshv/go-telegram-musicbot/internal/player"
	"github.com/kyrshv/go-telegram-musicbot/internal/transport"
)

// StateStore is the persisted-state surface the router needs.
type StateStore interface {
	Enabled(chatID int64) bool
	SetEnabled(chatID int64, on bool) error
	SetElevated(chatID int64, title string) error
	ReplaceElevated(groups map[int64]string) error
	ElevatedGroups() map[int64]string
}

// Player runs play requests to a terminal outcome.
type Player interface {
	HandlePlay(ctx context.Context, req player.Request)
}

// handlerSpec describes one command: its gates, argument shape and action.
type handlerSpec struct {
	name string
	// ownerOnly commands are restricted to the owner and bypass the
	// per-group enablement gate.
	ownerOnly bool
	// groupOnly commands are silently dropped in private chats.
	groupOnly bool
	minArgs   int
	// usage is the reply for malformed invocations; empty means fail silently.
	usage string
	run   func(ctx context.Context, msg transport.Message)
}

// guard is one gate in the dispatch chain. Returning false stops dispatch;
// guards own any reply they want to produce.
type guard func(ctx context.Context, h *handlerSpec, msg transport.Message) bool

// Bot is the command router.
type Bot struct {
	logger    *zap.Logger
	ownerID   int64
	store     StateStore
	player    Player
	messenger transport.Messenger
	notifier  transport.Notifier

	handlers map[string]*handlerSpec
	guards   []guard
}

// NewBot creates the router and registers it on the transport dispatcher.
func NewBot(
	logger *zap.Logger,
	cfg *config.Config,
	store StateStore,
	p Player,
	messenger transport.Messenger,
	notifier transport.Notifier,
	dispatcher transport.Dispatcher,
) *Bot {
	b := &Bot{
		logger:    logger.Named("bot"),
		ownerID:   cfg.Telegram.OwnerID,
		store:     store,
		player:    p,
		messenger: messenger,
		notifier:  notifier,
	}

	b.handlers = map[string]*handlerSpec{
		"on":        {name: "on", ownerOnly: true, groupOnly: true, run: b.handleOn},
		"off":       {name: "off", ownerOnly: true, groupOnly: true, run: b.handleOff},
		"play":      {name: "play", groupOnly: true, minArgs: 1, usage: "❌ Usage: /play song title or url", run: b.handlePlay},
		"scangrup":  {name: "scangrup", ownerOnly: true, run: b.handleScan},
		"broadcast": {name: "broadcast", ownerOnly: true, minArgs: 1, run: b.handleBroadcast},
	}

	// Gate order matters: scope first, then enablement, ownership, shape.
	b.guards = []guard{b.scopeGuard, b.enablementGuard, b.ownerGuard, b.arityGuard}

	dispatcher.AddMessageHandler(b.HandleMessage)
	dispatcher.AddMembershipHandler(b.HandleMembershipUpdate)

	logger.Info("Command router registered", zap.Int("commands", len(b.handlers)))

	return b
}

// HandleMessage dispatches one inbound message. Per-request failures are
// reported as notifications; nothing propagates to the caller.
func (b *Bot) HandleMessage(ctx context.Context, msg transport.Message) {
	if msg.Command == "" {
		return
	}

	h, ok := b.handlers[msg.Command]
	if !ok {
		b.logger.Debug("Ignoring unknown command",
			zap.String("command", msg.Command),
			zap.Int64("chat_id", msg.Chat.ID))

		return
	}

	for _, g := range b.guards {
		if !g(ctx, h, msg) {
			return
		}
	}

	b.logger.Info("Dispatching command",
		zap.String("command", h.name),
		zap.Int64("chat_id", msg.Chat.ID),
		zap.Int64("sender_id", msg.SenderID))

	h.run(ctx, msg)
}

// HandleMembershipUpdate records a group into the elevated-access set when
// the bot itself is promoted there, and tells the owner out-of-band.
func (b *Bot) HandleMembershipUpdate(ctx context.Context, upd transport.MembershipUpdate) {
	if upd.UserID != b.messenger.SelfID() || !upd.NewStatus.Privileged() {
		return
	}

	if err := b.store.SetElevated(upd.Chat.ID, upd.Chat.Title); err != nil {
		b.logger.Error("Failed to persist elevated access",
			zap.Int64("chat_id", upd.Chat.ID),
			zap.Error(err))

		return
	}

	b.notifier.Notify(ctx, b.ownerID, fmt.Sprintf(
		"🔔 Bot was promoted to admin in a new group:\n%s\n%d", upd.Chat.Title, upd.Chat.ID))
}

// scopeGuard silently drops group-scoped commands arriving from private
// chats. The global administrative commands pass regardless of chat kind.
func (b *Bot) scopeGuard(_ context.Context, h *handlerSpec, msg transport.Message) bool {
	return !h.groupOnly || msg.Chat.IsGroup
}

// enablementGuard silently drops non-administrative commands in disabled
// groups. Owner commands pass so a disabled group can be re-enabled.
func (b *Bot) enablementGuard(_ context.Context, h *handlerSpec, msg transport.Message) bool {
	return h.ownerOnly || b.store.Enabled(msg.Chat.ID)
}

// ownerGuard drops owner-only commands from anyone else without replying, so
// their existence is not leaked to non-owners.
func (b *Bot) ownerGuard(_ context.Context, h *handlerSpec, msg transport.Message) bool {
	return !h.ownerOnly || msg.SenderID == b.ownerID
}

// arityGuard validates argument shape, replying with usage text when set.
func (b *Bot) arityGuard(ctx context.Context, h *handlerSpec, msg transport.Message) bool {
	if len(msg.Args) >= h.minArgs {
		return true
	}
	if h.usage != "" {
		b.notifier.Notify(ctx, msg.Chat.ID, h.usage)
	}

	return false
}

func (b *Bot) handleOn(ctx context.Context, msg transport.Message) {
	if err := b.store.SetEnabled(msg.Chat.ID, true); err != nil {
		b.logger.Error("Failed to persist enablement", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
		b.notifier.Notify(ctx, msg.Chat.ID, fmt.Sprintf("❌ Failed to save state:\n%v", err))

		return
	}

	b.notifier.Notify(ctx, msg.Chat.ID, "✅ Bot enabled in this group")
}

// handleOff persists the flag and stays silent on success.
func (b *Bot) handleOff(ctx context.Context, msg transport.Message) {
	if err := b.store.SetEnabled(msg.Chat.ID, false); err != nil {
		b.logger.Error("Failed to persist enablement", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
		b.notifier.Notify(ctx, msg.Chat.ID, fmt.Sprintf("❌ Failed to save state:\n%v", err))
	}
}

func (b *Bot) handlePlay(ctx context.Context, msg transport.Message) {
	b.player.HandlePlay(ctx, player.Request{
		Chat:        msg.Chat,
		RequesterID: msg.SenderID,
		Query:       strings.Join(msg.Args, " "),
		ReceivedAt:  time.Now(),
	})
}

// handleScan re-derives the elevated-access set from scratch: every known
// group is probed for the bot's admin status and the persisted set is fully
// replaced with the result.
func (b *Bot) handleScan(ctx context.Context, msg transport.Message) {
	chats, err := b.messenger.GroupChats(ctx)
	if err != nil {
		b.notifier.Notify(ctx, msg.Chat.ID, fmt.Sprintf("❌ Scan failed:\n%v", err))

		return
	}

	selfID := b.messenger.SelfID()
	elevated := make(map[int64]string)
	for _, chat := range chats {
		status, err := b.messenger.MemberStatus(ctx, chat.ID, selfID)
		if err != nil {
			b.logger.Debug("Skipping group during scan",
				zap.Int64("chat_id", chat.ID),
				zap.Error(err))

			continue
		}
		if status.Privileged() {
			elevated[chat.ID] = chat.Title
		}
	}

	if err := b.store.ReplaceElevated(elevated); err != nil {
		b.notifier.Notify(ctx, msg.Chat.ID, fmt.Sprintf("❌ Scan failed to save:\n%v", err))

		return
	}

	b.notifier.Notify(ctx, msg.Chat.ID, fmt.Sprintf("✅ Scan finished: %d groups", len(elevated)))
}

// handleBroadcast sends the text to every recorded group. Per-group failures
// are counted and skipped; the loop never aborts.
func (b *Bot) handleBroadcast(ctx context.Context, msg transport.Message) {
	text := strings.Join(msg.Args, " ")

	sent := 0
	for chatID := range b.store.ElevatedGroups() {
		if err := b.messenger.Send(ctx, chatID, text); err != nil {
			b.logger.Debug("Broadcast send failed",
				zap.Int64("chat_id", chatID),
				zap.Error(err))

			continue
		}
		sent++
	}

	b.notifier.Notify(ctx, msg.Chat.ID, fmt.Sprintf("📣 Broadcast delivered to %d groups", sent))
}
