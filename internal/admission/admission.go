// Package admission makes the relay identity an effective participant of a
// target group before a voice call can start there.
//
// The escalation policy is probe-then-escalate: query the relay's current
// membership, then self-join via the group's public handle, then fall back to
// the bot inviting the relay. The invite path is asynchronous from the
// requester's point of view: it sends a retry prompt and the original play
// request is abandoned, not resumed.
package admission

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kyrshv/go-telegram-musicbot/internal/transport"
)

// Result is the outcome of an Ensure call.
type Result int

const (
	// ResultPresent means the relay is a participant now, either because it
	// already was or because a self-join just succeeded. Playback may proceed.
	ResultPresent Result = iota

	// ResultInvited means the bot invited the relay and asked the requester
	// to retry; the current request must stop.
	ResultInvited

	// ResultFailed means the relay could not be admitted; the requester has
	// been notified with the reason.
	ResultFailed
)

// Controller effects relay presence in target groups.
type Controller struct {
	logger    *zap.Logger
	messenger transport.Messenger
	relay     transport.Relay
	notifier  transport.Notifier
}

// NewController creates a relay admission Controller.
func NewController(
	logger *zap.Logger,
	messenger transport.Messenger,
	relay transport.Relay,
	notifier transport.Notifier,
) *Controller {
	return &Controller{
		logger:    logger.Named("admission"),
		messenger: messenger,
		relay:     relay,
		notifier:  notifier,
	}
}

// Ensure makes the relay identity a participant of the chat, escalating
// through the policy's steps; the first success wins.
func (c *Controller) Ensure(ctx context.Context, chat transport.Chat) Result {
	relayID := c.relay.ID()

	// Membership probe. Probe errors are non-terminal: a group the relay has
	// never seen commonly reports "not a participant" as an error.
	status, err := c.messenger.MemberStatus(ctx, chat.ID, relayID)
	if err == nil && status.Present() {
		c.logger.Debug("Relay already present",
			zap.Int64("chat_id", chat.ID),
			zap.Int64("relay_id", relayID))

		return ResultPresent
	}
	if err == nil && status == transport.StatusBanned {
		c.notifier.Notify(ctx, chat.ID, fmt.Sprintf(
			"❌ Relay account %d is banned in this group and cannot join its call.", relayID))

		return ResultFailed
	}

	// Self-join via public handle.
	if chat.Username != "" {
		switch err := c.relay.JoinByHandle(ctx, chat.Username); {
		case err == nil, errors.Is(err, transport.ErrAlreadyParticipant):
			c.logger.Info("Relay joined via public handle",
				zap.Int64("chat_id", chat.ID),
				zap.String("handle", chat.Username))

			return ResultPresent
		case errors.Is(err, transport.ErrBanned):
			c.notifier.Notify(ctx, chat.ID, fmt.Sprintf(
				"❌ Relay account %d is banned in this group and cannot join its call.", relayID))

			return ResultFailed
		default:
			c.notifier.Notify(ctx, chat.ID, fmt.Sprintf(
				"ℹ️ Join via @%s failed:\n%v", chat.Username, err))
		}
	}

	// Invite via the bot. Needs the bot to hold admin rights in the group.
	switch err := c.messenger.InviteRelay(ctx, chat.ID); {
	case err == nil:
		c.notifier.Notify(ctx, chat.ID, "👤 Relay account invited.\n▶️ Type /play again")

		return ResultInvited
	case errors.Is(err, transport.ErrAlreadyParticipant):
		return ResultPresent
	case errors.Is(err, transport.ErrPeerInvalid):
		c.notifier.Notify(ctx, chat.ID, fmt.Sprintf(
			"❌ Relay account reference %d is invalid (not a USER account)", relayID))

		return ResultFailed
	case errors.Is(err, transport.ErrWriteForbidden), errors.Is(err, transport.ErrAdminRequired):
		c.notifier.Notify(ctx, chat.ID, fmt.Sprintf(
			"❌ Cannot invite relay account %d: the bot needs admin rights in this group.", relayID))

		return ResultFailed
	default:
		c.notifier.Notify(ctx, chat.ID, fmt.Sprintf("❌ Failed to invite relay account:\n%v", err))

		return ResultFailed
	}
}
