// Package transport defines the contracts the orchestrator consumes from the
// messaging and voice-call transports, together with the error taxonomy the
// admission logic classifies against. Concrete implementations live in
// internal/telegram.
package transport

import (
	"context"
	"errors"
)

// MemberStatus is a member's standing within a group chat.
type MemberStatus int

const (
	StatusNone MemberStatus = iota
	StatusMember
	StatusAdmin
	StatusOwner
	StatusBanned
)

// Privileged reports whether the status carries administrative rights.
func (s MemberStatus) Privileged() bool {
	return s == StatusAdmin || s == StatusOwner
}

// Present reports whether the status counts as effective group presence.
func (s MemberStatus) Present() bool {
	return s == StatusMember || s == StatusAdmin || s == StatusOwner
}

// Chat identifies a chat the primary identity can be addressed from.
type Chat struct {
	ID    int64
	Title string
	// Username is the public handle, empty for private groups.
	Username string
	// IsGroup is false for private one-on-one chats, where only the global
	// administrative commands apply.
	IsGroup bool
}

// Message is an inbound group message with its parsed command, if any.
type Message struct {
	Chat     Chat
	SenderID int64
	Text     string
	// Command is the leading slash command without the slash or a @mention
	// suffix, empty when the message is not a command.
	Command string
	Args    []string
}

// MembershipUpdate describes a change of a member's status in a group.
type MembershipUpdate struct {
	Chat      Chat
	UserID    int64
	NewStatus MemberStatus
}

// Classified transport failures. Anything else is surfaced raw.
var (
	ErrAlreadyParticipant = errors.New("transport: identity is already a participant")
	ErrBanned             = errors.New("transport: identity is banned in the group")
	ErrWriteForbidden     = errors.New("transport: writing to the group is forbidden")
	ErrAdminRequired      = errors.New("transport: admin rights are required")
	ErrPeerInvalid        = errors.New("transport: identity reference is invalid")
	ErrNotParticipant     = errors.New("transport: identity is not a participant")
)

// Messenger is the primary identity's side of the messaging transport.
type Messenger interface {
	// Send delivers a text message to a chat.
	Send(ctx context.Context, chatID int64, text string) error

	// MemberStatus queries a member's current standing in a chat.
	// Returns StatusNone (no error) when the member is not in the chat.
	MemberStatus(ctx context.Context, chatID, userID int64) (MemberStatus, error)

	// InviteRelay adds the relay identity to the chat. Requires the primary
	// identity to hold admin rights there.
	InviteRelay(ctx context.Context, chatID int64) error

	// GroupChats enumerates the known group chats.
	GroupChats(ctx context.Context) ([]Chat, error)

	// SelfID is the primary identity's user id.
	SelfID() int64
}

// Relay is the secondary identity's side of the messaging transport.
type Relay interface {
	// ID is the relay identity's user id.
	ID() int64

	// JoinByHandle self-joins a publicly addressable group.
	JoinByHandle(ctx context.Context, handle string) error
}

// VoiceCaller starts or replaces audio playback in a group's voice call.
type VoiceCaller interface {
	Play(ctx context.Context, chatID int64, path string) error

	// AddFinishedHandler registers a callback invoked when a chat's stream
	// ends on its own. Streams replaced by a newer Play or torn down on
	// shutdown do not fire it.
	AddFinishedHandler(func(chatID int64))
}

// Dispatcher delivers inbound transport events to registered handlers.
type Dispatcher interface {
	AddMessageHandler(func(ctx context.Context, msg Message))
	AddMembershipHandler(func(ctx context.Context, upd MembershipUpdate))
}
