package telegram

import (
	"context"
	"strings"
	"sync"

	"github.com/gotd/td/tg"
	"go.uber.org/zap"

	"github.com/kyrshv/go-telegram-musicbot/internal/transport"
)

// Dispatcher converts raw MTProto updates into transport events and fans
// them out to registered handlers. Each update is handled on its own
// goroutine so a handler awaiting the network never stalls the update loop.
type Dispatcher struct {
	logger  *zap.Logger
	clients *Clients

	mu                 sync.RWMutex
	messageHandlers    []func(ctx context.Context, msg transport.Message)
	membershipHandlers []func(ctx context.Context, upd transport.MembershipUpdate)
}

// NewDispatcher wires the update routes on the bot session's dispatcher.
func NewDispatcher(logger *zap.Logger, clients *Clients) *Dispatcher {
	d := &Dispatcher{
		logger:  logger.Named("dispatcher"),
		clients: clients,
	}

	clients.dispatcher.OnNewChannelMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewChannelMessage) error {
		d.handleMessage(ctx, e, u.Message)

		return nil
	})
	clients.dispatcher.OnNewMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewMessage) error {
		d.handleMessage(ctx, e, u.Message)

		return nil
	})
	clients.dispatcher.OnChannelParticipant(func(ctx context.Context, e tg.Entities, u *tg.UpdateChannelParticipant) error {
		d.clients.botPeers.absorb(e)

		chat := transport.Chat{ID: u.ChannelID, IsGroup: true}
		if ch, ok := e.Channels[u.ChannelID]; ok {
			chat.Title = ch.Title
			chat.Username = ch.Username
		}

		status := transport.StatusNone
		if p, ok := u.GetNewParticipant(); ok {
			status = channelParticipantStatus(p)
		}

		d.dispatchMembership(ctx, transport.MembershipUpdate{
			Chat:      chat,
			UserID:    u.UserID,
			NewStatus: status,
		})

		return nil
	})
	clients.dispatcher.OnChatParticipant(func(ctx context.Context, e tg.Entities, u *tg.UpdateChatParticipant) error {
		d.clients.botPeers.absorb(e)

		chat := transport.Chat{ID: u.ChatID, IsGroup: true}
		if c, ok := e.Chats[u.ChatID]; ok {
			chat.Title = c.Title
		}

		status := transport.StatusNone
		if p, ok := u.GetNewParticipant(); ok {
			status = chatParticipantStatus(p)
		}

		d.dispatchMembership(ctx, transport.MembershipUpdate{
			Chat:      chat,
			UserID:    u.UserID,
			NewStatus: status,
		})

		return nil
	})

	return d
}

// AddMessageHandler implements transport.Dispatcher.
func (d *Dispatcher) AddMessageHandler(h func(ctx context.Context, msg transport.Message)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messageHandlers = append(d.messageHandlers, h)
}

// AddMembershipHandler implements transport.Dispatcher.
func (d *Dispatcher) AddMembershipHandler(h func(ctx context.Context, upd transport.MembershipUpdate)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.membershipHandlers = append(d.membershipHandlers, h)
}

func (d *Dispatcher) handleMessage(ctx context.Context, e tg.Entities, raw tg.MessageClass) {
	msg, ok := raw.(*tg.Message)
	if !ok || msg.Out {
		return
	}

	d.clients.botPeers.absorb(e)

	var chat transport.Chat
	switch peer := msg.PeerID.(type) {
	case *tg.PeerChannel:
		ch, ok := e.Channels[peer.ChannelID]
		if !ok || !ch.Megagroup {
			return
		}
		chat = transport.Chat{ID: ch.ID, Title: ch.Title, Username: ch.Username, IsGroup: true}
	case *tg.PeerChat:
		c, ok := e.Chats[peer.ChatID]
		if !ok {
			return
		}
		chat = transport.Chat{ID: c.ID, Title: c.Title, IsGroup: true}
	case *tg.PeerUser:
		// Private chat with the bot: global owner commands arrive here.
		chat = transport.Chat{ID: peer.UserID}
	default:
		return
	}

	senderID := chat.ID
	if from, ok := msg.GetFromID(); ok {
		if u, ok := from.(*tg.PeerUser); ok {
			senderID = u.UserID
		}
	}

	command, args := ParseCommand(msg.Message, d.botUsername())

	event := transport.Message{
		Chat:     chat,
		SenderID: senderID,
		Text:     msg.Message,
		Command:  command,
		Args:     args,
	}

	d.mu.RLock()
	handlers := d.messageHandlers
	d.mu.RUnlock()

	for _, h := range handlers {
		go h(ctx, event)
	}
}

func (d *Dispatcher) dispatchMembership(ctx context.Context, upd transport.MembershipUpdate) {
	d.mu.RLock()
	handlers := d.membershipHandlers
	d.mu.RUnlock()

	for _, h := range handlers {
		go h(ctx, upd)
	}
}

func (d *Dispatcher) botUsername() string {
	d.clients.mu.Lock()
	defer d.clients.mu.Unlock()
	if d.clients.botSelf == nil {
		return ""
	}

	return d.clients.botSelf.Username
}

// ParseCommand splits a "/command arg arg" message into its command name and
// arguments. A @mention suffix is honoured: commands addressed to another
// bot are not ours. Non-command messages yield an empty command.
func ParseCommand(text, botUsername string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil
	}

	command := strings.TrimPrefix(fields[0], "/")
	if name, mention, ok := strings.Cut(command, "@"); ok {
		if botUsername == "" || !strings.EqualFold(mention, botUsername) {
			return "", nil
		}
		command = name
	}
	if command == "" {
		return "", nil
	}

	return strings.ToLower(command), fields[1:]
}

func chatParticipantStatus(p tg.ChatParticipantClass) transport.MemberStatus {
	switch p.(type) {
	case *tg.ChatParticipantCreator:
		return transport.StatusOwner
	case *tg.ChatParticipantAdmin:
		return transport.StatusAdmin
	case *tg.ChatParticipant:
		return transport.StatusMember
	default:
		return transport.StatusNone
	}
}
