package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/tg"
	"go.uber.org/zap"

	"github.com/kyrshv/go-telegram-musicbot/internal/transport"
)

// Messenger is the bot-session side of the messaging transport.
type Messenger struct {
	logger  *zap.Logger
	clients *Clients
	sender  *message.Sender
}

// NewMessenger creates the Messenger over the bot session.
func NewMessenger(logger *zap.Logger, clients *Clients) *Messenger {
	return &Messenger{
		logger:  logger.Named("messenger"),
		clients: clients,
		sender:  message.NewSender(clients.botAPI),
	}
}

// SelfID implements transport.Messenger.
func (m *Messenger) SelfID() int64 {
	return m.clients.SelfID()
}

// Send implements transport.Messenger.
func (m *Messenger) Send(ctx context.Context, chatID int64, text string) error {
	peer, err := m.clients.botPeers.inputPeer(chatID)
	if err != nil {
		return err
	}

	if _, err := m.sender.To(peer).Text(ctx, text); err != nil {
		return mapError(err)
	}

	return nil
}

// MemberStatus implements transport.Messenger. The probe runs on whichever
// session knows the chat: the bot session for chats it has seen commands
// from, the relay session for chats discovered by the dialog scan.
func (m *Messenger) MemberStatus(ctx context.Context, chatID, userID int64) (transport.MemberStatus, error) {
	if _, ok := m.clients.botPeers.get(chatID); ok {
		participant, err := m.botParticipantRef(ctx, userID)
		if err != nil {
			return transport.StatusNone, err
		}

		return memberStatus(ctx, m.clients.botAPI, m.clients.botPeers, chatID, userID, participant)
	}

	if _, ok := m.clients.relayPeers.get(chatID); ok {
		participant, err := m.relayParticipantRef(ctx, userID)
		if err != nil {
			return transport.StatusNone, err
		}

		return memberStatus(ctx, m.clients.relayAPI, m.clients.relayPeers, chatID, userID, participant)
	}

	return transport.StatusNone, fmt.Errorf("chat %d is not known to either session", chatID)
}

// InviteRelay implements transport.Messenger.
func (m *Messenger) InviteRelay(ctx context.Context, chatID int64) error {
	relayRef, err := m.clients.relayUserRef(ctx)
	if err != nil {
		return err
	}

	info, ok := m.clients.botPeers.get(chatID)
	if !ok {
		return fmt.Errorf("chat %d is not known to the bot session", chatID)
	}

	if info.kind == peerChannel {
		channel, err := m.clients.botPeers.inputChannel(chatID)
		if err != nil {
			return err
		}
		_, err = m.clients.botAPI.ChannelsInviteToChannel(ctx, &tg.ChannelsInviteToChannelRequest{
			Channel: channel,
			Users:   []tg.InputUserClass{relayRef},
		})

		return mapError(err)
	}

	_, err = m.clients.botAPI.MessagesAddChatUser(ctx, &tg.MessagesAddChatUserRequest{
		ChatID:   chatID,
		UserID:   relayRef,
		FwdLimit: 0,
	})

	return mapError(err)
}

// GroupChats implements transport.Messenger. Bot accounts cannot enumerate
// their own dialogs, so the listing comes from the relay session's full,
// paginated dialog list; the privileged-group scan then probes the bot's
// status in each listed group.
func (m *Messenger) GroupChats(ctx context.Context) ([]transport.Chat, error) {
	raw, err := m.clients.relayDialogChats(ctx)
	if err != nil {
		return nil, err
	}

	var chats []transport.Chat
	for _, cc := range raw {
		switch chat := cc.(type) {
		case *tg.Channel:
			if !chat.Megagroup || chat.Left {
				continue
			}
			chats = append(chats, transport.Chat{
				ID:       chat.ID,
				Title:    chat.Title,
				Username: chat.Username,
				IsGroup:  true,
			})
		case *tg.Chat:
			if chat.Deactivated || chat.Left {
				continue
			}
			chats = append(chats, transport.Chat{ID: chat.ID, Title: chat.Title, IsGroup: true})
		}
	}

	m.logger.Debug("Enumerated group chats", zap.Int("count", len(chats)))

	return chats, nil
}

// botParticipantRef builds the participant reference for a status probe on
// the bot session.
func (m *Messenger) botParticipantRef(ctx context.Context, userID int64) (tg.InputPeerClass, error) {
	switch userID {
	case m.clients.SelfID():
		return &tg.InputPeerSelf{}, nil
	case m.clients.RelayID():
		ref, err := m.clients.relayUserRef(ctx)
		if err != nil {
			return nil, err
		}

		return &tg.InputPeerUser{UserID: ref.UserID, AccessHash: ref.AccessHash}, nil
	}

	if info, ok := m.clients.botPeers.get(userID); ok && info.kind == peerUser {
		return &tg.InputPeerUser{UserID: userID, AccessHash: info.accessHash}, nil
	}

	return nil, fmt.Errorf("user %d is not known to the bot session", userID)
}

func (m *Messenger) relayParticipantRef(ctx context.Context, userID int64) (tg.InputPeerClass, error) {
	switch userID {
	case m.clients.RelayID():
		return &tg.InputPeerSelf{}, nil
	case m.clients.SelfID():
		ref, err := m.clients.botUserRef(ctx)
		if err != nil {
			return nil, err
		}

		return &tg.InputPeerUser{UserID: ref.UserID, AccessHash: ref.AccessHash}, nil
	}

	return nil, fmt.Errorf("user %d is not known to the relay session", userID)
}

// memberStatus probes one member's standing in one chat.
func memberStatus(
	ctx context.Context,
	api *tg.Client,
	peers *peerCache,
	chatID, userID int64,
	participant tg.InputPeerClass,
) (transport.MemberStatus, error) {
	info, ok := peers.get(chatID)
	if !ok {
		return transport.StatusNone, fmt.Errorf("chat %d is not known to this session", chatID)
	}

	if info.kind == peerChannel {
		channel, err := peers.inputChannel(chatID)
		if err != nil {
			return transport.StatusNone, err
		}

		res, err := api.ChannelsGetParticipant(ctx, &tg.ChannelsGetParticipantRequest{
			Channel:     channel,
			Participant: participant,
		})
		if err != nil {
			if mapped := mapError(err); errors.Is(mapped, transport.ErrNotParticipant) {
				return transport.StatusNone, nil
			} else if errors.Is(mapped, transport.ErrBanned) {
				return transport.StatusBanned, nil
			}

			return transport.StatusNone, mapError(err)
		}

		return channelParticipantStatus(res.Participant), nil
	}

	return basicChatMemberStatus(ctx, api, chatID, userID)
}

func basicChatMemberStatus(ctx context.Context, api *tg.Client, chatID, userID int64) (transport.MemberStatus, error) {
	full, err := api.MessagesGetFullChat(ctx, chatID)
	if err != nil {
		return transport.StatusNone, mapError(err)
	}

	chatFull, ok := full.FullChat.(*tg.ChatFull)
	if !ok {
		return transport.StatusNone, fmt.Errorf("unexpected full chat type %T", full.FullChat)
	}

	participants, ok := chatFull.Participants.(*tg.ChatParticipants)
	if !ok {
		return transport.StatusNone, nil
	}

	for _, p := range participants.Participants {
		switch member := p.(type) {
		case *tg.ChatParticipantCreator:
			if member.UserID == userID {
				return transport.StatusOwner, nil
			}
		case *tg.ChatParticipantAdmin:
			if member.UserID == userID {
				return transport.StatusAdmin, nil
			}
		case *tg.ChatParticipant:
			if member.UserID == userID {
				return transport.StatusMember, nil
			}
		}
	}

	return transport.StatusNone, nil
}

func channelParticipantStatus(p tg.ChannelParticipantClass) transport.MemberStatus {
	switch participant := p.(type) {
	case *tg.ChannelParticipantCreator:
		return transport.StatusOwner
	case *tg.ChannelParticipantAdmin:
		return transport.StatusAdmin
	case *tg.ChannelParticipant, *tg.ChannelParticipantSelf:
		return transport.StatusMember
	case *tg.ChannelParticipantBanned:
		if participant.Left {
			return transport.StatusBanned
		}

		return transport.StatusMember
	default:
		return transport.StatusNone
	}
}
