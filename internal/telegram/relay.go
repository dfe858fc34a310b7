package telegram

import (
	"context"
	"fmt"

	"github.com/gotd/td/tg"
	"go.uber.org/zap"
)

// Relay is the relay-session side of the messaging transport: the account
// that actually sits in voice calls.
type Relay struct {
	logger  *zap.Logger
	clients *Clients
}

// NewRelay creates the Relay over the relay session.
func NewRelay(logger *zap.Logger, clients *Clients) *Relay {
	return &Relay{
		logger:  logger.Named("relay"),
		clients: clients,
	}
}

// ID implements transport.Relay.
func (r *Relay) ID() int64 {
	return r.clients.RelayID()
}

// JoinByHandle implements transport.Relay: the relay self-joins a publicly
// addressable group via its handle.
func (r *Relay) JoinByHandle(ctx context.Context, handle string) error {
	resolved, err := r.clients.relayAPI.ContactsResolveUsername(ctx, handle)
	if err != nil {
		return mapError(err)
	}

	var channel *tg.Channel
	for _, c := range resolved.Chats {
		if ch, ok := c.(*tg.Channel); ok {
			channel = ch

			break
		}
	}
	if channel == nil {
		return fmt.Errorf("@%s does not resolve to a group", handle)
	}

	r.clients.relayPeers.putChannel(channel.ID, channel.AccessHash)

	if _, err := r.clients.relayAPI.ChannelsJoinChannel(ctx, &tg.InputChannel{
		ChannelID:  channel.ID,
		AccessHash: channel.AccessHash,
	}); err != nil {
		return mapError(err)
	}

	r.logger.Info("Relay joined group",
		zap.Int64("chat_id", channel.ID),
		zap.String("handle", handle))

	return nil
}
