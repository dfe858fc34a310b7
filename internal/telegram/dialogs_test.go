package telegram

import (
	"testing"

	"github.com/gotd/td/tg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextDialogsOffset(t *testing.T) {
	slice := &tg.MessagesDialogsSlice{
		Dialogs: []tg.DialogClass{
			&tg.Dialog{
				Peer:       &tg.PeerChat{ChatID: 10},
				TopMessage: 41,
			},
			&tg.Dialog{
				Peer:       &tg.PeerChannel{ChannelID: 20},
				TopMessage: 42,
			},
		},
		Messages: []tg.MessageClass{
			&tg.Message{ID: 41, PeerID: &tg.PeerChat{ChatID: 10}, Date: 1100},
			&tg.Message{ID: 42, PeerID: &tg.PeerChannel{ChannelID: 20}, Date: 1200},
		},
		Chats: []tg.ChatClass{
			&tg.Chat{ID: 10},
			&tg.Channel{ID: 20, AccessHash: 777},
		},
	}

	date, id, peer, ok := nextDialogsOffset(slice)
	require.True(t, ok)
	assert.Equal(t, 1200, date, "offset date comes from the last dialog's top message")
	assert.Equal(t, 42, id)

	channel, isChannel := peer.(*tg.InputPeerChannel)
	require.True(t, isChannel)
	assert.Equal(t, int64(20), channel.ChannelID)
	assert.Equal(t, int64(777), channel.AccessHash)
}

func TestNextDialogsOffset_ServiceTopMessage(t *testing.T) {
	slice := &tg.MessagesDialogsSlice{
		Dialogs: []tg.DialogClass{
			&tg.Dialog{Peer: &tg.PeerChat{ChatID: 10}, TopMessage: 7},
		},
		Messages: []tg.MessageClass{
			&tg.MessageService{ID: 7, PeerID: &tg.PeerChat{ChatID: 10}, Date: 900},
		},
		Chats: []tg.ChatClass{&tg.Chat{ID: 10}},
	}

	date, id, peer, ok := nextDialogsOffset(slice)
	require.True(t, ok)
	assert.Equal(t, 900, date)
	assert.Equal(t, 7, id)
	assert.IsType(t, &tg.InputPeerChat{}, peer)
}

func TestNextDialogsOffset_NothingToContinueFrom(t *testing.T) {
	_, _, _, ok := nextDialogsOffset(&tg.MessagesDialogsSlice{})
	assert.False(t, ok, "an empty page ends pagination")

	// A channel peer with no matching entity cannot form an offset.
	_, _, _, ok = nextDialogsOffset(&tg.MessagesDialogsSlice{
		Dialogs: []tg.DialogClass{
			&tg.Dialog{Peer: &tg.PeerChannel{ChannelID: 99}, TopMessage: 1},
		},
	})
	assert.False(t, ok)
}
