package telegram

import (
	"context"

	"github.com/gotd/td/tg"
)

const dialogsPageSize = 100

// relayDialogChats pages through the relay session's full dialog list and
// returns every group-like chat it contains, feeding the relay peer cache
// along the way. Pagination follows the offset contract of
// messages.getDialogs: the last dialog's peer plus its top message's id and
// date become the next page's offset.
func (c *Clients) relayDialogChats(ctx context.Context) ([]tg.ChatClass, error) {
	var (
		out        []tg.ChatClass
		seen       = make(map[int64]bool)
		offsetDate int
		offsetID   int
		offsetPeer tg.InputPeerClass = &tg.InputPeerEmpty{}
	)

	for {
		res, err := c.relayAPI.MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
			OffsetDate: offsetDate,
			OffsetID:   offsetID,
			OffsetPeer: offsetPeer,
			Limit:      dialogsPageSize,
		})
		if err != nil {
			return nil, mapError(err)
		}

		switch d := res.(type) {
		case *tg.MessagesDialogs:
			return c.collectDialogChats(out, seen, d.Chats), nil
		case *tg.MessagesDialogsSlice:
			out = c.collectDialogChats(out, seen, d.Chats)

			date, id, peer, ok := nextDialogsOffset(d)
			if !ok || len(d.Dialogs) < dialogsPageSize {
				return out, nil
			}
			offsetDate, offsetID, offsetPeer = date, id, peer
		default:
			return out, nil
		}
	}
}

func (c *Clients) collectDialogChats(out []tg.ChatClass, seen map[int64]bool, chats []tg.ChatClass) []tg.ChatClass {
	for _, cc := range chats {
		switch chat := cc.(type) {
		case *tg.Channel:
			c.relayPeers.putChannel(chat.ID, chat.AccessHash)
			if !seen[chat.ID] {
				seen[chat.ID] = true
				out = append(out, chat)
			}
		case *tg.Chat:
			c.relayPeers.putBasicChat(chat.ID)
			if !seen[chat.ID] {
				seen[chat.ID] = true
				out = append(out, chat)
			}
		}
	}

	return out
}

// nextDialogsOffset derives the offset of the page following a dialogs
// slice. Reports ok=false when the slice carries nothing to continue from.
func nextDialogsOffset(d *tg.MessagesDialogsSlice) (date, id int, peer tg.InputPeerClass, ok bool) {
	if len(d.Dialogs) == 0 {
		return 0, 0, nil, false
	}

	last, isDialog := d.Dialogs[len(d.Dialogs)-1].(*tg.Dialog)
	if !isDialog {
		return 0, 0, nil, false
	}

	peer = slicePeer(last.Peer, d)
	if peer == nil {
		return 0, 0, nil, false
	}

	for _, mc := range d.Messages {
		switch m := mc.(type) {
		case *tg.Message:
			if m.ID == last.TopMessage && samePeer(m.PeerID, last.Peer) {
				date = m.Date
			}
		case *tg.MessageService:
			if m.ID == last.TopMessage && samePeer(m.PeerID, last.Peer) {
				date = m.Date
			}
		}
	}

	return date, last.TopMessage, peer, true
}

// slicePeer builds the input peer for a dialog's peer from the entities
// shipped with the same slice.
func slicePeer(p tg.PeerClass, d *tg.MessagesDialogsSlice) tg.InputPeerClass {
	switch peer := p.(type) {
	case *tg.PeerChannel:
		for _, cc := range d.Chats {
			if ch, ok := cc.(*tg.Channel); ok && ch.ID == peer.ChannelID {
				return &tg.InputPeerChannel{ChannelID: ch.ID, AccessHash: ch.AccessHash}
			}
		}
	case *tg.PeerChat:
		return &tg.InputPeerChat{ChatID: peer.ChatID}
	case *tg.PeerUser:
		for _, uc := range d.Users {
			if u, ok := uc.(*tg.User); ok && u.ID == peer.UserID {
				return &tg.InputPeerUser{UserID: u.ID, AccessHash: u.AccessHash}
			}
		}
	}

	return nil
}

func samePeer(a, b tg.PeerClass) bool {
	switch ap := a.(type) {
	case *tg.PeerUser:
		bp, ok := b.(*tg.PeerUser)

		return ok && ap.UserID == bp.UserID
	case *tg.PeerChat:
		bp, ok := b.(*tg.PeerChat)

		return ok && ap.ChatID == bp.ChatID
	case *tg.PeerChannel:
		bp, ok := b.(*tg.PeerChannel)

		return ok && ap.ChannelID == bp.ChannelID
	default:
		return false
	}
}
