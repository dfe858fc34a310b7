package telegram

import (
	"fmt"

	"github.com/gotd/td/tgerr"

	"github.com/kyrshv/go-telegram-musicbot/internal/transport"
)

// mapError classifies MTProto RPC errors into the transport taxonomy.
// Unclassified errors pass through untouched so their raw diagnostic reaches
// the requester.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case tgerr.Is(err, "USER_ALREADY_PARTICIPANT"):
		return transport.ErrAlreadyParticipant
	case tgerr.Is(err, "USER_BANNED_IN_CHANNEL"), tgerr.Is(err, "USER_KICKED"):
		return transport.ErrBanned
	case tgerr.Is(err, "CHAT_WRITE_FORBIDDEN"):
		return transport.ErrWriteForbidden
	case tgerr.Is(err, "CHAT_ADMIN_REQUIRED"):
		return transport.ErrAdminRequired
	case tgerr.Is(err, "PEER_ID_INVALID"), tgerr.Is(err, "USERNAME_NOT_OCCUPIED"), tgerr.Is(err, "USERNAME_INVALID"), tgerr.Is(err, "USER_ID_INVALID"):
		return fmt.Errorf("%w: %v", transport.ErrPeerInvalid, err)
	case tgerr.Is(err, "USER_NOT_PARTICIPANT"), tgerr.Is(err, "PARTICIPANT_ID_INVALID"):
		return transport.ErrNotParticipant
	default:
		return err
	}
}
