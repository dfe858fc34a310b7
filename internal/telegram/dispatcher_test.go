package telegram

import (
	"testing"

	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/stretchr/testify/assert"

	"github.com/kyrshv/go-telegram-musicbot/internal/transport"
)

func newRPCError(errType string) error {
	return tgerr.New(400, errType)
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		botUsername string
		wantCommand string
		wantArgs    []string
	}{
		{
			name:        "bare command",
			text:        "/play",
			wantCommand: "play",
		},
		{
			name:        "command with args",
			text:        "/play never gonna give you up",
			wantCommand: "play",
			wantArgs:    []string{"never", "gonna", "give", "you", "up"},
		},
		{
			name:        "mention addressed to us",
			text:        "/play@MusicBot daft punk",
			botUsername: "musicbot",
			wantCommand: "play",
			wantArgs:    []string{"daft", "punk"},
		},
		{
			name:        "mention addressed to another bot",
			text:        "/play@OtherBot daft punk",
			botUsername: "musicbot",
			wantCommand: "",
		},
		{
			name:        "uppercase command is normalized",
			text:        "/PLAY song",
			wantCommand: "play",
			wantArgs:    []string{"song"},
		},
		{
			name:        "plain text is not a command",
			text:        "play something",
			wantCommand: "",
		},
		{
			name:        "lone slash",
			text:        "/",
			wantCommand: "",
		},
		{
			name:        "empty message",
			text:        "",
			wantCommand: "",
		},
		{
			name:        "leading whitespace",
			text:        "  /on",
			wantCommand: "on",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			command, args := ParseCommand(tt.text, tt.botUsername)
			assert.Equal(t, tt.wantCommand, command)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestChannelParticipantStatus(t *testing.T) {
	tests := []struct {
		name        string
		participant tg.ChannelParticipantClass
		want        transport.MemberStatus
	}{
		{"creator", &tg.ChannelParticipantCreator{}, transport.StatusOwner},
		{"admin", &tg.ChannelParticipantAdmin{}, transport.StatusAdmin},
		{"member", &tg.ChannelParticipant{}, transport.StatusMember},
		{"self", &tg.ChannelParticipantSelf{}, transport.StatusMember},
		{"banned and left", &tg.ChannelParticipantBanned{Left: true}, transport.StatusBanned},
		{"restricted but present", &tg.ChannelParticipantBanned{Left: false}, transport.StatusMember},
		{"left", &tg.ChannelParticipantLeft{}, transport.StatusNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, channelParticipantStatus(tt.participant))
		})
	}
}

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil))

	err := mapError(newRPCError("USER_ALREADY_PARTICIPANT"))
	assert.ErrorIs(t, err, transport.ErrAlreadyParticipant)

	err = mapError(newRPCError("USER_BANNED_IN_CHANNEL"))
	assert.ErrorIs(t, err, transport.ErrBanned)

	err = mapError(newRPCError("CHAT_ADMIN_REQUIRED"))
	assert.ErrorIs(t, err, transport.ErrAdminRequired)

	err = mapError(newRPCError("USERNAME_NOT_OCCUPIED"))
	assert.ErrorIs(t, err, transport.ErrPeerInvalid)

	err = mapError(newRPCError("USER_NOT_PARTICIPANT"))
	assert.ErrorIs(t, err, transport.ErrNotParticipant)

	raw := newRPCError("FLOOD_WAIT")
	assert.Equal(t, raw, mapError(raw))
}
