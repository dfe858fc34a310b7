// Package player owns the per-group playback sessions and the invariant that
// at most one audio stream is live per group at any time. A new request for a
// group with an active stream replaces it.
package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kyrshv/go-telegram-musicbot/internal/admission"
	"github.com/kyrshv/go-telegram-musicbot/internal/audio"
	"github.com/kyrshv/go-telegram-musicbot/internal/transport"
)

// State is a group session's position in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateAdmitting
	StateResolving
	StateStreaming
)

func (s State) String() string {
	switch s {
	case StateAdmitting:
		return "admitting"
	case StateResolving:
		return "resolving"
	case StateStreaming:
		return "streaming"
	default:
		return "idle"
	}
}

// Request is one inbound play request. Ephemeral: consumed synchronously and
// discarded once its outcome has been reported.
type Request struct {
	Chat        transport.Chat
	RequesterID int64
	Query       string
	ReceivedAt  time.Time
}

// Admitter ensures relay presence in a group.
type Admitter interface {
	Ensure(ctx context.Context, chat transport.Chat) admission.Result
}

type session struct {
	state     State
	query     string
	title     string
	startedAt time.Time
}

// Manager coordinates admission, acquisition and stream start per group.
// Outcomes are reported through the notifier, not return values.
type Manager struct {
	logger   *zap.Logger
	admitter Admitter
	resolver audio.Resolver
	voice    transport.VoiceCaller
	notifier transport.Notifier

	mu       sync.Mutex
	sessions map[int64]*session
}

// NewManager creates a playback session Manager.
func NewManager(
	logger *zap.Logger,
	admitter Admitter,
	resolver audio.Resolver,
	voice transport.VoiceCaller,
	notifier transport.Notifier,
) *Manager {
	m := &Manager{
		logger:   logger.Named("player"),
		admitter: admitter,
		resolver: resolver,
		voice:    voice,
		notifier: notifier,
		sessions: make(map[int64]*session),
	}
	voice.AddFinishedHandler(m.streamFinished)

	return m
}

// HandlePlay runs one play request to a terminal outcome. Concurrent requests
// for the same group are safe but not ordered: the transport serializes
// per-call state and the last stream to start wins.
func (m *Manager) HandlePlay(ctx context.Context, req Request) {
	if req.Query == "" {
		m.notifier.Notify(ctx, req.Chat.ID, "❌ Usage: /play song title or url")

		return
	}

	m.setState(req.Chat.ID, StateAdmitting, req.Query)

	if result := m.admitter.Ensure(ctx, req.Chat); result != admission.ResultPresent {
		// Admission has already notified the requester.
		m.clearSession(req.Chat.ID)

		return
	}

	m.setState(req.Chat.ID, StateResolving, req.Query)
	m.notifier.Notify(ctx, req.Chat.ID, "🎵 Searching & downloading audio...")

	track, err := m.resolver.Resolve(ctx, req.Query)
	if err != nil {
		m.notifyResolveFailure(ctx, req, err)
		m.clearSession(req.Chat.ID)

		return
	}

	m.setState(req.Chat.ID, StateStreaming, req.Query)

	if err := m.voice.Play(ctx, req.Chat.ID, track.Path); err != nil {
		m.notifier.Notify(ctx, req.Chat.ID, fmt.Sprintf("❌ Failed to start playback\n%v", err))
		m.clearSession(req.Chat.ID)

		return
	}

	m.mu.Lock()
	if s, ok := m.sessions[req.Chat.ID]; ok {
		s.title = track.Title
		s.startedAt = time.Now()
	}
	m.mu.Unlock()

	m.logger.Info("Stream started",
		zap.Int64("chat_id", req.Chat.ID),
		zap.Int64("requester_id", req.RequesterID),
		zap.String("title", track.Title))

	m.notifier.Notify(ctx, req.Chat.ID, "▶️ Now playing: "+track.Title)
}

// SessionState reports the group's current session state, StateIdle when no
// session exists.
func (m *Manager) SessionState(chatID int64) State {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[chatID]
	if !ok {
		return StateIdle
	}

	return s.state
}

func (m *Manager) setState(chatID int64, state State, query string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[chatID]
	if !ok {
		s = &session{}
		m.sessions[chatID] = s
	}
	s.state = state
	s.query = query
}

// streamFinished returns a group to idle once its stream has played out. A
// session already superseded by a newer request is left alone.
func (m *Manager) streamFinished(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[chatID]; ok && s.state == StateStreaming {
		delete(m.sessions, chatID)
	}
}

func (m *Manager) clearSession(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, chatID)
}

func (m *Manager) notifyResolveFailure(ctx context.Context, req Request, err error) {
	if errors.Is(err, audio.ErrNoResults) {
		m.notifier.Notify(ctx, req.Chat.ID, "❌ Nothing found for: "+req.Query)

		return
	}

	m.notifier.Notify(ctx, req.Chat.ID, fmt.Sprintf("❌ Failed to download audio\n%v", err))
}
