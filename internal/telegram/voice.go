package telegram

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/gotd/td/tg"
	"go.uber.org/zap"

	"github.com/kyrshv/go-telegram-musicbot/internal/config"
)

// Caller streams a local audio file into a group's voice call by pushing it
// with ffmpeg to the call's RTMP ingest point, fetched through the relay
// session. One stream per chat: starting a new one kills the previous
// process, which is what gives play its replace-on-request semantics.
type Caller struct {
	logger  *zap.Logger
	cfg     *config.VoiceConfig
	clients *Clients

	mu       sync.Mutex
	streams  map[int64]*stream
	finished []func(chatID int64)
}

type stream struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCaller creates the voice Caller.
func NewCaller(logger *zap.Logger, cfg *config.Config, clients *Clients) *Caller {
	return &Caller{
		logger:  logger.Named("voice"),
		cfg:     &cfg.Voice,
		clients: clients,
		streams: make(map[int64]*stream),
	}
}

// Play implements transport.VoiceCaller.
func (c *Caller) Play(ctx context.Context, chatID int64, path string) error {
	ingest, err := c.ingestURL(ctx, chatID)
	if err != nil {
		return fmt.Errorf("fetching call ingest url: %w", err)
	}

	c.stopStream(chatID)

	streamCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(streamCtx, c.cfg.FFmpeg,
		"-hide_banner",
		"-loglevel", "error",
		"-re",
		"-i", path,
		"-vn",
		"-c:a", "aac",
		"-b:a", "128k",
		"-f", "flv",
		ingest,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		cancel()

		return fmt.Errorf("starting ffmpeg: %w", err)
	}

	s := &stream{cancel: cancel, done: make(chan struct{})}
	c.mu.Lock()
	c.streams[chatID] = s
	c.mu.Unlock()

	c.logger.Info("Stream started",
		zap.Int64("chat_id", chatID),
		zap.String("path", path))

	go func() {
		err := cmd.Wait()
		close(s.done)

		c.mu.Lock()
		if c.streams[chatID] == s {
			delete(c.streams, chatID)
		}
		c.mu.Unlock()

		switch {
		case streamCtx.Err() != nil:
			c.logger.Debug("Stream replaced or stopped", zap.Int64("chat_id", chatID))

			return
		case err != nil:
			c.logger.Warn("Stream ended with error",
				zap.Int64("chat_id", chatID),
				zap.String("stderr", strings.TrimSpace(stderr.String())),
				zap.Error(err))
		default:
			c.logger.Info("Stream finished", zap.Int64("chat_id", chatID))
		}

		c.mu.Lock()
		handlers := make([]func(chatID int64), len(c.finished))
		copy(handlers, c.finished)
		c.mu.Unlock()
		for _, h := range handlers {
			h(chatID)
		}
	}()

	return nil
}

// AddFinishedHandler implements transport.VoiceCaller.
func (c *Caller) AddFinishedHandler(h func(chatID int64)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finished = append(c.finished, h)
}

// Stop tears down every running stream.
func (c *Caller) Stop() {
	c.mu.Lock()
	ids := make([]int64, 0, len(c.streams))
	for id := range c.streams {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	for _, id := range ids {
		c.stopStream(id)
	}
}

func (c *Caller) stopStream(chatID int64) {
	c.mu.Lock()
	s := c.streams[chatID]
	delete(c.streams, chatID)
	c.mu.Unlock()

	if s == nil {
		return
	}

	s.cancel()
	<-s.done
}

// ingestURL fetches the RTMP ingest endpoint of the chat's voice call. The
// relay must already be a participant, which admission guarantees.
func (c *Caller) ingestURL(ctx context.Context, chatID int64) (string, error) {
	peer, err := c.relayPeer(ctx, chatID)
	if err != nil {
		return "", err
	}

	res, err := c.clients.relayAPI.PhoneGetGroupCallStreamRtmpURL(ctx, &tg.PhoneGetGroupCallStreamRtmpURLRequest{
		Peer:   peer,
		Revoke: false,
	})
	if err != nil {
		return "", mapError(err)
	}

	return strings.TrimSuffix(res.URL, "/") + "/" + res.Key, nil
}

// relayPeer resolves the chat on the relay session, refreshing its dialog
// listing once on a cache miss: the relay may have just joined.
func (c *Caller) relayPeer(ctx context.Context, chatID int64) (tg.InputPeerClass, error) {
	if peer, err := c.clients.relayPeers.inputPeer(chatID); err == nil {
		return peer, nil
	}

	if _, err := c.clients.relayDialogChats(ctx); err != nil {
		return nil, err
	}

	return c.clients.relayPeers.inputPeer(chatID)
}
