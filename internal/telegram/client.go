// Package telegram implements the transport contracts over MTProto using
// gotd. Two sessions are maintained: the bot account (primary identity,
// command handling and messaging) and the relay user account (secondary
// identity, the one that joins groups and feeds their voice calls).
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"go.uber.org/zap"

	"github.com/kyrshv/go-telegram-musicbot/internal/config"
	"github.com/kyrshv/go-telegram-musicbot/internal/transport"
)

// Clients owns the two MTProto sessions and the identity facts derived from
// them at startup.
type Clients struct {
	logger *zap.Logger
	cfg    *config.TelegramConfig

	dispatcher tg.UpdateDispatcher
	bot        *telegram.Client
	relay      *telegram.Client
	botAPI     *tg.Client
	relayAPI   *tg.Client

	botPeers   *peerCache
	relayPeers *peerCache

	mu        sync.Mutex
	botSelf   *tg.User
	relaySelf *tg.User
	// relayRef is the relay's input reference as seen by the bot session,
	// resolved lazily from the configured handle. botRef is the inverse.
	relayRef *tg.InputUser
	botRef   *tg.InputUser

	stops []func() error
}

// NewClients builds both clients. Nothing connects until Start.
func NewClients(logger *zap.Logger, cfg *config.Config) *Clients {
	c := &Clients{
		logger:     logger.Named("telegram"),
		cfg:        &cfg.Telegram,
		dispatcher: tg.NewUpdateDispatcher(),
		botPeers:   newPeerCache(),
		relayPeers: newPeerCache(),
	}

	c.bot = telegram.NewClient(c.cfg.APIID, c.cfg.APIHash, telegram.Options{
		SessionStorage: &session.FileStorage{Path: c.cfg.BotSession},
		Logger:         c.logger.Named("mtproto_bot"),
		UpdateHandler:  c.dispatcher,
	})
	c.relay = telegram.NewClient(c.cfg.APIID, c.cfg.APIHash, telegram.Options{
		SessionStorage: &session.FileStorage{Path: c.cfg.RelaySession},
		Logger:         c.logger.Named("mtproto_relay"),
	})

	c.botAPI = c.bot.API()
	c.relayAPI = c.relay.API()

	return c
}

// Start connects and authorizes both sessions. An unauthorized or deactivated
// relay session is fatal: there is no way to re-authenticate a user account
// unattended, so the operator has to log it in again.
func (c *Clients) Start(ctx context.Context) error {
	stopBot, err := runClient(ctx, c.bot, func(ctx context.Context) error {
		status, err := c.bot.Auth().Status(ctx)
		if err != nil {
			return fmt.Errorf("bot auth status: %w", err)
		}
		if !status.Authorized {
			if _, err := c.bot.Auth().Bot(ctx, c.cfg.BotToken); err != nil {
				return fmt.Errorf("bot login: %w", err)
			}
		}

		self, err := c.bot.Self(ctx)
		if err != nil {
			return fmt.Errorf("resolving bot identity: %w", err)
		}
		c.mu.Lock()
		c.botSelf = self
		c.mu.Unlock()

		return nil
	})
	if err != nil {
		return err
	}
	c.stops = append(c.stops, stopBot)

	stopRelay, err := runClient(ctx, c.relay, func(ctx context.Context) error {
		status, err := c.relay.Auth().Status(ctx)
		if err != nil {
			return fmt.Errorf("relay auth status: %w", err)
		}
		if !status.Authorized {
			return errors.New("relay session is dead or unauthorized, log the relay account in again")
		}

		self, err := c.relay.Self(ctx)
		if err != nil {
			return fmt.Errorf("resolving relay identity: %w", err)
		}
		c.mu.Lock()
		c.relaySelf = self
		c.mu.Unlock()

		return nil
	})
	if err != nil {
		c.Stop()

		return err
	}
	c.stops = append(c.stops, stopRelay)

	c.logger.Info("Telegram sessions established",
		zap.Int64("bot_id", c.SelfID()),
		zap.Int64("relay_id", c.RelayID()))

	return nil
}

// Stop disconnects both sessions.
func (c *Clients) Stop() {
	for i := len(c.stops) - 1; i >= 0; i-- {
		if err := c.stops[i](); err != nil {
			c.logger.Warn("Session shutdown error", zap.Error(err))
		}
	}
	c.stops = nil
}

// SelfID is the bot account's user id. Valid after Start.
func (c *Clients) SelfID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.botSelf == nil {
		return 0
	}

	return c.botSelf.ID
}

// RelayID is the relay account's user id. Valid after Start.
func (c *Clients) RelayID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.relaySelf == nil {
		return 0
	}

	return c.relaySelf.ID
}

// runClient runs a gotd client on a background goroutine, blocking only
// until the connection is up and init has run. The returned stop function
// cancels the run loop and waits for it to exit.
func runClient(ctx context.Context, client *telegram.Client, init func(ctx context.Context) error) (func() error, error) {
	runCtx, cancel := context.WithCancel(context.Background())

	errC := make(chan error, 1)
	ready := make(chan struct{})

	go func() {
		errC <- client.Run(runCtx, func(ctx context.Context) error {
			if err := init(ctx); err != nil {
				return err
			}
			close(ready)
			<-ctx.Done()

			return ctx.Err()
		})
	}()

	select {
	case <-ctx.Done():
		cancel()
		<-errC

		return nil, ctx.Err()
	case err := <-errC:
		cancel()

		return nil, err
	case <-ready:
	}

	stop := func() error {
		cancel()
		if err := <-errC; err != nil && !errors.Is(err, context.Canceled) {
			return err
		}

		return nil
	}

	return stop, nil
}

// relayUserRef resolves the relay account's input reference for the bot
// session, caching the result. A bad handle maps to the invalid-reference
// sentinel so admission can surface the misconfiguration.
func (c *Clients) relayUserRef(ctx context.Context) (*tg.InputUser, error) {
	c.mu.Lock()
	ref := c.relayRef
	c.mu.Unlock()
	if ref != nil {
		return ref, nil
	}

	ref, err := resolveUserRef(ctx, c.botAPI, c.cfg.RelayUsername)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.relayRef = ref
	c.mu.Unlock()

	return ref, nil
}

// botUserRef resolves the bot's input reference for the relay session,
// used when the privileged-group scan probes the bot's status from the
// relay side.
func (c *Clients) botUserRef(ctx context.Context) (*tg.InputUser, error) {
	c.mu.Lock()
	ref := c.botRef
	username := ""
	if c.botSelf != nil {
		username = c.botSelf.Username
	}
	c.mu.Unlock()
	if ref != nil {
		return ref, nil
	}
	if username == "" {
		return nil, errors.New("bot username unknown")
	}

	ref, err := resolveUserRef(ctx, c.relayAPI, username)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.botRef = ref
	c.mu.Unlock()

	return ref, nil
}

func resolveUserRef(ctx context.Context, api *tg.Client, username string) (*tg.InputUser, error) {
	resolved, err := api.ContactsResolveUsername(ctx, username)
	if err != nil {
		return nil, mapError(err)
	}

	for _, u := range resolved.Users {
		if user, ok := u.(*tg.User); ok && strings.EqualFold(user.Username, username) {
			return &tg.InputUser{UserID: user.ID, AccessHash: user.AccessHash}, nil
		}
	}

	return nil, fmt.Errorf("resolving @%s: %w", username, transport.ErrPeerInvalid)
}
