// Package telegram adapts the MTProto bot and relay sessions to the
// transport interfaces the rest of the application is written against.
package telegram

import (
	"context"

	"go.uber.org/fx"

	"github.com/kyrshv/go-telegram-musicbot/internal/transport"
)

// Module provides both MTProto clients and every transport implementation
// backed by them.
var Module = fx.Module("telegram",
	fx.Provide(
		NewClients,
		NewMessenger,
		NewDispatcher,
		NewRelay,
		NewCaller,
		func(m *Messenger) transport.Messenger { return m },
		func(d *Dispatcher) transport.Dispatcher { return d },
		func(r *Relay) transport.Relay { return r },
		func(c *Caller) transport.VoiceCaller { return c },
		transport.NewNotifier,
	),
	fx.Invoke(registerLifecycleHooks),
)

func registerLifecycleHooks(lc fx.Lifecycle, clients *Clients, caller *Caller) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return clients.Start(ctx)
		},
		OnStop: func(_ context.Context) error {
			caller.Stop()
			clients.Stop()

			return nil
		},
	})
}
