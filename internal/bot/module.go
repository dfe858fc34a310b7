// Package bot provides the command router and its Fx module.
package bot

import (
	"go.uber.org/fx"

	"github.com/kyrshv/go-telegram-musicbot/internal/player"
	"github.com/kyrshv/go-telegram-musicbot/internal/store"
)

// Module provides the command router.
var Module = fx.Module("bot",
	fx.Provide(
		func(s *store.Store) StateStore { return s },
		func(m *player.Manager) Player { return m },
		NewBot,
	),
)
