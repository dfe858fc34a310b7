package player

import (
	"go.uber.org/fx"

	"github.com/kyrshv/go-telegram-musicbot/internal/admission"
)

// Module provides the playback session manager.
var Module = fx.Module("player",
	fx.Provide(
		func(c *admission.Controller) Admitter { return c },
		NewManager,
	),
)
