package store

import (
	"go.uber.org/fx"
)

// Module provides the state store.
var Module = fx.Module("store",
	fx.Provide(NewStore),
)
