package admission

import (
	"go.uber.org/fx"
)

// Module provides the relay admission controller.
var Module = fx.Module("admission",
	fx.Provide(NewController),
)
