// Package audio provides audio acquisition infrastructure and Fx modules.
package audio

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/kyrshv/go-telegram-musicbot/internal/config"
)

// Module provides audio acquisition dependencies. The exported Resolver is
// the caching one; the yt-dlp resolver sits behind it.
var Module = fx.Module("audio",
	fx.Provide(
		NewYTDLPResolver,
		func(logger *zap.Logger, cfg *config.Config, ytdlp *YTDLPResolver) (Resolver, error) {
			return NewCachingResolver(logger, cfg, ytdlp)
		},
	),
)
