// Package main provides the entry point for the Telegram music bot application.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kyrshv/go-telegram-musicbot/internal/admission"
	"github.com/kyrshv/go-telegram-musicbot/internal/app"
	"github.com/kyrshv/go-telegram-musicbot/internal/audio"
	"github.com/kyrshv/go-telegram-musicbot/internal/bot"
	"github.com/kyrshv/go-telegram-musicbot/internal/config"
	"github.com/kyrshv/go-telegram-musicbot/internal/infrastructure"
	"github.com/kyrshv/go-telegram-musicbot/internal/player"
	"github.com/kyrshv/go-telegram-musicbot/internal/store"
	"github.com/kyrshv/go-telegram-musicbot/internal/telegram"
	pkginfra "github.com/kyrshv/go-telegram-musicbot/pkg/infrastructure"

	"go.uber.org/fx"
)

func main() {
	// Set a default config path. This can be overridden by environment variables or flags if needed.
	configPath := "config.yaml"

	// Create the application with all modules
	application := app.New(
		// Core modules
		config.Module,
		infrastructure.LoggerModule,

		// External service modules
		telegram.Module,

		// Application modules
		store.Module,
		audio.Module,
		admission.Module,
		player.Module,
		bot.Module,

		// Supply the config path
		fx.Supply(configPath),

		// Configure Fx to use our Zap logger for its own internal logging
		fx.WithLogger(pkginfra.NewFxLoggerAdapter),
	)

	// Set up a channel to listen for OS signals (like Ctrl+C)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Start the application in a goroutine
	go application.Run()

	// Block until a signal is received
	sig := <-sigCh
	fmt.Printf("Received signal: %s, initiating shutdown.\n", sig)

	// Give the application 30 seconds to shut down gracefully
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	err := application.Stop(shutdownCtx)
	cancel()

	if err != nil {
		fmt.Printf("Error during shutdown: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Application has shut down gracefully.")
}
