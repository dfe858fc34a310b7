package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// TelegramConfig stores Telegram specific configurations. Secrets can be
// supplied via environment variables instead of the file.
type TelegramConfig struct {
	APIID   int    `yaml:"api_id" env:"TG_API_ID"`
	APIHash string `yaml:"api_hash" env:"TG_API_HASH"`

	// BotToken authenticates the primary (bot) identity.
	BotToken string `yaml:"bot_token" env:"TG_BOT_TOKEN"`

	// OwnerID is the only user allowed to run administrative commands.
	OwnerID int64 `yaml:"owner_id" env:"TG_OWNER_ID"`

	// RelayUsername is the public handle of the relay user account that
	// joins groups to transmit audio into their voice calls.
	RelayUsername string `yaml:"relay_username" env:"TG_RELAY_USERNAME"`

	// Session file paths for the two MTProto sessions. The relay session
	// must already be authorized; the bot session is created on demand.
	BotSession   string `yaml:"bot_session"`
	RelaySession string `yaml:"relay_session"`
}

// StorageConfig locates the persisted state documents.
type StorageConfig struct {
	GroupStatusFile string `yaml:"group_status_file"`
	AdminGroupsFile string `yaml:"admin_groups_file"`
}

// AudioConfig stores audio acquisition configurations.
type AudioConfig struct {
	// YTDLP is the path of the yt-dlp binary.
	YTDLP       string `yaml:"ytdlp"`
	DownloadDir string `yaml:"download_dir"`
	// CookiesFile is handed to yt-dlp for authenticated extraction.
	CookiesFile string `yaml:"cookies_file"`
	// CacheSize bounds the resolved-track LRU cache.
	CacheSize int `yaml:"cache_size"`
}

// VoiceConfig stores voice streaming configurations.
type VoiceConfig struct {
	// FFmpeg is the path of the ffmpeg binary used to push audio into the
	// group call's RTMP ingest point.
	FFmpeg string `yaml:"ffmpeg"`
}

// Config stores the application configuration.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Storage  StorageConfig  `yaml:"storage"`
	Audio    AudioConfig    `yaml:"audio"`
	Voice    VoiceConfig    `yaml:"voice"`
	LogLevel string         `yaml:"log_level"`
}

// LoadConfig loads the configuration from the given file path, then applies
// environment variable overrides on top.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Storage.GroupStatusFile == "" {
		c.Storage.GroupStatusFile = "group_status.json"
	}
	if c.Storage.AdminGroupsFile == "" {
		c.Storage.AdminGroupsFile = "admin_groups.json"
	}
	if c.Audio.YTDLP == "" {
		c.Audio.YTDLP = "yt-dlp"
	}
	if c.Audio.DownloadDir == "" {
		c.Audio.DownloadDir = "downloads"
	}
	if c.Audio.CacheSize <= 0 {
		c.Audio.CacheSize = 32
	}
	if c.Voice.FFmpeg == "" {
		c.Voice.FFmpeg = "ffmpeg"
	}
	if c.Telegram.BotSession == "" {
		c.Telegram.BotSession = "bot.session.json"
	}
	if c.Telegram.RelaySession == "" {
		c.Telegram.RelaySession = "relay.session.json"
	}
}

func (c *Config) validate() error {
	if c.Telegram.APIID == 0 || c.Telegram.APIHash == "" {
		return errors.New("telegram api_id/api_hash are not set")
	}
	if c.Telegram.BotToken == "" {
		return errors.New("telegram bot_token is not set")
	}
	if c.Telegram.OwnerID == 0 {
		return errors.New("telegram owner_id is not set")
	}
	if c.Telegram.RelayUsername == "" {
		return errors.New("telegram relay_username is not set")
	}

	return nil
}
