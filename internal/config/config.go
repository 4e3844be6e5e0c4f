package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// DefaultUserAgent is sent to the platforms unless USER_AGENT overrides it
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Config holds all application configuration
type Config struct {
	// External tools
	YtDlpPath  string
	FFmpegPath string
	UserAgent  string

	// Timeouts
	ProbeTimeout    time.Duration // per probe attempt
	StreamTimeout   time.Duration // 0 means streams only end with the client
	ProbeRetryDelay time.Duration // pause between two probe attempts

	// Scheduler
	ToolCheckSchedule string
	AutoUpdate        bool // run `yt-dlp -U` on UpdateSchedule
	UpdateSchedule    string

	// Server
	ServerPort string
	PublicDir  string

	// Paths
	DatabaseFile string // $CONFIG_DIR/clipgrab.db

	// Logging
	LogLevel  string
	LogFormat string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = viper.ReadInConfig()

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	// Set defaults
	viper.SetDefault("YTDLP_BIN", filepath.Join(cwd, "bin", "yt-dlp"))
	viper.SetDefault("FFMPEG_BIN", filepath.Join(cwd, "bin", "ffmpeg"))
	viper.SetDefault("USER_AGENT", DefaultUserAgent)
	viper.SetDefault("PROBE_TIMEOUT", "60s")
	viper.SetDefault("STREAM_TIMEOUT", "0s")
	viper.SetDefault("PROBE_RETRY_DELAY", "500ms")
	viper.SetDefault("TOOL_CHECK_SCHEDULE", "@every 30m")
	viper.SetDefault("YTDLP_AUTO_UPDATE", false)
	viper.SetDefault("YTDLP_UPDATE_SCHEDULE", "0 4 * * *")
	viper.SetDefault("PORT", "3000")
	viper.SetDefault("PUBLIC_DIR", "public")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "text")

	configDir := viper.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "clipgrab")
	} else {
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	config := &Config{
		// External tools
		YtDlpPath:  viper.GetString("YTDLP_BIN"),
		FFmpegPath: viper.GetString("FFMPEG_BIN"),
		UserAgent:  viper.GetString("USER_AGENT"),

		// Timeouts
		ProbeTimeout:    viper.GetDuration("PROBE_TIMEOUT"),
		StreamTimeout:   viper.GetDuration("STREAM_TIMEOUT"),
		ProbeRetryDelay: viper.GetDuration("PROBE_RETRY_DELAY"),

		// Scheduler
		ToolCheckSchedule: viper.GetString("TOOL_CHECK_SCHEDULE"),
		AutoUpdate:        viper.GetBool("YTDLP_AUTO_UPDATE"),
		UpdateSchedule:    viper.GetString("YTDLP_UPDATE_SCHEDULE"),

		// Server
		ServerPort: viper.GetString("PORT"),
		PublicDir:  viper.GetString("PUBLIC_DIR"),

		// Paths
		DatabaseFile: filepath.Join(configDir, "clipgrab.db"),

		// Logging
		LogLevel:  viper.GetString("LOG_LEVEL"),
		LogFormat: viper.GetString("LOG_FORMAT"),
	}

	// Validate fields
	if config.YtDlpPath == "" {
		return nil, fmt.Errorf("YTDLP_BIN must not be empty")
	}
	if config.FFmpegPath == "" {
		return nil, fmt.Errorf("FFMPEG_BIN must not be empty")
	}
	port, err := strconv.Atoi(config.ServerPort)
	if err != nil || port <= 0 || port > 65535 {
		return nil, fmt.Errorf("PORT must be a number between 1 and 65535, got %q", config.ServerPort)
	}
	if config.ProbeTimeout < 0 || config.StreamTimeout < 0 || config.ProbeRetryDelay < 0 {
		return nil, fmt.Errorf("timeouts must not be negative")
	}

	return config, nil
}
