// Package server provides configuration helpers that define runtime defaults,
// validation, and environment loading for the chat hub service.
package server

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/Tyrowin/chathub/internal/hub"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	defaultPort              = ":8080"
	defaultMaxMessageSize    = 4096
	defaultSendBufferSize    = 256
	defaultWriteWait         = 10 * time.Second
	defaultPongWait          = 60 * time.Second
	defaultShutdownTimeout   = 10 * time.Second
	defaultPingIntervalRatio = 9 // ping every 9/10 of the pong wait
)

// Config holds the server configuration settings including security controls.
type Config struct {
	Port           string   `envconfig:"SERVER_PORT" default:":8080"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	// MaxMessageSize bounds a single WebSocket frame in bytes. It must leave
	// room for MaxMessageLength characters plus the JSON envelope, otherwise
	// oversized messages close the socket instead of returning an error.
	MaxMessageSize    int64         `envconfig:"MAX_MESSAGE_SIZE" default:"4096"`
	MaxMessageLength  int           `envconfig:"MAX_MESSAGE_LENGTH" default:"500"`
	MaxNicknameLength int           `envconfig:"MAX_NICKNAME_LENGTH" default:"20"`
	SendBufferSize    int           `envconfig:"SEND_BUFFER_SIZE" default:"256"`
	FanoutConcurrency int           `envconfig:"FANOUT_CONCURRENCY" default:"64"`
	WriteWait         time.Duration `envconfig:"WRITE_WAIT" default:"10s"`
	PongWait          time.Duration `envconfig:"PONG_WAIT" default:"60s"`
	PingInterval      time.Duration `envconfig:"PING_INTERVAL" default:"54s"`
	ShutdownTimeout   time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	CensoredWords     []string      `envconfig:"CENSORED_WORDS"`
	LogLevel          string        `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty         bool          `envconfig:"LOG_PRETTY" default:"false"`
}

func defaultConfig() Config {
	return Config{
		Port: defaultPort,
		AllowedOrigins: []string{
			"http://localhost:8080",
		},
		MaxMessageSize:    defaultMaxMessageSize,
		MaxMessageLength:  hub.DefaultMaxMessageLength,
		MaxNicknameLength: hub.DefaultMaxNicknameLength,
		SendBufferSize:    defaultSendBufferSize,
		FanoutConcurrency: hub.DefaultFanoutConcurrency,
		WriteWait:         defaultWriteWait,
		PongWait:          defaultPongWait,
		PingInterval:      defaultPongWait * defaultPingIntervalRatio / 10,
		ShutdownTimeout:   defaultShutdownTimeout,
		LogLevel:          "info",
	}
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// LoadConfig reads dotenv files (".env" when none are given), then the
// process environment, and returns the sanitized result. Missing dotenv
// files are not an error; variables already set in the environment win.
func LoadConfig(dotenvFiles ...string) (*Config, error) {
	if err := godotenv.Load(dotenvFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load dotenv: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}

	sanitized := cfg.Sanitize()
	return &sanitized, nil
}

// Sanitize returns a copy of cfg with unusable values replaced by defaults.
func (cfg Config) Sanitize() Config {
	defaults := defaultConfig()

	cfg.Port = strings.TrimSpace(cfg.Port)
	if cfg.Port == "" {
		cfg.Port = defaults.Port
	} else if !strings.Contains(cfg.Port, ":") {
		cfg.Port = ":" + cfg.Port
	}

	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaults.MaxMessageSize
	}
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = defaults.MaxMessageLength
	}
	if cfg.MaxNicknameLength <= 0 {
		cfg.MaxNicknameLength = defaults.MaxNicknameLength
	}
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = defaults.SendBufferSize
	}
	if cfg.FanoutConcurrency <= 0 {
		cfg.FanoutConcurrency = defaults.FanoutConcurrency
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = defaults.WriteWait
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = defaults.PongWait
	}
	if cfg.PingInterval <= 0 || cfg.PingInterval >= cfg.PongWait {
		cfg.PingInterval = cfg.PongWait * defaultPingIntervalRatio / 10
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}

	cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	cfg.CensoredWords = append([]string(nil), cfg.CensoredWords...)
	return cfg
}

func (cfg Config) sanitizerConfig() hub.SanitizerConfig {
	return hub.SanitizerConfig{
		MaxMessageLength:  cfg.MaxMessageLength,
		MaxNicknameLength: cfg.MaxNicknameLength,
		CensoredWords:     cfg.CensoredWords,
	}
}
