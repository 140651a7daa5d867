package main

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	env "github.com/Netflix/go-env"
	"github.com/go-monolith/mono"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

// Config holds the service configuration read from the environment.
type Config struct {
	Port     string `env:"PORT,default=3000"`
	LogLevel string `env:"LOG_LEVEL,default=info"`

	MaxMessages      int `env:"MAX_MESSAGES,default=1000"`
	HistoryReplay    int `env:"HISTORY_REPLAY,default=50"`
	MaxMessageLength int `env:"MAX_MESSAGE_LENGTH,default=5000"`

	SendQueueSize     int           `env:"SEND_QUEUE_SIZE,default=256"`
	PingInterval      time.Duration `env:"PING_INTERVAL,default=25s"`
	MessagesPerSecond float64       `env:"MESSAGES_PER_SECOND,default=10"`
	MessageBurst      int           `env:"MESSAGE_BURST,default=20"`

	CensoredWords   string `env:"CENSORED_WORDS"`
	CensorCharacter string `env:"CENSOR_CHARACTER,default=*"`

	NATSURL       string `env:"NATS_URL,default=nats://localhost:4222"`
	JetStreamDir  string `env:"JETSTREAM_DIR,default=/tmp/chatnest"`
	PhotoBucket   string `env:"PHOTO_BUCKET,default=chat-photos"`
	MaxPhotoBytes int    `env:"MAX_PHOTO_BYTES,default=524288"`

	CORSAllowedOrigins string        `env:"CORS_ALLOWED_ORIGINS,default=*"`
	StaticDir          string        `env:"STATIC_DIR"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT,default=30s"`
}

// LoadConfig reads an optional .env file and then the process environment.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects limits that would make the service unusable.
func (c Config) Validate() error {
	var errs []error
	positive := map[string]int{
		"MAX_MESSAGES":       c.MaxMessages,
		"HISTORY_REPLAY":     c.HistoryReplay,
		"MAX_MESSAGE_LENGTH": c.MaxMessageLength,
		"SEND_QUEUE_SIZE":    c.SendQueueSize,
		"MESSAGE_BURST":      c.MessageBurst,
		"MAX_PHOTO_BYTES":    c.MaxPhotoBytes,
	}
	keys := lo.Keys(positive)
	slices.Sort(keys)
	for _, key := range keys {
		if positive[key] <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", key, positive[key]))
		}
	}
	if c.MessagesPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("MESSAGES_PER_SECOND must be positive, got %v", c.MessagesPerSecond))
	}
	if c.PingInterval < 0 {
		errs = append(errs, fmt.Errorf("PING_INTERVAL must not be negative, got %s", c.PingInterval))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %s", c.ShutdownTimeout))
	}
	if utf8.RuneCountInString(c.CensorCharacter) != 1 {
		errs = append(errs, fmt.Errorf("CENSOR_CHARACTER must be a single character, got %q", c.CensorCharacter))
	}
	if _, ok := logLevels[strings.ToLower(strings.TrimSpace(c.LogLevel))]; !ok {
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", c.LogLevel))
	}
	if c.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	return errors.Join(errs...)
}

// CensoredWordList splits CENSORED_WORDS on commas.
func (c Config) CensoredWordList() []string {
	return lo.Compact(lo.Map(strings.Split(c.CensoredWords, ","), func(w string, _ int) string {
		return strings.TrimSpace(w)
	}))
}

// CensorRune returns the mask character.
func (c Config) CensorRune() rune {
	r, _ := utf8.DecodeRuneInString(c.CensorCharacter)
	return r
}

var logLevels = map[string]mono.LogLevel{
	"debug": mono.LogLevelDebug,
	"info":  mono.LogLevelInfo,
	"warn":  mono.LogLevelWarn,
	"error": mono.LogLevelError,
}

// MonoLogLevel maps LOG_LEVEL onto the framework log level. Unknown values
// map to info; Validate rejects them.
func (c Config) MonoLogLevel() mono.LogLevel {
	if level, ok := logLevels[strings.ToLower(strings.TrimSpace(c.LogLevel))]; ok {
		return level
	}
	return mono.LogLevelInfo
}
