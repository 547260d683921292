// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string
	ModerationChatID int64
	DatabasePath     string
	MediaDir         string
	LogLevel         string
	MetricsAddr      string
	DispatchGrace    time.Duration
	SendInterval     time.Duration
	AllowedUsers     []int64
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	modChatRaw := os.Getenv("MODERATION_CHAT_ID")
	if modChatRaw == "" {
		return nil, fmt.Errorf("MODERATION_CHAT_ID is required")
	}
	modChat, err := strconv.ParseInt(modChatRaw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MODERATION_CHAT_ID %q: %w", modChatRaw, err)
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/bot.db"
	}

	mediaDir := os.Getenv("MEDIA_DIR")
	if mediaDir == "" {
		mediaDir = "./media"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	grace, err := secondsEnv("DISPATCH_GRACE_SECONDS", 15)
	if err != nil {
		return nil, err
	}

	sendMs, err := intEnv("SEND_INTERVAL_MS", 300)
	if err != nil {
		return nil, err
	}

	var allowedUsers []int64
	if raw := os.Getenv("ALLOWED_USERS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			uid, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid user ID %q in ALLOWED_USERS: %w", s, err)
			}
			allowedUsers = append(allowedUsers, uid)
		}
	}

	return &Config{
		TelegramBotToken: token,
		ModerationChatID: modChat,
		DatabasePath:     dbPath,
		MediaDir:         mediaDir,
		LogLevel:         logLevel,
		MetricsAddr:      os.Getenv("METRICS_ADDR"),
		DispatchGrace:    grace,
		SendInterval:     time.Duration(sendMs) * time.Millisecond,
		AllowedUsers:     allowedUsers,
	}, nil
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

func intEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return v, nil
}

func secondsEnv(key string, def int) (time.Duration, error) {
	v, err := intEnv(key, def)
	if err != nil {
		return 0, err
	}
	return time.Duration(v) * time.Second, nil
}
