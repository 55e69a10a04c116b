// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Listing source kinds.
const (
	SourceStorefront = "storefront"
	SourceFeed       = "feed"
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string
	NotifyChatID     int64
	DatabasePath     string
	LogLevel         string
	AllowedUsers     []int64
	ScrapeInterval   time.Duration
	HTTPAddr         string

	SourceKind          string
	StorefrontBaseURL   string
	StorefrontSearchURL string
	FeedURL             string
	SourceCookie        string
	MaxPages            int
	RequestTimeout      time.Duration
	RequestsPerSecond   float64

	NotifyChunkSize  int
	NotifyChunkDelay time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	rawChat := os.Getenv("NOTIFY_CHAT_ID")
	if rawChat == "" {
		return nil, fmt.Errorf("NOTIFY_CHAT_ID is required")
	}
	chatID, err := strconv.ParseInt(strings.TrimSpace(rawChat), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid NOTIFY_CHAT_ID %q: %w", rawChat, err)
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

	cfg := &Config{
		TelegramBotToken:    token,
		NotifyChatID:        chatID,
		DatabasePath:        envString("DATABASE_PATH", "./data/storewatch.db"),
		LogLevel:            envString("LOG_LEVEL", "info"),
		AllowedUsers:        allowedUsers,
		HTTPAddr:            envString("HTTP_ADDR", ":8080"),
		SourceKind:          envString("SOURCE_KIND", SourceStorefront),
		StorefrontBaseURL:   envString("STOREFRONT_BASE_URL", "https://www.melonbooks.co.jp"),
		StorefrontSearchURL: envString("STOREFRONT_SEARCH_URL", "https://www.melonbooks.co.jp/search/search.php?name={artist}&text_type=author&disp_number=100&pageno={page}"),
		FeedURL:             os.Getenv("FEED_URL"),
		SourceCookie:        envString("SOURCE_COOKIE", "AUTH_ADULT=1"),
	}

	if cfg.ScrapeInterval, err = envDuration("SCRAPE_INTERVAL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = envDuration("REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.NotifyChunkDelay, err = envDuration("NOTIFY_CHUNK_DELAY", time.Second); err != nil {
		return nil, err
	}
	if cfg.MaxPages, err = envInt("MAX_PAGES", 20); err != nil {
		return nil, err
	}
	if cfg.NotifyChunkSize, err = envInt("NOTIFY_CHUNK_SIZE", 10); err != nil {
		return nil, err
	}
	if cfg.RequestsPerSecond, err = envFloat("REQUESTS_PER_SECOND", 1); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.SourceKind {
	case SourceStorefront:
	case SourceFeed:
		if !strings.Contains(c.FeedURL, "{artist}") {
			return fmt.Errorf("FEED_URL must be set and contain {artist} when SOURCE_KIND=feed")
		}
	default:
		return fmt.Errorf("invalid SOURCE_KIND %q, use: %s, %s", c.SourceKind, SourceStorefront, SourceFeed)
	}
	if c.ScrapeInterval <= 0 {
		return fmt.Errorf("SCRAPE_INTERVAL must be positive")
	}
	if c.MaxPages < 1 {
		return fmt.Errorf("MAX_PAGES must be at least 1")
	}
	if c.NotifyChunkSize < 1 {
		return fmt.Errorf("NOTIFY_CHUNK_SIZE must be at least 1")
	}
	return nil
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

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func envFloat(key string, def float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}
