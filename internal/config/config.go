// internal/config/config.go
//
// Process configuration. Values come from the environment, optionally
// seeded from a .env file in the working directory.

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	LogLevel    string
	LogPretty   bool
	Origins     []string
	DBPath      string
	JWTSecret   string
	JWTTTL      time.Duration
	FinishedTTL time.Duration
	EmptyTTL    time.Duration
	ChatHistory int
	BotScript   string
	BotNames    string
}

const devSecret = "dev-secret-change-me"

// Load reads .env (if present) and then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function. Empty values mean "use the default".
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(k, def string) string {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			return v
		}
		return def
	}

	c := Config{
		Port:      get("PORT", "5175"),
		LogLevel:  get("LOG_LEVEL", "info"),
		LogPretty: get("LOG_PRETTY", "") == "1" || strings.EqualFold(get("LOG_PRETTY", ""), "true"),
		DBPath:    get("DB_PATH", "./data/millebornes.db"),
		JWTSecret: get("JWT_SECRET", devSecret),
		BotScript: get("BOT_SCRIPT", ""),
		BotNames:  get("BOT_NAMES_FILE", ""),
	}
	for _, o := range strings.Split(get("CLIENT_ORIGIN", "http://localhost:5173"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			c.Origins = append(c.Origins, o)
		}
	}

	hours, err := strconv.Atoi(get("JWT_EXPIRES_HOURS", "12"))
	if err != nil || hours <= 0 {
		return Config{}, fmt.Errorf("JWT_EXPIRES_HOURS: invalid value %q", getenv("JWT_EXPIRES_HOURS"))
	}
	c.JWTTTL = time.Duration(hours) * time.Hour

	if c.FinishedTTL, err = duration(get("FINISHED_GAME_TTL", "60s")); err != nil {
		return Config{}, fmt.Errorf("FINISHED_GAME_TTL: %w", err)
	}
	if c.EmptyTTL, err = duration(get("EMPTY_GAME_TTL", "60s")); err != nil {
		return Config{}, fmt.Errorf("EMPTY_GAME_TTL: %w", err)
	}

	if c.ChatHistory, err = strconv.Atoi(get("CHAT_HISTORY", "50")); err != nil || c.ChatHistory <= 0 {
		return Config{}, fmt.Errorf("CHAT_HISTORY: invalid value %q", getenv("CHAT_HISTORY"))
	}
	return c, nil
}

// UsingDevSecret reports whether JWT_SECRET was left unset.
func (c Config) UsingDevSecret() bool { return c.JWTSecret == devSecret }

func duration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", s)
	}
	return d, nil
}
