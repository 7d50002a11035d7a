// internal/config/config.go
//
// Runtime configuration for the riddle server.
// Values come from the environment; a .env file in the working directory is
// loaded first when present (development convenience).

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/aero-atlassian-apps/riddle-dragon-quest-sub000/internal/game"
)

// Config holds application configuration.
type Config struct {
	Port         string
	LogLevel     string
	DBDriver     string // sqlite | postgres
	DBPath       string // sqlite file, or :memory:
	DatabaseURL  string // postgres DSN
	ClientOrigin string

	TransitionDelay  time.Duration
	AnswerRatePerMin int // 0 disables answer rate limiting
}

// Load reads .env (if any) and the environment, applying defaults.
func Load() *Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads configuration from environment variables only.
func FromEnv() *Config {
	return &Config{
		Port:             getEnv("PORT", "5175"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		DBDriver:         getEnv("DB_DRIVER", "sqlite"),
		DBPath:           getEnv("DB_PATH", "./data/riddles.db"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		ClientOrigin:     getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		TransitionDelay:  time.Duration(getInt("TRANSITION_DELAY_MS", int(game.DefaultTransitionDelay/time.Millisecond))) * time.Millisecond,
		AnswerRatePerMin: getInt("ANSWER_RATE_PER_MIN", 30),
	}
}

// DataSource returns the DSN for the configured driver.
func (c *Config) DataSource() string {
	switch c.DBDriver {
	case "postgres", "postgresql", "supabase":
		return c.DatabaseURL
	default:
		return c.DBPath
	}
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// getInt parses k as a non-negative integer, falling back to def.
func getInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		log.Warn().Str("key", k).Str("value", v).Int("default", def).Msg("invalid integer setting, using default")
		return def
	}
	return n
}
