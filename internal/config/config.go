// Package config reads the server configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MartinAltmayer/pokerserver-sub000/poker"
)

// Config is read once at startup and treated as read-only afterwards.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string
	// TurnTimeout is how long a player may take per action. Zero
	// disables timeout kicks.
	TurnTimeout time.Duration
	// FreeTables is the number of joinable tables the server keeps
	// provisioned.
	FreeTables int
	// Seed drives dealer selection and shuffling. Zero picks a
	// time-based seed.
	Seed int64
	// Table is applied to every table the server creates.
	Table poker.TableConfig
}

func FromEnv() Config {
	return Config{
		Addr:        envStringOrDefault("POKER_ADDR", ":8080"),
		TurnTimeout: envDurationOrDefault("POKER_TURN_TIMEOUT", 30*time.Second),
		FreeTables:  envIntOrDefault("POKER_FREE_TABLES", 2),
		Seed:        int64(envIntOrDefault("POKER_RNG_SEED", 0)),
		Table: poker.TableConfig{
			MinPlayerCount: envIntOrDefault("POKER_MIN_PLAYER_COUNT", 2),
			MaxPlayerCount: envIntOrDefault("POKER_MAX_PLAYER_COUNT", 10),
			SmallBlind:     envIntOrDefault("POKER_SMALL_BLIND", 1),
			BigBlind:       envIntOrDefault("POKER_BIG_BLIND", 2),
			StartBalance:   envIntOrDefault("POKER_START_BALANCE", 100),
		},
	}
}

func envStringOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envDurationOrDefault(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
