// Package config loads settings shared by the CLI and the web frontend from
// the environment, after an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/and161185/nimbly/internal/storage/backend"
	"github.com/and161185/nimbly/internal/storage/redisstore"
	"github.com/joho/godotenv"
)

// Config is the resolved configuration of one process.
type Config struct {
	APIURL       string
	Storage      backend.Config
	HTTPAddr     string
	CookieSecure bool
	LogLevel     string
	HTTPTimeout  time.Duration
}

// Defaults differ between surfaces: the CLI persists to disk and stays quiet,
// the web frontend keeps browser sessions in memory and logs requests.
type Defaults struct {
	Store    string
	LogLevel string
}

var (
	CLIDefaults = Defaults{Store: backend.File, LogLevel: "warn"}
	WebDefaults = Defaults{Store: backend.Memory, LogLevel: "info"}
)

// Load reads envFiles (".env" when none are given; missing files are
// ignored) and then the NIMBLY_* environment.
func Load(d Defaults, envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		// Load never overrides variables already set in the environment
		if err := godotenv.Load(f); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	timeout, err := time.ParseDuration(getEnv("NIMBLY_HTTP_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("NIMBLY_HTTP_TIMEOUT: %w", err)
	}
	secure, err := strconv.ParseBool(getEnv("NIMBLY_COOKIE_SECURE", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("NIMBLY_COOKIE_SECURE: %w", err)
	}

	return Config{
		APIURL: strings.TrimRight(getEnv("NIMBLY_API_URL", "http://localhost:8000"), "/"),
		Storage: backend.Config{
			Kind:       getEnv("NIMBLY_STORE", d.Store),
			Path:       os.Getenv("NIMBLY_STORE_PATH"),
			Passphrase: os.Getenv("NIMBLY_STORE_PASSPHRASE"),
			Redis: redisstore.Config{
				Addr:     getEnv("NIMBLY_REDIS_ADDR", "localhost:6379"),
				Password: os.Getenv("NIMBLY_REDIS_PASSWORD"),
			},
			DSN: os.Getenv("NIMBLY_DATABASE_DSN"),
		},
		HTTPAddr:     getEnv("NIMBLY_HTTP_ADDR", ":3000"),
		CookieSecure: secure,
		LogLevel:     getEnv("NIMBLY_LOG_LEVEL", d.LogLevel),
		HTTPTimeout:  timeout,
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
