package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	GitHub   GitHubConfig
	Slack    SlackConfig
	Watch    WatchConfig
	Filter   FilterConfig
	API      APIConfig
}

type ServerConfig struct {
	Port         string
	Mode         string
	ReadTimeout  int
	WriteTimeout int
}

type DatabaseConfig struct {
	Path string
}

type GitHubConfig struct {
	Token             string
	APIURL            string
	RequestsPerSecond float64
	MinRemaining      int
}

type SlackConfig struct {
	WebhookURL string
}

type WatchConfig struct {
	Enabled  bool
	Schedule string
}

// FilterConfig controls which contributors are kept in a scrape result.
type FilterConfig struct {
	MinContributions int
	ExcludeBots      bool
	Denylist         []string
}

type APIConfig struct {
	Token string
}

var AppConfig *Config

// Load loads configuration from .env file and environment variables
func Load() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	AppConfig = &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Mode:         getEnv("GIN_MODE", "release"),
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 15),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./gitreach.db"),
		},
		GitHub: GitHubConfig{
			Token:             getEnv("GITHUB_TOKEN", ""),
			APIURL:            getEnv("GITHUB_API_URL", ""),
			RequestsPerSecond: getEnvAsFloat("GITHUB_REQUESTS_PER_SECOND", 1.2),
			MinRemaining:      getEnvAsInt("GITHUB_MIN_REMAINING", 100),
		},
		Slack: SlackConfig{
			WebhookURL: getEnv("SLACK_WEBHOOK_URL", ""),
		},
		Watch: WatchConfig{
			Enabled:  getEnvAsBool("WATCH_ENABLED", true),
			Schedule: getEnv("WATCH_SCHEDULE", "0 * * * *"),
		},
		Filter: FilterConfig{
			MinContributions: getEnvAsInt("MIN_CONTRIBUTIONS", 0),
			ExcludeBots:      getEnvAsBool("EXCLUDE_BOTS", false),
			Denylist:         getEnvAsList("BOT_DENYLIST"),
		},
		API: APIConfig{
			Token: getEnv("API_TOKEN", ""),
		},
	}

	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil && f > 0 {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blanks
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
