package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr           string        // API bind address, e.g. ":8080"
	LogDir         string        // logs directory
	RedisAddr      string        // empty means use the in-memory stores
	TelegramToken  string        // empty disables Telegram alerts
	AdminChatIDs   []int64       // implicit admins and alert recipients
	SlackWebhook   string        // optional second alert channel
	MaxConcurrent  int           // in-flight probe budget for bulk checks
	CheckInterval  time.Duration // scheduled all-domain check cadence
	InitialDelay   time.Duration // delay before the first scheduled check
	AdminAPIKeys   []string
	PublicAPIKeys  []string
	AllowedOrigins []string
}

// FromEnv loads .env (when present) and reads the environment.
func FromEnv() Config {
	_ = godotenv.Load()

	return Config{
		Addr:           getEnv("ADDR", ":8080"),
		LogDir:         getEnv("LOG_DIR", "logs"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		AdminChatIDs:   parseChatIDs(os.Getenv("ADMIN_CHAT_IDS")),
		SlackWebhook:   os.Getenv("SLACK_WEBHOOK"),
		MaxConcurrent:  getEnvInt("MAX_CONCURRENT", 100),
		CheckInterval:  getEnvDuration("CHECK_INTERVAL", 5*time.Minute),
		InitialDelay:   getEnvDuration("CHECK_INITIAL_DELAY", 30*time.Second),
		AdminAPIKeys:   splitList(os.Getenv("ADMIN_API_KEYS")),
		PublicAPIKeys:  splitList(os.Getenv("PUBLIC_API_KEYS")),
		AllowedOrigins: splitList(os.Getenv("ALLOWED_ORIGINS")),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

// parseChatIDs reads a comma-separated ID list; malformed entries are
// dropped rather than failing startup.
func parseChatIDs(raw string) []int64 {
	out := []int64{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if id, err := strconv.ParseInt(part, 10, 64); err == nil {
			out = append(out, id)
		}
	}
	return out
}

func splitList(raw string) []string {
	out := []string{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
