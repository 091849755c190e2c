// preflight sanity-checks the environment before the bot starts.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	token := strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN"))
	chatIDs := strings.TrimSpace(os.Getenv("ADMIN_CHAT_IDS"))
	redisAddr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	adminKeys := strings.TrimSpace(os.Getenv("ADMIN_API_KEYS"))
	pubKeys := strings.TrimSpace(os.Getenv("PUBLIC_API_KEYS"))
	addr := strings.TrimSpace(os.Getenv("ADDR"))

	if token == "" {
		warn("TELEGRAM_TOKEN empty — down alerts via Telegram are disabled.")
	} else if !strings.Contains(token, ":") {
		fail("TELEGRAM_TOKEN does not look like a bot token (want <id>:<secret>).")
	} else {
		ok("TELEGRAM_TOKEN present")
	}

	if chatIDs == "" {
		warn("ADMIN_CHAT_IDS empty — nobody is an implicit admin or alert recipient.")
	} else {
		for _, part := range strings.Split(chatIDs, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, err := strconv.ParseInt(part, 10, 64); err != nil {
				fail("ADMIN_CHAT_IDS entry is not a numeric chat ID: " + part)
			}
		}
		ok("ADMIN_CHAT_IDS=" + chatIDs)
	}

	if redisAddr == "" {
		warn("REDIS_ADDR empty — the bot will use in-memory stores and forget everything on restart.")
	} else {
		ok("REDIS_ADDR=" + redisAddr)
	}

	if adminKeys == "" && pubKeys == "" {
		warn("no API keys configured — the HTTP API is open (every caller is admin).")
	} else {
		for name, v := range map[string]string{"ADMIN_API_KEYS": adminKeys, "PUBLIC_API_KEYS": pubKeys} {
			if strings.Contains(v, " ") {
				warn(name + " contains spaces; use comma-separated with no spaces, e.g. key1,key2")
			}
		}
		ok("API keys configured")
	}

	if addr == "" {
		warn("ADDR empty; the bot defaults to :8080.")
	} else {
		ok("ADDR=" + addr)
	}

	ok("preflight passed")
}
