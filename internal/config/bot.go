package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type BotConfig struct {
	Token              string
	AdminUserIDs       []int64
	RemovalNotice      string
	Keyboard           [][]string
	LeaderboardCommand string
	Workers            int
	PollTimeout        time.Duration
	NameTTL            time.Duration
}

type VoiceConfig struct {
	Enabled      bool
	LanguageCode string
	MaxDuration  time.Duration
}

// BindEnv maps the environment variables the bot has always used onto
// viper keys. Both the documented upper-case admin list and the legacy
// lower-case one are honoured.
func BindEnv() {
	bindings := map[string][]string{
		"database.host":           {"DB_HOST", "DATABASE_HOST"},
		"database.port":           {"DB_PORT", "DATABASE_PORT"},
		"database.user":           {"DB_USER", "DATABASE_USER"},
		"database.password":       {"DB_PASSWORD", "DATABASE_PASSWORD"},
		"database.name":           {"DB_NAME", "DATABASE_NAME"},
		"database.ssl_mode":       {"DB_SSL_MODE", "DATABASE_SSL_MODE"},
		"redis.host":              {"REDIS_HOST"},
		"redis.port":              {"REDIS_PORT"},
		"redis.password":          {"REDIS_PASSWORD"},
		"redis.db":                {"REDIS_DB"},
		"bot.token":               {"BOT_TOKEN"},
		"bot.admin_user_ids":      {"ADMIN_USER_IDS", "admin_user_ids"},
		"bot.removal_notice":      {"BOT_REMOVAL_NOTICE"},
		"bot.keyboard":            {"BOT_KEYBOARD"},
		"bot.workers":             {"BOT_WORKERS"},
		"voice.enabled":           {"VOICE_ENABLED"},
		"voice.language_code":     {"VOICE_LANGUAGE_CODE"},
		"jwt.secret_key":          {"JWT_SECRET_KEY"},
		"jwt.expiry_hours":        {"JWT_EXPIRY_HOURS"},
		"admin.username":          {"ADMIN_USERNAME"},
		"admin.password_hash":     {"ADMIN_PASSWORD_HASH"},
		"auth.max_login_attempts": {"AUTH_MAX_LOGIN_ATTEMPTS"},
		"auth.login_window":       {"AUTH_LOGIN_WINDOW"},
		"argon2.time":             {"ARGON2_TIME"},
		"argon2.memory":           {"ARGON2_MEMORY"},
		"argon2.threads":          {"ARGON2_THREADS"},
		"argon2.key_length":       {"ARGON2_KEY_LENGTH"},
		"argon2.salt_length":      {"ARGON2_SALT_LENGTH"},
		"http.port":               {"PORT"},
	}
	for key, envs := range bindings {
		viper.BindEnv(append([]string{key}, envs...)...)
	}
}

func SetDefaults() {
	viper.SetDefault("bot.removal_notice", "Imtiaz Noor removed this message")
	viper.SetDefault("bot.keyboard", "50,100|150,200")
	viper.SetDefault("bot.leaderboard_command", "/leader_board")
	viper.SetDefault("bot.workers", 8)
	viper.SetDefault("bot.poll_timeout", 30*time.Second)
	viper.SetDefault("bot.name_ttl", 30*24*time.Hour)
	viper.SetDefault("voice.enabled", false)
	viper.SetDefault("voice.language_code", "en-US")
	viper.SetDefault("voice.max_duration", time.Minute)
	viper.SetDefault("jwt.expiry_hours", 24)
	viper.SetDefault("auth.max_login_attempts", 5)
	viper.SetDefault("auth.login_window", 15*time.Minute)
	viper.SetDefault("argon2.time", 1)
	viper.SetDefault("argon2.memory", 64*1024)
	viper.SetDefault("argon2.threads", 4)
	viper.SetDefault("argon2.key_length", 32)
	viper.SetDefault("argon2.salt_length", 16)
	viper.SetDefault("http.port", "8080")
}

func LoadBotConfig() (*BotConfig, error) {
	token := strings.TrimSpace(viper.GetString("bot.token"))
	if token == "" {
		return nil, fmt.Errorf("BOT_TOKEN not found in environment variables")
	}

	adminIDs, err := ParseAdminIDs(viper.GetString("bot.admin_user_ids"))
	if err != nil {
		return nil, err
	}

	workers := viper.GetInt("bot.workers")
	if workers < 1 {
		workers = 1
	}

	return &BotConfig{
		Token:              token,
		AdminUserIDs:       adminIDs,
		RemovalNotice:      viper.GetString("bot.removal_notice"),
		Keyboard:           ParseKeyboard(viper.GetString("bot.keyboard")),
		LeaderboardCommand: viper.GetString("bot.leaderboard_command"),
		Workers:            workers,
		PollTimeout:        viper.GetDuration("bot.poll_timeout"),
		NameTTL:            viper.GetDuration("bot.name_ttl"),
	}, nil
}

func LoadVoiceConfig() *VoiceConfig {
	return &VoiceConfig{
		Enabled:      viper.GetBool("voice.enabled"),
		LanguageCode: viper.GetString("voice.language_code"),
		MaxDuration:  viper.GetDuration("voice.max_duration"),
	}
}

// ParseAdminIDs reads a comma-separated list of Telegram user ids, skipping
// blank items.
func ParseAdminIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid admin user id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ParseKeyboard reads reply keyboard rows separated by '|' with buttons
// separated by ','.
func ParseKeyboard(raw string) [][]string {
	var rows [][]string
	for _, row := range strings.Split(raw, "|") {
		var buttons []string
		for _, button := range strings.Split(row, ",") {
			if button = strings.TrimSpace(button); button != "" {
				buttons = append(buttons, button)
			}
		}
		if len(buttons) > 0 {
			rows = append(rows, buttons)
		}
	}
	return rows
}
