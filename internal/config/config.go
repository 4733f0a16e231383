package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	DBPath          string
	ServerPort      string
	LogLevel        string
	GuildsFile      string
	SheetsAPIToken  string
	DiscordBotToken string
	TempleBaseURL   string
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DBPath:          getEnv("DB_PATH", "clan.db"),
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		GuildsFile:      getEnv("GUILDS_FILE", "guilds.yaml"),
		SheetsAPIToken:  getEnv("SHEETS_API_TOKEN", ""),
		DiscordBotToken: getEnv("DISCORD_BOT_TOKEN", ""),
		TempleBaseURL:   getEnv("TEMPLE_BASE_URL", "https://templeosrs.com"),
	}

	if cfg.SheetsAPIToken == "" {
		return nil, fmt.Errorf("SHEETS_API_TOKEN is required")
	}
	if cfg.DiscordBotToken == "" {
		return nil, fmt.Errorf("DISCORD_BOT_TOKEN is required")
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Str("guilds_file", cfg.GuildsFile).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var Module = fx.Provide(Load, LoadGuilds)
