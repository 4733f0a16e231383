package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"clan-tracker/internal/domain"
)

// GuildConfig holds the per-guild settings: which spreadsheet, which columns
// and row range, and which role/channel identities apply. Read-only once
// loaded.
type GuildConfig struct {
	SpreadsheetID    string             `yaml:"spreadsheet_id"`
	SpreadsheetSheet string             `yaml:"spreadsheet_sheet"`
	Columns          SpreadsheetColumns `yaml:"spreadsheet_columns"`
	Rows             SpreadsheetRows    `yaml:"spreadsheet_rows"`
	Roles            RoleIDs            `yaml:"role_ids"`
	Channels         ChannelIDs         `yaml:"channel_ids"`
	Points           PointsDefaults     `yaml:"clan_points"`
}

type SpreadsheetColumns struct {
	RSN       string `yaml:"rsn"`
	Alts      string `yaml:"alts"` // optional, empty disables the alt column
	DiscordID string `yaml:"discord_id"`
}

type SpreadsheetRows struct {
	StartRow int `yaml:"start_row"`
	EndRow   int `yaml:"end_row"` // optional, 0 means open-ended
}

type RoleIDs struct {
	ClanStaff   string `yaml:"clan_staff"`
	MemberPerms string `yaml:"member_perms"`
	Guest       string `yaml:"guest"`
}

type ChannelIDs struct {
	Bot      string `yaml:"bot_channel"`
	ClanChat string `yaml:"clan_chat_channel"` // optional
}

type PointsDefaults struct {
	DailyAmount      int     `yaml:"daily_amount"`
	GainPerClanPoint float64 `yaml:"gain_per_clan_point"`
	MaxPerPerson     int     `yaml:"max_per_person"`
	FirstPlaceCap    int     `yaml:"first_place_cap"`
	SecondPlaceCap   int     `yaml:"second_place_cap"`
	ThirdPlaceCap    int     `yaml:"third_place_cap"`
}

// PointsConfig converts the YAML defaults into the processor's config.
func (p PointsDefaults) PointsConfig() domain.PointsConfig {
	return domain.PointsConfig{
		GainPerClanPoint: p.GainPerClanPoint,
		MaxPerPerson:     p.MaxPerPerson,
		FirstPlaceCap:    p.FirstPlaceCap,
		SecondPlaceCap:   p.SecondPlaceCap,
		ThirdPlaceCap:    p.ThirdPlaceCap,
	}
}

// Guilds maps guild IDs to their configuration.
type Guilds struct {
	Guilds map[string]GuildConfig `yaml:"guilds"`
}

// Get returns the config for a guild, or false when the guild is unknown.
func (g *Guilds) Get(guildID string) (GuildConfig, bool) {
	cfg, ok := g.Guilds[guildID]
	return cfg, ok
}

// FieldError is one invalid field found while validating the guilds file.
type FieldError struct {
	GuildID string
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("guild %s: %s: %s", e.GuildID, e.Field, e.Message)
}

var columnRe = regexp.MustCompile(`^[A-Z]+$`)

// Validate runs one explicit pass over every guild and returns every problem
// found, not just the first.
func (g *Guilds) Validate() []FieldError {
	var errs []FieldError
	for guildID, cfg := range g.Guilds {
		check := func(field, message string, bad bool) {
			if bad {
				errs = append(errs, FieldError{GuildID: guildID, Field: field, Message: message})
			}
		}

		check("spreadsheet_id", "is required", cfg.SpreadsheetID == "")
		check("spreadsheet_sheet", "is required", cfg.SpreadsheetSheet == "")
		check("spreadsheet_columns.rsn", "must be a column letter", !columnRe.MatchString(cfg.Columns.RSN))
		check("spreadsheet_columns.discord_id", "must be a column letter", !columnRe.MatchString(cfg.Columns.DiscordID))
		check("spreadsheet_columns.alts", "must be a column letter",
			cfg.Columns.Alts != "" && !columnRe.MatchString(cfg.Columns.Alts))
		check("spreadsheet_rows.start_row", "must be positive", cfg.Rows.StartRow < 1)
		check("spreadsheet_rows.end_row", "must not precede start_row",
			cfg.Rows.EndRow != 0 && cfg.Rows.EndRow < cfg.Rows.StartRow)
		check("role_ids.clan_staff", "is required", cfg.Roles.ClanStaff == "")
		check("role_ids.member_perms", "is required", cfg.Roles.MemberPerms == "")
		check("role_ids.guest", "is required", cfg.Roles.Guest == "")
		check("channel_ids.bot_channel", "is required", cfg.Channels.Bot == "")
		check("clan_points.gain_per_clan_point", "must be positive", cfg.Points.GainPerClanPoint <= 0)
		check("clan_points.daily_amount", "must be positive", cfg.Points.DailyAmount < 1)
	}
	return errs
}

// LoadGuilds reads and validates the guilds file. Any invalid field is fatal:
// a half-validated config must never drive spreadsheet writes.
func LoadGuilds(cfg *Config, logger zerolog.Logger) (*Guilds, error) {
	data, err := os.ReadFile(cfg.GuildsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read guilds file: %w", err)
	}

	var guilds Guilds
	if err := yaml.Unmarshal(data, &guilds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal guilds file: %w", err)
	}

	if errs := guilds.Validate(); len(errs) > 0 {
		messages := make([]string, len(errs))
		for i, fieldErr := range errs {
			messages[i] = fieldErr.Error()
		}
		return nil, fmt.Errorf("invalid guilds file: %s", strings.Join(messages, "; "))
	}

	logger.Info().Int("guilds", len(guilds.Guilds)).Msg("guild configuration loaded")
	return &guilds, nil
}
