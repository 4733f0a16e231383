package service

import (
	"context"

	"github.com/rs/zerolog"

	"clan-tracker/internal/config"
	"clan-tracker/internal/directory"
	"clan-tracker/internal/domain"
	"clan-tracker/internal/spreadsheet"
)

// SpreadsheetService validates the clan roster spreadsheet against the live
// guild member list.
type SpreadsheetService struct {
	reader    *spreadsheet.Reader
	directory directory.Directory
	guilds    *config.Guilds
	logger    zerolog.Logger
}

func NewSpreadsheetService(
	reader *spreadsheet.Reader,
	dir directory.Directory,
	guilds *config.Guilds,
	logger zerolog.Logger,
) *SpreadsheetService {
	return &SpreadsheetService{reader: reader, directory: dir, guilds: guilds, logger: logger}
}

// Validate reads the configured sheet and checks every row against the guild
// roster. The result carries per-row verdicts; nothing is written.
func (s *SpreadsheetService) Validate(ctx context.Context, guildID string) (*domain.ValidationResult, error) {
	cfg, ok := s.guilds.Get(guildID)
	if !ok {
		return nil, domain.ErrUnableToAccessGuild
	}

	rows, err := s.reader.Read(ctx, cfg)
	if err != nil {
		return nil, err
	}

	members, err := s.directory.ListMembers(ctx, guildID)
	if err != nil {
		return nil, err
	}

	result := spreadsheet.Validate(rows, members)
	s.logger.Info().
		Str("guild_id", guildID).
		Int("rows", len(result.ValidatedRows)).
		Int("populatable", len(result.PopulatableRows)).
		Int("rows_with_errors", len(result.ErrorsByRow)).
		Msg("spreadsheet validated")
	return &result, nil
}

// PopulateResult reports one populate run.
type PopulateResult struct {
	Populated   int
	ErrorsByRow map[int][]domain.ValidationError
}

// Populate validates the sheet and writes the resolved Discord ID into every
// row that can safely take one. Rows with errors are reported, not written.
func (s *SpreadsheetService) Populate(ctx context.Context, guildID string) (*PopulateResult, error) {
	cfg, ok := s.guilds.Get(guildID)
	if !ok {
		return nil, domain.ErrUnableToAccessGuild
	}

	result, err := s.Validate(ctx, guildID)
	if err != nil {
		return nil, err
	}

	populated, err := s.reader.Populate(ctx, cfg, result.PopulatableRows)
	if err != nil {
		s.logger.Error().Err(err).Str("guild_id", guildID).Msg("failed to populate spreadsheet")
		return nil, domain.ErrSpreadsheetUnavailable
	}

	s.logger.Info().Str("guild_id", guildID).Int("populated", populated).Msg("spreadsheet populated")
	return &PopulateResult{Populated: populated, ErrorsByRow: result.ErrorsByRow}, nil
}
