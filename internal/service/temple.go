package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"clan-tracker/internal/config"
	"clan-tracker/internal/directory"
	"clan-tracker/internal/domain"
	"clan-tracker/internal/repository"
	"clan-tracker/internal/spreadsheet"
	"clan-tracker/internal/temple"
)

// CompetitionFetcher is the TempleOSRS collaborator contract.
type CompetitionFetcher interface {
	GetCompetition(ctx context.Context, competitionID int) (*domain.CompetitionData, error)
}

// TempleService turns a finished TempleOSRS competition into clan point
// awards.
type TempleService struct {
	fetcher   CompetitionFetcher
	reader    *spreadsheet.Reader
	directory directory.Directory
	ledger    *repository.LedgerRepository
	guilds    *config.Guilds
	logger    zerolog.Logger
}

func NewTempleService(
	fetcher CompetitionFetcher,
	reader *spreadsheet.Reader,
	dir directory.Directory,
	ledger *repository.LedgerRepository,
	guilds *config.Guilds,
	logger zerolog.Logger,
) *TempleService {
	return &TempleService{
		fetcher:   fetcher,
		reader:    reader,
		directory: dir,
		ledger:    ledger,
		guilds:    guilds,
		logger:    logger,
	}
}

// Preview fetches and processes a competition without touching the ledger.
// Everything the award step would do is computed; nothing is persisted.
func (s *TempleService) Preview(ctx context.Context, guildID string, competitionID int) (*domain.CompetitionResult, error) {
	result, _, err := s.process(ctx, guildID, competitionID)
	return result, err
}

// Award processes a competition and credits every awarded member in one
// atomic ledger transaction. Only the awarded bucket reaches the ledger; the
// other buckets are returned for reporting.
func (s *TempleService) Award(ctx context.Context, guildID string, competitionID int, performedByDiscordID string) (*domain.CompetitionResult, *domain.ModifyResult, error) {
	result, _, err := s.process(ctx, guildID, competitionID)
	if err != nil {
		return nil, nil, err
	}

	if len(result.Awarded) == 0 {
		return result, nil, nil
	}

	targets := make([]string, 0, len(result.Awarded))
	amounts := make([]int, 0, len(result.Awarded))
	for _, awarded := range result.Awarded {
		targets = append(targets, awarded.DiscordID)
		amounts = append(amounts, awarded.CappedPoints)
	}

	reason := fmt.Sprintf("Competition: %s", result.CompetitionName)
	modify, err := s.ledger.ModifyPoints(ctx, guildID, domain.ActionTemple, targets, amounts, reason, performedByDiscordID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info().
		Str("guild_id", guildID).
		Int("competition_id", competitionID).
		Int("awarded", len(result.Awarded)).
		Int("total_points", result.Summary.TotalPointsAwarded).
		Msg("competition points awarded")
	return result, modify, nil
}

func (s *TempleService) process(ctx context.Context, guildID string, competitionID int) (*domain.CompetitionResult, config.GuildConfig, error) {
	cfg, ok := s.guilds.Get(guildID)
	if !ok {
		return nil, config.GuildConfig{}, domain.ErrUnableToAccessGuild
	}

	data, err := s.fetcher.GetCompetition(ctx, competitionID)
	if err != nil {
		if domain.IsUserError(err) {
			return nil, cfg, err
		}
		s.logger.Error().Err(err).Int("competition_id", competitionID).Msg("failed to fetch competition")
		return nil, cfg, domain.ErrCompetitionFetchFailed
	}

	rows, err := s.reader.Read(ctx, cfg)
	if err != nil {
		return nil, cfg, err
	}

	members, err := s.directory.ListMembers(ctx, guildID)
	if err != nil {
		return nil, cfg, err
	}

	roleHolders, err := s.roleHolders(ctx, guildID, members, cfg.Roles.MemberPerms)
	if err != nil {
		return nil, cfg, err
	}

	result := temple.Process(rows, members, data, cfg.Points.PointsConfig(), roleHolders)
	return result, cfg, nil
}

// roleHolders prefetches the member-perms role for every guild member so
// processing itself never does I/O.
func (s *TempleService) roleHolders(ctx context.Context, guildID string, members []spreadsheet.DirectoryMember, roleID string) (map[string]bool, error) {
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}

	withRole, err := s.directory.FilterWithRole(ctx, guildID, ids, roleID)
	if err != nil {
		return nil, err
	}

	holders := make(map[string]bool, len(withRole))
	for _, id := range withRole {
		holders[id] = true
	}
	return holders, nil
}
