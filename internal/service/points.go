// Package service holds the application operations behind the HTTP surface.
// Services validate input, orchestrate repositories and external clients, and
// keep the user-error / internal-error split from the layers below.
package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"clan-tracker/internal/config"
	"clan-tracker/internal/constants"
	"clan-tracker/internal/domain"
	"clan-tracker/internal/repository"
)

type PointsService struct {
	ledger  *repository.LedgerRepository
	members *repository.MemberRepository
	guilds  *config.Guilds
	logger  zerolog.Logger

	resetZone *time.Location
}

func NewPointsService(
	ledger *repository.LedgerRepository,
	members *repository.MemberRepository,
	guilds *config.Guilds,
	logger zerolog.Logger,
) (*PointsService, error) {
	zone, err := time.LoadLocation(constants.DailyResetZone)
	if err != nil {
		return nil, err
	}
	return &PointsService{
		ledger:    ledger,
		members:   members,
		guilds:    guilds,
		logger:    logger,
		resetZone: zone,
	}, nil
}

// Modify applies one amount to every target, or one amount per target when
// amounts has the same length as targets.
func (s *PointsService) Modify(
	ctx context.Context,
	guildID string,
	actionType domain.ActionType,
	targetDiscordIDs []string,
	amounts []int,
	reason string,
	performedByDiscordID string,
) (*domain.ModifyResult, error) {
	if len(targetDiscordIDs) == 0 {
		return nil, domain.ErrNoTargets
	}
	if len(amounts) != 1 && len(amounts) != len(targetDiscordIDs) {
		return nil, domain.ErrAmountMismatch
	}
	return s.ledger.ModifyPoints(ctx, guildID, actionType, targetDiscordIDs, amounts, reason, performedByDiscordID)
}

// Daily claims the guild's daily clan points for one member. A member may
// claim once per reset window; the window rolls over at noon in the reset
// zone, so eligibility compares the last claim against the most recent noon.
func (s *PointsService) Daily(ctx context.Context, guildID, discordID string) (*domain.ModifyResult, error) {
	cfg, ok := s.guilds.Get(guildID)
	if !ok {
		return nil, domain.ErrUnableToAccessGuild
	}

	member, err := s.members.GetMember(ctx, guildID, discordID)
	if err != nil {
		return nil, err
	}

	if member.ClanPointsLastClaimedAt != nil &&
		!member.ClanPointsLastClaimedAt.Before(s.lastReset(time.Now())) {
		return nil, domain.ErrDailyNotEligible
	}

	return s.ledger.ModifyPoints(ctx, guildID, domain.ActionDaily,
		[]string{discordID}, []int{cfg.Points.DailyAmount}, "Daily clan points", discordID)
}

// NextEligibleClaimTime returns when the member can next claim, or the zero
// time when they can claim now.
func (s *PointsService) NextEligibleClaimTime(ctx context.Context, guildID, discordID string) (time.Time, error) {
	member, err := s.members.GetMember(ctx, guildID, discordID)
	if err != nil {
		return time.Time{}, err
	}

	now := time.Now()
	if member.ClanPointsLastClaimedAt == nil ||
		member.ClanPointsLastClaimedAt.Before(s.lastReset(now)) {
		return time.Time{}, nil
	}
	return s.lastReset(now).Add(24 * time.Hour), nil
}

// lastReset is the most recent noon in the reset zone at or before t.
func (s *PointsService) lastReset(t time.Time) time.Time {
	local := t.In(s.resetZone)
	reset := time.Date(local.Year(), local.Month(), local.Day(),
		constants.DailyResetHour, 0, 0, 0, s.resetZone)
	if local.Before(reset) {
		reset = reset.AddDate(0, 0, -1)
	}
	return reset
}

// Balance returns the member's current clan point balance.
func (s *PointsService) Balance(ctx context.Context, guildID, discordID string) (int, error) {
	return s.members.GetBalance(ctx, guildID, discordID)
}

// AllTimeLeaderboard lists members by current balance.
func (s *PointsService) AllTimeLeaderboard(ctx context.Context, guildID string) ([]domain.LeaderboardEntry, error) {
	return s.members.AllTimeLeaderboard(ctx, guildID)
}

// PeriodLeaderboard lists members by points earned inside a window.
func (s *PointsService) PeriodLeaderboard(ctx context.Context, guildID string, from, to time.Time) ([]domain.LeaderboardEntry, error) {
	return s.members.PeriodLeaderboard(ctx, guildID, from, to)
}

// History lists the transactions that targeted one member, newest first.
// Daily claims are excluded unless includeDaily is set.
func (s *PointsService) History(ctx context.Context, guildID, targetDiscordID string, from, to time.Time, includeDaily bool, limit int) ([]domain.ClanPointTransaction, error) {
	return s.ledger.GetTransactions(ctx, guildID, domain.TransactionFilter{
		From:            from,
		To:              to,
		TargetDiscordID: targetDiscordID,
		IncludeDaily:    includeDaily,
		Limit:           limit,
	})
}

// Audit lists every transaction in a window, optionally narrowed to one
// performer.
func (s *PointsService) Audit(ctx context.Context, guildID, performedByDiscordID string, from, to time.Time, includeDaily bool, limit int) ([]domain.ClanPointTransaction, error) {
	return s.ledger.GetTransactions(ctx, guildID, domain.TransactionFilter{
		From:          from,
		To:            to,
		PerformedByID: performedByDiscordID,
		IncludeDaily:  includeDaily,
		Limit:         limit,
	})
}

// Undo reverses a prior transaction. Returns the undone transaction's ID.
func (s *PointsService) Undo(ctx context.Context, guildID, transactionID, undoneByDiscordID string) (string, error) {
	return s.ledger.UndoTransaction(ctx, guildID, transactionID, undoneByDiscordID)
}
