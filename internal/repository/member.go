package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"clan-tracker/internal/domain"
)

type MemberRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewMemberRepository(sqlDB *sql.DB, logger zerolog.Logger) *MemberRepository {
	return &MemberRepository{db: sqlDB, logger: logger}
}

// EnsureGuild creates the guild row on first sight.
func (r *MemberRepository) EnsureGuild(ctx context.Context, guildID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO guilds (guild_id) VALUES (?) ON CONFLICT (guild_id) DO NOTHING`, guildID)
	if err != nil {
		r.logger.Error().Err(err).Str("guild_id", guildID).Msg("failed to ensure guild")
		return domain.ErrUnableToAccessGuild
	}
	return nil
}

// EnsureMembers returns the members for the given Discord IDs, creating any
// unknown member with a zero balance. Just-in-time identity: referencing a
// member for the first time is not an error.
func (r *MemberRepository) EnsureMembers(ctx context.Context, guildID string, discordIDs []string) ([]domain.Member, error) {
	if err := r.EnsureGuild(ctx, guildID); err != nil {
		return nil, err
	}

	existing, err := r.membersByDiscordIDs(ctx, guildID, discordIDs)
	if err != nil {
		r.logger.Error().Err(err).Str("guild_id", guildID).Msg("failed to fetch members")
		return nil, domain.ErrUnableToAccessMembers
	}

	known := make(map[string]bool, len(existing))
	for _, member := range existing {
		known[member.DiscordID] = true
	}

	now := time.Now().UTC()
	for _, discordID := range discordIDs {
		if known[discordID] {
			continue
		}
		known[discordID] = true

		id, err := gonanoid.New()
		if err != nil {
			return nil, fmt.Errorf("failed to generate member id: %w", err)
		}
		_, err = r.db.ExecContext(ctx,
			`INSERT INTO members (id, discord_id, guild_id, balance, created_at, updated_at)
			 VALUES (?, ?, ?, 0, ?, ?)
			 ON CONFLICT (discord_id, guild_id) DO NOTHING`,
			id, discordID, guildID, now, now)
		if err != nil {
			r.logger.Error().Err(err).Str("discord_id", discordID).Msg("failed to create member")
			return nil, domain.ErrUnableToAccessMembers
		}
	}

	members, err := r.membersByDiscordIDs(ctx, guildID, discordIDs)
	if err != nil {
		r.logger.Error().Err(err).Str("guild_id", guildID).Msg("failed to fetch members")
		return nil, domain.ErrUnableToAccessMembers
	}
	return members, nil
}

// GetBalance returns the member's current clan point balance, creating the
// member if needed.
func (r *MemberRepository) GetBalance(ctx context.Context, guildID, discordID string) (int, error) {
	members, err := r.EnsureMembers(ctx, guildID, []string{discordID})
	if err != nil {
		return 0, err
	}
	if len(members) == 0 {
		return 0, domain.ErrUnableToRetrievePoints
	}
	return members[0].Balance, nil
}

// GetMember returns one member, creating it if needed.
func (r *MemberRepository) GetMember(ctx context.Context, guildID, discordID string) (*domain.Member, error) {
	members, err := r.EnsureMembers(ctx, guildID, []string{discordID})
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, domain.ErrUnableToAccessMembers
	}
	return &members[0], nil
}

// UpdateLastMessageSentAt stamps the member's last activity.
func (r *MemberRepository) UpdateLastMessageSentAt(ctx context.Context, guildID, discordID string, at time.Time) error {
	member, err := r.GetMember(ctx, guildID, discordID)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE members SET last_message_sent_at = ?, updated_at = ? WHERE id = ?`,
		at.UTC(), time.Now().UTC(), member.ID)
	if err != nil {
		r.logger.Error().Err(err).Str("discord_id", discordID).Msg("failed to update member activity")
		return domain.ErrUnableToAccessMembers
	}
	return nil
}

// GetInactiveMembers lists members whose last message is older than the
// cutoff, or who never sent one.
func (r *MemberRepository) GetInactiveMembers(ctx context.Context, guildID string, days int) ([]domain.Member, error) {
	if err := r.EnsureGuild(ctx, guildID); err != nil {
		return nil, err
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+memberColumns+` FROM members
		 WHERE guild_id = ? AND (last_message_sent_at IS NULL OR last_message_sent_at < ?)`,
		guildID, cutoff)
	if err != nil {
		r.logger.Error().Err(err).Str("guild_id", guildID).Msg("failed to fetch inactive members")
		return nil, domain.ErrUnableToAccessMembers
	}
	defer rows.Close()

	return scanMembers(rows)
}

// AllTimeLeaderboard returns every member ordered by balance, highest first.
func (r *MemberRepository) AllTimeLeaderboard(ctx context.Context, guildID string) ([]domain.LeaderboardEntry, error) {
	if err := r.EnsureGuild(ctx, guildID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT discord_id, balance FROM members WHERE guild_id = ? ORDER BY balance DESC`, guildID)
	if err != nil {
		r.logger.Error().Err(err).Str("guild_id", guildID).Msg("failed to fetch leaderboard")
		return nil, domain.ErrUnableToRetrievePoints
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var entry domain.LeaderboardEntry
		if err := rows.Scan(&entry.DiscordID, &entry.Points); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// PeriodLeaderboard sums earned points (add-like actions on transactions that
// were not undone) per member inside a window, highest first.
func (r *MemberRepository) PeriodLeaderboard(ctx context.Context, guildID string, from, to time.Time) ([]domain.LeaderboardEntry, error) {
	if err := r.EnsureGuild(ctx, guildID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT m.discord_id, SUM(a.amount) AS points
		 FROM clan_point_actions a
		 JOIN clan_point_transactions t ON t.id = a.transaction_id
		 JOIN members m ON m.id = a.target_member_id
		 WHERE a.guild_id = ?
		   AND a.action_type IN ('ADD', 'DAILY', 'TEMPLE')
		   AND t.undone = 0
		   AND t.created_at >= ? AND t.created_at < ?
		 GROUP BY m.discord_id
		 HAVING points > 0
		 ORDER BY points DESC`,
		guildID, from.UTC(), to.UTC())
	if err != nil {
		r.logger.Error().Err(err).Str("guild_id", guildID).Msg("failed to fetch period leaderboard")
		return nil, domain.ErrUnableToRetrievePoints
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var entry domain.LeaderboardEntry
		if err := rows.Scan(&entry.DiscordID, &entry.Points); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// SetCommandsEnabled flips the per-guild command toggle.
func (r *MemberRepository) SetCommandsEnabled(ctx context.Context, guildID string, enabled bool) error {
	if err := r.EnsureGuild(ctx, guildID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE guilds SET commands_enabled = ? WHERE guild_id = ?`, enabled, guildID)
	if err != nil {
		r.logger.Error().Err(err).Str("guild_id", guildID).Msg("failed to update guild")
		return domain.ErrUnableToAccessGuild
	}
	return nil
}

// GetCommandsEnabled reports whether commands are enabled for the guild.
func (r *MemberRepository) GetCommandsEnabled(ctx context.Context, guildID string) (bool, error) {
	if err := r.EnsureGuild(ctx, guildID); err != nil {
		return false, err
	}
	var enabled bool
	err := r.db.QueryRowContext(ctx,
		`SELECT commands_enabled FROM guilds WHERE guild_id = ?`, guildID).Scan(&enabled)
	if err != nil {
		r.logger.Error().Err(err).Str("guild_id", guildID).Msg("failed to fetch guild")
		return false, domain.ErrUnableToAccessGuild
	}
	return enabled, nil
}

const memberColumns = `id, discord_id, guild_id, balance, clan_points_last_claimed_at, last_message_sent_at, created_at, updated_at`

func (r *MemberRepository) membersByDiscordIDs(ctx context.Context, guildID string, discordIDs []string) ([]domain.Member, error) {
	if len(discordIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(discordIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(discordIDs)+1)
	for _, id := range discordIDs {
		args = append(args, id)
	}
	args = append(args, guildID)

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE discord_id IN (`+placeholders+`) AND guild_id = ?`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMembers(rows)
}

func scanMembers(rows *sql.Rows) ([]domain.Member, error) {
	var members []domain.Member
	for rows.Next() {
		var (
			member        domain.Member
			lastClaimedAt sql.NullTime
			lastMessageAt sql.NullTime
		)
		err := rows.Scan(&member.ID, &member.DiscordID, &member.GuildID, &member.Balance,
			&lastClaimedAt, &lastMessageAt, &member.CreatedAt, &member.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		if lastClaimedAt.Valid {
			t := lastClaimedAt.Time
			member.ClanPointsLastClaimedAt = &t
		}
		if lastMessageAt.Valid {
			t := lastMessageAt.Time
			member.LastMessageSentAt = &t
		}
		members = append(members, member)
	}
	return members, rows.Err()
}
