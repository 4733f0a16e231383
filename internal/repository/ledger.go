package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"clan-tracker/internal/domain"
)

// LedgerRepository applies point-affecting actions atomically and supports
// exactly-once reversal of a prior transaction. Balances only ever change
// through a recorded action inside a transaction.
type LedgerRepository struct {
	db      *sql.DB
	members *MemberRepository
	logger  zerolog.Logger
}

func NewLedgerRepository(sqlDB *sql.DB, members *MemberRepository, logger zerolog.Logger) *LedgerRepository {
	return &LedgerRepository{db: sqlDB, members: members, logger: logger}
}

// ModifyPoints applies one action type to every target as a single
// all-or-nothing unit. amounts must hold either one uniform value or one
// value per target, consumed positionally. A target that vanished between
// lookup and update is skipped, not fatal. Daily actions also stamp the
// member's last-claimed timestamp.
func (r *LedgerRepository) ModifyPoints(
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

	targets, err := r.members.EnsureMembers(ctx, guildID, targetDiscordIDs)
	if err != nil {
		return nil, err
	}
	performers, err := r.members.EnsureMembers(ctx, guildID, []string{performedByDiscordID})
	if err != nil {
		return nil, err
	}
	if len(performers) == 0 {
		return nil, domain.ErrUnableToAccessMembers
	}
	performer := performers[0]

	targetsByDiscordID := make(map[string]domain.Member, len(targets))
	startingBalances := make(map[string]int, len(targets))
	for _, member := range targets {
		targetsByDiscordID[member.DiscordID] = member
		startingBalances[member.DiscordID] = member.Balance
	}

	result, err := r.modifyInTx(ctx, guildID, actionType, targetDiscordIDs, targetsByDiscordID,
		amounts, reason, performer.ID)
	if err != nil {
		if domain.IsUserError(err) {
			return nil, err
		}
		r.logger.Error().Err(err).Str("guild_id", guildID).Str("action_type", string(actionType)).
			Msg("failed to modify clan points")
		return nil, domain.ErrUnableToModifyPoints
	}

	result.StartingBalances = startingBalances
	return result, nil
}

func (r *LedgerRepository) modifyInTx(
	ctx context.Context,
	guildID string,
	actionType domain.ActionType,
	targetDiscordIDs []string,
	targetsByDiscordID map[string]domain.Member,
	amounts []int,
	reason string,
	performerID string,
) (*domain.ModifyResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	transactionID, err := r.insertTransaction(ctx, tx, guildID, actionType, performerID, reason, nil, now)
	if err != nil {
		return nil, err
	}

	finalBalances := make(map[string]int, len(targetDiscordIDs))
	for i, discordID := range targetDiscordIDs {
		member, ok := targetsByDiscordID[discordID]
		if !ok {
			continue
		}

		amount := amounts[0]
		if len(amounts) == len(targetDiscordIDs) {
			amount = amounts[i]
		}

		// re-read inside the transaction so previous_balance is fresh
		var balance int
		err := tx.QueryRowContext(ctx, `SELECT balance FROM members WHERE id = ?`, member.ID).Scan(&balance)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read balance: %w", err)
		}

		newBalance, err := domain.ApplyAction(actionType, balance, amount)
		if err != nil {
			return nil, err
		}

		if actionType == domain.ActionDaily {
			_, err = tx.ExecContext(ctx,
				`UPDATE members SET balance = ?, clan_points_last_claimed_at = ?, updated_at = ? WHERE id = ?`,
				newBalance, now, now, member.ID)
		} else {
			_, err = tx.ExecContext(ctx,
				`UPDATE members SET balance = ?, updated_at = ? WHERE id = ?`,
				newBalance, now, member.ID)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to update balance: %w", err)
		}

		err = r.insertAction(ctx, tx, transactionID, actionType, amount, guildID, performerID,
			balance, reason, member.ID, now)
		if err != nil {
			return nil, err
		}

		finalBalances[discordID] = newBalance
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &domain.ModifyResult{
		TransactionID: transactionID,
		FinalBalances: finalBalances,
	}, nil
}

// UndoTransaction reverses a prior transaction as a new UNDO transaction
// linked one hop back. Each original action is inverted against the member's
// current balance: an intervening mutation is respected, not overwritten.
// Undo transactions themselves cannot be undone.
func (r *LedgerRepository) UndoTransaction(ctx context.Context, guildID, transactionID, undoneByDiscordID string) (string, error) {
	performers, err := r.members.EnsureMembers(ctx, guildID, []string{undoneByDiscordID})
	if err != nil {
		return "", err
	}
	if len(performers) == 0 {
		return "", domain.ErrUnableToAccessMembers
	}
	undoneBy := performers[0]

	originalID, err := r.undoInTx(ctx, guildID, transactionID, undoneBy.ID)
	if err != nil {
		if domain.IsUserError(err) {
			return "", err
		}
		r.logger.Error().Err(err).Str("transaction_id", transactionID).Msg("failed to undo transaction")
		return "", domain.ErrUnableToUndoTransaction
	}
	return originalID, nil
}

func (r *LedgerRepository) undoInTx(ctx context.Context, guildID, transactionID, undoneByID string) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		actionType string
		undone     bool
	)
	err = tx.QueryRowContext(ctx,
		`SELECT action_type, undone FROM clan_point_transactions WHERE id = ? AND guild_id = ?`,
		transactionID, guildID).Scan(&actionType, &undone)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrTransactionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read transaction: %w", err)
	}
	if undone {
		return "", domain.ErrTransactionUndone
	}
	if domain.ActionType(actionType) == domain.ActionUndo {
		return "", domain.ErrUndoOfUndo
	}

	now := time.Now().UTC()
	reason := fmt.Sprintf("Undo of transaction %s", transactionID)
	undoTransactionID, err := r.insertTransaction(ctx, tx, guildID, domain.ActionUndo, undoneByID,
		reason, &transactionID, now)
	if err != nil {
		return "", err
	}

	actions, err := r.actionsForTransaction(ctx, tx, transactionID)
	if err != nil {
		return "", err
	}

	for _, action := range actions {
		inverse, ok := domain.InverseAction(action.ActionType)
		if !ok {
			continue
		}

		var balance int
		err := tx.QueryRowContext(ctx, `SELECT balance FROM members WHERE id = ?`, action.TargetMemberID).Scan(&balance)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to read balance: %w", err)
		}

		newBalance, err := domain.ApplyAction(inverse, balance, action.Amount)
		if err != nil {
			return "", err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE members SET balance = ?, updated_at = ? WHERE id = ?`,
			newBalance, now, action.TargetMemberID)
		if err != nil {
			return "", fmt.Errorf("failed to update balance: %w", err)
		}

		err = r.insertAction(ctx, tx, undoTransactionID, domain.ActionUndo, action.Amount, guildID,
			undoneByID, balance, reason, action.TargetMemberID, now)
		if err != nil {
			return "", err
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE clan_point_transactions SET undone = 1, undone_at = ?, undone_by_id = ? WHERE id = ?`,
		now, undoneByID, transactionID)
	if err != nil {
		return "", fmt.Errorf("failed to mark transaction undone: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return transactionID, nil
}

// GetTransactions lists transactions for history and audit views, newest
// first. Daily claims are noise for most views and are filtered out unless
// requested.
func (r *LedgerRepository) GetTransactions(ctx context.Context, guildID string, filter domain.TransactionFilter) ([]domain.ClanPointTransaction, error) {
	if err := r.members.EnsureGuild(ctx, guildID); err != nil {
		return nil, err
	}

	actionTypes := []string{"'ADD'", "'REMOVE'", "'UNDO'", "'TEMPLE'"}
	if filter.IncludeDaily {
		actionTypes = append(actionTypes, "'DAILY'")
	}

	query := `SELECT DISTINCT t.id, t.guild_id, t.action_type, t.performed_by_id, t.reason,
	                 t.created_at, t.undone, t.undone_at, t.undone_by_id, t.undo_of_id
	          FROM clan_point_transactions t`
	args := []any{}

	if filter.TargetDiscordID != "" {
		query += ` JOIN clan_point_actions a ON a.transaction_id = t.id
		           JOIN members tm ON tm.id = a.target_member_id AND tm.discord_id = ?`
		args = append(args, filter.TargetDiscordID)
	}

	query += ` WHERE t.guild_id = ?
	           AND t.action_type IN (` + strings.Join(actionTypes, ", ") + `)
	           AND t.created_at >= ? AND t.created_at <= ?`
	args = append(args, guildID, filter.From.UTC(), filter.To.UTC())

	if filter.PerformedByID != "" {
		query += ` AND t.performed_by_id IN (SELECT id FROM members WHERE discord_id = ? AND guild_id = ?)`
		args = append(args, filter.PerformedByID, guildID)
	}

	query += ` ORDER BY t.created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Str("guild_id", guildID).Msg("failed to fetch transactions")
		return nil, domain.ErrUnableToGetTransactions
	}
	defer rows.Close()

	var transactions []domain.ClanPointTransaction
	for rows.Next() {
		var (
			transaction domain.ClanPointTransaction
			undoneAt    sql.NullTime
			undoneByID  sql.NullString
			undoOfID    sql.NullString
		)
		err := rows.Scan(&transaction.ID, &transaction.GuildID, &transaction.ActionType,
			&transaction.PerformedByID, &transaction.Reason, &transaction.CreatedAt,
			&transaction.Undone, &undoneAt, &undoneByID, &undoOfID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		if undoneAt.Valid {
			t := undoneAt.Time
			transaction.UndoneAt = &t
		}
		if undoneByID.Valid {
			s := undoneByID.String
			transaction.UndoneByID = &s
		}
		if undoOfID.Valid {
			s := undoOfID.String
			transaction.UndoOfID = &s
		}
		transactions = append(transactions, transaction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}

	for i := range transactions {
		actions, err := r.transactionActions(ctx, transactions[i].ID)
		if err != nil {
			r.logger.Error().Err(err).Str("transaction_id", transactions[i].ID).Msg("failed to fetch actions")
			return nil, domain.ErrUnableToGetTransactions
		}
		transactions[i].Actions = actions
	}

	return transactions, nil
}

func (r *LedgerRepository) insertTransaction(
	ctx context.Context,
	tx *sql.Tx,
	guildID string,
	actionType domain.ActionType,
	performerID, reason string,
	undoOfID *string,
	now time.Time,
) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("failed to generate transaction id: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO clan_point_transactions (id, guild_id, action_type, performed_by_id, reason, created_at, undone, undo_of_id)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?)`,
		id, guildID, string(actionType), performerID, reason, now, undoOfID)
	if err != nil {
		return "", fmt.Errorf("failed to insert transaction: %w", err)
	}
	return id, nil
}

func (r *LedgerRepository) insertAction(
	ctx context.Context,
	tx *sql.Tx,
	transactionID string,
	actionType domain.ActionType,
	amount int,
	guildID, performerID string,
	previousBalance int,
	reason, targetMemberID string,
	now time.Time,
) error {
	id, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("failed to generate action id: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO clan_point_actions (id, transaction_id, action_type, amount, guild_id, performed_by_id, previous_balance, reason, target_member_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, transactionID, string(actionType), amount, guildID, performerID, previousBalance,
		reason, targetMemberID, now)
	if err != nil {
		return fmt.Errorf("failed to insert action: %w", err)
	}
	return nil
}

func (r *LedgerRepository) actionsForTransaction(ctx context.Context, tx *sql.Tx, transactionID string) ([]domain.ClanPointAction, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, transaction_id, action_type, amount, guild_id, performed_by_id, previous_balance, reason, target_member_id, created_at
		 FROM clan_point_actions WHERE transaction_id = ?`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch actions: %w", err)
	}
	defer rows.Close()
	return scanActions(rows)
}

func (r *LedgerRepository) transactionActions(ctx context.Context, transactionID string) ([]domain.ClanPointAction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT a.id, a.transaction_id, a.action_type, a.amount, a.guild_id, a.performed_by_id,
		        a.previous_balance, a.reason, a.target_member_id, a.created_at, m.discord_id
		 FROM clan_point_actions a
		 JOIN members m ON m.id = a.target_member_id
		 WHERE a.transaction_id = ?`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch actions: %w", err)
	}
	defer rows.Close()

	var actions []domain.ClanPointAction
	for rows.Next() {
		var action domain.ClanPointAction
		err := rows.Scan(&action.ID, &action.TransactionID, &action.ActionType, &action.Amount,
			&action.GuildID, &action.PerformedByID, &action.PreviousBalance, &action.Reason,
			&action.TargetMemberID, &action.CreatedAt, &action.TargetDiscordID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}
		actions = append(actions, action)
	}
	return actions, rows.Err()
}

func scanActions(rows *sql.Rows) ([]domain.ClanPointAction, error) {
	var actions []domain.ClanPointAction
	for rows.Next() {
		var action domain.ClanPointAction
		err := rows.Scan(&action.ID, &action.TransactionID, &action.ActionType, &action.Amount,
			&action.GuildID, &action.PerformedByID, &action.PreviousBalance, &action.Reason,
			&action.TargetMemberID, &action.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}
		actions = append(actions, action)
	}
	return actions, rows.Err()
}
