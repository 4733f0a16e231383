package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clan-tracker/internal/database"
	"clan-tracker/internal/domain"
)

const testGuild = "guild-1"

func timeZero() time.Time {
	return time.Time{}
}

func timeNowPlusHour() time.Time {
	return time.Now().Add(time.Hour)
}

func newTestRepos(t *testing.T) (*MemberRepository, *LedgerRepository) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(db, zerolog.Nop()))

	members := NewMemberRepository(db, zerolog.Nop())
	ledger := NewLedgerRepository(db, members, zerolog.Nop())
	return members, ledger
}

func TestEnsureMembersCreatesOnFirstSight(t *testing.T) {
	members, _ := newTestRepos(t)
	ctx := context.Background()

	created, err := members.EnsureMembers(ctx, testGuild, []string{"alice", "bob"})
	require.NoError(t, err)
	require.Len(t, created, 2)
	for _, m := range created {
		assert.Equal(t, 0, m.Balance)
		assert.NotEmpty(t, m.ID)
	}

	again, err := members.EnsureMembers(ctx, testGuild, []string{"alice"})
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, created[0].ID, again[0].ID, "second sight returns the same member")
}

func TestModifyPointsAdd(t *testing.T) {
	_, ledger := newTestRepos(t)
	ctx := context.Background()

	result, err := ledger.ModifyPoints(ctx, testGuild, domain.ActionAdd,
		[]string{"alice"}, []int{100}, "event participation", "staff")
	require.NoError(t, err)

	assert.NotEmpty(t, result.TransactionID)
	assert.Equal(t, 0, result.StartingBalances["alice"])
	assert.Equal(t, 100, result.FinalBalances["alice"])
}

func TestModifyPointsScalarAmountAppliesToAll(t *testing.T) {
	members, ledger := newTestRepos(t)
	ctx := context.Background()

	_, err := ledger.ModifyPoints(ctx, testGuild, domain.ActionAdd,
		[]string{"alice", "bob", "carol"}, []int{10}, "bonus", "staff")
	require.NoError(t, err)

	for _, id := range []string{"alice", "bob", "carol"} {
		balance, err := members.GetBalance(ctx, testGuild, id)
		require.NoError(t, err)
		assert.Equal(t, 10, balance, "member %s", id)
	}
}

func TestModifyPointsPositionalAmounts(t *testing.T) {
	members, ledger := newTestRepos(t)
	ctx := context.Background()

	_, err := ledger.ModifyPoints(ctx, testGuild, domain.ActionTemple,
		[]string{"alice", "bob"}, []int{5, 3}, "Competition: Mining Week", "staff")
	require.NoError(t, err)

	alice, _ := members.GetBalance(ctx, testGuild, "alice")
	bob, _ := members.GetBalance(ctx, testGuild, "bob")
	assert.Equal(t, 5, alice)
	assert.Equal(t, 3, bob)
}

func TestModifyPointsRemove(t *testing.T) {
	members, ledger := newTestRepos(t)
	ctx := context.Background()

	_, err := ledger.ModifyPoints(ctx, testGuild, domain.ActionAdd,
		[]string{"alice"}, []int{100}, "grant", "staff")
	require.NoError(t, err)

	result, err := ledger.ModifyPoints(ctx, testGuild, domain.ActionRemove,
		[]string{"alice"}, []int{40}, "penalty", "staff")
	require.NoError(t, err)

	assert.Equal(t, 100, result.StartingBalances["alice"])
	assert.Equal(t, 60, result.FinalBalances["alice"])

	balance, err := members.GetBalance(ctx, testGuild, "alice")
	require.NoError(t, err)
	assert.Equal(t, 60, balance)
}

func TestModifyPointsRejectsEmptyTargets(t *testing.T) {
	_, ledger := newTestRepos(t)

	_, err := ledger.ModifyPoints(context.Background(), testGuild, domain.ActionAdd,
		nil, []int{10}, "nothing", "staff")
	assert.ErrorIs(t, err, domain.ErrNoTargets)
}

func TestModifyPointsRejectsAmountMismatch(t *testing.T) {
	_, ledger := newTestRepos(t)

	_, err := ledger.ModifyPoints(context.Background(), testGuild, domain.ActionAdd,
		[]string{"alice", "bob"}, []int{1, 2, 3}, "mismatch", "staff")
	assert.ErrorIs(t, err, domain.ErrAmountMismatch)
}

func TestModifyPointsDailyStampsClaim(t *testing.T) {
	members, ledger := newTestRepos(t)
	ctx := context.Background()

	_, err := ledger.ModifyPoints(ctx, testGuild, domain.ActionDaily,
		[]string{"alice"}, []int{2}, "Daily clan points", "alice")
	require.NoError(t, err)

	member, err := members.GetMember(ctx, testGuild, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, member.Balance)
	require.NotNil(t, member.ClanPointsLastClaimedAt)
}

func TestUndoRestoresBalances(t *testing.T) {
	members, ledger := newTestRepos(t)
	ctx := context.Background()

	result, err := ledger.ModifyPoints(ctx, testGuild, domain.ActionAdd,
		[]string{"alice", "bob"}, []int{10, 20}, "grant", "staff")
	require.NoError(t, err)

	undoneID, err := ledger.UndoTransaction(ctx, testGuild, result.TransactionID, "staff")
	require.NoError(t, err)
	assert.Equal(t, result.TransactionID, undoneID)

	alice, _ := members.GetBalance(ctx, testGuild, "alice")
	bob, _ := members.GetBalance(ctx, testGuild, "bob")
	assert.Equal(t, 0, alice)
	assert.Equal(t, 0, bob)
}

func TestUndoRespectsInterveningChanges(t *testing.T) {
	members, ledger := newTestRepos(t)
	ctx := context.Background()

	first, err := ledger.ModifyPoints(ctx, testGuild, domain.ActionAdd,
		[]string{"alice"}, []int{10}, "grant", "staff")
	require.NoError(t, err)

	_, err = ledger.ModifyPoints(ctx, testGuild, domain.ActionAdd,
		[]string{"alice"}, []int{5}, "second grant", "staff")
	require.NoError(t, err)

	_, err = ledger.UndoTransaction(ctx, testGuild, first.TransactionID, "staff")
	require.NoError(t, err)

	balance, err := members.GetBalance(ctx, testGuild, "alice")
	require.NoError(t, err)
	assert.Equal(t, 5, balance, "undo subtracts from the current balance")
}

func TestUndoTwiceFails(t *testing.T) {
	_, ledger := newTestRepos(t)
	ctx := context.Background()

	result, err := ledger.ModifyPoints(ctx, testGuild, domain.ActionAdd,
		[]string{"alice"}, []int{10}, "grant", "staff")
	require.NoError(t, err)

	_, err = ledger.UndoTransaction(ctx, testGuild, result.TransactionID, "staff")
	require.NoError(t, err)

	_, err = ledger.UndoTransaction(ctx, testGuild, result.TransactionID, "staff")
	assert.ErrorIs(t, err, domain.ErrTransactionUndone)
}

func TestUndoOfUndoForbidden(t *testing.T) {
	_, ledger := newTestRepos(t)
	ctx := context.Background()

	result, err := ledger.ModifyPoints(ctx, testGuild, domain.ActionAdd,
		[]string{"alice"}, []int{10}, "grant", "staff")
	require.NoError(t, err)

	_, err = ledger.UndoTransaction(ctx, testGuild, result.TransactionID, "staff")
	require.NoError(t, err)

	transactions, err := ledger.GetTransactions(ctx, testGuild, domain.TransactionFilter{
		To: timeNowPlusHour(), Limit: 10,
	})
	require.NoError(t, err)

	var undoID string
	for _, tx := range transactions {
		if tx.ActionType == domain.ActionUndo {
			undoID = tx.ID
		}
	}
	require.NotEmpty(t, undoID)

	_, err = ledger.UndoTransaction(ctx, testGuild, undoID, "staff")
	assert.ErrorIs(t, err, domain.ErrUndoOfUndo)
}

func TestUndoUnknownTransaction(t *testing.T) {
	_, ledger := newTestRepos(t)

	_, err := ledger.UndoTransaction(context.Background(), testGuild, "no-such-id", "staff")
	assert.ErrorIs(t, err, domain.ErrTransactionNotFound)
}

func TestGetTransactionsExcludesDailyByDefault(t *testing.T) {
	_, ledger := newTestRepos(t)
	ctx := context.Background()

	_, err := ledger.ModifyPoints(ctx, testGuild, domain.ActionAdd,
		[]string{"alice"}, []int{10}, "grant", "staff")
	require.NoError(t, err)
	_, err = ledger.ModifyPoints(ctx, testGuild, domain.ActionDaily,
		[]string{"alice"}, []int{2}, "Daily clan points", "alice")
	require.NoError(t, err)

	withoutDaily, err := ledger.GetTransactions(ctx, testGuild, domain.TransactionFilter{
		To: timeNowPlusHour(),
	})
	require.NoError(t, err)
	require.Len(t, withoutDaily, 1)
	assert.Equal(t, domain.ActionAdd, withoutDaily[0].ActionType)

	withDaily, err := ledger.GetTransactions(ctx, testGuild, domain.TransactionFilter{
		To: timeNowPlusHour(), IncludeDaily: true,
	})
	require.NoError(t, err)
	assert.Len(t, withDaily, 2)
}

func TestGetTransactionsFiltersByTarget(t *testing.T) {
	_, ledger := newTestRepos(t)
	ctx := context.Background()

	_, err := ledger.ModifyPoints(ctx, testGuild, domain.ActionAdd,
		[]string{"alice"}, []int{10}, "for alice", "staff")
	require.NoError(t, err)
	_, err = ledger.ModifyPoints(ctx, testGuild, domain.ActionAdd,
		[]string{"bob"}, []int{20}, "for bob", "staff")
	require.NoError(t, err)

	transactions, err := ledger.GetTransactions(ctx, testGuild, domain.TransactionFilter{
		To: timeNowPlusHour(), TargetDiscordID: "alice",
	})
	require.NoError(t, err)
	require.Len(t, transactions, 1)
	assert.Equal(t, "for alice", transactions[0].Reason)

	require.Len(t, transactions[0].Actions, 1)
	assert.Equal(t, "alice", transactions[0].Actions[0].TargetDiscordID)
	assert.Equal(t, 0, transactions[0].Actions[0].PreviousBalance)
}

func TestPeriodLeaderboardIgnoresUndoneTransactions(t *testing.T) {
	members, ledger := newTestRepos(t)
	ctx := context.Background()

	kept, err := ledger.ModifyPoints(ctx, testGuild, domain.ActionAdd,
		[]string{"alice"}, []int{10}, "kept", "staff")
	require.NoError(t, err)
	_ = kept

	undone, err := ledger.ModifyPoints(ctx, testGuild, domain.ActionAdd,
		[]string{"bob"}, []int{50}, "reverted", "staff")
	require.NoError(t, err)

	_, err = ledger.UndoTransaction(ctx, testGuild, undone.TransactionID, "staff")
	require.NoError(t, err)

	entries, err := members.PeriodLeaderboard(ctx, testGuild, timeZero(), timeNowPlusHour())
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, "alice", entries[0].DiscordID)
	assert.Equal(t, 10, entries[0].Points)
}

func TestAllTimeLeaderboardOrdersByBalance(t *testing.T) {
	members, ledger := newTestRepos(t)
	ctx := context.Background()

	_, err := ledger.ModifyPoints(ctx, testGuild, domain.ActionAdd,
		[]string{"alice", "bob"}, []int{10, 30}, "grant", "staff")
	require.NoError(t, err)

	entries, err := members.AllTimeLeaderboard(ctx, testGuild)
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(entries), 2)
	assert.Equal(t, "bob", entries[0].DiscordID)
	assert.Equal(t, 30, entries[0].Points)
}
