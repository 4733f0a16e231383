package domain

import (
	"time"
)

type Member struct {
	ID                      string
	DiscordID               string
	GuildID                 string
	Balance                 int
	ClanPointsLastClaimedAt *time.Time
	LastMessageSentAt       *time.Time
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// ActionType classifies a balance-affecting action. History and Audit are
// query-only filters and are never stored against a mutation.
type ActionType string

const (
	ActionAdd    ActionType = "ADD"
	ActionRemove ActionType = "REMOVE"
	ActionDaily  ActionType = "DAILY"
	ActionTemple ActionType = "TEMPLE"
	ActionUndo   ActionType = "UNDO"

	ActionHistory ActionType = "HISTORY"
	ActionAudit   ActionType = "AUDIT"
)

// ApplyAction computes the balance that results from applying an action of the
// given type. Add-like types increase the balance, Remove and Undo decrease it.
func ApplyAction(t ActionType, previous, amount int) (int, error) {
	switch t {
	case ActionAdd, ActionDaily, ActionTemple:
		return previous + amount, nil
	case ActionRemove, ActionUndo:
		return previous - amount, nil
	default:
		return 0, ErrInvalidActionType
	}
}

// InverseAction returns the action type that reverses t, or false when t is
// not reversible.
func InverseAction(t ActionType) (ActionType, bool) {
	switch t {
	case ActionAdd, ActionDaily, ActionTemple:
		return ActionRemove, true
	case ActionRemove:
		return ActionAdd, true
	default:
		return "", false
	}
}

// ClanPointTransaction groups one or more actions applied atomically. A
// transaction with UndoOfID set is the reversal record for another
// transaction; the pair is linked one hop, never chained.
type ClanPointTransaction struct {
	ID            string
	GuildID       string
	ActionType    ActionType
	PerformedByID string
	Reason        string
	CreatedAt     time.Time
	Undone        bool
	UndoneAt      *time.Time
	UndoneByID    *string
	UndoOfID      *string

	Actions []ClanPointAction
}

// ClanPointAction is one balance mutation of one member inside a transaction.
// PreviousBalance captures the pre-mutation state for audit and undo math.
type ClanPointAction struct {
	ID              string
	TransactionID   string
	ActionType      ActionType
	Amount          int
	GuildID         string
	PerformedByID   string
	PreviousBalance int
	Reason          string
	TargetMemberID  string
	TargetDiscordID string
	CreatedAt       time.Time
}

// ModifyResult reports the balances around one ModifyPoints call so callers
// can render before/after state.
type ModifyResult struct {
	TransactionID    string
	StartingBalances map[string]int
	FinalBalances    map[string]int
}

// LeaderboardEntry is one member's standing by points.
type LeaderboardEntry struct {
	DiscordID string
	Points    int
}

// TransactionFilter narrows GetTransactions queries.
type TransactionFilter struct {
	From            time.Time
	To              time.Time
	TargetDiscordID string
	PerformedByID   string
	IncludeDaily    bool
	Limit           int
}
