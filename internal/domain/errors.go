package domain

import "errors"

// UserError is an expected, user-facing failure. Its message is safe to show
// directly and it is not logged as a system fault. Anything else that escapes
// a repository or service is an internal failure and gets wrapped into a
// generic "unable to X" UserError after logging.
type UserError struct {
	msg string
}

func NewUserError(msg string) *UserError {
	return &UserError{msg: msg}
}

func (e *UserError) Error() string {
	return e.msg
}

func IsUserError(err error) bool {
	var ue *UserError
	return errors.As(err, &ue)
}

var (
	ErrInvalidActionType = NewUserError("something went wrong")

	ErrTransactionNotFound = NewUserError("transaction not found")
	ErrTransactionUndone   = NewUserError("transaction has already been undone")
	ErrUndoOfUndo          = NewUserError("an undo transaction cannot be undone")

	ErrNoTargets        = NewUserError("no valid members in input")
	ErrAmountMismatch   = NewUserError("amounts must match the number of members")
	ErrDailyNotEligible = NewUserError("daily clan points already claimed")

	ErrUnableToModifyPoints    = NewUserError("unable to modify clan points")
	ErrUnableToRetrievePoints  = NewUserError("unable to retrieve clan points")
	ErrUnableToUndoTransaction = NewUserError("unable to undo transaction")
	ErrUnableToGetTransactions = NewUserError("unable to get transactions")
	ErrUnableToAccessMembers   = NewUserError("unable to access member data")
	ErrUnableToAccessGuild     = NewUserError("unable to access guild data")

	ErrCompetitionFetchFailed = NewUserError("failed to fetch competition data from TempleOSRS")
	ErrSpreadsheetUnavailable = NewUserError("unable to read the spreadsheet")
)
