package domain

// SpreadsheetRow is one row as read from the clan spreadsheet. Row is the
// 1-based source line number. Rows are recreated on every read and never
// mutated; the sheet itself stays the source of truth.
type SpreadsheetRow struct {
	Row       int
	RSN       string
	Alts      string
	DiscordID string
}

// Empty reports whether the row carries no data at all. Such rows are noise
// and are excluded from validation entirely.
func (r SpreadsheetRow) Empty() bool {
	return r.RSN == "" && r.Alts == "" && r.DiscordID == ""
}

// ParsedDiscordName is the result of parsing a "name | alt1 | alt2" display
// name. RSN may be empty when the first segment normalizes to nothing.
type ParsedDiscordName struct {
	RSN  string
	Alts []string
}

// DiscordMemberInfo pairs a guild member with the names parsed out of their
// display name. Ephemeral per validation run.
type DiscordMemberInfo struct {
	ID          string
	DisplayName string
	ParsedNames ParsedDiscordName
}

type ValidationErrorType string

const (
	ErrMissingRSN            ValidationErrorType = "MISSING_RSN"
	ErrMultipleRSNs          ValidationErrorType = "MULTIPLE_RSNS"
	ErrRSNDuplicate          ValidationErrorType = "RSN_DUPLICATE"
	ErrRSNUsedAsAlt          ValidationErrorType = "RSN_USED_AS_ALT"
	ErrAltDuplicate          ValidationErrorType = "ALT_DUPLICATE"
	ErrAltUsedAsRSN          ValidationErrorType = "ALT_USED_AS_RSN"
	ErrDiscordIDDuplicate    ValidationErrorType = "DISCORD_ID_DUPLICATE"
	ErrIncorrectDiscordID    ValidationErrorType = "INCORRECT_DISCORD_ID"
	ErrNoDiscordMatch        ValidationErrorType = "NO_DISCORD_MATCH"
	ErrAmbiguousDiscordMatch ValidationErrorType = "AMBIGUOUS_DISCORD_MATCH"
)

// ValidationError is one problem found on a spreadsheet row. AltIndex is set
// (>= 0) only when the error applies to a specific alt within a multi-alt cell.
type ValidationError struct {
	Type     ValidationErrorType
	Message  string
	AltIndex int
}

// ValidatedRow is the per-row verdict. CanPopulate holds only when the row is
// valid, its Discord ID cell is empty and exactly one candidate was resolved.
type ValidatedRow struct {
	Row               SpreadsheetRow
	IsValid           bool
	Errors            []ValidationError
	CanPopulate       bool
	ExpectedDiscordID string
}

// ValidationResult bundles the verdicts for one validation run.
type ValidationResult struct {
	ValidatedRows   []ValidatedRow
	PopulatableRows []ValidatedRow
	ErrorsByRow     map[int][]ValidationError
}
