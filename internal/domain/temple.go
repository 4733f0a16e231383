package domain

// Participant is one TempleOSRS competition entry. Placement is the 1-based
// rank in the order the API returned it; the processor never re-sorts gains.
type Participant struct {
	Username    string
	DisplayName string
	Gain        float64
	Placement   int
}

// CompetitionData is a fetched TempleOSRS competition.
type CompetitionData struct {
	CompetitionName    string
	IsSkillCompetition bool
	Participants       []Participant
}

// PointsConfig controls the gain-to-points conversion. A cap of 0 means
// uncapped.
type PointsConfig struct {
	GainPerClanPoint float64
	MaxPerPerson     int
	FirstPlaceCap    int
	SecondPlaceCap   int
	ThirdPlaceCap    int
}

// PointsBreakdown is the outcome of converting one member's combined
// placements into clan points. CapReason is set only when a cap actually
// reduced the value.
type PointsBreakdown struct {
	TotalGain        float64
	BestPlacement    int
	CalculatedPoints int
	CappedPoints     int
	CapReason        string
}

// AwardedMember is a member due points from a competition.
type AwardedMember struct {
	DiscordID  string
	Placements []Participant
	PointsBreakdown
}

// InvalidMember is a participant that matched a spreadsheet row with
// validation errors, or a matched member missing the required role. The
// points they would have received are carried for reporting.
type InvalidMember struct {
	RSN        string
	DiscordID  string
	Placements []Participant
	PointsBreakdown
	ValidationErrors []ValidationError
}

// NotInSpreadsheetMember is a participant with no matching spreadsheet row.
type NotInSpreadsheetMember struct {
	Username  string
	Gain      float64
	Placement int
	PointsBreakdown
}

// CompetitionSummary counts the buckets of one processing run.
type CompetitionSummary struct {
	TotalParticipants     int
	AwardedCount          int
	MissingRoleCount      int
	InvalidDataCount      int
	NotInSpreadsheetCount int
	TotalPointsAwarded    int
	AffectedErrorsByRow   map[int][]ValidationError
}

// CompetitionResult is the full outcome of processing a competition. Only the
// Awarded bucket ever reaches the ledger.
type CompetitionResult struct {
	CompetitionName  string
	Awarded          []AwardedMember
	MissingRole      []InvalidMember
	InvalidData      []InvalidMember
	NotInSpreadsheet []NotInSpreadsheetMember
	Summary          CompetitionSummary
}
