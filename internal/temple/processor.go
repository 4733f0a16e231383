package temple

import (
	"math"
	"sort"

	"clan-tracker/internal/domain"
	"clan-tracker/internal/names"
	"clan-tracker/internal/spreadsheet"
)

type category int

const (
	categoryNotFound category = iota
	categoryInvalidData
	categoryAwarded
	categoryMissingRole
)

type categorized struct {
	category  category
	discordID string
	rowNumber int
	entry     domain.Participant
}

// CalculatePoints converts one member's combined placements into clan points.
// Points are floored, with one bonus point when the fractional remainder is
// at least 0.9 (intentional "round up if almost there" rule). Exactly one cap
// applies, checked first place through third, falling back to the per-person
// maximum; a cap of 0 is uncapped.
func CalculatePoints(placements []domain.Participant, cfg domain.PointsConfig) domain.PointsBreakdown {
	b := domain.PointsBreakdown{BestPlacement: math.MaxInt}
	for _, p := range placements {
		b.TotalGain += p.Gain
		if p.Placement < b.BestPlacement {
			b.BestPlacement = p.Placement
		}
	}

	rawPoints := b.TotalGain / cfg.GainPerClanPoint
	b.CalculatedPoints = int(math.Floor(rawPoints))
	if rawPoints-math.Floor(rawPoints) >= 0.9 {
		b.CalculatedPoints++
	}
	b.CappedPoints = b.CalculatedPoints

	limit, reason := 0, ""
	switch {
	case b.BestPlacement == 1 && cfg.FirstPlaceCap > 0:
		limit, reason = cfg.FirstPlaceCap, "first place cap"
	case b.BestPlacement == 2 && cfg.SecondPlaceCap > 0:
		limit, reason = cfg.SecondPlaceCap, "second place cap"
	case b.BestPlacement == 3 && cfg.ThirdPlaceCap > 0:
		limit, reason = cfg.ThirdPlaceCap, "third place cap"
	case cfg.MaxPerPerson > 0:
		limit, reason = cfg.MaxPerPerson, "maximum per person"
	}

	if limit > 0 && b.CalculatedPoints > limit {
		b.CappedPoints = limit
		b.CapReason = reason
	}
	return b
}

// Process categorizes every participant against the validated spreadsheet,
// groups placements per Discord member, and computes capped awards. Bad data
// never raises an error here; it lands in the invalid-data or
// not-in-spreadsheet buckets instead. roleHolders is the prefetched set of
// Discord IDs holding the required member role.
func Process(
	rows []domain.SpreadsheetRow,
	members []spreadsheet.DirectoryMember,
	data *domain.CompetitionData,
	cfg domain.PointsConfig,
	roleHolders map[string]bool,
) *domain.CompetitionResult {
	validation := spreadsheet.Validate(rows, members)

	validByRow := make(map[int]domain.ValidatedRow)
	for _, validated := range validation.ValidatedRows {
		validByRow[validated.Row.Row] = validated
	}

	nameToDiscordID := buildDiscordNameMapping(validation.ValidatedRows)

	seen := make(map[string]bool)
	var entries []*categorized
	for _, participant := range data.Participants {
		if seen[participant.Username] {
			continue
		}
		seen[participant.Username] = true

		row, found := findParticipantRow(participant, rows)
		if !found {
			if participant.Gain > 0 {
				entries = append(entries, &categorized{category: categoryNotFound, entry: participant})
			}
			continue
		}

		if validated, ok := validByRow[row.Row]; !ok || !validated.IsValid {
			entries = append(entries, &categorized{
				category:  categoryInvalidData,
				rowNumber: row.Row,
				entry:     participant,
			})
			continue
		}

		discordID, ok := nameToDiscordID[searchName(participant)]
		if !ok {
			// validation passed, so a missing mapping should not happen
			continue
		}

		entries = append(entries, &categorized{
			category:  categoryAwarded,
			discordID: discordID,
			rowNumber: row.Row,
			entry:     participant,
		})
	}

	for _, entry := range entries {
		if entry.category == categoryAwarded && !roleHolders[entry.discordID] {
			entry.category = categoryMissingRole
		}
	}

	result := &domain.CompetitionResult{CompetitionName: data.CompetitionName}

	awardedGroups, awardedOrder := groupByDiscordID(entries, categoryAwarded)
	missingGroups, missingOrder := groupByDiscordID(entries, categoryMissingRole)

	for _, discordID := range awardedOrder {
		placements := awardedGroups[discordID]
		breakdown := CalculatePoints(placements, cfg)
		if breakdown.CappedPoints <= 0 {
			continue
		}
		result.Awarded = append(result.Awarded, domain.AwardedMember{
			DiscordID:       discordID,
			Placements:      placements,
			PointsBreakdown: breakdown,
		})
	}

	for _, discordID := range missingOrder {
		placements := missingGroups[discordID]
		breakdown := CalculatePoints(placements, cfg)
		if breakdown.CappedPoints <= 0 {
			continue
		}
		result.MissingRole = append(result.MissingRole, domain.InvalidMember{
			RSN:             joinUsernames(placements),
			DiscordID:       discordID,
			Placements:      placements,
			PointsBreakdown: breakdown,
		})
	}

	for _, entry := range entries {
		switch entry.category {
		case categoryInvalidData:
			breakdown := CalculatePoints([]domain.Participant{entry.entry}, cfg)
			if breakdown.CappedPoints <= 0 {
				continue
			}
			result.InvalidData = append(result.InvalidData, domain.InvalidMember{
				RSN:              entry.entry.Username,
				Placements:       []domain.Participant{entry.entry},
				PointsBreakdown:  breakdown,
				ValidationErrors: validation.ErrorsByRow[entry.rowNumber],
			})
		case categoryNotFound:
			breakdown := CalculatePoints([]domain.Participant{entry.entry}, cfg)
			if breakdown.CalculatedPoints <= 0 {
				continue
			}
			result.NotInSpreadsheet = append(result.NotInSpreadsheet, domain.NotInSpreadsheetMember{
				Username:        entry.entry.Username,
				Gain:            entry.entry.Gain,
				Placement:       entry.entry.Placement,
				PointsBreakdown: breakdown,
			})
		}
	}

	sort.SliceStable(result.Awarded, func(i, j int) bool {
		return result.Awarded[i].BestPlacement < result.Awarded[j].BestPlacement
	})
	sort.SliceStable(result.MissingRole, func(i, j int) bool {
		return result.MissingRole[i].BestPlacement < result.MissingRole[j].BestPlacement
	})
	sort.SliceStable(result.InvalidData, func(i, j int) bool {
		return result.InvalidData[i].BestPlacement < result.InvalidData[j].BestPlacement
	})
	sort.SliceStable(result.NotInSpreadsheet, func(i, j int) bool {
		return result.NotInSpreadsheet[i].Placement < result.NotInSpreadsheet[j].Placement
	})

	totalPoints := 0
	for _, awarded := range result.Awarded {
		totalPoints += awarded.CappedPoints
	}

	result.Summary = domain.CompetitionSummary{
		TotalParticipants:     len(data.Participants),
		AwardedCount:          len(result.Awarded),
		MissingRoleCount:      len(result.MissingRole),
		InvalidDataCount:      len(result.InvalidData),
		NotInSpreadsheetCount: len(result.NotInSpreadsheet),
		TotalPointsAwarded:    totalPoints,
		AffectedErrorsByRow:   affectedErrors(rows, data.Participants, validation.ErrorsByRow),
	}
	return result
}

// buildDiscordNameMapping maps every name on a valid row to the row's Discord
// ID, falling back to the validator's resolved candidate when the ID cell is
// still empty.
func buildDiscordNameMapping(validated []domain.ValidatedRow) map[string]string {
	mapping := make(map[string]string)
	for _, row := range validated {
		if !row.IsValid {
			continue
		}
		discordID := row.Row.DiscordID
		if discordID == "" {
			discordID = row.ExpectedDiscordID
		}
		if discordID == "" {
			continue
		}
		for _, name := range names.RowNames(row.Row) {
			mapping[name] = discordID
		}
	}
	return mapping
}

func searchName(p domain.Participant) string {
	if p.DisplayName != "" {
		return names.Normalize(p.DisplayName)
	}
	return names.Normalize(p.Username)
}

func findParticipantRow(p domain.Participant, rows []domain.SpreadsheetRow) (domain.SpreadsheetRow, bool) {
	target := searchName(p)
	for _, row := range rows {
		for _, name := range names.RowNames(row) {
			if name == target {
				return row, true
			}
		}
	}
	return domain.SpreadsheetRow{}, false
}

func groupByDiscordID(entries []*categorized, want category) (map[string][]domain.Participant, []string) {
	groups := make(map[string][]domain.Participant)
	var order []string
	for _, entry := range entries {
		if entry.category != want || entry.discordID == "" {
			continue
		}
		if _, ok := groups[entry.discordID]; !ok {
			order = append(order, entry.discordID)
		}
		groups[entry.discordID] = append(groups[entry.discordID], entry.entry)
	}
	return groups, order
}

func joinUsernames(placements []domain.Participant) string {
	name := ""
	for i, p := range placements {
		if i > 0 {
			name += ", "
		}
		name += p.Username
	}
	return name
}

// affectedErrors filters the validation errors down to rows whose names match
// at least one competition participant.
func affectedErrors(
	rows []domain.SpreadsheetRow,
	participants []domain.Participant,
	errorsByRow map[int][]domain.ValidationError,
) map[int][]domain.ValidationError {
	participantNames := make(map[string]bool)
	for _, p := range participants {
		participantNames[searchName(p)] = true
	}

	rowsByNumber := make(map[int]domain.SpreadsheetRow)
	for _, row := range rows {
		rowsByNumber[row.Row] = row
	}

	affected := make(map[int][]domain.ValidationError)
	for rowNumber, errs := range errorsByRow {
		row, ok := rowsByNumber[rowNumber]
		if !ok {
			continue
		}
		for _, name := range names.RowNames(row) {
			if participantNames[name] {
				affected[rowNumber] = errs
				break
			}
		}
	}
	return affected
}
