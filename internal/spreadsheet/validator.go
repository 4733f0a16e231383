// Package spreadsheet reads and validates the clan roster sheet against the
// Discord member directory. The validator is pure: it consumes prefetched
// rows and members and performs no I/O, so a failed match is never an error,
// only an entry in the result.
package spreadsheet

import (
	"fmt"
	"sort"
	"strings"

	"clan-tracker/internal/domain"
	"clan-tracker/internal/names"
)

// BuildMemberInfo parses every directory member's display name once.
func BuildMemberInfo(members []DirectoryMember) []domain.DiscordMemberInfo {
	infos := make([]domain.DiscordMemberInfo, len(members))
	for i, member := range members {
		infos[i] = domain.DiscordMemberInfo{
			ID:          member.ID,
			DisplayName: member.DisplayName,
			ParsedNames: names.ParseDiscordName(member.DisplayName),
		}
	}
	return infos
}

// DirectoryMember is the minimal directory contract the validator needs.
type DirectoryMember struct {
	ID          string
	DisplayName string
}

// buildNameMappings maps every normalized name seen in a display name to the
// single member owning it. A name claimed by two or more members is marked
// ambiguous and removed from the 1:1 mapping.
func buildNameMappings(members []domain.DiscordMemberInfo) (map[string]string, map[string]bool) {
	owners := make(map[string][]string)
	for _, member := range members {
		for _, name := range memberNames(member) {
			if !contains(owners[name], member.ID) {
				owners[name] = append(owners[name], member.ID)
			}
		}
	}

	mapping := make(map[string]string)
	ambiguous := make(map[string]bool)
	for name, ids := range owners {
		if len(ids) == 1 {
			mapping[name] = ids[0]
		} else {
			ambiguous[name] = true
		}
	}
	return mapping, ambiguous
}

func memberNames(member domain.DiscordMemberInfo) []string {
	var all []string
	if member.ParsedNames.RSN != "" {
		all = append(all, member.ParsedNames.RSN)
	}
	return append(all, member.ParsedNames.Alts...)
}

func contains(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}

// Validate runs every check on every non-empty row and never short-circuits:
// a row can carry several simultaneous errors and maintainers fix them in one
// edit pass.
func Validate(rows []domain.SpreadsheetRow, members []DirectoryMember) domain.ValidationResult {
	infos := BuildMemberInfo(members)
	mapping, ambiguous := buildNameMappings(infos)

	var nonEmpty []domain.SpreadsheetRow
	for _, row := range rows {
		if !row.Empty() {
			nonEmpty = append(nonEmpty, row)
		}
	}

	rsnUsage := buildRSNUsage(nonEmpty)
	altUsage := buildAltUsage(nonEmpty)
	idUsage := buildDiscordIDUsage(nonEmpty)

	result := domain.ValidationResult{
		ErrorsByRow: make(map[int][]domain.ValidationError),
	}

	for _, row := range nonEmpty {
		validated := validateRow(row, rsnUsage, altUsage, idUsage, mapping, ambiguous, infos)
		result.ValidatedRows = append(result.ValidatedRows, validated)
		if validated.CanPopulate {
			result.PopulatableRows = append(result.PopulatableRows, validated)
		}
		if len(validated.Errors) > 0 {
			result.ErrorsByRow[row.Row] = validated.Errors
		}
	}
	return result
}

func buildRSNUsage(rows []domain.SpreadsheetRow) map[string][]int {
	usage := make(map[string][]int)
	for _, row := range rows {
		if rsn := names.Normalize(row.RSN); rsn != "" {
			usage[rsn] = append(usage[rsn], row.Row)
		}
	}
	return usage
}

func buildAltUsage(rows []domain.SpreadsheetRow) map[string][]int {
	usage := make(map[string][]int)
	for _, row := range rows {
		for _, alt := range names.ParseAlts(row.Alts) {
			usage[alt] = append(usage[alt], row.Row)
		}
	}
	return usage
}

func buildDiscordIDUsage(rows []domain.SpreadsheetRow) map[string][]int {
	usage := make(map[string][]int)
	for _, row := range rows {
		if id := strings.TrimSpace(row.DiscordID); id != "" {
			usage[id] = append(usage[id], row.Row)
		}
	}
	return usage
}

func validateRow(
	row domain.SpreadsheetRow,
	rsnUsage, altUsage, idUsage map[string][]int,
	mapping map[string]string,
	ambiguous map[string]bool,
	infos []domain.DiscordMemberInfo,
) domain.ValidatedRow {
	var errs []domain.ValidationError

	errs = append(errs, validateRSN(row)...)
	errs = append(errs, validateNameUniqueness(row, rsnUsage, altUsage)...)
	errs = append(errs, validateDiscordIDUniqueness(row, idUsage)...)

	candidate, matchErrs := matchDiscordMember(row, mapping, ambiguous, infos)
	errs = append(errs, matchErrs...)

	if candidate != "" {
		errs = append(errs, validateExistingDiscordID(row, candidate)...)
	}

	isValid := len(errs) == 0
	return domain.ValidatedRow{
		Row:               row,
		IsValid:           isValid,
		Errors:            errs,
		CanPopulate:       isValid && strings.TrimSpace(row.DiscordID) == "" && candidate != "",
		ExpectedDiscordID: candidate,
	}
}

func validateRSN(row domain.SpreadsheetRow) []domain.ValidationError {
	var errs []domain.ValidationError
	if strings.TrimSpace(row.RSN) == "" {
		errs = append(errs, domain.ValidationError{
			Type:     domain.ErrMissingRSN,
			Message:  "row has no RSN",
			AltIndex: -1,
		})
	}
	if strings.Contains(row.RSN, ",") {
		errs = append(errs, domain.ValidationError{
			Type:     domain.ErrMultipleRSNs,
			Message:  "RSN cell must hold exactly one name",
			AltIndex: -1,
		})
	}
	return errs
}

func validateNameUniqueness(row domain.SpreadsheetRow, rsnUsage, altUsage map[string][]int) []domain.ValidationError {
	var errs []domain.ValidationError

	originalAlts := splitRawAlts(row.Alts)

	if rsn := names.Normalize(row.RSN); rsn != "" {
		if rows := rsnUsage[rsn]; len(rows) > 1 {
			errs = append(errs, domain.ValidationError{
				Type:     domain.ErrRSNDuplicate,
				Message:  fmt.Sprintf("RSN %q appears in rows %s", row.RSN, joinRows(rows)),
				AltIndex: -1,
			})
		}
		if rows := altUsage[rsn]; len(rows) > 0 {
			errs = append(errs, domain.ValidationError{
				Type:     domain.ErrRSNUsedAsAlt,
				Message:  fmt.Sprintf("RSN %q is used as an alt in rows %s", row.RSN, joinRows(rows)),
				AltIndex: -1,
			})
		}
	}

	for i, alt := range names.ParseAlts(row.Alts) {
		original := alt
		if i < len(originalAlts) {
			original = originalAlts[i]
		}
		if rows := altUsage[alt]; len(rows) > 1 {
			errs = append(errs, domain.ValidationError{
				Type:     domain.ErrAltDuplicate,
				Message:  fmt.Sprintf("alt %q appears in rows %s", original, joinRows(rows)),
				AltIndex: i,
			})
		}
		if rows := rsnUsage[alt]; len(rows) > 0 {
			errs = append(errs, domain.ValidationError{
				Type:     domain.ErrAltUsedAsRSN,
				Message:  fmt.Sprintf("alt %q is used as an RSN in rows %s", original, joinRows(rows)),
				AltIndex: -1,
			})
		}
	}
	return errs
}

func validateDiscordIDUniqueness(row domain.SpreadsheetRow, idUsage map[string][]int) []domain.ValidationError {
	id := strings.TrimSpace(row.DiscordID)
	if id == "" {
		return nil
	}
	if rows := idUsage[id]; len(rows) > 1 {
		return []domain.ValidationError{{
			Type:     domain.ErrDiscordIDDuplicate,
			Message:  fmt.Sprintf("Discord ID %s appears in rows %s", id, joinRows(rows)),
			AltIndex: -1,
		}}
	}
	return nil
}

// matchDiscordMember resolves a row to at most one Discord member. Any
// ambiguous name aborts resolution for the whole row: the engine never
// guesses under ambiguity because a wrong write to the sheet is worse than
// no write.
func matchDiscordMember(
	row domain.SpreadsheetRow,
	mapping map[string]string,
	ambiguous map[string]bool,
	infos []domain.DiscordMemberInfo,
) (string, []domain.ValidationError) {
	rowNames := names.RowNames(row)

	var ambiguousMatches []string
	for _, name := range rowNames {
		if ambiguous[name] {
			ambiguousMatches = append(ambiguousMatches, name)
		}
	}

	if len(ambiguousMatches) > 0 {
		var owners []string
		for _, name := range ambiguousMatches {
			for _, member := range infos {
				if contains(memberNames(member), name) && !contains(owners, member.ID) {
					owners = append(owners, member.ID)
				}
			}
		}
		return "", []domain.ValidationError{{
			Type: domain.ErrAmbiguousDiscordMatch,
			Message: fmt.Sprintf("names %s are shared by members %s",
				strings.Join(ambiguousMatches, ", "), strings.Join(owners, ", ")),
			AltIndex: -1,
		}}
	}

	var matched []string
	for _, name := range rowNames {
		if id, ok := mapping[name]; ok && !contains(matched, id) {
			matched = append(matched, id)
		}
	}

	switch len(matched) {
	case 0:
		return "", []domain.ValidationError{{
			Type:     domain.ErrNoDiscordMatch,
			Message:  fmt.Sprintf("no Discord member matches %s", strings.Join(rowNames, ", ")),
			AltIndex: -1,
		}}
	case 1:
		return matched[0], nil
	default:
		return "", []domain.ValidationError{{
			Type:     domain.ErrAmbiguousDiscordMatch,
			Message:  fmt.Sprintf("row names resolve to different members: %s", strings.Join(matched, ", ")),
			AltIndex: -1,
		}}
	}
}

func validateExistingDiscordID(row domain.SpreadsheetRow, candidate string) []domain.ValidationError {
	existing := strings.TrimSpace(row.DiscordID)
	if existing == "" || existing == candidate {
		return nil
	}
	return []domain.ValidationError{{
		Type:     domain.ErrIncorrectDiscordID,
		Message:  fmt.Sprintf("Discord ID %s does not match expected %s", existing, candidate),
		AltIndex: -1,
	}}
}

func splitRawAlts(raw string) []string {
	var alts []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			alts = append(alts, part)
		}
	}
	return alts
}

func joinRows(rows []int) string {
	sorted := append([]int(nil), rows...)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, row := range sorted {
		parts[i] = fmt.Sprintf("%d", row)
	}
	return strings.Join(parts, ", ")
}
