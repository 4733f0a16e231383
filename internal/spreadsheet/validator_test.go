package spreadsheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clan-tracker/internal/domain"
)

func errorTypes(errs []domain.ValidationError) []domain.ValidationErrorType {
	types := make([]domain.ValidationErrorType, len(errs))
	for i, e := range errs {
		types[i] = e.Type
	}
	return types
}

func TestValidateSkipsEmptyRows(t *testing.T) {
	rows := []domain.SpreadsheetRow{
		{Row: 5},
		{Row: 6, RSN: "Zezima"},
		{Row: 7},
	}
	members := []DirectoryMember{{ID: "1", DisplayName: "Zezima"}}

	result := Validate(rows, members)

	require.Len(t, result.ValidatedRows, 1)
	assert.Equal(t, 6, result.ValidatedRows[0].Row.Row)
}

func TestValidateMissingRSN(t *testing.T) {
	rows := []domain.SpreadsheetRow{{Row: 5, Alts: "SomeAlt"}}

	result := Validate(rows, nil)

	require.Len(t, result.ValidatedRows, 1)
	assert.False(t, result.ValidatedRows[0].IsValid)
	assert.Contains(t, errorTypes(result.ValidatedRows[0].Errors), domain.ErrMissingRSN)
}

func TestValidateMultipleRSNs(t *testing.T) {
	rows := []domain.SpreadsheetRow{{Row: 5, RSN: "Zezima, Other"}}

	result := Validate(rows, nil)

	assert.Contains(t, errorTypes(result.ValidatedRows[0].Errors), domain.ErrMultipleRSNs)
}

func TestValidateRSNDuplicateFlagsBothRows(t *testing.T) {
	rows := []domain.SpreadsheetRow{
		{Row: 5, RSN: "Zezima"},
		{Row: 6, RSN: "zezima"},
	}

	result := Validate(rows, nil)

	require.Len(t, result.ValidatedRows, 2)
	for _, validated := range result.ValidatedRows {
		assert.Contains(t, errorTypes(validated.Errors), domain.ErrRSNDuplicate,
			"row %d", validated.Row.Row)
	}
	assert.Len(t, result.ErrorsByRow, 2)
}

func TestValidateRSNUsedAsAlt(t *testing.T) {
	rows := []domain.SpreadsheetRow{
		{Row: 5, RSN: "Zezima"},
		{Row: 6, RSN: "Other", Alts: "Zezima"},
	}

	result := Validate(rows, nil)

	assert.Contains(t, errorTypes(result.ValidatedRows[0].Errors), domain.ErrRSNUsedAsAlt)
	assert.Contains(t, errorTypes(result.ValidatedRows[1].Errors), domain.ErrAltUsedAsRSN)
}

func TestValidateAltDuplicateCarriesAltIndex(t *testing.T) {
	rows := []domain.SpreadsheetRow{
		{Row: 5, RSN: "One", Alts: "Clean, Shared"},
		{Row: 6, RSN: "Two", Alts: "Shared"},
	}

	result := Validate(rows, nil)

	var found bool
	for _, e := range result.ValidatedRows[0].Errors {
		if e.Type == domain.ErrAltDuplicate {
			found = true
			assert.Equal(t, 1, e.AltIndex)
		}
	}
	assert.True(t, found, "expected an alt duplicate on row 5")
}

func TestValidateDiscordIDDuplicate(t *testing.T) {
	rows := []domain.SpreadsheetRow{
		{Row: 5, RSN: "One", DiscordID: "111"},
		{Row: 6, RSN: "Two", DiscordID: "111"},
	}

	result := Validate(rows, nil)

	for _, validated := range result.ValidatedRows {
		assert.Contains(t, errorTypes(validated.Errors), domain.ErrDiscordIDDuplicate)
	}
}

func TestValidateNoDiscordMatch(t *testing.T) {
	rows := []domain.SpreadsheetRow{{Row: 5, RSN: "Unknown"}}
	members := []DirectoryMember{{ID: "1", DisplayName: "Zezima"}}

	result := Validate(rows, members)

	assert.Contains(t, errorTypes(result.ValidatedRows[0].Errors), domain.ErrNoDiscordMatch)
}

func TestValidateIncorrectDiscordID(t *testing.T) {
	rows := []domain.SpreadsheetRow{{Row: 5, RSN: "Zezima", DiscordID: "999"}}
	members := []DirectoryMember{{ID: "111", DisplayName: "Zezima"}}

	result := Validate(rows, members)

	assert.Contains(t, errorTypes(result.ValidatedRows[0].Errors), domain.ErrIncorrectDiscordID)
}

func TestValidateAmbiguousNameNeverPopulates(t *testing.T) {
	rows := []domain.SpreadsheetRow{{Row: 5, RSN: "Shared"}}
	members := []DirectoryMember{
		{ID: "1", DisplayName: "Shared"},
		{ID: "2", DisplayName: "Shared | Alt"},
	}

	result := Validate(rows, members)

	require.Len(t, result.ValidatedRows, 1)
	validated := result.ValidatedRows[0]
	assert.Contains(t, errorTypes(validated.Errors), domain.ErrAmbiguousDiscordMatch)
	assert.False(t, validated.CanPopulate)
	assert.Empty(t, validated.ExpectedDiscordID)
	assert.Empty(t, result.PopulatableRows)
}

func TestValidateRowNamesResolvingToDifferentMembers(t *testing.T) {
	rows := []domain.SpreadsheetRow{{Row: 5, RSN: "Main", Alts: "Other"}}
	members := []DirectoryMember{
		{ID: "1", DisplayName: "Main"},
		{ID: "2", DisplayName: "Other"},
	}

	result := Validate(rows, members)

	assert.Contains(t, errorTypes(result.ValidatedRows[0].Errors), domain.ErrAmbiguousDiscordMatch)
}

func TestValidateCanPopulate(t *testing.T) {
	rows := []domain.SpreadsheetRow{
		{Row: 5, RSN: "Zezima"},
		{Row: 6, RSN: "Other", DiscordID: "222"},
	}
	members := []DirectoryMember{
		{ID: "111", DisplayName: "Zezima (Owner)"},
		{ID: "222", DisplayName: "Other"},
	}

	result := Validate(rows, members)

	require.Len(t, result.ValidatedRows, 2)

	populatable := result.ValidatedRows[0]
	assert.True(t, populatable.IsValid)
	assert.True(t, populatable.CanPopulate)
	assert.Equal(t, "111", populatable.ExpectedDiscordID)

	filled := result.ValidatedRows[1]
	assert.True(t, filled.IsValid)
	assert.False(t, filled.CanPopulate, "a row with an ID already set never populates")

	require.Len(t, result.PopulatableRows, 1)
	assert.Equal(t, 5, result.PopulatableRows[0].Row.Row)
}

func TestValidateMatchesViaAlt(t *testing.T) {
	rows := []domain.SpreadsheetRow{{Row: 5, RSN: "MainName", Alts: "AltName"}}
	members := []DirectoryMember{{ID: "333", DisplayName: "Something | AltName"}}

	result := Validate(rows, members)

	validated := result.ValidatedRows[0]
	assert.True(t, validated.IsValid)
	assert.Equal(t, "333", validated.ExpectedDiscordID)
}
