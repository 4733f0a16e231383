package names

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"clan-tracker/internal/domain"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases and trims", "  Zezima  ", "zezima"},
		{"keeps interior spaces", "Iron Man", "iron man"},
		{"strips punctuation", "Zez!ima?", "zezima"},
		{"strips unicode emoji", "Zezima \U0001F5E1", "zezima"},
		{"strips discord custom emoji", "Zezima <:sword:123456789>", "zezima"},
		{"strips animated custom emoji", "<a:dance:987654321>Zezima", "zezima"},
		{"keeps digits and hyphens", "Cow-Killer99", "cow-killer99"},
		{"empty in, empty out", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{
		"  Zezima  ",
		"Zez!ima <:sword:123>",
		"IRON MAN \U0001F6E1",
		"plain",
	}
	for _, input := range inputs {
		once := Normalize(input)
		assert.Equal(t, once, Normalize(once), "input %q", input)
	}
}

func TestParseAlts(t *testing.T) {
	assert.Nil(t, ParseAlts(""))
	assert.Nil(t, ParseAlts("  ,  ,  "))
	assert.Equal(t, []string{"alt one", "alt two"}, ParseAlts("Alt One, Alt Two"))
	assert.Equal(t, []string{"solo"}, ParseAlts("Solo,"))
}

func TestParseDiscordName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  domain.ParsedDiscordName
	}{
		{
			"rsn with alts",
			"Zezima | Alt1 | Alt2",
			domain.ParsedDiscordName{RSN: "zezima", Alts: []string{"alt1", "alt2"}},
		},
		{
			"parenthetical nickname stripped",
			"Zezima (Owner) | Alt1",
			domain.ParsedDiscordName{RSN: "zezima", Alts: []string{"alt1"}},
		},
		{
			"bare name",
			"Zezima",
			domain.ParsedDiscordName{RSN: "zezima"},
		},
		{
			"emoji-only rsn normalizes to empty",
			"\U0001F5E1 | Alt1",
			domain.ParsedDiscordName{RSN: "", Alts: []string{"alt1"}},
		},
		{
			"empty segments skipped",
			"Zezima | | Alt1",
			domain.ParsedDiscordName{RSN: "zezima", Alts: []string{"alt1"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDiscordName(tt.input))
		})
	}
}

func TestRowNames(t *testing.T) {
	row := domain.SpreadsheetRow{RSN: "Zezima", Alts: "Alt One, Alt Two"}
	assert.Equal(t, []string{"zezima", "alt one", "alt two"}, RowNames(row))

	noRSN := domain.SpreadsheetRow{Alts: "Alt One"}
	assert.Equal(t, []string{"alt one"}, RowNames(noRSN))
}
