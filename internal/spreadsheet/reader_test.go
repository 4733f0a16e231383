package spreadsheet

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clan-tracker/internal/config"
	"clan-tracker/internal/domain"
)

type fakeSheets struct {
	values  map[string][][]string
	updates map[string][][]string
	fail    bool
}

func newFakeSheets() *fakeSheets {
	return &fakeSheets{
		values:  make(map[string][][]string),
		updates: make(map[string][][]string),
	}
}

func (f *fakeSheets) GetValues(_ context.Context, _, rng string) ([][]string, error) {
	if f.fail {
		return nil, errors.New("boom")
	}
	return f.values[rng], nil
}

func (f *fakeSheets) UpdateValues(_ context.Context, _, rng string, values [][]string) error {
	if f.fail {
		return errors.New("boom")
	}
	f.updates[rng] = values
	return nil
}

func testGuildConfig() config.GuildConfig {
	return config.GuildConfig{
		SpreadsheetID:    "sheet-id",
		SpreadsheetSheet: "Members",
		Columns:          config.SpreadsheetColumns{RSN: "C", Alts: "D", DiscordID: "E"},
		Rows:             config.SpreadsheetRows{StartRow: 5, EndRow: 8},
	}
}

func TestRange(t *testing.T) {
	assert.Equal(t, "Members!C5:C120", Range("Members", "C", 5, "C", 120))
	assert.Equal(t, "Members!C5:C", Range("Members", "C", 5, "C", 0))
}

func TestReadZipsColumns(t *testing.T) {
	fake := newFakeSheets()
	fake.values["Members!C5:C8"] = [][]string{{"Zezima"}, {" Other "}, {}}
	fake.values["Members!D5:D8"] = [][]string{{"Alt1, Alt2"}}
	fake.values["Members!E5:E8"] = [][]string{{"111"}, {"222"}}

	reader := NewReader(fake, zerolog.Nop())
	rows, err := reader.Read(context.Background(), testGuildConfig())
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, domain.SpreadsheetRow{Row: 5, RSN: "Zezima", Alts: "Alt1, Alt2", DiscordID: "111"}, rows[0])
	assert.Equal(t, domain.SpreadsheetRow{Row: 6, RSN: "Other", DiscordID: "222"}, rows[1])
	assert.Equal(t, domain.SpreadsheetRow{Row: 7}, rows[2])
}

func TestReadSkipsAltColumnWhenUnconfigured(t *testing.T) {
	cfg := testGuildConfig()
	cfg.Columns.Alts = ""

	fake := newFakeSheets()
	fake.values["Members!C5:C8"] = [][]string{{"Zezima"}}
	fake.values["Members!E5:E8"] = [][]string{{"111"}}

	reader := NewReader(fake, zerolog.Nop())
	rows, err := reader.Read(context.Background(), cfg)
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].Alts)
}

func TestReadFailureIsUserError(t *testing.T) {
	fake := newFakeSheets()
	fake.fail = true

	reader := NewReader(fake, zerolog.Nop())
	_, err := reader.Read(context.Background(), testGuildConfig())

	assert.ErrorIs(t, err, domain.ErrSpreadsheetUnavailable)
}

func TestPopulateWritesOnlyPopulatableRows(t *testing.T) {
	fake := newFakeSheets()
	reader := NewReader(fake, zerolog.Nop())

	validated := []domain.ValidatedRow{
		{Row: domain.SpreadsheetRow{Row: 5}, CanPopulate: true, ExpectedDiscordID: "111"},
		{Row: domain.SpreadsheetRow{Row: 6}, CanPopulate: false, ExpectedDiscordID: "222"},
		{Row: domain.SpreadsheetRow{Row: 7}, CanPopulate: true, ExpectedDiscordID: "333"},
	}

	populated, err := reader.Populate(context.Background(), testGuildConfig(), validated)
	require.NoError(t, err)

	assert.Equal(t, 2, populated)
	assert.Equal(t, [][]string{{"111"}}, fake.updates["Members!E5:E5"])
	assert.Equal(t, [][]string{{"333"}}, fake.updates["Members!E7:E7"])
	assert.NotContains(t, fake.updates, "Members!E6:E6")
}
