package spreadsheet

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"clan-tracker/internal/config"
	"clan-tracker/internal/domain"
	"clan-tracker/internal/sheets"
)

// Reader assembles spreadsheet rows from the three configured single-column
// ranges.
type Reader struct {
	api    sheets.API
	logger zerolog.Logger
}

func NewReader(api sheets.API, logger zerolog.Logger) *Reader {
	return &Reader{api: api, logger: logger}
}

// Range builds a "Sheet!C5:C120" expression. An endRow of 0 leaves the range
// open-ended.
func Range(sheetName, startColumn string, startRow int, endColumn string, endRow int) string {
	if endRow > 0 {
		return fmt.Sprintf("%s!%s%d:%s%d", sheetName, startColumn, startRow, endColumn, endRow)
	}
	return fmt.Sprintf("%s!%s%d:%s", sheetName, startColumn, startRow, endColumn)
}

func columnRange(cfg config.GuildConfig, column string) string {
	return Range(cfg.SpreadsheetSheet, column, cfg.Rows.StartRow, column, cfg.Rows.EndRow)
}

// Read fetches the RSN, alt and Discord ID columns concurrently and zips them
// into rows. Row numbers are offset by the configured start row. The alt
// column is optional.
func (r *Reader) Read(ctx context.Context, cfg config.GuildConfig) ([]domain.SpreadsheetRow, error) {
	var rsnRows, altRows, idRows [][]string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rsnRows, err = r.api.GetValues(gctx, cfg.SpreadsheetID, columnRange(cfg, cfg.Columns.RSN))
		return err
	})
	g.Go(func() error {
		var err error
		idRows, err = r.api.GetValues(gctx, cfg.SpreadsheetID, columnRange(cfg, cfg.Columns.DiscordID))
		return err
	})
	if cfg.Columns.Alts != "" {
		g.Go(func() error {
			var err error
			altRows, err = r.api.GetValues(gctx, cfg.SpreadsheetID, columnRange(cfg, cfg.Columns.Alts))
			return err
		})
	}
	if err := g.Wait(); err != nil {
		r.logger.Error().Err(err).Str("spreadsheet_id", cfg.SpreadsheetID).Msg("failed to read spreadsheet")
		return nil, domain.ErrSpreadsheetUnavailable
	}

	count := len(rsnRows)
	if len(idRows) > count {
		count = len(idRows)
	}
	if len(altRows) > count {
		count = len(altRows)
	}

	rows := make([]domain.SpreadsheetRow, 0, count)
	for i := 0; i < count; i++ {
		rows = append(rows, domain.SpreadsheetRow{
			Row:       cfg.Rows.StartRow + i,
			RSN:       firstCell(rsnRows, i),
			Alts:      firstCell(altRows, i),
			DiscordID: firstCell(idRows, i),
		})
	}

	r.logger.Debug().Int("rows", len(rows)).Str("spreadsheet_id", cfg.SpreadsheetID).Msg("spreadsheet read")
	return rows, nil
}

// Populate writes the resolved Discord ID into the sheet for every row that
// can safely be populated, one single-cell update per row. Returns how many
// rows were written.
func (r *Reader) Populate(ctx context.Context, cfg config.GuildConfig, rows []domain.ValidatedRow) (int, error) {
	populated := 0
	for _, validated := range rows {
		if !validated.CanPopulate {
			continue
		}

		cell := Range(cfg.SpreadsheetSheet, cfg.Columns.DiscordID, validated.Row.Row, cfg.Columns.DiscordID, validated.Row.Row)
		err := r.api.UpdateValues(ctx, cfg.SpreadsheetID, cell, [][]string{{validated.ExpectedDiscordID}})
		if err != nil {
			r.logger.Error().Err(err).Int("row", validated.Row.Row).Msg("failed to populate row")
			return populated, fmt.Errorf("failed to populate row %d: %w", validated.Row.Row, err)
		}
		populated++
	}
	return populated, nil
}

func firstCell(rows [][]string, i int) string {
	if i >= len(rows) || len(rows[i]) == 0 {
		return ""
	}
	return strings.TrimSpace(rows[i][0])
}
