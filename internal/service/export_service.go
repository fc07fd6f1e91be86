package service

import (
	"context"
	"fmt"
	"io"

	"github.com/attendance-tracker-api/internal/models"
	"github.com/attendance-tracker-api/internal/repository"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// XLSXSheet is the worksheet name used for spreadsheet exports
const XLSXSheet = "Attendance"

// exportService is the concrete implementation of ExportService
type exportService struct {
	repos *repository.Repositories
	log   zerolog.Logger
}

// newExportService creates a new ExportService
func newExportService(repos *repository.Repositories, log zerolog.Logger) *exportService {
	return &exportService{
		repos: repos,
		log:   log.With().Str("service", "export").Logger(),
	}
}

// ExportCSV returns the persisted table unchanged
func (s *exportService) ExportCSV(ctx context.Context, scope models.Scope) ([]byte, error) {
	data, err := s.repos.Attendance.ExportRaw(ctx, scope)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("scope", scope.String()).Int("bytes", len(data)).Msg("CSV export completed")
	return data, nil
}

// ExportXLSX writes the table as a single-sheet workbook
func (s *exportService) ExportXLSX(ctx context.Context, scope models.Scope, w io.Writer) error {
	exists, err := s.repos.Attendance.Exists(ctx, scope)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: scope %s", models.ErrNotFound, scope)
	}

	records, err := s.repos.Attendance.ListAll(ctx, scope)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", XLSXSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := setRow(f, 1, models.Header); err != nil {
		return err
	}
	for i, r := range records {
		if err := setRow(f, i+2, r.Row()); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	s.log.Info().Str("scope", scope.String()).Int("count", len(records)).Msg("XLSX export completed")
	return nil
}

func setRow(f *excelize.File, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(XLSXSheet, cell, &cells); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}
