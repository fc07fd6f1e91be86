package repository

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/attendance-tracker-api/internal/database"
	"github.com/attendance-tracker-api/internal/models"
	"github.com/rs/zerolog"
)

// AttendanceStore defines the data operations on one attendance table per scope
type AttendanceStore interface {
	EnsureInitialized(ctx context.Context, scope models.Scope) error
	Exists(ctx context.Context, scope models.Scope) (bool, error)
	ListAll(ctx context.Context, scope models.Scope) ([]models.AttendanceRecord, error)
	IsDuplicateToday(ctx context.Context, scope models.Scope, name, date string) (bool, error)
	Append(ctx context.Context, scope models.Scope, record models.AttendanceRecord) error
	AppendUnique(ctx context.Context, scope models.Scope, record models.AttendanceRecord) error
	Delete(ctx context.Context, scope models.Scope, record models.AttendanceRecord) (bool, error)
	Clear(ctx context.Context, scope models.Scope) error
	ExportRaw(ctx context.Context, scope models.Scope) ([]byte, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	Attendance AttendanceStore
}

// NewCSV creates repositories backed by CSV files under dataDir
func NewCSV(dataDir string, log zerolog.Logger) *Repositories {
	return &Repositories{
		Attendance: NewCSVStore(dataDir, log),
	}
}

// NewPostgres creates repositories backed by the given database connection
func NewPostgres(db *database.DB) *Repositories {
	return &Repositories{
		Attendance: NewPostgresStore(db),
	}
}

// hasDuplicate reports whether records holds name (case-insensitive) on date
func hasDuplicate(records []models.AttendanceRecord, name, date string) bool {
	lower := strings.ToLower(name)
	for _, r := range records {
		if r.Date == date && strings.ToLower(r.Name) == lower {
			return true
		}
	}
	return false
}

// encodeTable renders header and records in the persisted CSV format
func encodeTable(records []models.AttendanceRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(models.Header); err != nil {
		return nil, err
	}
	for _, r := range records {
		if err := w.Write(r.Row()); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func checkScope(scope models.Scope) error {
	if !scope.Valid() {
		return fmt.Errorf("%w: invalid scope %q", models.ErrValidation, scope)
	}
	return nil
}
