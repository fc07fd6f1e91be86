package service

import (
	"context"
	"io"
	"time"

	"github.com/attendance-tracker-api/internal/models"
	"github.com/attendance-tracker-api/internal/repository"
	"github.com/rs/zerolog"
)

// AttendanceService defines the interface for attendance operations
type AttendanceService interface {
	Open(ctx context.Context, scope models.Scope) error
	List(ctx context.Context, scope models.Scope) ([]models.AttendanceRecord, error)
	Mark(ctx context.Context, scope models.Scope, name string, status models.Status) (*models.AttendanceRecord, error)
	MarkAt(ctx context.Context, scope models.Scope, name string, status models.Status, now time.Time) (*models.AttendanceRecord, error)
	Delete(ctx context.Context, scope models.Scope, record models.AttendanceRecord) (bool, error)
	Clear(ctx context.Context, scope models.Scope) error
	Summary(ctx context.Context, scope models.Scope) (*models.Summary, error)
}

// ExportService defines the interface for export operations
type ExportService interface {
	ExportCSV(ctx context.Context, scope models.Scope) ([]byte, error)
	ExportXLSX(ctx context.Context, scope models.Scope, w io.Writer) error
}

// Options tune how attendance is marked
type Options struct {
	// Dedup rejects a second record for the same name on the same day
	Dedup bool
	// Location is the time zone dates and times are recorded in
	Location *time.Location
	// Clock returns the current time; defaults to time.Now
	Clock func() time.Time
}

// Services holds all service interfaces
type Services struct {
	Attendance AttendanceService
	Export     ExportService
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, opts Options, log zerolog.Logger) *Services {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Services{
		Attendance: newAttendanceService(repos, opts, log),
		Export:     newExportService(repos, log),
	}
}
