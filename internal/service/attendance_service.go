package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/attendance-tracker-api/internal/models"
	"github.com/attendance-tracker-api/internal/repository"
	"github.com/rs/zerolog"
)

// attendanceService is the concrete implementation of AttendanceService
type attendanceService struct {
	repos *repository.Repositories
	opts  Options
	log   zerolog.Logger
}

// newAttendanceService creates a new AttendanceService
func newAttendanceService(repos *repository.Repositories, opts Options, log zerolog.Logger) *attendanceService {
	return &attendanceService{
		repos: repos,
		opts:  opts,
		log:   log.With().Str("service", "attendance").Logger(),
	}
}

// Open makes sure the scope's table exists
func (s *attendanceService) Open(ctx context.Context, scope models.Scope) error {
	return s.repos.Attendance.EnsureInitialized(ctx, scope)
}

// List returns the scope's records in insertion order
func (s *attendanceService) List(ctx context.Context, scope models.Scope) ([]models.AttendanceRecord, error) {
	return s.repos.Attendance.ListAll(ctx, scope)
}

// Mark records attendance for name at the current time
func (s *attendanceService) Mark(ctx context.Context, scope models.Scope, name string, status models.Status) (*models.AttendanceRecord, error) {
	return s.MarkAt(ctx, scope, name, status, s.opts.Clock())
}

// MarkAt records attendance for name stamped with now in the configured zone
func (s *attendanceService) MarkAt(ctx context.Context, scope models.Scope, name string, status models.Status, now time.Time) (*models.AttendanceRecord, error) {
	name = strings.TrimSpace(name)
	if name == "" || status == "" {
		return nil, fmt.Errorf("%w: please fill all fields", models.ErrValidation)
	}
	if !models.ValidStatuses[status] {
		return nil, fmt.Errorf("%w: status must be one of: Present, Absent", models.ErrValidation)
	}

	record := models.NewRecord(name, status, now.In(s.opts.Location))

	var err error
	if s.opts.Dedup {
		err = s.repos.Attendance.AppendUnique(ctx, scope, record)
	} else {
		err = s.repos.Attendance.Append(ctx, scope, record)
	}
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("scope", scope.String()).
		Str("date", record.Date).
		Str("status", string(record.Status)).
		Msg("Attendance marked")

	return &record, nil
}

// Delete removes one record matching all four fields
func (s *attendanceService) Delete(ctx context.Context, scope models.Scope, record models.AttendanceRecord) (bool, error) {
	if record.Name == "" || record.Status == "" {
		return false, fmt.Errorf("%w: select a record to delete", models.ErrValidation)
	}

	deleted, err := s.repos.Attendance.Delete(ctx, scope, record)
	if err != nil {
		return false, err
	}

	s.log.Info().
		Str("scope", scope.String()).
		Bool("deleted", deleted).
		Msg("Attendance delete requested")

	return deleted, nil
}

// Clear removes every record of the scope
func (s *attendanceService) Clear(ctx context.Context, scope models.Scope) error {
	if err := s.repos.Attendance.Clear(ctx, scope); err != nil {
		return err
	}
	s.log.Info().Str("scope", scope.String()).Msg("Attendance cleared")
	return nil
}

// Summary counts the scope's records by status and for today
func (s *attendanceService) Summary(ctx context.Context, scope models.Scope) (*models.Summary, error) {
	records, err := s.repos.Attendance.ListAll(ctx, scope)
	if err != nil {
		return nil, err
	}

	today := s.opts.Clock().In(s.opts.Location).Format(models.DateLayout)
	sum := &models.Summary{Scope: scope, Total: len(records)}
	for _, r := range records {
		switch r.Status {
		case models.StatusPresent:
			sum.Present++
		case models.StatusAbsent:
			sum.Absent++
		}
		if r.Date == today {
			sum.Today++
		}
	}
	return sum, nil
}
