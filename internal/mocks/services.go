package mocks

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/attendance-tracker-api/internal/models"
	"github.com/attendance-tracker-api/internal/service"
)

// MockAttendanceService is a mock implementation of AttendanceService
type MockAttendanceService struct {
	Records    map[models.Scope][]models.AttendanceRecord
	MarkErr    error
	Now        time.Time
	Opened     []models.Scope
	ClearCalls []models.Scope
}

// Verify interface compliance
var _ service.AttendanceService = (*MockAttendanceService)(nil)

func NewMockAttendanceService() *MockAttendanceService {
	return &MockAttendanceService{
		Records: make(map[models.Scope][]models.AttendanceRecord),
		Now:     time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC),
	}
}

func (m *MockAttendanceService) Open(ctx context.Context, scope models.Scope) error {
	m.Opened = append(m.Opened, scope)
	if _, ok := m.Records[scope]; !ok {
		m.Records[scope] = []models.AttendanceRecord{}
	}
	return nil
}

func (m *MockAttendanceService) List(ctx context.Context, scope models.Scope) ([]models.AttendanceRecord, error) {
	return m.Records[scope], nil
}

func (m *MockAttendanceService) Mark(ctx context.Context, scope models.Scope, name string, status models.Status) (*models.AttendanceRecord, error) {
	return m.MarkAt(ctx, scope, name, status, m.Now)
}

func (m *MockAttendanceService) MarkAt(ctx context.Context, scope models.Scope, name string, status models.Status, now time.Time) (*models.AttendanceRecord, error) {
	if m.MarkErr != nil {
		return nil, m.MarkErr
	}
	if name == "" || status == "" {
		return nil, fmt.Errorf("%w: please fill all fields", models.ErrValidation)
	}
	rec := models.NewRecord(name, status, now)
	m.Records[scope] = append(m.Records[scope], rec)
	return &rec, nil
}

func (m *MockAttendanceService) Delete(ctx context.Context, scope models.Scope, record models.AttendanceRecord) (bool, error) {
	rows := m.Records[scope]
	for i, r := range rows {
		if r == record {
			m.Records[scope] = append(rows[:i:i], rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *MockAttendanceService) Clear(ctx context.Context, scope models.Scope) error {
	m.ClearCalls = append(m.ClearCalls, scope)
	m.Records[scope] = []models.AttendanceRecord{}
	return nil
}

func (m *MockAttendanceService) Summary(ctx context.Context, scope models.Scope) (*models.Summary, error) {
	sum := &models.Summary{Scope: scope}
	for _, r := range m.Records[scope] {
		sum.Total++
		if r.Status == models.StatusPresent {
			sum.Present++
		} else {
			sum.Absent++
		}
	}
	return sum, nil
}

// MockExportService is a mock implementation of ExportService
type MockExportService struct {
	Files map[models.Scope][]byte
}

// Verify interface compliance
var _ service.ExportService = (*MockExportService)(nil)

func NewMockExportService() *MockExportService {
	return &MockExportService{
		Files: make(map[models.Scope][]byte),
	}
}

func (m *MockExportService) ExportCSV(ctx context.Context, scope models.Scope) ([]byte, error) {
	data, ok := m.Files[scope]
	if !ok {
		return nil, fmt.Errorf("%w: scope %s", models.ErrNotFound, scope)
	}
	return data, nil
}

func (m *MockExportService) ExportXLSX(ctx context.Context, scope models.Scope, w io.Writer) error {
	data, ok := m.Files[scope]
	if !ok {
		return fmt.Errorf("%w: scope %s", models.ErrNotFound, scope)
	}
	_, err := w.Write(data)
	return err
}
