package mocks

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/attendance-tracker-api/internal/models"
	"github.com/attendance-tracker-api/internal/repository"
)

// MockAttendanceStore is an in-memory implementation of AttendanceStore
type MockAttendanceStore struct {
	Tables      map[models.Scope][]models.AttendanceRecord
	AppendError error
	ListError   error
	AppendCalls int
}

// Verify interface compliance
var _ repository.AttendanceStore = (*MockAttendanceStore)(nil)

func NewMockAttendanceStore() *MockAttendanceStore {
	return &MockAttendanceStore{
		Tables: make(map[models.Scope][]models.AttendanceRecord),
	}
}

func (m *MockAttendanceStore) EnsureInitialized(ctx context.Context, scope models.Scope) error {
	if _, ok := m.Tables[scope]; !ok {
		m.Tables[scope] = []models.AttendanceRecord{}
	}
	return nil
}

func (m *MockAttendanceStore) Exists(ctx context.Context, scope models.Scope) (bool, error) {
	_, ok := m.Tables[scope]
	return ok, nil
}

func (m *MockAttendanceStore) ListAll(ctx context.Context, scope models.Scope) ([]models.AttendanceRecord, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	return slices.Clone(m.Tables[scope]), nil
}

func (m *MockAttendanceStore) IsDuplicateToday(ctx context.Context, scope models.Scope, name, date string) (bool, error) {
	for _, r := range m.Tables[scope] {
		if r.Date == date && strings.ToLower(r.Name) == strings.ToLower(name) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockAttendanceStore) Append(ctx context.Context, scope models.Scope, record models.AttendanceRecord) error {
	m.AppendCalls++
	if m.AppendError != nil {
		return m.AppendError
	}
	m.Tables[scope] = append(m.Tables[scope], record)
	return nil
}

func (m *MockAttendanceStore) AppendUnique(ctx context.Context, scope models.Scope, record models.AttendanceRecord) error {
	dup, _ := m.IsDuplicateToday(ctx, scope, record.Name, record.Date)
	if dup {
		return fmt.Errorf("%w: %s on %s", models.ErrDuplicate, record.Name, record.Date)
	}
	return m.Append(ctx, scope, record)
}

func (m *MockAttendanceStore) Delete(ctx context.Context, scope models.Scope, record models.AttendanceRecord) (bool, error) {
	rows := m.Tables[scope]
	idx := slices.Index(rows, record)
	if idx < 0 {
		return false, nil
	}
	m.Tables[scope] = slices.Delete(rows, idx, idx+1)
	return true, nil
}

func (m *MockAttendanceStore) Clear(ctx context.Context, scope models.Scope) error {
	m.Tables[scope] = []models.AttendanceRecord{}
	return nil
}

func (m *MockAttendanceStore) ExportRaw(ctx context.Context, scope models.Scope) ([]byte, error) {
	rows, ok := m.Tables[scope]
	if !ok {
		return nil, fmt.Errorf("%w: scope %s", models.ErrNotFound, scope)
	}
	var b strings.Builder
	b.WriteString(strings.Join(models.Header, ",") + "\n")
	for _, r := range rows {
		b.WriteString(strings.Join(r.Row(), ",") + "\n")
	}
	return []byte(b.String()), nil
}

// MockDatabase stands in for the Postgres connection in health checks
type MockDatabase struct {
	Err   error
	Calls int
}

func (m *MockDatabase) HealthCheck(ctx context.Context) error {
	m.Calls++
	return m.Err
}
