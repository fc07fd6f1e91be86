package service_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/attendance-tracker-api/internal/mocks"
	"github.com/attendance-tracker-api/internal/models"
	"github.com/attendance-tracker-api/internal/repository"
	"github.com/attendance-tracker-api/internal/service"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type testHarness struct {
	services *service.Services
	store    *mocks.MockAttendanceStore
	now      *time.Time
}

func newTestHarness(t *testing.T, dedup bool) *testHarness {
	t.Helper()

	store := mocks.NewMockAttendanceStore()
	now := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
	services := service.NewServices(
		&repository.Repositories{Attendance: store},
		service.Options{
			Dedup:    dedup,
			Location: time.UTC,
			Clock:    func() time.Time { return now },
		},
		zerolog.Nop(),
	)
	return &testHarness{services: services, store: store, now: &now}
}

func TestMark_FirstRecord(t *testing.T) {
	h := newTestHarness(t, true)
	ctx := context.Background()

	rec, err := h.services.Attendance.Mark(ctx, models.GlobalScope, "Asha", models.StatusPresent)
	require.NoError(t, err)

	want := models.AttendanceRecord{Name: "Asha", Date: "05-01-2024", Time: "09:00:00", Status: models.StatusPresent}
	assert.Equal(t, want, *rec)

	records, err := h.services.Attendance.List(ctx, models.GlobalScope)
	require.NoError(t, err)
	assert.Equal(t, []models.AttendanceRecord{want}, records)
}

func TestMark_DuplicateSameDay(t *testing.T) {
	h := newTestHarness(t, true)
	ctx := context.Background()

	_, err := h.services.Attendance.Mark(ctx, models.GlobalScope, "Asha", models.StatusPresent)
	require.NoError(t, err)

	*h.now = time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)
	_, err = h.services.Attendance.Mark(ctx, models.GlobalScope, "asha", models.StatusAbsent)
	assert.ErrorIs(t, err, models.ErrDuplicate)

	records, _ := h.services.Attendance.List(ctx, models.GlobalScope)
	assert.Len(t, records, 1)
	assert.Equal(t, 1, h.store.AppendCalls)
}

func TestMark_NextDayIsAllowed(t *testing.T) {
	h := newTestHarness(t, true)
	ctx := context.Background()

	_, err := h.services.Attendance.Mark(ctx, models.GlobalScope, "Asha", models.StatusPresent)
	require.NoError(t, err)

	*h.now = h.now.Add(24 * time.Hour)
	_, err = h.services.Attendance.Mark(ctx, models.GlobalScope, "Asha", models.StatusAbsent)
	require.NoError(t, err)

	records, _ := h.services.Attendance.List(ctx, models.GlobalScope)
	assert.Len(t, records, 2)
}

func TestMark_DedupDisabled(t *testing.T) {
	h := newTestHarness(t, false)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := h.services.Attendance.Mark(ctx, models.GlobalScope, "Asha", models.StatusPresent)
		require.NoError(t, err)
	}

	records, _ := h.services.Attendance.List(ctx, models.GlobalScope)
	assert.Len(t, records, 2)
}

func TestMark_Validation(t *testing.T) {
	h := newTestHarness(t, true)
	ctx := context.Background()

	tests := []struct {
		name   string
		person string
		status models.Status
	}{
		{"empty name", "", models.StatusPresent},
		{"blank name", "   ", models.StatusPresent},
		{"empty status", "Asha", ""},
		{"unknown status", "Asha", "Late"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.services.Attendance.Mark(ctx, models.GlobalScope, tt.person, tt.status)
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}
	assert.Equal(t, 0, h.store.AppendCalls)
}

func TestMark_TrimsName(t *testing.T) {
	h := newTestHarness(t, true)

	rec, err := h.services.Attendance.Mark(context.Background(), models.GlobalScope, "  Asha ", models.StatusPresent)
	require.NoError(t, err)
	assert.Equal(t, "Asha", rec.Name)
}

func TestMarkAt_UsesConfiguredLocation(t *testing.T) {
	store := mocks.NewMockAttendanceStore()
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	services := service.NewServices(
		&repository.Repositories{Attendance: store},
		service.Options{Dedup: true, Location: kolkata},
		zerolog.Nop(),
	)

	// 20:00 UTC is 01:30 the next day in Kolkata
	now := time.Date(2024, 1, 5, 20, 0, 0, 0, time.UTC)
	rec, err := services.Attendance.MarkAt(context.Background(), models.GlobalScope, "Asha", models.StatusPresent, now)
	require.NoError(t, err)
	assert.Equal(t, "06-01-2024", rec.Date)
	assert.Equal(t, "01:30:00", rec.Time)
}

func TestMark_StoreErrorIsReturned(t *testing.T) {
	h := newTestHarness(t, false)
	h.store.AppendError = errors.New("disk full")

	_, err := h.services.Attendance.Mark(context.Background(), models.GlobalScope, "Asha", models.StatusPresent)
	assert.EqualError(t, err, "disk full")
}

func TestDelete(t *testing.T) {
	h := newTestHarness(t, false)
	ctx := context.Background()

	first, err := h.services.Attendance.Mark(ctx, models.GlobalScope, "Asha", models.StatusPresent)
	require.NoError(t, err)
	second, err := h.services.Attendance.Mark(ctx, models.GlobalScope, "Vikram", models.StatusAbsent)
	require.NoError(t, err)

	deleted, err := h.services.Attendance.Delete(ctx, models.GlobalScope, *first)
	require.NoError(t, err)
	assert.True(t, deleted)

	records, _ := h.services.Attendance.List(ctx, models.GlobalScope)
	assert.Equal(t, []models.AttendanceRecord{*second}, records)

	deleted, err = h.services.Attendance.Delete(ctx, models.GlobalScope, *first)
	require.NoError(t, err)
	assert.False(t, deleted)

	records, _ = h.services.Attendance.List(ctx, models.GlobalScope)
	assert.Len(t, records, 1)
}

func TestDelete_RequiresSelection(t *testing.T) {
	h := newTestHarness(t, false)

	_, err := h.services.Attendance.Delete(context.Background(), models.GlobalScope, models.AttendanceRecord{})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestClear(t *testing.T) {
	h := newTestHarness(t, false)
	ctx := context.Background()

	for _, name := range []string{"Asha", "Vikram"} {
		_, err := h.services.Attendance.Mark(ctx, models.GlobalScope, name, models.StatusPresent)
		require.NoError(t, err)
	}
	require.NoError(t, h.services.Attendance.Clear(ctx, models.GlobalScope))

	records, err := h.services.Attendance.List(ctx, models.GlobalScope)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSummary(t *testing.T) {
	h := newTestHarness(t, false)
	ctx := context.Background()
	h.store.Tables[models.GlobalScope] = []models.AttendanceRecord{
		{Name: "Asha", Date: "04-01-2024", Time: "09:00:00", Status: models.StatusPresent},
		{Name: "Asha", Date: "05-01-2024", Time: "09:00:00", Status: models.StatusPresent},
		{Name: "Vikram", Date: "05-01-2024", Time: "09:02:00", Status: models.StatusAbsent},
	}

	sum, err := h.services.Attendance.Summary(ctx, models.GlobalScope)
	require.NoError(t, err)
	assert.Equal(t, &models.Summary{Scope: models.GlobalScope, Total: 3, Present: 2, Absent: 1, Today: 2}, sum)
}

func TestExportCSV(t *testing.T) {
	h := newTestHarness(t, true)
	ctx := context.Background()

	_, err := h.services.Export.ExportCSV(ctx, models.GlobalScope)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = h.services.Attendance.Mark(ctx, models.GlobalScope, "Asha", models.StatusPresent)
	require.NoError(t, err)

	data, err := h.services.Export.ExportCSV(ctx, models.GlobalScope)
	require.NoError(t, err)
	assert.Equal(t, "Name,Date,Time,Status\nAsha,05-01-2024,09:00:00,Present\n", string(data))
}

func TestExportXLSX(t *testing.T) {
	h := newTestHarness(t, true)
	ctx := context.Background()

	var buf bytes.Buffer
	err := h.services.Export.ExportXLSX(ctx, models.GlobalScope, &buf)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = h.services.Attendance.Mark(ctx, models.GlobalScope, "Asha", models.StatusPresent)
	require.NoError(t, err)

	buf.Reset()
	require.NoError(t, h.services.Export.ExportXLSX(ctx, models.GlobalScope, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(service.XLSXSheet)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Name", "Date", "Time", "Status"},
		{"Asha", "05-01-2024", "09:00:00", "Present"},
	}, rows)
}
