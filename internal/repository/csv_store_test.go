package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/attendance-tracker-api/internal/models"
	"github.com/attendance-tracker-api/internal/repository"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (repository.AttendanceStore, string) {
	t.Helper()
	dir := t.TempDir()
	return repository.NewCSVStore(dir, zerolog.Nop()), dir
}

func record(name, date, tm string, status models.Status) models.AttendanceRecord {
	return models.AttendanceRecord{Name: name, Date: date, Time: tm, Status: status}
}

func TestCSVStore_EnsureInitialized_Idempotent(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()
	path := filepath.Join(dir, "attendance.csv")

	require.NoError(t, store.EnsureInitialized(ctx, models.GlobalScope))
	first, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Name,Date,Time,Status\n", string(first))

	require.NoError(t, store.EnsureInitialized(ctx, models.GlobalScope))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCSVStore_EnsureInitialized_KeepsExistingRows(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, models.GlobalScope, record("Asha", "05-01-2024", "09:00:00", models.StatusPresent)))
	require.NoError(t, store.EnsureInitialized(ctx, models.GlobalScope))

	records, err := store.ListAll(ctx, models.GlobalScope)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestCSVStore_ListAll_MissingTable(t *testing.T) {
	store, dir := newTestStore(t)

	records, err := store.ListAll(context.Background(), "nobody_example_com")
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = os.Stat(filepath.Join(dir, "nobody_example_com.csv"))
	assert.True(t, os.IsNotExist(err), "listing must not create the table")
}

func TestCSVStore_ListAll_SkipsMalformedRows(t *testing.T) {
	store, dir := newTestStore(t)
	content := "Name,Date,Time,Status\n" +
		"Asha,05-01-2024,09:00:00,Present\n" +
		"broken,row\n" +
		"\"Rao, Vikram\",05-01-2024,09:05:00,Absent\n" +
		"too,many,fields,in,row\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "attendance.csv"), []byte(content), 0o644))

	records, err := store.ListAll(context.Background(), models.GlobalScope)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, record("Asha", "05-01-2024", "09:00:00", models.StatusPresent), records[0])
	assert.Equal(t, "Rao, Vikram", records[1].Name)
}

func TestCSVStore_Append_PreservesOrderAndQuotes(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	first := record("Asha", "05-01-2024", "09:00:00", models.StatusPresent)
	second := record("Rao, Vikram", "05-01-2024", "09:01:00", models.StatusAbsent)
	require.NoError(t, store.Append(ctx, models.GlobalScope, first))
	require.NoError(t, store.Append(ctx, models.GlobalScope, second))

	records, err := store.ListAll(ctx, models.GlobalScope)
	require.NoError(t, err)
	assert.Equal(t, []models.AttendanceRecord{first, second}, records)

	raw, err := os.ReadFile(filepath.Join(dir, "attendance.csv"))
	require.NoError(t, err)
	assert.Equal(t,
		"Name,Date,Time,Status\n"+
			"Asha,05-01-2024,09:00:00,Present\n"+
			"\"Rao, Vikram\",05-01-2024,09:01:00,Absent\n",
		string(raw))
}

func TestCSVStore_IsDuplicateToday(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, models.GlobalScope, record("Asha", "05-01-2024", "09:00:00", models.StatusPresent)))

	tests := []struct {
		name string
		date string
		want bool
	}{
		{"Asha", "05-01-2024", true},
		{"ASHA", "05-01-2024", true},
		{"asha", "06-01-2024", false},
		{"Asha K", "05-01-2024", false},
	}
	for _, tt := range tests {
		got, err := store.IsDuplicateToday(ctx, models.GlobalScope, tt.name, tt.date)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "name=%q date=%q", tt.name, tt.date)
	}
}

func TestCSVStore_Delete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	first := record("Asha", "05-01-2024", "09:00:00", models.StatusPresent)
	second := record("Vikram", "05-01-2024", "09:01:00", models.StatusAbsent)
	require.NoError(t, store.Append(ctx, models.GlobalScope, first))
	require.NoError(t, store.Append(ctx, models.GlobalScope, second))

	deleted, err := store.Delete(ctx, models.GlobalScope, first)
	require.NoError(t, err)
	assert.True(t, deleted)

	records, err := store.ListAll(ctx, models.GlobalScope)
	require.NoError(t, err)
	assert.Equal(t, []models.AttendanceRecord{second}, records)
}

func TestCSVStore_Delete_OnlyFirstMatch(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	dup := record("Asha", "05-01-2024", "09:00:00", models.StatusPresent)
	require.NoError(t, store.Append(ctx, models.GlobalScope, dup))
	require.NoError(t, store.Append(ctx, models.GlobalScope, dup))

	deleted, err := store.Delete(ctx, models.GlobalScope, dup)
	require.NoError(t, err)
	assert.True(t, deleted)

	records, err := store.ListAll(ctx, models.GlobalScope)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestCSVStore_Delete_NonMemberIsNoop(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()
	path := filepath.Join(dir, "attendance.csv")

	require.NoError(t, store.Append(ctx, models.GlobalScope, record("Asha", "05-01-2024", "09:00:00", models.StatusPresent)))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	// Matching is case-sensitive on every field
	deleted, err := store.Delete(ctx, models.GlobalScope, record("asha", "05-01-2024", "09:00:00", models.StatusPresent))
	require.NoError(t, err)
	assert.False(t, deleted)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestCSVStore_Delete_KeepsMalformedRows(t *testing.T) {
	store, dir := newTestStore(t)
	path := filepath.Join(dir, "attendance.csv")
	content := "Name,Date,Time,Status\n" +
		"odd,row\n" +
		"Asha,05-01-2024,09:00:00,Present\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	deleted, err := store.Delete(context.Background(), models.GlobalScope, record("Asha", "05-01-2024", "09:00:00", models.StatusPresent))
	require.NoError(t, err)
	assert.True(t, deleted)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Name,Date,Time,Status\nodd,row\n", string(raw))
}

func TestCSVStore_Clear(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"Asha", "Vikram", "Meera"} {
		require.NoError(t, store.Append(ctx, models.GlobalScope, record(name, "05-01-2024", "09:00:00", models.StatusPresent)))
	}
	require.NoError(t, store.Clear(ctx, models.GlobalScope))

	records, err := store.ListAll(ctx, models.GlobalScope)
	require.NoError(t, err)
	assert.Empty(t, records)

	raw, err := os.ReadFile(filepath.Join(dir, "attendance.csv"))
	require.NoError(t, err)
	assert.Equal(t, "Name,Date,Time,Status\n", string(raw))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "rewrite must not leave temp files behind")
}

func TestCSVStore_ExportRaw(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.ExportRaw(ctx, models.GlobalScope)
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, store.Append(ctx, models.GlobalScope, record("Asha", "05-01-2024", "09:00:00", models.StatusPresent)))
	data, err := store.ExportRaw(ctx, models.GlobalScope)
	require.NoError(t, err)
	assert.Equal(t, "Name,Date,Time,Status\nAsha,05-01-2024,09:00:00,Present\n", string(data))
}

func TestCSVStore_ScopesAreIndependent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "asha_example_com", record("Asha", "05-01-2024", "09:00:00", models.StatusPresent)))

	exists, err := store.Exists(ctx, "ravi_example_com")
	require.NoError(t, err)
	assert.False(t, exists)

	records, err := store.ListAll(ctx, "ravi_example_com")
	require.NoError(t, err)
	assert.Empty(t, records)

	records, err = store.ListAll(ctx, "asha_example_com")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestCSVStore_RejectsUnsafeScope(t *testing.T) {
	store, _ := newTestStore(t)

	err := store.EnsureInitialized(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestCSVStore_EmptyFileGetsHeader(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()
	path := filepath.Join(dir, "attendance.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	exists, err := store.Exists(ctx, models.GlobalScope)
	require.NoError(t, err)
	assert.False(t, exists)
	_, err = store.ExportRaw(ctx, models.GlobalScope)
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, store.EnsureInitialized(ctx, models.GlobalScope))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Name,Date,Time,Status\n", string(raw))

	asha := record("Asha", "05-01-2024", "09:00:00", models.StatusPresent)
	require.NoError(t, store.Append(ctx, models.GlobalScope, asha))

	records, err := store.ListAll(ctx, models.GlobalScope)
	require.NoError(t, err)
	assert.Equal(t, []models.AttendanceRecord{asha}, records)
}

func TestCSVStore_AppendToEmptyFileKeepsRecord(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "attendance.csv"), nil, 0o644))

	asha := record("Asha", "05-01-2024", "09:00:00", models.StatusPresent)
	require.NoError(t, store.AppendUnique(ctx, models.GlobalScope, asha))

	records, err := store.ListAll(ctx, models.GlobalScope)
	require.NoError(t, err)
	assert.Equal(t, []models.AttendanceRecord{asha}, records)
}

func TestCSVStore_AppendUnique(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendUnique(ctx, models.GlobalScope, record("Asha", "05-01-2024", "09:00:00", models.StatusPresent)))

	err := store.AppendUnique(ctx, models.GlobalScope, record("ASHA", "05-01-2024", "10:00:00", models.StatusAbsent))
	assert.ErrorIs(t, err, models.ErrDuplicate)

	require.NoError(t, store.AppendUnique(ctx, models.GlobalScope, record("Asha", "06-01-2024", "09:00:00", models.StatusPresent)))

	records, err := store.ListAll(ctx, models.GlobalScope)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestCSVStore_AppendUnique_Concurrent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tm := fmt.Sprintf("09:00:%02d", i)
			errs <- store.AppendUnique(ctx, models.GlobalScope, record("Asha", "05-01-2024", tm, models.StatusPresent))
		}(i)
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, models.ErrDuplicate), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)

	records, err := store.ListAll(ctx, models.GlobalScope)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
