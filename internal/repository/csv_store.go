package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/attendance-tracker-api/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// csvStore keeps each scope's table in {dir}/{scope}.csv.
// Every operation is a full synchronous read or rewrite of that file;
// mu serializes them within the process.
type csvStore struct {
	dir string
	mu  sync.Mutex
	log zerolog.Logger
}

// NewCSVStore creates a CSV-file backed AttendanceStore rooted at dir
func NewCSVStore(dir string, log zerolog.Logger) AttendanceStore {
	return &csvStore{
		dir: dir,
		log: log.With().Str("component", "csv_store").Logger(),
	}
}

// Path returns the file backing scope
func (s *csvStore) Path(scope models.Scope) string {
	return filepath.Join(s.dir, string(scope)+".csv")
}

// EnsureInitialized creates the table with its header if it does not exist
func (s *csvStore) EnsureInitialized(ctx context.Context, scope models.Scope) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ensureLocked(scope)
}

func (s *csvStore) ensureLocked(scope models.Scope) error {
	path := s.Path(scope)
	info, err := os.Stat(path)
	if err == nil && info.Size() > 0 {
		return nil
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	s.log.Debug().Str("scope", scope.String()).Str("path", path).Msg("Creating attendance table")
	return s.writeLocked(scope, nil)
}

// Exists reports whether the table file is present
func (s *csvStore) Exists(ctx context.Context, scope models.Scope) (bool, error) {
	if err := checkScope(scope); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.Path(scope))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat table: %w", err)
	}
	// A zero-byte file never got its header
	return info.Size() > 0, nil
}

// ListAll returns every well-formed record in insertion order.
// A missing table lists as empty.
func (s *csvStore) ListAll(ctx context.Context, scope models.Scope) ([]models.AttendanceRecord, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.listLocked(scope)
}

func (s *csvStore) listLocked(scope models.Scope) ([]models.AttendanceRecord, error) {
	rows, err := s.readLocked(scope)
	if err != nil {
		return nil, err
	}

	records := make([]models.AttendanceRecord, 0, len(rows))
	for _, row := range rows {
		if record, ok := models.RecordFromRow(row); ok {
			records = append(records, record)
		}
	}
	return records, nil
}

// IsDuplicateToday reports whether name already has a record on date
func (s *csvStore) IsDuplicateToday(ctx context.Context, scope models.Scope, name, date string) (bool, error) {
	records, err := s.ListAll(ctx, scope)
	if err != nil {
		return false, err
	}
	return hasDuplicate(records, name, date), nil
}

// Append adds record as the last row, creating the table if needed
func (s *csvStore) Append(ctx context.Context, scope models.Scope, record models.AttendanceRecord) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.appendLocked(scope, record)
}

// AppendUnique appends record unless name already has a row on its date.
// The check and the write happen under one lock.
func (s *csvStore) AppendUnique(ctx context.Context, scope models.Scope, record models.AttendanceRecord) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.listLocked(scope)
	if err != nil {
		return err
	}
	if hasDuplicate(records, record.Name, record.Date) {
		return fmt.Errorf("%w: %s on %s", models.ErrDuplicate, record.Name, record.Date)
	}

	return s.appendLocked(scope, record)
}

func (s *csvStore) appendLocked(scope models.Scope, record models.AttendanceRecord) error {
	if err := s.ensureLocked(scope); err != nil {
		return err
	}

	f, err := os.OpenFile(s.Path(scope), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open table: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(record.Row()); err != nil {
		f.Close()
		return fmt.Errorf("failed to append record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("failed to append record: %w", err)
	}
	return f.Close()
}

// Delete removes the first row equal to record on all four fields.
// Rows that do not parse as records are carried over untouched.
func (s *csvStore) Delete(ctx context.Context, scope models.Scope, record models.AttendanceRecord) (bool, error) {
	if err := checkScope(scope); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.readLocked(scope)
	if err != nil {
		return false, err
	}

	target := record.Row()
	idx := slices.IndexFunc(rows, func(row []string) bool {
		return slices.Equal(row, target)
	})
	if idx < 0 {
		return false, nil
	}

	rows = slices.Delete(rows, idx, idx+1)
	if err := s.writeLocked(scope, rows); err != nil {
		return false, err
	}
	return true, nil
}

// Clear rewrites the table to its header only
func (s *csvStore) Clear(ctx context.Context, scope models.Scope) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writeLocked(scope, nil)
}

// ExportRaw returns the table file byte for byte
func (s *csvStore) ExportRaw(ctx context.Context, scope models.Scope) ([]byte, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.Path(scope))
	if errors.Is(err, fs.ErrNotExist) || (err == nil && len(data) == 0) {
		return nil, fmt.Errorf("%w: scope %s", models.ErrNotFound, scope)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read table: %w", err)
	}
	return data, nil
}

// readLocked returns all rows after the header, malformed ones included
func (s *csvStore) readLocked(scope models.Scope) ([][]string, error) {
	f, err := os.Open(s.Path(scope))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open table: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	header := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read table: %w", err)
		}
		if header {
			header = false
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// writeLocked replaces the table with header plus rows.
// The new content goes to a sibling temp file that is renamed into place.
func (s *csvStore) writeLocked(scope models.Scope, rows [][]string) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	path := s.Path(scope)
	tmp := fmt.Sprintf("%s.%s.tmp", path, uuid.New().String()[:8])

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	w := csv.NewWriter(f)
	w.Write(models.Header)
	w.WriteAll(rows)
	if err := w.Error(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write table: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write table: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace table: %w", err)
	}
	return nil
}
