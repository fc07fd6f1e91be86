package repository

import (
	"context"
	"fmt"

	"github.com/attendance-tracker-api/internal/database"
	"github.com/attendance-tracker-api/internal/models"
)

// postgresStore keeps every scope's table in attendance_records, ordered by id
type postgresStore struct {
	db *database.DB
}

// NewPostgresStore creates a PostgreSQL backed AttendanceStore
func NewPostgresStore(db *database.DB) AttendanceStore {
	return &postgresStore{db: db}
}

// EnsureInitialized registers the scope's table if it is not known yet
func (r *postgresStore) EnsureInitialized(ctx context.Context, scope models.Scope) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO attendance_tables (scope) VALUES ($1) ON CONFLICT (scope) DO NOTHING`, scope)
	if err != nil {
		return fmt.Errorf("failed to initialize table: %w", err)
	}
	return nil
}

// Exists checks if the scope's table was ever initialized
func (r *postgresStore) Exists(ctx context.Context, scope models.Scope) (bool, error) {
	if err := checkScope(scope); err != nil {
		return false, err
	}
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM attendance_tables WHERE scope = $1)", scope).Scan(&exists)
	return exists, err
}

// ListAll retrieves all records of a scope in insertion order
func (r *postgresStore) ListAll(ctx context.Context, scope models.Scope) ([]models.AttendanceRecord, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}
	query := `SELECT name, date, time, status FROM attendance_records WHERE scope = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, scope)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]models.AttendanceRecord, 0)
	for rows.Next() {
		var rec models.AttendanceRecord
		if err := rows.Scan(&rec.Name, &rec.Date, &rec.Time, &rec.Status); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// IsDuplicateToday checks for a record with the same lower-cased name on date
func (r *postgresStore) IsDuplicateToday(ctx context.Context, scope models.Scope, name, date string) (bool, error) {
	if err := checkScope(scope); err != nil {
		return false, err
	}
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM attendance_records
			WHERE scope = $1 AND LOWER(name) = LOWER($2) AND date = $3
		)`, scope, name, date).Scan(&exists)
	return exists, err
}

// Append inserts a record, registering the table first when needed
func (r *postgresStore) Append(ctx context.Context, scope models.Scope, record models.AttendanceRecord) error {
	if err := checkScope(scope); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO attendance_tables (scope) VALUES ($1) ON CONFLICT (scope) DO NOTHING`, scope); err != nil {
		return fmt.Errorf("failed to initialize table: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO attendance_records (scope, name, date, time, status)
		VALUES ($1, $2, $3, $4, $5)
	`, scope, record.Name, record.Date, record.Time, record.Status); err != nil {
		return fmt.Errorf("failed to append record: %w", err)
	}

	return tx.Commit()
}

// AppendUnique inserts record unless its name already has a row on that date.
// A transaction-scoped advisory lock on the scope serializes concurrent marks.
func (r *postgresStore) AppendUnique(ctx context.Context, scope models.Scope, record models.AttendanceRecord) error {
	if err := checkScope(scope); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, scope); err != nil {
		return fmt.Errorf("failed to lock table: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO attendance_tables (scope) VALUES ($1) ON CONFLICT (scope) DO NOTHING`, scope); err != nil {
		return fmt.Errorf("failed to initialize table: %w", err)
	}

	var dup bool
	if err := tx.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM attendance_records
			WHERE scope = $1 AND LOWER(name) = LOWER($2) AND date = $3
		)`, scope, record.Name, record.Date).Scan(&dup); err != nil {
		return fmt.Errorf("failed to check duplicates: %w", err)
	}
	if dup {
		return fmt.Errorf("%w: %s on %s", models.ErrDuplicate, record.Name, record.Date)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO attendance_records (scope, name, date, time, status)
		VALUES ($1, $2, $3, $4, $5)
	`, scope, record.Name, record.Date, record.Time, record.Status); err != nil {
		return fmt.Errorf("failed to append record: %w", err)
	}

	return tx.Commit()
}

// Delete removes the oldest record matching all four fields
func (r *postgresStore) Delete(ctx context.Context, scope models.Scope, record models.AttendanceRecord) (bool, error) {
	if err := checkScope(scope); err != nil {
		return false, err
	}
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM attendance_records WHERE id = (
			SELECT id FROM attendance_records
			WHERE scope = $1 AND name = $2 AND date = $3 AND time = $4 AND status = $5
			ORDER BY id LIMIT 1
		)`, scope, record.Name, record.Date, record.Time, record.Status)
	if err != nil {
		return false, fmt.Errorf("failed to delete record: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Clear removes every record of the scope and keeps the table registered
func (r *postgresStore) Clear(ctx context.Context, scope models.Scope) error {
	if err := checkScope(scope); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO attendance_tables (scope) VALUES ($1) ON CONFLICT (scope) DO NOTHING`, scope); err != nil {
		return fmt.Errorf("failed to initialize table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM attendance_records WHERE scope = $1`, scope); err != nil {
		return fmt.Errorf("failed to clear table: %w", err)
	}

	return tx.Commit()
}

// ExportRaw renders the scope's table in the same CSV layout the file backend persists
func (r *postgresStore) ExportRaw(ctx context.Context, scope models.Scope) ([]byte, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}
	exists, err := r.Exists(ctx, scope)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: scope %s", models.ErrNotFound, scope)
	}

	records, err := r.ListAll(ctx, scope)
	if err != nil {
		return nil, err
	}
	return encodeTable(records)
}
