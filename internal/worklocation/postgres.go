package worklocation

import (
	"context"
	"database/sql"
)

// Repository persists locations in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the location table when missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS work_locations (
			id         TEXT PRIMARY KEY,
			student_id TEXT NOT NULL,
			name       TEXT NOT NULL,
			latitude   DOUBLE PRECISION NOT NULL,
			longitude  DOUBLE PRECISION NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS work_locations_student_idx
			ON work_locations (student_id)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// ByStudent returns rows matching the student id exactly.
func (r *Repository) ByStudent(ctx context.Context, studentID string) ([]Location, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, student_id, name, latitude, longitude
		FROM work_locations WHERE student_id = $1
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Location
	for rows.Next() {
		var loc Location
		if err := rows.Scan(&loc.ID, &loc.StudentID, &loc.Name, &loc.Latitude, &loc.Longitude); err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}

// Append adds one row.
func (r *Repository) Append(ctx context.Context, loc Location) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO work_locations (id, student_id, name, latitude, longitude)
		VALUES ($1,$2,$3,$4,$5)
	`, loc.ID, loc.StudentID, loc.Name, loc.Latitude, loc.Longitude)
	return err
}

// Delete removes the row with the given id, ErrNotFound when absent.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM work_locations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
