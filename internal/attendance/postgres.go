package attendance

import (
	"context"
	"database/sql"
	"errors"
)

// Repository persists the ledger and roster in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// EnsureSchema creates the ledger and roster tables when missing. One
// statement per exec; the pgx extended protocol rejects batched DDL.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS attendance_records (
			seq               BIGSERIAL PRIMARY KEY,
			id                TEXT UNIQUE NOT NULL,
			created_at        TIMESTAMPTZ NOT NULL,
			student_id        TEXT NOT NULL,
			student_name      TEXT NOT NULL DEFAULT '',
			marked_date       TIMESTAMPTZ NOT NULL,
			latitude          DOUBLE PRECISION NOT NULL DEFAULT 0,
			longitude         DOUBLE PRECISION NOT NULL DEFAULT 0,
			weather           TEXT NOT NULL DEFAULT '',
			signature_payload TEXT NOT NULL DEFAULT '',
			photo_payload     TEXT NOT NULL DEFAULT '',
			status            TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS attendance_records_student_idx
			ON attendance_records (student_id)`,
		`CREATE TABLE IF NOT EXISTS roster (
			student_id    TEXT PRIMARY KEY,
			name          TEXT NOT NULL DEFAULT '',
			email         TEXT NOT NULL DEFAULT '',
			present_count INTEGER NOT NULL DEFAULT 0,
			absent_count  INTEGER NOT NULL DEFAULT 0,
			percentage    TEXT NOT NULL DEFAULT '0%'
		)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// AppendRecord writes a new ledger row.
func (r *Repository) AppendRecord(ctx context.Context, rec Record) (Record, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_records
			(id, created_at, student_id, student_name, marked_date,
			 latitude, longitude, weather, signature_payload, photo_payload, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, rec.ID, rec.Timestamp, rec.StudentID, rec.StudentName, rec.Date,
		rec.Location.Lat, rec.Location.Lng, rec.Weather, rec.SignaturePayload, rec.PhotoPayload, rec.Status)
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

// RecordsByStudent returns the student's rows in append order.
func (r *Repository) RecordsByStudent(ctx context.Context, studentID string) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, created_at, student_id, student_name, marked_date,
		       latitude, longitude, weather, signature_payload, photo_payload, status
		FROM attendance_records
		WHERE student_id = $1
		ORDER BY seq
	`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &rec.StudentID, &rec.StudentName, &rec.Date,
			&rec.Location.Lat, &rec.Location.Lng, &rec.Weather, &rec.SignaturePayload, &rec.PhotoPayload, &rec.Status); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetRecord returns a single row by id, nil when absent.
func (r *Repository) GetRecord(ctx context.Context, id string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, created_at, student_id, student_name, marked_date,
		       latitude, longitude, weather, signature_payload, photo_payload, status
		FROM attendance_records WHERE id = $1
	`, id)
	var rec Record
	if err := row.Scan(&rec.ID, &rec.Timestamp, &rec.StudentID, &rec.StudentName, &rec.Date,
		&rec.Location.Lat, &rec.Location.Lng, &rec.Weather, &rec.SignaturePayload, &rec.PhotoPayload, &rec.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// SetRecordWeather overwrites the weather string after enrichment.
func (r *Repository) SetRecordWeather(ctx context.Context, id, weather string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE attendance_records SET weather = $2 WHERE id = $1
	`, id, weather)
	return err
}

// RosterEntry returns a roster row by exact id, nil when the student is not
// seeded.
func (r *Repository) RosterEntry(ctx context.Context, studentID string) (*RosterEntry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT student_id, name, email, present_count, absent_count, percentage
		FROM roster WHERE student_id = $1
	`, studentID)
	var entry RosterEntry
	if err := row.Scan(&entry.StudentID, &entry.Name, &entry.Email,
		&entry.PresentCount, &entry.AbsentCount, &entry.Percentage); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// UpdateRosterCounts writes the counter split of an existing entry.
func (r *Repository) UpdateRosterCounts(ctx context.Context, studentID string, present, absent int, percentage string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE roster
		SET present_count = $2, absent_count = $3, percentage = $4
		WHERE student_id = $1
	`, studentID, present, absent, percentage)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrStudentNotFound
	}
	return nil
}

// UpsertRosterEntry creates or replaces a roster row.
func (r *Repository) UpsertRosterEntry(ctx context.Context, entry RosterEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO roster (student_id, name, email, present_count, absent_count, percentage)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (student_id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			present_count = EXCLUDED.present_count,
			absent_count = EXCLUDED.absent_count,
			percentage = EXCLUDED.percentage
	`, entry.StudentID, entry.Name, entry.Email, entry.PresentCount, entry.AbsentCount, entry.Percentage)
	return err
}
