package attendance

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"classtrack/internal/metrics"
)

// MarkRequest carries one check-in submission.
type MarkRequest struct {
	StudentID        string
	StudentName      string
	Location         LatLng
	Weather          string
	SignaturePayload string
	PhotoPayload     string
}

// MarkResult is the outcome of a successful mark. RosterUpdated is false
// when the ledger row was written but the roster increment did not happen;
// RosterIssue says why.
type MarkResult struct {
	Record        Record `json:"record"`
	RosterUpdated bool   `json:"rosterUpdated"`
	RosterIssue   string `json:"rosterIssue,omitempty"`
}

// Service owns the ledger and roster rules: one check-in per student per
// calendar day, and an incremental roster counter that is never derived from
// the ledger.
type Service struct {
	store Store
	loc   *time.Location
	now   func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a service using loc for calendar-day bucketing.
func NewService(store Store, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		store: store,
		loc:   loc,
		now:   time.Now,
		locks: make(map[string]*sync.Mutex),
	}
}

// studentLock returns the mutex serializing writes for one student. The
// duplicate check and the append are not atomic in the store, so concurrent
// marks for the same student must not interleave between them.
func (s *Service) studentLock(studentID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[studentID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[studentID] = l
	}
	return l
}

// Mark appends a check-in unless one already exists for the student today.
// A missing or failing roster increment is logged and surfaced in the result
// but does not fail the mark; the ledger row stands either way.
func (s *Service) Mark(ctx context.Context, req MarkRequest) (MarkResult, error) {
	if req.StudentID == "" {
		return MarkResult{}, errors.New("student id required")
	}

	lock := s.studentLock(req.StudentID)
	lock.Lock()
	defer lock.Unlock()

	now := s.now()
	today := DayString(now, s.loc)

	existing, err := s.store.RecordsByStudent(ctx, req.StudentID)
	if err != nil {
		metrics.MarksTotal.WithLabelValues("error").Inc()
		return MarkResult{}, fmt.Errorf("scanning ledger: %w", err)
	}
	for _, rec := range existing {
		if rec.StudentID == req.StudentID && DayString(rec.Date, s.loc) == today {
			metrics.MarksTotal.WithLabelValues("duplicate").Inc()
			return MarkResult{}, ErrDuplicateMark
		}
	}

	weather := req.Weather
	if weather == "" {
		weather = WeatherUnknown
	}

	rec := Record{
		ID:               uuid.NewString(),
		Timestamp:        now,
		StudentID:        req.StudentID,
		StudentName:      req.StudentName,
		Date:             now,
		Location:         req.Location,
		Weather:          weather,
		SignaturePayload: req.SignaturePayload,
		PhotoPayload:     req.PhotoPayload,
		Status:           StatusPresent,
	}

	rec, err = s.store.AppendRecord(ctx, rec)
	if err != nil {
		metrics.MarksTotal.WithLabelValues("error").Inc()
		return MarkResult{}, fmt.Errorf("appending record: %w", err)
	}

	result := MarkResult{Record: rec, RosterUpdated: true}
	if err := s.incrementRoster(ctx, req.StudentID); err != nil {
		log.Printf("roster increment failed for %s: %v", req.StudentID, err)
		result.RosterUpdated = false
		result.RosterIssue = err.Error()
		if errors.Is(err, ErrStudentNotFound) {
			metrics.RosterMisses.Inc()
		}
	}

	metrics.MarksTotal.WithLabelValues("marked").Inc()
	return result, nil
}

// incrementRoster moves one day from the absent counter to the present
// counter. The percentage denominator stays at the entry's original
// present+absent total: the roster tracks attendance against a fixed course
// length, not against the growing ledger.
func (s *Service) incrementRoster(ctx context.Context, studentID string) error {
	entry, err := s.store.RosterEntry(ctx, studentID)
	if err != nil {
		return fmt.Errorf("loading roster entry: %w", err)
	}
	if entry == nil {
		return ErrStudentNotFound
	}

	total := entry.PresentCount + entry.AbsentCount
	present := entry.PresentCount + 1
	absent := entry.AbsentCount - 1
	if absent < 0 {
		absent = 0
	}

	return s.store.UpdateRosterCounts(ctx, studentID, present, absent, FormatPercentage(present, total))
}

// TodayMarked reports whether the student already has a ledger row for the
// current calendar day. An empty ledger means false.
func (s *Service) TodayMarked(ctx context.Context, studentID string) (bool, error) {
	today := DayString(s.now(), s.loc)
	records, err := s.store.RecordsByStudent(ctx, studentID)
	if err != nil {
		return false, fmt.Errorf("scanning ledger: %w", err)
	}
	for _, rec := range records {
		if rec.StudentID == studentID && DayString(rec.Date, s.loc) == today {
			return true, nil
		}
	}
	return false, nil
}

// Stats reads the roster counters for a student. An unknown student yields
// all-zero stats, not an error; clients treat a fresh id as a blank slate.
func (s *Service) Stats(ctx context.Context, studentID string) (Stats, error) {
	entry, err := s.store.RosterEntry(ctx, studentID)
	if err != nil {
		return Stats{}, fmt.Errorf("loading roster entry: %w", err)
	}
	if entry == nil {
		return Stats{Percentage: percentString(0)}, nil
	}
	return Stats{
		PresentCount: entry.PresentCount,
		AbsentCount:  entry.AbsentCount,
		TotalDays:    entry.PresentCount + entry.AbsentCount,
		Percentage:   entry.Percentage,
	}, nil
}

// Records returns every ledger row for a student, oldest first, projected to
// the listing shape. No pagination.
func (s *Service) Records(ctx context.Context, studentID string) ([]RecordView, error) {
	records, err := s.store.RecordsByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("scanning ledger: %w", err)
	}
	views := make([]RecordView, 0, len(records))
	for _, rec := range records {
		views = append(views, RecordView{
			Timestamp: rec.Timestamp,
			Date:      rec.Date,
			Location:  rec.Location,
			Weather:   rec.Weather,
			Status:    rec.Status,
		})
	}
	return views, nil
}

// Verify compares the roster's present counter with the ledger row count for
// one student. Mismatches are expected under this design because the counter
// starts from a seeded split and is never recomputed from the ledger.
func (s *Service) Verify(ctx context.Context, studentID string) (VerifyResult, error) {
	result := VerifyResult{StudentID: studentID}

	entry, err := s.store.RosterEntry(ctx, studentID)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("loading roster entry: %w", err)
	}
	if entry != nil {
		result.RosterFound = true
		result.PresentCount = entry.PresentCount
		result.AbsentCount = entry.AbsentCount
	}

	records, err := s.store.RecordsByStudent(ctx, studentID)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("counting ledger rows: %w", err)
	}
	result.LedgerCount = len(records)
	result.SheetsMatch = result.PresentCount == result.LedgerCount
	return result, nil
}

// UpdateStudentRequest carries a roster passthrough write. Nil fields are
// left untouched on an existing entry.
type UpdateStudentRequest struct {
	StudentID    string
	Name         *string
	Email        *string
	PresentCount *int
	AbsentCount  *int
}

// UpdateStudent writes roster fields directly, inserting the row when the
// student is unknown. This doubles as the seeding path for new rosters. The
// stored percentage is recomputed from the resulting counts.
func (s *Service) UpdateStudent(ctx context.Context, req UpdateStudentRequest) (RosterEntry, error) {
	if req.StudentID == "" {
		return RosterEntry{}, errors.New("student id required")
	}

	lock := s.studentLock(req.StudentID)
	lock.Lock()
	defer lock.Unlock()

	entry, err := s.store.RosterEntry(ctx, req.StudentID)
	if err != nil {
		return RosterEntry{}, fmt.Errorf("loading roster entry: %w", err)
	}
	if entry == nil {
		entry = &RosterEntry{StudentID: req.StudentID}
	}

	if req.Name != nil {
		entry.Name = *req.Name
	}
	if req.Email != nil {
		entry.Email = *req.Email
	}
	if req.PresentCount != nil {
		entry.PresentCount = *req.PresentCount
	}
	if req.AbsentCount != nil {
		entry.AbsentCount = *req.AbsentCount
	}
	entry.Percentage = FormatPercentage(entry.PresentCount, entry.PresentCount+entry.AbsentCount)

	if err := s.store.UpsertRosterEntry(ctx, *entry); err != nil {
		return RosterEntry{}, fmt.Errorf("writing roster entry: %w", err)
	}
	return *entry, nil
}
