package attendance

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"
)

// StatusPresent is the status written on every check-in. The ledger never
// holds explicit absent rows; absence is only tracked by the roster counter.
const StatusPresent = "Present"

// WeatherUnknown is the sentinel stored when a check-in arrives without a
// weather string. The worker replaces it when enrichment succeeds.
const WeatherUnknown = "not available"

// Sentinel errors reported by the service. Callers match with errors.Is.
var (
	ErrDuplicateMark   = errors.New("attendance already marked today")
	ErrStudentNotFound = errors.New("student not found in roster")
)

// LatLng is a coordinate pair in floating-point degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Record is one ledger row, appended once per student per calendar day.
type Record struct {
	ID               string    `json:"id"`
	Timestamp        time.Time `json:"timestamp"`
	StudentID        string    `json:"studentId"`
	StudentName      string    `json:"studentName"`
	Date             time.Time `json:"date"`
	Location         LatLng    `json:"location"`
	Weather          string    `json:"weather"`
	SignaturePayload string    `json:"signatureData,omitempty"`
	PhotoPayload     string    `json:"photoData,omitempty"`
	Status           string    `json:"status"`
}

// RosterEntry is one pre-provisioned roster row. PresentCount+AbsentCount is
// the student's fixed total of tracked days; marking moves the split between
// the two counters but never grows the sum.
type RosterEntry struct {
	StudentID    string `json:"studentId"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PresentCount int    `json:"presentCount"`
	AbsentCount  int    `json:"absentCount"`
	Percentage   string `json:"percentage"`
}

// Stats is the roster read-through returned by getStudentStats.
type Stats struct {
	PresentCount int    `json:"presentCount"`
	AbsentCount  int    `json:"absentCount"`
	TotalDays    int    `json:"totalDays"`
	Percentage   string `json:"percentage"`
}

// VerifyResult reports the roster counter against the ledger row count for
// one student. It is diagnostic only; nothing repairs a mismatch.
type VerifyResult struct {
	StudentID    string `json:"studentId"`
	RosterFound  bool   `json:"rosterFound"`
	PresentCount int    `json:"presentCount"`
	AbsentCount  int    `json:"absentCount"`
	LedgerCount  int    `json:"ledgerCount"`
	SheetsMatch  bool   `json:"sheetsMatch"`
}

// RecordView is the projection returned by getAllRecords.
type RecordView struct {
	Timestamp time.Time `json:"timestamp"`
	Date      time.Time `json:"date"`
	Location  LatLng    `json:"location"`
	Weather   string    `json:"weather"`
	Status    string    `json:"status"`
}

// Store is the persistence boundary for the ledger and roster tables.
type Store interface {
	AppendRecord(ctx context.Context, rec Record) (Record, error)
	RecordsByStudent(ctx context.Context, studentID string) ([]Record, error)
	GetRecord(ctx context.Context, id string) (*Record, error)
	SetRecordWeather(ctx context.Context, id, weather string) error

	// RosterEntry returns nil, nil when the student has no roster row.
	RosterEntry(ctx context.Context, studentID string) (*RosterEntry, error)
	UpdateRosterCounts(ctx context.Context, studentID string, present, absent int, percentage string) error
	UpsertRosterEntry(ctx context.Context, entry RosterEntry) error
}

// DayString buckets an instant into its calendar day in loc. Every day
// comparison in the package goes through this one helper so the duplicate
// check and the today-marked check can never disagree.
func DayString(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

// FormatPercentage renders a present/total split the way the roster stores
// it: rounded to a whole percent with a trailing percent sign. A zero total
// yields "0%".
func FormatPercentage(present, total int) string {
	return percentString(percent(present, total))
}

func percent(present, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(present) / float64(total) * 100))
}

func percentString(p int) string {
	return strconv.Itoa(p) + "%"
}
