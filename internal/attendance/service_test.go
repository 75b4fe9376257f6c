package attendance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	svc := NewService(store, time.UTC)
	svc.now = func() time.Time {
		return time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	}
	return svc, store
}

func seedRoster(t *testing.T, store *MemoryStore, id string, present, absent int) {
	t.Helper()
	err := store.UpsertRosterEntry(context.Background(), RosterEntry{
		StudentID:    id,
		Name:         "Test Student",
		Email:        "test@example.com",
		PresentCount: present,
		AbsentCount:  absent,
		Percentage:   FormatPercentage(present, present+absent),
	})
	require.NoError(t, err)
}

func TestMarkOncePerDay(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	seedRoster(t, store, "STU001", 0, 22)

	result, err := svc.Mark(ctx, MarkRequest{StudentID: "STU001", StudentName: "Ada"})
	require.NoError(t, err)
	assert.True(t, result.RosterUpdated)
	assert.Equal(t, StatusPresent, result.Record.Status)
	assert.NotEmpty(t, result.Record.ID)

	_, err = svc.Mark(ctx, MarkRequest{StudentID: "STU001", StudentName: "Ada"})
	require.ErrorIs(t, err, ErrDuplicateMark)

	records, err := store.RecordsByStudent(ctx, "STU001")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestMarkNextDaySucceeds(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	seedRoster(t, store, "STU001", 0, 22)

	_, err := svc.Mark(ctx, MarkRequest{StudentID: "STU001"})
	require.NoError(t, err)

	svc.now = func() time.Time {
		return time.Date(2026, 3, 11, 0, 5, 0, 0, time.UTC)
	}
	_, err = svc.Mark(ctx, MarkRequest{StudentID: "STU001"})
	require.NoError(t, err)

	records, err := store.RecordsByStudent(ctx, "STU001")
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestMarkStudentIDExactMatch(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	seedRoster(t, store, "STU001", 0, 22)

	_, err := svc.Mark(ctx, MarkRequest{StudentID: "STU001"})
	require.NoError(t, err)

	// Case and whitespace differences are different students.
	_, err = svc.Mark(ctx, MarkRequest{StudentID: "stu001"})
	require.NoError(t, err)
	_, err = svc.Mark(ctx, MarkRequest{StudentID: "STU001 "})
	require.NoError(t, err)
}

func TestFixedDenominatorPercentage(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	seedRoster(t, store, "STU001", 0, 22)

	_, err := svc.Mark(ctx, MarkRequest{StudentID: "STU001"})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, "STU001")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PresentCount)
	assert.Equal(t, 21, stats.AbsentCount)
	assert.Equal(t, 22, stats.TotalDays)
	assert.Equal(t, "5%", stats.Percentage)
}

func TestAbsentCounterFloorsAtZero(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	seedRoster(t, store, "STU001", 3, 0)

	_, err := svc.Mark(ctx, MarkRequest{StudentID: "STU001"})
	require.NoError(t, err)

	entry, err := store.RosterEntry(ctx, "STU001")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, 4, entry.PresentCount)
	assert.Equal(t, 0, entry.AbsentCount)
	// Denominator stays at the pre-increment total of 3.
	assert.Equal(t, "133%", entry.Percentage)
}

func TestWeatherDefaultsToSentinel(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	seedRoster(t, store, "STU001", 0, 10)

	result, err := svc.Mark(ctx, MarkRequest{StudentID: "STU001"})
	require.NoError(t, err)
	assert.Equal(t, WeatherUnknown, result.Record.Weather)
}

func TestMarkWithoutRosterStillSucceeds(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	result, err := svc.Mark(ctx, MarkRequest{StudentID: "GHOST", StudentName: "Nobody"})
	require.NoError(t, err)
	assert.False(t, result.RosterUpdated)
	assert.NotEmpty(t, result.RosterIssue)

	records, err := store.RecordsByStudent(ctx, "GHOST")
	require.NoError(t, err)
	assert.Len(t, records, 1)

	entry, err := store.RosterEntry(ctx, "GHOST")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestStatsUnknownStudentSoftFallback(t *testing.T) {
	svc, _ := newTestService(t)

	stats, err := svc.Stats(context.Background(), "UNKNOWN")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.PresentCount)
	assert.Equal(t, 0, stats.AbsentCount)
	assert.Equal(t, 0, stats.TotalDays)
	assert.Equal(t, "0%", stats.Percentage)
}

func TestTodayMarked(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	seedRoster(t, store, "STU001", 0, 10)

	marked, err := svc.TodayMarked(ctx, "STU001")
	require.NoError(t, err)
	assert.False(t, marked, "empty ledger means not marked")

	_, err = svc.Mark(ctx, MarkRequest{StudentID: "STU001"})
	require.NoError(t, err)

	marked, err = svc.TodayMarked(ctx, "STU001")
	require.NoError(t, err)
	assert.True(t, marked)

	// The next day the same record no longer counts.
	svc.now = func() time.Time {
		return time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC)
	}
	marked, err = svc.TodayMarked(ctx, "STU001")
	require.NoError(t, err)
	assert.False(t, marked)
}

func TestVerifyReportsMismatch(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	// Seed mid-course: the counter does not start at (0, total), so the
	// present counter and the ledger count are expected to diverge.
	seedRoster(t, store, "STU001", 5, 5)

	_, err := svc.Mark(ctx, MarkRequest{StudentID: "STU001"})
	require.NoError(t, err)

	result, err := svc.Verify(ctx, "STU001")
	require.NoError(t, err)
	assert.True(t, result.RosterFound)
	assert.Equal(t, 6, result.PresentCount)
	assert.Equal(t, 1, result.LedgerCount)
	assert.False(t, result.SheetsMatch)
}

func TestVerifyMatchesFromZeroSeed(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	seedRoster(t, store, "STU001", 0, 22)

	_, err := svc.Mark(ctx, MarkRequest{StudentID: "STU001"})
	require.NoError(t, err)

	result, err := svc.Verify(ctx, "STU001")
	require.NoError(t, err)
	assert.Equal(t, 1, result.PresentCount)
	assert.Equal(t, 1, result.LedgerCount)
	assert.True(t, result.SheetsMatch)
}

func TestVerifyMissingRoster(t *testing.T) {
	svc, _ := newTestService(t)

	result, err := svc.Verify(context.Background(), "GHOST")
	require.NoError(t, err)
	assert.False(t, result.RosterFound)
	assert.Equal(t, 0, result.LedgerCount)
	assert.True(t, result.SheetsMatch, "zero counter matches empty ledger")
}

func TestRecordsProjectionAndOrder(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	seedRoster(t, store, "STU001", 0, 22)

	for day := 10; day <= 12; day++ {
		d := day
		svc.now = func() time.Time {
			return time.Date(2026, 3, d, 9, 0, 0, 0, time.UTC)
		}
		_, err := svc.Mark(ctx, MarkRequest{
			StudentID: "STU001",
			Location:  LatLng{Lat: 1.5, Lng: 2.5},
			Weather:   "Sunny",
		})
		require.NoError(t, err)
	}

	views, err := svc.Records(ctx, "STU001")
	require.NoError(t, err)
	require.Len(t, views, 3)
	for i := 1; i < len(views); i++ {
		assert.True(t, views[i-1].Timestamp.Before(views[i].Timestamp), "oldest first")
	}
	assert.Equal(t, LatLng{Lat: 1.5, Lng: 2.5}, views[0].Location)
	assert.Equal(t, "Sunny", views[0].Weather)
	assert.Equal(t, StatusPresent, views[0].Status)
}

func TestConcurrentMarksSameDay(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	seedRoster(t, store, "STU001", 0, 22)

	const attempts = 20
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Mark(ctx, MarkRequest{StudentID: "STU001"})
		}(i)
	}
	wg.Wait()

	var successes, duplicates int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrDuplicateMark):
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, duplicates)

	records, err := store.RecordsByStudent(ctx, "STU001")
	require.NoError(t, err)
	assert.Len(t, records, 1)

	entry, err := store.RosterEntry(ctx, "STU001")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, 1, entry.PresentCount, "exactly one increment")
}

func TestUpdateStudentUpsertsAndPartialUpdate(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	name := "Ada Lovelace"
	present := 0
	absent := 22
	entry, err := svc.UpdateStudent(ctx, UpdateStudentRequest{
		StudentID:    "STU001",
		Name:         &name,
		PresentCount: &present,
		AbsentCount:  &absent,
	})
	require.NoError(t, err)
	assert.Equal(t, "0%", entry.Percentage)

	email := "ada@example.com"
	entry, err = svc.UpdateStudent(ctx, UpdateStudentRequest{StudentID: "STU001", Email: &email})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", entry.Name, "untouched fields survive")
	assert.Equal(t, "ada@example.com", entry.Email)
	assert.Equal(t, 22, entry.AbsentCount)

	stored, err := store.RosterEntry(ctx, "STU001")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, *stored, entry)
}

func TestDayString(t *testing.T) {
	eastern, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 02:00 UTC on March 11 is still March 10 in New York.
	instant := time.Date(2026, 3, 11, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-03-11", DayString(instant, time.UTC))
	assert.Equal(t, "2026-03-10", DayString(instant, eastern))
}

func TestFormatPercentage(t *testing.T) {
	assert.Equal(t, "0%", FormatPercentage(0, 0))
	assert.Equal(t, "5%", FormatPercentage(1, 22))
	assert.Equal(t, "50%", FormatPercentage(11, 22))
	assert.Equal(t, "100%", FormatPercentage(22, 22))
	// Rounding is to nearest, not truncation.
	assert.Equal(t, "67%", FormatPercentage(2, 3))
}
