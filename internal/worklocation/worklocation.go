// Package worklocation manages the named geographic points a student can
// save. The table is independent of attendance; nothing cascades.
package worklocation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"
)

// ErrNotFound is returned when a delete targets an id with no row.
var ErrNotFound = errors.New("work location not found")

// Location is one saved point.
type Location struct {
	ID        string  `json:"id"`
	StudentID string  `json:"studentId"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// Store is the persistence boundary for the location table.
type Store interface {
	ByStudent(ctx context.Context, studentID string) ([]Location, error)
	Append(ctx context.Context, loc Location) error
	// Delete removes a single row by id and returns ErrNotFound when no
	// row matched.
	Delete(ctx context.Context, id string) error
}

// Service generates ids and applies the few rules the table has.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a service.
func NewService(store Store) *Service {
	return &Service{
		store: store,
		now:   time.Now,
	}
}

// List returns every location saved for a student.
func (s *Service) List(ctx context.Context, studentID string) ([]Location, error) {
	return s.store.ByStudent(ctx, studentID)
}

// Add saves a new location under a freshly generated id and returns it.
func (s *Service) Add(ctx context.Context, studentID, name string, lat, lng float64) (Location, error) {
	if studentID == "" {
		return Location{}, errors.New("student id required")
	}
	if name == "" {
		return Location{}, errors.New("location name required")
	}
	loc := Location{
		ID:        s.newID(),
		StudentID: studentID,
		Name:      name,
		Latitude:  lat,
		Longitude: lng,
	}
	if err := s.store.Append(ctx, loc); err != nil {
		return Location{}, fmt.Errorf("saving work location: %w", err)
	}
	return loc, nil
}

// Delete removes one location by id.
func (s *Service) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrNotFound
	}
	return s.store.Delete(ctx, id)
}

// newID builds a time-prefixed id with a short random suffix. Collisions
// need only be unlikely, not impossible; ids are opaque to clients.
func (s *Service) newID() string {
	suffix := strconv.FormatInt(int64(rand.Intn(36*36*36*36*36*36)), 36)
	for len(suffix) < 6 {
		suffix = "0" + suffix
	}
	return "loc_" + strconv.FormatInt(s.now().UnixMilli(), 10) + "_" + suffix
}
