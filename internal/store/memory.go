package store

import (
	"slices"
	"time"

	"github.com/AngelCh415/sales-compare/internal/models"
)

// Snapshot is the full dataset held read-only for the life of the process.
// Nothing mutates it after NewSnapshot returns, so it is safe to share
// between goroutines without locking.
type Snapshot struct {
	rows     []models.Transaction
	approved int
	minDate  time.Time
	maxDate  time.Time
	loadedAt time.Time
}

func NewSnapshot(rows []models.Transaction) *Snapshot {
	s := &Snapshot{
		rows:     slices.Clone(rows),
		loadedAt: time.Now().UTC(),
	}
	for _, r := range s.rows {
		if r.SaleDate.IsZero() || !r.Approved() {
			continue
		}
		s.approved++
		if s.minDate.IsZero() || r.SaleDate.Before(s.minDate) {
			s.minDate = r.SaleDate
		}
		if r.SaleDate.After(s.maxDate) {
			s.maxDate = r.SaleDate
		}
	}
	return s
}

func (s *Snapshot) Len() int            { return len(s.rows) }
func (s *Snapshot) ApprovedLen() int    { return s.approved }
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Bounds returns the earliest and latest sale date among approved rows.
// ok is false when no approved row carries a sale date.
func (s *Snapshot) Bounds() (first, last time.Time, ok bool) {
	if s.approved == 0 {
		return time.Time{}, time.Time{}, false
	}
	return s.minDate, s.maxDate, true
}

// All returns a copy of every loaded row, approved or not.
func (s *Snapshot) All() []models.Transaction {
	return slices.Clone(s.rows)
}

// Filter keeps approved rows whose sale date falls inside w, in load order.
// Rows without amount or units still pass; they add zero downstream.
func (s *Snapshot) Filter(w models.Window) []models.Transaction {
	return s.Query(w.Start, w.End, nil)
}

// Query is Filter over an explicit inclusive range with an optional extra predicate.
func (s *Snapshot) Query(from, to time.Time, f func(models.Transaction) bool) []models.Transaction {
	out := []models.Transaction{}
	for _, r := range s.rows {
		if r.SaleDate.IsZero() || !r.Approved() {
			continue
		}
		if r.SaleDate.Before(from) || r.SaleDate.After(to) {
			continue
		}
		if f == nil || f(r) {
			out = append(out, r)
		}
	}
	return out
}
