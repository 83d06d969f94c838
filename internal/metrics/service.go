package metrics

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AngelCh415/sales-compare/internal/models"
	"github.com/AngelCh415/sales-compare/internal/period"
	"github.com/AngelCh415/sales-compare/internal/store"
)

var ErrEmptyDataset = errors.New("dataset has no approved dated rows")

type Service struct {
	st  *store.Snapshot
	log *slog.Logger
}

func NewService(st *store.Snapshot, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{st: st, log: log.With(slog.String("component", "metrics"))}
}

func (s *Service) Snapshot() *store.Snapshot { return s.st }

func (s *Service) Periods(start, end time.Time) (period.Periods, error) {
	return period.Resolve(start, end)
}

func (s *Service) Compute(w models.Window) models.Aggregate {
	defer observe("compute", time.Now())
	return Summarize(s.st.Filter(w))
}

func (s *Service) ComputeGrouped(w models.Window, key KeySelector) []models.Group {
	defer observe("compute_grouped", time.Now())
	return GroupBy(s.st.Filter(w), key)
}

func (s *Service) Series(w models.Window) []models.SeriesPoint {
	defer observe("series", time.Now())
	return Series(s.st.Filter(w), w)
}

// Dashboard resolves the three windows for [start, end] and computes every
// figure the dashboard shows. Grouped tables cover the current window only.
func (s *Service) Dashboard(ctx context.Context, start, end time.Time) (models.Dashboard, error) {
	defer observe("dashboard", time.Now())

	p, err := period.Resolve(start, end)
	if err != nil {
		return models.Dashboard{}, err
	}

	windows := p.All()
	sums := make([]models.WindowSummary, len(windows))
	var current []models.Transaction

	// las tres ventanas son independientes sobre el mismo snapshot
	g, gctx := errgroup.WithContext(ctx)
	for i, w := range windows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows := s.st.Filter(w)
			sums[i] = models.WindowSummary{
				Window:  w.JSON(),
				Summary: Summarize(rows),
				Series:  Series(rows, w),
			}
			if w.Label == models.WindowCurrent {
				current = rows
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return models.Dashboard{}, err
	}

	d := models.Dashboard{
		Current:      sums[0],
		Previous:     sums[1],
		YearOverYear: sums[2],
		VsPrevious:   Compare(models.WindowPrevious, sums[0].Summary, sums[1].Summary),
		VsYearAgo:    Compare(models.WindowYearOverYear, sums[0].Summary, sums[2].Summary),
		ByCampaign:   GroupBy(current, ByCampaign),
		ByClient:     GroupBy(current, ByClient),
	}

	s.log.DebugContext(ctx, "dashboard computed",
		slog.String("start", p.Current.Start.Format(models.DateLayout)),
		slog.String("end", p.Current.End.Format(models.DateLayout)),
		slog.Int("current_rows", len(current)),
		slog.Int("campaigns", len(d.ByCampaign)),
		slog.Int("clients", len(d.ByClient)))
	return d, nil
}

// DefaultRange is the first day of the month of the latest sale through the
// latest sale.
func (s *Service) DefaultRange() (time.Time, time.Time, error) {
	_, last, ok := s.st.Bounds()
	if !ok {
		return time.Time{}, time.Time{}, ErrEmptyDataset
	}
	first := time.Date(last.Year(), last.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first, last, nil
}
