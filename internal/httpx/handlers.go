package httpx

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "github.com/AngelCh415/sales-compare/internal/errors"
	"github.com/AngelCh415/sales-compare/internal/ingest"
	"github.com/AngelCh415/sales-compare/internal/metrics"
	"github.com/AngelCh415/sales-compare/internal/models"
	"github.com/AngelCh415/sales-compare/internal/period"
	"github.com/AngelCh415/sales-compare/internal/utils"
)

type Handler struct {
	svc      *metrics.Service
	diag     ingest.Diagnostics
	log      *slog.Logger
	validate *validator.Validate
}

func NewHandler(log *slog.Logger, svc *metrics.Service, diag ingest.Diagnostics) *Handler {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("query"); name != "" {
			return name
		}
		return f.Name
	})
	return &Handler{
		svc:      svc,
		diag:     diag,
		log:      log.With(slog.String("component", "http")),
		validate: v,
	}
}

// rangeQuery holds the raw query string. An empty start and end selects the
// dataset's default range; a single empty bound is left for the period
// resolver to reject.
type rangeQuery struct {
	Start  string `query:"start" validate:"omitempty,datetime=2006-01-02"`
	End    string `query:"end" validate:"omitempty,datetime=2006-01-02"`
	Window string `query:"window" validate:"omitempty,oneof=current previous year_over_year"`
}

func (h *Handler) rangeOf(r *http.Request) (time.Time, time.Time, rangeQuery, error) {
	qs := r.URL.Query()
	q := rangeQuery{
		Start:  strings.TrimSpace(qs.Get("start")),
		End:    strings.TrimSpace(qs.Get("end")),
		Window: strings.TrimSpace(qs.Get("window")),
	}
	if err := h.check(q); err != nil {
		return time.Time{}, time.Time{}, q, err
	}
	if q.Start == "" && q.End == "" {
		start, end, err := h.svc.DefaultRange()
		return start, end, q, err
	}
	return parseDay(q.Start), parseDay(q.End), q, nil
}

func (h *Handler) periodsOf(r *http.Request) (period.Periods, rangeQuery, error) {
	start, end, q, err := h.rangeOf(r)
	if err != nil {
		return period.Periods{}, q, err
	}
	p, err := h.svc.Periods(start, end)
	return p, q, err
}

// parseDay devuelve cero si s está vacío
func parseDay(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (h *Handler) check(v any) error {
	err := h.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, apierrors.ValidationError{Field: fe.Field(), Message: validationMessage(fe)})
	}
	return apierrors.ErrValidation(out...)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "datetime":
		return fmt.Sprintf("%s must be a date formatted YYYY-MM-DD", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := apiError(err)
	if apiErr.StatusCode >= http.StatusInternalServerError {
		h.log.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.String("rid", utils.RID(r.Context())),
			slog.String("err", err.Error()))
	}
	render.Render(w, r, apiErr)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	st := h.svc.Snapshot()
	render.JSON(w, r, map[string]any{
		"status":   "ready",
		"rows":     st.Len(),
		"approved": st.ApprovedLen(),
	})
}

type periodsResponse struct {
	Current      models.WindowJSON `json:"current"`
	Previous     models.WindowJSON `json:"previous"`
	YearOverYear models.WindowJSON `json:"year_over_year"`
}

func (h *Handler) Periods(w http.ResponseWriter, r *http.Request) {
	p, _, err := h.periodsOf(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, periodsResponse{
		Current:      p.Current.JSON(),
		Previous:     p.Previous.JSON(),
		YearOverYear: p.YearOverYear.JSON(),
	})
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	p, q, err := h.periodsOf(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	win := p.Current
	switch models.WindowLabel(q.Window) {
	case models.WindowPrevious:
		win = p.Previous
	case models.WindowYearOverYear:
		win = p.YearOverYear
	}
	render.JSON(w, r, models.WindowSummary{Window: win.JSON(), Summary: h.svc.Compute(win)})
}

type groupsResponse struct {
	Window models.WindowJSON `json:"window"`
	Key    string            `json:"key"`
	Groups []models.Group    `json:"groups"`
}

func (h *Handler) Groups(w http.ResponseWriter, r *http.Request) {
	name := strings.ToLower(chi.URLParam(r, "key"))
	sel, ok := metrics.SelectorByName(name)
	if !ok {
		h.fail(w, r, apierrors.ErrValidation(apierrors.ValidationError{
			Field:   "key",
			Message: "key must be one of: campaign, client",
		}))
		return
	}
	p, _, err := h.periodsOf(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, groupsResponse{
		Window: p.Current.JSON(),
		Key:    name,
		Groups: h.svc.ComputeGrouped(p.Current, sel),
	})
}

type seriesWindow struct {
	Window models.WindowJSON    `json:"window"`
	Points []models.SeriesPoint `json:"points"`
}

type seriesResponse struct {
	Current      seriesWindow `json:"current"`
	Previous     seriesWindow `json:"previous"`
	YearOverYear seriesWindow `json:"year_over_year"`
}

func (h *Handler) Series(w http.ResponseWriter, r *http.Request) {
	p, _, err := h.periodsOf(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sw := func(win models.Window) seriesWindow {
		return seriesWindow{Window: win.JSON(), Points: h.svc.Series(win)}
	}
	render.JSON(w, r, seriesResponse{
		Current:      sw(p.Current),
		Previous:     sw(p.Previous),
		YearOverYear: sw(p.YearOverYear),
	})
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	start, end, _, err := h.rangeOf(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	d, err := h.svc.Dashboard(r.Context(), start, end)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	render.JSON(w, r, d)
}

type dateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type datasetResponse struct {
	Rows         int                `json:"rows"`
	Approved     int                `json:"approved"`
	FirstSale    string             `json:"first_sale,omitempty"`
	LastSale     string             `json:"last_sale,omitempty"`
	DefaultRange *dateRange         `json:"default_range,omitempty"`
	LoadedAt     time.Time          `json:"loaded_at"`
	Diagnostics  ingest.Diagnostics `json:"diagnostics"`
}

func (h *Handler) Dataset(w http.ResponseWriter, r *http.Request) {
	st := h.svc.Snapshot()
	resp := datasetResponse{
		Rows:        st.Len(),
		Approved:    st.ApprovedLen(),
		LoadedAt:    st.LoadedAt(),
		Diagnostics: h.diag,
	}
	if first, last, ok := st.Bounds(); ok {
		resp.FirstSale = first.Format(models.DateLayout)
		resp.LastSale = last.Format(models.DateLayout)
	}
	if start, end, err := h.svc.DefaultRange(); err == nil {
		resp.DefaultRange = &dateRange{Start: start.Format(models.DateLayout), End: end.Format(models.DateLayout)}
	}
	render.JSON(w, r, resp)
}
