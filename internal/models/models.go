package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// StatusApproved is the normalized order status that gates every aggregate.
const StatusApproved = "aprovado"

const DateLayout = "2006-01-02"

type Transaction struct {
	SaleDate       time.Time // zero = ausente
	ExperienceDate time.Time
	Amount         decimal.NullDecimal
	Units          decimal.NullDecimal
	Status         string
	OrderID        string
	Campaign       string
	Client         string
}

// Approved ignores case and surrounding blanks, so rows built outside the
// loader match as well.
func (t Transaction) Approved() bool {
	return strings.EqualFold(strings.TrimSpace(t.Status), StatusApproved)
}

type WindowLabel string

const (
	WindowCurrent      WindowLabel = "current"
	WindowPrevious     WindowLabel = "previous"
	WindowYearOverYear WindowLabel = "year_over_year"
)

type Window struct {
	Label WindowLabel
	Start time.Time
	End   time.Time
}

// Days is the inclusive length of the window.
func (w Window) Days() int {
	return int(w.End.Sub(w.Start).Hours()/24) + 1
}

func (w Window) Contains(d time.Time) bool {
	return !d.Before(w.Start) && !d.After(w.End)
}

type Aggregate struct {
	TotalValue     decimal.Decimal `json:"total_value"`
	DistinctOrders int             `json:"distinct_order_count"`
	UnitTotal      decimal.Decimal `json:"unit_total"`
	AvgPerUnit     decimal.Decimal `json:"average_value_per_unit"`
}

type Group struct {
	Key string `json:"key"`
	Aggregate
}

type Change struct {
	Value        decimal.Decimal `json:"value"`
	CompareValue decimal.Decimal `json:"compare_value"`
	ChangePct    *float64        `json:"change_pct"`
}

type Comparison struct {
	Against        WindowLabel `json:"against"`
	TotalValue     Change      `json:"total_value"`
	DistinctOrders Change      `json:"distinct_order_count"`
	UnitTotal      Change      `json:"unit_total"`
	AvgPerUnit     Change      `json:"average_value_per_unit"`
}

type SeriesPoint struct {
	Date           string          `json:"date"`
	Offset         int             `json:"offset"`
	TotalValue     decimal.Decimal `json:"total_value"`
	DistinctOrders int             `json:"distinct_order_count"`
}

type WindowJSON struct {
	Label WindowLabel `json:"label"`
	Start string      `json:"start"`
	End   string      `json:"end"`
	Days  int         `json:"days"`
}

func (w Window) JSON() WindowJSON {
	return WindowJSON{Label: w.Label, Start: w.Start.Format(DateLayout), End: w.End.Format(DateLayout), Days: w.Days()}
}

type WindowSummary struct {
	Window  WindowJSON    `json:"window"`
	Summary Aggregate     `json:"summary"`
	Series  []SeriesPoint `json:"series,omitempty"`
}

type Dashboard struct {
	Current      WindowSummary `json:"current"`
	Previous     WindowSummary `json:"previous"`
	YearOverYear WindowSummary `json:"year_over_year"`
	VsPrevious   Comparison    `json:"vs_previous"`
	VsYearAgo    Comparison    `json:"vs_year_over_year"`
	ByCampaign   []Group       `json:"by_campaign"`
	ByClient     []Group       `json:"by_client"`
}
