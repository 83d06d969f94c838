package metrics

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/AngelCh415/sales-compare/internal/models"
)

// KeySelector extracts the grouping key of a row; "" means the key is absent.
type KeySelector func(models.Transaction) string

func ByCampaign(t models.Transaction) string { return t.Campaign }
func ByClient(t models.Transaction) string   { return t.Client }

var selectors = map[string]KeySelector{
	"campaign": ByCampaign,
	"client":   ByClient,
}

func SelectorByName(name string) (KeySelector, bool) {
	k, ok := selectors[strings.ToLower(strings.TrimSpace(name))]
	return k, ok
}

var hundred = decimal.NewFromInt(100)

// Summarize reduces rows to the window KPIs. Absent amounts and units add
// zero; rows without an order id are not counted as orders.
func Summarize(rows []models.Transaction) models.Aggregate {
	total := decimal.Zero
	units := decimal.Zero
	orders := make(map[string]struct{})
	for _, r := range rows {
		if r.Amount.Valid {
			total = total.Add(r.Amount.Decimal)
		}
		if r.Units.Valid {
			units = units.Add(r.Units.Decimal)
		}
		if r.OrderID != "" {
			orders[r.OrderID] = struct{}{}
		}
	}
	return models.Aggregate{
		TotalValue:     total,
		DistinctOrders: len(orders),
		UnitTotal:      units,
		AvgPerUnit:     safeDiv(total, units),
	}
}

// GroupBy summarizes each key partition, dropping rows without a key. The
// result is ordered by total value descending, then key ascending.
func GroupBy(rows []models.Transaction, key KeySelector) []models.Group {
	parts := make(map[string][]models.Transaction)
	for _, r := range rows {
		k := strings.TrimSpace(key(r))
		if k == "" {
			continue
		}
		parts[k] = append(parts[k], r)
	}

	out := make([]models.Group, 0, len(parts))
	for k, p := range parts {
		out = append(out, models.Group{Key: k, Aggregate: Summarize(p)})
	}
	// orden determinista
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].TotalValue.Cmp(out[j].TotalValue); c != 0 {
			return c > 0
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// Compare pairs every KPI of cur with the same KPI of other.
func Compare(against models.WindowLabel, cur, other models.Aggregate) models.Comparison {
	return models.Comparison{
		Against:        against,
		TotalValue:     change(cur.TotalValue, other.TotalValue),
		DistinctOrders: change(decimal.NewFromInt(int64(cur.DistinctOrders)), decimal.NewFromInt(int64(other.DistinctOrders))),
		UnitTotal:      change(cur.UnitTotal, other.UnitTotal),
		AvgPerUnit:     change(cur.AvgPerUnit, other.AvgPerUnit),
	}
}

func change(v, c decimal.Decimal) models.Change {
	ch := models.Change{Value: v, CompareValue: c}
	if c.IsZero() {
		return ch
	}
	pct, _ := v.Sub(c).Div(c.Abs()).Mul(hundred).Round(2).Float64()
	ch.ChangePct = &pct
	return ch
}

// Series returns one point per day of w, zero filled, so windows of equal
// length line up by Offset.
func Series(rows []models.Transaction, w models.Window) []models.SeriesPoint {
	if w.End.Before(w.Start) {
		return []models.SeriesPoint{}
	}
	type bucket struct {
		total  decimal.Decimal
		orders map[string]struct{}
	}
	byDay := make(map[string]*bucket)
	for _, r := range rows {
		if !w.Contains(r.SaleDate) {
			continue
		}
		k := r.SaleDate.Format(models.DateLayout)
		b, ok := byDay[k]
		if !ok {
			b = &bucket{total: decimal.Zero, orders: make(map[string]struct{})}
			byDay[k] = b
		}
		if r.Amount.Valid {
			b.total = b.total.Add(r.Amount.Decimal)
		}
		if r.OrderID != "" {
			b.orders[r.OrderID] = struct{}{}
		}
	}

	out := make([]models.SeriesPoint, 0, w.Days())
	for i, cur := 0, w.Start; !cur.After(w.End); i, cur = i+1, cur.AddDate(0, 0, 1) {
		k := cur.Format(models.DateLayout)
		p := models.SeriesPoint{Date: k, Offset: i, TotalValue: decimal.Zero}
		if b, ok := byDay[k]; ok {
			p.TotalValue = b.total
			p.DistinctOrders = len(b.orders)
		}
		out = append(out, p)
	}
	return out
}

// safeDiv devuelve 0 cuando el divisor es 0.
func safeDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.DivRound(b, 2)
}
