package pipeline

import (
	"math"
	"sort"
	"time"

	"clubcard-pipeline/internal/model"
)

// ------------------- Aggregation -------------------

// WeekCommencing returns the Monday starting the ISO week that contains
// the given date, at midnight. Time-of-day is normalized to noon first
// so a daylight-saving boundary cannot shift the result across days.
func WeekCommencing(t time.Time) time.Time {
	noon := time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, t.Location())

	day := int(noon.Weekday())
	if day == 0 {
		day = 7 // Sunday
	}
	monday := noon.AddDate(0, 0, -(day - 1))

	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, t.Location())
}

// round2 rounds to two decimals. The epsilon nudge keeps values whose
// nearest float sits just under a .xx5 boundary (1.005 is really
// 1.00499…) rounding up instead of down.
func round2(v float64) float64 {
	return math.Round((v+math.Copysign(1e-9, v))*100) / 100
}

type weekKey struct {
	week         string
	storeFormat  string
	purchaseType string
}

// AggregateByWeek folds purchases into per-week, per-format, per-channel
// totals. The store format of a delivery order is forced to "Delivery"
// whatever the record says. Running totals are rounded to two decimals
// after every addition; the accumulated rounding is an accepted tradeoff
// for bounded-precision display values.
func AggregateByWeek(purchases []model.Purchase) []model.WeeklyAggregate {
	weekly := make(map[weekKey]*model.WeeklyAggregate)
	for _, p := range purchases {
		week := WeekCommencing(p.Date)

		storeFormat := p.StoreFormat
		if p.PurchaseType == "Delivery" {
			storeFormat = "Delivery"
		}

		key := weekKey{week: week.Format("2006-01-02"), storeFormat: storeFormat, purchaseType: p.PurchaseType}
		agg, ok := weekly[key]
		if !ok {
			agg = &model.WeeklyAggregate{
				WeekCommencing: week,
				StoreFormat:    storeFormat,
				PurchaseType:   p.PurchaseType,
			}
			weekly[key] = agg
		}

		agg.BasketValueGross = round2(agg.BasketValueGross + p.BasketValueGross)
		agg.BasketValueNet = round2(agg.BasketValueNet + p.BasketValueNet)
		agg.OverallBasketSavings = round2(agg.OverallBasketSavings + p.OverallBasketSavings)
		agg.TotalItems += p.TotalItems
	}

	out := make([]model.WeeklyAggregate, 0, len(weekly))
	for _, agg := range weekly {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].WeekCommencing.Equal(out[j].WeekCommencing) {
			return out[i].WeekCommencing.Before(out[j].WeekCommencing)
		}
		if out[i].StoreFormat != out[j].StoreFormat {
			return out[i].StoreFormat < out[j].StoreFormat
		}
		return out[i].PurchaseType < out[j].PurchaseType
	})
	return out
}

// AggregateProducts computes lifetime statistics per product name, in
// first-seen order.
func AggregateProducts(products []model.Product) []model.AggregatedProduct {
	byName := make(map[string]*model.AggregatedProduct)
	var order []string

	for _, p := range products {
		agg, ok := byName[p.Name]
		if !ok {
			agg = &model.AggregatedProduct{
				Name:     p.Name,
				MinPrice: math.Inf(1),
				MaxPrice: math.Inf(-1),
			}
			byName[p.Name] = agg
			order = append(order, p.Name)
		}

		agg.TotalQuantity += p.Quantity
		agg.MinPrice = math.Min(agg.MinPrice, p.Price)
		agg.MaxPrice = math.Max(agg.MaxPrice, p.Price)
		agg.TotalPrice += p.Price * float64(p.Quantity)
	}

	out := make([]model.AggregatedProduct, 0, len(order))
	for _, name := range order {
		agg := byName[name]
		if agg.TotalQuantity > 0 {
			agg.AveragePrice = agg.TotalPrice / float64(agg.TotalQuantity)
		}
		out = append(out, *agg)
	}
	return out
}
