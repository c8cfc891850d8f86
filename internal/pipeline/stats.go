package pipeline

import (
	"fmt"
	"math"
	"sort"
	"time"

	"clubcard-pipeline/internal/model"
)

// ------------------- Summary statistics -------------------

// EarliestPurchaseDate returns the earliest purchase date. Ties resolve
// to the first occurrence. ok is false for an empty collection.
func EarliestPurchaseDate(purchases []model.Purchase) (time.Time, bool) {
	if len(purchases) == 0 {
		return time.Time{}, false
	}
	earliest := purchases[0].Date
	for _, p := range purchases[1:] {
		if p.Date.Before(earliest) {
			earliest = p.Date
		}
	}
	return earliest, true
}

// LatestPurchaseDate returns the latest purchase date. Ties resolve to
// the first occurrence. ok is false for an empty collection.
func LatestPurchaseDate(purchases []model.Purchase) (time.Time, bool) {
	if len(purchases) == 0 {
		return time.Time{}, false
	}
	latest := purchases[0].Date
	for _, p := range purchases[1:] {
		if p.Date.After(latest) {
			latest = p.Date
		}
	}
	return latest, true
}

// TotalAmountSpent sums net basket values.
func TotalAmountSpent(purchases []model.Purchase) float64 {
	total := 0.0
	for _, p := range purchases {
		total += p.BasketValueNet
	}
	return total
}

// TotalAmountSaved sums basket savings.
func TotalAmountSaved(purchases []model.Purchase) float64 {
	total := 0.0
	for _, p := range purchases {
		total += p.OverallBasketSavings
	}
	return total
}

// CountItems sums the item counts across all purchases.
func CountItems(purchases []model.Purchase) int {
	total := 0
	for _, p := range purchases {
		total += p.TotalItems
	}
	return total
}

// CountStoresVisited counts distinct physical stores; delivery orders
// do not count as a visit.
func CountStoresVisited(purchases []model.Purchase) int {
	seen := make(map[string]struct{})
	for _, p := range purchases {
		if p.PurchaseType != "Delivery" {
			seen[p.StoreID] = struct{}{}
		}
	}
	return len(seen)
}

// AverageSpend is the mean net spend per transaction. Zero transactions
// yield zero rather than a division error.
func AverageSpend(totalSpent float64, transactions int) float64 {
	if transactions == 0 {
		return 0
	}
	return totalSpent / float64(transactions)
}

// AverageSpendPerWeek spreads the total spend over the covered weeks.
// A range shorter than one week counts as one week.
func AverageSpendPerWeek(start, end time.Time, totalSpent float64) float64 {
	weeks := end.Sub(start).Hours() / 24 / 7
	if weeks == 0 {
		weeks = 1
	}
	return totalSpent / weeks
}

// Frequency is the average number of days between transactions, to one
// decimal place: ceil(days in range) / transaction count.
func Frequency(earliest, latest time.Time, transactions int) float64 {
	if transactions == 0 {
		return 0
	}
	days := math.Ceil(math.Abs(latest.Sub(earliest).Hours()) / 24)
	return math.Round(days/float64(transactions)*10) / 10
}

// CalendarDuration is an exact (years, months, days) decomposition.
type CalendarDuration struct {
	Years  int `json:"years"`
	Months int `json:"months"`
	Days   int `json:"days"`
}

// TimeBetween decomposes the span between two dates into calendar
// years, months and days, borrowing days from the previous month and
// months from the previous year rather than approximating with fixed
// month lengths. Invalid or out-of-order dates return an error instead
// of a nonsense decomposition.
func TimeBetween(start, end time.Time) (CalendarDuration, error) {
	if start.IsZero() || end.IsZero() {
		return CalendarDuration{}, fmt.Errorf("invalid dates provided")
	}
	if start.After(end) {
		return CalendarDuration{}, fmt.Errorf("start date must be before end date")
	}

	years := end.Year() - start.Year()
	months := int(end.Month()) - int(start.Month())
	days := end.Day() - start.Day()

	if days < 0 {
		// borrow the day count of the month before end
		previousMonthEnd := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, end.Location()).AddDate(0, 0, -1)
		days += previousMonthEnd.Day()
		months--
	}
	if months < 0 {
		months += 12
		years--
	}

	return CalendarDuration{Years: years, Months: months, Days: days}, nil
}

// PurchaseGap describes the longest stretch without a purchase.
type PurchaseGap struct {
	LongestStart time.Time `json:"longestStartDate"`
	LongestEnd   time.Time `json:"longestEndDate"`
	LongestDays  int       `json:"longestDays"`
}

// GapBetweenPurchases finds the longest gap between consecutive
// purchases at midnight resolution. With a single purchase the gap is
// zero and both bounds are that purchase's date.
func GapBetweenPurchases(purchases []model.Purchase) (PurchaseGap, bool) {
	if len(purchases) == 0 {
		return PurchaseGap{}, false
	}

	ordered := make([]model.Purchase, len(purchases))
	copy(ordered, purchases)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Date.Before(ordered[j].Date) })

	first := atMidnight(ordered[0].Date)
	gap := PurchaseGap{LongestStart: first, LongestEnd: first}

	for i := 1; i < len(ordered); i++ {
		prev := atMidnight(ordered[i-1].Date)
		curr := atMidnight(ordered[i].Date)
		days := int(math.Round(curr.Sub(prev).Hours() / 24))
		if days > gap.LongestDays {
			gap.LongestDays = days
			gap.LongestStart = prev
			gap.LongestEnd = curr
		}
	}
	return gap, true
}

func atMidnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ShopHighlight is one noteworthy transaction surfaced by the summary.
type ShopHighlight struct {
	Date           time.Time `json:"date"`
	StoreName      string    `json:"storeName"`
	NumberOfItems  int       `json:"numberOfItems"`
	NetBasketValue float64   `json:"netBasketValue"`
}

// MostExpensiveShop returns the purchase with the highest net value.
func MostExpensiveShop(purchases []model.Purchase) (ShopHighlight, bool) {
	return topPurchase(purchases, func(a, b model.Purchase) bool {
		return a.BasketValueNet > b.BasketValueNet
	})
}

// BiggestShop returns the purchase with the most items.
func BiggestShop(purchases []model.Purchase) (ShopHighlight, bool) {
	return topPurchase(purchases, func(a, b model.Purchase) bool {
		return a.TotalItems > b.TotalItems
	})
}

func topPurchase(purchases []model.Purchase, better func(a, b model.Purchase) bool) (ShopHighlight, bool) {
	if len(purchases) == 0 {
		return ShopHighlight{}, false
	}
	top := purchases[0]
	for _, p := range purchases[1:] {
		if better(p, top) {
			top = p
		}
	}
	return ShopHighlight{
		Date:           top.Date,
		StoreName:      top.StoreName,
		NumberOfItems:  top.TotalItems,
		NetBasketValue: top.BasketValueNet,
	}, true
}

// ------------------- Weekday distribution -------------------

// Weekdays in bucket order: this distribution starts the week on
// Sunday, independent of the Monday-start weeks used for weekly
// aggregation.
var Weekdays = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// WeekdayShare is one weekday's share of the overall total.
type WeekdayShare struct {
	Day        string  `json:"day"`
	Total      float64 `json:"total"`
	Percentage int     `json:"percentage"`
}

// SpendByWeekday buckets net spend by weekday and computes each bucket's
// share of the total as a whole-number percentage. All shares are 0 when
// the total is zero.
func SpendByWeekday(purchases []model.Purchase) [7]WeekdayShare {
	return weekdayShares(purchases, func(p model.Purchase) float64 { return p.BasketValueNet })
}

// VisitsByWeekday buckets transaction counts by weekday.
func VisitsByWeekday(purchases []model.Purchase) [7]WeekdayShare {
	return weekdayShares(purchases, func(p model.Purchase) float64 { return 1 })
}

func weekdayShares(purchases []model.Purchase, value func(model.Purchase) float64) [7]WeekdayShare {
	var shares [7]WeekdayShare
	for i, day := range Weekdays {
		shares[i].Day = day
	}

	total := 0.0
	for _, p := range purchases {
		v := value(p)
		shares[int(p.Date.Weekday())].Total += v
		total += v
	}

	if total > 0 {
		for i := range shares {
			shares[i].Percentage = int(math.Round(shares[i].Total / total * 100))
		}
	}
	return shares
}

// ------------------- Top products -------------------

// SortOrder names one of the supported aggregated-product orderings.
type SortOrder string

const (
	SortQuantityHigh   SortOrder = "quantity-high"
	SortQuantityLow    SortOrder = "quantity-low"
	SortTotalSpentHigh SortOrder = "total-spent-high"
	SortTotalSpentLow  SortOrder = "total-spent-low"
	SortAvgPriceHigh   SortOrder = "average-price-high"
	SortAvgPriceLow    SortOrder = "average-price-low"
	SortMaxPriceHigh   SortOrder = "max-price-high"
	SortMaxPriceLow    SortOrder = "max-price-low"
)

// sortOrders dispatches each ordering to a pure less function. Keeping
// the set closed here means an unsupported name is caught by
// ParseSortOrder instead of silently falling back.
var sortOrders = map[SortOrder]func(a, b model.AggregatedProduct) bool{
	SortQuantityHigh:   func(a, b model.AggregatedProduct) bool { return a.TotalQuantity > b.TotalQuantity },
	SortQuantityLow:    func(a, b model.AggregatedProduct) bool { return a.TotalQuantity < b.TotalQuantity },
	SortTotalSpentHigh: func(a, b model.AggregatedProduct) bool { return a.TotalPrice > b.TotalPrice },
	SortTotalSpentLow:  func(a, b model.AggregatedProduct) bool { return a.TotalPrice < b.TotalPrice },
	SortAvgPriceHigh:   func(a, b model.AggregatedProduct) bool { return a.AveragePrice > b.AveragePrice },
	SortAvgPriceLow:    func(a, b model.AggregatedProduct) bool { return a.AveragePrice < b.AveragePrice },
	SortMaxPriceHigh:   func(a, b model.AggregatedProduct) bool { return a.MaxPrice > b.MaxPrice },
	SortMaxPriceLow:    func(a, b model.AggregatedProduct) bool { return a.MaxPrice < b.MaxPrice },
}

// DefaultSortOrder is used when the caller expresses no preference.
const DefaultSortOrder = SortQuantityHigh

// ParseSortOrder validates a sort-order name.
func ParseSortOrder(name string) (SortOrder, error) {
	order := SortOrder(name)
	if _, ok := sortOrders[order]; !ok {
		return "", fmt.Errorf("unknown sort order %q", name)
	}
	return order, nil
}

// TopProducts returns the first n aggregated products under the given
// ordering. The input slice is left untouched; callers can re-query
// with different orderings.
func TopProducts(products []model.AggregatedProduct, order SortOrder, n int) []model.AggregatedProduct {
	less, ok := sortOrders[order]
	if !ok {
		less = sortOrders[DefaultSortOrder]
	}

	sorted := make([]model.AggregatedProduct, len(products))
	copy(sorted, products)
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })

	if n > len(sorted) {
		n = len(sorted)
	}
	if n < 0 {
		n = 0
	}
	return sorted[:n]
}
