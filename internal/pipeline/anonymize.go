package pipeline

import (
	"fmt"
	"sync"

	"clubcard-pipeline/internal/model"
	"clubcard-pipeline/pkg/utils"

	"github.com/google/uuid"
)

// ------------------- Anonymization -------------------

// Anonymizer produces the de-identified exports for one session. The
// hash family is fixed per deployment; offsets and the submission id
// are drawn fresh for every batch.
type Anonymizer struct {
	Hash utils.HashFamily
}

// Bundle holds the three anonymized payloads destined for contribution.
type Bundle struct {
	Purchases []model.AnonPurchase
	Products  []model.AnonProduct
	Weekly    []model.AnonWeekly
}

// Anonymize derives the full anonymized bundle from a session. A
// failure on one record drops that record only; the rest proceed.
func (a Anonymizer) Anonymize(session *model.Session) *Bundle {
	return &Bundle{
		Purchases: a.AnonymizePurchases(session.RawPurchases),
		Products:  a.AnonymizeProducts(session.RawProducts),
		Weekly:    a.AnonymizeWeekly(session.WeeklyPurchases, Outcode(session.Postcode)),
	}
}

// AnonymizePurchases hashes and perturbs every flattened purchase. The
// store name is dropped, the timestamp truncated to a calendar date,
// and gross/net shifted by a fresh offset per record so exact values
// cannot be recovered even for records sharing a day and store. Hashes
// are computed concurrently; output order matches input order because
// results are collected by position.
func (a Anonymizer) AnonymizePurchases(raw []model.RawPurchase) []model.AnonPurchase {
	slots := make([]*model.AnonPurchase, len(raw))

	var wg sync.WaitGroup
	for i, p := range raw {
		wg.Add(1)
		go func(i int, p model.RawPurchase) {
			defer wg.Done()
			rec, err := a.anonymizePurchase(p)
			if err != nil {
				log.Warningf("Dropping purchase at %s from anonymized output: %v", p.TimeStamp, err)
				return
			}
			slots[i] = rec
		}(i, p)
	}
	wg.Wait()

	return collect(slots)
}

func (a Anonymizer) anonymizePurchase(p model.RawPurchase) (*model.AnonPurchase, error) {
	date := ParseTimestamp(p.TimeStamp)
	if date.IsZero() {
		return nil, fmt.Errorf("unparseable timestamp %q", p.TimeStamp)
	}

	storeID := EffectiveStoreID(p.StoreID, p.PurchaseType)
	input := fmt.Sprintf("%s-%s-%s-%s-%d",
		p.TimeStamp,
		storeID,
		utils.FormatNumber(p.BasketValueNet),
		utils.FormatNumber(p.OverallBasketSavings),
		p.TotalItems,
	)
	hash, err := a.Hash.Hash(input)
	if err != nil {
		return nil, fmt.Errorf("hashing purchase: %w", err)
	}

	offset := utils.RandomOffset(utils.OffsetRange)
	return &model.AnonPurchase{
		Date:                 utils.FormatISODate(date),
		StoreID:              storeID,
		StoreFormat:          p.StoreFormat,
		PurchaseType:         utils.MapPurchaseType(p.PurchaseType),
		BasketValueGross:     utils.Perturb(p.BasketValueGross, offset),
		BasketValueNet:       utils.Perturb(p.BasketValueNet, offset),
		OverallBasketSavings: p.OverallBasketSavings,
		TotalItems:           p.TotalItems,
		Hash:                 hash,
	}, nil
}

// AnonymizeProducts hashes every flattened product line, truncating the
// purchase timestamp to a calendar date and dropping the store name.
func (a Anonymizer) AnonymizeProducts(raw []model.RawProduct) []model.AnonProduct {
	slots := make([]*model.AnonProduct, len(raw))

	var wg sync.WaitGroup
	for i, p := range raw {
		wg.Add(1)
		go func(i int, p model.RawProduct) {
			defer wg.Done()
			rec, err := a.anonymizeProduct(p)
			if err != nil {
				log.Warningf("Dropping product %q from anonymized output: %v", p.Name, err)
				return
			}
			slots[i] = rec
		}(i, p)
	}
	wg.Wait()

	return collect(slots)
}

func (a Anonymizer) anonymizeProduct(p model.RawProduct) (*model.AnonProduct, error) {
	date := ParseTimestamp(p.TimeStamp)
	if date.IsZero() {
		return nil, fmt.Errorf("unparseable timestamp %q", p.TimeStamp)
	}

	storeID := EffectiveStoreID(p.StoreID, p.PurchaseType)
	day := utils.FormatISODate(date)
	input := fmt.Sprintf("%s-%s-%s-%s", day, p.Name, utils.FormatNumber(p.Price), storeID)
	hash, err := a.Hash.Hash(input)
	if err != nil {
		return nil, fmt.Errorf("hashing product: %w", err)
	}

	return &model.AnonProduct{
		Date:        day,
		Name:        p.Name,
		Price:       p.Price,
		StoreID:     storeID,
		StoreFormat: p.StoreFormat,
		Hash:        hash,
	}, nil
}

// AnonymizeWeekly rebuilds the full contiguous week range between the
// first and last observed weeks, so weeks without activity appear as
// explicit zero rows rather than silent gaps. One offset per week is
// shared across that week's gross and net totals, and one outcode and
// one submission id cover the whole batch.
func (a Anonymizer) AnonymizeWeekly(weekly []model.WeeklyAggregate, outcode string) []model.AnonWeekly {
	if len(weekly) == 0 {
		return nil
	}

	submission := uuid.NewString()

	start := WeekCommencing(weekly[0].WeekCommencing)
	end := WeekCommencing(weekly[len(weekly)-1].WeekCommencing)
	for _, w := range weekly {
		week := WeekCommencing(w.WeekCommencing)
		if week.Before(start) {
			start = week
		}
		if week.After(end) {
			end = week
		}
	}

	totals := make(map[string]*model.AnonWeekly)
	var order []string
	for week := start; !week.After(end); week = week.AddDate(0, 0, 7) {
		key := utils.FormatISODate(week)
		totals[key] = &model.AnonWeekly{
			WeekCommencing: key,
			Submission:     submission,
			Outcode:        outcode,
		}
		order = append(order, key)
	}

	type weekSums struct{ gross, net, savings float64 }
	sums := make(map[string]*weekSums)
	for _, w := range weekly {
		key := utils.FormatISODate(WeekCommencing(w.WeekCommencing))
		row, ok := totals[key]
		if !ok {
			continue
		}
		s, ok := sums[key]
		if !ok {
			s = &weekSums{}
			sums[key] = s
		}
		s.gross += w.BasketValueGross
		s.net += w.BasketValueNet
		s.savings += w.OverallBasketSavings
		row.TotalItems += w.TotalItems
	}

	out := make([]model.AnonWeekly, 0, len(order))
	for _, key := range order {
		row := totals[key]
		s := sums[key]
		if s == nil {
			s = &weekSums{}
		}
		offset := utils.RandomOffset(utils.OffsetRange)
		row.TotalBasketValueGross = utils.Perturb(s.gross, offset)
		row.TotalBasketValueNet = utils.Perturb(s.net, offset)
		row.TotalOverallBasketSavings = s.savings
		out = append(out, *row)
	}
	return out
}

// Outcode extracts the outward portion of a UK postcode: everything
// before the first space, or positionally the first 3 characters of a
// 6-character postcode and the first 4 otherwise.
func Outcode(postcode string) string {
	if postcode == "" {
		return ""
	}
	for i, r := range postcode {
		if r == ' ' {
			return postcode[:i]
		}
	}
	if len(postcode) == 6 {
		return postcode[:3]
	}
	if len(postcode) > 4 {
		return postcode[:4]
	}
	return postcode
}

func collect[T any](slots []*T) []T {
	out := make([]T, 0, len(slots))
	for _, s := range slots {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out
}
