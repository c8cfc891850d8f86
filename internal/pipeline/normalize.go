package pipeline

import (
	"math"
	"regexp"
	"time"

	"clubcard-pipeline/internal/model"
	"clubcard-pipeline/pkg/utils"
)

// ------------------- Normalization -------------------

// substitutionRefund matches retailer-side correction rows that look
// like product lines but are not real purchases.
var substitutionRefund = regexp.MustCompile(`(?i)SUBSTITUTION.*REFUND`)

// timestampLayouts are tried in order when parsing export timestamps.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses an export timestamp. The zero time is returned
// for unparseable input so a malformed record keeps its slot instead of
// shifting its siblings.
func ParseTimestamp(s string) time.Time {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

// FlattenPurchases flattens the nested export into one purchase per
// transaction, preserving batch order and order within each batch.
// Null line-item quantities count as 1 item; "NA" savings become 0.
func FlattenPurchases(export *model.RawExport) []model.RawPurchase {
	var purchases []model.RawPurchase
	for _, batch := range export.Batches {
		for _, record := range batch {
			totalItems := 0
			if lines, ok := record["product"].([]interface{}); ok {
				for _, l := range lines {
					line, ok := l.(map[string]interface{})
					if !ok {
						continue
					}
					if line["quantity"] == nil {
						totalItems++
					} else {
						totalItems += int(utils.Numeric(line["quantity"]))
					}
				}
			}

			purchases = append(purchases, model.RawPurchase{
				TimeStamp:            utils.Str(record["timeStamp"]),
				StoreID:              utils.Str(record["storeId"]),
				StoreName:            utils.Str(record["storeName"]),
				StoreFormat:          utils.Str(record["storeFormat"]),
				PurchaseType:         utils.Str(record["purchaseType"]),
				BasketValueGross:     utils.Numeric(record["basketValueGross"]),
				BasketValueNet:       utils.Numeric(record["basketValueNet"]),
				OverallBasketSavings: savings(record["overallBasketSavings"]),
				TotalItems:           totalItems,
			})
		}
	}
	return purchases
}

// FlattenProducts flattens the nested export into one row per product
// line. Prices are stored unsigned; refunds carry their sign only in
// the source document.
func FlattenProducts(export *model.RawExport) []model.RawProduct {
	var products []model.RawProduct
	for _, batch := range export.Batches {
		for _, record := range batch {
			lines, ok := record["product"].([]interface{})
			if !ok {
				continue
			}
			for _, l := range lines {
				line, ok := l.(map[string]interface{})
				if !ok {
					continue
				}
				products = append(products, model.RawProduct{
					Name:           utils.Str(line["name"]),
					Quantity:       optionalInt(line["quantity"]),
					Price:          math.Abs(utils.Numeric(line["price"])),
					WeightInGrams:  optionalFloat(line["weightInGrams"]),
					VolumeInLitres: optionalFloat(line["volumeInLitres"]),
					PurchaseType:   utils.Str(line["channel"]),
					StoreID:        utils.Str(record["storeId"]),
					StoreName:      utils.Str(record["storeName"]),
					StoreFormat:    utils.Str(record["storeFormat"]),
					TimeStamp:      utils.Str(record["timeStamp"]),
				})
			}
		}
	}
	return products
}

// NormalizePurchases resolves store identity for flattened purchases.
// Delivery orders are always regrouped under the synthetic delivery
// store regardless of the store id on the record.
func NormalizePurchases(raw []model.RawPurchase, stores *model.StoreDirectory) []model.Purchase {
	purchases := make([]model.Purchase, 0, len(raw))
	for _, p := range raw {
		storeID := EffectiveStoreID(p.StoreID, p.PurchaseType)
		name, format := storeIdentity(stores, storeID)

		purchases = append(purchases, model.Purchase{
			Date:                 ParseTimestamp(p.TimeStamp),
			StoreID:              storeID,
			StoreName:            name,
			StoreFormat:          format,
			PurchaseType:         utils.MapPurchaseType(p.PurchaseType),
			BasketValueGross:     p.BasketValueGross,
			BasketValueNet:       p.BasketValueNet,
			OverallBasketSavings: p.OverallBasketSavings,
			TotalItems:           p.TotalItems,
		})
	}
	return purchases
}

// NormalizeProducts resolves store identity for flattened product lines
// and drops the rows that are not real purchases: substitution-refund
// corrections and zero-price lines.
func NormalizeProducts(raw []model.RawProduct, stores *model.StoreDirectory) []model.Product {
	var products []model.Product
	for _, p := range raw {
		if substitutionRefund.MatchString(p.Name) || p.Price == 0 {
			continue
		}

		storeID := EffectiveStoreID(p.StoreID, p.PurchaseType)
		name, format := storeIdentity(stores, storeID)

		quantity := 1
		if p.Quantity != nil {
			quantity = *p.Quantity
		}

		products = append(products, model.Product{
			Name:         p.Name,
			Quantity:     quantity,
			Price:        p.Price,
			PurchaseType: utils.MapPurchaseType(p.PurchaseType),
			StoreID:      storeID,
			StoreName:    name,
			StoreFormat:  format,
			Date:         ParseTimestamp(p.TimeStamp),
		})
	}
	return products
}

// EffectiveStoreID substitutes the synthetic delivery store for
// delivery orders.
func EffectiveStoreID(storeID, purchaseType string) string {
	if utils.MapPurchaseType(purchaseType) == "Delivery" {
		return model.DeliveryStoreID
	}
	return storeID
}

func storeIdentity(stores *model.StoreDirectory, storeID string) (name, format string) {
	if info, ok := stores.Lookup(storeID); ok {
		return info.StoreName, info.StoreFormat
	}
	return "Unknown", "Unknown"
}

func savings(v interface{}) float64 {
	if utils.Str(v) == "NA" {
		return 0
	}
	return utils.Numeric(v)
}

func optionalInt(v interface{}) *int {
	if v == nil {
		return nil
	}
	n := int(utils.Numeric(v))
	return &n
}

func optionalFloat(v interface{}) *float64 {
	if v == nil {
		return nil
	}
	f := utils.Numeric(v)
	return &f
}
