package pipeline

import (
	"strings"

	"clubcard-pipeline/internal/model"
	"clubcard-pipeline/pkg/utils"
)

// ------------------- Store Directory -------------------

// storeVariant is one (name, format) spelling seen for a store id.
type storeVariant struct {
	name   string
	format string
}

// ResolveStores builds the immutable store directory for an export. It
// collects every distinct (name, format) variant per store id, prefers
// a variant whose name is not all-uppercase, and assigns palette colors
// in first-resolution order. Delivery artifacts miscategorized as
// physical stores (format "NA" with a GHS/Grocery name) are skipped,
// and the synthetic home-delivery store is injected when absent.
func ResolveStores(export *model.RawExport) *model.StoreDirectory {
	variants := make(map[string][]storeVariant)
	var order []string

	for _, batch := range export.Batches {
		for _, record := range batch {
			storeID := utils.Str(record["storeId"])
			storeName := utils.Str(record["storeName"])
			storeFormat := utils.Str(record["storeFormat"])

			if storeFormat == "NA" && (strings.Contains(storeName, "GHS") || strings.Contains(storeName, "Grocery")) {
				continue
			}

			if _, seen := variants[storeID]; !seen {
				order = append(order, storeID)
			}

			name := storeName
			if name == strings.ToUpper(name) {
				name = titleCase(name)
			}

			if hasVariant(variants[storeID], name, storeFormat) {
				continue
			}
			variants[storeID] = append(variants[storeID], storeVariant{name: name, format: storeFormat})
		}
	}

	if _, ok := variants[model.DeliveryStoreID]; !ok {
		order = append(order, model.DeliveryStoreID)
		variants[model.DeliveryStoreID] = []storeVariant{{name: "Home Delivery", format: "Delivery"}}
	}

	stores := make([]model.StoreInfo, 0, len(order))
	colorIndex := 0
	for _, storeID := range order {
		preferred := preferredVariant(variants[storeID])

		color := utils.DeliveryColor
		if preferred.format != "Delivery" {
			color = utils.ColorFor(colorIndex)
			colorIndex++
		}

		stores = append(stores, model.StoreInfo{
			StoreID:     storeID,
			StoreName:   preferred.name,
			StoreFormat: preferred.format,
			Color:       color,
		})
	}

	return model.NewStoreDirectory(stores)
}

func hasVariant(seen []storeVariant, name, format string) bool {
	for _, v := range seen {
		if strings.EqualFold(v.name, name) && v.format == format {
			return true
		}
	}
	return false
}

// preferredVariant picks the spelling that is not all-uppercase, falling
// back to the first one seen.
func preferredVariant(vs []storeVariant) storeVariant {
	for _, v := range vs {
		if v.name != strings.ToUpper(v.name) {
			return v
		}
	}
	return vs[0]
}

// titleCase lowercases an all-uppercase name and capitalises the first
// letter of each word.
func titleCase(s string) string {
	words := strings.Split(strings.ToLower(s), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
