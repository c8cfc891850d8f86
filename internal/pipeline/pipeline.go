package pipeline

import (
	"sync"
	"time"

	"clubcard-pipeline/internal/model"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("log")

// Options carries the per-run inputs that do not come from the export
// itself.
type Options struct {
	// Postcode overrides the postcode found in the export. When both
	// are empty the placeholder postcode is used so the outcode stays
	// well-formed.
	Postcode string
}

// placeholderPostcode keeps anonymized weekly rows well-formed when no
// postcode is known.
const placeholderPostcode = "XX0 0XX"

// ------------------- Pipeline Runner -------------------

// Run executes the full normalization and aggregation pipeline over one
// raw export file and returns a fresh immutable session. A new file
// load replaces the previous session wholesale; nothing is mutated
// across runs. Validation failures abort before any state is derived.
func Run(data []byte, opts Options) (*model.Session, error) {
	start := time.Now()

	export, err := ParseExport(data)
	if err != nil {
		return nil, err
	}
	log.Infof("Parsed export: %d batches, %d transactions", len(export.Batches), export.TransactionCount())

	stores := ResolveStores(export)
	log.Infof("Resolved %d stores", stores.Len())

	rawPurchases := FlattenPurchases(export)
	rawProducts := FlattenProducts(export)

	// The two normalization passes are independent; run them side by
	// side the way the rest of the stages fan out.
	var purchases []model.Purchase
	var products []model.Product
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		purchases = NormalizePurchases(rawPurchases, stores)
	}()
	go func() {
		defer wg.Done()
		products = NormalizeProducts(rawProducts, stores)
	}()
	wg.Wait()

	session := &model.Session{
		Stores:             stores,
		RawPurchases:       rawPurchases,
		RawProducts:        rawProducts,
		Purchases:          purchases,
		Products:           products,
		WeeklyPurchases:    AggregateByWeek(purchases),
		AggregatedProducts: AggregateProducts(products),
		Postcode:           resolvePostcode(opts.Postcode, export.Postcode),
	}

	log.Infof("Pipeline completed in %v: %d purchases, %d products, %d weekly rows",
		time.Since(start), len(session.Purchases), len(session.Products), len(session.WeeklyPurchases))
	return session, nil
}

func resolvePostcode(override, fromExport string) string {
	if override != "" {
		return override
	}
	if fromExport != "" {
		return fromExport
	}
	return placeholderPostcode
}
