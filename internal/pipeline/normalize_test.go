package pipeline_test

import (
	"testing"
	"time"

	"clubcard-pipeline/internal/model"
	"clubcard-pipeline/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	got := pipeline.ParseTimestamp("2024-01-01 10:30:00")
	assert.Equal(t, time.Date(2024, 1, 1, 10, 30, 0, 0, time.Local), got)

	got = pipeline.ParseTimestamp("2024-01-01T10:30:00")
	assert.Equal(t, time.Date(2024, 1, 1, 10, 30, 0, 0, time.Local), got)

	got = pipeline.ParseTimestamp("2024-01-01")
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local), got)

	assert.True(t, pipeline.ParseTimestamp("not a date").IsZero())
	assert.True(t, pipeline.ParseTimestamp("").IsZero())
}

func TestFlattenPurchases(t *testing.T) {
	export, err := pipeline.ParseExport([]byte(sampleExportJSON))
	require.NoError(t, err)

	purchases := pipeline.FlattenPurchases(export)
	require.Len(t, purchases, 2)

	first := purchases[0]
	assert.Equal(t, "4425", first.StoreID)
	assert.Equal(t, 12.5, first.BasketValueGross)
	assert.Equal(t, 10.0, first.BasketValueNet)
	assert.Equal(t, 2.5, first.OverallBasketSavings)
	// quantities 2 + null (counted as 1) + 1 + 1
	assert.Equal(t, 5, first.TotalItems)

	second := purchases[1]
	assert.Equal(t, "2006", second.StoreID)
	// "NA" savings normalize to zero
	assert.Equal(t, 0.0, second.OverallBasketSavings)
	assert.Equal(t, 3, second.TotalItems)
}

func TestFlattenProductsKeepsEveryLine(t *testing.T) {
	export, err := pipeline.ParseExport([]byte(sampleExportJSON))
	require.NoError(t, err)

	products := pipeline.FlattenProducts(export)
	require.Len(t, products, 5)

	// refund prices are stored unsigned
	assert.Equal(t, "Bread", products[1].Name)
	assert.Equal(t, 1.0, products[1].Price)
	assert.Nil(t, products[1].Quantity)
	require.NotNil(t, products[1].WeightInGrams)
	assert.Equal(t, 800.0, *products[1].WeightInGrams)

	assert.Equal(t, 1.5, products[2].Price)
}

func TestNormalizePurchasesResolvesDeliveries(t *testing.T) {
	session := mustSession(t)
	require.Len(t, session.Purchases, 2)

	delivery := session.Purchases[1]
	assert.Equal(t, model.DeliveryStoreID, delivery.StoreID)
	assert.Equal(t, "Home Delivery", delivery.StoreName)
	assert.Equal(t, "Delivery", delivery.StoreFormat)
	assert.Equal(t, "Delivery", delivery.PurchaseType)

	inStore := session.Purchases[0]
	assert.Equal(t, "4425", inStore.StoreID)
	assert.Equal(t, "Tesco Express London", inStore.StoreName)
	assert.Equal(t, "In store", inStore.PurchaseType)
}

func TestNormalizePurchasesKeepsUnparseableTimestamps(t *testing.T) {
	raw := []model.RawPurchase{{TimeStamp: "garbage", StoreID: "1", PurchaseType: "in_store"}}
	stores := model.NewStoreDirectory(nil)

	purchases := pipeline.NormalizePurchases(raw, stores)
	require.Len(t, purchases, 1)
	assert.True(t, purchases[0].Date.IsZero())
	assert.Equal(t, "Unknown", purchases[0].StoreName)
}

func TestNormalizeProductsDropsNonPurchases(t *testing.T) {
	session := mustSession(t)
	require.Len(t, session.Products, 3)

	for _, p := range session.Products {
		assert.NotContains(t, p.Name, "SUBSTITUTION")
		assert.NotZero(t, p.Price)
	}

	// null quantity counts as one item
	assert.Equal(t, "Bread", session.Products[1].Name)
	assert.Equal(t, 1, session.Products[1].Quantity)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	export, err := pipeline.ParseExport([]byte(sampleExportJSON))
	require.NoError(t, err)
	stores := pipeline.ResolveStores(export)

	raw := pipeline.FlattenPurchases(export)
	once := pipeline.NormalizePurchases(raw, stores)
	twice := pipeline.NormalizePurchases(raw, stores)
	assert.Equal(t, once, twice)

	rawProducts := pipeline.FlattenProducts(export)
	assert.Equal(t,
		pipeline.NormalizeProducts(rawProducts, stores),
		pipeline.NormalizeProducts(rawProducts, stores))
}

func TestEffectiveStoreID(t *testing.T) {
	assert.Equal(t, model.DeliveryStoreID, pipeline.EffectiveStoreID("2006", "ghs"))
	assert.Equal(t, model.DeliveryStoreID, pipeline.EffectiveStoreID("2006", "GHS"))
	assert.Equal(t, "4425", pipeline.EffectiveStoreID("4425", "in_store"))
}
