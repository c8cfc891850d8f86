package model

import "time"

// GenericRecord is a schema-agnostic map for one raw transaction or line
// item as decoded from the export JSON.
type GenericRecord map[string]interface{}

// RawExport is the validated shape of a loyalty-card data export: an
// ordered sequence of batches, each an ordered sequence of transactions.
type RawExport struct {
	Batches  [][]GenericRecord
	Postcode string // contributor postcode from the profile block, may be empty
}

// TransactionCount is the number of transactions across all batches.
func (e *RawExport) TransactionCount() int {
	n := 0
	for _, batch := range e.Batches {
		n += len(batch)
	}
	return n
}

// StoreInfo is the resolved identity of one store.
type StoreInfo struct {
	StoreID     string `json:"storeId"`
	StoreName   string `json:"storeName"`
	StoreFormat string `json:"storeFormat"`
	Color       string `json:"color"`
}

// DeliveryStoreID groups every delivery order under one synthetic store.
const DeliveryStoreID = "9999"

// RawPurchase is one shopping trip flattened from the export, before
// store identity resolution.
type RawPurchase struct {
	TimeStamp            string  `json:"timeStamp"`
	StoreID              string  `json:"storeId"`
	StoreName            string  `json:"storeName"`
	StoreFormat          string  `json:"storeFormat"`
	PurchaseType         string  `json:"purchaseType"`
	BasketValueGross     float64 `json:"basketValueGross"`
	BasketValueNet       float64 `json:"basketValueNet"`
	OverallBasketSavings float64 `json:"overallBasketSavings"`
	TotalItems           int     `json:"totalItems"`
}

// RawProduct is one product line flattened from the export, before
// filtering and store identity resolution. Quantity is nil when the
// export carried null.
type RawProduct struct {
	Name           string   `json:"name"`
	Quantity       *int     `json:"quantity"`
	Price          float64  `json:"price"`
	WeightInGrams  *float64 `json:"weightInGrams"`
	VolumeInLitres *float64 `json:"volumeInLitres"`
	PurchaseType   string   `json:"purchaseType"`
	StoreID        string   `json:"storeId"`
	StoreName      string   `json:"storeName"`
	StoreFormat    string   `json:"storeFormat"`
	TimeStamp      string   `json:"timeStamp"`
}

// Purchase is a normalized shopping trip with resolved store identity.
type Purchase struct {
	Date                 time.Time `json:"date"`
	StoreID              string    `json:"storeId"`
	StoreName            string    `json:"storeName"`
	StoreFormat          string    `json:"storeFormat"`
	PurchaseType         string    `json:"purchaseType"`
	BasketValueGross     float64   `json:"basketValueGross"`
	BasketValueNet       float64   `json:"basketValueNet"`
	OverallBasketSavings float64   `json:"overallBasketSavings"`
	TotalItems           int       `json:"totalItems"`
}

// Product is a normalized product line with resolved store identity.
// Substitution-refund and zero-price lines never make it here.
type Product struct {
	Name         string    `json:"name"`
	Quantity     int       `json:"quantity"`
	Price        float64   `json:"price"`
	PurchaseType string    `json:"purchaseType"`
	StoreID      string    `json:"storeId"`
	StoreName    string    `json:"storeName"`
	StoreFormat  string    `json:"storeFormat"`
	Date         time.Time `json:"date"`
}

// WeeklyAggregate accumulates spend for one (week, format, channel) key.
type WeeklyAggregate struct {
	WeekCommencing       time.Time `json:"weekCommencing"`
	StoreFormat          string    `json:"storeFormat"`
	PurchaseType         string    `json:"purchaseType"`
	BasketValueGross     float64   `json:"basketValueGross"`
	BasketValueNet       float64   `json:"basketValueNet"`
	OverallBasketSavings float64   `json:"overallBasketSavings"`
	TotalItems           int       `json:"totalItems"`
}

// AggregatedProduct carries lifetime price statistics for one product
// name.
type AggregatedProduct struct {
	Name          string  `json:"name"`
	TotalQuantity int     `json:"totalQuantity"`
	MinPrice      float64 `json:"minPrice"`
	MaxPrice      float64 `json:"maxPrice"`
	TotalPrice    float64 `json:"totalPrice"`
	AveragePrice  float64 `json:"averagePrice"`
}
