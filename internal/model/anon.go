package model

// AnonPurchase is the de-identified view of one shopping trip. The store
// name is gone, the timestamp is truncated to a calendar date, and the
// basket values carry a fresh random offset each. Hash is an opaque join
// key across the contributor's own submitted tables only.
type AnonPurchase struct {
	Date                 string  `json:"date"`
	StoreID              string  `json:"storeId"`
	StoreFormat          string  `json:"storeFormat"`
	PurchaseType         string  `json:"purchaseType"`
	BasketValueGross     string  `json:"basketValueGross"`
	BasketValueNet       string  `json:"basketValueNet"`
	OverallBasketSavings float64 `json:"overallBasketSavings"`
	TotalItems           int     `json:"totalItems"`
	Hash                 string  `json:"hash"`
}

// AnonProduct is the de-identified view of one product line.
type AnonProduct struct {
	Date        string  `json:"date"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	StoreID     string  `json:"storeId"`
	StoreFormat string  `json:"storeFormat"`
	Hash        string  `json:"hash"`
}

// AnonWeekly is one row of the anonymized weekly export. The range of
// weeks is contiguous: weeks without activity appear explicitly with
// zero totals. Submission and Outcode are shared by the whole batch;
// gross and net share one offset per week.
type AnonWeekly struct {
	WeekCommencing            string  `json:"weekCommencing"`
	Submission                string  `json:"submission"`
	Outcode                   string  `json:"outcode"`
	TotalBasketValueGross     string  `json:"totalBasketValueGross"`
	TotalBasketValueNet       string  `json:"totalBasketValueNet"`
	TotalOverallBasketSavings float64 `json:"totalOverallBasketSavings"`
	TotalItems                int     `json:"totalItems"`
}
