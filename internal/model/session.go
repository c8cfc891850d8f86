package model

// StoreDirectory is the immutable store-identity lookup built once per
// loaded file. IDs keep first-resolution order for stable color
// assignment and rendering.
type StoreDirectory struct {
	byID  map[string]StoreInfo
	order []string
}

// NewStoreDirectory builds a directory from resolved stores in
// assignment order.
func NewStoreDirectory(stores []StoreInfo) *StoreDirectory {
	d := &StoreDirectory{byID: make(map[string]StoreInfo, len(stores))}
	for _, s := range stores {
		if _, ok := d.byID[s.StoreID]; ok {
			continue
		}
		d.byID[s.StoreID] = s
		d.order = append(d.order, s.StoreID)
	}
	return d
}

// Lookup returns the resolved identity for a store id.
func (d *StoreDirectory) Lookup(storeID string) (StoreInfo, bool) {
	s, ok := d.byID[storeID]
	return s, ok
}

// All returns the resolved stores in first-resolution order.
func (d *StoreDirectory) All() []StoreInfo {
	out := make([]StoreInfo, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.byID[id])
	}
	return out
}

// Len returns the number of resolved stores.
func (d *StoreDirectory) Len() int { return len(d.order) }

// Session holds every collection derived from one loaded export. A new
// file load produces a fresh Session; nothing here is mutated after the
// pipeline returns it.
type Session struct {
	Stores             *StoreDirectory
	RawPurchases       []RawPurchase
	RawProducts        []RawProduct
	Purchases          []Purchase
	Products           []Product
	WeeklyPurchases    []WeeklyAggregate
	AggregatedProducts []AggregatedProduct
	Postcode           string
}
