package ledger

// PriceOption is the cheapest known way to buy an item. Price is nil
// when no store entry carries a usable price, and StoreName is "N/A".
type PriceOption struct {
	Price     *float64 `json:"price"`
	StoreName string   `json:"storeName"`
}

// CheapestOption scans an item's store prices for the lowest positive
// price. Ties keep the earliest entry. Entries are capped at
// MaxStorePricesPerItem so a linear scan is all this needs.
func CheapestOption(item Item) PriceOption {
	best := PriceOption{StoreName: "N/A"}
	for _, sp := range item.Stores {
		if sp.Price <= 0 {
			continue
		}
		if best.Price == nil || sp.Price < *best.Price {
			price := sp.Price
			best = PriceOption{Price: &price, StoreName: sp.StoreName}
		}
	}
	return best
}

// lineCost is the cheapest price times quantity. ok is false when the
// item has no usable price; the cost is then 0.
func lineCost(item Item) (float64, bool) {
	opt := CheapestOption(item)
	if opt.Price == nil {
		return 0, false
	}
	return *opt.Price * float64(item.Quantity), true
}
