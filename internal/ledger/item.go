package ledger

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Status tracks how badly an item needs buying.
type Status string

const (
	StatusDepleted   Status = "Depleted"
	StatusRunningLow Status = "Running Low"
	StatusStocked    Status = "Home Stocked"
)

// statusRank orders statuses most-urgent first for sorting.
var statusRank = map[Status]int{
	StatusDepleted:   1,
	StatusRunningLow: 2,
	StatusStocked:    3,
}

// NextStatus cycles Depleted -> Running Low -> Home Stocked -> Depleted.
func NextStatus(s Status) Status {
	switch s {
	case StatusDepleted:
		return StatusRunningLow
	case StatusRunningLow:
		return StatusStocked
	default:
		return StatusDepleted
	}
}

const (
	// MaxStores caps the store collection.
	MaxStores = 50

	// MaxStorePricesPerItem caps the price entries on a single item.
	MaxStorePricesPerItem = 10
)

// DefaultCategories is the built-in category set. Imported data may
// carry free-form categories outside this list; they are kept as-is.
var DefaultCategories = []string{
	"Produce", "Dairy", "Meat", "Pantry", "Frozen", "Household", "Snacks", "Other",
}

// StorePrice is one known price for an item at a named store. The
// store is referenced by name, not by ID; a deleted or renamed store
// leaves the entry dangling and the pricing resolver tolerates that.
type StorePrice struct {
	StoreName string  `json:"storeName"`
	Price     float64 `json:"price"`
}

// UnmarshalJSON accepts the price as a number or a numeric string, so
// hand-edited export files still import.
func (sp *StorePrice) UnmarshalJSON(data []byte) error {
	var raw struct {
		StoreName string          `json:"storeName"`
		Price     json.RawMessage `json:"price"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	sp.StoreName = raw.StoreName
	sp.Price = coerceFloat(raw.Price)
	return nil
}

func coerceFloat(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f
		}
	}
	return 0
}

// Item is a tracked essential.
type Item struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Category string       `json:"category"`
	Status   Status       `json:"status"`
	Quantity int          `json:"quantity"`
	Barcode  string       `json:"barcode,omitempty"`
	ImageURL string       `json:"imageUrl,omitempty"`
	Stores   []StorePrice `json:"stores"`
}

// Store is a named price source, reusable across items.
type Store struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ReceiptLine is one item as it looked when its receipt was logged.
// Lines are copies; later edits to the source item never reach them.
type ReceiptLine struct {
	ItemID        string   `json:"id"`
	Name          string   `json:"name"`
	Quantity      int      `json:"quantity"`
	CheapestPrice *float64 `json:"cheapestPrice"`
	CheapestStore string   `json:"cheapestStore"`
	Status        Status   `json:"status"`
}

// Receipt is an immutable snapshot of a shopping session.
type Receipt struct {
	ID             string        `json:"id"`
	Timestamp      time.Time     `json:"timestamp"`
	FilterUsed     string        `json:"filterUsed"`
	EstimatedTotal float64       `json:"estimatedTotal"`
	ItemCount      int           `json:"itemCount"`
	Items          []ReceiptLine `json:"items"`
}

// SanitizeItem normalizes an item before any write: name and category
// trimmed, quantity clamped to at least 1, store-price rows without a
// store name or a positive price dropped, at most
// MaxStorePricesPerItem rows kept. Dropped rows are silent; their
// count is returned so a caller may surface it. IDs are never assigned
// here.
func SanitizeItem(raw Item) (Item, int) {
	item := raw
	item.Name = strings.TrimSpace(item.Name)
	item.Category = strings.TrimSpace(item.Category)
	if item.Category == "" {
		item.Category = "Other"
	}
	if _, ok := statusRank[item.Status]; !ok {
		item.Status = StatusDepleted
	}
	if item.Quantity < 1 {
		item.Quantity = 1
	}

	dropped := 0
	stores := make([]StorePrice, 0, len(raw.Stores))
	for _, sp := range raw.Stores {
		sp.StoreName = strings.TrimSpace(sp.StoreName)
		if sp.StoreName == "" || sp.Price <= 0 || math.IsNaN(sp.Price) || math.IsInf(sp.Price, 0) {
			dropped++
			continue
		}
		if len(stores) == MaxStorePricesPerItem {
			dropped++
			continue
		}
		stores = append(stores, sp)
	}
	item.Stores = stores
	return item, dropped
}

// SanitizeStoreList trims store names, drops unnamed entries and
// truncates to MaxStores. Truncation is silent.
func SanitizeStoreList(raw []Store) []Store {
	stores := make([]Store, 0, len(raw))
	for _, s := range raw {
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			continue
		}
		stores = append(stores, s)
		if len(stores) == MaxStores {
			break
		}
	}
	return stores
}
