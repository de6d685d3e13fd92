package ledger

import (
	"encoding/json"
	"fmt"
	"time"
)

// Document is the portable dump of the whole dataset.
type Document struct {
	Items     []Item    `json:"items"`
	Stores    []Store   `json:"stores"`
	Receipts  []Receipt `json:"receipts"`
	Timestamp time.Time `json:"timestamp"`
}

// ExportDocument bundles the three collections verbatim with an
// export timestamp. Refuses to produce an empty document.
func ExportDocument(items []Item, stores []Store, receipts []Receipt, now time.Time) (Document, error) {
	if len(items) == 0 && len(stores) == 0 && len(receipts) == 0 {
		return Document{}, ErrNothingToExport
	}
	return Document{
		Items:     items,
		Stores:    stores,
		Receipts:  receipts,
		Timestamp: now.UTC(),
	}, nil
}

// DecodeDocument parses and validates an import payload. The items
// and stores arrays must both be present; receipts default to empty
// when absent or malformed. Every item passes through SanitizeItem
// and the store list through SanitizeStoreList. Any failure rejects
// the whole document.
func DecodeDocument(raw []byte) (Document, error) {
	var probe struct {
		Items     json.RawMessage `json:"items"`
		Stores    json.RawMessage `json:"stores"`
		Receipts  json.RawMessage `json:"receipts"`
		Timestamp time.Time       `json:"timestamp"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if !isJSONArray(probe.Items) || !isJSONArray(probe.Stores) {
		return Document{}, fmt.Errorf("%w: items and stores arrays are required", ErrInvalidDocument)
	}

	var doc Document
	if err := json.Unmarshal(probe.Items, &doc.Items); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := json.Unmarshal(probe.Stores, &doc.Stores); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if isJSONArray(probe.Receipts) {
		if err := json.Unmarshal(probe.Receipts, &doc.Receipts); err != nil {
			doc.Receipts = nil
		}
	}
	if doc.Receipts == nil {
		doc.Receipts = []Receipt{}
	}

	for i := range doc.Items {
		doc.Items[i], _ = SanitizeItem(doc.Items[i])
	}
	doc.Stores = SanitizeStoreList(doc.Stores)
	doc.Timestamp = probe.Timestamp
	return doc, nil
}

func isJSONArray(raw json.RawMessage) bool {
	for _, c := range raw {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return c == '['
		}
	}
	return false
}
