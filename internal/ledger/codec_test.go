package ledger

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ExportDocument", func() {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

	It("refuses an empty dataset", func() {
		_, err := ExportDocument(nil, nil, nil, now)
		Expect(err).To(MatchError(ErrNothingToExport))
	})

	It("bundles the collections with a UTC timestamp", func() {
		doc, err := ExportDocument([]Item{{ID: "1", Name: "Milk"}}, nil, nil, now)
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Items).To(HaveLen(1))
		Expect(doc.Timestamp).To(Equal(now))
	})

	It("exports when only one collection has content", func() {
		_, err := ExportDocument(nil, []Store{{ID: "1", Name: "Alpha"}}, nil, now)
		Expect(err).NotTo(HaveOccurred())
	})
})

var _ = Describe("DecodeDocument", func() {
	It("rejects malformed JSON", func() {
		_, err := DecodeDocument([]byte(`{broken`))
		Expect(err).To(MatchError(ErrInvalidDocument))
	})

	It("rejects a document without an items array", func() {
		_, err := DecodeDocument([]byte(`{"stores": []}`))
		Expect(err).To(MatchError(ErrInvalidDocument))
	})

	It("rejects a document without a stores array", func() {
		_, err := DecodeDocument([]byte(`{"items": []}`))
		Expect(err).To(MatchError(ErrInvalidDocument))
	})

	It("rejects non-array items", func() {
		_, err := DecodeDocument([]byte(`{"items": {}, "stores": []}`))
		Expect(err).To(MatchError(ErrInvalidDocument))
	})

	It("defaults missing receipts to empty", func() {
		doc, err := DecodeDocument([]byte(`{"items": [], "stores": []}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Receipts).To(BeEmpty())
	})

	It("defaults malformed receipts to empty instead of failing", func() {
		doc, err := DecodeDocument([]byte(`{"items": [], "stores": [], "receipts": "what"}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Receipts).To(BeEmpty())
	})

	It("sanitizes imported items", func() {
		doc, err := DecodeDocument([]byte(`{
			"items": [{"id": "1", "name": "  Milk ", "status": "Depleted", "quantity": 0,
				"stores": [{"storeName": "", "price": 2}]}],
			"stores": []
		}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Items[0].Name).To(Equal("Milk"))
		Expect(doc.Items[0].Quantity).To(Equal(1))
		Expect(doc.Items[0].Stores).To(BeEmpty())
	})

	It("truncates the store list to fifty", func() {
		stores := make([]Store, 60)
		for i := range stores {
			stores[i] = Store{ID: string(rune('a' + i%26)), Name: "Store"}
		}
		raw, err := json.Marshal(map[string]any{"items": []Item{}, "stores": stores})
		Expect(err).NotTo(HaveOccurred())

		doc, err := DecodeDocument(raw)
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Stores).To(HaveLen(MaxStores))
	})

	It("round-trips an exported document", func() {
		price := 2.50
		items := []Item{{ID: "1", Name: "Milk", Category: "Dairy", Status: StatusDepleted, Quantity: 2,
			Stores: []StorePrice{{StoreName: "Alpha", Price: 2.50}}}}
		stores := []Store{{ID: "s1", Name: "Alpha"}}
		receipts := []Receipt{{
			ID: "r1", Timestamp: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
			FilterUsed: "All", EstimatedTotal: 5.00, ItemCount: 1,
			Items: []ReceiptLine{{ItemID: "1", Name: "Milk", Quantity: 2,
				CheapestPrice: &price, CheapestStore: "Alpha", Status: StatusDepleted}},
		}}

		doc, err := ExportDocument(items, stores, receipts, time.Now())
		Expect(err).NotTo(HaveOccurred())
		raw, err := json.Marshal(doc)
		Expect(err).NotTo(HaveOccurred())

		decoded, err := DecodeDocument(raw)
		Expect(err).NotTo(HaveOccurred())
		Expect(decoded.Items).To(Equal(items))
		Expect(decoded.Stores).To(Equal(stores))
		Expect(decoded.Receipts).To(Equal(receipts))
	})
})
