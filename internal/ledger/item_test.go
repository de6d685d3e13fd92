package ledger

import (
	"encoding/json"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SanitizeItem", func() {
	It("trims the name and category", func() {
		item, _ := SanitizeItem(Item{Name: "  Milk  ", Category: " Dairy ", Status: StatusDepleted, Quantity: 1})
		Expect(item.Name).To(Equal("Milk"))
		Expect(item.Category).To(Equal("Dairy"))
	})

	It("defaults a blank category to Other", func() {
		item, _ := SanitizeItem(Item{Name: "Milk", Status: StatusDepleted, Quantity: 1})
		Expect(item.Category).To(Equal("Other"))
	})

	It("keeps free-form categories from imported data", func() {
		item, _ := SanitizeItem(Item{Name: "Milk", Category: "Apothecary", Status: StatusDepleted, Quantity: 1})
		Expect(item.Category).To(Equal("Apothecary"))
	})

	It("clamps quantities below 1", func() {
		for _, q := range []int{0, -1, -100} {
			item, _ := SanitizeItem(Item{Name: "Milk", Status: StatusDepleted, Quantity: q})
			Expect(item.Quantity).To(Equal(1))
		}
	})

	It("coerces an unknown status to Depleted", func() {
		item, _ := SanitizeItem(Item{Name: "Milk", Status: "Mystery", Quantity: 1})
		Expect(item.Status).To(Equal(StatusDepleted))
	})

	It("drops store rows without a name or positive price and counts them", func() {
		item, dropped := SanitizeItem(Item{
			Name:     "Milk",
			Status:   StatusDepleted,
			Quantity: 1,
			Stores: []StorePrice{
				{StoreName: "Alpha", Price: 2.00},
				{StoreName: "   ", Price: 1.00},
				{StoreName: "Beta", Price: 0},
				{StoreName: "Gamma", Price: -3},
			},
		})
		Expect(item.Stores).To(HaveLen(1))
		Expect(item.Stores[0].StoreName).To(Equal("Alpha"))
		Expect(dropped).To(Equal(3))
	})

	It("keeps at most ten store rows", func() {
		var stores []StorePrice
		for i := 0; i < 12; i++ {
			stores = append(stores, StorePrice{StoreName: fmt.Sprintf("Store %d", i), Price: 1.00})
		}
		item, dropped := SanitizeItem(Item{Name: "Milk", Status: StatusDepleted, Quantity: 1, Stores: stores})
		Expect(item.Stores).To(HaveLen(MaxStorePricesPerItem))
		Expect(dropped).To(Equal(2))
	})

	It("never assigns an ID", func() {
		item, _ := SanitizeItem(Item{Name: "Milk", Status: StatusDepleted, Quantity: 1})
		Expect(item.ID).To(BeEmpty())
	})
})

var _ = Describe("SanitizeStoreList", func() {
	It("trims names and drops empties", func() {
		stores := SanitizeStoreList([]Store{
			{ID: "1", Name: " Alpha "},
			{ID: "2", Name: "   "},
		})
		Expect(stores).To(HaveLen(1))
		Expect(stores[0].Name).To(Equal("Alpha"))
	})

	It("silently truncates to fifty entries", func() {
		var raw []Store
		for i := 0; i < 60; i++ {
			raw = append(raw, Store{ID: fmt.Sprintf("%d", i), Name: fmt.Sprintf("Store %d", i)})
		}
		Expect(SanitizeStoreList(raw)).To(HaveLen(MaxStores))
	})
})

var _ = Describe("NextStatus", func() {
	It("cycles through all three statuses", func() {
		Expect(NextStatus(StatusDepleted)).To(Equal(StatusRunningLow))
		Expect(NextStatus(StatusRunningLow)).To(Equal(StatusStocked))
		Expect(NextStatus(StatusStocked)).To(Equal(StatusDepleted))
	})
})

var _ = Describe("StorePrice JSON", func() {
	It("accepts numeric prices", func() {
		var sp StorePrice
		Expect(json.Unmarshal([]byte(`{"storeName":"Alpha","price":2.5}`), &sp)).To(Succeed())
		Expect(sp.Price).To(BeNumerically("~", 2.5, 1e-9))
	})

	It("coerces string prices", func() {
		var sp StorePrice
		Expect(json.Unmarshal([]byte(`{"storeName":"Alpha","price":" 2.5 "}`), &sp)).To(Succeed())
		Expect(sp.Price).To(BeNumerically("~", 2.5, 1e-9))
	})

	It("treats garbage prices as zero, leaving them to be dropped on save", func() {
		var sp StorePrice
		Expect(json.Unmarshal([]byte(`{"storeName":"Alpha","price":"cheap"}`), &sp)).To(Succeed())
		Expect(sp.Price).To(BeZero())
	})
})
