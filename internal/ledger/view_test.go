package ledger

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ApplyView", func() {
	var items []Item

	BeforeEach(func() {
		items = []Item{
			{ID: "1", Name: "Milk", Category: "Dairy", Status: StatusDepleted, Quantity: 1,
				Stores: []StorePrice{{StoreName: "Alpha", Price: 2.00}}},
			{ID: "2", Name: "Bread", Category: "Pantry", Status: StatusStocked, Quantity: 2,
				Stores: []StorePrice{{StoreName: "Beta", Price: 1.50}}},
			{ID: "3", Name: "Mints", Category: "Snacks", Status: StatusRunningLow, Quantity: 1},
		}
	})

	Describe("search filter", func() {
		It("matches case-insensitive substrings of the name", func() {
			proj := ApplyView(items, "mi", DefaultView())
			names := []string{proj.Items[0].Name, proj.Items[1].Name}
			Expect(names).To(Equal([]string{"Milk", "Mints"}))
		})

		It("treats a whitespace-only term as a no-op", func() {
			Expect(ApplyView(items, "   ", DefaultView()).Items).To(HaveLen(3))
		})
	})

	Describe("status filter", func() {
		It("matches exactly for a single status", func() {
			proj := ApplyView(items, "", FilterMode(FilterDepleted))
			Expect(proj.Items).To(HaveLen(1))
			Expect(proj.Items[0].Name).To(Equal("Milk"))
		})

		It("unions depleted and running-low for the shopping cart", func() {
			proj := ApplyView(items, "", FilterMode(FilterCart))
			Expect(proj.Items).To(HaveLen(2))
		})

		It("composes with the search term", func() {
			proj := ApplyView(items, "mi", FilterMode(FilterCart))
			Expect(proj.Items).To(HaveLen(2))

			proj = ApplyView(items, "milk", FilterMode(FilterCart))
			Expect(proj.Items).To(HaveLen(1))
			Expect(proj.Items[0].Name).To(Equal("Milk"))
		})
	})

	Describe("sorting", func() {
		It("sorts by name, case-insensitive", func() {
			proj := ApplyView(items, "", SortMode(SortByName, Ascending))
			Expect(proj.Items[0].Name).To(Equal("Bread"))
			Expect(proj.Items[1].Name).To(Equal("Milk"))
			Expect(proj.Items[2].Name).To(Equal("Mints"))
		})

		It("reverses under the descending direction", func() {
			proj := ApplyView(items, "", SortMode(SortByName, Descending))
			Expect(proj.Items[0].Name).To(Equal("Mints"))
			Expect(proj.Items[2].Name).To(Equal("Bread"))
		})

		It("sorts by status rank, most urgent first", func() {
			proj := ApplyView(items, "", SortMode(SortByStatus, Ascending))
			Expect(proj.Items[0].Status).To(Equal(StatusDepleted))
			Expect(proj.Items[1].Status).To(Equal(StatusRunningLow))
			Expect(proj.Items[2].Status).To(Equal(StatusStocked))
		})

		It("sorts by cheapest price times quantity", func() {
			// Milk: 2.00x1, Bread: 1.50x2=3.00, Mints: no price
			proj := ApplyView(items, "", SortMode(SortByPrice, Ascending))
			Expect(proj.Items[0].Name).To(Equal("Milk"))
			Expect(proj.Items[1].Name).To(Equal("Bread"))
		})

		It("puts items without a price last when ascending", func() {
			proj := ApplyView(items, "", SortMode(SortByPrice, Ascending))
			Expect(proj.Items[2].Name).To(Equal("Mints"))
		})

		It("sorts by cheapest store name", func() {
			proj := ApplyView(items, "", SortMode(SortByStore, Ascending))
			Expect(proj.Items[0].Stores[0].StoreName).To(Equal("Alpha"))
		})

		It("is stable for equal keys", func() {
			equal := []Item{
				{ID: "a", Name: "First", Status: StatusDepleted, Quantity: 2,
					Stores: []StorePrice{{StoreName: "X", Price: 1.00}}},
				{ID: "b", Name: "Second", Status: StatusDepleted, Quantity: 1,
					Stores: []StorePrice{{StoreName: "Y", Price: 2.00}}},
				{ID: "c", Name: "Third", Status: StatusDepleted, Quantity: 4,
					Stores: []StorePrice{{StoreName: "Z", Price: 0.50}}},
			}
			proj := ApplyView(equal, "", SortMode(SortByPrice, Ascending))
			Expect(proj.Items[0].ID).To(Equal("a"))
			Expect(proj.Items[1].ID).To(Equal("b"))
			Expect(proj.Items[2].ID).To(Equal("c"))
		})
	})

	Describe("aggregates", func() {
		It("counts the visible items", func() {
			proj := ApplyView(items, "", FilterMode(FilterCart))
			Expect(proj.VisibleCount).To(Equal(2))
		})

		It("sums cheapest price times quantity over visible items only", func() {
			proj := ApplyView(items, "", DefaultView())
			// 2.00x1 + 1.50x2 + 0 (no price)
			Expect(proj.EstimatedTotal).To(BeNumerically("~", 5.00, 1e-9))

			proj = ApplyView(items, "", FilterMode(FilterDepleted))
			Expect(proj.EstimatedTotal).To(BeNumerically("~", 2.00, 1e-9))
		})
	})
})

var _ = Describe("ViewMode", func() {
	It("resets the filter to All when a sort is selected", func() {
		mode := SortMode(SortByName, Ascending)
		Expect(mode.Filter()).To(Equal(FilterAll))
	})

	It("discards the sort when a filter is selected", func() {
		mode := FilterMode(FilterCart)
		_, _, sorted := mode.Sort()
		Expect(sorted).To(BeFalse())
	})

	It("defaults an unknown direction to ascending", func() {
		_, dir, _ := SortMode(SortByName, "sideways").Sort()
		Expect(dir).To(Equal(Ascending))
	})

	Describe("Label", func() {
		It("describes a filter", func() {
			Expect(FilterMode(FilterCart).Label("")).To(Equal("Shopping Cart"))
		})

		It("describes a sort", func() {
			Expect(SortMode(SortByPrice, Descending).Label("")).To(Equal("sort:cheapestPrice-desc"))
		})

		It("includes the search term", func() {
			Expect(FilterMode(FilterAll).Label(" milk ")).To(Equal(`All search:"milk"`))
		})
	})
})
