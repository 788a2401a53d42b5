package bill

import (
	"math/rand/v2"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Selection", func() {
	var (
		coffee = Item{ID: "coffee", Name: "Coffee", Quantity: 2, UnitPrice: 3.5, TotalPrice: 7}
		shared = Item{ID: "shared", Name: "Fries", Quantity: 0.5, UnitPrice: 6, TotalPrice: 3}
	)

	It("starts empty", func() {
		var sel Selection
		Expect(sel.Len()).To(Equal(0))
		Expect(sel.Items()).To(BeEmpty())
	})

	It("selects one unit by default", func() {
		sel := Selection{}.Select(coffee)
		Expect(sel.Quantity("coffee")).To(Equal(1.0))
	})

	It("selects fractional items at their full quantity", func() {
		sel := Selection{}.Select(shared)
		Expect(sel.Quantity("shared")).To(Equal(0.5))
	})

	It("toggles items in and out", func() {
		sel := Selection{}.Toggle(coffee)
		Expect(sel.Has("coffee")).To(BeTrue())
		sel = sel.Toggle(coffee)
		Expect(sel.Has("coffee")).To(BeFalse())
	})

	It("keeps selection order", func() {
		sel := Selection{}.Select(shared).Select(coffee)
		items := sel.Items()
		Expect(items[0].ID).To(Equal("shared"))
		Expect(items[1].ID).To(Equal("coffee"))
	})

	It("never mutates the receiver", func() {
		base := Selection{}.Select(coffee)
		_ = base.SetQuantity("coffee", 2)
		_ = base.Deselect("coffee")
		_ = base.Select(shared)
		Expect(base.Len()).To(Equal(1))
		Expect(base.Quantity("coffee")).To(Equal(1.0))
	})

	It("ignores quantities for unselected items", func() {
		sel := Selection{}.SetQuantity("coffee", 2)
		Expect(sel.Has("coffee")).To(BeFalse())
	})

	It("keeps out of range input until clamped", func() {
		sel := Selection{}.Select(coffee).SetQuantity("coffee", 5)
		Expect(sel.Quantity("coffee")).To(Equal(5.0))

		clamped := sel.Clamp()
		Expect(clamped.Quantity("coffee")).To(Equal(2.0))

		clamped = sel.SetQuantity("coffee", -1).Clamp()
		Expect(clamped.Quantity("coffee")).To(Equal(0.0))
	})
})

var _ = Describe("Allocate", func() {
	It("splits a quantity-2 item with service charge and tax", func() {
		item := Item{ID: "a", Quantity: 2, UnitPrice: 10, TotalPrice: 20}
		sel := Selection{}.Select(item).SetQuantity("a", 2)

		b := Allocate(sel, 10, 8)
		Expect(b.Subtotal).To(Equal(20.0))
		Expect(b.ServiceChargeAmount).To(Equal(2.0))
		Expect(b.TaxAmount).To(Equal(1.76))
		Expect(b.Total).To(Equal(23.76))
	})

	It("returns a zero bill for an empty selection", func() {
		b := Allocate(Selection{}, 10, 8)
		Expect(b.Total).To(Equal(0.0))
		Expect(b.SelectedItems).To(BeEmpty())
	})

	It("grows with the selected quantity", func() {
		item := Item{ID: "a", Quantity: 10, UnitPrice: 4.33, TotalPrice: 43.3}
		prev := -1.0
		for q := 0.0; q <= 10; q += 0.5 {
			b := Allocate(Selection{}.Select(item).SetQuantity("a", q), 12.5, 7.25)
			Expect(b.Total).To(BeNumerically(">=", prev))
			prev = b.Total
		}
	})

	It("matches the receipt total when everything is selected", func() {
		rng := rand.New(rand.NewPCG(uint64(GinkgoRandomSeed()), 4))
		for i := 0; i < 200; i++ {
			r := Receipt{
				ServiceChargePercent: float64(rng.IntN(21)),
				TaxPercent:           float64(rng.IntN(1501)) / 100,
			}
			r = WithItems(r, randomItems(rng, 1+rng.IntN(20)))

			var sel Selection
			for _, it := range r.Items {
				sel = sel.Select(it).SetQuantity(it.ID, it.Quantity)
			}

			b := AllocateReceipt(r, sel)
			Expect(b.Subtotal).To(BeNumerically("~", r.Subtotal, 0.005))
			Expect(b.Total).To(BeNumerically("~", r.Total, 0.011))
		}
	})

	It("adds extracted items back up to the receipt", func() {
		r := FromRaw(RawReceipt{
			Items: []RawItem{
				{Name: "Dumplings", Quantity: 3.0, TotalPrice: 10.0},
				{Name: "Buns", Quantity: 3.0, TotalPrice: 10.0},
				{Name: "Tea", Quantity: 3.0, TotalPrice: 10.0},
			},
			ServiceChargeAmount: 3.0,
			TaxAmount:           2.64,
		})
		Expect(r.Subtotal).To(Equal(30.0))

		var sel Selection
		for _, it := range r.Items {
			sel = sel.Select(it).SetQuantity(it.ID, it.Quantity)
		}

		b := AllocateReceipt(r, sel)
		Expect(b.Subtotal).To(BeNumerically("~", 30, 0.01))
		Expect(b.ServiceChargeAmount).To(Equal(r.ServiceChargeAmount))
		Expect(b.TaxAmount).To(Equal(r.TaxAmount))
		Expect(b.Total).To(BeNumerically("~", r.Total, 0.011))
	})

	It("adds extracted items with uneven unit prices back up", func() {
		rng := rand.New(rand.NewPCG(uint64(GinkgoRandomSeed()), 9))
		for i := 0; i < 200; i++ {
			raw := RawReceipt{TaxPercent: float64(rng.IntN(1501)) / 100}
			for n := 1 + rng.IntN(15); n > 0; n-- {
				raw.Items = append(raw.Items, RawItem{
					Name:       "item",
					Quantity:   float64(1 + rng.IntN(9)),
					TotalPrice: float64(rng.IntN(20000)) / 100,
				})
			}
			r := FromRaw(raw)

			var sel Selection
			for _, it := range r.Items {
				sel = sel.Select(it).SetQuantity(it.ID, it.Quantity)
			}

			b := AllocateReceipt(r, sel)
			Expect(b.Subtotal).To(BeNumerically("~", r.Subtotal, 0.01))
			Expect(b.Total).To(BeNumerically("~", r.Total, 0.011))
		}
	})

	It("clamps against the receipt", func() {
		r := WithPercents(Receipt{Items: []Item{{ID: "a", Quantity: 1, UnitPrice: 5, TotalPrice: 5}}}, 0, 0)
		sel := Selection{}.Select(r.Items[0]).SetQuantity("a", 9)

		b := AllocateReceipt(r, sel)
		Expect(b.Subtotal).To(Equal(5.0))
		Expect(b.SelectedItems[0].SelectedQuantity).To(Equal(1.0))
	})
})

var _ = Describe("SelectionFor", func() {
	var r Receipt

	BeforeEach(func() {
		r = WithItems(Receipt{TaxPercent: 10}, []Item{
			{ID: "a", Name: "Pizza", Quantity: 2, UnitPrice: 12, TotalPrice: 24},
			{ID: "b", Name: "Soda", Quantity: 1, UnitPrice: 2.5, TotalPrice: 2.5},
		})
	})

	It("skips unknown items and clamps quantities", func() {
		sel := SelectionFor(r, []ItemQuantity{
			{ItemID: "a", Quantity: 3},
			{ItemID: "zzz", Quantity: 1},
			{ItemID: "b", Quantity: 1},
		})
		Expect(sel.Len()).To(Equal(2))
		Expect(sel.Quantity("a")).To(Equal(2.0))
		Expect(sel.Quantity("b")).To(Equal(1.0))
	})
})

var _ = Describe("NewPaymentRequest", func() {
	It("copies the bill and drops unselected quantities", func() {
		sel := Selection{}.
			Select(Item{ID: "a", Name: "Pizza", Quantity: 2, UnitPrice: 12}).
			SetQuantity("a", 1.5).
			Select(Item{ID: "b", Name: "Soda", Quantity: 1, UnitPrice: 2.5}).
			SetQuantity("b", 0)
		b := Allocate(sel, 0, 10)

		req := NewPaymentRequest("Sam", b)
		Expect(req.PayerName).To(Equal("Sam"))
		Expect(req.Items).To(Equal([]PaymentItem{
			{ItemID: "a", ItemName: "Pizza", Quantity: 1.5, Amount: 18},
		}))
		Expect(req.Subtotal).To(Equal(18.0))
		Expect(req.TaxAmount).To(Equal(1.8))
		Expect(req.Total).To(Equal(19.8))
	})
})
