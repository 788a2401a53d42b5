package bill

import (
	"math/rand/v2"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/receiptwiser/internal/money"
)

func randomItems(rng *rand.Rand, n int) []Item {
	items := make([]Item, 0, n)
	for i := 0; i < n; i++ {
		items = AddItem(items)
		items = UpdateItem(items, i, ItemPatch{
			Name:      ptr("item"),
			Quantity:  ptr(float64(1 + rng.IntN(5))),
			UnitPrice: ptr(float64(rng.IntN(10000)) / 100),
		})
	}
	return items
}

var _ = Describe("InitializeItems", func() {
	var (
		in  []Item
		out []Item
	)

	JustBeforeEach(func() {
		out = InitializeItems(in)
	})

	When("unit and total prices disagree", func() {
		BeforeEach(func() {
			in = []Item{{ID: "a", Name: "Wine", Quantity: 2, UnitPrice: 9, TotalPrice: 30}}
		})

		It("derives the unit price from the total", func() {
			Expect(out[0].UnitPrice).To(Equal(15.0))
			Expect(out[0].TotalPrice).To(Equal(30.0))
		})

		It("does not mutate the input", func() {
			Expect(in[0].UnitPrice).To(Equal(9.0))
		})
	})

	When("quantity is zero", func() {
		BeforeEach(func() {
			in = []Item{{ID: "a", Quantity: 0, UnitPrice: 4, TotalPrice: 10}}
		})

		It("leaves the unit price unchanged", func() {
			Expect(out[0].UnitPrice).To(Equal(4.0))
		})
	})

	When("only the unit price is known", func() {
		BeforeEach(func() {
			in = []Item{{Quantity: 3, UnitPrice: 2.5}}
		})

		It("derives the total price", func() {
			Expect(out[0].TotalPrice).To(Equal(7.5))
			Expect(out[0].UnitPrice).To(Equal(2.5))
		})

		It("assigns a positional id", func() {
			Expect(out[0].ID).To(Equal("item-0"))
		})
	})

	When("the total does not divide evenly", func() {
		BeforeEach(func() {
			in = []Item{{ID: "a", Quantity: 3, TotalPrice: 10}}
		})

		It("keeps the unit price at full precision", func() {
			Expect(out[0].UnitPrice).To(Equal(10.0 / 3))
			Expect(out[0].UnitPrice * out[0].Quantity).To(BeNumerically("~", 10, 1e-9))
			Expect(out[0].TotalPrice).To(Equal(10.0))
		})
	})

	When("amounts are negative", func() {
		BeforeEach(func() {
			in = []Item{{ID: "a", Quantity: 1, UnitPrice: -3, TotalPrice: -3}}
		})

		It("defaults them to zero", func() {
			Expect(out[0].UnitPrice).To(Equal(0.0))
			Expect(out[0].TotalPrice).To(Equal(0.0))
		})
	})
})

var _ = Describe("UpdateItem", func() {
	var items []Item

	BeforeEach(func() {
		items = []Item{
			{ID: "a", Name: "Coffee", Quantity: 1, UnitPrice: 3.5, TotalPrice: 3.5},
			{ID: "b", Name: "Cake", Quantity: 2, UnitPrice: 4, TotalPrice: 8},
		}
	})

	It("recomputes the total when the quantity changes", func() {
		out := UpdateItem(items, 1, ItemPatch{Quantity: ptr(3.0)})
		Expect(out[1].TotalPrice).To(Equal(12.0))
		Expect(items[1].TotalPrice).To(Equal(8.0))
	})

	It("recomputes the total when the unit price changes", func() {
		out := UpdateItem(items, 0, ItemPatch{UnitPrice: ptr(7.95)})
		Expect(out[0].TotalPrice).To(Equal(7.95))
	})

	It("recomputes the unit price when the total changes", func() {
		out := UpdateItem(items, 1, ItemPatch{TotalPrice: ptr(10.0)})
		Expect(out[1].UnitPrice).To(Equal(5.0))
		Expect(out[1].TotalPrice).To(Equal(10.0))
	})

	It("rounds a derived unit price to cents", func() {
		items[1].Quantity = 3
		out := UpdateItem(items, 1, ItemPatch{TotalPrice: ptr(10.0)})
		Expect(out[1].UnitPrice).To(Equal(3.33))
	})

	It("raises quantities below the minimum", func() {
		out := UpdateItem(items, 0, ItemPatch{Quantity: ptr(0.0)})
		Expect(out[0].Quantity).To(Equal(1.0))
		Expect(out[0].TotalPrice).To(Equal(3.5))
	})

	It("renames without touching prices", func() {
		out := UpdateItem(items, 0, ItemPatch{Name: ptr("Latte")})
		Expect(out[0].Name).To(Equal("Latte"))
		Expect(out[0].TotalPrice).To(Equal(3.5))
	})

	It("ignores an out of range index", func() {
		out := UpdateItem(items, 5, ItemPatch{Name: ptr("x")})
		Expect(out).To(Equal(items))
	})

	It("keeps total = round2(quantity × unitPrice) for quantity and unit edits", func() {
		rng := rand.New(rand.NewPCG(uint64(GinkgoRandomSeed()), 1))
		for i := 0; i < 500; i++ {
			q := float64(1 + rng.IntN(20))
			p := float64(rng.IntN(100000)) / 1000
			out := UpdateItem(items, 0, ItemPatch{Quantity: ptr(q), UnitPrice: ptr(p)})
			Expect(out[0].TotalPrice).To(Equal(money.Round2(q * p)))
		}
	})

	It("keeps unitPrice = round2(total / quantity) for total edits", func() {
		rng := rand.New(rand.NewPCG(uint64(GinkgoRandomSeed()), 2))
		for i := 0; i < 500; i++ {
			items[1].Quantity = float64(1 + rng.IntN(9))
			total := float64(rng.IntN(100000)) / 100
			out := UpdateItem(items, 1, ItemPatch{TotalPrice: ptr(total)})
			Expect(out[1].UnitPrice).To(Equal(money.Round2(total / items[1].Quantity)))
		}
	})
})

var _ = Describe("AddItem and RemoveItem", func() {
	It("appends an empty item with a fresh id", func() {
		items := AddItem(AddItem(nil))
		Expect(items).To(HaveLen(2))
		Expect(items[1].Quantity).To(Equal(1.0))
		Expect(items[1].UnitPrice).To(Equal(0.0))
		Expect(items[1].TotalPrice).To(Equal(0.0))
		Expect(items[0].ID).NotTo(BeEmpty())
		Expect(items[0].ID).NotTo(Equal(items[1].ID))
	})

	It("removes by index preserving order", func() {
		items := []Item{{ID: "a"}, {ID: "b"}, {ID: "c"}}
		out := RemoveItem(items, 1)
		Expect(out).To(Equal([]Item{{ID: "a"}, {ID: "c"}}))
		Expect(items).To(HaveLen(3))
	})

	It("ignores an out of range removal", func() {
		items := []Item{{ID: "a"}}
		Expect(RemoveItem(items, -1)).To(Equal(items))
	})
})

var _ = Describe("RecomputeTotals", func() {
	It("computes the coffee and sandwich receipt", func() {
		items := []Item{
			{Quantity: 1, UnitPrice: 3.5, TotalPrice: 3.5},
			{Quantity: 1, UnitPrice: 7.95, TotalPrice: 7.95},
		}
		t := RecomputeTotals(items, 0, 8.25)
		Expect(t.Subtotal).To(Equal(11.45))
		Expect(t.ServiceChargeAmount).To(Equal(0.0))
		Expect(t.TaxAmount).To(Equal(0.94))
		Expect(t.Total).To(Equal(12.39))
	})

	It("taxes the service charge", func() {
		items := []Item{{Quantity: 1, UnitPrice: 100, TotalPrice: 100}}
		t := RecomputeTotals(items, 10, 8)
		Expect(t.Subtotal).To(Equal(100.0))
		Expect(t.ServiceChargeAmount).To(Equal(10.0))
		Expect(t.TaxAmount).To(Equal(8.8))
		Expect(t.Total).To(Equal(118.8))
	})

	It("treats negative percentages as zero", func() {
		items := []Item{{TotalPrice: 50}}
		t := RecomputeTotals(items, -5, -1)
		Expect(t.Total).To(Equal(50.0))
	})

	It("returns zeros for an empty receipt", func() {
		Expect(RecomputeTotals(nil, 10, 8)).To(Equal(Totals{}))
	})

	It("holds the aggregate invariants for random receipts", func() {
		rng := rand.New(rand.NewPCG(uint64(GinkgoRandomSeed()), 3))
		for i := 0; i < 200; i++ {
			items := randomItems(rng, 1+rng.IntN(50))
			sc := float64(rng.IntN(2001)) / 100
			tx := float64(rng.IntN(2001)) / 100
			t := RecomputeTotals(items, sc, tx)

			var sum float64
			for _, it := range items {
				sum += it.TotalPrice
			}
			Expect(t.Subtotal).To(BeNumerically("~", sum, 1e-6))
			Expect(t.TaxAmount).To(Equal(money.Round2((t.Subtotal + t.ServiceChargeAmount) * tx / 100)))
			Expect(t.Total).To(BeNumerically("~", t.Subtotal+t.ServiceChargeAmount+t.TaxAmount, 1e-6))
		}
	})
})

var _ = Describe("Recompute", func() {
	It("does not drift across a sequence of edits", func() {
		r := Receipt{ServiceChargePercent: 10, TaxPercent: 9}
		r = WithItems(r, AddItem(r.Items))
		r = WithItems(r, UpdateItem(r.Items, 0, ItemPatch{UnitPrice: ptr(19.99), Quantity: ptr(3.0)}))
		r = WithItems(r, AddItem(r.Items))
		r = WithItems(r, UpdateItem(r.Items, 1, ItemPatch{TotalPrice: ptr(12.0)}))
		r = WithPercents(r, 12.5, 7)
		r = WithItems(r, RemoveItem(r.Items, 1))

		fresh := RecomputeTotals(r.Items, 12.5, 7)
		Expect(r.Totals()).To(Equal(fresh))
		Expect(r.Subtotal).To(Equal(59.97))
	})

	It("does not share item storage with its input", func() {
		r := Receipt{Items: []Item{{ID: "a", TotalPrice: 1}}}
		out := Recompute(r)
		out.Items[0].Name = "changed"
		Expect(r.Items[0].Name).To(BeEmpty())
	})
})
