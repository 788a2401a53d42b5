package bill

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/zombor/receiptwiser/internal/money"
)

// MinEditQuantity is the smallest quantity the editor accepts for an item.
const MinEditQuantity = 1

// ItemPatch is a partial update of one item. Nil fields are left unchanged.
type ItemPatch struct {
	Name       *string  `json:"name,omitempty"`
	Quantity   *float64 `json:"quantity,omitempty"`
	UnitPrice  *float64 `json:"unitPrice,omitempty"`
	TotalPrice *float64 `json:"totalPrice,omitempty"`
}

// InitializeItems normalizes items loaded from an outside source whose unit
// and total prices may disagree. The total price is authoritative: the unit
// price is recomputed as totalPrice/quantity and kept at full precision so a
// full selection adds back up to the total. When only a unit price is known
// the total is derived from it instead.
func InitializeItems(items []Item) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		it.Quantity = money.NonNegative(it.Quantity)
		it.UnitPrice = money.NonNegative(it.UnitPrice)
		it.TotalPrice = money.NonNegative(it.TotalPrice)
		if it.ID == "" {
			it.ID = fmt.Sprintf("item-%d", i)
		}
		if it.TotalPrice == 0 && it.UnitPrice > 0 {
			it.TotalPrice = money.Round2(it.UnitPrice * it.Quantity)
		}
		it.UnitPrice = money.SafeDivide(it.TotalPrice, it.Quantity, it.UnitPrice)
		out[i] = it
	}
	return out
}

// UpdateItem applies patch to the item at index and returns the new item list.
//
// Editing quantity or unit price recomputes the total price. Editing the
// total price recomputes the unit price. An index out of range returns an
// unchanged copy.
func UpdateItem(items []Item, index int, patch ItemPatch) []Item {
	out := append([]Item(nil), items...)
	if index < 0 || index >= len(out) {
		return out
	}
	it := out[index]

	if patch.Name != nil {
		it.Name = *patch.Name
	}
	if patch.Quantity != nil {
		it.Quantity = *patch.Quantity
		if it.Quantity < MinEditQuantity {
			it.Quantity = MinEditQuantity
		}
	}
	if patch.UnitPrice != nil {
		it.UnitPrice = money.NonNegative(*patch.UnitPrice)
	}

	switch {
	case patch.TotalPrice != nil:
		it.TotalPrice = money.Round2(money.NonNegative(*patch.TotalPrice))
		it.UnitPrice = money.Round2(money.SafeDivide(it.TotalPrice, it.Quantity, it.UnitPrice))
	case patch.Quantity != nil || patch.UnitPrice != nil:
		it.TotalPrice = money.Round2(it.Quantity * it.UnitPrice)
	}

	out[index] = it
	return out
}

// AddItem appends an empty item with a fresh id.
func AddItem(items []Item) []Item {
	out := make([]Item, len(items), len(items)+1)
	copy(out, items)
	return append(out, Item{
		ID:       uuid.NewString(),
		Quantity: 1,
	})
}

// RemoveItem drops the item at index, preserving the order of the rest.
func RemoveItem(items []Item, index int) []Item {
	if index < 0 || index >= len(items) {
		return append([]Item(nil), items...)
	}
	out := make([]Item, 0, len(items)-1)
	out = append(out, items[:index]...)
	return append(out, items[index+1:]...)
}

// RecomputeTotals derives every aggregate from scratch.
func RecomputeTotals(items []Item, serviceChargePercent, taxPercent float64) Totals {
	prices := make([]float64, len(items))
	for i, it := range items {
		prices[i] = it.TotalPrice
	}
	return chargesOn(money.Sum(prices...), serviceChargePercent, taxPercent)
}

// chargesOn applies service charge and then tax to subtotal.
func chargesOn(subtotal, serviceChargePercent, taxPercent float64) Totals {
	serviceChargePercent = money.NonNegative(serviceChargePercent)
	taxPercent = money.NonNegative(taxPercent)

	serviceCharge := money.Round2(money.ApplyPercent(subtotal, serviceChargePercent))
	tax := money.Round2(money.ApplyPercent(subtotal+serviceCharge, taxPercent))
	return Totals{
		Subtotal:            subtotal,
		ServiceChargeAmount: serviceCharge,
		TaxAmount:           tax,
		Total:               money.Sum(subtotal, serviceCharge, tax),
	}
}

// Recompute returns a copy of r whose aggregates match its items and
// percentages.
func Recompute(r Receipt) Receipt {
	out := r.Clone()
	out.ServiceChargePercent = money.NonNegative(r.ServiceChargePercent)
	out.TaxPercent = money.NonNegative(r.TaxPercent)
	t := RecomputeTotals(out.Items, out.ServiceChargePercent, out.TaxPercent)
	out.Subtotal = t.Subtotal
	out.ServiceChargeAmount = t.ServiceChargeAmount
	out.TaxAmount = t.TaxAmount
	out.Total = t.Total
	return out
}

// WithItems returns a recomputed copy of r holding items.
func WithItems(r Receipt, items []Item) Receipt {
	r.Items = items
	return Recompute(r)
}

// WithPercents returns a recomputed copy of r with new percentages.
func WithPercents(r Receipt, serviceChargePercent, taxPercent float64) Receipt {
	r.ServiceChargePercent = serviceChargePercent
	r.TaxPercent = taxPercent
	return Recompute(r)
}
