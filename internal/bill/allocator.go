package bill

import (
	"github.com/zombor/receiptwiser/internal/money"
)

// SelectedItem is an item annotated with how much of it one diner consumed.
type SelectedItem struct {
	Item
	SelectedQuantity float64 `json:"selectedQuantity"`
}

// UserBill is one diner's share of a receipt.
type UserBill struct {
	SelectedItems       []SelectedItem `json:"selectedItems"`
	Subtotal            float64        `json:"subtotal"`
	ServiceChargeAmount float64        `json:"serviceChargeAmount"`
	TaxAmount           float64        `json:"taxAmount"`
	Total               float64        `json:"total"`
}

// Selection maps item ids to the quantity a diner picked. Entries keep the
// order in which they were selected. The zero value is an empty selection.
//
// A Selection is a value: every mutating method returns a new Selection and
// leaves the receiver untouched.
type Selection struct {
	order   []string
	entries map[string]SelectedItem
}

// Len reports how many items are selected.
func (s Selection) Len() int {
	return len(s.order)
}

// Has reports whether the item is selected.
func (s Selection) Has(itemID string) bool {
	_, ok := s.entries[itemID]
	return ok
}

// Quantity returns the selected quantity for an item, or 0.
func (s Selection) Quantity(itemID string) float64 {
	return s.entries[itemID].SelectedQuantity
}

// Items returns the selected items in selection order.
func (s Selection) Items() []SelectedItem {
	out := make([]SelectedItem, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.entries[id])
	}
	return out
}

func (s Selection) clone() Selection {
	out := Selection{
		order:   append([]string(nil), s.order...),
		entries: make(map[string]SelectedItem, len(s.entries)+1),
	}
	for k, v := range s.entries {
		out.entries[k] = v
	}
	return out
}

// Select adds an item with an initial quantity of 1, or the item's full
// quantity when that is smaller. Selecting an already selected item is a
// no-op.
func (s Selection) Select(item Item) Selection {
	if s.Has(item.ID) {
		return s
	}
	out := s.clone()
	q := 1.0
	if item.Quantity < 1 {
		q = item.Quantity
	}
	out.order = append(out.order, item.ID)
	out.entries[item.ID] = SelectedItem{Item: item, SelectedQuantity: q}
	return out
}

// Toggle selects the item if absent and deselects it otherwise.
func (s Selection) Toggle(item Item) Selection {
	if s.Has(item.ID) {
		return s.Deselect(item.ID)
	}
	return s.Select(item)
}

// Deselect removes an item from the selection.
func (s Selection) Deselect(itemID string) Selection {
	if !s.Has(itemID) {
		return s
	}
	out := s.clone()
	delete(out.entries, itemID)
	for i, id := range out.order {
		if id == itemID {
			out.order = append(out.order[:i], out.order[i+1:]...)
			break
		}
	}
	return out
}

// SetQuantity records the quantity for a selected item as entered. The value
// is not bounded here so partially typed input survives; Clamp bounds it.
// Unknown items are ignored.
func (s Selection) SetQuantity(itemID string, quantity float64) Selection {
	e, ok := s.entries[itemID]
	if !ok {
		return s
	}
	out := s.clone()
	e.SelectedQuantity = quantity
	out.entries[itemID] = e
	return out
}

// Clamp bounds every selected quantity to [0, item.quantity].
func (s Selection) Clamp() Selection {
	out := s.clone()
	for id, e := range out.entries {
		e.SelectedQuantity = money.Clamp(e.SelectedQuantity, 0, e.Quantity)
		out.entries[id] = e
	}
	return out
}

// Allocate computes a diner's bill from the selection using the receipt's
// percentages. The selection is used as-is; call Clamp first when the result
// is final.
func Allocate(sel Selection, serviceChargePercent, taxPercent float64) UserBill {
	items := sel.Items()
	lines := make([]float64, len(items))
	for i, it := range items {
		lines[i] = it.UnitPrice * it.SelectedQuantity
	}
	t := chargesOn(money.Round2(sumExact(lines)), serviceChargePercent, taxPercent)
	return UserBill{
		SelectedItems:       items,
		Subtotal:            t.Subtotal,
		ServiceChargeAmount: t.ServiceChargeAmount,
		TaxAmount:           t.TaxAmount,
		Total:               t.Total,
	}
}

// AllocateReceipt clamps the selection and computes the final bill against r.
func AllocateReceipt(r Receipt, sel Selection) UserBill {
	return Allocate(sel.Clamp(), r.ServiceChargePercent, r.TaxPercent)
}

// SelectionFor builds a clamped selection from item id/quantity pairs,
// skipping ids that are not on the receipt. Later pairs for the same id
// overwrite earlier ones.
func SelectionFor(r Receipt, quantities []ItemQuantity) Selection {
	var sel Selection
	for _, q := range quantities {
		it, ok := r.ItemByID(q.ItemID)
		if !ok {
			continue
		}
		sel = sel.Select(it).SetQuantity(it.ID, q.Quantity)
	}
	return sel.Clamp()
}

// ItemQuantity pairs an item id with a selected quantity.
type ItemQuantity struct {
	ItemID   string  `json:"itemId"`
	Quantity float64 `json:"quantity"`
}

// NewPaymentRequest converts a bill into the payload for recording a payment.
// Items with a zero selected quantity are left out.
func NewPaymentRequest(payerName string, b UserBill) PaymentRequest {
	items := make([]PaymentItem, 0, len(b.SelectedItems))
	for _, it := range b.SelectedItems {
		if it.SelectedQuantity <= 0 {
			continue
		}
		items = append(items, PaymentItem{
			ItemID:   it.ID,
			ItemName: it.Name,
			Quantity: it.SelectedQuantity,
			Amount:   money.Round2(it.UnitPrice * it.SelectedQuantity),
		})
	}
	return PaymentRequest{
		PayerName:           payerName,
		Items:               items,
		Subtotal:            b.Subtotal,
		ServiceChargeAmount: b.ServiceChargeAmount,
		TaxAmount:           b.TaxAmount,
		Total:               b.Total,
	}
}

func sumExact(xs []float64) float64 {
	var total float64
	for _, x := range xs {
		total += x
	}
	return total
}
