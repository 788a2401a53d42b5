// Package bill is the calculation core of receiptwiser.
//
// It keeps a receipt's line items and aggregates mutually consistent while
// the receipt is edited, and computes one diner's share of a receipt from a
// selection of items. Every function in this package is pure: inputs are
// never mutated and results are fresh snapshots.
//
// Service charge is applied to the subtotal and tax is applied to the
// subtotal plus the service charge:
//
//	serviceCharge = subtotal × serviceChargePercent / 100
//	tax           = (subtotal + serviceCharge) × taxPercent / 100
//	total         = subtotal + serviceCharge + tax
package bill

import "time"

// Item is one line of a receipt.
type Item struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Quantity   float64 `json:"quantity"`
	UnitPrice  float64 `json:"unitPrice"`
	TotalPrice float64 `json:"totalPrice"`
}

// Receipt is the canonical record of a purchase.
type Receipt struct {
	ID                   string    `json:"id,omitempty"`
	Items                []Item    `json:"items"`
	Subtotal             float64   `json:"subtotal"`
	ServiceChargePercent float64   `json:"serviceChargePercent"`
	ServiceChargeAmount  float64   `json:"serviceChargeAmount"`
	TaxPercent           float64   `json:"taxPercent"`
	TaxAmount            float64   `json:"taxAmount"`
	Total                float64   `json:"total"`
	DiscountPercent      float64   `json:"discountPercent,omitempty"`
	CreatorName          string    `json:"creatorName,omitempty"`
	CreatorPhone         string    `json:"creatorPhone,omitempty"`
	ImageURL             string    `json:"imageUrl,omitempty"`
	Payments             []Payment `json:"payments,omitempty"`
	CreatedAt            time.Time `json:"createdAt,omitzero"`
}

// Totals are the receipt-level aggregates derived from the items and the two
// percentages.
type Totals struct {
	Subtotal            float64 `json:"subtotal"`
	ServiceChargeAmount float64 `json:"serviceChargeAmount"`
	TaxAmount           float64 `json:"taxAmount"`
	Total               float64 `json:"total"`
}

// PaymentItem records how much of one item a payer covered.
type PaymentItem struct {
	ItemID   string  `json:"itemId"`
	ItemName string  `json:"itemName"`
	Quantity float64 `json:"quantity"`
	Amount   float64 `json:"amount"`
}

// PaymentRequest is the payload submitted when a diner records a payment.
// The id and timestamp are assigned by whoever persists it.
type PaymentRequest struct {
	PayerName           string        `json:"payerName"`
	Items               []PaymentItem `json:"items"`
	Subtotal            float64       `json:"subtotal"`
	ServiceChargeAmount float64       `json:"serviceChargeAmount"`
	TaxAmount           float64       `json:"taxAmount"`
	Total               float64       `json:"total"`
}

// Payment is an immutable record that a bill was paid by a named party.
type Payment struct {
	ID                  string        `json:"id"`
	ReceiptID           string        `json:"receiptId"`
	PayerName           string        `json:"payerName"`
	Items               []PaymentItem `json:"items"`
	Subtotal            float64       `json:"subtotal"`
	ServiceChargeAmount float64       `json:"serviceChargeAmount"`
	TaxAmount           float64       `json:"taxAmount"`
	Total               float64       `json:"total"`
	CreatedAt           time.Time     `json:"createdAt"`
}

// Clone returns a deep copy of the receipt.
func (r Receipt) Clone() Receipt {
	out := r
	out.Items = append([]Item(nil), r.Items...)
	if r.Payments != nil {
		out.Payments = make([]Payment, len(r.Payments))
		for i, p := range r.Payments {
			p.Items = append([]PaymentItem(nil), p.Items...)
			out.Payments[i] = p
		}
	}
	return out
}

// Totals returns the receipt's stored aggregates.
func (r Receipt) Totals() Totals {
	return Totals{
		Subtotal:            r.Subtotal,
		ServiceChargeAmount: r.ServiceChargeAmount,
		TaxAmount:           r.TaxAmount,
		Total:               r.Total,
	}
}

// ItemByID returns the item with the given id.
func (r Receipt) ItemByID(id string) (Item, bool) {
	for _, it := range r.Items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}
