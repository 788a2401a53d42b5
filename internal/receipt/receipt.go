package receipt

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/receiptwiser/internal/bill"
	"github.com/zombor/receiptwiser/internal/money"
)

var (
	// ErrNotFound is returned when a receipt does not exist
	ErrNotFound = errors.New("receipt not found")
	// ErrInvalidPayment is returned for payments without a payer or items, or
	// whose items and amounts do not fit the receipt
	ErrInvalidPayment = errors.New("invalid payment")
	// ErrInvalidEdit is returned for unknown edit operations
	ErrInvalidEdit = errors.New("invalid receipt edit")
)

// itemRecord is the stored form of bill.Item. Amounts are kept as decimals so
// they survive storage without binary float drift.
type itemRecord struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// receiptRecord is the stored form of bill.Receipt, without payments
type receiptRecord struct {
	ID                   string          `json:"id"`
	Items                []itemRecord    `json:"items"`
	Subtotal             decimal.Decimal `json:"subtotal"`
	ServiceChargePercent decimal.Decimal `json:"service_charge_percent"`
	ServiceChargeAmount  decimal.Decimal `json:"service_charge_amount"`
	TaxPercent           decimal.Decimal `json:"tax_percent"`
	TaxAmount            decimal.Decimal `json:"tax_amount"`
	Total                decimal.Decimal `json:"total"`
	DiscountPercent      decimal.Decimal `json:"discount_percent"`
	CreatorName          string          `json:"creator_name,omitempty"`
	CreatorPhone         string          `json:"creator_phone,omitempty"`
	ImageURL             string          `json:"image_url,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
}

type paymentItemRecord struct {
	ItemID   string          `json:"item_id"`
	ItemName string          `json:"item_name"`
	Quantity decimal.Decimal `json:"quantity"`
	Amount   decimal.Decimal `json:"amount"`
}

// paymentRecord is the stored form of bill.Payment
type paymentRecord struct {
	ID                  string              `json:"id"`
	ReceiptID           string              `json:"receipt_id"`
	PayerName           string              `json:"payer_name"`
	Items               []paymentItemRecord `json:"items"`
	Subtotal            decimal.Decimal     `json:"subtotal"`
	ServiceChargeAmount decimal.Decimal     `json:"service_charge_amount"`
	TaxAmount           decimal.Decimal     `json:"tax_amount"`
	Total               decimal.Decimal     `json:"total"`
	CreatedAt           time.Time           `json:"created_at"`
}

func newItemRecords(items []bill.Item) []itemRecord {
	out := make([]itemRecord, len(items))
	for i, it := range items {
		out[i] = itemRecord{
			ID:         it.ID,
			Name:       it.Name,
			Quantity:   money.ToDecimal(it.Quantity),
			UnitPrice:  money.ToDecimal(it.UnitPrice),
			TotalPrice: money.ToDecimal(it.TotalPrice),
		}
	}
	return out
}

func itemsFromRecords(recs []itemRecord) []bill.Item {
	out := make([]bill.Item, len(recs))
	for i, rec := range recs {
		out[i] = bill.Item{
			ID:         rec.ID,
			Name:       rec.Name,
			Quantity:   money.FromDecimal(rec.Quantity),
			UnitPrice:  money.FromDecimal(rec.UnitPrice),
			TotalPrice: money.FromDecimal(rec.TotalPrice),
		}
	}
	return out
}

func newReceiptRecord(r *bill.Receipt) receiptRecord {
	return receiptRecord{
		ID:                   r.ID,
		Items:                newItemRecords(r.Items),
		Subtotal:             money.ToDecimal(r.Subtotal),
		ServiceChargePercent: money.ToDecimal(r.ServiceChargePercent),
		ServiceChargeAmount:  money.ToDecimal(r.ServiceChargeAmount),
		TaxPercent:           money.ToDecimal(r.TaxPercent),
		TaxAmount:            money.ToDecimal(r.TaxAmount),
		Total:                money.ToDecimal(r.Total),
		DiscountPercent:      money.ToDecimal(r.DiscountPercent),
		CreatorName:          r.CreatorName,
		CreatorPhone:         r.CreatorPhone,
		ImageURL:             r.ImageURL,
		CreatedAt:            r.CreatedAt.UTC(),
	}
}

func (rec receiptRecord) receipt() *bill.Receipt {
	return &bill.Receipt{
		ID:                   rec.ID,
		Items:                itemsFromRecords(rec.Items),
		Subtotal:             money.FromDecimal(rec.Subtotal),
		ServiceChargePercent: money.FromDecimal(rec.ServiceChargePercent),
		ServiceChargeAmount:  money.FromDecimal(rec.ServiceChargeAmount),
		TaxPercent:           money.FromDecimal(rec.TaxPercent),
		TaxAmount:            money.FromDecimal(rec.TaxAmount),
		Total:                money.FromDecimal(rec.Total),
		DiscountPercent:      money.FromDecimal(rec.DiscountPercent),
		CreatorName:          rec.CreatorName,
		CreatorPhone:         rec.CreatorPhone,
		ImageURL:             rec.ImageURL,
		CreatedAt:            rec.CreatedAt,
	}
}

func newPaymentItemRecords(items []bill.PaymentItem) []paymentItemRecord {
	out := make([]paymentItemRecord, len(items))
	for i, it := range items {
		out[i] = paymentItemRecord{
			ItemID:   it.ItemID,
			ItemName: it.ItemName,
			Quantity: money.ToDecimal(it.Quantity),
			Amount:   money.ToDecimal(it.Amount),
		}
	}
	return out
}

func paymentItemsFromRecords(recs []paymentItemRecord) []bill.PaymentItem {
	out := make([]bill.PaymentItem, len(recs))
	for i, rec := range recs {
		out[i] = bill.PaymentItem{
			ItemID:   rec.ItemID,
			ItemName: rec.ItemName,
			Quantity: money.FromDecimal(rec.Quantity),
			Amount:   money.FromDecimal(rec.Amount),
		}
	}
	return out
}

func newPaymentRecord(p *bill.Payment) paymentRecord {
	return paymentRecord{
		ID:                  p.ID,
		ReceiptID:           p.ReceiptID,
		PayerName:           p.PayerName,
		Items:               newPaymentItemRecords(p.Items),
		Subtotal:            money.ToDecimal(p.Subtotal),
		ServiceChargeAmount: money.ToDecimal(p.ServiceChargeAmount),
		TaxAmount:           money.ToDecimal(p.TaxAmount),
		Total:               money.ToDecimal(p.Total),
		CreatedAt:           p.CreatedAt.UTC(),
	}
}

func (rec paymentRecord) payment() *bill.Payment {
	return &bill.Payment{
		ID:                  rec.ID,
		ReceiptID:           rec.ReceiptID,
		PayerName:           rec.PayerName,
		Items:               paymentItemsFromRecords(rec.Items),
		Subtotal:            money.FromDecimal(rec.Subtotal),
		ServiceChargeAmount: money.FromDecimal(rec.ServiceChargeAmount),
		TaxAmount:           money.FromDecimal(rec.TaxAmount),
		Total:               money.FromDecimal(rec.Total),
		CreatedAt:           rec.CreatedAt,
	}
}
