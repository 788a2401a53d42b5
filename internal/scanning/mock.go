package scanning

import (
	"context"

	"github.com/zombor/receiptwiser/internal/bill"
)

// Mock returns a fixed two item receipt. It stands in for a real scanner
// when no credentials are configured.
type Mock struct{}

// NewMock creates a Mock scanner
func NewMock() *Mock {
	return &Mock{}
}

// ScanReceipt ignores the image and returns the sample receipt
func (Mock) ScanReceipt(ctx context.Context, _ []byte, _ string) (*bill.RawReceipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &bill.RawReceipt{
		Items: []bill.RawItem{
			{Name: "Coffee", Quantity: 1.0, UnitPrice: 3.5, TotalPrice: 3.5},
			{Name: "Sandwich", Quantity: 1.0, UnitPrice: 7.95, TotalPrice: 7.95},
		},
		Subtotal:   11.45,
		TaxPercent: 8.25,
		TaxAmount:  0.94,
		Total:      12.39,
	}, nil
}

// Close is a no-op
func (Mock) Close() error {
	return nil
}
