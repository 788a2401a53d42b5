package scanning

import (
	"context"

	"github.com/zombor/receiptwiser/internal/bill"
)

// Scanner defines the interface for receipt extraction services
type Scanner interface {
	// ScanReceipt reads a receipt image or PDF and returns its best guess at
	// the line items and charges. The result is untrusted.
	ScanReceipt(ctx context.Context, imageData []byte, contentType string) (*bill.RawReceipt, error)
	// Close releases resources held by the scanner
	Close() error
}

// receiptScanPrompt is shared by every LLM backed scanner
const receiptScanPrompt = `You are analyzing a photo of a restaurant or shop receipt. Read every line and extract:

1. **Items**: every purchased line item with its name, quantity, unit price and line total. If only the line total is printed, leave unitPrice as null. If no quantity is printed, use 1.

2. **Subtotal**: the amount before service charge and tax.

3. **Service charge**: a percentage surcharge (often labeled "Service Charge", "SVC" or "Gratuity"). Give the percentage if printed, and the amount.

4. **Tax**: the tax percentage (GST, VAT, sales tax) if printed, and the tax amount.

5. **Total**: the final amount due.

Return ONLY valid JSON in this exact format:
{
  "items": [
    {"name": "Item name", "quantity": 1, "unitPrice": 0.00, "totalPrice": 0.00}
  ],
  "subtotal": 0.00,
  "serviceChargePercent": 0,
  "serviceChargeAmount": 0.00,
  "taxPercent": 0,
  "taxAmount": 0.00,
  "total": 0.00
}

Important:
- Amounts must be numbers (not strings) without currency symbols
- Do not list discounts, subtotals, taxes or charges as items
- If you cannot find a field, use null for that field
- Do not include any text before or after the JSON
- Do not use markdown code blocks`
