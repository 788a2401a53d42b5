package bill

import (
	"math"
	"strings"

	"github.com/spf13/cast"

	"github.com/zombor/receiptwiser/internal/money"
)

const unknownItemName = "Unknown item"

// RawItem is a line item as guessed by an extraction service. Any field may
// be missing, null, a number, or a number encoded as a string.
type RawItem struct {
	Name       any `json:"name"`
	Quantity   any `json:"quantity"`
	UnitPrice  any `json:"unitPrice"`
	TotalPrice any `json:"totalPrice"`
}

// RawReceipt is untrusted extraction output. It never leaves the boundary:
// FromRaw converts it into a Receipt.
type RawReceipt struct {
	Items                []RawItem `json:"items"`
	Subtotal             any       `json:"subtotal"`
	ServiceChargePercent any       `json:"serviceChargePercent"`
	ServiceChargeAmount  any       `json:"serviceChargeAmount"`
	TaxPercent           any       `json:"taxPercent"`
	TaxAmount            any       `json:"taxAmount"`
	Total                any       `json:"total"`
}

// FromRaw coerces extraction output into a consistent Receipt. Missing or
// invalid amounts become 0 and missing quantities become 1. Totals are always
// recomputed from the items; the extracted subtotal and total are only used
// to recover percentages the extraction left out.
func FromRaw(raw RawReceipt) Receipt {
	items := make([]Item, len(raw.Items))
	for i, ri := range raw.Items {
		q := coerce(ri.Quantity, 1)
		if q <= 0 {
			q = 1
		}
		items[i] = Item{
			Name:       coerceName(ri.Name),
			Quantity:   q,
			UnitPrice:  coerce(ri.UnitPrice, 0),
			TotalPrice: coerce(ri.TotalPrice, 0),
		}
	}
	items = InitializeItems(items)

	subtotal := coerce(raw.Subtotal, 0)
	if subtotal == 0 {
		subtotal = RecomputeTotals(items, 0, 0).Subtotal
	}

	serviceChargePercent := coerce(raw.ServiceChargePercent, 0)
	serviceCharge := coerce(raw.ServiceChargeAmount, 0)
	if serviceChargePercent == 0 && serviceCharge > 0 {
		serviceChargePercent = money.Round2(money.SafeDivide(serviceCharge*100, subtotal, 0))
	}
	if serviceCharge == 0 {
		serviceCharge = money.ApplyPercent(subtotal, serviceChargePercent)
	}

	taxPercent := coerce(raw.TaxPercent, 0)
	if tax := coerce(raw.TaxAmount, 0); taxPercent == 0 && tax > 0 {
		taxPercent = money.Round2(money.SafeDivide(tax*100, subtotal+serviceCharge, 0))
	}

	return WithItems(Receipt{
		ServiceChargePercent: serviceChargePercent,
		TaxPercent:           taxPercent,
	}, items)
}

// coerce reads a number from an untrusted value, returning def when the value
// is absent or unusable. Currency symbols, thousands separators and
// surrounding whitespace are tolerated in strings.
func coerce(v any, def float64) float64 {
	switch t := v.(type) {
	case nil, bool:
		return def
	case string:
		s := strings.TrimSpace(t)
		s = strings.TrimLeft(s, "$€£¥")
		s = strings.ReplaceAll(s, ",", "")
		s = strings.TrimSuffix(s, "%")
		if s == "" {
			return def
		}
		v = strings.TrimSpace(s)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return def
	}
	return f
}

func coerceName(v any) string {
	s, err := cast.ToStringE(v)
	if err != nil || v == nil {
		return unknownItemName
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return unknownItemName
	}
	return s
}
