// Package sharecode turns receipts into short, URL-safe share codes and back.
//
// A share code is the compact JSON form of a receipt compressed with
// lz-string's EncodedURIComponent alphabet. Derived amounts are left out of
// the compact form and recomputed on decode.
package sharecode

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/zombor/receiptwiser/internal/bill"
	"github.com/zombor/receiptwiser/internal/money"
)

// ErrInvalidReceiptData is returned when a compact payload or share code
// cannot be turned back into a receipt.
var ErrInvalidReceiptData = errors.New("invalid receipt data")

//go:embed compact.schema.json
var compactSchemaJSON []byte

var compactSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("compact.schema.json", bytes.NewReader(compactSchemaJSON)); err != nil {
		panic(fmt.Sprintf("adding compact schema: %v", err))
	}
	return compiler.MustCompile("compact.schema.json")
}

// CompactItem is the share form of a line item.
type CompactItem struct {
	N string  `json:"n"`
	Q float64 `json:"q"`
	P float64 `json:"p"`
}

// Compact is the share form of a receipt.
type Compact struct {
	I  []CompactItem `json:"i"`
	T  float64       `json:"t"`
	S  float64       `json:"s"`
	D  float64       `json:"d"`
	TX float64       `json:"tx"`
	SC float64       `json:"sc"`
	CN string        `json:"cn,omitempty"`
	CP string        `json:"cp,omitempty"`
}

// Encode builds the compact form of r. r is not modified.
func Encode(r bill.Receipt) Compact {
	items := make([]CompactItem, len(r.Items))
	for i, it := range r.Items {
		items[i] = CompactItem{
			N: it.Name,
			Q: it.Quantity,
			P: money.Round2(it.UnitPrice),
		}
	}
	return Compact{
		I:  items,
		T:  money.Round2(r.Total),
		S:  money.Round2(r.Subtotal),
		D:  money.Round2(r.DiscountPercent),
		TX: money.Round2(r.TaxPercent),
		SC: money.Round2(r.ServiceChargePercent),
		CN: r.CreatorName,
		CP: r.CreatorPhone,
	}
}

// Decode rebuilds a full receipt from its compact form. Item totals and the
// charge amounts are recomputed; the subtotal and total are kept as encoded.
func Decode(c Compact) (bill.Receipt, error) {
	for _, v := range []float64{c.T, c.S, c.D, c.TX, c.SC} {
		if !finite(v) {
			return bill.Receipt{}, fmt.Errorf("%w: non-finite amount", ErrInvalidReceiptData)
		}
		if v < 0 {
			return bill.Receipt{}, fmt.Errorf("%w: negative amount", ErrInvalidReceiptData)
		}
	}

	items := make([]bill.Item, len(c.I))
	for i, ci := range c.I {
		if !finite(ci.Q) || !finite(ci.P) || ci.Q < 0 || ci.P < 0 {
			return bill.Receipt{}, fmt.Errorf("%w: item %d has an invalid amount", ErrInvalidReceiptData, i)
		}
		items[i] = bill.Item{
			ID:         fmt.Sprintf("item-%d", i),
			Name:       ci.N,
			Quantity:   ci.Q,
			UnitPrice:  ci.P,
			TotalPrice: money.Round2(ci.P * ci.Q),
		}
	}

	serviceCharge := money.Round2(money.ApplyPercent(c.S, c.SC))
	return bill.Receipt{
		Items:                items,
		Subtotal:             c.S,
		ServiceChargePercent: c.SC,
		ServiceChargeAmount:  serviceCharge,
		TaxPercent:           c.TX,
		TaxAmount:            money.Round2(money.ApplyPercent(c.S+serviceCharge, c.TX)),
		Total:                c.T,
		DiscountPercent:      c.D,
		CreatorName:          c.CN,
		CreatorPhone:         c.CP,
	}, nil
}

// Marshal returns the compact JSON for r.
func Marshal(r bill.Receipt) ([]byte, error) {
	b, err := json.Marshal(Encode(r))
	if err != nil {
		return nil, fmt.Errorf("marshalling compact receipt: %w", err)
	}
	return b, nil
}

// Unmarshal validates compact JSON and decodes it into a receipt. Any
// failure wraps ErrInvalidReceiptData.
func Unmarshal(data []byte) (bill.Receipt, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return bill.Receipt{}, fmt.Errorf("%w: %v", ErrInvalidReceiptData, err)
	}
	if err := compactSchema.Validate(doc); err != nil {
		return bill.Receipt{}, fmt.Errorf("%w: %v", ErrInvalidReceiptData, err)
	}

	var c Compact
	if err := json.Unmarshal(data, &c); err != nil {
		return bill.Receipt{}, fmt.Errorf("%w: %v", ErrInvalidReceiptData, err)
	}
	return Decode(c)
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
