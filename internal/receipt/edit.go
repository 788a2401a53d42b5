package receipt

import (
	"fmt"

	"github.com/zombor/receiptwiser/internal/bill"
)

// Edit operations accepted by EditReceipt
const (
	EditUpdate    = "update"
	EditAdd       = "add"
	EditRemove    = "remove"
	EditPercent   = "percent"
	EditRecompute = "recompute"
)

// EditRequest is one editor action applied to a receipt snapshot
type EditRequest struct {
	Receipt              bill.Receipt   `json:"receipt"`
	Op                   string         `json:"op"`
	Index                int            `json:"index"`
	Patch                bill.ItemPatch `json:"patch"`
	ServiceChargePercent *float64       `json:"serviceChargePercent,omitempty"`
	TaxPercent           *float64       `json:"taxPercent,omitempty"`
}

// EditReceipt applies an edit and returns the recomputed receipt. The
// snapshot in the request is not modified and nothing is persisted.
func (s *Service) EditReceipt(req EditRequest) (bill.Receipt, error) {
	r := req.Receipt
	inRange := req.Index >= 0 && req.Index < len(r.Items)

	switch req.Op {
	case EditUpdate:
		if !inRange {
			return bill.Receipt{}, fmt.Errorf("%w: no item at index %d", ErrInvalidEdit, req.Index)
		}
		return bill.WithItems(r, bill.UpdateItem(r.Items, req.Index, req.Patch)), nil
	case EditAdd:
		return bill.WithItems(r, bill.AddItem(r.Items)), nil
	case EditRemove:
		if !inRange {
			return bill.Receipt{}, fmt.Errorf("%w: no item at index %d", ErrInvalidEdit, req.Index)
		}
		return bill.WithItems(r, bill.RemoveItem(r.Items, req.Index)), nil
	case EditPercent:
		sc, tax := r.ServiceChargePercent, r.TaxPercent
		if req.ServiceChargePercent != nil {
			sc = *req.ServiceChargePercent
		}
		if req.TaxPercent != nil {
			tax = *req.TaxPercent
		}
		return bill.WithPercents(r, sc, tax), nil
	case EditRecompute, "":
		return bill.Recompute(r), nil
	default:
		return bill.Receipt{}, fmt.Errorf("%w: unknown op %q", ErrInvalidEdit, req.Op)
	}
}
