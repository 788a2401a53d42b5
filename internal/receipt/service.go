package receipt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/receiptwiser/internal/bill"
	"github.com/zombor/receiptwiser/internal/scanning"
	"github.com/zombor/receiptwiser/internal/sharecode"
)

// IDGenerator generates unique IDs for receipts, items and payments
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// Service handles receipt operations
type Service struct {
	db          DB
	scanner     scanning.Scanner
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with uuid ids and the system clock
func NewService(db DB, scanner scanning.Scanner, storage Storage) *Service {
	return NewServiceWithDeps(db, scanner, storage, uuidGenerator{}, systemClock{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, scanner scanning.Scanner, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		scanner:     scanner,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// AnalyzeReceipt stores an uploaded image, runs it through the scanner and
// returns a consistent, unsaved receipt. A response the scanner could not
// turn into JSON yields an empty receipt rather than an error so the user can
// enter the items by hand.
func (s *Service) AnalyzeReceipt(ctx context.Context, filename string, data []byte, contentType string) (*bill.Receipt, error) {
	name, err := s.storage.Save(imageName(s.idGenerator.Generate(), filename), data)
	if err != nil {
		return nil, fmt.Errorf("saving image: %w", err)
	}

	raw, err := s.scanner.ScanReceipt(ctx, data, contentType)
	switch {
	case errors.Is(err, scanning.ErrNoJSON):
		slog.Warn("Scanner returned no usable receipt data",
			"filename", filename,
			"error", err,
		)
		raw = &bill.RawReceipt{}
	case err != nil:
		slog.Error("Failed to scan receipt",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		if delErr := s.storage.Delete(name); delErr != nil {
			slog.Warn("Failed to delete image", "name", name, "error", delErr)
		}
		return nil, fmt.Errorf("scanning receipt: %w", err)
	}

	r := bill.FromRaw(*raw)
	r.ImageURL = "/api/images/" + name
	slog.Info("Analyzed receipt", "image", name, "items", len(r.Items), "total", r.Total)
	return &r, nil
}

// CreateReceipt persists a receipt. Totals are recomputed from the items and
// the receipt, and each of its items, gets a fresh id.
func (s *Service) CreateReceipt(ctx context.Context, in bill.Receipt) (*bill.Receipt, error) {
	items := bill.InitializeItems(in.Items)
	for i := range items {
		items[i].ID = s.idGenerator.Generate()
	}

	r := bill.WithItems(in, items)
	r.ID = s.idGenerator.Generate()
	r.CreatedAt = s.timeSource.Now()
	r.Payments = nil

	if err := s.db.SaveReceipt(ctx, &r); err != nil {
		return nil, fmt.Errorf("saving receipt: %w", err)
	}
	return &r, nil
}

// GetReceipt retrieves a receipt with its payments, newest first
func (s *Service) GetReceipt(ctx context.Context, id string) (*bill.Receipt, error) {
	r, err := s.db.GetReceipt(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	payments, err := s.ListPayments(ctx, id)
	if err != nil {
		return nil, err
	}
	r.Payments = make([]bill.Payment, len(payments))
	for i, p := range payments {
		r.Payments[i] = *p
	}
	return r, nil
}

// ListReceipts returns all receipts, newest first
func (s *Service) ListReceipts(ctx context.Context) ([]*bill.Receipt, error) {
	receipts, err := s.db.ListReceipts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	return receipts, nil
}

// ComputeBill allocates a receipt to one diner's selection
func (s *Service) ComputeBill(ctx context.Context, receiptID string, selections []bill.ItemQuantity) (bill.UserBill, error) {
	r, err := s.db.GetReceipt(ctx, receiptID)
	if err != nil {
		return bill.UserBill{}, fmt.Errorf("getting receipt: %w", err)
	}
	return bill.AllocateReceipt(*r, bill.SelectionFor(*r, selections)), nil
}

// RecordPayment appends a payment to a receipt
func (s *Service) RecordPayment(ctx context.Context, receiptID string, req bill.PaymentRequest) (*bill.Payment, error) {
	payerName := strings.TrimSpace(req.PayerName)
	if payerName == "" || len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: payer name and at least one item are required", ErrInvalidPayment)
	}

	r, err := s.db.GetReceipt(ctx, receiptID)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	if err := validatePayment(*r, req); err != nil {
		return nil, err
	}

	p := &bill.Payment{
		ID:                  s.idGenerator.Generate(),
		ReceiptID:           receiptID,
		PayerName:           payerName,
		Items:               append([]bill.PaymentItem(nil), req.Items...),
		Subtotal:            req.Subtotal,
		ServiceChargeAmount: req.ServiceChargeAmount,
		TaxAmount:           req.TaxAmount,
		Total:               req.Total,
		CreatedAt:           s.timeSource.Now(),
	}
	if err := s.db.SavePayment(ctx, p); err != nil {
		return nil, fmt.Errorf("saving payment: %w", err)
	}

	slog.Info("Recorded payment", "receipt_id", receiptID, "payment_id", p.ID, "total", p.Total)
	return p, nil
}

// validatePayment checks a payment against the receipt it pays for. Items must
// be on the receipt and no amount may be negative.
func validatePayment(r bill.Receipt, req bill.PaymentRequest) error {
	for _, v := range []float64{req.Subtotal, req.ServiceChargeAmount, req.TaxAmount, req.Total} {
		if v < 0 {
			return fmt.Errorf("%w: negative amount", ErrInvalidPayment)
		}
	}
	for _, it := range req.Items {
		item, ok := r.ItemByID(it.ItemID)
		if !ok {
			return fmt.Errorf("%w: item %q is not on the receipt", ErrInvalidPayment, it.ItemID)
		}
		if it.Quantity < 0 || it.Amount < 0 {
			return fmt.Errorf("%w: negative amount for %q", ErrInvalidPayment, item.Name)
		}
	}
	return nil
}

// ListPayments returns the payments of a receipt, newest first. Unknown
// receipts have no payments.
func (s *Service) ListPayments(ctx context.Context, receiptID string) ([]*bill.Payment, error) {
	payments, err := s.db.ListPayments(ctx, receiptID)
	if err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}
	return payments, nil
}

// GetImage returns a stored receipt image
func (s *Service) GetImage(name string) ([]byte, error) {
	data, err := s.storage.Get(name)
	if err != nil {
		return nil, fmt.Errorf("getting image: %w", err)
	}
	return data, nil
}

// ShareCode returns the share code for a receipt
func (s *Service) ShareCode(r bill.Receipt) (string, error) {
	code, err := sharecode.EncodeLink(r)
	if err != nil {
		return "", fmt.Errorf("encoding share code: %w", err)
	}
	return code, nil
}

// LoadShared rebuilds a receipt from a share code
func (s *Service) LoadShared(code string) (*bill.Receipt, error) {
	r, err := sharecode.DecodeLink(code)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
