package receipt

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"go.etcd.io/bbolt"

	"github.com/zombor/receiptwiser/internal/bill"
)

const (
	receiptsBucket = "receipts"
	paymentsBucket = "payments"
)

// DB defines the interface for receipt persistence
type DB interface {
	// SaveReceipt inserts or replaces a receipt. Payments are stored separately.
	SaveReceipt(ctx context.Context, receipt *bill.Receipt) error

	// GetReceipt retrieves a receipt by ID, or ErrNotFound
	GetReceipt(ctx context.Context, id string) (*bill.Receipt, error)

	// ListReceipts returns all receipts, newest first
	ListReceipts(ctx context.Context) ([]*bill.Receipt, error)

	// SavePayment appends a payment to an existing receipt, or returns ErrNotFound
	SavePayment(ctx context.Context, payment *bill.Payment) error

	// ListPayments returns the payments of a receipt, newest first
	ListPayments(ctx context.Context, receiptID string) ([]*bill.Payment, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB. Payments live in a nested
// bucket per receipt under the payments bucket.
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{receiptsBucket, paymentsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveReceipt saves a receipt to the database
func (b *BoltDB) SaveReceipt(_ context.Context, receipt *bill.Receipt) error {
	data, err := json.Marshal(newReceiptRecord(receipt))
	if err != nil {
		return fmt.Errorf("marshaling receipt: %w", err)
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(receiptsBucket)).Put([]byte(receipt.ID), data)
	})
}

// GetReceipt retrieves a receipt by ID
func (b *BoltDB) GetReceipt(_ context.Context, id string) (*bill.Receipt, error) {
	var rec receiptRecord
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(receiptsBucket)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(data, &rec)
	})
	if err != nil {
		return nil, err
	}
	return rec.receipt(), nil
}

// ListReceipts returns all receipts, newest first
func (b *BoltDB) ListReceipts(_ context.Context) ([]*bill.Receipt, error) {
	receipts := make([]*bill.Receipt, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(receiptsBucket)).ForEach(func(k, v []byte) error {
			var rec receiptRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("unmarshaling receipt %s: %w", k, err)
			}
			receipts = append(receipts, rec.receipt())
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(receipts, func(a, b *bill.Receipt) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return receipts, nil
}

// SavePayment stores a payment under its receipt
func (b *BoltDB) SavePayment(_ context.Context, payment *bill.Payment) error {
	data, err := json.Marshal(newPaymentRecord(payment))
	if err != nil {
		return fmt.Errorf("marshaling payment: %w", err)
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(receiptsBucket)).Get([]byte(payment.ReceiptID)) == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, payment.ReceiptID)
		}
		bucket, err := tx.Bucket([]byte(paymentsBucket)).CreateBucketIfNotExists([]byte(payment.ReceiptID))
		if err != nil {
			return fmt.Errorf("creating payment bucket: %w", err)
		}
		return bucket.Put([]byte(payment.ID), data)
	})
}

// ListPayments returns the payments recorded against a receipt, newest first
func (b *BoltDB) ListPayments(_ context.Context, receiptID string) ([]*bill.Payment, error) {
	payments := make([]*bill.Payment, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(paymentsBucket)).Bucket([]byte(receiptID))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, v []byte) error {
			var rec paymentRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("unmarshaling payment %s: %w", k, err)
			}
			payments = append(payments, rec.payment())
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(payments, func(a, b *bill.Payment) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return payments, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
