package receipt

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zombor/receiptwiser/internal/bill"
)

// sqliteSchema creates the receipt tables. Amounts are TEXT columns holding
// decimal strings; timestamps are unix nanoseconds.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS receipts (
	id TEXT PRIMARY KEY,
	items TEXT NOT NULL,
	subtotal TEXT NOT NULL,
	service_charge_percent TEXT NOT NULL,
	service_charge_amount TEXT NOT NULL,
	tax_percent TEXT NOT NULL,
	tax_amount TEXT NOT NULL,
	total TEXT NOT NULL,
	discount_percent TEXT NOT NULL DEFAULT '0',
	creator_name TEXT NOT NULL DEFAULT '',
	creator_phone TEXT NOT NULL DEFAULT '',
	image_url TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS payments (
	id TEXT PRIMARY KEY,
	receipt_id TEXT NOT NULL REFERENCES receipts(id) ON DELETE CASCADE,
	payer_name TEXT NOT NULL,
	items TEXT NOT NULL,
	subtotal TEXT NOT NULL,
	service_charge_amount TEXT NOT NULL,
	tax_amount TEXT NOT NULL,
	total TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_receipts_created_at ON receipts(created_at);
CREATE INDEX IF NOT EXISTS idx_payments_receipt_id ON payments(receipt_id, created_at);
`

// SQLiteDB implements the DB interface on SQLite
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB opens the database at path, creating it and its tables if needed
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// One writer keeps SQLITE_BUSY away from concurrent requests
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &SQLiteDB{db: db}, nil
}

const receiptColumns = `id, items, subtotal, service_charge_percent, service_charge_amount,
	tax_percent, tax_amount, total, discount_percent, creator_name, creator_phone, image_url, created_at`

// SaveReceipt inserts or replaces a receipt
func (s *SQLiteDB) SaveReceipt(ctx context.Context, receipt *bill.Receipt) error {
	rec := newReceiptRecord(receipt)
	items, err := json.Marshal(rec.Items)
	if err != nil {
		return fmt.Errorf("marshaling items: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO receipts (`+receiptColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			items = excluded.items,
			subtotal = excluded.subtotal,
			service_charge_percent = excluded.service_charge_percent,
			service_charge_amount = excluded.service_charge_amount,
			tax_percent = excluded.tax_percent,
			tax_amount = excluded.tax_amount,
			total = excluded.total,
			discount_percent = excluded.discount_percent,
			creator_name = excluded.creator_name,
			creator_phone = excluded.creator_phone,
			image_url = excluded.image_url`,
		rec.ID, string(items), rec.Subtotal, rec.ServiceChargePercent, rec.ServiceChargeAmount,
		rec.TaxPercent, rec.TaxAmount, rec.Total, rec.DiscountPercent,
		rec.CreatorName, rec.CreatorPhone, rec.ImageURL, rec.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("inserting receipt: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReceipt(row rowScanner) (*bill.Receipt, error) {
	var (
		rec       receiptRecord
		items     string
		createdAt int64
	)
	err := row.Scan(&rec.ID, &items, &rec.Subtotal, &rec.ServiceChargePercent, &rec.ServiceChargeAmount,
		&rec.TaxPercent, &rec.TaxAmount, &rec.Total, &rec.DiscountPercent,
		&rec.CreatorName, &rec.CreatorPhone, &rec.ImageURL, &createdAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(items), &rec.Items); err != nil {
		return nil, fmt.Errorf("unmarshaling items: %w", err)
	}
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	return rec.receipt(), nil
}

// GetReceipt retrieves a receipt by ID
func (s *SQLiteDB) GetReceipt(ctx context.Context, id string) (*bill.Receipt, error) {
	r, err := scanReceipt(s.db.QueryRowContext(ctx,
		`SELECT `+receiptColumns+` FROM receipts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	return r, nil
}

// ListReceipts returns all receipts, newest first
func (s *SQLiteDB) ListReceipts(ctx context.Context) ([]*bill.Receipt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+receiptColumns+` FROM receipts ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	defer rows.Close()

	receipts := make([]*bill.Receipt, 0)
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning receipt: %w", err)
		}
		receipts = append(receipts, r)
	}
	return receipts, rows.Err()
}

// SavePayment appends a payment to its receipt
func (s *SQLiteDB) SavePayment(ctx context.Context, payment *bill.Payment) error {
	rec := newPaymentRecord(payment)
	items, err := json.Marshal(rec.Items)
	if err != nil {
		return fmt.Errorf("marshaling payment items: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM receipts WHERE id = ?`, rec.ReceiptID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, rec.ReceiptID)
	}
	if err != nil {
		return fmt.Errorf("checking receipt: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO payments (id, receipt_id, payer_name, items, subtotal, service_charge_amount, tax_amount, total, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ReceiptID, rec.PayerName, string(items),
		rec.Subtotal, rec.ServiceChargeAmount, rec.TaxAmount, rec.Total, rec.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("inserting payment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing payment: %w", err)
	}
	return nil
}

// ListPayments returns the payments of a receipt, newest first
func (s *SQLiteDB) ListPayments(ctx context.Context, receiptID string) ([]*bill.Payment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, receipt_id, payer_name, items, subtotal, service_charge_amount, tax_amount, total, created_at
		 FROM payments WHERE receipt_id = ? ORDER BY created_at DESC, rowid DESC`, receiptID)
	if err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}
	defer rows.Close()

	payments := make([]*bill.Payment, 0)
	for rows.Next() {
		var (
			rec       paymentRecord
			items     string
			createdAt int64
		)
		if err := rows.Scan(&rec.ID, &rec.ReceiptID, &rec.PayerName, &items,
			&rec.Subtotal, &rec.ServiceChargeAmount, &rec.TaxAmount, &rec.Total, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning payment: %w", err)
		}
		if err := json.Unmarshal([]byte(items), &rec.Items); err != nil {
			return nil, fmt.Errorf("unmarshaling payment items: %w", err)
		}
		rec.CreatedAt = time.Unix(0, createdAt).UTC()
		payments = append(payments, rec.payment())
	}
	return payments, rows.Err()
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}
