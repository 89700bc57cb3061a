package platform

import (
	"context"
	"database/sql"
	"time"

	"github.com/classboard/classboard/errors"
)

// Late charge policy: a flat percentage applied once per overdue invoice
// after the grace period.
const (
	LateFeePercent = 10
	GraceDays      = 7
)

// Fees stores student invoices and applies late charge policy
type Fees struct {
	db *sql.DB
}

// NewFees creates a fee store over an opened database
func NewFees(db *sql.DB) *Fees {
	return &Fees{db: db}
}

// AddInvoice records an invoice due on the given date
func (f *Fees) AddInvoice(ctx context.Context, id, studentID string, amountCents int, dueDate time.Time) error {
	_, err := f.db.ExecContext(ctx,
		"INSERT INTO invoices (id, student_id, amount_cents, due_date) VALUES (?, ?, ?, ?)",
		id, studentID, amountCents, dueDate.UTC().Format(SQLiteTime))
	if err != nil {
		return errors.Wrap(err, "failed to add invoice")
	}
	return nil
}

// MarkPaid records payment of an invoice
func (f *Fees) MarkPaid(ctx context.Context, id string) error {
	_, err := f.db.ExecContext(ctx,
		"UPDATE invoices SET paid_at = ? WHERE id = ?", nowUTC(), id)
	if err != nil {
		return errors.Wrap(err, "failed to mark invoice paid")
	}
	return nil
}

// LateFee returns the late fee charged on an invoice, zero if none
func (f *Fees) LateFee(ctx context.Context, id string) (int, error) {
	var cents int
	err := f.db.QueryRowContext(ctx,
		"SELECT late_fee_cents FROM invoices WHERE id = ?", id).Scan(&cents)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, errors.Wrapf(errors.ErrNotFound, "invoice %q", id)
	}
	if err != nil {
		return 0, errors.Wrap(err, "failed to get late fee")
	}
	return cents, nil
}

// ApplyLateCharges charges the late fee on every unpaid invoice past its due
// date plus the grace period, once per invoice.
// Returns the number of invoices charged.
func (f *Fees) ApplyLateCharges(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -GraceDays).Format(SQLiteTime)

	result, err := f.db.ExecContext(ctx, `
		UPDATE invoices
		SET late_fee_cents = amount_cents * ? / 100
		WHERE paid_at IS NULL
		  AND late_fee_cents = 0
		  AND due_date < ?
	`, LateFeePercent, cutoff)
	if err != nil {
		return 0, errors.Wrap(err, "failed to apply late charges")
	}
	charged, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get rows affected")
	}
	return int(charged), nil
}
