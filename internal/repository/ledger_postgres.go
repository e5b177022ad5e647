package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/emilio-cliff/stockledger/internal/domain"
)

const ledgerColumns = `id, item_id, warehouse_id, quantity_delta, rate,
	posting_date, sequence, voucher_type, voucher_id, created_at`

// PostgresLedgerStore is the primary LedgerStore backend. Immutability is
// enforced both here (no update/delete statements exist) and in the schema,
// which rejects UPDATE and DELETE on stock_ledger_entries with a trigger.
type PostgresLedgerStore struct {
	db *sql.DB
}

func NewPostgresLedgerStore(db *sql.DB) *PostgresLedgerStore {
	return &PostgresLedgerStore{db: db}
}

func (s *PostgresLedgerStore) Append(ctx context.Context, entries ...*domain.LedgerEntry) error {
	if err := validateAll(entries); err != nil {
		return fmt.Errorf("Append: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("Append: begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, e := range entries {
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		err := tx.QueryRowContext(ctx,
			`INSERT INTO stock_ledger_entries (
				id, item_id, warehouse_id, quantity_delta, rate,
				posting_date, voucher_type, voucher_id, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING sequence`,
			e.ID, e.ItemID, e.WarehouseID, e.QuantityDelta, e.Rate,
			e.PostingDate.UTC(), e.VoucherType, e.VoucherID, e.CreatedAt,
		).Scan(&e.Sequence)
		if err != nil {
			return fmt.Errorf("Append: insert: %w", mapPostgresError(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("Append: commit: %w", mapPostgresError(err))
	}
	return nil
}

func (s *PostgresLedgerStore) EntriesFor(ctx context.Context, itemID, warehouseID string, cutoff time.Time) ([]domain.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ledgerColumns+` FROM stock_ledger_entries
		WHERE item_id = $1 AND warehouse_id = $2 AND posting_date <= $3
		ORDER BY posting_date, sequence`,
		itemID, warehouseID, cutoff.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("EntriesFor: %w", err)
	}
	return collectEntries(rows, "EntriesFor")
}

func (s *PostgresLedgerStore) EntriesBetween(ctx context.Context, itemID, warehouseID string, after, cutoff time.Time) ([]domain.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ledgerColumns+` FROM stock_ledger_entries
		WHERE item_id = $1 AND warehouse_id = $2
			AND posting_date > $3 AND posting_date <= $4
		ORDER BY posting_date, sequence`,
		itemID, warehouseID, after.UTC(), cutoff.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("EntriesBetween: %w", err)
	}
	return collectEntries(rows, "EntriesBetween")
}

func (s *PostgresLedgerStore) EntriesByVoucher(ctx context.Context, voucherID uuid.UUID) ([]domain.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+ledgerColumns+` FROM stock_ledger_entries
		WHERE voucher_id = $1 ORDER BY sequence`,
		voucherID,
	)
	if err != nil {
		return nil, fmt.Errorf("EntriesByVoucher: %w", err)
	}
	return collectEntries(rows, "EntriesByVoucher")
}

func (s *PostgresLedgerStore) ItemsWithActivity(ctx context.Context, cutoff time.Time) ([]domain.ItemWarehouse, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT item_id, warehouse_id FROM stock_ledger_entries
		WHERE posting_date <= $1 ORDER BY item_id, warehouse_id`,
		cutoff.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("ItemsWithActivity: %w", err)
	}
	defer rows.Close()

	var pairs []domain.ItemWarehouse
	for rows.Next() {
		var p domain.ItemWarehouse
		if err := rows.Scan(&p.ItemID, &p.WarehouseID); err != nil {
			return nil, fmt.Errorf("ItemsWithActivity: scan: %w", err)
		}
		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ItemsWithActivity: rows: %w", err)
	}
	return pairs, nil
}

func collectEntries(rows *sql.Rows, op string) ([]domain.LedgerEntry, error) {
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return entries, nil
}

func scanLedgerEntry(s scanner) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	err := s.Scan(
		&e.ID, &e.ItemID, &e.WarehouseID, &e.QuantityDelta, &e.Rate,
		&e.PostingDate, &e.Sequence, &e.VoucherType, &e.VoucherID,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func mapPostgresError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// serialization_failure, deadlock_detected
		if pqErr.Code == "40001" || pqErr.Code == "40P01" {
			return fmt.Errorf("%v: %w", err, domain.ErrConcurrencyConflict)
		}
	}
	return err
}
