package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/emilio-cliff/stockledger/internal/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS stock_ledger_entries (
	sequence       INTEGER PRIMARY KEY AUTOINCREMENT,
	id             TEXT    NOT NULL UNIQUE,
	item_id        TEXT    NOT NULL,
	warehouse_id   TEXT    NOT NULL,
	quantity_delta TEXT    NOT NULL,
	rate           TEXT    NOT NULL,
	posting_date   INTEGER NOT NULL,
	voucher_type   TEXT    NOT NULL,
	voucher_id     TEXT    NOT NULL,
	created_at     INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sle_pair_date
	ON stock_ledger_entries (item_id, warehouse_id, posting_date, sequence);

CREATE INDEX IF NOT EXISTS idx_sle_voucher
	ON stock_ledger_entries (voucher_id);

CREATE TRIGGER IF NOT EXISTS stock_ledger_entries_no_update
	BEFORE UPDATE ON stock_ledger_entries
BEGIN
	SELECT RAISE(ABORT, 'stock ledger entries are immutable');
END;

CREATE TRIGGER IF NOT EXISTS stock_ledger_entries_no_delete
	BEFORE DELETE ON stock_ledger_entries
BEGIN
	SELECT RAISE(ABORT, 'stock ledger entries are immutable');
END;
`

const sqliteLedgerColumns = `id, item_id, warehouse_id, quantity_delta, rate,
	posting_date, sequence, voucher_type, voucher_id, created_at`

// SQLiteLedgerStore is an embedded LedgerStore backend. Posting dates are
// stored as unix nanoseconds so range predicates stay plain integer
// comparisons; quantities and rates are stored as decimal strings.
type SQLiteLedgerStore struct {
	db *sql.DB
}

func NewSQLiteLedgerStore(path string) (*SQLiteLedgerStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("NewSQLiteLedgerStore: open: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("NewSQLiteLedgerStore: schema: %w", err)
	}

	return &SQLiteLedgerStore{db: db}, nil
}

func (s *SQLiteLedgerStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteLedgerStore) Append(ctx context.Context, entries ...*domain.LedgerEntry) error {
	if err := validateAll(entries); err != nil {
		return fmt.Errorf("Append: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("Append: begin tx: %w", mapSQLiteError(err))
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, e := range entries {
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO stock_ledger_entries (
				id, item_id, warehouse_id, quantity_delta, rate,
				posting_date, voucher_type, voucher_id, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.ItemID, e.WarehouseID,
			e.QuantityDelta.String(), e.Rate.String(),
			e.PostingDate.UTC().UnixNano(), string(e.VoucherType),
			e.VoucherID.String(), e.CreatedAt.UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("Append: insert: %w", mapSQLiteError(err))
		}
		seq, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("Append: sequence: %w", err)
		}
		e.Sequence = seq
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("Append: commit: %w", mapSQLiteError(err))
	}
	return nil
}

func (s *SQLiteLedgerStore) EntriesFor(ctx context.Context, itemID, warehouseID string, cutoff time.Time) ([]domain.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteLedgerColumns+` FROM stock_ledger_entries
		WHERE item_id = ? AND warehouse_id = ? AND posting_date <= ?
		ORDER BY posting_date, sequence`,
		itemID, warehouseID, cutoff.UTC().UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("EntriesFor: %w", err)
	}
	return collectSQLiteEntries(rows, "EntriesFor")
}

func (s *SQLiteLedgerStore) EntriesBetween(ctx context.Context, itemID, warehouseID string, after, cutoff time.Time) ([]domain.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteLedgerColumns+` FROM stock_ledger_entries
		WHERE item_id = ? AND warehouse_id = ?
			AND posting_date > ? AND posting_date <= ?
		ORDER BY posting_date, sequence`,
		itemID, warehouseID, after.UTC().UnixNano(), cutoff.UTC().UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("EntriesBetween: %w", err)
	}
	return collectSQLiteEntries(rows, "EntriesBetween")
}

func (s *SQLiteLedgerStore) EntriesByVoucher(ctx context.Context, voucherID uuid.UUID) ([]domain.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteLedgerColumns+` FROM stock_ledger_entries
		WHERE voucher_id = ? ORDER BY sequence`,
		voucherID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("EntriesByVoucher: %w", err)
	}
	return collectSQLiteEntries(rows, "EntriesByVoucher")
}

func (s *SQLiteLedgerStore) ItemsWithActivity(ctx context.Context, cutoff time.Time) ([]domain.ItemWarehouse, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT item_id, warehouse_id FROM stock_ledger_entries
		WHERE posting_date <= ? ORDER BY item_id, warehouse_id`,
		cutoff.UTC().UnixNano(),
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

func collectSQLiteEntries(rows *sql.Rows, op string) ([]domain.LedgerEntry, error) {
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		e, err := scanSQLiteEntry(rows)
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

func scanSQLiteEntry(s scanner) (*domain.LedgerEntry, error) {
	var (
		e            domain.LedgerEntry
		deltaStr     string
		rateStr      string
		voucherType  string
		voucherIDStr string
		postingNanos int64
		createdNanos int64
	)
	err := s.Scan(
		&e.ID, &e.ItemID, &e.WarehouseID, &deltaStr, &rateStr,
		&postingNanos, &e.Sequence, &voucherType, &voucherIDStr,
		&createdNanos,
	)
	if err != nil {
		return nil, err
	}

	if e.QuantityDelta, err = decimal.NewFromString(deltaStr); err != nil {
		return nil, fmt.Errorf("parse quantity_delta: %w", err)
	}
	if e.Rate, err = decimal.NewFromString(rateStr); err != nil {
		return nil, fmt.Errorf("parse rate: %w", err)
	}
	if e.VoucherID, err = uuid.Parse(voucherIDStr); err != nil {
		return nil, fmt.Errorf("parse voucher_id: %w", err)
	}
	e.VoucherType = domain.VoucherType(voucherType)
	e.PostingDate = time.Unix(0, postingNanos).UTC()
	e.CreatedAt = time.Unix(0, createdNanos).UTC()
	return &e, nil
}

func mapSQLiteError(err error) error {
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) {
		if sqErr.Code == sqlite3.ErrBusy || sqErr.Code == sqlite3.ErrLocked {
			return fmt.Errorf("%v: %w", err, domain.ErrConcurrencyConflict)
		}
	}
	return err
}
