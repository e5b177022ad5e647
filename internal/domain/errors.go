package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidQuantity     = errors.New("quantity must be greater than zero")
	ErrZeroQuantityDelta   = errors.New("quantity delta must be non-zero")
	ErrMissingItem         = errors.New("item id is required")
	ErrMissingWarehouse    = errors.New("warehouse id is required")
	ErrInvalidRate         = errors.New("rate must not be negative")
	ErrInvalidVoucherType  = errors.New("invalid voucher type")
	ErrSameWarehouse       = errors.New("source and destination warehouse must differ")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrConcurrencyConflict = errors.New("concurrent ledger modification")
)
