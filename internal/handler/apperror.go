package handler

import "net/http"

type AppError struct {
	Status  int
	Code    string
	Message string
}

func (e *AppError) Error() string { return e.Message }

var (
	ErrInvalidRequest   = &AppError{http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body"}
	ErrValidationFailed = &AppError{http.StatusBadRequest, "VALIDATION_FAILED", "Validation failed"}
	ErrResourceNotFound = &AppError{http.StatusNotFound, "RESOURCE_NOT_FOUND", "Resource not found"}
	ErrInternalError    = &AppError{http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"}

	ErrInvalidQuantity     = &AppError{http.StatusBadRequest, "INVALID_QUANTITY", "Quantity must be greater than zero"}
	ErrInvalidRate         = &AppError{http.StatusBadRequest, "INVALID_RATE", "Rate must not be negative"}
	ErrMissingItem         = &AppError{http.StatusBadRequest, "MISSING_ITEM", "Item id is required"}
	ErrMissingWarehouse    = &AppError{http.StatusBadRequest, "MISSING_WAREHOUSE", "Warehouse id is required"}
	ErrSameWarehouse       = &AppError{http.StatusUnprocessableEntity, "SAME_WAREHOUSE", "Source and destination warehouse must differ"}
	ErrInsufficientStock   = &AppError{http.StatusUnprocessableEntity, "INSUFFICIENT_STOCK", "Insufficient stock"}
	ErrConcurrencyConflict = &AppError{http.StatusConflict, "CONCURRENCY_CONFLICT", "Ledger was modified concurrently, please retry"}
)
