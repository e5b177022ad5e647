package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/emilio-cliff/stockledger/internal/domain"
	"github.com/emilio-cliff/stockledger/internal/stock"
)

type stockService interface {
	RecordReceipt(ctx context.Context, req stock.ReceiptRequest) (*domain.LedgerEntry, error)
	RecordIssue(ctx context.Context, req stock.IssueRequest) (*domain.LedgerEntry, error)
	RecordTransfer(ctx context.Context, req stock.TransferRequest) ([]*domain.LedgerEntry, error)
}

type StockHandler struct {
	stock stockService
}

func NewStockHandler(stock stockService) *StockHandler {
	return &StockHandler{stock: stock}
}

type movementFields struct {
	PostingDate string `json:"posting_date"`
	VoucherID   string `json:"voucher_id"`
}

// parse resolves the optional posting date and voucher id shared by every
// movement request. Errors are reported as field errors, not parse failures.
func (f movementFields) parse() (time.Time, uuid.UUID, []FieldError) {
	var (
		errs        []FieldError
		postingDate time.Time
		voucherID   uuid.UUID
	)

	if f.PostingDate != "" {
		t, err := time.Parse(time.RFC3339, f.PostingDate)
		if err != nil {
			errs = append(errs, FieldError{Field: "posting_date", Message: "must be RFC 3339"})
		} else {
			postingDate = t
		}
	}

	if f.VoucherID != "" {
		id, err := uuid.Parse(f.VoucherID)
		if err != nil {
			errs = append(errs, FieldError{Field: "voucher_id", Message: "must be a UUID"})
		} else {
			voucherID = id
		}
	}

	return postingDate, voucherID, errs
}

type createReceiptRequest struct {
	ItemID      string          `json:"item_id"`
	WarehouseID string          `json:"warehouse_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	movementFields
}

func (r createReceiptRequest) Validate() []FieldError {
	var errs []FieldError

	if r.ItemID == "" {
		errs = append(errs, FieldError{Field: "item_id", Message: "required"})
	}
	if r.WarehouseID == "" {
		errs = append(errs, FieldError{Field: "warehouse_id", Message: "required"})
	}
	if !r.Quantity.IsPositive() {
		errs = append(errs, FieldError{Field: "quantity", Message: "must be greater than 0"})
	}
	if r.Rate.IsNegative() {
		errs = append(errs, FieldError{Field: "rate", Message: "must not be negative"})
	}

	return errs
}

type createIssueRequest struct {
	ItemID      string          `json:"item_id"`
	WarehouseID string          `json:"warehouse_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	movementFields
}

func (r createIssueRequest) Validate() []FieldError {
	var errs []FieldError

	if r.ItemID == "" {
		errs = append(errs, FieldError{Field: "item_id", Message: "required"})
	}
	if r.WarehouseID == "" {
		errs = append(errs, FieldError{Field: "warehouse_id", Message: "required"})
	}
	if !r.Quantity.IsPositive() {
		errs = append(errs, FieldError{Field: "quantity", Message: "must be greater than 0"})
	}

	return errs
}

type createTransferRequest struct {
	ItemID            string          `json:"item_id"`
	SourceWarehouseID string          `json:"source_warehouse_id"`
	DestWarehouseID   string          `json:"dest_warehouse_id"`
	Quantity          decimal.Decimal `json:"quantity"`
	movementFields
}

func (r createTransferRequest) Validate() []FieldError {
	var errs []FieldError

	if r.ItemID == "" {
		errs = append(errs, FieldError{Field: "item_id", Message: "required"})
	}
	if r.SourceWarehouseID == "" {
		errs = append(errs, FieldError{Field: "source_warehouse_id", Message: "required"})
	}
	if r.DestWarehouseID == "" {
		errs = append(errs, FieldError{Field: "dest_warehouse_id", Message: "required"})
	}
	if r.SourceWarehouseID != "" && r.SourceWarehouseID == r.DestWarehouseID {
		errs = append(errs, FieldError{Field: "dest_warehouse_id", Message: "must differ from source_warehouse_id"})
	}
	if !r.Quantity.IsPositive() {
		errs = append(errs, FieldError{Field: "quantity", Message: "must be greater than 0"})
	}

	return errs
}

type entryDTO struct {
	ID            string          `json:"id"`
	ItemID        string          `json:"item_id"`
	WarehouseID   string          `json:"warehouse_id"`
	QuantityDelta decimal.Decimal `json:"quantity_delta"`
	Rate          decimal.Decimal `json:"rate"`
	PostingDate   time.Time       `json:"posting_date"`
	Sequence      int64           `json:"sequence"`
	VoucherType   string          `json:"voucher_type"`
	VoucherID     uuid.UUID       `json:"voucher_id"`
	CreatedAt     time.Time       `json:"created_at"`
}

func toEntryDTO(e *domain.LedgerEntry) entryDTO {
	return entryDTO{
		ID:            e.ID,
		ItemID:        e.ItemID,
		WarehouseID:   e.WarehouseID,
		QuantityDelta: e.QuantityDelta,
		Rate:          e.Rate,
		PostingDate:   e.PostingDate,
		Sequence:      e.Sequence,
		VoucherType:   string(e.VoucherType),
		VoucherID:     e.VoucherID,
		CreatedAt:     e.CreatedAt,
	}
}

func (h *StockHandler) CreateReceipt(w http.ResponseWriter, r *http.Request) {
	var req createReceiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	fieldErrs := req.Validate()
	postingDate, voucherID, parseErrs := req.parse()
	fieldErrs = append(fieldErrs, parseErrs...)
	if len(fieldErrs) > 0 {
		RespondValidationError(w, fieldErrs)
		return
	}

	entry, err := h.stock.RecordReceipt(r.Context(), stock.ReceiptRequest{
		ItemID:      req.ItemID,
		WarehouseID: req.WarehouseID,
		Quantity:    req.Quantity,
		Rate:        req.Rate,
		PostingDate: postingDate,
		VoucherID:   voucherID,
	})
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toEntryDTO(entry))
}

func (h *StockHandler) CreateIssue(w http.ResponseWriter, r *http.Request) {
	var req createIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	fieldErrs := req.Validate()
	postingDate, voucherID, parseErrs := req.parse()
	fieldErrs = append(fieldErrs, parseErrs...)
	if len(fieldErrs) > 0 {
		RespondValidationError(w, fieldErrs)
		return
	}

	entry, err := h.stock.RecordIssue(r.Context(), stock.IssueRequest{
		ItemID:      req.ItemID,
		WarehouseID: req.WarehouseID,
		Quantity:    req.Quantity,
		PostingDate: postingDate,
		VoucherID:   voucherID,
	})
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusCreated, toEntryDTO(entry))
}

func (h *StockHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req createTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondAppError(w, ErrInvalidRequest, nil)
		return
	}

	fieldErrs := req.Validate()
	postingDate, voucherID, parseErrs := req.parse()
	fieldErrs = append(fieldErrs, parseErrs...)
	if len(fieldErrs) > 0 {
		RespondValidationError(w, fieldErrs)
		return
	}

	entries, err := h.stock.RecordTransfer(r.Context(), stock.TransferRequest{
		ItemID:            req.ItemID,
		SourceWarehouseID: req.SourceWarehouseID,
		DestWarehouseID:   req.DestWarehouseID,
		Quantity:          req.Quantity,
		PostingDate:       postingDate,
		VoucherID:         voucherID,
	})
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]entryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, toEntryDTO(e))
	}
	RespondSuccess(w, http.StatusCreated, dtos)
}
