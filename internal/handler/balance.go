package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/emilio-cliff/stockledger/internal/domain"
	"github.com/emilio-cliff/stockledger/internal/report"
)

type reportService interface {
	Balance(ctx context.Context, itemID, warehouseID string, cutoff time.Time) (domain.StockBalance, error)
	Snapshot(ctx context.Context, cutoff time.Time, opts report.SnapshotOptions) ([]domain.StockBalance, error)
}

type BalanceHandler struct {
	reports reportService
}

func NewBalanceHandler(reports reportService) *BalanceHandler {
	return &BalanceHandler{reports: reports}
}

type balanceDTO struct {
	ItemID      string          `json:"item_id"`
	WarehouseID string          `json:"warehouse_id"`
	QtyOnHand   decimal.Decimal `json:"qty_on_hand"`
	AverageRate decimal.Decimal `json:"average_rate"`
	Value       decimal.Decimal `json:"value"`
}

func toBalanceDTO(b domain.StockBalance) balanceDTO {
	return balanceDTO{
		ItemID:      b.ItemID,
		WarehouseID: b.WarehouseID,
		QtyOnHand:   b.QtyOnHand,
		AverageRate: b.AverageRate,
		Value:       b.Value,
	}
}

// parseAsOf reads the optional as_of query parameter, defaulting to now.
func parseAsOf(r *http.Request) (time.Time, *FieldError) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, &FieldError{Field: "as_of", Message: "must be RFC 3339"}
	}
	return t, nil
}

func (h *BalanceHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	var fieldErrs []FieldError

	itemID := r.URL.Query().Get("item_id")
	if itemID == "" {
		fieldErrs = append(fieldErrs, FieldError{Field: "item_id", Message: "required"})
	}
	warehouseID := r.URL.Query().Get("warehouse_id")
	if warehouseID == "" {
		fieldErrs = append(fieldErrs, FieldError{Field: "warehouse_id", Message: "required"})
	}

	asOf, fieldErr := parseAsOf(r)
	if fieldErr != nil {
		fieldErrs = append(fieldErrs, *fieldErr)
	}
	if len(fieldErrs) > 0 {
		RespondValidationError(w, fieldErrs)
		return
	}

	bal, err := h.reports.Balance(r.Context(), itemID, warehouseID, asOf)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	RespondSuccess(w, http.StatusOK, toBalanceDTO(bal))
}

func (h *BalanceHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	asOf, fieldErr := parseAsOf(r)
	if fieldErr != nil {
		RespondValidationError(w, []FieldError{*fieldErr})
		return
	}

	var opts report.SnapshotOptions
	if raw := r.URL.Query().Get("hide_zero"); raw != "" {
		hide, err := strconv.ParseBool(raw)
		if err != nil {
			RespondValidationError(w, []FieldError{{Field: "hide_zero", Message: "must be a boolean"}})
			return
		}
		opts.HideZeroStock = hide
	}

	rows, err := h.reports.Snapshot(r.Context(), asOf, opts)
	if err != nil {
		RespondDomainError(w, err)
		return
	}

	dtos := make([]balanceDTO, 0, len(rows))
	for _, b := range rows {
		dtos = append(dtos, toBalanceDTO(b))
	}
	RespondSuccess(w, http.StatusOK, dtos)
}
