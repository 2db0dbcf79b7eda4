package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	tariffsdomain "lab-catalog-go/internal/domain/tariffs"
)

type tariffRequest struct {
	Name    string `json:"name" validate:"required"`
	Kind    string `json:"kind" validate:"required,oneof=cost sale"`
	Taxable bool   `json:"taxable"`
}

type setEnabledRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type setPriceRequest struct {
	Price *decimal.Decimal `json:"price" validate:"required"`
}

type importLegacyRequest struct {
	UseReferencePrice bool `json:"use_reference_price"`
}

type tariffResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Taxable   bool      `json:"taxable"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type priceEntryResponse struct {
	ID       string          `json:"id"`
	TariffID string          `json:"tariff_id"`
	ExamID   string          `json:"exam_id"`
	Price    decimal.Decimal `json:"price"`
}

type tariffStatsResponse struct {
	ExamCount int64           `json:"exam_count"`
	AvgPrice  decimal.Decimal `json:"avg_price"`
}

type blockingReferenceResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type tariffInUseResponse struct {
	Error struct {
		Code       string                      `json:"code"`
		Message    string                      `json:"message"`
		References []blockingReferenceResponse `json:"references"`
		PriceCount int64                       `json:"price_count"`
	} `json:"error"`
}

func (h *Handlers) ListTariffs(w http.ResponseWriter, r *http.Request) {
	tariffs, err := h.Tariffs.ListTariffs(r.Context())
	if err != nil {
		h.log.InternalError("tariffs.list failed", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	response := make([]tariffResponse, 0, len(tariffs))
	for _, tariff := range tariffs {
		response = append(response, toTariffResponse(tariff))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handlers) GetTariff(w http.ResponseWriter, r *http.Request) {
	tariff, err := h.Tariffs.GetTariff(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondTariffError(w, "tariffs.get", err)
		return
	}
	writeJSON(w, http.StatusOK, toTariffResponse(*tariff))
}

func (h *Handlers) CreateTariff(w http.ResponseWriter, r *http.Request) {
	var req tariffRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	tariff, err := h.Tariffs.CreateTariff(r.Context(), tariffsdomain.CreateTariffInput{
		Name:    req.Name,
		Kind:    tariffsdomain.Kind(req.Kind),
		Taxable: req.Taxable,
	})
	if err != nil {
		h.respondTariffError(w, "tariffs.create", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTariffResponse(*tariff))
}

func (h *Handlers) UpdateTariff(w http.ResponseWriter, r *http.Request) {
	var req tariffRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	tariff, err := h.Tariffs.UpdateTariff(r.Context(), tariffsdomain.UpdateTariffInput{
		ID:      chi.URLParam(r, "id"),
		Name:    req.Name,
		Kind:    tariffsdomain.Kind(req.Kind),
		Taxable: req.Taxable,
	})
	if err != nil {
		h.respondTariffError(w, "tariffs.update", err)
		return
	}
	writeJSON(w, http.StatusOK, toTariffResponse(*tariff))
}

func (h *Handlers) DeleteTariff(w http.ResponseWriter, r *http.Request) {
	if err := h.Tariffs.DeleteTariff(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondTariffError(w, "tariffs.delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) SetTariffEnabled(w http.ResponseWriter, r *http.Request) {
	var req setEnabledRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	if err := h.Tariffs.SetEnabled(r.Context(), chi.URLParam(r, "id"), *req.Enabled); err != nil {
		h.respondTariffError(w, "tariffs.set_enabled", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) SetPrice(w http.ResponseWriter, r *http.Request) {
	var req setPriceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	entry, err := h.Tariffs.SetPrice(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "exam_id"), *req.Price)
	if err != nil {
		h.respondTariffError(w, "tariffs.set_price", err)
		return
	}
	writeJSON(w, http.StatusOK, toPriceEntryResponse(*entry))
}

func (h *Handlers) DeletePrice(w http.ResponseWriter, r *http.Request) {
	if err := h.Tariffs.DeletePrice(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "exam_id")); err != nil {
		h.respondTariffError(w, "tariffs.delete_price", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) ListPrices(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Tariffs.ListPrices(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondTariffError(w, "tariffs.list_prices", err)
		return
	}

	response := make([]priceEntryResponse, 0, len(entries))
	for _, entry := range entries {
		response = append(response, toPriceEntryResponse(entry))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handlers) ListAllPrices(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Tariffs.ListAllPrices(r.Context())
	if err != nil {
		h.log.InternalError("tariffs.list_all_prices failed", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	response := make([]priceEntryResponse, 0, len(entries))
	for _, entry := range entries {
		response = append(response, toPriceEntryResponse(entry))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handlers) TariffStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Tariffs.Stats(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondTariffError(w, "tariffs.stats", err)
		return
	}
	writeJSON(w, http.StatusOK, tariffStatsResponse{
		ExamCount: stats.ExamCount,
		AvgPrice:  stats.AvgPrice,
	})
}

func (h *Handlers) ImportLegacyPrices(w http.ResponseWriter, r *http.Request) {
	var req importLegacyRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}

	imported, err := h.Tariffs.ImportLegacyPrices(r.Context(), chi.URLParam(r, "id"), req.UseReferencePrice)
	if err != nil {
		h.respondTariffError(w, "tariffs.import_legacy", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"imported": imported})
}

func (h *Handlers) respondTariffError(w http.ResponseWriter, op string, err error) {
	var inUse *tariffsdomain.TariffInUseError
	switch {
	case errors.Is(err, tariffsdomain.ErrTariffNotFound):
		writeError(w, http.StatusNotFound, "tariff_not_found", "tariff not found")
	case errors.Is(err, tariffsdomain.ErrExamNotFound):
		writeError(w, http.StatusNotFound, "exam_not_found", "exam not found")
	case errors.Is(err, tariffsdomain.ErrTariffNameTaken):
		writeError(w, http.StatusConflict, "tariff_name_taken", "a tariff with this name and kind already exists")
	case errors.Is(err, tariffsdomain.ErrInvalidKind):
		writeError(w, http.StatusBadRequest, "invalid_kind", "tariff kind must be cost or sale")
	case errors.Is(err, tariffsdomain.ErrNegativePrice):
		writeError(w, http.StatusBadRequest, "negative_price", "price must not be negative")
	case errors.As(err, &inUse):
		var response tariffInUseResponse
		response.Error.Code = "tariff_in_use"
		response.Error.Message = "tariff is still referenced; remove the blocking references and prices first"
		response.Error.PriceCount = inUse.PriceCount
		response.Error.References = make([]blockingReferenceResponse, 0, len(inUse.References))
		for _, reference := range inUse.References {
			response.Error.References = append(response.Error.References, blockingReferenceResponse{
				ID:   reference.ID,
				Name: reference.Name,
			})
		}
		writeJSON(w, http.StatusConflict, response)
	default:
		h.log.InternalError(op+" failed", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func toTariffResponse(tariff tariffsdomain.Tariff) tariffResponse {
	return tariffResponse{
		ID:        tariff.ID,
		Name:      tariff.Name,
		Kind:      string(tariff.Kind),
		Taxable:   tariff.Taxable,
		Enabled:   tariff.Enabled,
		CreatedAt: tariff.CreatedAt,
		UpdatedAt: tariff.UpdatedAt,
	}
}

func toPriceEntryResponse(entry tariffsdomain.PriceEntry) priceEntryResponse {
	return priceEntryResponse{
		ID:       entry.ID,
		TariffID: entry.TariffID,
		ExamID:   entry.ExamID,
		Price:    entry.Price,
	}
}
