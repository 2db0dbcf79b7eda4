package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"lab-catalog-go/internal/domain/catalog"
	"lab-catalog-go/internal/domain/resolution"
	"lab-catalog-go/internal/transport/httpserver/middleware"
)

type examResponse struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Category string           `json:"category"`
	Price    *decimal.Decimal `json:"price"`
	Tariff   *string          `json:"tariff"`
}

type examPriceResponse struct {
	ExamID    string           `json:"exam_id"`
	Available bool             `json:"available"`
	Price     *decimal.Decimal `json:"price"`
	Tariff    *string          `json:"tariff"`
}

// ListCatalog returns the exams the caller may see, each annotated with
// the caller's resolved price when one applies. Visibility and pricing
// run off the same caller snapshot, so the list is internally consistent.
func (h *Handlers) ListCatalog(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	visible, err := h.Resolution.ListVisibleExamIDs(r.Context(), caller)
	if err != nil {
		h.log.InternalError("catalog.list visibility failed", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	examIDs := visible.Sorted()
	exams, err := h.Catalog.ListExamsByIDs(r.Context(), examIDs)
	if err != nil {
		h.log.InternalError("catalog.list fetch failed", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	prices, err := h.Resolution.ResolvePrices(r.Context(), examIDs, caller)
	if err != nil {
		h.log.InternalError("catalog.list pricing failed", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	response := make([]examResponse, 0, len(exams))
	for _, exam := range exams {
		item := examResponse{
			ID:       exam.ID,
			Name:     exam.Name,
			Category: exam.Category,
		}
		if result, ok := prices[exam.ID]; ok && result.Available {
			price := result.Price
			tariff := result.TariffName
			item.Price = &price
			item.Tariff = &tariff
		}
		response = append(response, item)
	}
	writeJSON(w, http.StatusOK, response)
}

// GetExam returns one exam with the caller's resolved price. An exam
// outside the caller's visible set answers 404, same as a missing one.
func (h *Handlers) GetExam(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	examID := chi.URLParam(r, "id")
	visible, err := h.Resolution.ListVisibleExamIDs(r.Context(), caller)
	if err != nil {
		h.log.InternalError("catalog.get visibility failed", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}
	if !visible.Contains(examID) {
		writeError(w, http.StatusNotFound, "exam_not_found", "exam not found")
		return
	}

	exam, err := h.Catalog.GetExam(r.Context(), examID)
	if err != nil {
		if errors.Is(err, catalog.ErrExamNotFound) {
			writeError(w, http.StatusNotFound, "exam_not_found", "exam not found")
			return
		}
		h.log.InternalError("catalog.get failed", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	result, err := h.Resolution.ResolvePrice(r.Context(), examID, caller)
	if err != nil {
		h.log.InternalError("catalog.get pricing failed", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	item := examResponse{ID: exam.ID, Name: exam.Name, Category: exam.Category}
	if result.Available {
		price := result.Price
		tariff := result.TariffName
		item.Price = &price
		item.Tariff = &tariff
	}
	writeJSON(w, http.StatusOK, item)
}

// GetExamPrice resolves one exam's price for the caller. An exam without
// a configured price answers 200 with a null price, not an error.
func (h *Handlers) GetExamPrice(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	examID := chi.URLParam(r, "id")
	result, err := h.Resolution.ResolvePrice(r.Context(), examID, caller)
	if err != nil {
		if errors.Is(err, resolution.ErrExamNotFound) {
			writeError(w, http.StatusNotFound, "exam_not_found", "exam not found")
			return
		}
		h.log.InternalError("catalog.price failed", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	response := examPriceResponse{ExamID: examID, Available: result.Available}
	if result.Available {
		price := result.Price
		tariff := result.TariffName
		response.Price = &price
		response.Tariff = &tariff
	}
	writeJSON(w, http.StatusOK, response)
}
