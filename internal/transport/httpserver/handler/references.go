package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	referencesdomain "lab-catalog-go/internal/domain/references"
)

type createReferenceRequest struct {
	Name            string  `json:"name" validate:"required"`
	BusinessName    *string `json:"business_name"`
	DefaultTariffID *string `json:"default_tariff_id" validate:"omitempty,uuid"`
}

// nullableString unmarshals to "absent", "null" or "value" so partial
// updates can clear a field without a dedicated endpoint.
type nullableString struct {
	set   bool
	value *string
}

func (n *nullableString) UnmarshalJSON(data []byte) error {
	n.set = true
	return json.Unmarshal(data, &n.value)
}

type updateReferenceRequest struct {
	Name            string         `json:"name" validate:"required"`
	BusinessName    nullableString `json:"business_name"`
	DefaultTariffID nullableString `json:"default_tariff_id"`
}

type setActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type assignMemberRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

type referenceResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	BusinessName    *string   `json:"business_name"`
	DefaultTariffID *string   `json:"default_tariff_id"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (h *Handlers) ListReferences(w http.ResponseWriter, r *http.Request) {
	references, err := h.References.ListReferences(r.Context())
	if err != nil {
		h.log.InternalError("references.list failed", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	response := make([]referenceResponse, 0, len(references))
	for _, reference := range references {
		response = append(response, toReferenceResponse(reference))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handlers) GetReference(w http.ResponseWriter, r *http.Request) {
	reference, err := h.References.GetReference(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondReferenceError(w, "references.get", err)
		return
	}
	writeJSON(w, http.StatusOK, toReferenceResponse(*reference))
}

func (h *Handlers) CreateReference(w http.ResponseWriter, r *http.Request) {
	var req createReferenceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	reference, err := h.References.CreateReference(r.Context(), referencesdomain.CreateReferenceInput{
		Name:            req.Name,
		BusinessName:    req.BusinessName,
		DefaultTariffID: req.DefaultTariffID,
	})
	if err != nil {
		h.respondReferenceError(w, "references.create", err)
		return
	}
	writeJSON(w, http.StatusCreated, toReferenceResponse(*reference))
}

func (h *Handlers) UpdateReference(w http.ResponseWriter, r *http.Request) {
	var req updateReferenceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	reference, err := h.References.UpdateReference(r.Context(), referencesdomain.UpdateReferenceInput{
		ID:              chi.URLParam(r, "id"),
		Name:            req.Name,
		BusinessName:    referencesdomain.OptionalNullableString{Set: req.BusinessName.set, Value: req.BusinessName.value},
		DefaultTariffID: referencesdomain.OptionalNullableString{Set: req.DefaultTariffID.set, Value: req.DefaultTariffID.value},
	})
	if err != nil {
		h.respondReferenceError(w, "references.update", err)
		return
	}
	writeJSON(w, http.StatusOK, toReferenceResponse(*reference))
}

func (h *Handlers) DeleteReference(w http.ResponseWriter, r *http.Request) {
	if err := h.References.DeleteReference(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondReferenceError(w, "references.delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) SetReferenceActive(w http.ResponseWriter, r *http.Request) {
	var req setActiveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	if err := h.References.SetActive(r.Context(), chi.URLParam(r, "id"), *req.Active); err != nil {
		h.respondReferenceError(w, "references.set_active", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) AssignMember(w http.ResponseWriter, r *http.Request) {
	var req assignMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	if err := h.References.AssignMember(r.Context(), req.UserID, chi.URLParam(r, "id")); err != nil {
		h.respondReferenceError(w, "references.assign_member", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) RemoveMember(w http.ResponseWriter, r *http.Request) {
	if err := h.References.RemoveMember(r.Context(), chi.URLParam(r, "user_id"), chi.URLParam(r, "id")); err != nil {
		h.respondReferenceError(w, "references.remove_member", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) respondReferenceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, referencesdomain.ErrReferenceNotFound):
		writeError(w, http.StatusNotFound, "reference_not_found", "reference not found")
	case errors.Is(err, referencesdomain.ErrTariffNotFound):
		writeError(w, http.StatusNotFound, "tariff_not_found", "default tariff not found")
	case errors.Is(err, referencesdomain.ErrReferenceNameTaken):
		writeError(w, http.StatusConflict, "reference_name_taken", "a reference with this name already exists")
	case errors.Is(err, referencesdomain.ErrPublicReference):
		writeError(w, http.StatusConflict, "public_reference_protected", "the public reference cannot be renamed or deleted")
	default:
		h.log.InternalError(op+" failed", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func toReferenceResponse(reference referencesdomain.Reference) referenceResponse {
	return referenceResponse{
		ID:              reference.ID,
		Name:            reference.Name,
		BusinessName:    reference.BusinessName,
		DefaultTariffID: reference.DefaultTariffID,
		Active:          reference.Active,
		CreatedAt:       reference.CreatedAt,
		UpdatedAt:       reference.UpdatedAt,
	}
}
