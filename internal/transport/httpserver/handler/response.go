package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
)

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{Code: code, Message: message}})
}

// writeValidationError reports which request fields failed validation.
func writeValidationError(w http.ResponseWriter, err error) {
	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) {
		fields := make([]string, 0, len(fieldErrors))
		for _, fieldError := range fieldErrors {
			fields = append(fields, fieldError.Field())
		}
		writeJSON(w, http.StatusBadRequest, errorEnvelope{Error: errorBody{
			Code:    "invalid_request",
			Message: "request validation failed",
			Fields:  fields,
		}})
		return
	}
	writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
