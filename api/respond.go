// Package api is the HTTP surface: gorilla/mux routes binding verified
// internal/actor.Context requests to the internal/* components, one handler
// file per resource group.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"grievance/internal/grievance"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// writeError maps a grievance.Error's Kind to its HTTP status. Any other
// error is treated as a downstream failure (5xx).
func writeError(w http.ResponseWriter, err error) {
	var gerr *grievance.Error
	if !errors.As(err, &gerr) {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "InternalError", Message: err.Error()})
		return
	}

	status := http.StatusInternalServerError
	switch gerr.Kind {
	case grievance.KindInvalidTransition, grievance.KindValidation:
		status = http.StatusBadRequest
	case grievance.KindUnauthorized, grievance.KindOwnershipRequired, grievance.KindDepartmentMismatch, grievance.KindPreconditionFailed:
		status = http.StatusForbidden
	case grievance.KindNotFound:
		status = http.StatusNotFound
	case grievance.KindConflict:
		status = http.StatusConflict
	case grievance.KindExternalUnavailable:
		status = http.StatusBadGateway
	}
	writeJSON(w, status, errorBody{Error: string(gerr.Kind), Message: gerr.Message, Detail: gerr.Detail})
}

func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
