package http

import (
	"encoding/json"
	"net/http"
)

const (
	codeInvalidRequestBody = "invalid_request_body"
	codeMissingField       = "missing_required_field"
	codeInvalidIdempotency = "invalid_idempotency_key"
	codeRateLimited        = "rate_limited"
	codeNotFound           = "not_found"
	codeUnavailable        = "unavailable"
	codeInternalError      = "internal_error"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{Error: msg, Code: code})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
	return data
}
