package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

// Code is a stable machine-readable error code surfaced by the
// registry API alongside the human-readable message.
type Code string

const (
	CodeBadJSON      Code = "BAD_JSON"
	CodeBadRequest   Code = "BAD_REQUEST"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeInvariant    Code = "INVARIANT_VIOLATION"
	CodePaused       Code = "PAUSED"
	CodeStoreError   Code = "STORE_ERROR"
	CodeInternal     Code = "INTERNAL"
)

func NewRequestID() string { return "req_" + uuid.NewString() }

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func ReadJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func WriteError(w http.ResponseWriter, status int, code Code, message string, details any) {
	resp := map[string]any{
		"request_id": NewRequestID(),
		"error": map[string]any{
			"code": code, "message": message, "details": details,
		},
	}
	WriteJSON(w, status, resp)
}
