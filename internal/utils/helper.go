package utils

import (
	"encoding/json"
	"net/http"
)

func StrPtr(s string) *string {
	return &s
}

// NilIfEmpty maps "" to a NULL-able pointer.
func NilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func WriteJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteJSONError(w http.ResponseWriter, message string, code int) {
	WriteJSON(w, code, map[string]string{"error": message})
}

// WriteText writes a plain-text body, the format payment providers and the
// storefront client expect from the webhook and cancel endpoints.
func WriteText(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	if message != "" {
		_, _ = w.Write([]byte(message))
	}
}
