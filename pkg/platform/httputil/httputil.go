// Package httputil centralizes JSON response writing so every handler
// produces the same envelopes.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "beacon/pkg/errors"
)

// WriteJSON writes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error to its HTTP envelope. Internal and
// unavailable errors omit the description so storage details never reach
// the client.
func WriteError(w http.ResponseWriter, err error) {
	code := pkgerrors.CodeOf(err)
	body := map[string]string{"error": string(code)}

	switch code {
	case pkgerrors.CodeInternal, pkgerrors.CodeUnavailable:
	default:
		var gw pkgerrors.GatewayError
		if errors.As(err, &gw) && gw.Message != "" {
			body["error_description"] = gw.Message
		}
	}
	WriteJSON(w, pkgerrors.ToHTTPStatus(code), body)
}
