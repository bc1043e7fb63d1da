package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sakhihub/sakhi/internal/backend"
)

type errorBody struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, format string, args ...any) {
	respondJSON(w, status, errorBody{Error: fmt.Sprintf(format, args...)})
}

// respondBackendError maps a backend failure onto this API: backend rejections
// keep their status code, transport failures become 502.
func respondBackendError(w http.ResponseWriter, err error) {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		respondError(w, apiErr.StatusCode, "%s", apiErr.Detail)
		return
	}
	respondError(w, http.StatusBadGateway, "backend unreachable: %v", err)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
