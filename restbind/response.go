package restbind

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"dualbind"
)

// response is the envelope type for successful responses.
type response struct {
	Result any `json:"result"`
}

// errorResponse is the envelope type for error responses.
type errorResponse struct {
	Error *dualbind.Error `json:"error"`
}

func writeResult(w http.ResponseWriter, result any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response{Result: result}); err != nil {
		// Response may be partially written, nothing we can do.
		logger.Error("failed to encode response", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, engineErr *dualbind.Error, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(engineErr.Code.HTTPStatus())
	if err := json.NewEncoder(w).Encode(errorResponse{Error: engineErr}); err != nil {
		logger.Error("failed to encode error response",
			slog.String("code", string(engineErr.Code)),
			slog.Any("error", err))
	}
}
