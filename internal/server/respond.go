package server

import (
	"encoding/json"
	"net/http"

	"github.com/dvcrn/bank-api-client/internal/apierr"
	"github.com/dvcrn/bank-api-client/internal/logger"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Get().Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError maps a client failure to a gateway status. AuthExpired always
// reads "session expired".
func writeError(w http.ResponseWriter, err error) {
	kind := apierr.KindOf(err)
	msg := err.Error()
	if kind == apierr.AuthExpired {
		msg = apierr.MessageSessionExpired
	}
	writeJSON(w, apierr.HTTPStatus(err), errorBody{Error: errorDetail{Kind: kind.String(), Message: msg}})
}
