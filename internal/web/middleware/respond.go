package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JonMunkholm/oedatamodel/internal/core"
)

var (
	errMissingAPIKey = errors.New("missing API key")
	errInvalidAPIKey = errors.New("invalid API key")
	errRateLimited   = errors.New("rate limit exceeded")
)

// writeError writes the same JSON error body the handlers use, so clients see
// one error shape regardless of which layer rejected the request.
func writeError(w http.ResponseWriter, err error, status int) {
	msg := core.MapError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   msg.Message,
		"message": msg.Message,
		"action":  msg.Action,
		"code":    msg.Code,
	})
}
