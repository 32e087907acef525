package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// Auth guards the /v1/ date-plan endpoints with a static bearer token.
// An empty configured token disables the check, which is how local
// development runs; /healthz is always open.
func Auth(requiredToken string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requiredToken == "" || !strings.HasPrefix(r.URL.Path, "/v1/") {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok || token != requiredToken {
				writeDenied(w, r, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(authorization string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(authorization, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authorization, prefix))
	return token, token != ""
}

type deniedPayload struct {
	Success bool `json:"success"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// writeDenied mirrors the handlers' failure envelope so rejections from the
// middleware chain look the same to clients as handler-level errors.
func writeDenied(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	payload := deniedPayload{
		RequestID: GetRequestID(r.Context()),
		Timestamp: time.Now().UTC(),
	}
	payload.Error.Code = code
	payload.Error.Message = message

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}
