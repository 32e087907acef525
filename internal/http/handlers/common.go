package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/aimorme/dateplan-back/internal/http/middleware"
	"github.com/aimorme/dateplan-back/internal/service"
)

var errInvalidPayload = errors.New("invalid payload")

// ClientKeyFunc derives the single-flight identity for a request.
type ClientKeyFunc func(r *http.Request) string

type API struct {
	admission *service.AdmissionService
	views     *service.ViewService
	logger    *log.Logger
	clientKey ClientKeyFunc
	backends  Backends
}

func NewAPI(admission *service.AdmissionService, views *service.ViewService, backends Backends, logger *log.Logger) *API {
	if logger == nil {
		logger = log.Default()
	}
	return &API{
		admission: admission,
		views:     views,
		logger:    logger,
		clientKey: DeriveClientKey,
		backends:  backends,
	}
}

// DeriveClientKey prefers the explicit header so browser extensions and
// mobile clients behind shared NAT do not collide, falling back to the
// remote IP.
func DeriveClientKey(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get("X-Client-Key")); key != "" {
		return key
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		return r.RemoteAddr
	}
	return host
}

type errorPayload struct {
	Success bool `json:"success"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	JobID     string    `json:"job_id,omitempty"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

func writeJSON(w http.ResponseWriter, statusCode int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, r *http.Request, statusCode int, code, message string) {
	writeJobError(w, r, statusCode, code, message, "")
}

// writeJobError carries the job id in the failure envelope when the caller
// was asking about a specific job.
func writeJobError(w http.ResponseWriter, r *http.Request, statusCode int, code, message, jobID string) {
	payload := errorPayload{
		JobID:     jobID,
		RequestID: middleware.GetRequestID(r.Context()),
		Timestamp: time.Now().UTC(),
	}
	payload.Error.Code = code
	payload.Error.Message = message
	writeJSON(w, statusCode, payload)
}

func decodeJSON(r *http.Request, value any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(value); err != nil {
		return errInvalidPayload
	}
	return nil
}
