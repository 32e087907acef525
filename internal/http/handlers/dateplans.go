package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aimorme/dateplan-back/internal/domain"
	"github.com/aimorme/dateplan-back/internal/repository"
	"github.com/aimorme/dateplan-back/internal/service"
)

type profilePayload struct {
	Text      string   `json:"text"`
	ImageData []string `json:"image_data,omitempty"`
}

type contextPayload struct {
	Location  string `json:"location,omitempty"`
	TimeOfDay string `json:"time_of_day,omitempty"`
	Season    string `json:"season,omitempty"`
	Duration  string `json:"duration,omitempty"`
	DateType  string `json:"date_type,omitempty"`
}

type submitRequest struct {
	ProfileA profilePayload `json:"profile_a"`
	ProfileB profilePayload `json:"profile_b"`
	Context  contextPayload `json:"context"`
}

type submitResponse struct {
	Success          bool             `json:"success"`
	JobID            string           `json:"job_id"`
	Status           domain.JobStatus `json:"status"`
	EstimatedSeconds int              `json:"estimated_seconds"`
}

func (api *API) Submit(w http.ResponseWriter, r *http.Request) {
	var payload submitRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_payload", "request body is not valid JSON for this endpoint")
		return
	}

	output, err := api.admission.Submit(r.Context(), service.SubmitInput{
		ProfileA: domain.ProfileInput{Text: payload.ProfileA.Text, ImageData: payload.ProfileA.ImageData},
		ProfileB: domain.ProfileInput{Text: payload.ProfileB.Text, ImageData: payload.ProfileB.ImageData},
		Context: domain.DateContext{
			Location:  payload.Context.Location,
			TimeOfDay: payload.Context.TimeOfDay,
			Season:    payload.Context.Season,
			Duration:  payload.Context.Duration,
			DateType:  payload.Context.DateType,
		},
		ClientKey: api.clientKey(r),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		case errors.Is(err, repository.ErrClientBusy):
			writeError(w, r, http.StatusConflict, "client_busy", "a date plan is already being generated for this client")
		default:
			api.logger.Printf("handlers: submit failed: %v", err)
			writeError(w, r, http.StatusInternalServerError, "internal_error", "could not accept the request")
		}
		return
	}

	writeJSON(w, http.StatusAccepted, submitResponse{
		Success:          true,
		JobID:            output.JobID,
		Status:           output.Status,
		EstimatedSeconds: output.EstimatedSeconds,
	})
}

func (api *API) Progress(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	view, err := api.views.Progress(r.Context(), jobID)
	if err != nil {
		api.writeLookupError(w, r, jobID, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (api *API) Result(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	view, err := api.views.Result(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, service.ErrNotReady) {
			writeJobError(w, r, http.StatusConflict, "not_ready", "the date plan is still being generated", jobID)
			return
		}
		api.writeLookupError(w, r, jobID, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (api *API) writeLookupError(w http.ResponseWriter, r *http.Request, jobID string, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeJobError(w, r, http.StatusNotFound, "not_found", "no job with this id", jobID)
	case errors.Is(err, repository.ErrExpired):
		writeJobError(w, r, http.StatusGone, "expired", "this job's results have expired", jobID)
	default:
		api.logger.Printf("handlers: lookup %s failed: %v", jobID, err)
		writeJobError(w, r, http.StatusInternalServerError, "internal_error", "could not load the job", jobID)
	}
}
