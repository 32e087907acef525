package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/aimorme/dateplan-back/internal/domain"
	"github.com/aimorme/dateplan-back/internal/pipeline"
	"github.com/aimorme/dateplan-back/internal/repository"
)

// ErrNotReady is returned by Result for jobs still queued or processing.
var ErrNotReady = errors.New("result not ready")

type StageView struct {
	Index           int     `json:"index"`
	Name            string  `json:"name"`
	Status          string  `json:"status"`
	Preview         string  `json:"preview"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

type ProgressView struct {
	Success                   bool                `json:"success"`
	JobID                     string              `json:"job_id"`
	Status                    domain.JobStatus    `json:"status"`
	CurrentStage              int                 `json:"current_stage"`
	OverallProgress           int                 `json:"overall_progress"`
	ElapsedSeconds            int                 `json:"elapsed_seconds"`
	EstimatedRemainingSeconds int                 `json:"estimated_remaining_seconds"`
	Stages                    []StageView         `json:"stages"`
	CulturalPreviews          []string            `json:"cultural_previews"`
	Error                     *domain.ErrorDetail `json:"error,omitempty"`
}

type ResultView struct {
	Success               bool                `json:"success"`
	JobID                 string              `json:"job_id"`
	Status                domain.JobStatus    `json:"status"`
	Result                json.RawMessage     `json:"result,omitempty"`
	PartialResult         json.RawMessage     `json:"partial_result,omitempty"`
	Error                 *domain.ErrorDetail `json:"error,omitempty"`
	DegradedVenueMatching bool                `json:"degraded_venue_matching"`
	CompletedAt           *time.Time          `json:"completed_at,omitempty"`
}

// ViewService serves read-only projections of job records. It never
// mutates state: polling a job cannot change its lifecycle.
type ViewService struct {
	store repository.RecordStore
}

func NewViewService(store repository.RecordStore) *ViewService {
	return &ViewService{store: store}
}

func (s *ViewService) Progress(ctx context.Context, jobID string) (ProgressView, error) {
	record, err := s.store.Get(ctx, jobID)
	if err != nil {
		return ProgressView{}, err
	}

	stages := make([]StageView, 0, len(record.Stages))
	for _, stage := range record.Stages {
		stages = append(stages, StageView{
			Index:           stage.Index,
			Name:            stage.Name,
			Status:          string(stage.Status),
			Preview:         stage.Preview,
			DurationSeconds: stage.DurationSeconds,
		})
	}

	view := ProgressView{
		Success:          true,
		JobID:            record.ID,
		Status:           record.Status,
		CurrentStage:     record.CurrentStage,
		OverallProgress:  pipeline.OverallProgress(record.Stages),
		ElapsedSeconds:   elapsedSeconds(record),
		Stages:           stages,
		CulturalPreviews: append([]string(nil), record.Previews...),
		Error:            record.ErrorDetail,
	}
	switch record.Status {
	case domain.JobStatusComplete:
		view.OverallProgress = 100
		view.EstimatedRemainingSeconds = 0
	case domain.JobStatusError:
		view.EstimatedRemainingSeconds = 0
	default:
		view.EstimatedRemainingSeconds = pipeline.EstimatedRemaining(record.Stages, record.StartedAt)
	}
	return view, nil
}

// elapsedSeconds is 0 while queued and stops advancing once the job is
// terminal.
func elapsedSeconds(record *domain.JobRecord) int {
	if record.StartedAt == nil {
		return 0
	}
	end := time.Now().UTC()
	if record.CompletedAt != nil {
		end = *record.CompletedAt
	}
	elapsed := int(end.Sub(*record.StartedAt).Seconds())
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

func (s *ViewService) Result(ctx context.Context, jobID string) (ResultView, error) {
	record, err := s.store.Get(ctx, jobID)
	if err != nil {
		return ResultView{}, err
	}

	view := ResultView{
		JobID:                 record.ID,
		Status:                record.Status,
		DegradedVenueMatching: record.DegradedVenueMatching,
		CompletedAt:           record.CompletedAt,
	}
	switch record.Status {
	case domain.JobStatusComplete:
		view.Success = true
		view.Result = append(json.RawMessage(nil), record.FinalResult...)
	case domain.JobStatusError:
		view.Error = record.ErrorDetail
		view.PartialResult = append(json.RawMessage(nil), record.PartialResult...)
	default:
		return view, ErrNotReady
	}
	return view, nil
}
