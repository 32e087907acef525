package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aimorme/dateplan-back/internal/domain"
	"github.com/aimorme/dateplan-back/internal/repository"
)

func seedViewJob(t *testing.T, store repository.RecordStore, mutate func(*domain.JobRecord) error) string {
	t.Helper()
	now := time.Now().UTC()
	record := &domain.JobRecord{
		ID:              "job-1",
		ClientKey:       "client-1",
		Status:          domain.JobStatusQueued,
		Stages:          domain.NewStageStates(),
		CreatedAt:       now,
		TimeoutDeadline: now.Add(time.Minute),
		Previews:        []string{"Date plan request received"},
	}
	if err := store.CreateIfIdle(context.Background(), record); err != nil {
		t.Fatalf("seed create failed: %v", err)
	}
	if mutate != nil {
		if _, err := store.Update(context.Background(), record.ID, mutate); err != nil {
			t.Fatalf("seed update failed: %v", err)
		}
	}
	return record.ID
}

func TestProgressProjectsQueuedJob(t *testing.T) {
	store := repository.NewMemoryRecordStore(time.Hour)
	jobID := seedViewJob(t, store, nil)
	views := NewViewService(store)

	view, err := views.Progress(context.Background(), jobID)
	if err != nil {
		t.Fatalf("progress failed: %v", err)
	}
	if view.Status != domain.JobStatusQueued {
		t.Fatalf("unexpected status %s", view.Status)
	}
	if view.OverallProgress != 0 {
		t.Fatalf("queued job must report 0 progress, got %d", view.OverallProgress)
	}
	if len(view.Stages) != domain.StageCount {
		t.Fatalf("expected %d stages, got %d", domain.StageCount, len(view.Stages))
	}
	if view.Stages[0].Preview == "" {
		t.Fatal("stages must carry their initial previews")
	}
	if len(view.CulturalPreviews) == 0 {
		t.Fatal("expected rolling previews")
	}
	if view.ElapsedSeconds != 0 {
		t.Fatalf("queued job must report 0 elapsed, got %d", view.ElapsedSeconds)
	}
}

func TestProgressReportsCompletion(t *testing.T) {
	store := repository.NewMemoryRecordStore(time.Hour)
	jobID := seedViewJob(t, store, func(r *domain.JobRecord) error {
		now := time.Now().UTC()
		started := now.Add(-90 * time.Second)
		r.Status = domain.JobStatusComplete
		r.StartedAt = &started
		r.CompletedAt = &now
		for i := range r.Stages {
			r.Stages[i].Status = domain.StageStatusComplete
		}
		return nil
	})

	view, err := NewViewService(store).Progress(context.Background(), jobID)
	if err != nil {
		t.Fatalf("progress failed: %v", err)
	}
	if view.OverallProgress != 100 {
		t.Fatalf("complete job must report 100, got %d", view.OverallProgress)
	}
	if view.EstimatedRemainingSeconds != 0 {
		t.Fatalf("complete job must report 0 remaining, got %d", view.EstimatedRemainingSeconds)
	}
	if view.ElapsedSeconds != 90 {
		t.Fatalf("elapsed must freeze at completion, got %d", view.ElapsedSeconds)
	}
}

func TestResultNotReadyWhileProcessing(t *testing.T) {
	store := repository.NewMemoryRecordStore(time.Hour)
	jobID := seedViewJob(t, store, func(r *domain.JobRecord) error {
		r.Status = domain.JobStatusProcessing
		return nil
	})

	_, err := NewViewService(store).Result(context.Background(), jobID)
	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}

func TestResultReturnsFinalPayload(t *testing.T) {
	store := repository.NewMemoryRecordStore(time.Hour)
	jobID := seedViewJob(t, store, func(r *domain.JobRecord) error {
		now := time.Now().UTC()
		r.Status = domain.JobStatusComplete
		r.CompletedAt = &now
		r.FinalResult = json.RawMessage(`{"plan":{"title":"Jazz Evening"}}`)
		return nil
	})

	view, err := NewViewService(store).Result(context.Background(), jobID)
	if err != nil {
		t.Fatalf("result failed: %v", err)
	}
	if !view.Success {
		t.Fatal("completed job must report success")
	}
	if string(view.Result) != `{"plan":{"title":"Jazz Evening"}}` {
		t.Fatalf("unexpected result %s", view.Result)
	}
	if view.CompletedAt == nil {
		t.Fatal("expected completion timestamp")
	}
}

func TestResultForFailedJobCarriesPartial(t *testing.T) {
	store := repository.NewMemoryRecordStore(time.Hour)
	jobID := seedViewJob(t, store, func(r *domain.JobRecord) error {
		now := time.Now().UTC()
		r.Status = domain.JobStatusError
		r.CompletedAt = &now
		r.ErrorDetail = &domain.ErrorDetail{Code: "provider_error", Message: "boom", FailedStage: 2, OccurredAt: now}
		r.PartialResult = json.RawMessage(`{"completed_stages":["Profile Analysis"]}`)
		return nil
	})

	view, err := NewViewService(store).Result(context.Background(), jobID)
	if err != nil {
		t.Fatalf("result failed: %v", err)
	}
	if view.Success {
		t.Fatal("failed job must not report success")
	}
	if view.Error == nil || view.Error.Code != "provider_error" {
		t.Fatalf("unexpected error detail %+v", view.Error)
	}
	if len(view.PartialResult) == 0 {
		t.Fatal("failed job must expose its partial result")
	}
	if len(view.Result) != 0 {
		t.Fatal("failed job must not expose a final result")
	}
}

func TestViewsSurfaceExpiredRecords(t *testing.T) {
	store := repository.NewMemoryRecordStore(time.Hour)
	jobID := seedViewJob(t, store, nil)
	if err := store.MarkExpired(context.Background(), jobID); err != nil {
		t.Fatalf("mark expired failed: %v", err)
	}

	views := NewViewService(store)
	if _, err := views.Progress(context.Background(), jobID); !errors.Is(err, repository.ErrExpired) {
		t.Fatalf("progress: expected ErrExpired, got %v", err)
	}
	if _, err := views.Result(context.Background(), jobID); !errors.Is(err, repository.ErrExpired) {
		t.Fatalf("result: expected ErrExpired, got %v", err)
	}
}
