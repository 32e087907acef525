package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/avast/retry-go"

	"github.com/aimorme/dateplan-back/internal/ai"
	"github.com/aimorme/dateplan-back/internal/cultural"
	"github.com/aimorme/dateplan-back/internal/domain"
	"github.com/aimorme/dateplan-back/internal/quality"
	"github.com/aimorme/dateplan-back/internal/repository"
)

const (
	FailureCodeTimeout         = "timeout"
	FailureCodeProviderError   = "provider_error"
	FailureCodeProviderOffline = "provider_unavailable"
	FailureCodeMalformedOutput = "malformed_output"
)

type Config struct {
	Store         repository.RecordStore
	Stages        []Executor
	Logger        *log.Logger
	RetryAttempts uint
	RetryDelay    time.Duration
}

// Orchestrator drives one job through all six stages, persisting every
// state transition so progress reads observe the run as it happens.
type Orchestrator struct {
	store         repository.RecordStore
	stages        []Executor
	logger        *log.Logger
	retryAttempts uint
	retryDelay    time.Duration
}

func NewOrchestrator(config Config) *Orchestrator {
	if config.RetryAttempts == 0 {
		config.RetryAttempts = 3
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 500 * time.Millisecond
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}
	return &Orchestrator{
		store:         config.Store,
		stages:        config.Stages,
		logger:        config.Logger,
		retryAttempts: config.RetryAttempts,
		retryDelay:    config.RetryDelay,
	}
}

// Run executes the pipeline for jobID. Redeliveries of terminal or missing
// jobs are dropped, not errors: the queue may hand the same message twice.
func (o *Orchestrator) Run(ctx context.Context, jobID string) error {
	record, err := o.store.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrExpired) {
			o.logger.Printf("pipeline: dropping job %s: %v", jobID, err)
			return nil
		}
		return fmt.Errorf("load job %s: %w", jobID, err)
	}
	if record.Terminal() {
		o.logger.Printf("pipeline: job %s already %s, skipping", jobID, record.Status)
		return nil
	}

	record, err = o.store.Update(ctx, jobID, func(r *domain.JobRecord) error {
		now := time.Now().UTC()
		r.Status = domain.JobStatusProcessing
		if r.StartedAt == nil {
			r.StartedAt = &now
		}
		r.CurrentStage = domain.StageProfileAnalysis
		return nil
	})
	if err != nil {
		return fmt.Errorf("start job %s: %w", jobID, err)
	}

	ws := NewWorkspace(record.Request)
	deadline := record.TimeoutDeadline

	// Stage execution runs under the job deadline; store writes use the
	// parent context so terminal state still persists after a timeout.
	runCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	for _, stage := range o.stages {
		index := stage.Index()
		if time.Now().After(deadline) || runCtx.Err() != nil {
			return o.failJob(ctx, jobID, index, FailureCodeTimeout, "processing exceeded the global deadline")
		}

		if _, err := o.store.Update(ctx, jobID, func(r *domain.JobRecord) error {
			r.CurrentStage = index
			if state := r.Stage(index); state != nil {
				state.Status = domain.StageStatusProcessing
			}
			return nil
		}); err != nil {
			return fmt.Errorf("mark stage %d processing: %w", index, err)
		}

		started := time.Now()
		result, execErr := o.executeWithRetry(runCtx, stage, ws)
		duration := time.Since(started).Seconds()

		if execErr == nil {
			if _, err := o.store.Update(ctx, jobID, func(r *domain.JobRecord) error {
				applyStageResult(r, index, domain.StageStatusComplete, result, duration)
				return nil
			}); err != nil {
				return fmt.Errorf("persist stage %d: %w", index, err)
			}
			continue
		}

		// Only the job deadline counts as a timeout here. Providers wrap
		// their own per-call deadlines in context.DeadlineExceeded, and a
		// degradable stage exhausting retries on those still gets its
		// fallback as long as the job budget has time left.
		timedOut := time.Now().After(deadline) || runCtx.Err() != nil
		if index <= domain.LastLoadBearingStage || timedOut {
			code := classifyFailure(execErr)
			if timedOut {
				code = FailureCodeTimeout
			}
			o.logger.Printf("pipeline: job %s failed at stage %d: %v", jobID, index, execErr)
			o.recordUsage(ctx, jobID, result.Usage)
			return o.failJob(ctx, jobID, index, code, execErr.Error())
		}

		degradable, ok := stage.(DegradableExecutor)
		if !ok {
			o.logger.Printf("pipeline: job %s failed at stage %d with no fallback: %v", jobID, index, execErr)
			o.recordUsage(ctx, jobID, result.Usage)
			return o.failJob(ctx, jobID, index, classifyFailure(execErr), execErr.Error())
		}

		o.logger.Printf("pipeline: job %s degrading stage %d: %v", jobID, index, execErr)
		fallback := degradable.Fallback(ws)
		fallback.Usage.Merge(result.Usage)
		if _, err := o.store.Update(ctx, jobID, func(r *domain.JobRecord) error {
			applyStageResult(r, index, domain.StageStatusSkipped, fallback, duration)
			if index == domain.StageVenueDiscovery {
				r.DegradedVenueMatching = true
			}
			return nil
		}); err != nil {
			return fmt.Errorf("persist degraded stage %d: %w", index, err)
		}
	}

	_, err = o.store.Update(ctx, jobID, func(r *domain.JobRecord) error {
		now := time.Now().UTC()
		r.Status = domain.JobStatusComplete
		r.CompletedAt = &now
		r.CurrentStage = domain.StageCount
		r.FinalResult = buildFinalResult(ws, r, now)
		return nil
	})
	if err != nil {
		return fmt.Errorf("complete job %s: %w", jobID, err)
	}
	o.logger.Printf("pipeline: job %s complete", jobID)
	return nil
}

// executeWithRetry runs a stage with bounded retry on transient failures.
// Provider usage accumulates across attempts so billing reflects reality.
func (o *Orchestrator) executeWithRetry(ctx context.Context, stage Executor, ws *Workspace) (StageResult, error) {
	var result StageResult
	var usage domain.ProviderUsage

	err := retry.Do(
		func() error {
			attemptResult, attemptErr := o.attempt(ctx, stage, ws)
			usage.Merge(attemptResult.Usage)
			if attemptErr != nil {
				return attemptErr
			}
			attemptResult.Usage = usage
			result = attemptResult
			return nil
		},
		retry.Attempts(o.retryAttempts),
		retry.Delay(o.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return ctx.Err() == nil && ai.IsTransient(err)
		}),
	)
	if err != nil {
		return StageResult{Usage: usage}, err
	}
	return result, nil
}

// attempt runs the stage body in its own goroutine so a provider call that
// outlives the job deadline is abandoned rather than awaited.
func (o *Orchestrator) attempt(ctx context.Context, stage Executor, ws *Workspace) (StageResult, error) {
	type outcome struct {
		result StageResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := stage.Execute(ctx, ws)
		done <- outcome{result: result, err: err}
	}()

	select {
	case <-ctx.Done():
		return StageResult{}, ctx.Err()
	case out := <-done:
		return out.result, out.err
	}
}

func (o *Orchestrator) failJob(ctx context.Context, jobID string, stageIndex int, code, message string) error {
	_, err := o.store.Update(ctx, jobID, func(r *domain.JobRecord) error {
		now := time.Now().UTC()
		r.Status = domain.JobStatusError
		r.CompletedAt = &now
		if state := r.Stage(stageIndex); state != nil && state.Status == domain.StageStatusProcessing {
			state.Status = domain.StageStatusFailed
		}
		r.ErrorDetail = &domain.ErrorDetail{
			Code:        code,
			Message:     message,
			FailedStage: stageIndex,
			OccurredAt:  now,
		}
		r.PartialResult = buildPartialResult(r.Stages)
		return nil
	})
	if err != nil {
		return fmt.Errorf("fail job %s: %w", jobID, err)
	}
	return nil
}

// recordUsage persists provider consumption from attempts that ultimately
// failed the stage.
func (o *Orchestrator) recordUsage(ctx context.Context, jobID string, usage domain.ProviderUsage) {
	if usage == (domain.ProviderUsage{}) {
		return
	}
	if _, err := o.store.Update(ctx, jobID, func(r *domain.JobRecord) error {
		r.Usage.Merge(usage)
		return nil
	}); err != nil {
		o.logger.Printf("pipeline: record usage for job %s: %v", jobID, err)
	}
}

func applyStageResult(r *domain.JobRecord, index int, status domain.StageStatus, result StageResult, duration float64) {
	if state := r.Stage(index); state != nil {
		state.Status = status
		state.DurationSeconds = duration
		if len(result.Output) > 0 {
			state.Output = result.Output
		}
		if result.Preview != "" {
			state.Preview = result.Preview
		}
	}
	r.AppendPreview(result.Preview)
	r.Usage.Merge(result.Usage)
	r.PartialResult = buildPartialResult(r.Stages)
}

func classifyFailure(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return FailureCodeTimeout
	case errors.Is(err, quality.ErrMalformedOutput), errors.Is(err, quality.ErrPlanRejected):
		return FailureCodeMalformedOutput
	case errors.Is(err, ai.ErrUnavailable), errors.Is(err, cultural.ErrUnavailable):
		return FailureCodeProviderOffline
	default:
		return FailureCodeProviderError
	}
}
