package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/aimorme/dateplan-back/internal/domain"
	"github.com/aimorme/dateplan-back/internal/pipeline"
	"github.com/aimorme/dateplan-back/internal/policy"
	"github.com/aimorme/dateplan-back/internal/queue"
	"github.com/aimorme/dateplan-back/internal/repository"
)

var ErrValidation = errors.New("invalid request")

const (
	maxProfileTextLen = 10000
	maxProfileImages  = 2
	DefaultJobTimeout = 5 * time.Minute
)

type SubmitInput struct {
	ProfileA  domain.ProfileInput
	ProfileB  domain.ProfileInput
	Context   domain.DateContext
	ClientKey string
}

type SubmitOutput struct {
	JobID            string
	Status           domain.JobStatus
	EstimatedSeconds int
}

// AdmissionService validates submissions, creates the job record under the
// per-client single-flight guard and dispatches the work message.
type AdmissionService struct {
	store    repository.RecordStore
	producer queue.Producer
	timeout  time.Duration
	logger   *log.Logger
	now      func() time.Time
	newID    func() string
}

func NewAdmissionService(
	store repository.RecordStore,
	producer queue.Producer,
	timeout time.Duration,
	logger *log.Logger,
) *AdmissionService {
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}
	if logger == nil {
		logger = log.Default()
	}
	return &AdmissionService{
		store:    store,
		producer: producer,
		timeout:  timeout,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

func (s *AdmissionService) Submit(ctx context.Context, input SubmitInput) (SubmitOutput, error) {
	if err := validateSubmit(input); err != nil {
		return SubmitOutput{}, err
	}

	now := s.now()
	record := &domain.JobRecord{
		ID:        s.newID(),
		ClientKey: input.ClientKey,
		Status:    domain.JobStatusQueued,
		Stages:    domain.NewStageStates(),
		Request: domain.PlanRequest{
			ProfileA: scrubProfile(input.ProfileA),
			ProfileB: scrubProfile(input.ProfileB),
			Context:  input.Context.Normalized(now),
		},
		CreatedAt:       now,
		TimeoutDeadline: now.Add(s.timeout),
		Previews:        []string{"Date plan request received"},
	}

	if err := s.store.CreateIfIdle(ctx, record); err != nil {
		return SubmitOutput{}, err
	}

	message := domain.QueueMessage{
		JobID:      record.ID,
		ClientKey:  record.ClientKey,
		Attempt:    1,
		EnqueuedAt: now,
	}
	if err := s.producer.Enqueue(ctx, message); err != nil {
		// Release the single-flight slot: a record nobody will process
		// must not block the client for the full retention window.
		if _, markErr := s.store.Update(ctx, record.ID, func(r *domain.JobRecord) error {
			r.Status = domain.JobStatusError
			completed := s.now()
			r.CompletedAt = &completed
			r.ErrorDetail = &domain.ErrorDetail{
				Code:       "dispatch_failed",
				Message:    "job could not be queued for processing",
				OccurredAt: completed,
			}
			return nil
		}); markErr != nil {
			s.logger.Printf("admission: mark dispatch failure for job %s: %v", record.ID, markErr)
		}
		return SubmitOutput{}, fmt.Errorf("enqueue job %s: %w", record.ID, err)
	}

	s.logger.Printf("admission: accepted job %s for client %s", record.ID, record.ClientKey)
	return SubmitOutput{
		JobID:            record.ID,
		Status:           record.Status,
		EstimatedSeconds: pipeline.EstimatedTotalSeconds,
	}, nil
}

func validateSubmit(input SubmitInput) error {
	if !input.ProfileA.HasContent() {
		return fmt.Errorf("%w: profile A is empty", ErrValidation)
	}
	if !input.ProfileB.HasContent() {
		return fmt.Errorf("%w: profile B is empty", ErrValidation)
	}
	for label, profile := range map[string]domain.ProfileInput{
		"profile A": input.ProfileA,
		"profile B": input.ProfileB,
	} {
		if len(profile.Text) > maxProfileTextLen {
			return fmt.Errorf("%w: %s text exceeds %d characters", ErrValidation, label, maxProfileTextLen)
		}
		if len(profile.ImageData) > maxProfileImages {
			return fmt.Errorf("%w: %s has more than %d images", ErrValidation, label, maxProfileImages)
		}
	}
	if input.ClientKey == "" {
		return fmt.Errorf("%w: client key could not be derived", ErrValidation)
	}
	return nil
}

func scrubProfile(profile domain.ProfileInput) domain.ProfileInput {
	profile.Text = policy.ScrubProfile(profile.Text)
	return profile
}
