package domain

import (
	"encoding/json"
	"time"
)

type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusComplete   JobStatus = "complete"
	JobStatusError      JobStatus = "error"
	JobStatusExpired    JobStatus = "expired"
)

type StageStatus string

const (
	StageStatusPending    StageStatus = "pending"
	StageStatusProcessing StageStatus = "processing"
	StageStatusComplete   StageStatus = "complete"
	StageStatusFailed     StageStatus = "failed"
	StageStatusSkipped    StageStatus = "skipped"
)

const StageCount = 6

const (
	StageProfileAnalysis   = 1
	StageCulturalDiscovery = 2
	StageCompatibility     = 3
	StageActivityPlanning  = 4
	StageVenueDiscovery    = 5
	StageFinalOptimization = 6
)

// LastLoadBearingStage separates fail-fast stages (1..4) from degradable
// ones (5..6). Failures at or below this index abort the job.
const LastLoadBearingStage = StageActivityPlanning

const maxPreviews = 8

var stageNames = [StageCount]string{
	"Profile Analysis",
	"Cultural Discovery",
	"Compatibility Calculation",
	"Activity Planning",
	"Venue Discovery",
	"Final Optimization",
}

var stageInitialPreviews = [StageCount]string{
	"Preparing dual personality analysis...",
	"Waiting for cultural preference exploration...",
	"Compatibility analysis pending...",
	"Activity planning queued...",
	"Venue discovery awaiting...",
	"Final optimization pending...",
}

func StageName(index int) string {
	if index < 1 || index > StageCount {
		return ""
	}
	return stageNames[index-1]
}

// StageState tracks one pipeline stage inside a JobRecord. Index is a fixed
// 1-based identity; entries are never reordered.
type StageState struct {
	Index           int             `json:"index"`
	Name            string          `json:"name"`
	Status          StageStatus     `json:"status"`
	Preview         string          `json:"preview"`
	DurationSeconds float64         `json:"duration_seconds,omitempty"`
	Output          json.RawMessage `json:"output,omitempty"`
}

// NewStageStates builds the six pending stage entries created at admission.
func NewStageStates() []StageState {
	stages := make([]StageState, StageCount)
	for i := range stages {
		stages[i] = StageState{
			Index:   i + 1,
			Name:    stageNames[i],
			Status:  StageStatusPending,
			Preview: stageInitialPreviews[i],
		}
	}
	return stages
}

type ErrorDetail struct {
	Code        string    `json:"code"`
	Message     string    `json:"message"`
	FailedStage int       `json:"failed_stage,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// ProviderUsage aggregates external provider consumption across stages.
type ProviderUsage struct {
	ReasoningCalls  int `json:"reasoning_calls"`
	ReasoningTokens int `json:"reasoning_tokens"`
	CulturalCalls   int `json:"cultural_calls"`
}

func (u *ProviderUsage) Merge(other ProviderUsage) {
	u.ReasoningCalls += other.ReasoningCalls
	u.ReasoningTokens += other.ReasoningTokens
	u.CulturalCalls += other.CulturalCalls
}

// JobRecord is the durable unit of state tracking one submitted request
// end-to-end. Created by admission, mutated only by the orchestrator, and
// transitioned to expired by the store reaper.
type JobRecord struct {
	ID        string    `json:"id"`
	ClientKey string    `json:"client_key"`
	Status    JobStatus `json:"status"`

	CurrentStage int          `json:"current_stage"`
	Stages       []StageState `json:"stages"`

	Request PlanRequest `json:"request"`

	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	TimeoutDeadline time.Time  `json:"timeout_deadline"`

	PartialResult json.RawMessage `json:"partial_result,omitempty"`
	FinalResult   json.RawMessage `json:"final_result,omitempty"`
	ErrorDetail   *ErrorDetail    `json:"error_detail,omitempty"`

	Previews []string      `json:"previews"`
	Usage    ProviderUsage `json:"usage"`

	DegradedVenueMatching bool `json:"degraded_venue_matching"`
}

// Terminal reports whether the record reached a final status. Expired counts
// as terminal: an expired record can never return to processing.
func (r *JobRecord) Terminal() bool {
	switch r.Status {
	case JobStatusComplete, JobStatusError, JobStatusExpired:
		return true
	default:
		return false
	}
}

func (r *JobRecord) Stage(index int) *StageState {
	if index < 1 || index > len(r.Stages) {
		return nil
	}
	return &r.Stages[index-1]
}

// AppendPreview adds a rolling human-readable progress line, keeping only
// the most recent entries.
func (r *JobRecord) AppendPreview(preview string) {
	if preview == "" {
		return
	}
	r.Previews = append(r.Previews, preview)
	if len(r.Previews) > maxPreviews {
		r.Previews = r.Previews[len(r.Previews)-maxPreviews:]
	}
}

// QueueMessage is the dispatch format handed to queue backends at admission.
type QueueMessage struct {
	JobID      string    `json:"job_id"`
	ClientKey  string    `json:"client_key"`
	Attempt    int       `json:"attempt"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}
