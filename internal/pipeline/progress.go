package pipeline

import (
	"time"

	"github.com/aimorme/dateplan-back/internal/domain"
)

// stageWeights are expected stage durations in seconds; they double as
// progress weights. The sum is the advertised total estimate.
var stageWeights = [domain.StageCount]int{12, 28, 16, 10, 14, 40}

// EstimatedTotalSeconds is the advertised end-to-end estimate.
const EstimatedTotalSeconds = 120

// OverallProgress maps stage states onto a 0-100 percentage. A stage in
// flight contributes half its weight; terminal stage states (complete,
// failed, skipped) contribute the full weight, so the value never moves
// backwards as stages resolve.
func OverallProgress(stages []domain.StageState) int {
	total := 0
	earned := 0
	for i, stage := range stages {
		if i >= domain.StageCount {
			break
		}
		weight := stageWeights[i]
		total += weight
		switch stage.Status {
		case domain.StageStatusComplete, domain.StageStatusFailed, domain.StageStatusSkipped:
			earned += weight
		case domain.StageStatusProcessing:
			earned += weight / 2
		}
	}
	if total == 0 {
		return 0
	}

	percent := earned * 100 / total
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}

// EstimatedRemaining returns a floor-at-zero seconds-remaining estimate
// from the unresolved stage weight.
func EstimatedRemaining(stages []domain.StageState, startedAt *time.Time) int {
	if startedAt == nil {
		return EstimatedTotalSeconds
	}

	remaining := 0
	for i, stage := range stages {
		if i >= domain.StageCount {
			break
		}
		switch stage.Status {
		case domain.StageStatusPending:
			remaining += stageWeights[i]
		case domain.StageStatusProcessing:
			remaining += stageWeights[i] / 2
		}
	}
	if remaining < 0 {
		return 0
	}
	return remaining
}
