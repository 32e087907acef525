package pipeline

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/aimorme/dateplan-back/internal/domain"
)

// StageResult is what a successful stage execution hands back to the
// orchestrator: the persisted stage output, a user-facing preview line and
// the provider usage the attempt consumed.
type StageResult struct {
	Output  json.RawMessage
	Preview string
	Usage   domain.ProviderUsage
}

// Executor runs one pipeline stage against the shared workspace. Execute
// must honor ctx cancellation: the orchestrator abandons calls that outlive
// the job deadline.
type Executor interface {
	Index() int
	Execute(ctx context.Context, ws *Workspace) (StageResult, error)
}

// DegradableExecutor additionally produces a provider-free fallback used
// when every execution attempt fails. Only stages past the load-bearing
// boundary implement it.
type DegradableExecutor interface {
	Executor
	Fallback(ws *Workspace) StageResult
}

func marshalOutput(value any) json.RawMessage {
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil
	}
	return encoded
}

func joinTop(values []string, limit int) string {
	if len(values) > limit {
		values = values[:limit]
	}
	return strings.Join(values, ", ")
}
