package worker

import (
	"context"
	"fmt"
)

// PruneSchedule runs the credential prune at the top of every hour.
const PruneSchedule = "@hourly"

// Pruner deletes expired sessions and password reset grants.
type Pruner interface {
	PruneExpired(ctx context.Context) error
}

// PruneJob removes expired credentials.
type PruneJob struct {
	pruner Pruner
}

func NewPruneJob(pruner Pruner) *PruneJob {
	return &PruneJob{pruner: pruner}
}

func (j *PruneJob) Name() string { return "prune-expired-credentials" }

// Run prunes once. It is idempotent.
func (j *PruneJob) Run(ctx context.Context) error {
	if j == nil || j.pruner == nil {
		return fmt.Errorf("prune job has no pruner")
	}
	if err := j.pruner.PruneExpired(ctx); err != nil {
		return fmt.Errorf("prune expired credentials: %w", err)
	}
	return nil
}
