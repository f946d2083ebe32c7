package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/univera/univera/internal/hr"
	jobmetrics "github.com/univera/univera/internal/jobs"
)

// AssignmentSweepJob closes open org assignments of inactive employees so
// the scoping index stops counting them.
type AssignmentSweepJob struct {
	hr      *hr.Service
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewAssignmentSweepJob constructs the job.
func NewAssignmentSweepJob(hrSvc *hr.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *AssignmentSweepJob {
	return &AssignmentSweepJob{hr: hrSvc, logger: logger, metrics: metrics}
}

// Handle processes TaskAssignmentSweep tasks.
func (j *AssignmentSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track("hr_assignment_sweep")
	closed, err := j.hr.SweepOrphanedAssignments(ctx)
	if err != nil {
		j.logger.Error("assignment sweep", slog.Any("error", err))
		return tracker.End(err)
	}
	j.metrics.AddClosedAssignments(closed)
	if closed > 0 {
		j.logger.Info("orphaned assignments closed", slog.Int64("count", closed))
	}
	return tracker.End(nil)
}
