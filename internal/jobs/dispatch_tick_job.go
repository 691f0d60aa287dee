package job

import (
	"context"
	"log/slog"

	"github.com/sundayhq/sunday-scheduler/internal/service"
)

// DispatchTickJob is the periodic safety net behind the per-item triggers:
// each tick reclaims attempts stuck in publishing, then dispatches whatever
// is due. The cron schedule runs ticks sequentially, never overlapped.
type DispatchTickJob struct {
	d service.DispatchService
}

func NewDispatchTickJob(d service.DispatchService) *DispatchTickJob {
	return &DispatchTickJob{d: d}
}

func (j *DispatchTickJob) Run() {
	ctx := context.Background()

	reclaimed := j.d.ReclaimStale(ctx)
	if len(reclaimed) > 0 {
		slog.Info("tick reclaimed stale items", "count", len(reclaimed))
	}

	summary := j.d.DispatchDue(ctx)
	if summary.Dispatched > 0 || summary.Failed > 0 {
		slog.Info("tick dispatched due items", "dispatched", summary.Dispatched, "failed", summary.Failed)
	}
}
