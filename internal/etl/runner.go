package etl

import (
	"context"
	"log/slog"
	"time"

	"github.com/raphaelgruber/contextuse-go/internal/etl/pipe"
	"github.com/raphaelgruber/contextuse-go/internal/metrics"
	"github.com/raphaelgruber/contextuse-go/internal/models"
	"github.com/raphaelgruber/contextuse-go/internal/storage"
	"github.com/raphaelgruber/contextuse-go/internal/store"
)

// Runner drives a single task through extract, transform and upload,
// persisting the status and stage counters after each transition.
type Runner struct {
	store   store.Store
	blobs   storage.Backend
	log     *slog.Logger
	metrics *metrics.Collector
}

// NewRunner creates a runner. The collector may be nil, in which case no
// stage timings are recorded.
func NewRunner(st store.Store, blobs storage.Backend, log *slog.Logger, mc *metrics.Collector) *Runner {
	return &Runner{store: st, blobs: blobs, log: log, metrics: mc}
}

func (r *Runner) record(stage string, start time.Time, records int) {
	if r.metrics != nil {
		r.metrics.Record(stage, time.Since(start), int64(records))
	}
}

func (r *Runner) setStatus(ctx context.Context, task *models.EtlTask, status models.EtlTaskStatus) error {
	task.Status = status
	return r.store.UpdateTask(ctx, task)
}

// Run executes the full pipeline for one task and returns the number of
// thread rows actually inserted. On any stage failure the task is marked
// failed and a typed stage error is returned.
func (r *Runner) Run(ctx context.Context, task *models.EtlTask, p pipe.Pipe) (int, error) {
	log := r.log.With("task_id", task.ID, "interaction_type", task.InteractionType)
	log.Info("etl start", "source_uri", task.SourceURI)

	if err := r.setStatus(ctx, task, models.TaskExtracting); err != nil {
		return 0, r.fail(ctx, task, &ExtractionError{TaskID: task.ID, Err: err})
	}
	extractStart := time.Now()
	batches, err := p.Extraction.Extract(ctx, task, r.blobs)
	if err != nil {
		return 0, r.fail(ctx, task, &ExtractionError{TaskID: task.ID, Err: err})
	}
	for _, b := range batches {
		task.ExtractedCount += len(b)
	}
	r.record(metrics.StageExtract, extractStart, task.ExtractedCount)
	log.Info("extracted", "records", task.ExtractedCount, "batches", len(batches))

	if err := r.setStatus(ctx, task, models.TaskTransforming); err != nil {
		return 0, r.fail(ctx, task, &TransformError{TaskID: task.ID, Err: err})
	}
	transformStart := time.Now()
	var rows []models.ThreadRow
	for _, batch := range batches {
		for _, rec := range batch {
			row, err := p.Transform.Transform(task, rec)
			if err != nil {
				return 0, r.fail(ctx, task, &TransformError{TaskID: task.ID, Err: err})
			}
			if row == nil {
				continue
			}
			rows = append(rows, *row)
		}
	}
	task.TransformedCount = len(rows)
	r.record(metrics.StageTransform, transformStart, len(rows))
	log.Info("transformed", "rows", len(rows))

	if err := r.setStatus(ctx, task, models.TaskUploading); err != nil {
		return 0, r.fail(ctx, task, &UploadError{TaskID: task.ID, Err: err})
	}
	uploadStart := time.Now()
	inserted, err := r.store.InsertThreads(ctx, task.ID, rows)
	if err != nil {
		return 0, r.fail(ctx, task, &UploadError{TaskID: task.ID, Err: err})
	}
	task.UploadedCount = inserted
	r.record(metrics.StageUpload, uploadStart, inserted)

	if err := r.setStatus(ctx, task, models.TaskCompleted); err != nil {
		return 0, r.fail(ctx, task, &UploadError{TaskID: task.ID, Err: err})
	}
	log.Info("etl done", "uploaded", inserted)
	return inserted, nil
}

// fail marks the task failed, keeping whatever counters were already set.
// The original stage error takes precedence over any update failure.
func (r *Runner) fail(ctx context.Context, task *models.EtlTask, cause error) error {
	task.Status = models.TaskFailed
	if err := r.store.UpdateTask(ctx, task); err != nil {
		r.log.Error("failed to persist task failure", "task_id", task.ID, "error", err)
	}
	return cause
}
