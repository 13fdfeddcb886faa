package etl

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/raphaelgruber/contextuse-go/internal/etl/pipe"
	"github.com/raphaelgruber/contextuse-go/internal/metrics"
	"github.com/raphaelgruber/contextuse-go/internal/models"
	"github.com/raphaelgruber/contextuse-go/internal/storage"
	"github.com/raphaelgruber/contextuse-go/internal/store"
)

// TaskBreakdown reports how many thread rows one task contributed.
type TaskBreakdown struct {
	InteractionType string `json:"interaction_type"`
	ThreadCount     int    `json:"thread_count"`
}

// PipelineResult summarizes one archive ingestion run.
type PipelineResult struct {
	ArchiveID      string          `json:"archive_id"`
	TasksCompleted int             `json:"tasks_completed"`
	TasksFailed    int             `json:"tasks_failed"`
	ThreadsCreated int             `json:"threads_created"`
	Errors         []string        `json:"errors,omitempty"`
	Breakdown      []TaskBreakdown `json:"breakdown,omitempty"`
}

// TaskEvent notifies observers (the CLI progress UI) about task progress.
type TaskEvent struct {
	TaskID          string
	InteractionType string
	Status          models.EtlTaskStatus
	Threads         int
	Err             error
}

// Orchestrator runs the full archive flow: unpack, discover, run tasks,
// settle the final archive status.
type Orchestrator struct {
	store    store.Store
	blobs    storage.Backend
	registry *Registry
	log      *slog.Logger

	// OnEvent, when set, is called after each task finishes. Optional.
	OnEvent func(TaskEvent)

	// Metrics, when set, collects per-stage timings. Optional.
	Metrics *metrics.Collector
}

func NewOrchestrator(st store.Store, blobs storage.Backend, reg *Registry, log *slog.Logger) *Orchestrator {
	return &Orchestrator{store: st, blobs: blobs, registry: reg, log: log}
}

func (o *Orchestrator) emit(ev TaskEvent) {
	if o.OnEvent != nil {
		o.OnEvent(ev)
	}
}

// ProcessArchive ingests the zip archive at zipPath for the named provider.
// Task failures are captured in the result; unpack and discovery failures
// mark the archive failed and return an ArchiveError. An unknown provider
// fails before any archive row exists.
func (o *Orchestrator) ProcessArchive(ctx context.Context, provider string, zipPath string) (*PipelineResult, error) {
	cfg, ok := o.registry.Provider(provider)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}

	archive := models.NewArchive(provider)
	if err := o.store.CreateArchive(ctx, archive); err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}
	log := o.log.With("archive_id", archive.ID, "provider", provider)

	tasks, err := o.prepare(ctx, archive, cfg, zipPath)
	if err != nil {
		log.Error("archive preparation failed", "error", err)
		archive.Status = models.ArchiveFailed
		if uerr := o.store.UpdateArchive(ctx, archive); uerr != nil {
			log.Error("failed to persist archive failure", "error", uerr)
		}
		return nil, &ArchiveError{ArchiveID: archive.ID, Err: err}
	}
	if len(tasks) == 0 {
		log.Warn("no tasks discovered")
	}

	result := &PipelineResult{ArchiveID: archive.ID}
	runner := NewRunner(o.store, o.blobs, o.log, o.Metrics)

	for _, pt := range tasks {
		o.emit(TaskEvent{TaskID: pt.task.ID, InteractionType: pt.task.InteractionType, Status: models.TaskCreated})
	}

	for _, pt := range tasks {
		task := pt.task
		count, err := runner.Run(ctx, task, pt.pipe)
		if err != nil {
			log.Error("etl task failed",
				"task_id", task.ID,
				"interaction_type", task.InteractionType,
				"error", err)
			result.TasksFailed++
			result.Errors = append(result.Errors, err.Error())
			o.emit(TaskEvent{TaskID: task.ID, InteractionType: task.InteractionType, Status: models.TaskFailed, Err: err})
			continue
		}
		result.TasksCompleted++
		result.ThreadsCreated += count
		result.Breakdown = append(result.Breakdown, TaskBreakdown{
			InteractionType: task.InteractionType,
			ThreadCount:     count,
		})
		o.emit(TaskEvent{TaskID: task.ID, InteractionType: task.InteractionType, Status: models.TaskCompleted, Threads: count})
	}

	archive.Status = models.ArchiveCompleted
	if result.TasksFailed > 0 {
		archive.Status = models.ArchiveFailed
	}
	if err := o.store.UpdateArchive(ctx, archive); err != nil {
		return nil, fmt.Errorf("finalize archive %s: %w", archive.ID, err)
	}

	log.Info("archive processed",
		"status", archive.Status,
		"tasks_completed", result.TasksCompleted,
		"tasks_failed", result.TasksFailed,
		"threads_created", result.ThreadsCreated)
	return result, nil
}

type preparedTask struct {
	task *models.EtlTask
	pipe pipe.Pipe
}

// prepare unpacks the zip into the blob store and persists discovered tasks.
func (o *Orchestrator) prepare(ctx context.Context, archive *models.Archive, cfg ProviderConfig, zipPath string) ([]preparedTask, error) {
	if err := o.unpack(ctx, archive.ID, zipPath); err != nil {
		return nil, fmt.Errorf("unpack: %w", err)
	}

	discovered, err := DiscoverTasks(ctx, o.blobs, archive.ID, cfg)
	if err != nil {
		return nil, fmt.Errorf("discovery: %w", err)
	}

	var tasks []preparedTask
	for _, d := range discovered {
		task := models.NewEtlTask(archive.ID, cfg.Name, d.Pipe.InteractionType, d.SourceURI)
		if err := o.store.CreateTask(ctx, task); err != nil {
			return nil, fmt.Errorf("create task %s: %w", d.Pipe.InteractionType, err)
		}
		tasks = append(tasks, preparedTask{task: task, pipe: d.Pipe})
	}
	return tasks, nil
}

// unpack copies every regular file from the zip into the blob store under
// {archiveID}/{name} with forward-slash separators.
func (o *Orchestrator) unpack(ctx context.Context, archiveID, zipPath string) error {
	start := time.Now()
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", zipPath, err)
	}
	defer zr.Close()

	copied := 0
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := path.Clean(f.Name)
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open entry %s: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("read entry %s: %w", f.Name, err)
		}
		if err := o.blobs.Write(ctx, archiveID+"/"+name, data); err != nil {
			return fmt.Errorf("store entry %s: %w", name, err)
		}
		copied++
	}
	if o.Metrics != nil {
		o.Metrics.Record(metrics.StageUnpack, time.Since(start), int64(copied))
	}
	return nil
}
