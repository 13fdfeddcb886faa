package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/raphaelgruber/contextuse-go/internal/models"
)

// Memory is an in-process Store used by unit tests and the pipeline's own
// test doubles. It honors the same idempotency contract as the SQL stores.
type Memory struct {
	mu       sync.RWMutex
	archives map[string]models.Archive
	tasks    map[string]models.EtlTask
	threads  map[string]models.ThreadRow // keyed by unique_key
	taskOf   map[string]string           // unique_key -> etl_task_id
}

func NewMemory() *Memory {
	return &Memory{
		archives: make(map[string]models.Archive),
		tasks:    make(map[string]models.EtlTask),
		threads:  make(map[string]models.ThreadRow),
		taskOf:   make(map[string]string),
	}
}

func (m *Memory) Init(ctx context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

func (m *Memory) CreateArchive(ctx context.Context, a *models.Archive) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.archives[a.ID] = *a
	return nil
}

func (m *Memory) GetArchive(ctx context.Context, id string) (*models.Archive, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.archives[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (m *Memory) UpdateArchive(ctx context.Context, a *models.Archive) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.archives[a.ID]; !ok {
		return ErrNotFound
	}
	a.UpdatedAt = time.Now().UTC()
	m.archives[a.ID] = *a
	return nil
}

func (m *Memory) ListArchives(ctx context.Context, status models.ArchiveStatus) ([]models.Archive, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Archive
	for _, a := range m.archives {
		if status != "" && a.Status != status {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) CreateTask(ctx context.Context, t *models.EtlTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[t.ID] = *t
	return nil
}

func (m *Memory) UpdateTask(ctx context.Context, t *models.EtlTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[t.ID]; !ok {
		return ErrNotFound
	}
	t.UpdatedAt = time.Now().UTC()
	m.tasks[t.ID] = *t
	return nil
}

func (m *Memory) ListTasks(ctx context.Context, archiveID string) ([]models.EtlTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.EtlTask
	for _, t := range m.tasks {
		if t.ArchiveID == archiveID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) InsertThreads(ctx context.Context, taskID string, rows []models.ThreadRow) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inserted := 0
	for _, row := range rows {
		if _, exists := m.threads[row.UniqueKey]; exists {
			continue
		}
		m.threads[row.UniqueKey] = row
		m.taskOf[row.UniqueKey] = taskID
		inserted++
	}
	return inserted, nil
}

func (m *Memory) CountThreads(ctx context.Context, archiveID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for key := range m.threads {
		t, ok := m.tasks[m.taskOf[key]]
		if ok && t.ArchiveID == archiveID {
			count++
		}
	}
	return count, nil
}
