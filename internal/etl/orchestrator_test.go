package etl

import (
	"archive/zip"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/contextuse-go/internal/etl/instagram"
	"github.com/raphaelgruber/contextuse-go/internal/models"
	"github.com/raphaelgruber/contextuse-go/internal/storage"
	"github.com/raphaelgruber/contextuse-go/internal/store"
)

const testStories = `{
  "ig_stories": [
    {"uri": "media/stories/one.jpg", "creation_timestamp": 1714000000, "title": "one"},
    {"uri": "media/stories/two.mp4", "creation_timestamp": 1714000100, "title": "two"}
  ]
}`

const testFollowers = `[
  {"string_list_data": [{"href": "https://www.instagram.com/ada", "value": "ada", "timestamp": 1714000000}]}
]`

const testFollowing = `{
  "relationships_following": [
    {"string_list_data": [{"href": "https://www.instagram.com/alan", "value": "alan", "timestamp": 1714000500}]}
  ]
}`

func writeZip(t *testing.T, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.zip")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewOrchestrator(st, storage.NewMemory(), DefaultRegistry(), log), st
}

func TestProcessArchiveUnknownProvider(t *testing.T) {
	o, st := newTestOrchestrator(t)

	_, err := o.ProcessArchive(context.Background(), "myspace", "nope.zip")
	assert.ErrorIs(t, err, ErrUnsupportedProvider)

	// No archive row is created for unknown providers.
	archives, err := st.ListArchives(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, archives)
}

func TestProcessArchiveUnreadableZip(t *testing.T) {
	o, st := newTestOrchestrator(t)

	_, err := o.ProcessArchive(context.Background(), "instagram", filepath.Join(t.TempDir(), "missing.zip"))
	var archiveErr *ArchiveError
	require.ErrorAs(t, err, &archiveErr)

	archive, err := st.GetArchive(context.Background(), archiveErr.ArchiveID)
	require.NoError(t, err)
	assert.Equal(t, models.ArchiveFailed, archive.Status)
}

func TestProcessArchiveEmpty(t *testing.T) {
	o, st := newTestOrchestrator(t)
	zipPath := writeZip(t, map[string]string{"readme.txt": "nothing here"})

	result, err := o.ProcessArchive(context.Background(), "instagram", zipPath)
	require.NoError(t, err)
	assert.Equal(t, 0, result.TasksCompleted)
	assert.Equal(t, 0, result.TasksFailed)
	assert.Equal(t, 0, result.ThreadsCreated)

	archive, err := st.GetArchive(context.Background(), result.ArchiveID)
	require.NoError(t, err)
	assert.Equal(t, models.ArchiveCompleted, archive.Status)
}

func TestProcessArchiveFullRun(t *testing.T) {
	o, st := newTestOrchestrator(t)
	zipPath := writeZip(t, map[string]string{
		"your_instagram_activity/media/stories.json":           testStories,
		"connections/followers_and_following/followers_1.json": testFollowers,
		"connections/followers_and_following/following.json":   testFollowing,
	})

	var events []TaskEvent
	o.OnEvent = func(ev TaskEvent) { events = append(events, ev) }

	result, err := o.ProcessArchive(context.Background(), "instagram", zipPath)
	require.NoError(t, err)
	assert.Equal(t, 3, result.TasksCompleted)
	assert.Equal(t, 0, result.TasksFailed)
	assert.Equal(t, 4, result.ThreadsCreated)

	// One created and one completed event per task.
	require.Len(t, events, 6)
	completedEvents := 0
	for _, ev := range events {
		if ev.Status == models.TaskCompleted {
			completedEvents++
		}
	}
	assert.Equal(t, 3, completedEvents)

	breakdown := map[string]int{}
	for _, b := range result.Breakdown {
		breakdown[b.InteractionType] = b.ThreadCount
	}
	assert.Equal(t, 2, breakdown[instagram.InteractionStories])
	assert.Equal(t, 1, breakdown[instagram.InteractionFollowers])
	assert.Equal(t, 1, breakdown[instagram.InteractionFollowing])

	archive, err := st.GetArchive(context.Background(), result.ArchiveID)
	require.NoError(t, err)
	assert.Equal(t, models.ArchiveCompleted, archive.Status)

	tasks, err := st.ListTasks(context.Background(), result.ArchiveID)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	for _, task := range tasks {
		assert.Equal(t, models.TaskCompleted, task.Status)
		assert.Equal(t, task.ExtractedCount, task.TransformedCount)
		assert.Equal(t, task.TransformedCount, task.UploadedCount)
	}
}

func TestProcessArchiveCorruptFileIsolatesTask(t *testing.T) {
	o, st := newTestOrchestrator(t)
	zipPath := writeZip(t, map[string]string{
		"your_instagram_activity/media/stories.json":         "{not valid json",
		"connections/followers_and_following/following.json": testFollowing,
	})

	result, err := o.ProcessArchive(context.Background(), "instagram", zipPath)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TasksCompleted)
	assert.Equal(t, 1, result.TasksFailed)
	assert.Equal(t, 1, result.ThreadsCreated)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "extraction failed")

	// The archive as a whole is failed, but the sibling task's rows stay.
	archive, err := st.GetArchive(context.Background(), result.ArchiveID)
	require.NoError(t, err)
	assert.Equal(t, models.ArchiveFailed, archive.Status)

	count, err := st.CountThreads(context.Background(), result.ArchiveID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	byStatus := map[models.EtlTaskStatus]int{}
	tasks, err := st.ListTasks(context.Background(), result.ArchiveID)
	require.NoError(t, err)
	for _, task := range tasks {
		byStatus[task.Status]++
	}
	assert.Equal(t, 1, byStatus[models.TaskCompleted])
	assert.Equal(t, 1, byStatus[models.TaskFailed])
}

func TestProcessArchiveIdempotentReingest(t *testing.T) {
	o, _ := newTestOrchestrator(t)
	zipPath := writeZip(t, map[string]string{
		"your_instagram_activity/media/stories.json": testStories,
	})

	first, err := o.ProcessArchive(context.Background(), "instagram", zipPath)
	require.NoError(t, err)
	assert.Equal(t, 2, first.ThreadsCreated)

	// The same content yields the same unique keys, so the second run
	// inserts nothing new.
	second, err := o.ProcessArchive(context.Background(), "instagram", zipPath)
	require.NoError(t, err)
	assert.Equal(t, 1, second.TasksCompleted)
	assert.Equal(t, 0, second.ThreadsCreated)
}
