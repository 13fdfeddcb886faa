package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/contextuse-go/internal/models"
	"github.com/raphaelgruber/contextuse-go/internal/payload"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Init(context.Background()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func insertTestTask(t *testing.T, s Store) *models.EtlTask {
	t.Helper()
	ctx := context.Background()
	archive := models.NewArchive("instagram")
	require.NoError(t, s.CreateArchive(ctx, archive))
	task := models.NewEtlTask(archive.ID, "instagram", "social_media_activity", "your_instagram_activity/media/stories.json")
	require.NoError(t, s.CreateTask(ctx, task))
	return task
}

func testRow(t *testing.T, kind string, text string) models.ThreadRow {
	t.Helper()
	fibre := payload.NewSendMessage(
		payload.NewTextMessage(text, nil, nil),
		payload.Application("assistant"),
		nil,
	)
	key, err := payload.UniqueKey(kind, fibre)
	require.NoError(t, err)
	return models.ThreadRow{
		UniqueKey:       key,
		Provider:        "openai",
		InteractionType: kind,
		Preview:         fibre.Preview("ChatGPT"),
		Payload:         fibre,
		Version:         payload.Version,
		Asat:            time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSQLiteArchiveCRUD(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	archive := models.NewArchive("openai")
	require.NoError(t, s.CreateArchive(ctx, archive))

	got, err := s.GetArchive(ctx, archive.ID)
	require.NoError(t, err)
	assert.Equal(t, archive.ID, got.ID)
	assert.Equal(t, "openai", got.Provider)
	assert.Equal(t, models.ArchiveCreated, got.Status)

	got.Status = models.ArchiveCompleted
	require.NoError(t, s.UpdateArchive(ctx, got))

	updated, err := s.GetArchive(ctx, archive.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ArchiveCompleted, updated.Status)

	_, err = s.GetArchive(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteListArchivesByStatus(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	done := models.NewArchive("openai")
	require.NoError(t, s.CreateArchive(ctx, done))
	done.Status = models.ArchiveCompleted
	require.NoError(t, s.UpdateArchive(ctx, done))

	pending := models.NewArchive("instagram")
	require.NoError(t, s.CreateArchive(ctx, pending))

	all, err := s.ListArchives(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	completed, err := s.ListArchives(ctx, models.ArchiveCompleted)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, done.ID, completed[0].ID)
}

func TestSQLiteTaskLifecycle(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	task := insertTestTask(t, s)

	task.Status = models.TaskExtracting
	task.ExtractedCount = 42
	require.NoError(t, s.UpdateTask(ctx, task))

	tasks, err := s.ListTasks(ctx, task.ArchiveID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, models.TaskExtracting, tasks[0].Status)
	assert.Equal(t, 42, tasks[0].ExtractedCount)

	none, err := s.ListTasks(ctx, "other-archive")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLiteInsertThreadsIgnoresDuplicates(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	task := insertTestTask(t, s)
	rows := []models.ThreadRow{
		testRow(t, "ai_chat", "hello there"),
		testRow(t, "ai_chat", "second message"),
	}

	inserted, err := s.InsertThreads(ctx, task.ID, rows)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	// Re-inserting the identical batch lands zero new rows.
	inserted, err = s.InsertThreads(ctx, task.ID, rows)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	count, err := s.CountThreads(ctx, task.ArchiveID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSQLiteInsertThreadsPartialOverlap(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	task := insertTestTask(t, s)
	first := testRow(t, "ai_chat", "already stored")

	inserted, err := s.InsertThreads(ctx, task.ID, []models.ThreadRow{first})
	require.NoError(t, err)
	require.Equal(t, 1, inserted)

	inserted, err = s.InsertThreads(ctx, task.ID, []models.ThreadRow{
		first,
		testRow(t, "ai_chat", "brand new"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
}

func TestSQLiteThreadRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	task := insertTestTask(t, s)
	row := testRow(t, "ai_chat", "round trip me")
	_, err := s.InsertThreads(ctx, task.ID, []models.ThreadRow{row})
	require.NoError(t, err)

	got, err := s.ThreadByKey(ctx, row.UniqueKey)
	require.NoError(t, err)
	assert.Equal(t, row.UniqueKey, got.UniqueKey)
	assert.Equal(t, row.Preview, got.Preview)
	assert.Equal(t, payload.KindSendMessage, got.Payload.Kind())

	_, err = s.ThreadByKey(ctx, "ai_chat:0000000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreMatchesContract(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Init(ctx))

	task := insertTestTask(t, m)
	rows := []models.ThreadRow{testRow(t, "ai_chat", "in memory")}

	inserted, err := m.InsertThreads(ctx, task.ID, rows)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	inserted, err = m.InsertThreads(ctx, task.ID, rows)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	count, err := m.CountThreads(ctx, task.ArchiveID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
