// Integration tests against a real PostgreSQL instance. They spin up a
// container via testcontainers and exercise the same contract the SQLite
// tests cover.
package store

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/raphaelgruber/contextuse-go/internal/models"
)

var testPG *Postgres
var pgContainer testcontainers.Container

// TestMain sets up and tears down the Postgres container for all tests.
func TestMain(m *testing.M) {
	if os.Getenv("SKIP_INTEGRATION") != "" {
		os.Exit(m.Run())
	}

	// Disable ryuk (cleanup container) as it can cause issues in some environments
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()

	var err error
	pgContainer, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "contextuse",
				"POSTGRES_PASSWORD": "contextuse",
				"POSTGRES_DB":       "contextuse_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start Postgres container: %v", err)
	}

	host, err := pgContainer.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	// Workaround: testcontainers may return "null" as host in some environments
	if host == "" || host == "null" {
		host = "localhost"
	}
	mappedPort, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}

	dsn := fmt.Sprintf("postgres://contextuse:contextuse@%s:%s/contextuse_test?sslmode=disable",
		host, mappedPort.Port())
	testPG, err = NewPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := testPG.Init(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	code := m.Run()

	_ = testPG.Close()
	_ = pgContainer.Terminate(ctx)

	os.Exit(code)
}

func skipWithoutPG(t *testing.T) {
	t.Helper()
	if testPG == nil {
		t.Skip("postgres container not available")
	}
}

func TestPostgresArchiveCRUD(t *testing.T) {
	skipWithoutPG(t)
	ctx := context.Background()

	archive := models.NewArchive("openai")
	require.NoError(t, testPG.CreateArchive(ctx, archive))

	got, err := testPG.GetArchive(ctx, archive.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ArchiveCreated, got.Status)

	got.Status = models.ArchiveFailed
	require.NoError(t, testPG.UpdateArchive(ctx, got))

	updated, err := testPG.GetArchive(ctx, archive.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ArchiveFailed, updated.Status)

	_, err = testPG.GetArchive(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresInsertThreadsIgnoresDuplicates(t *testing.T) {
	skipWithoutPG(t)
	ctx := context.Background()

	task := insertTestTask(t, testPG)
	rows := []models.ThreadRow{
		testRow(t, "ai_chat", "postgres hello"),
		testRow(t, "ai_chat", "postgres second"),
	}

	inserted, err := testPG.InsertThreads(ctx, task.ID, rows)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	inserted, err = testPG.InsertThreads(ctx, task.ID, rows)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	count, err := testPG.CountThreads(ctx, task.ArchiveID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestPostgresTaskCounters(t *testing.T) {
	skipWithoutPG(t)
	ctx := context.Background()

	task := insertTestTask(t, testPG)
	task.Status = models.TaskCompleted
	task.ExtractedCount = 10
	task.TransformedCount = 8
	task.UploadedCount = 8
	require.NoError(t, testPG.UpdateTask(ctx, task))

	tasks, err := testPG.ListTasks(ctx, task.ArchiveID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, 10, tasks[0].ExtractedCount)
	assert.Equal(t, 8, tasks[0].UploadedCount)
	assert.Equal(t, models.TaskCompleted, tasks[0].Status)
}
