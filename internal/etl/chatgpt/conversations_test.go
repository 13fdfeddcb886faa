package chatgpt

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/contextuse-go/internal/etl/pipe"
	"github.com/raphaelgruber/contextuse-go/internal/models"
	"github.com/raphaelgruber/contextuse-go/internal/payload"
	"github.com/raphaelgruber/contextuse-go/internal/storage"
)

const conversationsFixture = `[
  {
    "title": "Trip planning",
    "conversation_id": "conv-123",
    "mapping": {
      "root": {"message": null},
      "m1": {
        "message": {
          "author": {"role": "user"},
          "content": {"content_type": "text", "parts": ["What should I pack for Iceland?"]},
          "create_time": 1714000000
        }
      },
      "m2": {
        "message": {
          "author": {"role": "assistant"},
          "content": {"content_type": "text", "parts": ["Warm layers and a rain shell."]},
          "create_time": 1714000042.5
        }
      },
      "m3": {
        "message": {
          "author": {"role": "system"},
          "content": {"content_type": "text", "parts": ["system prompt"]},
          "create_time": 1714000000
        }
      },
      "m4": {
        "message": {
          "author": {"role": "user"},
          "content": {"content_type": "code", "parts": ["print(1)"]},
          "create_time": 1714000050
        }
      },
      "m5": {
        "message": {
          "author": {"role": "user"},
          "content": {"content_type": "text", "parts": ["   "]},
          "create_time": 1714000060
        }
      }
    }
  }
]`

func extractAll(t *testing.T, fixture string) ([]pipe.Batch, *models.EtlTask) {
	t.Helper()
	ctx := context.Background()
	blobs := storage.NewMemory()
	key := "archive-1/conversations.json"
	require.NoError(t, blobs.Write(ctx, key, []byte(fixture)))

	task := models.NewEtlTask("archive-1", Provider, InteractionConversations, key)
	ext := &conversationsExtraction{}
	batches, err := ext.Extract(ctx, task, blobs)
	require.NoError(t, err)
	return batches, task
}

func TestExtractFiltersMessages(t *testing.T) {
	batches, _ := extractAll(t, conversationsFixture)

	var records []messageRecord
	for _, b := range batches {
		for _, rec := range b {
			records = append(records, rec.(messageRecord))
		}
	}

	// Only the real user and assistant text messages survive.
	require.Len(t, records, 2)
	roles := map[string]bool{}
	for _, r := range records {
		roles[r.Role] = true
		assert.Equal(t, "conv-123", r.ConversationID)
		assert.Equal(t, "Trip planning", r.ConversationTitle)
		assert.NotEmpty(t, r.Source)
	}
	assert.True(t, roles["user"])
	assert.True(t, roles["assistant"])
}

func TestExtractRejectsNonArray(t *testing.T) {
	ctx := context.Background()
	blobs := storage.NewMemory()
	key := "archive-1/conversations.json"
	require.NoError(t, blobs.Write(ctx, key, []byte(`{"not": "an array"}`)))

	task := models.NewEtlTask("archive-1", Provider, InteractionConversations, key)
	_, err := (&conversationsExtraction{}).Extract(ctx, task, blobs)
	assert.Error(t, err)
}

func TestTransformBuildsSendAndReceive(t *testing.T) {
	batches, task := extractAll(t, conversationsFixture)
	tr := &conversationsTransform{}

	var rows []models.ThreadRow
	for _, b := range batches {
		for _, rec := range b {
			row, err := tr.Transform(task, rec)
			require.NoError(t, err)
			require.NotNil(t, row)
			rows = append(rows, *row)
		}
	}
	require.Len(t, rows, 2)

	kinds := map[payload.Kind]models.ThreadRow{}
	for _, row := range rows {
		kinds[row.Payload.Kind()] = row
		assert.Equal(t, Provider, row.Provider)
		assert.Equal(t, InteractionConversations, row.InteractionType)
		assert.NotEmpty(t, row.Preview)
		assert.Equal(t, payload.Version, row.Version)
		assert.True(t, strings.HasPrefix(row.UniqueKey, InteractionConversations+":"))
	}

	sent, ok := kinds[payload.KindSendMessage]
	require.True(t, ok)
	assert.Equal(t, `Sent message "What should I pack for Iceland?" to assistant on ChatGPT`, sent.Preview)

	received, ok := kinds[payload.KindReceiveMessage]
	require.True(t, ok)
	assert.Equal(t, `Received message "Warm layers and a rain shell." from assistant on ChatGPT`, received.Preview)

	msg := sent.Payload.(*payload.SendMessage).Object.(*payload.TextMessage)
	require.NotNil(t, msg.Context)
	assert.Equal(t, "https://chatgpt.com/c/conv-123", msg.Context.ID)
	assert.Equal(t, "Trip planning", msg.Context.Name)
}

func TestTransformSkipsUnknownRoles(t *testing.T) {
	task := models.NewEtlTask("archive-1", Provider, InteractionConversations, "archive-1/conversations.json")
	row, err := (&conversationsTransform{}).Transform(task, messageRecord{
		Role:    "tool",
		Content: "tool output",
	})
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestTransformMillisecondTimestamps(t *testing.T) {
	task := models.NewEtlTask("archive-1", Provider, InteractionConversations, "archive-1/conversations.json")
	ts := 1714000000000.0 // milliseconds
	row, err := (&conversationsTransform{}).Transform(task, messageRecord{
		Role:       "user",
		Content:    "hello",
		CreateTime: &ts,
	})
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, 2024, row.Asat.Year())
}
