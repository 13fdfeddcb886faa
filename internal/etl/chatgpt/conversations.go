// Package chatgpt ingests ChatGPT data exports. The only interaction type
// today is the conversation history in conversations.json.
package chatgpt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/raphaelgruber/contextuse-go/internal/etl/pipe"
	"github.com/raphaelgruber/contextuse-go/internal/models"
	"github.com/raphaelgruber/contextuse-go/internal/payload"
	"github.com/raphaelgruber/contextuse-go/internal/storage"
)

const (
	Provider = "chatgpt"
	Display  = "ChatGPT"

	InteractionConversations = "chatgpt_conversations"

	conversationsPath = "conversations.json"
)

// Pipes returns the interaction-type pipes for ChatGPT exports.
func Pipes() []pipe.Pipe {
	return []pipe.Pipe{
		{
			InteractionType: InteractionConversations,
			PathPattern:     conversationsPath,
			Extraction:      &conversationsExtraction{},
			Transform:       &conversationsTransform{},
		},
	}
}

// messageRecord is one usable chat message pulled out of a conversation
// mapping, flattened for the transform stage.
type messageRecord struct {
	Role              string
	Content           string
	CreateTime        *float64
	ConversationID    string
	ConversationTitle string
	Source            string
}

// conversation mirrors the slice of the export format extraction cares
// about. Mapping values keep their raw message JSON so the original record
// survives into the thread row's source column.
type conversation struct {
	Title          string                    `json:"title"`
	ConversationID string                    `json:"conversation_id"`
	Mapping        map[string]json.RawMessage `json:"mapping"`
}

type mappingNode struct {
	Message json.RawMessage `json:"message"`
}

type message struct {
	Author *struct {
		Role string `json:"role"`
	} `json:"author"`
	Content *struct {
		ContentType string   `json:"content_type"`
		Parts       []string `json:"parts"`
	} `json:"content"`
	CreateTime *float64 `json:"create_time"`
}

// conversationsExtraction walks conversations.json as a token stream so the
// export is never materialized as a whole. Each conversation is decoded
// individually, its mapping filtered down to real text messages.
type conversationsExtraction struct{}

func (e *conversationsExtraction) Extract(ctx context.Context, task *models.EtlTask, blobs storage.Backend) ([]pipe.Batch, error) {
	stream, err := blobs.OpenStream(ctx, task.SourceURI)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", task.SourceURI, err)
	}
	defer stream.Close()

	dec := json.NewDecoder(stream)
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", task.SourceURI, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, fmt.Errorf("%s: expected top-level array, got %v", task.SourceURI, tok)
	}

	var b pipe.Batcher
	for dec.More() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var conv conversation
		if err := dec.Decode(&conv); err != nil {
			return nil, fmt.Errorf("decode conversation: %w", err)
		}
		for _, rec := range messagesOf(conv) {
			b.Add(rec)
		}
	}
	return b.Batches(), nil
}

// messagesOf filters a conversation's mapping down to text messages worth
// keeping: authored, textual, non-system, non-empty.
func messagesOf(conv conversation) []messageRecord {
	var out []messageRecord
	for _, rawNode := range conv.Mapping {
		var node mappingNode
		if err := json.Unmarshal(rawNode, &node); err != nil {
			continue
		}
		if len(node.Message) == 0 || string(node.Message) == "null" {
			continue
		}
		var msg message
		if err := json.Unmarshal(node.Message, &msg); err != nil {
			continue
		}
		if msg.Author == nil || msg.Content == nil {
			continue
		}
		if msg.Content.ContentType != "text" {
			continue
		}
		if msg.Author.Role == "system" {
			continue
		}
		if len(msg.Content.Parts) == 0 || strings.TrimSpace(msg.Content.Parts[0]) == "" {
			continue
		}
		out = append(out, messageRecord{
			Role:              msg.Author.Role,
			Content:           msg.Content.Parts[0],
			CreateTime:        msg.CreateTime,
			ConversationID:    conv.ConversationID,
			ConversationTitle: conv.Title,
			Source:            string(node.Message),
		})
	}
	return out
}

type conversationsTransform struct{}

func (t *conversationsTransform) Transform(task *models.EtlTask, rec pipe.Record) (*models.ThreadRow, error) {
	mr, ok := rec.(messageRecord)
	if !ok {
		return nil, fmt.Errorf("unexpected record type %T", rec)
	}

	fibre := buildPayload(mr)
	if fibre == nil {
		return nil, nil
	}

	var published *time.Time
	if mr.CreateTime != nil {
		ts := pipe.FromEpoch(*mr.CreateTime)
		published = &ts
	}
	asat := time.Now().UTC()
	if published != nil {
		asat = *published
	}

	key, err := payload.UniqueKey(task.InteractionType, fibre)
	if err != nil {
		return nil, fmt.Errorf("derive unique key: %w", err)
	}

	source := mr.Source
	return &models.ThreadRow{
		UniqueKey:       key,
		Provider:        Provider,
		InteractionType: task.InteractionType,
		Preview:         fibre.Preview(Display),
		Payload:         fibre,
		Version:         payload.Version,
		Asat:            asat,
		Source:          &source,
	}, nil
}

// buildPayload wraps the message into a send or receive activity depending
// on the author role. Other roles (tool output etc.) are skipped.
func buildPayload(mr messageRecord) payload.Fibre {
	var context *payload.Collection
	if mr.ConversationTitle != "" || mr.ConversationID != "" {
		id := ""
		if mr.ConversationID != "" {
			id = "https://chatgpt.com/c/" + mr.ConversationID
		}
		context = payload.NewCollection(id, mr.ConversationTitle)
	}

	msg := payload.NewTextMessage(mr.Content, context, nil)

	var published *time.Time
	if mr.CreateTime != nil {
		ts := pipe.FromEpoch(*mr.CreateTime)
		published = &ts
	}

	switch mr.Role {
	case "user":
		return payload.NewSendMessage(msg, payload.Application("assistant"), published)
	case "assistant":
		return payload.NewReceiveMessage(msg, payload.Application("assistant"), published)
	default:
		return nil
	}
}
