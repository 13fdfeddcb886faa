package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/raphaelgruber/contextuse-go/internal/etl/pipe"
	"github.com/raphaelgruber/contextuse-go/internal/models"
	"github.com/raphaelgruber/contextuse-go/internal/payload"
	"github.com/raphaelgruber/contextuse-go/internal/storage"
)

// connectionItem is one follower or following entry in the export. The
// profile link and timestamp live in the first string_list_data element.
type connectionItem struct {
	Title          string `json:"title"`
	StringListData []struct {
		Href      string  `json:"href"`
		Value     string  `json:"value"`
		Timestamp float64 `json:"timestamp"`
	} `json:"string_list_data"`
}

// connectionRecord is one flattened follow relationship.
type connectionRecord struct {
	Username   string
	ProfileURL string
	Timestamp  float64
	Source     string
}

func connectionToRecord(item connectionItem, raw json.RawMessage) (connectionRecord, error) {
	if len(item.StringListData) == 0 {
		return connectionRecord{}, fmt.Errorf("connection item %q has no string_list_data", item.Title)
	}
	sld := item.StringListData[0]
	username := strings.TrimSuffix(sld.Href, "/")
	if idx := strings.LastIndex(username, "/"); idx >= 0 {
		username = username[idx+1:]
	}
	return connectionRecord{
		Username:   username,
		ProfileURL: sld.Href,
		Timestamp:  sld.Timestamp,
		Source:     string(raw),
	}, nil
}

// connectionsExtraction parses follower files (top-level array) or the
// following manifest (keyed under relationships_following).
type connectionsExtraction struct {
	inbound bool
}

func (e *connectionsExtraction) Extract(ctx context.Context, task *models.EtlTask, blobs storage.Backend) ([]pipe.Batch, error) {
	raw, err := blobs.Read(ctx, task.SourceURI)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", task.SourceURI, err)
	}

	var rawItems []json.RawMessage
	if e.inbound {
		if err := json.Unmarshal(raw, &rawItems); err != nil {
			return nil, fmt.Errorf("parse %s: %w", task.SourceURI, err)
		}
	} else {
		var manifest struct {
			RelationshipsFollowing []json.RawMessage `json:"relationships_following"`
		}
		if err := json.Unmarshal(raw, &manifest); err != nil {
			return nil, fmt.Errorf("parse %s: %w", task.SourceURI, err)
		}
		rawItems = manifest.RelationshipsFollowing
	}

	var b pipe.Batcher
	for _, rawItem := range rawItems {
		var item connectionItem
		if err := json.Unmarshal(rawItem, &item); err != nil {
			return nil, fmt.Errorf("parse connection item: %w", err)
		}
		rec, err := connectionToRecord(item, rawItem)
		if err != nil {
			return nil, err
		}
		b.Add(rec)
	}
	return b.Batches(), nil
}

// connectionTransform builds Follow payloads: inbound for followers,
// outbound for accounts the user follows.
type connectionTransform struct {
	inbound bool
}

func (t *connectionTransform) Transform(task *models.EtlTask, rec pipe.Record) (*models.ThreadRow, error) {
	cr, ok := rec.(connectionRecord)
	if !ok {
		return nil, fmt.Errorf("unexpected record type %T", rec)
	}

	published := pipe.FromEpoch(cr.Timestamp)
	profile := payload.Profile(cr.Username, cr.ProfileURL)

	var fibre payload.Fibre
	if t.inbound {
		fibre = payload.NewFollowedBy(profile, &published)
	} else {
		fibre = payload.NewFollow(profile, &published)
	}

	key, err := payload.UniqueKey(task.InteractionType, fibre)
	if err != nil {
		return nil, fmt.Errorf("derive unique key: %w", err)
	}

	return &models.ThreadRow{
		UniqueKey:       key,
		Provider:        Provider,
		InteractionType: task.InteractionType,
		Preview:         fibre.Preview(Display),
		Payload:         fibre,
		Version:         payload.Version,
		Asat:            published,
		Source:          &cr.Source,
	}, nil
}
