package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/raphaelgruber/contextuse-go/internal/etl/pipe"
	"github.com/raphaelgruber/contextuse-go/internal/models"
	"github.com/raphaelgruber/contextuse-go/internal/payload"
	"github.com/raphaelgruber/contextuse-go/internal/storage"
)

// videoWatchedRecord is one watched-video impression. Depending on the
// archive generation either the author or the video URL is known.
type videoWatchedRecord struct {
	Author    string
	VideoURL  string
	Timestamp float64
	Source    string
}

// watchedItem is one entry of the current export format: a bare array of
// impressions with the video URL tucked into label_values.
type watchedItem struct {
	Timestamp   float64 `json:"timestamp"`
	LabelValues []struct {
		Label string `json:"label"`
		Value string `json:"value"`
	} `json:"label_values"`
}

// legacyWatchedItem is one entry of the older export format, which wraps
// the impressions under impressions_history_videos_watched and names the
// author in string_map_data.
type legacyWatchedItem struct {
	StringMapData struct {
		Author struct {
			Value string `json:"value"`
		} `json:"Author"`
		Time struct {
			Timestamp float64 `json:"timestamp"`
		} `json:"Time"`
	} `json:"string_map_data"`
}

// viewsExtraction parses both watched-video export generations, sniffed by
// the top-level JSON shape: an array is the current format, an object is
// the legacy one.
type viewsExtraction struct{}

func (e *viewsExtraction) Extract(ctx context.Context, task *models.EtlTask, blobs storage.Backend) ([]pipe.Batch, error) {
	raw, err := blobs.Read(ctx, task.SourceURI)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", task.SourceURI, err)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return extractWatched(trimmed, task.SourceURI)
	}
	return extractLegacyWatched(trimmed, task.SourceURI)
}

func extractWatched(raw []byte, sourceURI string) ([]pipe.Batch, error) {
	var rawItems []json.RawMessage
	if err := json.Unmarshal(raw, &rawItems); err != nil {
		return nil, fmt.Errorf("parse %s: %w", sourceURI, err)
	}

	var b pipe.Batcher
	for _, rawItem := range rawItems {
		var item watchedItem
		if err := json.Unmarshal(rawItem, &item); err != nil {
			return nil, fmt.Errorf("parse watched item: %w", err)
		}
		if item.Timestamp == 0 {
			continue
		}
		var url string
		for _, lv := range item.LabelValues {
			if lv.Label == "URL" {
				url = lv.Value
				break
			}
		}
		b.Add(videoWatchedRecord{
			VideoURL:  url,
			Timestamp: item.Timestamp,
			Source:    string(rawItem),
		})
	}
	return b.Batches(), nil
}

func extractLegacyWatched(raw []byte, sourceURI string) ([]pipe.Batch, error) {
	var manifest struct {
		Impressions []json.RawMessage `json:"impressions_history_videos_watched"`
	}
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return nil, fmt.Errorf("parse %s: %w", sourceURI, err)
	}

	var b pipe.Batcher
	for _, rawItem := range manifest.Impressions {
		var item legacyWatchedItem
		if err := json.Unmarshal(rawItem, &item); err != nil {
			return nil, fmt.Errorf("parse watched item: %w", err)
		}
		b.Add(videoWatchedRecord{
			Author:    item.StringMapData.Author.Value,
			Timestamp: item.StringMapData.Time.Timestamp,
			Source:    string(rawItem),
		})
	}
	return b.Batches(), nil
}

// viewsTransform wraps each watched video in a View activity, attributing
// the video to its creator's profile when the author is known.
type viewsTransform struct{}

func (t *viewsTransform) Transform(task *models.EtlTask, rec pipe.Record) (*models.ThreadRow, error) {
	vr, ok := rec.(videoWatchedRecord)
	if !ok {
		return nil, fmt.Errorf("unexpected record type %T", rec)
	}

	published := pipe.FromEpoch(vr.Timestamp)

	video := payload.NewVideo(vr.VideoURL, "", nil)
	if vr.Author != "" {
		video.AttributedTo = payload.Profile(vr.Author, "https://www.instagram.com/"+vr.Author)
	}
	fibre := payload.NewView(video, &published)

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
		Source:          &vr.Source,
	}, nil
}
