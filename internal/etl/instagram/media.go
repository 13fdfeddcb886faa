// Package instagram ingests Instagram data exports: posted stories and
// reels, follower and following relationships, and watched videos.
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

const (
	Provider = "instagram"
	Display  = "Instagram"

	InteractionStories       = "instagram_stories"
	InteractionReels         = "instagram_reels"
	InteractionFollowers     = "instagram_followers"
	InteractionFollowing     = "instagram_following"
	InteractionVideosWatched = "instagram_videos_watched"

	storiesPath       = "your_instagram_activity/media/stories.json"
	reelsPath         = "your_instagram_activity/media/reels.json"
	followersPath     = "connections/followers_and_following/followers_*.json"
	followingPath     = "connections/followers_and_following/following.json"
	videosWatchedPath = "ads_information/ads_and_topics/videos_watched.json"
)

// Pipes returns the interaction-type pipes for Instagram exports.
func Pipes() []pipe.Pipe {
	return []pipe.Pipe{
		{
			InteractionType: InteractionStories,
			PathPattern:     storiesPath,
			Extraction:      &storiesExtraction{},
			Transform:       &mediaTransform{},
		},
		{
			InteractionType: InteractionReels,
			PathPattern:     reelsPath,
			Extraction:      &reelsExtraction{},
			Transform:       &mediaTransform{},
		},
		{
			InteractionType: InteractionFollowers,
			PathPattern:     followersPath,
			Extraction:      &connectionsExtraction{inbound: true},
			Transform:       &connectionTransform{inbound: true},
		},
		{
			InteractionType: InteractionFollowing,
			PathPattern:     followingPath,
			Extraction:      &connectionsExtraction{inbound: false},
			Transform:       &connectionTransform{inbound: false},
		},
		{
			InteractionType: InteractionVideosWatched,
			PathPattern:     videosWatchedPath,
			Extraction:      &viewsExtraction{},
			Transform:       &viewsTransform{},
		},
	}
}

// mediaItem is one entry in a stories or reels manifest.
type mediaItem struct {
	URI               string  `json:"uri"`
	CreationTimestamp float64 `json:"creation_timestamp"`
	Title             string  `json:"title"`
}

type storiesManifest struct {
	IgStories []mediaItem `json:"ig_stories"`
}

type reelsManifest struct {
	IgReelsMedia []struct {
		Media []mediaItem `json:"media"`
	} `json:"ig_reels_media"`
}

// mediaRecord is one flattened media item with its kind resolved.
type mediaRecord struct {
	URI               string
	CreationTimestamp float64
	Title             string
	IsVideo           bool
	Source            string
}

// videoExtensions covers the formats Instagram exports for video media,
// including sidecar subtitle files.
var videoExtensions = []string{".mp4", ".mov", ".avi", ".webm", ".srt"}

func isVideoURI(uri string) bool {
	lower := strings.ToLower(uri)
	for _, ext := range videoExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func itemsToRecords(items []mediaItem, sourceFile string, b *pipe.Batcher) {
	for _, item := range items {
		src, _ := json.Marshal(map[string]string{"file": sourceFile, "uri": item.URI})
		b.Add(mediaRecord{
			URI:               item.URI,
			CreationTimestamp: item.CreationTimestamp,
			Title:             item.Title,
			IsVideo:           isVideoURI(item.URI),
			Source:            string(src),
		})
	}
}

// storiesExtraction reads the stories manifest. Manifests are small, so a
// full read is fine here.
type storiesExtraction struct{}

func (e *storiesExtraction) Extract(ctx context.Context, task *models.EtlTask, blobs storage.Backend) ([]pipe.Batch, error) {
	raw, err := blobs.Read(ctx, task.SourceURI)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", task.SourceURI, err)
	}
	var manifest storiesManifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return nil, fmt.Errorf("parse %s: %w", task.SourceURI, err)
	}

	var b pipe.Batcher
	itemsToRecords(manifest.IgStories, task.SourceURI, &b)
	return b.Batches(), nil
}

// reelsExtraction reads the reels manifest, flattening the nested media
// lists.
type reelsExtraction struct{}

func (e *reelsExtraction) Extract(ctx context.Context, task *models.EtlTask, blobs storage.Backend) ([]pipe.Batch, error) {
	raw, err := blobs.Read(ctx, task.SourceURI)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", task.SourceURI, err)
	}
	var manifest reelsManifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return nil, fmt.Errorf("parse %s: %w", task.SourceURI, err)
	}

	var b pipe.Batcher
	for _, entry := range manifest.IgReelsMedia {
		itemsToRecords(entry.Media, task.SourceURI, &b)
	}
	return b.Batches(), nil
}

// mediaTransform is shared by stories and reels: both wrap the media asset
// in a Create activity, they only differ in the manifest layout.
type mediaTransform struct{}

func (t *mediaTransform) Transform(task *models.EtlTask, rec pipe.Record) (*models.ThreadRow, error) {
	mr, ok := rec.(mediaRecord)
	if !ok {
		return nil, fmt.Errorf("unexpected record type %T", rec)
	}

	published := pipe.FromEpoch(mr.CreationTimestamp)

	var obj payload.Object
	if mr.IsVideo {
		obj = payload.NewVideo(mr.URI, mr.Title, &published)
	} else {
		obj = payload.NewImage(mr.URI, mr.Title, &published)
	}
	fibre := payload.NewCreate(obj, &published)

	key, err := payload.UniqueKey(task.InteractionType, fibre)
	if err != nil {
		return nil, fmt.Errorf("derive unique key: %w", err)
	}

	row := &models.ThreadRow{
		UniqueKey:       key,
		Provider:        Provider,
		InteractionType: task.InteractionType,
		Preview:         fibre.Preview(Display),
		Payload:         fibre,
		Version:         payload.Version,
		Asat:            published,
		Source:          &mr.Source,
	}
	if mr.URI != "" {
		assetURI := task.ArchiveID + "/" + mr.URI
		row.AssetURI = &assetURI
	}
	return row, nil
}
