// Package pipe defines the extract and transform contracts every
// interaction-type pipe implements, plus shared helpers for batching and
// timestamp normalization.
package pipe

import (
	"context"
	"math"
	"time"

	"github.com/raphaelgruber/contextuse-go/internal/models"
	"github.com/raphaelgruber/contextuse-go/internal/storage"
)

// BatchSize caps how many records an extraction batch may hold.
const BatchSize = 500

// Record is one raw extracted item. Each provider package defines its own
// concrete record type; transforms assert back to it.
type Record any

// Batch holds at most BatchSize records.
type Batch []Record

// Extraction reads raw provider data from the blob store and returns typed
// record batches. It does not build payloads.
type Extraction interface {
	Extract(ctx context.Context, task *models.EtlTask, blobs storage.Backend) ([]Batch, error)
}

// Transform converts one extracted record into a thread row. A nil row with
// a nil error means the record is skipped.
type Transform interface {
	Transform(task *models.EtlTask, rec Record) (*models.ThreadRow, error)
}

// Pipe bundles the extract and transform stages for a single interaction
// type together with the archive path its input lives at. PathPattern may
// contain glob wildcards, in which case discovery fans out one task per
// matched file.
type Pipe struct {
	InteractionType string
	PathPattern     string
	Extraction      Extraction
	Transform       Transform
}

// Batcher accumulates records into batches of at most BatchSize.
type Batcher struct {
	batches []Batch
	current Batch
}

func (b *Batcher) Add(rec Record) {
	b.current = append(b.current, rec)
	if len(b.current) >= BatchSize {
		b.batches = append(b.batches, b.current)
		b.current = nil
	}
}

// Batches flushes the pending partial batch and returns everything
// accumulated so far.
func (b *Batcher) Batches() []Batch {
	if len(b.current) > 0 {
		b.batches = append(b.batches, b.current)
		b.current = nil
	}
	return b.batches
}

// Epoch values above this are treated as milliseconds (2100-01-01 UTC).
const maxSecondsEpoch = 4102444800

// FromEpoch converts a Unix timestamp to UTC time, resolving the
// seconds-vs-milliseconds ambiguity found in provider exports.
func FromEpoch(ts float64) time.Time {
	if ts > maxSecondsEpoch {
		ts /= 1000
	}
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}
