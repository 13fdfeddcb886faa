package models

import (
	"time"

	"github.com/raphaelgruber/contextuse-go/internal/payload"
)

// ThreadRow is one normalized, content-addressed unit of interaction ready
// for loading. Instances are produced by transform strategies, never
// mutated, and persisted at most once per unique key.
type ThreadRow struct {
	// UniqueKey is "{interaction_type}:{hash16}" where hash16 is derived
	// from the payload's canonical serialization. Re-ingesting identical
	// source data reproduces identical keys, which is what makes load
	// retries safe (insert-or-ignore at the store boundary).
	UniqueKey       string        `json:"unique_key"`
	Provider        string        `json:"provider"`
	InteractionType string        `json:"interaction_type"`
	Preview         string        `json:"preview"`
	Payload         payload.Fibre `json:"payload"`
	Version         string        `json:"version"`
	Asat            time.Time     `json:"asat"`

	// Source keeps the raw input record for auditing. Optional.
	Source *string `json:"source,omitempty"`
	// AssetURI points at an associated binary in the blob store. Optional.
	AssetURI *string `json:"asset_uri,omitempty"`
}
