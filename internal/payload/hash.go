package payload

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// hashLen is the number of hex characters kept from the content digest.
const hashLen = 16

// UniqueKey derives the idempotency identity of a thread row:
// "{interaction_type}:{content_hash}". The hash is a pure function of the
// payload's canonical serialization, so re-ingesting identical source data
// reproduces identical keys across process restarts.
func UniqueKey(interactionType string, f Fibre) (string, error) {
	suffix, err := Hash(f)
	if err != nil {
		return "", err
	}
	return interactionType + ":" + suffix, nil
}

// Hash returns the 16-hex-character SHA-256 prefix of the fibre's
// canonical JSON form.
func Hash(f Fibre) (string, error) {
	canonical, err := canonicalJSON(f)
	if err != nil {
		return "", fmt.Errorf("canonicalize payload: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])[:hashLen], nil
}

// canonicalJSON serializes v to a canonical compact JSON form: null fields
// stripped recursively, object keys sorted lexicographically. The result is
// independent of struct field order and stable across runs.
func canonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	// Round-trip through generic maps: encoding/json emits map keys in
	// sorted order, which gives us the canonical key ordering for free.
	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, err
	}
	return json.Marshal(stripNulls(tree))
}

func stripNulls(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if val == nil {
				continue
			}
			out[k] = stripNulls(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = stripNulls(val)
		}
		return out
	default:
		return v
	}
}
