package etl

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"github.com/raphaelgruber/contextuse-go/internal/etl/pipe"
	"github.com/raphaelgruber/contextuse-go/internal/storage"
)

// Discovered pairs a pipe with the blob key it will read from.
type Discovered struct {
	Pipe      pipe.Pipe
	SourceURI string
}

func hasWildcard(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

// DiscoverTasks matches the provider's pipe patterns against the unpacked
// archive contents. Plain patterns match exactly one file at
// {archiveID}/{pattern}; wildcard patterns fan out to one task per matched
// file. Zero matches is not an error.
func DiscoverTasks(ctx context.Context, blobs storage.Backend, archiveID string, cfg ProviderConfig) ([]Discovered, error) {
	prefix := archiveID + "/"

	var keys []string
	var listed bool

	var out []Discovered
	for _, p := range cfg.Pipes {
		if !hasWildcard(p.PathPattern) {
			key := prefix + p.PathPattern
			ok, err := blobs.Exists(ctx, key)
			if err != nil {
				return nil, fmt.Errorf("discover %s: %w", p.InteractionType, err)
			}
			if ok {
				out = append(out, Discovered{Pipe: p, SourceURI: key})
			}
			continue
		}

		if !listed {
			var err error
			keys, err = blobs.List(ctx, prefix)
			if err != nil {
				return nil, fmt.Errorf("discover list %s: %w", archiveID, err)
			}
			sort.Strings(keys)
			listed = true
		}

		g, err := glob.Compile(p.PathPattern, '/')
		if err != nil {
			return nil, fmt.Errorf("discover pattern %q: %w", p.PathPattern, err)
		}
		for _, key := range keys {
			rel := strings.TrimPrefix(key, prefix)
			if g.Match(rel) {
				out = append(out, Discovered{Pipe: p, SourceURI: key})
			}
		}
	}
	return out, nil
}
