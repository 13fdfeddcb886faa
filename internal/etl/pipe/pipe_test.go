package pipe

import (
	"testing"
	"time"
)

func TestBatcherChunks(t *testing.T) {
	var b Batcher
	for i := 0; i < BatchSize+1; i++ {
		b.Add(i)
	}
	batches := b.Batches()
	if len(batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(batches))
	}
	if len(batches[0]) != BatchSize {
		t.Errorf("first batch has %d records, want %d", len(batches[0]), BatchSize)
	}
	if len(batches[1]) != 1 {
		t.Errorf("second batch has %d records, want 1", len(batches[1]))
	}
}

func TestBatcherEmpty(t *testing.T) {
	var b Batcher
	if got := b.Batches(); len(got) != 0 {
		t.Errorf("expected no batches, got %d", len(got))
	}
}

func TestFromEpoch(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want time.Time
	}{
		{"seconds", 1714000000, time.Date(2024, 4, 24, 23, 6, 40, 0, time.UTC)},
		{"milliseconds", 1714000000000, time.Date(2024, 4, 24, 23, 6, 40, 0, time.UTC)},
		{"fractional seconds", 1714000000.5, time.Date(2024, 4, 24, 23, 6, 40, 500000000, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromEpoch(tt.in); !got.Equal(tt.want) {
				t.Errorf("FromEpoch(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
