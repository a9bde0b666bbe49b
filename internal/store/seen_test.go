package store

import (
	"fmt"
	"testing"
)

func TestSeenIndex_Basic(t *testing.T) {
	idx := NewSeenIndex(100, 0.001)

	if idx.Has("track1") {
		t.Error("empty index should not have any tracks")
	}
	if idx.Size() != 0 {
		t.Errorf("empty index size = %d, want 0", idx.Size())
	}

	idx.Add("track1")
	if !idx.Has("track1") {
		t.Error("index should have track1 after adding")
	}
	if idx.Size() != 1 {
		t.Errorf("size = %d after one add, want 1", idx.Size())
	}

	// Duplicate adds must not grow the index.
	idx.Add("track1")
	if idx.Size() != 1 {
		t.Errorf("size = %d after duplicate add, want 1", idx.Size())
	}

	idx.Add("track2")
	idx.Add("track3")
	if idx.Size() != 3 {
		t.Errorf("size = %d after three adds, want 3", idx.Size())
	}
	if !idx.Has("track2") || !idx.Has("track3") {
		t.Error("index should have all added tracks")
	}
}

func TestSeenIndex_Load(t *testing.T) {
	idx := NewSeenIndex(100, 0.001)
	idx.Add("stale")

	tracks := []string{"track1", "track2", "", "track3"}
	idx.Load(tracks)

	if idx.Size() != 3 {
		t.Errorf("size = %d after load, want 3 (empty IDs skipped)", idx.Size())
	}
	if idx.Has("stale") {
		t.Error("load should clear previously added tracks")
	}
	for _, track := range []string{"track1", "track2", "track3"} {
		if !idx.Has(track) {
			t.Errorf("index should have %s after load", track)
		}
	}
}

func TestSeenIndex_EvictsBeyondCapacity(t *testing.T) {
	idx := NewSeenIndex(10, 0.001)

	for i := 0; i < 25; i++ {
		idx.Add(fmt.Sprintf("track%d", i))
	}

	if idx.Size() != 10 {
		t.Errorf("size = %d, want capped at 10", idx.Size())
	}

	// Exactly the ten most recent tracks survive, in age order.
	for i := 0; i < 15; i++ {
		if idx.Has(fmt.Sprintf("track%d", i)) {
			t.Errorf("track%d should have been evicted", i)
		}
	}
	for i := 15; i < 25; i++ {
		if !idx.Has(fmt.Sprintf("track%d", i)) {
			t.Errorf("track%d should survive eviction", i)
		}
	}
}

func TestSeenIndex_LoadBeyondCapacity(t *testing.T) {
	idx := NewSeenIndex(5, 0.001)

	tracks := make([]string, 12)
	for i := range tracks {
		tracks[i] = fmt.Sprintf("track%d", i)
	}
	idx.Load(tracks)

	if idx.Size() != 5 {
		t.Errorf("size = %d after oversized load, want capped at 5", idx.Size())
	}
	for i := 7; i < 12; i++ {
		if !idx.Has(fmt.Sprintf("track%d", i)) {
			t.Errorf("track%d should survive oversized load", i)
		}
	}
	if idx.Has("track0") {
		t.Error("oldest loaded track should have been evicted")
	}
}
