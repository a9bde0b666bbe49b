// Package store provides the seen-index used to deduplicate track IDs
// while the target sequence is built.
package store

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// SeenIndex answers "was this track ID seen before" in O(1): a Bloom
// filter short-circuits the common miss, a map confirms hits, and an LRU
// bounds memory when a chat archive carries more links than expected.
type SeenIndex struct {
	trackIDs          map[string]struct{}
	bloom             *bloom.BloomFilter
	lru               *lru.Cache[string, struct{}]
	mutex             sync.RWMutex
	maxTracks         int
	falsePositiveRate float64
}

// NewSeenIndex creates a seen-index sized for the given number of tracks.
func NewSeenIndex(maxTracks int, falsePositiveRate float64) *SeenIndex {
	s := &SeenIndex{
		trackIDs:          make(map[string]struct{}),
		bloom:             bloom.NewWithEstimates(uint(maxTracks), falsePositiveRate),
		maxTracks:         maxTracks,
		falsePositiveRate: falsePositiveRate,
	}

	// The LRU is the eviction authority: when it overflows it drops its
	// oldest entry and the callback keeps the map in step. The bloom
	// filter cannot forget; a stale positive still hits the map.
	lruCache, _ := lru.NewWithEvict(maxTracks, func(trackID string, _ struct{}) {
		delete(s.trackIDs, trackID)
	})
	s.lru = lruCache

	return s
}

// Has reports whether the track ID was added before.
func (s *SeenIndex) Has(trackID string) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.bloom.TestString(trackID) {
		return false
	}

	_, exists := s.trackIDs[trackID]
	return exists
}

// Add records a track ID. Adding a duplicate is a no-op.
func (s *SeenIndex) Add(trackID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.trackIDs[trackID]; exists {
		return
	}

	s.trackIDs[trackID] = struct{}{}
	s.bloom.AddString(trackID)
	s.lru.Add(trackID, struct{}{})
}

// Load clears the index and seeds it with the given track IDs.
func (s *SeenIndex) Load(trackIDs []string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.lru.Purge()
	s.trackIDs = make(map[string]struct{})
	s.bloom = bloom.NewWithEstimates(uint(s.maxTracks), s.falsePositiveRate)

	for _, trackID := range trackIDs {
		if trackID == "" {
			continue
		}
		s.trackIDs[trackID] = struct{}{}
		s.bloom.AddString(trackID)
		s.lru.Add(trackID, struct{}{})
	}
}

// Size returns the number of track IDs currently indexed.
func (s *SeenIndex) Size() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.trackIDs)
}
