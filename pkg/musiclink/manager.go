package musiclink

import (
	"context"
	"fmt"
)

// Manager fans a URL out to the provider resolvers. The first resolver
// whose CanResolve accepts the URL owns it; order is fixed at
// construction.
type Manager struct {
	resolvers []Resolver
}

// NewManager wires up every supported provider.
func NewManager() *Manager {
	return &Manager{
		resolvers: []Resolver{
			NewYouTubeResolver(),
			NewAppleMusicResolver(),
			NewTidalResolver(),
			NewBeatportResolver(),
			NewAmazonMusicResolver(),
			NewSoundCloudResolver(),
		},
	}
}

// Resolve extracts track metadata through the resolver that claims the
// URL. Provider errors are wrapped with the provider name so issue
// reports say which service failed.
func (m *Manager) Resolve(ctx context.Context, url string) (*TrackInfo, error) {
	for _, resolver := range m.resolvers {
		if !resolver.CanResolve(url) {
			continue
		}
		info, err := resolver.Resolve(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", resolver.Name(), err)
		}
		return info, nil
	}

	return nil, fmt.Errorf("no resolver handles %s", url)
}

// CanResolve reports whether any provider claims the URL.
func (m *Manager) CanResolve(url string) bool {
	for _, resolver := range m.resolvers {
		if resolver.CanResolve(url) {
			return true
		}
	}
	return false
}
