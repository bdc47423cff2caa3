package artifactcache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"model-training-service/internal/core/domain"
)

const DefaultSize = 32

// ArtifactSource is the slice of the artifact store the cache reads through.
type ArtifactSource interface {
	GetCurrentVersion(ctx context.Context, modelName string) (*domain.Version, error)
	CurrentArtifact(ctx context.Context, modelName string) (*domain.Version, []byte, error)
}

// Cache is a read-through LRU over current artifact payloads, keyed by
// "<model>@<versionId>". A promotion or rollback moves the current version
// id, so a stale payload can never be served for the new current version;
// entries for old ids simply age out.
type Cache struct {
	source  ArtifactSource
	entries *lru.Cache[string, []byte]
}

func New(source ArtifactSource, size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("create artifact cache: %w", err)
	}
	return &Cache{source: source, entries: entries}, nil
}

// Get returns the current version and its artifact bytes, serving the bytes
// from cache when the current version has not moved since they were loaded.
func (c *Cache) Get(ctx context.Context, modelName string) (*domain.Version, []byte, error) {
	current, err := c.source.GetCurrentVersion(ctx, modelName)
	if err != nil {
		return nil, nil, err
	}

	key := cacheKey(modelName, current.VersionID)
	if data, ok := c.entries.Get(key); ok {
		return current, data, nil
	}

	version, data, err := c.source.CurrentArtifact(ctx, modelName)
	if err != nil {
		return nil, nil, err
	}
	c.entries.Add(cacheKey(modelName, version.VersionID), data)
	return version, data, nil
}

func (c *Cache) Len() int {
	return c.entries.Len()
}

func (c *Cache) Purge() {
	c.entries.Purge()
}

func cacheKey(modelName, versionID string) string {
	return modelName + "@" + versionID
}
