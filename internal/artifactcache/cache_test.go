package artifactcache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"model-training-service/internal/core/domain"
)

type stubSource struct {
	version *domain.Version
	data    []byte
	reads   int
}

func (s *stubSource) GetCurrentVersion(ctx context.Context, modelName string) (*domain.Version, error) {
	if s.version == nil {
		return nil, domain.ErrVersionNotFound
	}
	return s.version, nil
}

func (s *stubSource) CurrentArtifact(ctx context.Context, modelName string) (*domain.Version, []byte, error) {
	if s.version == nil {
		return nil, nil, domain.ErrVersionNotFound
	}
	s.reads++
	return s.version, s.data, nil
}

func TestCache_ServesFromCacheWhileVersionUnchanged(t *testing.T) {
	source := &stubSource{
		version: &domain.Version{VersionID: "sentiment_20260314_093000"},
		data:    []byte("weights-a"),
	}
	cache, err := New(source, 4)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		version, data, err := cache.Get(context.Background(), "sentiment")
		require.NoError(t, err)
		assert.Equal(t, "sentiment_20260314_093000", version.VersionID)
		assert.Equal(t, []byte("weights-a"), data)
	}
	assert.Equal(t, 1, source.reads)
	assert.Equal(t, 1, cache.Len())
}

func TestCache_VersionChangeInvalidates(t *testing.T) {
	source := &stubSource{
		version: &domain.Version{VersionID: "v1"},
		data:    []byte("weights-a"),
	}
	cache, err := New(source, 4)
	require.NoError(t, err)

	_, data, err := cache.Get(context.Background(), "sentiment")
	require.NoError(t, err)
	assert.Equal(t, []byte("weights-a"), data)

	// A rollback or promotion moves the current version id.
	source.version = &domain.Version{VersionID: "v2"}
	source.data = []byte("weights-b")

	version, data, err := cache.Get(context.Background(), "sentiment")
	require.NoError(t, err)
	assert.Equal(t, "v2", version.VersionID)
	assert.Equal(t, []byte("weights-b"), data)
	assert.Equal(t, 2, source.reads)
}

func TestCache_PropagatesNotFound(t *testing.T) {
	cache, err := New(&stubSource{}, 4)
	require.NoError(t, err)

	_, _, err = cache.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrVersionNotFound)
}
