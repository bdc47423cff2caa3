package ports

import "context"

// ArtifactRepository moves model artifact blobs between live, backup and
// snapshot locations. Copy must never leave a partially written destination
// behind on failure.
type ArtifactRepository interface {
	Exists(ctx context.Context, path string) (bool, error)
	Copy(ctx context.Context, src, dst string) error
	Read(ctx context.Context, path string) ([]byte, error)
}
