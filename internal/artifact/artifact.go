package artifact

import (
	"context"
	"errors"
	"io"

	"github.com/crimson-sun/trafficwatch/internal/model"
)

// ErrNotFound is returned by Open when the referenced clip does not exist.
var ErrNotFound = errors.New("artifact: not found")

// Store holds captured clips between capture and report. A clip is owned by
// the pipeline run that created it until Report deletes it.
type Store interface {
	// Put stores data under name and returns a reference to it.
	Put(ctx context.Context, name string, data []byte) (model.ArtifactRef, error)

	// Open returns a reader for the referenced clip.
	Open(ctx context.Context, ref model.ArtifactRef) (io.ReadCloser, error)

	// Delete removes the referenced clip. Deleting a missing clip is not an error.
	Delete(ctx context.Context, ref model.ArtifactRef) error

	// Exists reports whether the referenced clip is still stored.
	Exists(ctx context.Context, ref model.ArtifactRef) (bool, error)
}

// ReadAll opens ref and reads it fully.
func ReadAll(ctx context.Context, s Store, ref model.ArtifactRef) ([]byte, error) {
	rc, err := s.Open(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
