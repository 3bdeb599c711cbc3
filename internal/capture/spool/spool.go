package spool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/crimson-sun/trafficwatch/internal/artifact"
	"github.com/crimson-sun/trafficwatch/internal/capture"
	"github.com/crimson-sun/trafficwatch/internal/model"
)

func init() {
	capture.Register("spool", func(cfg capture.Config, store artifact.Store) (capture.Capturer, error) {
		if cfg.SpoolDir == "" {
			return nil, fmt.Errorf("spool: spool directory is required")
		}
		sp, err := New(cfg.SpoolDir, store)
		if err != nil {
			return nil, err
		}
		return sp, nil
	})
}

// localStore is implemented by artifact stores backed by a local directory.
type localStore interface {
	Dir() string
}

// Spool hands over clips that an external recorder drops into a directory.
// Each Capture claims the oldest clip, moves it into the artifact store and
// removes it from the spool.
type Spool struct {
	dir   string
	store artifact.Store
}

// New creates a Spool reading from dir. The spool may not share its
// directory with a local artifact store: claiming a clip would remove the
// stored artifact.
func New(dir string, store artifact.Store) (*Spool, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("spool: %w", err)
	}
	if ls, ok := store.(localStore); ok && filepath.Clean(ls.Dir()) == abs {
		return nil, fmt.Errorf("spool: spool directory %s is also the artifact directory", abs)
	}
	return &Spool{dir: abs, store: store}, nil
}

func (s *Spool) Capture(ctx context.Context) (model.ArtifactRef, error) {
	if err := ctx.Err(); err != nil {
		return "", capture.Wrap(err)
	}
	name, err := s.oldest()
	if err != nil {
		return "", capture.Wrap(err)
	}
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", capture.Wrap(fmt.Errorf("spool: read %s: %w", path, err))
	}
	ref, err := s.store.Put(ctx, name, data)
	if err != nil {
		return "", capture.Wrap(fmt.Errorf("spool: store %s: %w", name, err))
	}
	if filepath.Clean(string(ref)) == path {
		return "", capture.Wrap(fmt.Errorf("spool: %s was stored in place", path))
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		// The clip is already stored; leaving it behind would capture it twice.
		s.store.Delete(ctx, ref)
		return "", capture.Wrap(fmt.Errorf("spool: claim %s: %w", path, err))
	}
	slog.Debug("spool capture", "clip", name, "artifact", ref)
	return ref, nil
}

// oldest returns the name of the oldest finished clip in the spool.
func (s *Spool) oldest() (string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", fmt.Errorf("spool: %w", err)
	}
	type clip struct {
		name string
		mod  int64
	}
	var clips []clip
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") || strings.HasSuffix(e.Name(), ".part") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		clips = append(clips, clip{name: e.Name(), mod: info.ModTime().UnixNano()})
	}
	if len(clips) == 0 {
		return "", capture.ErrNoFootage
	}
	sort.Slice(clips, func(i, j int) bool {
		if clips[i].mod != clips[j].mod {
			return clips[i].mod < clips[j].mod
		}
		return clips[i].name < clips[j].name
	})
	return clips[0].name, nil
}
