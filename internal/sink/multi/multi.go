package multi

import (
	"context"
	"errors"

	"github.com/crimson-sun/trafficwatch/internal/sink"
)

// Multi fans out entries to several sinks. If one sink fails, the remaining
// sinks still receive the entry.
type Multi struct {
	sinks []sink.Sink
}

var _ sink.Sink = (*Multi)(nil)

// New creates a Multi over sinks.
func New(sinks ...sink.Sink) *Multi {
	return &Multi{sinks: sinks}
}

// Write delivers e to every sink and joins their errors.
func (m *Multi) Write(ctx context.Context, e sink.Entry) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Write(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink, collecting errors.
func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
