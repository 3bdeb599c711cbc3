package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/crimson-sun/trafficwatch/internal/sink"
)

// Sink writes JSON-encoded ledger entries to stdout.
type Sink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

var _ sink.Sink = (*Sink)(nil)

// New creates a Sink on os.Stdout, optionally pretty-printed.
func New(pretty bool) *Sink {
	return NewWriter(os.Stdout, pretty)
}

// NewWriter creates a Sink on w.
func NewWriter(w io.Writer, pretty bool) *Sink {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return &Sink{enc: enc}
}

func (s *Sink) Write(_ context.Context, e sink.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(e); err != nil {
		return fmt.Errorf("stdout sink: %w", err)
	}
	return nil
}

func (s *Sink) Close() error {
	return nil
}
