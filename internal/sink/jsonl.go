// Package sink writes decoded records to their destinations. Sinks hand out
// one batch.Writer per shard; the shard writers of a sink may run concurrently.
package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/klauspost/pgzip"

	"github.com/gyeh/codebook/internal/batch"
	"github.com/gyeh/codebook/internal/model"
)

// Stdout is the path that selects standard output.
const Stdout = "-"

// Line is one JSON Lines output record.
type Line struct {
	Shard  string              `json:"shard"`
	Record model.DecodedRecord `json:"record"`
}

// JSONL appends decoded records to one JSON Lines stream shared by all shards.
// Lines from different shards interleave; within a shard they keep input order.
type JSONL struct {
	mu      sync.Mutex
	w       *bufio.Writer
	closers []func() error
	lines   int64
}

// CreateJSONL creates path (or uses stdout for "-"). A ".gz" suffix selects
// gzip compression.
func CreateJSONL(path string) (*JSONL, error) {
	if path == Stdout {
		return NewJSONL(os.Stdout), nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	if !strings.HasSuffix(strings.ToLower(path), ".gz") {
		s := NewJSONL(f)
		s.closers = append(s.closers, f.Close)
		return s, nil
	}

	zw := pgzip.NewWriter(f)
	s := NewJSONL(zw)
	s.closers = append(s.closers, zw.Close, f.Close)
	return s, nil
}

// NewJSONL writes to w. Closing the sink flushes but does not close w.
func NewJSONL(w io.Writer) *JSONL {
	return &JSONL{w: bufio.NewWriterSize(w, 256*1024)}
}

// Open returns the writer for one shard.
func (s *JSONL) Open(_ context.Context, shard string) (batch.Writer, error) {
	return &jsonlShard{sink: s, shard: shard}, nil
}

// Lines returns the number of lines written so far.
func (s *JSONL) Lines() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines
}

// Close flushes buffered output and closes any file it created.
func (s *JSONL) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.w.Flush()
	for _, c := range s.closers {
		if cerr := c(); cerr != nil && err == nil {
			err = cerr
		}
	}
	s.closers = nil
	if err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	return nil
}

func (s *JSONL) writeLine(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.w.Write(b); err != nil {
		return err
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return err
	}
	s.lines++
	return nil
}

type jsonlShard struct {
	sink  *JSONL
	shard string
}

func (w *jsonlShard) Write(_ context.Context, rec model.DecodedRecord) error {
	b, err := json.Marshal(Line{Shard: w.shard, Record: rec})
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return w.sink.writeLine(b)
}

func (w *jsonlShard) Close() error { return nil }
