package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/gyeh/codebook/internal/model"
)

// DecodedFieldsTable is the COPY target for decoded fields.
var DecodedFieldsTable = pgx.Identifier{"decode", "decoded_fields"}

// ChannelSource feeds a COPY from a channel of FieldRows. The COPY ends
// cleanly when the channel is closed and fails when ctx is done first, so an
// abandoned shard never commits a partial stream.
type ChannelSource struct {
	ctx  context.Context
	ch   <-chan *model.FieldRow
	row  *model.FieldRow
	read int64
	err  error
}

// NewChannelSource returns a pgx.CopyFromSource reading from ch until it is
// closed or ctx is cancelled.
func NewChannelSource(ctx context.Context, ch <-chan *model.FieldRow) *ChannelSource {
	return &ChannelSource{ctx: ctx, ch: ch}
}

func (s *ChannelSource) Next() bool {
	select {
	case row, ok := <-s.ch:
		if !ok {
			return false
		}
		s.row = row
		s.read++
		return true
	case <-s.ctx.Done():
		s.err = s.ctx.Err()
		return false
	}
}

func (s *ChannelSource) Values() ([]any, error) {
	return s.row.CopyValues(), nil
}

func (s *ChannelSource) Err() error {
	return s.err
}

// Read returns the number of rows handed to COPY so far.
func (s *ChannelSource) Read() int64 {
	return s.read
}

var _ pgx.CopyFromSource = (*ChannelSource)(nil)
