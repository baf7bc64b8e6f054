package sink

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gyeh/codebook/internal/batch"
	"github.com/gyeh/codebook/internal/db"
	"github.com/gyeh/codebook/internal/model"
)

const copyBuffer = 1024

var errCopyEnded = errors.New("copy stream ended early")

// Postgres loads decoded records into decode.decoded_fields, one row per
// field. Each shard streams through its own COPY on its own connection.
type Postgres struct {
	pool    *pgxpool.Pool
	batchID uuid.UUID
	rows    atomic.Int64
}

// NewPostgres creates a sink that tags every row with batchID.
func NewPostgres(pool *pgxpool.Pool, batchID uuid.UUID) *Postgres {
	return &Postgres{pool: pool, batchID: batchID}
}

// Rows returns the number of field rows committed by closed shard writers.
func (p *Postgres) Rows() int64 {
	return p.rows.Load()
}

// Open starts the COPY for one shard.
func (p *Postgres) Open(ctx context.Context, shard string) (batch.Writer, error) {
	ctx, cancel := context.WithCancel(ctx)
	w := &pgShard{
		sink:   p,
		shard:  shard,
		ch:     make(chan *model.FieldRow, copyBuffer),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	go func() {
		defer close(w.done)
		w.n, w.err = p.pool.CopyFrom(ctx,
			db.DecodedFieldsTable,
			model.FieldRowColumns(),
			db.NewChannelSource(ctx, w.ch),
		)
	}()
	return w, nil
}

type pgShard struct {
	sink   *Postgres
	shard  string
	ch     chan *model.FieldRow
	done   chan struct{}
	cancel context.CancelFunc

	// Set by the COPY goroutine before done is closed.
	n   int64
	err error
}

func (w *pgShard) Write(ctx context.Context, rec model.DecodedRecord) error {
	for _, row := range model.FieldRows(w.sink.batchID, w.shard, rec) {
		select {
		case w.ch <- row:
		case <-w.done:
			if w.err != nil {
				return fmt.Errorf("copy decoded fields: %w", w.err)
			}
			return errCopyEnded
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Close ends the COPY and waits for it to commit.
func (w *pgShard) Close() error {
	close(w.ch)
	<-w.done
	w.cancel()
	if w.err != nil {
		return fmt.Errorf("copy decoded fields: %w", w.err)
	}
	w.sink.rows.Add(w.n)
	return nil
}
