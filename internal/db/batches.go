package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gyeh/codebook/internal/model"
	embedsql "github.com/gyeh/codebook/internal/sql"
)

// Batch status values stored in decode.batches.status.
const (
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// RegisterBatch records the start of a decode run.
func RegisterBatch(ctx context.Context, pool *pgxpool.Pool, id uuid.UUID, dictionary, sha string, shards int) error {
	if _, err := pool.Exec(ctx, embedsql.RegisterBatch, id, dictionary, sha, shards); err != nil {
		return fmt.Errorf("register batch: %w", err)
	}
	return nil
}

// FinishBatch stores the run outcome. runErr, when non-nil, marks the batch
// failed and keeps its message.
func FinishBatch(ctx context.Context, pool *pgxpool.Pool, id uuid.UUID, s model.RunSummary, runErr error) error {
	status := StatusComplete
	var msg *string
	if runErr != nil {
		status = StatusFailed
		m := runErr.Error()
		msg = &m
	}
	_, err := pool.Exec(ctx, embedsql.FinishBatch,
		id, status, s.RecordsRead, s.RecordsKept, s.RecordsAnomalous, s.Anomalies, msg)
	if err != nil {
		return fmt.Errorf("finish batch: %w", err)
	}
	return nil
}

// DeleteBatchFields removes the decoded fields of a batch, leaving its
// diagnostics in place.
func DeleteBatchFields(ctx context.Context, pool *pgxpool.Pool, id uuid.UUID) (int64, error) {
	tag, err := pool.Exec(ctx, embedsql.DeleteBatchFields, id)
	if err != nil {
		return 0, fmt.Errorf("delete batch fields: %w", err)
	}
	return tag.RowsAffected(), nil
}

// FieldCount is one row of decode.field_diagnostics.
type FieldCount struct {
	FieldKey      string
	Decoded       int64
	UnknownCode   int64
	NullValue     int64
	UnknownField  int64
	NotApplicable int64
}

// WriteDiagnostics bulk-loads per-field counts for a batch.
func WriteDiagnostics(ctx context.Context, pool *pgxpool.Pool, id uuid.UUID, counts []FieldCount) (int64, error) {
	n, err := pool.CopyFrom(ctx,
		pgx.Identifier{"decode", "field_diagnostics"},
		[]string{"batch_id", "field_key", "decoded", "unknown_code", "null_value", "unknown_field", "not_applicable"},
		pgx.CopyFromSlice(len(counts), func(i int) ([]any, error) {
			c := counts[i]
			return []any{id, c.FieldKey, c.Decoded, c.UnknownCode, c.NullValue, c.UnknownField, c.NotApplicable}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("copy field diagnostics: %w", err)
	}
	return n, nil
}
