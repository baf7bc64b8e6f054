package sink_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/gyeh/codebook/internal/db"
	"github.com/gyeh/codebook/internal/model"
)

func TestChannelSource_DrainsUntilClosed(t *testing.T) {
	ch := make(chan *model.FieldRow, 3)
	id := uuid.New()
	code := "1"
	for i := range 3 {
		ch <- &model.FieldRow{BatchID: id, Shard: "a", RecordSeq: int64(i + 1), FieldKey: "sex", Kind: "decoded", RawValue: &code}
	}
	close(ch)

	src := db.NewChannelSource(context.Background(), ch)
	var seqs []int64
	for src.Next() {
		vals, err := src.Values()
		if err != nil {
			t.Fatalf("Values: %v", err)
		}
		if len(vals) != len(model.FieldRowColumns()) {
			t.Fatalf("got %d values, want %d", len(vals), len(model.FieldRowColumns()))
		}
		seqs = append(seqs, vals[2].(int64))
	}
	if err := src.Err(); err != nil {
		t.Fatalf("Err: %v", err)
	}
	if src.Read() != 3 || len(seqs) != 3 || seqs[0] != 1 || seqs[2] != 3 {
		t.Errorf("read=%d seqs=%v", src.Read(), seqs)
	}
}

func TestChannelSource_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := db.NewChannelSource(ctx, make(chan *model.FieldRow))
	if src.Next() {
		t.Fatal("Next should report false after cancellation")
	}
	if !errors.Is(src.Err(), context.Canceled) {
		t.Errorf("Err = %v, want context.Canceled", src.Err())
	}
}
