package batch

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/gyeh/codebook/internal/model"
	"github.com/gyeh/codebook/internal/progress"
)

// Shard is one independently processed record stream, typically one input file.
type Shard struct {
	Name    string
	Records Source
	// Total is the expected record count, or 0 when unknown.
	Total int64
}

// Writer receives the decoded records of one shard.
type Writer interface {
	Write(ctx context.Context, rec model.DecodedRecord) error
	Close() error
}

// OpenWriter opens the output for a shard. It is called from the shard's goroutine.
type OpenWriter func(ctx context.Context, shard string) (Writer, error)

// WriterError marks a failure of a shard's Writer rather than of its source.
type WriterError struct {
	Err error
}

func (e *WriterError) Error() string { return e.Err.Error() }

func (e *WriterError) Unwrap() error { return e.Err }

// ShardResult is the outcome of one shard.
type ShardResult struct {
	Shard   string
	Report  *Report
	Emitted int64
}

// ProcessShards decodes shards concurrently, at most workers at a time. Each
// shard accumulates its own report; the merged report is built after every
// shard completes, in shard order. The Dictionary behind the decoder is
// shared read-only by all workers.
func (p *Processor) ProcessShards(ctx context.Context, shards []Shard, workers int, open OpenWriter, pm progress.Manager) (*Report, []ShardResult, error) {
	if workers <= 0 {
		workers = 1
	}
	if pm == nil {
		pm = &progress.NoopManager{}
	}

	results := make([]ShardResult, len(shards))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, sh := range shards {
		g.Go(func() error {
			tracker := pm.NewTracker(i, len(shards), sh.Name)
			defer tracker.Done()
			if sh.Total > 0 {
				tracker.SetTotal(sh.Total)
			}

			res, err := p.runShard(gctx, sh, open, tracker)
			results[i] = res
			if err != nil {
				return fmt.Errorf("shard %s: %w", sh.Name, err)
			}
			return nil
		})
	}

	err := g.Wait()
	pm.Wait()

	reports := make([]*Report, len(results))
	for i, r := range results {
		reports[i] = r.Report
	}
	merged := MergeReports(p.opts.SampleLimitPerKind, reports...)
	return merged, results, err
}

func (p *Processor) runShard(ctx context.Context, sh Shard, open OpenWriter, tracker progress.Tracker) (ShardResult, error) {
	res := ShardResult{Shard: sh.Name}

	var w Writer
	if open != nil {
		var err error
		w, err = open(ctx, sh.Name)
		if err != nil {
			return res, &WriterError{Err: fmt.Errorf("open writer: %w", err)}
		}
	}

	seq, report := p.Process(ctx, sh.Name, counted(sh.Records, tracker))
	res.Report = report

	var runErr error
	for rec, err := range seq {
		if err != nil {
			runErr = err
			break
		}
		if w != nil {
			if err := w.Write(ctx, rec); err != nil {
				runErr = &WriterError{Err: fmt.Errorf("write record %d: %w", rec.Seq, err)}
				break
			}
		}
		res.Emitted++
	}

	if w != nil {
		if err := w.Close(); err != nil && runErr == nil {
			runErr = &WriterError{Err: fmt.Errorf("close writer: %w", err)}
		}
	}

	p.log.Info().
		Str("shard", sh.Name).
		Int64("records", report.Records).
		Int64("emitted", res.Emitted).
		Int64("anomalies", report.Anomalies()).
		Msg("shard complete")

	return res, runErr
}

func counted(src Source, tracker progress.Tracker) Source {
	return func(yield func(model.RawRecord, error) bool) {
		for raw, err := range src {
			if err == nil {
				tracker.Increment()
			}
			if !yield(raw, err) {
				return
			}
		}
	}
}
