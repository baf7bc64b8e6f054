// Package batch streams records through a Decoder and aggregates diagnostics.
// A record whose fields fail to resolve is counted and sampled; it never
// stops the batch.
package batch

import (
	"context"
	"fmt"
	"iter"

	"github.com/rs/zerolog"

	"github.com/gyeh/codebook/internal/decode"
	"github.com/gyeh/codebook/internal/model"
)

// Source is a stream of raw records. A non-nil error ends the stream.
type Source = iter.Seq2[model.RawRecord, error]

// Filter decides whether a decoded record is passed on. Filtered records are
// still counted in the report.
type Filter func(raw model.RawRecord, rec model.DecodedRecord) bool

// Options tunes a Processor.
type Options struct {
	SampleLimitPerKind int
	Filter             Filter
}

// Processor decodes record streams one record at a time.
type Processor struct {
	decoder *decode.Decoder
	opts    Options
	log     zerolog.Logger
}

// New creates a Processor.
func New(decoder *decode.Decoder, opts Options, log zerolog.Logger) *Processor {
	if opts.SampleLimitPerKind <= 0 {
		opts.SampleLimitPerKind = DefaultSampleLimit
	}
	return &Processor{decoder: decoder, opts: opts, log: log}
}

// Process returns a lazy sequence of decoded records and the report it fills
// in. Records are read from src only as the sequence is consumed; stopping
// early leaves every record already yielded, and the report so far, valid.
// The sequence ends with a non-nil error when src fails or ctx is done.
func (p *Processor) Process(ctx context.Context, shard string, src Source) (iter.Seq2[model.DecodedRecord, error], *Report) {
	report := NewReport(p.opts.SampleLimitPerKind)
	log := p.log.With().Str("shard", shard).Logger()

	seq := func(yield func(model.DecodedRecord, error) bool) {
		var n int64
		for raw, err := range src {
			if err != nil {
				yield(model.DecodedRecord{}, fmt.Errorf("read record %d: %w", n+1, err))
				return
			}
			if err := ctx.Err(); err != nil {
				yield(model.DecodedRecord{}, err)
				return
			}

			n++
			rec := p.decoder.DecodeSeq(n, raw)
			report.Observe(shard, raw, rec)

			for _, f := range rec.Anomalies() {
				log.Debug().
					Int64("seq", n).
					Str("field", f.Key).
					Stringer("result", f.Result).
					Msg("unresolved field")
			}

			if p.opts.Filter != nil && !p.opts.Filter(raw, rec) {
				continue
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
	return seq, report
}
