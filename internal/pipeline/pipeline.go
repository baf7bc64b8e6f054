// Package pipeline runs a decode: load the dictionary, open the record
// sources and sinks, decode every shard, then publish diagnostics.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/gyeh/codebook/internal/batch"
	"github.com/gyeh/codebook/internal/cloud"
	"github.com/gyeh/codebook/internal/config"
	"github.com/gyeh/codebook/internal/db"
	"github.com/gyeh/codebook/internal/decode"
	"github.com/gyeh/codebook/internal/model"
	"github.com/gyeh/codebook/internal/normalize"
	"github.com/gyeh/codebook/internal/progress"
	"github.com/gyeh/codebook/internal/sink"
	"github.com/gyeh/codebook/internal/source"
)

// ObjectStore reads and writes s3:// objects. *cloud.S3Store implements it.
type ObjectStore interface {
	Get(ctx context.Context, url string) ([]byte, error)
	Fetch(ctx context.Context, url string) (string, func(), error)
	PutJSON(ctx context.Context, url string, v any) error
}

// Env carries the run's external resources. A nil Pool skips the Postgres
// sink; a nil Store connects to S3 the first time an s3:// reference is used.
type Env struct {
	Pool     *pgxpool.Pool
	Store    ObjectStore
	Progress progress.Manager
}

// Result is the outcome of a run.
type Result struct {
	Summary model.RunSummary
	Report  *batch.Report
	Shards  []batch.ShardResult
}

// Run executes the decode pipeline: dictionary → source → sink → decode → report.
func Run(ctx context.Context, env Env, log zerolog.Logger, cfg *config.Config) (*Result, error) {
	totalStart := time.Now()
	store := env.Store
	if store == nil {
		store = NewStore(cfg.Region)
	}

	// Phase 1: Dictionary
	loadOpts, err := cfg.Decode.LoadOptions()
	if err != nil {
		return nil, &PipelineError{Phase: PhaseDictionary, Err: err}
	}
	ld, err := LoadDictionary(ctx, cfg.Dictionary, loadOpts, store)
	if err != nil {
		return nil, &PipelineError{Phase: PhaseDictionary, Err: err}
	}
	families := ld.Dict.MonthlyFamilies()
	filter, err := RequireFilter(ld.Dict, cfg.Require)
	if err != nil {
		return nil, &PipelineError{Phase: PhaseDictionary, Err: err}
	}
	log.Info().
		Str("dictionary", ld.Ref).
		Str("sha256", ld.SHA256).
		Int("fields", ld.Dict.Len()).
		Int("monthly_families", len(families)).
		Msg("dictionary loaded")

	// Phase 2: Sources
	readers, err := openInputs(ctx, cfg.Inputs, source.Options{
		Cleaner: normalize.NewCleaner(cfg.Decode.TrimValues, cfg.Decode.NullTokens),
		Fetch:   store.Fetch,
	})
	if err != nil {
		return nil, &PipelineError{Phase: PhaseSource, Err: err}
	}
	defer func() {
		for _, r := range readers {
			if err := r.Close(); err != nil {
				log.Warn().Err(err).Str("shard", r.Name).Msg("close input failed (non-fatal)")
			}
		}
	}()
	shards := make([]batch.Shard, len(readers))
	for i, r := range readers {
		shards[i] = r.Shard()
	}
	durLoad := time.Since(totalStart)

	// Phase 3: Sinks
	batchID := uuid.New()
	if cfg.BatchID != "" {
		if batchID, err = uuid.Parse(cfg.BatchID); err != nil {
			return nil, &PipelineError{Phase: PhaseSink, Err: fmt.Errorf("batch id: %w", err)}
		}
	}
	var openers []batch.OpenWriter
	var jsonl *sink.JSONL
	if cfg.Output != "" {
		if jsonl, err = sink.CreateJSONL(cfg.Output); err != nil {
			return nil, &PipelineError{Phase: PhaseSink, Err: err}
		}
		defer jsonl.Close()
		openers = append(openers, jsonl.Open)
	}
	if env.Pool != nil {
		if err := db.RegisterBatch(ctx, env.Pool, batchID, ld.Ref, ld.SHA256, len(shards)); err != nil {
			return nil, &PipelineError{Phase: PhaseSink, Err: err}
		}
		openers = append(openers, sink.NewPostgres(env.Pool, batchID).Open)
	}

	summary := model.RunSummary{
		BatchID:          batchID.String(),
		Dictionary:       ld.Ref,
		DictionarySHA256: ld.SHA256,
		Fields:           ld.Dict.Len(),
		MonthlyFamilies:  len(families),
		Shards:           len(shards),
		DurationLoad:     durLoad,
	}

	// Phase 4: Decode
	decodeStart := time.Now()
	log.Info().Int("shards", len(shards)).Int("workers", cfg.Workers).Str("batch_id", summary.BatchID).Msg("starting decode")
	proc := batch.New(decode.New(ld.Dict, families), batch.Options{
		SampleLimitPerKind: cfg.Decode.SampleLimitPerKind,
		Filter:             filter,
	}, log)
	report, results, err := proc.ProcessShards(ctx, shards, cfg.Workers, fanOut(openers), env.Progress)
	summary.DurationDecode = time.Since(decodeStart)
	fillCounts(&summary, report, results)

	if err != nil {
		summary.DurationTotal = time.Since(totalStart)
		if env.Pool != nil {
			abortBatch(ctx, env.Pool, log, batchID, summary, err)
		}
		return &Result{Summary: summary, Report: report, Shards: results}, &PipelineError{Phase: decodePhase(err), Err: err}
	}

	// Phase 5: Report
	reportStart := time.Now()
	if jsonl != nil {
		if err := jsonl.Close(); err != nil {
			return nil, &PipelineError{Phase: PhaseSink, Err: err}
		}
	}
	if env.Pool != nil {
		n, err := db.WriteDiagnostics(ctx, env.Pool, batchID, FieldDiagnostics(report))
		if err != nil {
			return nil, &PipelineError{Phase: PhaseReport, Err: err}
		}
		log.Info().Int64("fields", n).Msg("field diagnostics written")
	}
	summary.DurationReport = time.Since(reportStart)
	summary.DurationTotal = time.Since(totalStart)

	if env.Pool != nil {
		if err := db.FinishBatch(ctx, env.Pool, batchID, summary, nil); err != nil {
			return nil, &PipelineError{Phase: PhaseReport, Err: err}
		}
	}
	if cfg.Report != "" {
		if err := WriteReport(ctx, cfg.Report, NewDocument(summary, results, report), store); err != nil {
			return nil, &PipelineError{Phase: PhaseReport, Err: err}
		}
		log.Info().Str("report", cfg.Report).Msg("report written")
	}

	log.Info().
		Int64("records_read", summary.RecordsRead).
		Int64("records_kept", summary.RecordsKept).
		Int64("records_anomalous", summary.RecordsAnomalous).
		Int64("anomalies", summary.Anomalies).
		Str("total_duration", summary.DurationTotal.String()).
		Msg("decode pipeline complete")

	return &Result{Summary: summary, Report: report, Shards: results}, nil
}

func fillCounts(s *model.RunSummary, r *batch.Report, results []batch.ShardResult) {
	s.RecordsRead = r.Records
	s.RecordsAnomalous = r.RecordsAnomalous
	s.Anomalies = r.Anomalies()
	for _, res := range results {
		s.RecordsKept += res.Emitted
	}
}

// decodePhase attributes a shard failure to the sink, the source or the run itself.
func decodePhase(err error) string {
	var we *batch.WriterError
	switch {
	case errors.As(err, &we):
		return PhaseSink
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return PhaseDecode
	default:
		return PhaseSource
	}
}

// abortBatch marks a failed batch and drops its partially copied fields.
func abortBatch(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger, id uuid.UUID, s model.RunSummary, runErr error) {
	ctx = context.WithoutCancel(ctx)
	if n, err := db.DeleteBatchFields(ctx, pool, id); err != nil {
		log.Warn().Err(err).Msg("delete partial batch failed (non-fatal)")
	} else if n > 0 {
		log.Info().Int64("rows", n).Msg("deleted partial batch rows")
	}
	if err := db.FinishBatch(ctx, pool, id, s, runErr); err != nil {
		log.Warn().Err(err).Msg("mark batch failed (non-fatal)")
	}
}

// openInputs opens every input, giving repeated base names distinct shard names.
func openInputs(ctx context.Context, inputs []string, opts source.Options) ([]*source.Reader, error) {
	readers := make([]*source.Reader, 0, len(inputs))
	seen := make(map[string]int)
	for _, in := range inputs {
		r, err := source.Open(ctx, in, opts)
		if err != nil {
			for _, open := range readers {
				open.Close()
			}
			return nil, err
		}
		seen[r.Name]++
		if n := seen[r.Name]; n > 1 {
			r.Name = fmt.Sprintf("%s#%d", r.Name, n)
		}
		readers = append(readers, r)
	}
	return readers, nil
}

// fanOut opens every sink's writer for a shard and writes each record to all of them.
func fanOut(openers []batch.OpenWriter) batch.OpenWriter {
	switch len(openers) {
	case 0:
		return nil
	case 1:
		return openers[0]
	}
	return func(ctx context.Context, shard string) (batch.Writer, error) {
		ws := make(multiWriter, 0, len(openers))
		for _, open := range openers {
			w, err := open(ctx, shard)
			if err != nil {
				ws.Close()
				return nil, err
			}
			ws = append(ws, w)
		}
		return ws, nil
	}
}

type multiWriter []batch.Writer

func (m multiWriter) Write(ctx context.Context, rec model.DecodedRecord) error {
	for _, w := range m {
		if err := w.Write(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func (m multiWriter) Close() error {
	var errs []error
	for _, w := range m {
		errs = append(errs, w.Close())
	}
	return errors.Join(errs...)
}

// lazyStore connects to S3 on first use.
type lazyStore struct {
	region string
	once   sync.Once
	store  *cloud.S3Store
	err    error
}

func (l *lazyStore) get(ctx context.Context) (*cloud.S3Store, error) {
	l.once.Do(func() {
		l.store, l.err = cloud.NewS3Store(ctx, l.region)
	})
	return l.store, l.err
}

func (l *lazyStore) Get(ctx context.Context, url string) ([]byte, error) {
	s, err := l.get(ctx)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, url)
}

func (l *lazyStore) Fetch(ctx context.Context, url string) (string, func(), error) {
	s, err := l.get(ctx)
	if err != nil {
		return "", nil, err
	}
	return s.Fetch(ctx, url)
}

func (l *lazyStore) PutJSON(ctx context.Context, url string, v any) error {
	s, err := l.get(ctx)
	if err != nil {
		return err
	}
	return s.PutJSON(ctx, url, v)
}

// NewStore returns an ObjectStore that connects to S3 in region on first use.
func NewStore(region string) ObjectStore {
	return &lazyStore{region: region}
}
