package progress

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const logInterval = 20 * time.Second

// LogManager implements Manager with throttled log lines for non-TTY
// environments (CI, containers) instead of interactive progress bars.
type LogManager struct {
	log      zerolog.Logger
	interval time.Duration
}

// NewLogManager creates a log-based progress manager.
func NewLogManager(log zerolog.Logger) *LogManager {
	return &LogManager{log: log, interval: logInterval}
}

func (m *LogManager) NewTracker(index, total int, name string) Tracker {
	return &logTracker{
		log: m.log.With().
			Str("shard", name).
			Int("shard_index", index+1).
			Int("shards", total).
			Logger(),
		interval: m.interval,
		start:    time.Now(),
	}
}

func (m *LogManager) Wait() {}

type logTracker struct {
	mu       sync.Mutex
	log      zerolog.Logger
	interval time.Duration
	start    time.Time
	lastLog  time.Time
	total    int64
	count    int64
}

func (t *logTracker) SetTotal(total int64) {
	t.mu.Lock()
	t.total = total
	t.mu.Unlock()
}

func (t *logTracker) Increment() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count++
	now := time.Now()
	if now.Sub(t.lastLog) < t.interval {
		return
	}
	t.lastLog = now

	ev := t.log.Info().Int64("records", t.count)
	if t.total > 0 {
		ev = ev.Int64("total", t.total).Float64("pct", float64(t.count)/float64(t.total)*100)
	}
	elapsed := now.Sub(t.start).Seconds()
	if elapsed > 0 {
		ev = ev.Float64("records_per_sec", float64(t.count)/elapsed)
	}
	ev.Msg("decoding")
}

func (t *logTracker) Done() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.log.Info().
		Int64("records", t.count).
		Dur("elapsed", time.Since(t.start).Truncate(time.Millisecond)).
		Msg("shard finished")
}
