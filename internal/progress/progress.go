// Package progress reports per-shard record counts while a batch runs.
package progress

import (
	"fmt"
	"sync/atomic"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// Tracker counts records for a single shard.
type Tracker interface {
	SetTotal(total int64)
	Increment()
	Done()
}

// Manager creates trackers for individual shards.
type Manager interface {
	NewTracker(index, total int, name string) Tracker
	Wait()
}

// MPBManager implements Manager using the mpb multi-progress-bar library.
type MPBManager struct {
	container *mpb.Progress
}

// NewMPBManager creates a new mpb-based progress manager.
func NewMPBManager() *MPBManager {
	return &MPBManager{container: mpb.New(mpb.WithWidth(60))}
}

// NewTracker adds a bar for a shard. Until SetTotal is called the bar only
// shows a running count.
func (m *MPBManager) NewTracker(index, total int, name string) Tracker {
	bar := m.container.AddBar(0,
		mpb.PrependDecorators(
			decor.Name(fmt.Sprintf("[%d/%d] %s ", index+1, total, name), decor.WCSyncSpaceR),
		),
		mpb.AppendDecorators(
			decor.CountersNoUnit("%d / %d records"),
		),
	)
	return &mpbTracker{bar: bar}
}

// Wait waits for all progress bars to finish.
func (m *MPBManager) Wait() {
	m.container.Wait()
}

type mpbTracker struct {
	bar *mpb.Bar
}

func (t *mpbTracker) SetTotal(total int64) {
	t.bar.SetTotal(total, false)
}

func (t *mpbTracker) Increment() {
	t.bar.Increment()
}

// Done completes the bar at the current count, whatever the expected total was.
func (t *mpbTracker) Done() {
	t.bar.SetTotal(-1, true)
}

// NoopManager is a progress manager for non-interactive use. It only keeps
// an overall record count.
type NoopManager struct {
	Records atomic.Int64
}

func (m *NoopManager) NewTracker(index, total int, name string) Tracker {
	return &noopTracker{mgr: m}
}

func (m *NoopManager) Wait() {}

type noopTracker struct {
	mgr *NoopManager
}

func (t *noopTracker) SetTotal(int64) {}
func (t *noopTracker) Increment()     { t.mgr.Records.Add(1) }
func (t *noopTracker) Done()          {}
