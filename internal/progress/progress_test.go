package progress

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func TestNoopManager_CountsAcrossTrackers(t *testing.T) {
	m := &NoopManager{}
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr := m.NewTracker(i, 4, "shard")
			defer tr.Done()
			tr.SetTotal(50)
			for range 50 {
				tr.Increment()
			}
		}()
	}
	wg.Wait()
	m.Wait()
	if got := m.Records.Load(); got != 200 {
		t.Errorf("Records = %d, want 200", got)
	}
}

func TestLogManager_Throttles(t *testing.T) {
	var buf bytes.Buffer
	m := NewLogManager(zerolog.New(&buf))
	tr := m.NewTracker(1, 3, "bsf.csv")
	tr.SetTotal(10)
	for range 10 {
		tr.Increment()
	}
	tr.Done()

	out := buf.String()
	if n := strings.Count(out, `"message":"decoding"`); n != 1 {
		t.Errorf("logged %d progress lines within one interval, want 1", n)
	}
	if !strings.Contains(out, `"message":"shard finished"`) || !strings.Contains(out, `"records":10`) {
		t.Errorf("missing finish line: %s", out)
	}
	if !strings.Contains(out, `"shard_index":2`) || !strings.Contains(out, `"shard":"bsf.csv"`) {
		t.Errorf("missing shard context: %s", out)
	}
}
