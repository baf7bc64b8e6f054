package sink_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/klauspost/pgzip"

	"github.com/gyeh/codebook/internal/model"
	"github.com/gyeh/codebook/internal/sink"
)

type line struct {
	Shard  string `json:"shard"`
	Record struct {
		Seq    int64                   `json:"seq"`
		Fields map[string]model.FieldJSON `json:"fields"`
	} `json:"record"`
}

func decoded(seq int64) model.DecodedRecord {
	return model.NewDecodedRecord(seq, []model.DecodedField{
		{Key: "sex", Raw: model.String("1"), Result: model.Decoded("Male")},
		{Key: "state_cd", Raw: model.String("00"), Result: model.UnknownCode("00")},
	})
}

func TestJSONL_Lines(t *testing.T) {
	var buf bytes.Buffer
	s := sink.NewJSONL(&buf)
	w, err := s.Open(context.Background(), "bsf.csv")
	if err != nil {
		t.Fatal(err)
	}
	for seq := int64(1); seq <= 3; seq++ {
		if err := w.Write(context.Background(), decoded(seq)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Error("output should stay buffered until the sink is closed")
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if s.Lines() != 3 {
		t.Errorf("Lines = %d", s.Lines())
	}

	sc := bufio.NewScanner(&buf)
	var seqs []int64
	for sc.Scan() {
		var l line
		if err := json.Unmarshal(sc.Bytes(), &l); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		if l.Shard != "bsf.csv" {
			t.Errorf("shard = %q", l.Shard)
		}
		if !l.Record.Fields["state_cd"].Result.Equal(model.UnknownCode("00")) {
			t.Errorf("state_cd = %v", l.Record.Fields["state_cd"].Result)
		}
		sex := l.Record.Fields["sex"]
		if sex.Raw == nil || *sex.Raw != "1" || !sex.Result.Equal(model.Decoded("Male")) {
			t.Errorf("sex = %+v, want raw 1 decoded as Male", sex)
		}
		seqs = append(seqs, l.Record.Seq)
	}
	if len(seqs) != 3 || seqs[0] != 1 || seqs[2] != 3 {
		t.Errorf("seqs = %v", seqs)
	}
}

func TestJSONL_ConcurrentShards(t *testing.T) {
	var buf bytes.Buffer
	s := sink.NewJSONL(&buf)

	var wg sync.WaitGroup
	for _, shard := range []string{"a", "b", "c", "d"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w, _ := s.Open(context.Background(), shard)
			for seq := int64(1); seq <= 100; seq++ {
				if err := w.Write(context.Background(), decoded(seq)); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	last := make(map[string]int64)
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var l line
		if err := json.Unmarshal(sc.Bytes(), &l); err != nil {
			t.Fatalf("torn line %q: %v", sc.Text(), err)
		}
		if l.Record.Seq != last[l.Shard]+1 {
			t.Fatalf("shard %s: seq %d after %d", l.Shard, l.Record.Seq, last[l.Shard])
		}
		last[l.Shard] = l.Record.Seq
	}
	if s.Lines() != 400 {
		t.Errorf("Lines = %d", s.Lines())
	}
}

func TestCreateJSONL_Gzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl.gz")
	s, err := sink.CreateJSONL(path)
	if err != nil {
		t.Fatal(err)
	}
	w, _ := s.Open(context.Background(), "bsf.csv")
	if err := w.Write(context.Background(), decoded(1)); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zr, err := pgzip.NewReader(f)
	if err != nil {
		t.Fatalf("output is not gzip: %v", err)
	}
	defer zr.Close()

	var l line
	if err := json.NewDecoder(zr).Decode(&l); err != nil {
		t.Fatal(err)
	}
	if l.Record.Seq != 1 || !l.Record.Fields["sex"].Result.Equal(model.Decoded("Male")) {
		t.Errorf("line = %+v", l)
	}
}
