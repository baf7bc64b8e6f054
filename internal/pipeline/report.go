package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/gyeh/codebook/internal/batch"
	"github.com/gyeh/codebook/internal/db"
	"github.com/gyeh/codebook/internal/model"
	"github.com/gyeh/codebook/internal/source"
)

// ShardSummary is the per-shard section of the report document.
type ShardSummary struct {
	Name      string `json:"name"`
	Records   int64  `json:"records"`
	Emitted   int64  `json:"emitted"`
	Anomalies int64  `json:"anomalies"`
}

// Document is the JSON diagnostics report of one run.
type Document struct {
	BatchID          string            `json:"batch_id"`
	Dictionary       string            `json:"dictionary"`
	DictionarySHA256 string            `json:"dictionary_sha256"`
	DurationSeconds  float64           `json:"duration_seconds"`
	Shards           []ShardSummary    `json:"shards"`
	Totals           batch.FieldCounts `json:"totals"`
	Report           *batch.Report     `json:"report"`
}

// NewDocument assembles the report document.
func NewDocument(s model.RunSummary, shards []batch.ShardResult, r *batch.Report) Document {
	doc := Document{
		BatchID:          s.BatchID,
		Dictionary:       s.Dictionary,
		DictionarySHA256: s.DictionarySHA256,
		DurationSeconds:  s.DurationTotal.Seconds(),
		Totals:           r.Totals(),
		Report:           r,
	}
	for _, sh := range shards {
		ss := ShardSummary{Name: sh.Shard, Emitted: sh.Emitted}
		if sh.Report != nil {
			ss.Records = sh.Report.Records
			ss.Anomalies = sh.Report.Anomalies()
		}
		doc.Shards = append(doc.Shards, ss)
	}
	return doc
}

// WriteReport writes doc to a local path or an s3:// URL.
func WriteReport(ctx context.Context, path string, doc Document, store ObjectStore) error {
	if source.IsRemote(path) {
		if store == nil {
			return fmt.Errorf("%s: no object store configured", path)
		}
		return store.PutJSON(ctx, path, doc)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// FieldDiagnostics converts a report into diagnostics table rows, ordered
// like Report.FieldKeys.
func FieldDiagnostics(r *batch.Report) []db.FieldCount {
	keys := r.FieldKeys()
	out := make([]db.FieldCount, 0, len(keys))
	for _, k := range keys {
		c := r.Fields[k]
		out = append(out, db.FieldCount{
			FieldKey:      k,
			Decoded:       c.Decoded,
			UnknownCode:   c.UnknownCode,
			NullValue:     c.NullValue,
			UnknownField:  c.UnknownField,
			NotApplicable: c.NotApplicable,
		})
	}
	return out
}

// PrintSummary writes a console summary of the run listing at most top
// anomalous fields.
func PrintSummary(w io.Writer, s model.RunSummary, r *batch.Report, top int) {
	fmt.Fprintln(w, "=== cbdecode summary ===")
	fmt.Fprintf(w, "Batch:       %s\n", s.BatchID)
	fmt.Fprintf(w, "Dictionary:  %s (%d fields, %d monthly families)\n", s.Dictionary, s.Fields, s.MonthlyFamilies)
	fmt.Fprintf(w, "Shards:      %d\n", s.Shards)
	fmt.Fprintf(w, "Records:     %d read, %d kept, %d with anomalies\n", s.RecordsRead, s.RecordsKept, s.RecordsAnomalous)
	fmt.Fprintf(w, "Duration:    %.1fs\n", s.DurationTotal.Seconds())

	t := r.Totals()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Field outcomes:")
	fmt.Fprintf(w, "  %-15s %d\n", "decoded", t.Decoded)
	fmt.Fprintf(w, "  %-15s %d\n", "null_value", t.NullValue)
	fmt.Fprintf(w, "  %-15s %d\n", "not_applicable", t.NotApplicable)
	fmt.Fprintf(w, "  %-15s %d\n", "unknown_code", t.UnknownCode)
	fmt.Fprintf(w, "  %-15s %d\n", "unknown_field", t.UnknownField)

	if t.Anomalies() == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Most anomalous fields:")
	for i, k := range r.FieldKeys() {
		c := r.Fields[k]
		if i >= top || c.Anomalies() == 0 {
			break
		}
		fmt.Fprintf(w, "  %-20s %6d unknown codes, %6d unknown fields\n", k, c.UnknownCode, c.UnknownField)
	}
}
