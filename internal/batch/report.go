package batch

import (
	"sort"

	"github.com/gyeh/codebook/internal/model"
	"github.com/gyeh/codebook/internal/normalize"
)

// DefaultSampleLimit caps samples kept per anomaly kind.
const DefaultSampleLimit = 50

// FieldCounts tallies resolution outcomes for one field.
type FieldCounts struct {
	Decoded       int64 `json:"decoded"`
	UnknownCode   int64 `json:"unknown_code"`
	NullValue     int64 `json:"null_value"`
	UnknownField  int64 `json:"unknown_field"`
	NotApplicable int64 `json:"not_applicable"`
}

// Add increments the counter for kind.
func (c *FieldCounts) Add(kind model.Kind, n int64) {
	switch kind {
	case model.KindDecoded:
		c.Decoded += n
	case model.KindUnknownCode:
		c.UnknownCode += n
	case model.KindNullValue:
		c.NullValue += n
	case model.KindUnknownField:
		c.UnknownField += n
	case model.KindNotApplicable:
		c.NotApplicable += n
	}
}

// Get returns the counter for kind.
func (c FieldCounts) Get(kind model.Kind) int64 {
	switch kind {
	case model.KindDecoded:
		return c.Decoded
	case model.KindUnknownCode:
		return c.UnknownCode
	case model.KindNullValue:
		return c.NullValue
	case model.KindUnknownField:
		return c.UnknownField
	case model.KindNotApplicable:
		return c.NotApplicable
	}
	return 0
}

// Anomalies returns unknown codes plus unknown fields.
func (c FieldCounts) Anomalies() int64 {
	return c.UnknownCode + c.UnknownField
}

func (c *FieldCounts) merge(o FieldCounts) {
	for _, k := range model.AllKinds {
		c.Add(k, o.Get(k))
	}
}

// Sample is one failing record kept for inspection.
type Sample struct {
	Shard       string          `json:"shard,omitempty"`
	Seq         int64           `json:"seq"`
	Fingerprint string          `json:"fingerprint"`
	Fields      []string        `json:"fields"`
	Record      model.RawRecord `json:"record"`
}

// Report aggregates resolution outcomes over a stream of records. It is
// written by one goroutine while a batch runs and is read-only afterwards.
type Report struct {
	Records          int64                   `json:"records"`
	RecordsAnomalous int64                   `json:"records_anomalous"`
	Fields           map[string]*FieldCounts `json:"fields"`
	Samples          map[string][]Sample     `json:"samples"`
	SampleLimit      int                     `json:"sample_limit"`
}

// NewReport returns an empty report keeping at most limit samples per
// anomaly kind. limit <= 0 selects DefaultSampleLimit.
func NewReport(limit int) *Report {
	if limit <= 0 {
		limit = DefaultSampleLimit
	}
	return &Report{
		Fields:      make(map[string]*FieldCounts),
		Samples:     make(map[string][]Sample),
		SampleLimit: limit,
	}
}

// Observe counts every field of rec and samples it once per anomaly kind it
// exhibits, while that kind is under the sample limit.
func (r *Report) Observe(shard string, raw model.RawRecord, rec model.DecodedRecord) {
	r.Records++

	var failing map[model.Kind][]string
	for key, res := range rec.All() {
		r.counts(key).Add(res.Kind, 1)
		if res.Kind.Anomaly() {
			if failing == nil {
				failing = make(map[model.Kind][]string)
			}
			failing[res.Kind] = append(failing[res.Kind], key)
		}
	}
	if len(failing) == 0 {
		return
	}
	r.RecordsAnomalous++

	var fingerprint string
	for _, kind := range model.AllKinds {
		keys, ok := failing[kind]
		if !ok || len(r.Samples[kind.String()]) >= r.SampleLimit {
			continue
		}
		if fingerprint == "" {
			fingerprint = normalize.RecordHash(raw)
		}
		r.Samples[kind.String()] = append(r.Samples[kind.String()], Sample{
			Shard:       shard,
			Seq:         rec.Seq,
			Fingerprint: fingerprint,
			Fields:      keys,
			Record:      raw.Clone(),
		})
	}
}

func (r *Report) counts(key string) *FieldCounts {
	c, ok := r.Fields[key]
	if !ok {
		c = &FieldCounts{}
		r.Fields[key] = c
	}
	return c
}

// Merge folds o into r: counts are added per field and kind, samples are
// appended and truncated to r's limit. Count totals do not depend on merge order.
func (r *Report) Merge(o *Report) {
	r.Records += o.Records
	r.RecordsAnomalous += o.RecordsAnomalous
	for key, c := range o.Fields {
		r.counts(key).merge(*c)
	}
	for kind, samples := range o.Samples {
		merged := append(r.Samples[kind], samples...)
		if len(merged) > r.SampleLimit {
			merged = merged[:r.SampleLimit]
		}
		r.Samples[kind] = merged
	}
}

// MergeReports merges reports into a new report using limit.
func MergeReports(limit int, reports ...*Report) *Report {
	out := NewReport(limit)
	for _, r := range reports {
		if r != nil {
			out.Merge(r)
		}
	}
	return out
}

// Totals sums counts over every field.
func (r *Report) Totals() FieldCounts {
	var t FieldCounts
	for _, c := range r.Fields {
		t.merge(*c)
	}
	return t
}

// Anomalies returns the number of unknown codes and unknown fields seen.
func (r *Report) Anomalies() int64 {
	return r.Totals().Anomalies()
}

// FieldKeys returns the observed field keys, most anomalous first, then by key.
func (r *Report) FieldKeys() []string {
	keys := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ai, aj := r.Fields[keys[i]].Anomalies(), r.Fields[keys[j]].Anomalies()
		if ai != aj {
			return ai > aj
		}
		return keys[i] < keys[j]
	})
	return keys
}
