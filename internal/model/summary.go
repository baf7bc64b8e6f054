package model

import "time"

// RunSummary captures metrics from a single decode run.
type RunSummary struct {
	BatchID          string
	Dictionary       string
	DictionarySHA256 string
	Fields           int
	MonthlyFamilies  int
	Shards           int
	RecordsRead      int64
	RecordsKept      int64
	RecordsAnomalous int64
	Anomalies        int64
	DurationLoad     time.Duration
	DurationDecode   time.Duration
	DurationReport   time.Duration
	DurationTotal    time.Duration
}
