// Package source reads raw administrative records from files.
//
// Supported formats, chosen by file extension: CSV with a header row
// (.csv), JSON Lines (.jsonl, .ndjson) and Parquet (.parquet). CSV and JSON
// Lines may be gzip-compressed (.gz suffix).
package source

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gyeh/codebook/internal/batch"
	"github.com/gyeh/codebook/internal/normalize"
)

// Format identifies a record file layout.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatJSONL   Format = "jsonl"
	FormatParquet Format = "parquet"
)

// Options controls how cells become raw values.
type Options struct {
	Cleaner normalize.Cleaner
	// Fetch materializes a remote reference (e.g. s3://bucket/key) as a local
	// file. The returned cleanup is called when the Reader is closed.
	Fetch func(ctx context.Context, ref string) (path string, cleanup func(), err error)
}

// Reader is an open record file.
type Reader struct {
	Name    string
	Format  Format
	Records batch.Source
	// Total is the record count when the format knows it up front, else 0.
	Total   int64
	Columns []string

	closers []func() error
}

// Close releases the underlying file and any fetched copy.
func (r *Reader) Close() error {
	var first error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	r.closers = nil
	return first
}

// Shard adapts the reader for batch.ProcessShards.
func (r *Reader) Shard() batch.Shard {
	return batch.Shard{Name: r.Name, Records: r.Records, Total: r.Total}
}

// DetectFormat infers the format and compression from a file name.
func DetectFormat(name string) (Format, bool, error) {
	lower := strings.ToLower(name)
	gz := strings.HasSuffix(lower, ".gz")
	lower = strings.TrimSuffix(lower, ".gz")

	switch filepath.Ext(lower) {
	case ".csv":
		return FormatCSV, gz, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, gz, nil
	case ".parquet":
		if gz {
			return "", false, fmt.Errorf("%s: gzip-compressed parquet is not supported", name)
		}
		return FormatParquet, false, nil
	}
	return "", false, fmt.Errorf("%s: unrecognized record file extension", name)
}

// Open opens a record file, fetching it first when it is a remote reference.
func Open(ctx context.Context, ref string, opts Options) (*Reader, error) {
	format, gz, err := DetectFormat(ref)
	if err != nil {
		return nil, err
	}

	path := ref
	var cleanup func()
	if IsRemote(ref) {
		if opts.Fetch == nil {
			return nil, fmt.Errorf("%s: remote inputs need a fetcher", ref)
		}
		path, cleanup, err = opts.Fetch(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", ref, err)
		}
	}

	var r *Reader
	switch format {
	case FormatCSV:
		r, err = openCSV(path, gz, opts.Cleaner)
	case FormatJSONL:
		r, err = openJSONL(path, gz, opts.Cleaner)
	case FormatParquet:
		r, err = openParquet(path, opts.Cleaner)
	}
	if err != nil {
		if cleanup != nil {
			cleanup()
		}
		return nil, err
	}

	r.Name = filepath.Base(ref)
	r.Format = format
	if cleanup != nil {
		r.closers = append([]func() error{func() error { cleanup(); return nil }}, r.closers...)
	}
	return r, nil
}

// IsRemote reports whether ref names an object store location.
func IsRemote(ref string) bool {
	return strings.HasPrefix(ref, "s3://")
}
