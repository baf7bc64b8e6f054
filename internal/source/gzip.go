package source

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/pgzip"
)

// openStream opens path for sequential reading, decompressing it when gz is set.
func openStream(path string, gz bool) (io.Reader, []func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open record file: %w", err)
	}
	if !gz {
		return f, []func() error{f.Close}, nil
	}

	zr, err := pgzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("open gzip stream: %w", err)
	}
	return zr, []func() error{f.Close, zr.Close}, nil
}
