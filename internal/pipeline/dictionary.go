package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gyeh/codebook/internal/dictionary"
	"github.com/gyeh/codebook/internal/normalize"
	"github.com/gyeh/codebook/internal/source"
)

// LoadedDictionary is a dictionary together with where it came from.
type LoadedDictionary struct {
	Dict   *dictionary.Dictionary
	Ref    string
	SHA256 string
}

// LoadDictionary reads a dictionary from a built-in codebook
// ("builtin:<name>"), an s3:// URL or a local file.
func LoadDictionary(ctx context.Context, ref string, opts dictionary.LoadOptions, store ObjectStore) (*LoadedDictionary, error) {
	var data []byte
	var err error
	switch {
	case strings.HasPrefix(ref, dictionary.BuiltinPrefix):
		data, err = dictionary.BuiltinSource(strings.TrimPrefix(ref, dictionary.BuiltinPrefix))
	case source.IsRemote(ref):
		if store == nil {
			return nil, fmt.Errorf("%s: no object store configured", ref)
		}
		data, err = store.Get(ctx, ref)
	default:
		data, err = os.ReadFile(ref)
	}
	if err != nil {
		return nil, fmt.Errorf("read dictionary %s: %w", ref, err)
	}

	d, err := dictionary.Parse(data, opts)
	if err != nil {
		return nil, fmt.Errorf("dictionary %s: %w", ref, err)
	}
	return &LoadedDictionary{Dict: d, Ref: ref, SHA256: normalize.BytesHash(data)}, nil
}
