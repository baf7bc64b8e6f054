package dictionary

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// BuiltinPrefix selects an embedded codebook in a dictionary reference, e.g. "builtin:bsfab".
const BuiltinPrefix = "builtin:"

//go:embed codebooks/*.json
var codebooks embed.FS

// BuiltinNames lists the embedded codebooks, one per Medicare file type.
func BuiltinNames() []string {
	entries, err := fs.ReadDir(codebooks, "codebooks")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".json" {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names
}

// BuiltinSource returns the raw JSON of an embedded codebook.
func BuiltinSource(name string) ([]byte, error) {
	data, err := fs.ReadFile(codebooks, "codebooks/"+name+".json")
	if err != nil {
		return nil, fmt.Errorf("builtin codebook %q (have %s): %w", name, strings.Join(BuiltinNames(), ", "), err)
	}
	return data, nil
}

// Builtin loads an embedded codebook.
func Builtin(name string, opts LoadOptions) (*Dictionary, error) {
	data, err := BuiltinSource(name)
	if err != nil {
		return nil, err
	}
	return Parse(data, opts)
}
