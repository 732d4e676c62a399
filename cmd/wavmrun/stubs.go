package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/a4a881d4/WAVM"
)

// manifestDoc is the on-disk YAML form consumed by the --stubs flag: a flat
// map of "moduleName.exportName" to the integer value StubResolver should
// use for that global import instead of its zero-value default.
type manifestDoc struct {
	Globals map[string]int64 `yaml:"globals"`
}

func loadStubManifest(path string) (*wavm.StubManifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading stub manifest: %w", err)
	}
	var doc manifestDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing stub manifest YAML: %w", err)
	}

	globals := make(map[string]wavm.UntaggedValue, len(doc.Globals))
	for key, v := range doc.Globals {
		globals[key] = wavm.I64Value(uint64(v))
	}
	return &wavm.StubManifest{Globals: globals}, nil
}
