package templates

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Entry describes a template for pickers.
type Entry struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Family      string `yaml:"family" json:"family"`
	Accent      string `yaml:"accent" json:"accent"`
}

type catalogFile struct {
	Templates []Entry `yaml:"templates"`
}

var (
	catalogOnce    sync.Once
	catalogEntries []Entry
	catalogErr     error
)

// Catalog returns the embedded template catalog. Every variant has exactly one entry.
func Catalog() ([]Entry, error) {
	catalogOnce.Do(func() {
		catalogEntries, catalogErr = parseCatalog(catalogYAML)
	})
	if catalogErr != nil {
		return nil, catalogErr
	}
	return append([]Entry(nil), catalogEntries...), nil
}

func parseCatalog(data []byte) ([]Entry, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("templates: parse catalog: %w", err)
	}
	seen := make(map[string]struct{}, len(file.Templates))
	for _, e := range file.Templates {
		if ParseVariant(e.ID).ID() != e.ID {
			return nil, fmt.Errorf("templates: catalog entry %q has no renderer", e.ID)
		}
		if _, dup := seen[e.ID]; dup {
			return nil, fmt.Errorf("templates: duplicate catalog entry %q", e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	if len(seen) != len(Variants()) {
		return nil, fmt.Errorf("templates: catalog lists %d of %d templates", len(seen), len(Variants()))
	}
	return file.Templates, nil
}
