// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// ExportEntry groups one itinerary's observations for export.
type ExportEntry struct {
	Itinerary    string        `json:"itinerary" yaml:"itinerary"`
	Latest       *Change       `json:"latest_change,omitempty" yaml:"latest_change,omitempty"`
	Observations []Observation `json:"observations" yaml:"observations"`
}

// ExportYAML writes the history to path, or to <data dir>/export.yaml when
// path is empty. It supports the same filters as List.
func (s *Store) ExportYAML(ctx context.Context, path string, opts QueryOptions) (string, error) {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return "", err
	}
	if path == "" {
		path = filepath.Join(s.dir, "export.yaml")
	}
	data, err := yaml.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	return path, os.WriteFile(path, data, 0o644)
}

// ExportJSON writes the history to path, or to <data dir>/export.json when
// path is empty.
func (s *Store) ExportJSON(ctx context.Context, path string, opts QueryOptions) (string, error) {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return "", err
	}
	if path == "" {
		path = filepath.Join(s.dir, "export.json")
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	return path, os.WriteFile(path, data, 0o644)
}

func (s *Store) exportEntries(ctx context.Context, opts QueryOptions) ([]ExportEntry, error) {
	keys := []string{opts.Key}
	if opts.Key == "" {
		var err error
		if keys, err = s.Keys(ctx); err != nil {
			return nil, err
		}
	}

	entries := []ExportEntry{}
	for _, k := range keys {
		o := opts
		o.Key = k
		obs, err := s.List(ctx, o)
		if err != nil {
			return nil, fmt.Errorf("querying for export: %w", err)
		}
		if len(obs) == 0 {
			continue
		}
		e := ExportEntry{Itinerary: k, Observations: obs}
		if c, ok := latestChange(obs); ok {
			e.Latest = &c
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// latestChange compares the two newest priced observations in a
// newest-first list.
func latestChange(obs []Observation) (Change, bool) {
	var priced []Observation
	for _, o := range obs {
		if o.Found {
			priced = append(priced, o)
			if len(priced) == 2 {
				return Classify(priced[1].Amount, priced[0].Amount), true
			}
		}
	}
	return Change{}, false
}
