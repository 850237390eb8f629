// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package itinerary reads and writes the YAML file listing the itineraries
// to price. A file can be saved from the command line and reloaded by the
// watch loop.
package itinerary

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/fare-scout/pkg/types"
)

// ErrEmpty means the file lists no itineraries.
var ErrEmpty = errors.New("no itineraries in file")

// File is the on-disk list of itineraries.
type File struct {
	Itineraries []Entry   `yaml:"itineraries"`
	Updated     time.Time `yaml:"updated,omitempty"`
}

// Entry is one itinerary with its monitoring settings.
type Entry struct {
	types.ItineraryQuery `yaml:",inline"`

	Description string `yaml:"description,omitempty"`

	// Enabled defaults to true when omitted.
	Enabled *bool `yaml:"enabled,omitempty"`

	// RecheckHours overrides the watch recheck interval for this entry.
	RecheckHours float64 `yaml:"recheck_hours,omitempty"`
}

// Active reports whether the entry should be priced.
func (e Entry) Active() bool {
	return e.Enabled == nil || *e.Enabled
}

// RecheckInterval returns the entry's recheck interval, or def when unset.
func (e Entry) RecheckInterval(def time.Duration) time.Duration {
	if e.RecheckHours > 0 {
		return time.Duration(e.RecheckHours * float64(time.Hour))
	}
	return def
}

// Load reads and validates an itinerary file.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("reading itinerary file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("parsing itinerary file %s: %w", path, err)
	}
	if len(f.Itineraries) == 0 {
		return File{}, fmt.Errorf("%s: %w", path, ErrEmpty)
	}

	seen := make(map[string]int, len(f.Itineraries))
	for i := range f.Itineraries {
		e := &f.Itineraries[i]
		e.ItineraryQuery = e.ItineraryQuery.Normalize()
		if err := e.Validate(); err != nil {
			return File{}, fmt.Errorf("%s: itinerary %d: %w", path, i+1, err)
		}
		key := e.Key()
		if j, dup := seen[key]; dup {
			return File{}, fmt.Errorf("%s: itineraries %d and %d share key %q", path, j+1, i+1, key)
		}
		seen[key] = i
	}
	return f, nil
}

// Write saves f to path.
func Write(path string, f File) error {
	f.Updated = time.Now().UTC().Truncate(time.Second)
	data, err := yaml.Marshal(&f)
	if err != nil {
		return fmt.Errorf("marshaling itinerary file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing itinerary file: %w", err)
	}
	return nil
}

// Add appends q to the file at path, creating it when missing. An entry
// with the same key is replaced.
func Add(path string, q types.ItineraryQuery, description string) error {
	q = q.Normalize()
	if err := q.Validate(); err != nil {
		return err
	}

	f, err := Load(path)
	switch {
	case errors.Is(err, os.ErrNotExist), errors.Is(err, ErrEmpty):
		f = File{}
	case err != nil:
		return err
	}

	entry := Entry{ItineraryQuery: q, Description: description}
	for i, e := range f.Itineraries {
		if e.Key() == q.Key() {
			f.Itineraries[i] = entry
			return Write(path, f)
		}
	}
	f.Itineraries = append(f.Itineraries, entry)
	return Write(path, f)
}

// Active returns the enabled entries.
func (f File) Active() []Entry {
	var out []Entry
	for _, e := range f.Itineraries {
		if e.Active() {
			out = append(out, e)
		}
	}
	return out
}
