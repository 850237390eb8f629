// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package browser

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/pdiddy/fare-scout/pkg/types"
)

// ChromeBinaries are the executable names searched on PATH, in order.
var ChromeBinaries = []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser"}

// ErrNoChrome means no working Chrome or Chromium binary was found.
var ErrNoChrome = errors.New("no chrome binary available")

// Detection describes the browser found on this host.
type Detection struct {
	Runtime types.Runtime `json:"runtime" yaml:"runtime"`
	Binary  string        `json:"binary" yaml:"binary"`
	Path    string        `json:"path" yaml:"path"`
	Version string        `json:"version" yaml:"version"`
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	Output(name string, args ...string) ([]byte, error)
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) Output(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

var defaultExec executor = &osExecutor{}

// DetectRuntime returns the first Chrome binary on PATH that answers
// --version.
func DetectRuntime() (Detection, error) {
	return detectRuntime(defaultExec)
}

func detectRuntime(exec executor) (Detection, error) {
	for _, bin := range ChromeBinaries {
		path, err := exec.LookPath(bin)
		if err != nil {
			continue
		}
		out, err := exec.Output(path, "--version")
		if err != nil {
			continue
		}
		return Detection{
			Runtime: types.RuntimeChrome,
			Binary:  bin,
			Path:    path,
			Version: strings.TrimSpace(string(out)),
		}, nil
	}
	return Detection{}, fmt.Errorf("%w: tried %s", ErrNoChrome, strings.Join(ChromeBinaries, ", "))
}
