// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package discover

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/fare-scout/pkg/types"
)

// WriteArtifact writes res to path as YAML.
func WriteArtifact(path string, res types.DiscoveryResult) error {
	data, err := yaml.Marshal(&res)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing result %s: %w", path, err)
	}
	return nil
}

// WriteVerificationLinks writes a numbered, human-readable list of urls to
// path, stamped with now.
func WriteVerificationLinks(path string, urls []string, now time.Time) error {
	var b strings.Builder
	b.WriteString("Flight Verification URLs\n")
	b.WriteString(strings.Repeat("=", 50) + "\n\n")
	b.WriteString("Use these URLs to manually verify your specific flight prices:\n\n")
	for i, u := range urls {
		fmt.Fprintf(&b, "%d. %s\n", i+1, u)
	}
	fmt.Fprintf(&b, "\nGenerated: %s\n", now.Format(time.DateTime))

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing verification links %s: %w", path, err)
	}
	return nil
}
