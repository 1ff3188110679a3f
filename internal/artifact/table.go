// Package artifact holds the fixed table of artifacts the updater manages:
// their manifest keys, remote file names, cache locations and, for the ones
// projects consume, the path inside a project tree. The table is embedded at
// build time and validated against a JSON schema before use.
package artifact

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed artifacts.yaml
var rawTable []byte

// Kind tells the installer what to do after the bytes land in the cache.
type Kind string

const (
	// KindFile artifacts are used as downloaded.
	KindFile Kind = "file"
	// KindArchive artifacts are zip bundles extracted into ExtractTo.
	KindArchive Kind = "archive"
)

// Artifact is one managed, versioned file.
type Artifact struct {
	Key string `yaml:"key"`
	// File is the name under the update base URL.
	File string `yaml:"file"`
	// Cache is the slash-separated path under the shared cache directory.
	Cache string `yaml:"cache"`
	// Project is the slash-separated path inside a consuming project. Empty
	// when projects do not carry a copy.
	Project   string `yaml:"project,omitempty"`
	Kind      Kind   `yaml:"kind,omitempty"`
	ExtractTo string `yaml:"extract_to,omitempty"`
}

// IsArchive reports whether the artifact is extracted after install.
func (a Artifact) IsArchive() bool { return a.Kind == KindArchive }

// Updater describes the self-update entry of the manifest.
type Updater struct {
	Key   string            `yaml:"key"`
	Files map[string]string `yaml:"files"`
}

// Table is the full artifact table.
type Table struct {
	Artifacts []Artifact          `yaml:"artifacts"`
	Bundles   map[string]Artifact `yaml:"bundles,omitempty"`
	Updater   Updater             `yaml:"updater"`
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
	defaultErr   error
)

// Default returns the embedded table. It is parsed and validated once.
func Default() (*Table, error) {
	defaultOnce.Do(func() {
		defaultTable, defaultErr = Parse(rawTable)
	})
	return defaultTable, defaultErr
}

// Parse validates data against the schema and decodes it.
func Parse(data []byte) (*Table, error) {
	result, err := Validate(data)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		msgs := make([]string, 0, len(result.Issues))
		for _, issue := range result.Issues {
			msgs = append(msgs, issue.String())
		}
		return nil, fmt.Errorf("invalid artifact table: %s", strings.Join(msgs, "; "))
	}

	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decoding artifact table: %w", err)
	}

	seen := make(map[string]bool)
	for i := range t.Artifacts {
		a := &t.Artifacts[i]
		if a.Kind == "" {
			a.Kind = KindFile
		}
		if seen[a.Key] {
			return nil, fmt.Errorf("invalid artifact table: duplicate key %q", a.Key)
		}
		seen[a.Key] = true
	}
	for family, b := range t.Bundles {
		if b.Kind == "" {
			b.Kind = KindFile
		}
		if seen[b.Key] {
			return nil, fmt.Errorf("invalid artifact table: duplicate key %q", b.Key)
		}
		seen[b.Key] = true
		t.Bundles[family] = b
	}
	return &t, nil
}

// Bundle returns the platform bundle for an OS family, if any.
func (t *Table) Bundle(family string) (Artifact, bool) {
	b, ok := t.Bundles[family]
	return b, ok
}

// ForProject returns the artifacts that consuming projects carry, in table order.
func (t *Table) ForProject() []Artifact {
	var out []Artifact
	for _, a := range t.Artifacts {
		if a.Project != "" {
			out = append(out, a)
		}
	}
	return out
}

// UpdaterFile returns the self-update file name for an OS family.
func (t *Table) UpdaterFile(family string) (string, bool) {
	f, ok := t.Updater.Files[family]
	return f, ok
}
