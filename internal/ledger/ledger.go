// Package ledger persists what the shared cache currently holds: the last
// synced version of every required artifact, the version of every optional
// resource (skins) present locally, and the two refresh timestamps that
// throttle manifest and catalog checks.
//
// Every mutation is followed by Save, and Save replaces the file atomically,
// so an interrupted run leaves the ledger at the last completed install.
package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"

	"github.com/cn1tools/cn1update/internal/manifest"
)

// Ledger is the persisted sync state of the shared cache.
type Ledger struct {
	// Versions holds required artifacts, keyed by manifest key.
	Versions manifest.Versions `json:"versions"`
	// Resources holds optional resources, keyed by catalog path.
	Resources map[string]int `json:"resources"`

	LastUpdate     time.Time `json:"last_update"`
	LastSkinUpdate time.Time `json:"last_skin_update"`

	path string
}

// New returns an empty ledger that will be saved to path.
func New(path string) *Ledger {
	return &Ledger{
		Versions:  make(manifest.Versions),
		Resources: make(map[string]int),
		path:      path,
	}
}

// Load reads the ledger at path. A missing file yields an empty ledger.
func Load(path string) (*Ledger, error) {
	l := New(path)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}

	if err := json.Unmarshal(data, l); err != nil {
		return nil, fmt.Errorf("parsing ledger %s: %w", path, err)
	}
	if l.Versions == nil {
		l.Versions = make(manifest.Versions)
	}
	if l.Resources == nil {
		l.Resources = make(map[string]int)
	}
	l.path = path
	return l, nil
}

// Path returns the file the ledger is saved to.
func (l *Ledger) Path() string { return l.path }

// Save atomically replaces the ledger file.
func (l *Ledger) Save() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("creating ledger directory: %w", err)
	}

	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling ledger: %w", err)
	}
	if err := atomic.WriteFile(l.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing ledger: %w", err)
	}
	return nil
}

// Version returns the synced version of a required artifact, or
// manifest.Unknown.
func (l *Ledger) Version(key string) string {
	return l.Versions.Get(key)
}

// SetVersion records key at version and saves immediately.
func (l *Ledger) SetVersion(key, version string) error {
	l.Versions[key] = version
	return l.Save()
}

// ResourceVersion returns the stored version of an optional resource and
// whether one was ever recorded.
func (l *Ledger) ResourceVersion(path string) (int, bool) {
	v, ok := l.Resources[path]
	return v, ok
}

// SetResourceVersion records an optional resource's version and saves.
func (l *Ledger) SetResourceVersion(path string, version int) error {
	l.Resources[path] = version
	return l.Save()
}

// MarkUpdated sets LastUpdate and saves.
func (l *Ledger) MarkUpdated(at time.Time) error {
	l.LastUpdate = at
	return l.Save()
}

// MarkSkinsUpdated sets LastSkinUpdate and saves.
func (l *Ledger) MarkSkinsUpdated(at time.Time) error {
	l.LastSkinUpdate = at
	return l.Save()
}

// Due reports whether a refresh last done at last is due again at now.
// A zero last is always due.
func Due(last, now time.Time, interval time.Duration) bool {
	if last.IsZero() {
		return true
	}
	return now.Sub(last) > interval
}
