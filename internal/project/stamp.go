package project

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"

	"github.com/cn1tools/cn1update/internal/manifest"
)

const stampFile = "Versions.properties"

// StampPath returns the full path to the version stamp of a project.
func StampPath(projectDir string) string {
	return filepath.Join(projectDir, stampFile)
}

// LoadStamp reads the project's version stamp. A project that was never
// synced has an empty stamp.
func LoadStamp(projectDir string) (manifest.Versions, error) {
	f, err := os.Open(StampPath(projectDir))
	if os.IsNotExist(err) {
		return make(manifest.Versions), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading project stamp: %w", err)
	}
	defer f.Close()

	v, err := manifest.ParseProperties(f)
	if err != nil {
		return nil, fmt.Errorf("parsing project stamp: %w", err)
	}
	return v, nil
}

// SaveStamp replaces the project's version stamp atomically.
func SaveStamp(projectDir string, v manifest.Versions, now time.Time) error {
	var buf bytes.Buffer
	if err := manifest.EncodeProperties(&buf, v, now); err != nil {
		return fmt.Errorf("encoding project stamp: %w", err)
	}
	if err := atomic.WriteFile(StampPath(projectDir), &buf); err != nil {
		return fmt.Errorf("writing project stamp: %w", err)
	}
	return nil
}
