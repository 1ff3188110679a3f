package project

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cn1tools/cn1update/internal/artifact"
	"github.com/cn1tools/cn1update/internal/ledger"
	"github.com/cn1tools/cn1update/internal/logging"
	"github.com/cn1tools/cn1update/internal/replace"
)

// Installer places bytes at a destination that may be locked.
type Installer interface {
	Install(data []byte, dest string) (replace.Result, error)
}

// Syncer applies cached artifacts to projects.
type Syncer struct {
	// Home is the shared cache directory.
	Home      string
	Table     *artifact.Table
	Installer Installer
	Logger    *slog.Logger
	Now       func() time.Time
}

// Change is one artifact copied into a project.
type Change struct {
	Key         string
	Version     string
	Destination string
	Result      replace.Result
}

// Failure is an artifact that could not be copied.
type Failure struct {
	Key         string
	Destination string
	Err         error
}

// Result summarizes one project sync.
type Result struct {
	Project string
	Changed []Change
	// Missing lists keys whose cache file does not exist.
	Missing []string
	Failed  []Failure
}

// Sync copies every project artifact whose ledger version differs from the
// project's stamp. A cache file that does not exist is logged and skipped.
// The stamp is written once, at the end, if anything was copied.
func (s *Syncer) Sync(projectDir string, l *ledger.Ledger) (*Result, error) {
	info, err := os.Stat(projectDir)
	if err != nil {
		return nil, fmt.Errorf("project directory %s: %w", projectDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project directory %s is not a directory", projectDir)
	}

	logger := s.Logger
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.With(slog.String(logging.KeyProject, projectDir))

	stamp, err := LoadStamp(projectDir)
	if err != nil {
		return nil, err
	}

	res := &Result{Project: projectDir}
	for _, a := range s.Table.ForProject() {
		if stamp.Equal(l.Versions, a.Key) {
			continue
		}
		want := l.Version(a.Key)

		src := filepath.Join(s.Home, filepath.FromSlash(a.Cache))
		dest := filepath.Join(projectDir, filepath.FromSlash(a.Project))

		data, err := os.ReadFile(src)
		if os.IsNotExist(err) {
			logger.Warn("cached artifact missing, skipping", logging.Artifact(a.Key), logging.Path(src))
			res.Missing = append(res.Missing, a.Key)
			continue
		}
		if err != nil {
			logger.Error("reading cached artifact", logging.Artifact(a.Key), logging.Err(err))
			res.Failed = append(res.Failed, Failure{Key: a.Key, Destination: dest, Err: err})
			continue
		}

		result, err := s.Installer.Install(data, dest)
		if err != nil {
			logger.Error("copying artifact into project", logging.Artifact(a.Key), logging.Path(dest), logging.Err(err))
			res.Failed = append(res.Failed, Failure{Key: a.Key, Destination: dest, Err: err})
			continue
		}
		stamp[a.Key] = want
		res.Changed = append(res.Changed, Change{Key: a.Key, Version: want, Destination: dest, Result: result})
		logger.Info("project artifact updated",
			logging.Artifact(a.Key), logging.Version(want), slog.String("result", result.String()))
	}

	if len(res.Changed) > 0 {
		now := time.Now
		if s.Now != nil {
			now = s.Now
		}
		if err := SaveStamp(projectDir, stamp, now()); err != nil {
			return res, err
		}
	}
	return res, nil
}
