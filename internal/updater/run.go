package updater

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cn1tools/cn1update/internal/archive"
	"github.com/cn1tools/cn1update/internal/ledger"
	"github.com/cn1tools/cn1update/internal/logging"
	"github.com/cn1tools/cn1update/internal/project"
	"github.com/cn1tools/cn1update/internal/replace"
	"github.com/cn1tools/cn1update/internal/runlock"
)

// archiveExpansion bounds how much larger than max_artifact_bytes an
// extracted bundle may be.
const archiveExpansion = 8

// Outcome is the result of installing one artifact or resource.
type Outcome struct {
	Key         string
	Version     string
	Destination string
	Result      replace.Result
	Err         error
}

// Report summarizes a Run.
type Report struct {
	RunID string
	// Checked is set when the remote manifest was consulted.
	Checked   bool
	Installed []Outcome
	Failed    []Outcome
	// SkinsChecked is set when the skin catalog was consulted.
	SkinsChecked bool
	Skins        []Outcome
	SkinErr      error
	Projects     []*project.Result
	ProjectErrs  map[string]error
}

// Deferred counts installs left to a swap helper.
func (r *Report) Deferred() int {
	n := 0
	for _, o := range r.Installed {
		if o.Result == replace.Deferred {
			n++
		}
	}
	for _, o := range r.Skins {
		if o.Result == replace.Deferred {
			n++
		}
	}
	return n
}

// OK reports whether nothing failed.
func (r *Report) OK() bool {
	if len(r.Failed) > 0 || r.SkinErr != nil || len(r.ProjectErrs) > 0 {
		return false
	}
	for _, o := range r.Skins {
		if o.Err != nil {
			return false
		}
	}
	for _, p := range r.Projects {
		if len(p.Failed) > 0 {
			return false
		}
	}
	return true
}

// Run performs one synchronization pass under the run lock. The artifact
// pass runs when force is set or the refresh interval elapsed; the skin pass
// has its own interval. Projects are synced every time. A busy lock returns
// an error wrapping runlock.ErrBusy before the ledger is touched. The lock is
// refreshed after every install; if another run has taken it over, Run stops
// with an error wrapping runlock.ErrLost.
func (u *Updater) Run(ctx context.Context, projects []string, force bool) (*Report, error) {
	lock, err := runlock.Acquire(u.cfg.LockPath(), u.cfg.LockStaleAfter, runlock.WithClock(u.now))
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			u.logger.Warn("releasing run lock", logging.Err(err))
		}
	}()

	report := &Report{RunID: lock.Holder().ID}
	log := u.logger.With(slog.String("run", report.RunID))

	l, err := ledger.Load(u.cfg.LedgerPath())
	if err != nil {
		return report, err
	}

	if u.cfg.SelfPath != "" {
		if found, err := replace.PromotePending(u.cfg.SelfPath); err != nil {
			log.Warn("promoting staged self update", logging.Err(err))
		} else if found {
			log.Info("promoted staged self update", logging.Path(u.cfg.SelfPath))
		}
	}

	if force || ledger.Due(l.LastUpdate, u.now(), u.cfg.RefreshInterval) {
		if err := u.syncArtifacts(ctx, log, lock, l, report); err != nil {
			return report, err
		}
	} else {
		log.Debug("artifact refresh not due", slog.Time("last_update", l.LastUpdate))
	}

	if force || ledger.Due(l.LastSkinUpdate, u.now(), u.cfg.SkinRefreshInterval) {
		if err := u.syncSkins(ctx, log, lock, l, report); err != nil {
			return report, err
		}
	}

	syncer := &project.Syncer{
		Home:      u.cfg.Home,
		Table:     u.table,
		Installer: u.installer,
		Logger:    log,
		Now:       u.now,
	}
	for _, dir := range projects {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res, err := syncer.Sync(dir, l)
		if err != nil {
			log.Error("syncing project", slog.String(logging.KeyProject, dir), logging.Err(err))
			if report.ProjectErrs == nil {
				report.ProjectErrs = make(map[string]error)
			}
			report.ProjectErrs[dir] = err
		}
		if res != nil {
			report.Projects = append(report.Projects, res)
		}
	}
	return report, nil
}

func (u *Updater) syncArtifacts(ctx context.Context, log *slog.Logger, lock *runlock.Lock, l *ledger.Ledger, report *Report) error {
	remote, err := u.FetchManifest(ctx)
	if err != nil {
		return err
	}
	report.Checked = true

	pending := u.Plan(l, remote)
	log.Info("manifest checked", slog.Int("pending", len(pending)))

	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		o := u.install(ctx, l, p)
		if o.Err != nil {
			log.Error("installing artifact failed",
				logging.Artifact(p.Key), logging.Path(p.Destination), logging.Err(o.Err))
			report.Failed = append(report.Failed, o)
		} else {
			log.Info("artifact installed",
				logging.Artifact(p.Key), logging.Version(p.Version), slog.String("result", o.Result.String()))
			report.Installed = append(report.Installed, o)
		}
		if err := lock.Touch(); err != nil {
			return err
		}
	}

	if len(report.Failed) > 0 {
		return nil
	}
	return l.MarkUpdated(u.now())
}

func (u *Updater) install(ctx context.Context, l *ledger.Ledger, p PendingInstall) Outcome {
	o := Outcome{Key: p.Key, Version: p.Version, Destination: p.Destination}

	data, err := u.Download(ctx, p.URL)
	if err != nil {
		o.Err = err
		return o
	}

	o.Result, err = u.installer.Install(data, p.Destination)
	if err != nil {
		o.Err = err
		return o
	}

	if p.Artifact.IsArchive() {
		target := u.cfg.CachePath(p.Artifact.ExtractTo)
		limit := archive.WithMaxBytes(u.cfg.MaxArtifactBytes * archiveExpansion)
		if _, err := archive.Install(data, target, limit); err != nil {
			o.Err = fmt.Errorf("extracting %s: %w", p.Key, err)
			return o
		}
	}

	if err := l.SetVersion(p.Key, p.Version); err != nil {
		o.Err = err
	}
	return o
}

func (u *Updater) syncSkins(ctx context.Context, log *slog.Logger, lock *runlock.Lock, l *ledger.Ledger, report *Report) error {
	entries, err := u.FetchCatalog(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("skin catalog unavailable", logging.Err(err))
		report.SkinErr = err
		return nil
	}
	report.SkinsChecked = true

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := archive.SafeName(strings.TrimLeft(e.Path, "/"))
		if err != nil || rel == "" {
			log.Warn("ignoring skin with unsafe path", logging.Path(e.Path))
			continue
		}
		dest := u.cfg.CachePath(rel)
		if _, err := os.Stat(dest); err != nil {
			continue
		}
		stored, _ := l.ResourceVersion(e.Path)
		if stored == e.Version {
			continue
		}

		o := Outcome{Key: e.Path, Version: fmt.Sprint(e.Version), Destination: dest}
		data, err := u.Download(ctx, u.SkinURL(e.Path))
		if err == nil {
			o.Result, err = u.installer.Install(data, dest)
		}
		if err == nil {
			err = l.SetResourceVersion(e.Path, e.Version)
		}
		if err != nil {
			o.Err = err
			log.Error("updating skin failed", logging.Path(filepath.ToSlash(rel)), logging.Err(err))
		} else {
			log.Info("skin updated", logging.Path(filepath.ToSlash(rel)), slog.Int(logging.KeyVersion, e.Version))
		}
		report.Skins = append(report.Skins, o)
		if err := lock.Touch(); err != nil {
			return err
		}
	}
	return l.MarkSkinsUpdated(u.now())
}
