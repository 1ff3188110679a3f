package updater

import (
	"log/slog"

	"github.com/cn1tools/cn1update/internal/artifact"
	"github.com/cn1tools/cn1update/internal/ledger"
	"github.com/cn1tools/cn1update/internal/logging"
	"github.com/cn1tools/cn1update/internal/manifest"
)

// DevVersion is the version of an unreleased build. Dev builds never
// update themselves.
const DevVersion = "dev"

// PendingInstall is one artifact the ledger disagrees with the remote
// manifest about.
type PendingInstall struct {
	Key         string
	Version     string
	URL         string
	Destination string
	Artifact    artifact.Artifact
	// Self marks the updater's own executable.
	Self bool
}

// Plan lists what to install, in a fixed order: the updater itself first
// (when eligible), then the table's artifacts in table order, then the
// bundle for this OS family. An artifact is pending when the ledger's
// version differs from the remote one, a missing key reading as "0" on
// either side.
func (u *Updater) Plan(l *ledger.Ledger, remote manifest.Versions) []PendingInstall {
	var pending []PendingInstall

	if p, ok := u.planSelf(remote); ok {
		pending = append(pending, p)
	}

	for _, a := range u.table.Artifacts {
		if p, ok := u.planArtifact(l, remote, a); ok {
			pending = append(pending, p)
		}
	}

	if b, ok := u.table.Bundle(u.family); ok {
		if p, ok := u.planArtifact(l, remote, b); ok {
			pending = append(pending, p)
		}
	}
	return pending
}

func (u *Updater) planArtifact(l *ledger.Ledger, remote manifest.Versions, a artifact.Artifact) (PendingInstall, bool) {
	if l.Versions.Equal(remote, a.Key) {
		return PendingInstall{}, false
	}
	return PendingInstall{
		Key:         a.Key,
		Version:     remote.Get(a.Key),
		URL:         u.FileURL(a.File),
		Destination: u.cfg.CachePath(a.Cache),
		Artifact:    a,
	}, true
}

func (u *Updater) planSelf(remote manifest.Versions) (PendingInstall, bool) {
	key := u.table.Updater.Key
	want, ok := remote[key]
	if !ok || u.cfg.SelfPath == "" {
		return PendingInstall{}, false
	}
	current := u.cfg.UpdaterVersion
	if current == "" || current == DevVersion || current == want {
		return PendingInstall{}, false
	}
	if IsDowngrade(current, want) {
		u.logger.Info("remote updater is older than this build, not downgrading",
			logging.Version(current), slog.String("remote", want))
		return PendingInstall{}, false
	}
	file, ok := u.table.UpdaterFile(u.family)
	if !ok {
		return PendingInstall{}, false
	}
	return PendingInstall{
		Key:         key,
		Version:     want,
		URL:         u.FileURL(file),
		Destination: u.cfg.SelfPath,
		Artifact:    artifact.Artifact{Key: key, File: file, Kind: artifact.KindFile},
		Self:        true,
	}, true
}
