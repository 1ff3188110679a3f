package updater

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cn1tools/cn1update/internal/logging"
	"github.com/cn1tools/cn1update/internal/manifest"
	"github.com/cn1tools/cn1update/internal/retry"
)

// ManifestFile is the remote version manifest under the base URL.
const ManifestFile = "UpdateStatus.properties"

const (
	manifestRetryInitial = 2 * time.Second
	manifestRetryMax     = 30 * time.Second
)

// FileURL joins a file name onto the update base URL.
func (u *Updater) FileURL(name string) string {
	return strings.TrimRight(u.cfg.BaseURL, "/") + "/" + strings.TrimLeft(name, "/")
}

// SkinURL joins a catalog path onto the skin base URL.
func (u *Updater) SkinURL(path string) string {
	return strings.TrimRight(u.cfg.SkinBaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// FetchManifest downloads and parses the remote version manifest, retrying
// transient failures with exponential backoff. A 4xx response other than
// 408 or 429 is not retried.
func (u *Updater) FetchManifest(ctx context.Context) (manifest.Versions, error) {
	url := u.FileURL(ManifestFile)
	policy := retry.Policy{
		Attempts: u.cfg.ManifestRetries,
		Initial:  manifestRetryInitial,
		Max:      manifestRetryMax,
		Timer:    u.timer,
	}

	var remote manifest.Versions
	err := policy.Do(ctx, func(attempt int) error {
		data, err := u.Download(ctx, url)
		if err != nil {
			u.logger.Warn("fetching manifest failed",
				logging.URL(url), slog.Int(logging.KeyAttempt, attempt), logging.Err(err))
			if ctx.Err() != nil || permanentStatus(err) {
				return retry.Permanent(err)
			}
			return err
		}
		v, err := manifest.ParseProperties(bytes.NewReader(data))
		if err != nil {
			return retry.Permanent(err)
		}
		remote = v
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetching manifest: %w", err)
	}
	return remote, nil
}

// FetchCatalog downloads and parses the optional skin catalog.
func (u *Updater) FetchCatalog(ctx context.Context) ([]manifest.CatalogEntry, error) {
	data, err := u.Download(ctx, u.cfg.CatalogURL)
	if err != nil {
		return nil, fmt.Errorf("fetching skin catalog: %w", err)
	}
	entries, err := manifest.ParseCatalog(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func permanentStatus(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.Code >= 400 && se.Code < 500 &&
		se.Code != http.StatusRequestTimeout && se.Code != http.StatusTooManyRequests
}
