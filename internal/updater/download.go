package updater

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/cn1tools/cn1update/internal/logging"
	"github.com/cn1tools/cn1update/internal/progress"
)

var (
	// ErrStatus is returned for any non-200 response.
	ErrStatus = errors.New("unexpected HTTP status")
	// ErrTooLarge is returned when a body exceeds the configured cap.
	ErrTooLarge = errors.New("download exceeds size limit")
	// ErrSizeMismatch is returned when the body length differs from the
	// declared Content-Length.
	ErrSizeMismatch = errors.New("download size mismatch")
)

var printer = message.NewPrinter(language.English)

// StatusError carries the status code of a failed request. It matches
// ErrStatus with errors.Is.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: %s returned %d", ErrStatus, e.URL, e.Code)
}

// Is reports whether target is ErrStatus.
func (e *StatusError) Is(target error) bool { return target == ErrStatus }

// Download fetches url into memory. The body is capped at the configured
// max_artifact_bytes; a declared Content-Length over the cap fails before
// reading, and a body shorter or longer than the declared length fails with
// ErrSizeMismatch.
func (u *Updater) Download(ctx context.Context, url string) ([]byte, error) {
	if u.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.cfg.RequestTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", u.cfg.UserAgent)

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}

	limit := u.cfg.MaxArtifactBytes
	declared := resp.ContentLength
	if declared > limit {
		return nil, fmt.Errorf("%w: %s declares %s bytes, limit %s",
			ErrTooLarge, url, printer.Sprintf("%d", declared), printer.Sprintf("%d", limit))
	}

	var buf bytes.Buffer
	if declared > 0 {
		buf.Grow(int(declared))
	}
	bar := progress.New(u.progress, declared, path.Base(req.URL.Path))
	n, err := io.Copy(io.MultiWriter(&buf, bar), io.LimitReader(resp.Body, limit+1))
	bar.Finish()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	if n > limit {
		return nil, fmt.Errorf("%w: %s is larger than %s bytes", ErrTooLarge, url, printer.Sprintf("%d", limit))
	}
	if declared >= 0 && n != declared {
		return nil, fmt.Errorf("%w: %s declared %d bytes, received %d", ErrSizeMismatch, url, declared, n)
	}

	u.logger.Debug("downloaded", logging.URL(url), slog.String(logging.KeyBytes, printer.Sprintf("%d", n)))
	return buf.Bytes(), nil
}
