package updater

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cn1tools/cn1update/internal/artifact"
	"github.com/cn1tools/cn1update/internal/config"
	"github.com/cn1tools/cn1update/internal/logging"
	"github.com/cn1tools/cn1update/internal/platform"
	"github.com/cn1tools/cn1update/internal/replace"
	"github.com/cn1tools/cn1update/internal/retry"
)

// Installer places downloaded bytes at a destination, possibly deferring
// the final swap.
type Installer interface {
	Install(data []byte, dest string) (replace.Result, error)
}

// Updater performs synchronization runs against one configuration.
type Updater struct {
	cfg        *config.Config
	table      *artifact.Table
	httpClient *http.Client
	installer  Installer
	timer      retry.Timer
	now        func() time.Time
	progress   io.Writer
	family     string
	logger     *slog.Logger
}

// Option configures an Updater.
type Option func(*Updater)

// WithHTTPClient sets a custom HTTP client (useful for testing).
func WithHTTPClient(c *http.Client) Option {
	return func(u *Updater) {
		u.httpClient = c
	}
}

// WithTable replaces the embedded artifact table.
func WithTable(t *artifact.Table) Option {
	return func(u *Updater) {
		u.table = t
	}
}

// WithInstaller replaces the atomic replacer used for every install.
func WithInstaller(i Installer) Option {
	return func(u *Updater) {
		u.installer = i
	}
}

// WithTimer sets how manifest retry delays are waited out.
func WithTimer(t retry.Timer) Option {
	return func(u *Updater) {
		u.timer = t
	}
}

// WithClock sets the time source for throttling and ledger timestamps.
func WithClock(now func() time.Time) Option {
	return func(u *Updater) {
		u.now = now
	}
}

// WithProgress renders download progress to w when it is a terminal.
func WithProgress(w io.Writer) Option {
	return func(u *Updater) {
		u.progress = w
	}
}

// WithFamily overrides the OS family used to pick bundles and the updater
// binary.
func WithFamily(family string) Option {
	return func(u *Updater) {
		u.family = family
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(u *Updater) {
		u.logger = l
	}
}

// New creates an Updater for cfg. Without WithTable the embedded artifact
// table is used; without WithInstaller a replace.Replacer is built whose
// deferred swaps run as "<self> swap" helpers that write their own log to cfg.SwapLogPath().
func New(cfg *config.Config, opts ...Option) (*Updater, error) {
	u := &Updater{
		cfg:        cfg,
		httpClient: http.DefaultClient,
		now:        time.Now,
		family:     platform.Family(),
		logger:     logging.Default(),
	}
	for _, opt := range opts {
		opt(u)
	}

	if u.table == nil {
		t, err := artifact.Default()
		if err != nil {
			return nil, err
		}
		u.table = t
	}
	if u.installer == nil {
		u.installer = newReplacer(cfg, u.logger)
	}
	return u, nil
}

func newReplacer(cfg *config.Config, logger *slog.Logger) *replace.Replacer {
	opts := []replace.Option{replace.WithLogger(logger)}
	if cfg.SelfPath != "" {
		opts = append(opts,
			replace.WithSelfPath(cfg.SelfPath),
			replace.WithScheduler(&replace.ProcessScheduler{
				Executable: cfg.SelfPath,
				Logger:     logger,
			}),
		)
	}
	return replace.New(opts...)
}
