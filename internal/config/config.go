package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cn1tools/cn1update/internal/branding"
	"github.com/spf13/viper"
)

const (
	fileName = "config"
	fileType = "yaml"

	ledgerFile  = "UpdateStatus.json"
	lockFile    = "UpdateStatus.lock"
	swapLogFile = "swap.log"
	logsDir     = "logs"
)

// Keys understood by the config file and CN1UPDATE_* environment variables.
const (
	KeyBaseURL             = "base_url"
	KeySkinBaseURL         = "skin_base_url"
	KeyCatalogURL          = "catalog_url"
	KeyUserAgent           = "user_agent"
	KeyRefreshInterval     = "refresh_interval"
	KeySkinRefreshInterval = "skin_refresh_interval"
	KeyLockStaleAfter      = "lock_stale_after"
	KeyRequestTimeout      = "request_timeout"
	KeyMaxArtifactBytes    = "max_artifact_bytes"
	KeyManifestRetries     = "manifest_retries"
	KeySwapAttempts        = "swap_attempts"
	KeySwapInitialDelay    = "swap_initial_delay"
	KeySwapMaxDelay        = "swap_max_delay"
	KeySwapSettleDelay     = "swap_settle_delay"
	KeyVerbose             = "verbose"
)

// Keys lists every key in the order the config command documents them.
func Keys() []string {
	return []string{
		KeyBaseURL, KeySkinBaseURL, KeyCatalogURL, KeyUserAgent,
		KeyRefreshInterval, KeySkinRefreshInterval, KeyLockStaleAfter, KeyRequestTimeout,
		KeyMaxArtifactBytes, KeyManifestRetries,
		KeySwapAttempts, KeySwapInitialDelay, KeySwapMaxDelay, KeySwapSettleDelay,
		KeyVerbose,
	}
}

// IsKnownKey reports whether key is one of Keys.
func IsKnownKey(key string) bool {
	for _, k := range Keys() {
		if k == key {
			return true
		}
	}
	return false
}

// Config is the resolved, read-only configuration of one process. It is built
// once by Load and passed explicitly to every component.
type Config struct {
	// Home is the shared cache and state directory (~/.codenameone).
	Home string

	BaseURL     string
	SkinBaseURL string
	CatalogURL  string
	UserAgent   string

	RefreshInterval     time.Duration
	SkinRefreshInterval time.Duration
	LockStaleAfter      time.Duration
	RequestTimeout      time.Duration

	MaxArtifactBytes int64
	ManifestRetries  int

	Swap SwapConfig

	// UpdaterVersion is the running build's version, compared against the
	// manifest's Updater key.
	UpdaterVersion string
	// SelfPath is the running executable. Empty disables self-update.
	SelfPath string

	Verbose bool
}

// SwapConfig bounds the deferred swap helper's retry loop.
type SwapConfig struct {
	Attempts     int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// SettleDelay is the extra wait after a rename that did not take.
	SettleDelay time.Duration
}

// LedgerPath returns the path of the persisted version ledger.
func (c *Config) LedgerPath() string { return filepath.Join(c.Home, ledgerFile) }

// LockPath returns the path of the run lock marker.
func (c *Config) LockPath() string { return filepath.Join(c.Home, lockFile) }

// SwapLogPath returns the shared log file of deferred swap helpers.
func (c *Config) SwapLogPath() string { return filepath.Join(c.Home, logsDir, swapLogFile) }

// CachePath resolves a cache-relative artifact path inside Home.
func (c *Config) CachePath(rel string) string {
	return filepath.Join(c.Home, filepath.FromSlash(rel))
}

// Dir returns the state directory. CN1UPDATE_HOME overrides ~/.codenameone.
func Dir() string {
	if v := os.Getenv(branding.EnvVar("HOME")); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.codenameone/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	skinBase := strings.TrimRight(branding.SkinBaseURL(), "/")
	v.SetDefault(KeyBaseURL, branding.UpdateBaseURL())
	v.SetDefault(KeySkinBaseURL, skinBase)
	v.SetDefault(KeyCatalogURL, skinBase+"/Skins.xml")
	v.SetDefault(KeyUserAgent, branding.CLIName()+"/1")
	v.SetDefault(KeyRefreshInterval, 24*time.Hour)
	v.SetDefault(KeySkinRefreshInterval, 24*time.Hour)
	v.SetDefault(KeyLockStaleAfter, 20*time.Minute)
	v.SetDefault(KeyRequestTimeout, 2*time.Minute)
	v.SetDefault(KeyMaxArtifactBytes, int64(512<<20))
	v.SetDefault(KeyManifestRetries, 3)
	v.SetDefault(KeySwapAttempts, 30)
	v.SetDefault(KeySwapInitialDelay, time.Second)
	v.SetDefault(KeySwapMaxDelay, time.Minute)
	v.SetDefault(KeySwapSettleDelay, 2*time.Second)
	v.SetDefault(KeyVerbose, false)
}

func initViper() {
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.AutomaticEnv()
	setDefaults(viper.GetViper())

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
}

// Load initializes Viper from the config file and environment and resolves
// the process configuration. version and selfPath describe the running build.
func Load(version, selfPath string) (*Config, error) {
	initViper()
	return FromViper(viper.GetViper(), Dir(), version, selfPath)
}

// FromViper resolves a Config from an already populated Viper instance.
func FromViper(v *viper.Viper, home, version, selfPath string) (*Config, error) {
	setDefaults(v)
	if home == "" {
		return nil, fmt.Errorf("home directory is required")
	}

	cfg := &Config{
		Home:                home,
		BaseURL:             v.GetString(KeyBaseURL),
		SkinBaseURL:         strings.TrimRight(v.GetString(KeySkinBaseURL), "/"),
		CatalogURL:          v.GetString(KeyCatalogURL),
		UserAgent:           v.GetString(KeyUserAgent),
		RefreshInterval:     v.GetDuration(KeyRefreshInterval),
		SkinRefreshInterval: v.GetDuration(KeySkinRefreshInterval),
		LockStaleAfter:      v.GetDuration(KeyLockStaleAfter),
		RequestTimeout:      v.GetDuration(KeyRequestTimeout),
		MaxArtifactBytes:    v.GetInt64(KeyMaxArtifactBytes),
		ManifestRetries:     v.GetInt(KeyManifestRetries),
		Swap: SwapConfig{
			Attempts:     v.GetInt(KeySwapAttempts),
			InitialDelay: v.GetDuration(KeySwapInitialDelay),
			MaxDelay:     v.GetDuration(KeySwapMaxDelay),
			SettleDelay:  v.GetDuration(KeySwapSettleDelay),
		},
		UpdaterVersion: version,
		SelfPath:       selfPath,
		Verbose:        v.GetBool(KeyVerbose),
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.MaxArtifactBytes <= 0 {
		return fmt.Errorf("%s must be positive, got %d", KeyMaxArtifactBytes, c.MaxArtifactBytes)
	}
	if c.LockStaleAfter <= 0 {
		return fmt.Errorf("%s must be positive, got %s", KeyLockStaleAfter, c.LockStaleAfter)
	}
	if c.Swap.Attempts < 1 {
		return fmt.Errorf("%s must be at least 1, got %d", KeySwapAttempts, c.Swap.Attempts)
	}
	if c.ManifestRetries < 0 {
		return fmt.Errorf("%s must not be negative, got %d", KeyManifestRetries, c.ManifestRetries)
	}
	return nil
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	initViper()
	return viper.GetString(key)
}

// Set writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if err := EnsureDir(); err != nil {
		return err
	}
	initViper()

	viper.Set(key, value)

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
