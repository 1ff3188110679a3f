// Package branding provides compile-time identity values for the updater.
//
// Values live in branding.yaml next to this file and are baked into the
// binary with //go:embed. Hard defaults cover a missing or partial file.
package branding

import (
	_ "embed"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed branding.yaml
var rawBranding []byte

var (
	once     sync.Once
	defaults brand
)

type brand struct {
	CLIName       string `yaml:"cli_name"`
	DisplayName   string `yaml:"display_name"`
	Description   string `yaml:"description"`
	HomeDir       string `yaml:"home_dir"`
	EnvPrefix     string `yaml:"env_prefix"`
	GoModule      string `yaml:"go_module"`
	UpdateBaseURL string `yaml:"update_base_url"`
	SkinBaseURL   string `yaml:"skin_base_url"`
}

func load() {
	once.Do(func() {
		defaults = brand{
			CLIName:       "cn1update",
			DisplayName:   "Codename One Updater",
			Description:   "Keeps Codename One libraries, tools and skins in sync with the update server",
			HomeDir:       ".codenameone",
			EnvPrefix:     "CN1UPDATE",
			GoModule:      "github.com/cn1tools/cn1update",
			UpdateBaseURL: "https://www.codenameone.com/files/updates/",
			SkinBaseURL:   "https://www.codenameone.com/OTA",
		}
		_ = yaml.Unmarshal(rawBranding, &defaults)
	})
}

// CLIName returns the root command name (e.g., "cn1update").
func CLIName() string { load(); return defaults.CLIName }

// DisplayName returns the human-readable product name.
func DisplayName() string { load(); return defaults.DisplayName }

// Description returns the short product description.
func Description() string { load(); return defaults.Description }

// HomeDir returns the dot-directory name under $HOME (e.g., ".codenameone").
func HomeDir() string { load(); return defaults.HomeDir }

// EnvPrefix returns the environment variable prefix (e.g., "CN1UPDATE").
func EnvPrefix() string { load(); return defaults.EnvPrefix }

// GoModule returns the Go module path. Not consumed at runtime.
func GoModule() string { load(); return defaults.GoModule }

// UpdateBaseURL returns the default base URL for the version manifest and artifacts.
func UpdateBaseURL() string { load(); return defaults.UpdateBaseURL }

// SkinBaseURL returns the default base URL for the skin catalog and skin files.
func SkinBaseURL() string { load(); return defaults.SkinBaseURL }

// EnvVar returns a fully qualified env var name, e.g., EnvVar("HOME") → "CN1UPDATE_HOME".
func EnvVar(suffix string) string {
	load()
	return defaults.EnvPrefix + "_" + strings.ToUpper(suffix)
}
