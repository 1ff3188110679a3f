// Package config manages user-level settings stored at ~/.codenameone/config.yaml
// and CN1UPDATE_* environment variables. Load resolves them once into an
// immutable Config that the rest of the updater receives explicitly.
package config
