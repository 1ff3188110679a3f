// Package cli defines the Cobra command tree for cn1update. The root command
// runs a synchronization pass; the remaining commands inspect state, manage
// settings and host the hidden swap helper. Commands delegate to internal
// packages for business logic and only handle argument parsing and output.
package cli
