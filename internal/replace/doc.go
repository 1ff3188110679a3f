// Package replace writes downloaded artifacts over files that may be in use.
//
// A direct write is tried first. When the operating system reports that the
// destination is held by another process, such as a running JVM keeping a
// jar open, the bytes are written to a staged sibling and a detached helper
// process is started to swap the staged file into place once the holder
// exits. The helper's loop is bounded; a swap that never succeeds leaves the
// staged file behind for the next run.
//
// The updater's own executable is never written in place. It is staged and
// promoted by rename with a backup to roll back to.
package replace
