// Package platform isolates the few OS-specific decisions the updater makes:
// which platform bundle to fetch, whether a write error means another
// process holds the file, how to detach a helper process, and permission
// handling that is a no-op on Windows.
package platform
