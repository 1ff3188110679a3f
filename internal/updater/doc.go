// Package updater runs one synchronization pass: it fetches the remote
// version manifest, plans which artifacts are stale against the local
// ledger, downloads and installs them into the shared cache, refreshes
// optional skins that are already present, and finally brings consuming
// projects up to date. A self-update of the updater binary itself is planned
// alongside the artifacts and guarded against downgrades.
package updater
