// Package manifest decodes the documents the update server publishes: the
// flat key=value version manifest and the XML skin catalog. The properties
// codec is also used for the per-project version stamp so existing project
// tooling can keep reading it.
package manifest
