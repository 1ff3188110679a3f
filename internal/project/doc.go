// Package project copies artifacts from the shared cache into consuming
// project trees. Each project keeps its own Versions.properties stamp, since
// a project may lag behind the cache.
package project
