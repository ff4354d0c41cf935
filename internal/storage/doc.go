// Package storage persists saved media to the local filesystem.
//
// The engine hands this package (source URL, destination path) pairs; the
// DiskStore downloads each resource and writes it under the destination
// directory, creating intermediate directories on demand. File names come
// from the URL path, falling back to a content-independent hash of the
// URL when the path has none.
package storage
