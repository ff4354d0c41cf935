// Package media implements media discovery rules and filtering.
//
// A media statement in a script declares one or more kind blocks (image,
// video, audio), each with optional "where src" and "extensions" filters.
// This package holds those rule types plus the pure matching functions the
// engine applies to a page's discovered media references. Nothing here
// touches the network or the filesystem, which keeps the filter semantics
// fully unit-testable.
package media
