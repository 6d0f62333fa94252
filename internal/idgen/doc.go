// Package idgen issues identifiers for pending entries.  Callers must treat
// them as opaque strings.
package idgen
