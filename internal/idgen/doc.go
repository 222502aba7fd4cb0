// Package idgen generates job and message identifiers.  Callers treat them
// as opaque strings.
package idgen
