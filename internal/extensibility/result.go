// Package extensibility implements the text grammars of deployable framework
// files: the classification header, user extension blocks, frontmatter, and
// the comparisons built on top of them (rogue-edit detection and block
// restoration).
//
// Every function here is pure: it takes text and returns text plus warnings.
// Content-level anomalies never produce an error. They degrade to the safest
// option and are reported through Result.Warnings. Filesystem concerns live
// in the deploy and archive packages.
package extensibility

// Result carries a value together with the warnings produced while
// computing it. A Result with no warnings is the "ok" case; a Result with
// warnings is a degraded but usable value. Fatal conditions are never
// represented here; they surface as Go errors from the callers that touch
// the filesystem.
type Result[T any] struct {
	Value    T
	Warnings []string
}

// Ok wraps a value with no warnings.
func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Warn wraps a value with one or more warnings.
func Warn[T any](v T, msgs ...string) Result[T] {
	return Result[T]{Value: v, Warnings: msgs}
}

// HasWarnings reports whether the result was degraded.
func (r Result[T]) HasWarnings() bool {
	return len(r.Warnings) > 0
}
