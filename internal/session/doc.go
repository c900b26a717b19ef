// Package session composes the configuration, the last language pair, the
// text being translated, the request mutator and the history into one
// immutable snapshot, and records every successful translation in the
// history.
package session
