// Package clock provides a tiny time abstraction.
//
// Code that stamps outgoing messages depends on the Clocker interface
// instead of calling time.Now() directly, so tests can swap in a fake clock
// that returns a deterministic time.
package clock
