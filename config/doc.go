// Package config loads delivery settings from configuration sources.
//
// The courier core never reads configuration itself; this package is the
// collaborator that does. Code should depend on the Config interface so the
// backing source (a watched file, in-memory bytes) can be swapped in tests.
package config
