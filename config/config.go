package config

import (
	"io"
	"time"
)

// Config defines a set of methods for retrieving configuration values of
// various types. Implementations should handle missing keys and failed
// conversions by returning the type's zero value.
type Config interface {
	io.Closer

	// GetString retrieves the configuration value associated with the given
	// key as a string.
	GetString(key string) string

	// GetInt retrieves the configuration value associated with the given
	// key as an int.
	GetInt(key string) int

	// GetUint64 retrieves the configuration value associated with the given
	// key as a uint64.
	GetUint64(key string) uint64

	// GetBool retrieves the configuration value associated with the given
	// key as a bool.
	GetBool(key string) bool

	// GetSecond retrieves the configuration value associated with the given
	// key as a duration in seconds.
	GetSecond(key string) time.Duration

	// GetArray retrieves the configuration value associated with the given
	// key as a slice of strings. Configuration value is stored with format
	// <element1>,<element2>,...
	GetArray(key string) []string
}
