// Package config reads settings from a YAML file overridden by WAPILOT_*
// environment variables.
package config

import (
	"io"
	"time"
)

// Config is safe for concurrent use. Missing keys read as zero values.
type Config interface {
	io.Closer

	GetString(key string) string
	GetBool(key string) bool
	GetInt(key string) int
	GetFloat64(key string) float64

	// Durations are stored as plain integers in the unit the getter names.
	GetMillisecond(key string) time.Duration
	GetSecond(key string) time.Duration
	GetMinute(key string) time.Duration
	GetHour(key string) time.Duration

	// GetArray accepts a YAML list or a "a,b,c" string. Blank items are
	// dropped.
	GetArray(key string) []string
	// GetMap accepts a YAML mapping or a "k1:v1,k2:v2" string. The result
	// is never nil.
	GetMap(key string) map[string]string

	// OnChange registers fn to run after the file was reloaded.
	OnChange(fn func())
}
