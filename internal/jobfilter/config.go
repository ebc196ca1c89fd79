// Package jobfilter ties the query compiler, evaluator, projector and
// filter driver together and exposes the configuration knobs the rest
// of the service wires in.
package jobfilter

import (
	"os"
	"strconv"

	"github.com/bargom/jobfilter/internal/jobfilter/eval"
)

// Config tunes the job filter engine's ancillary resources.
type Config struct {
	// RegexCacheSize bounds the evaluator's compiled-$matches-pattern
	// LRU cache.
	RegexCacheSize int
	// DefaultPageSize is used when a filter request does not specify
	// how many matches to return.
	DefaultPageSize int
}

// DefaultConfig returns the engine defaults used when not overridden
// by environment variables.
func DefaultConfig() Config {
	return Config{
		RegexCacheSize:  256,
		DefaultPageSize: 25,
	}
}

// ConfigFromEnv builds a Config from JOBFILTER_REGEX_CACHE_SIZE and
// JOBFILTER_DEFAULT_PAGE_SIZE, falling back to DefaultConfig for any
// variable that is unset or fails to parse.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if s := os.Getenv("JOBFILTER_REGEX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			cfg.RegexCacheSize = n
		}
	}
	if s := os.Getenv("JOBFILTER_DEFAULT_PAGE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			cfg.DefaultPageSize = n
		}
	}

	return cfg
}

// EvalConfig adapts Config to the eval package's evaluator
// configuration.
func (c Config) EvalConfig() eval.Config {
	return eval.Config{RegexCacheSize: c.RegexCacheSize}
}
