package config

import (
	"sync"

	"github.com/spf13/pflag"
)

// FlagTracker records which command line flags the user set explicitly, so
// that only those override values from configuration files
type FlagTracker struct {
	mu    sync.RWMutex
	flags map[string]bool
}

// NewFlagTracker creates an empty flag tracker
func NewFlagTracker() *FlagTracker {
	return &FlagTracker{
		flags: make(map[string]bool),
	}
}

// NewFlagTrackerWithFlags creates a flag tracker from a set of flag names.
// The map is copied.
func NewFlagTrackerWithFlags(flags map[string]bool) *FlagTracker {
	copied := make(map[string]bool, len(flags))
	for k, v := range flags {
		if v {
			copied[k] = true
		}
	}
	return &FlagTracker{flags: copied}
}

// NewFlagTrackerFromFlagSet records the flags of fs that were changed from
// their defaults
func NewFlagTrackerFromFlagSet(fs *pflag.FlagSet) *FlagTracker {
	ft := NewFlagTracker()
	if fs == nil {
		return ft
	}
	fs.Visit(func(f *pflag.Flag) {
		ft.flags[f.Name] = true
	})
	return ft
}

// Set marks a flag as explicitly set
func (ft *FlagTracker) Set(flagName string) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	ft.flags[flagName] = true
}

// WasSet reports whether a flag was explicitly set
func (ft *FlagTracker) WasSet(flagName string) bool {
	ft.mu.RLock()
	defer ft.mu.RUnlock()
	return ft.flags[flagName]
}

// AnySet reports whether any of the flags was explicitly set
func (ft *FlagTracker) AnySet(flagNames ...string) bool {
	ft.mu.RLock()
	defer ft.mu.RUnlock()
	for _, name := range flagNames {
		if ft.flags[name] {
			return true
		}
	}
	return false
}

// GetAll returns a copy of the explicitly set flags
func (ft *FlagTracker) GetAll() map[string]bool {
	ft.mu.RLock()
	defer ft.mu.RUnlock()

	result := make(map[string]bool, len(ft.flags))
	for k, v := range ft.flags {
		result[k] = v
	}
	return result
}

// Count returns the number of explicitly set flags
func (ft *FlagTracker) Count() int {
	ft.mu.RLock()
	defer ft.mu.RUnlock()
	return len(ft.flags)
}

// MergeString returns override if the flag was set, base otherwise
func (ft *FlagTracker) MergeString(base, override, flagName string) string {
	if ft.WasSet(flagName) {
		return override
	}
	return base
}

// MergeInt returns override if the flag was set, base otherwise
func (ft *FlagTracker) MergeInt(base, override int, flagName string) int {
	if ft.WasSet(flagName) {
		return override
	}
	return base
}

// MergeBool returns override if the flag was set, base otherwise
func (ft *FlagTracker) MergeBool(base, override bool, flagName string) bool {
	if ft.WasSet(flagName) {
		return override
	}
	return base
}

// MergeStringSlice returns override if the flag was set to a non-empty
// list, base otherwise
func (ft *FlagTracker) MergeStringSlice(base, override []string, flagName string) []string {
	if ft.WasSet(flagName) && len(override) > 0 {
		return override
	}
	return base
}
