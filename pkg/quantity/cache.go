package quantity

import (
	"regexp"
	"sync"
)

// PatternCache provides thread-safe caching of compiled rule patterns
type PatternCache struct {
	cache map[string]*regexp.Regexp
	mutex sync.RWMutex
}

// NewPatternCache creates an empty cache
func NewPatternCache() *PatternCache {
	return &PatternCache{cache: make(map[string]*regexp.Regexp)}
}

var defaultCache = NewPatternCache()

// Compile returns the cached compiled pattern or compiles and caches it
func (pc *PatternCache) Compile(pattern string) (*regexp.Regexp, error) {
	pc.mutex.RLock()
	if compiled, exists := pc.cache[pattern]; exists {
		pc.mutex.RUnlock()
		return compiled, nil
	}
	pc.mutex.RUnlock()

	pc.mutex.Lock()
	defer pc.mutex.Unlock()

	// Check again after acquiring write lock
	if compiled, exists := pc.cache[pattern]; exists {
		return compiled, nil
	}

	compiled, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	pc.cache[pattern] = compiled
	return compiled, nil
}

// Len returns the number of cached patterns
func (pc *PatternCache) Len() int {
	pc.mutex.RLock()
	defer pc.mutex.RUnlock()
	return len(pc.cache)
}

// Compile compiles pattern through the process-wide cache
func Compile(pattern string) (*regexp.Regexp, error) {
	return defaultCache.Compile(pattern)
}
