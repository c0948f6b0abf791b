package search

import (
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/twiced-technology-gmbh/equilibrium/internal/log"
)

const (
	// DefaultCacheExpiration is how long an unused compiled matcher stays cached.
	DefaultCacheExpiration = 10 * time.Minute
	// DefaultCleanupInterval is how often expired matchers are purged.
	DefaultCleanupInterval = 30 * time.Minute
)

// Compiler compiles patterns and caches the resulting matchers, so interactive
// callers that re-filter on every keystroke reuse earlier compilations.
type Compiler struct {
	cache   *gocache.Cache
	timeout time.Duration
}

// NewCompiler creates a Compiler. timeout is the per-match timeout handed to each
// matcher; zero means DefaultMatchTimeout.
func NewCompiler(timeout, expiration time.Duration) *Compiler {
	return &Compiler{
		cache:   gocache.New(expiration, DefaultCleanupInterval),
		timeout: timeout,
	}
}

// Compile returns a cached matcher for pattern, compiling it on a miss.
// Invalid patterns are not cached.
func (c *Compiler) Compile(pattern string, opts Options) (*Matcher, error) {
	if opts.Timeout == 0 {
		opts.Timeout = c.timeout
	}
	key := cacheKey(pattern, opts)

	if v, found := c.cache.Get(key); found {
		if m, ok := v.(*Matcher); ok {
			log.Debug(log.CatSearch, "matcher cache hit", "pattern", pattern)
			return m, nil
		}
		log.Error(log.CatSearch, "wrong type in matcher cache", "key", key)
		c.cache.Delete(key)
	}

	m, err := Compile(pattern, opts)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, m)
	return m, nil
}

// Len returns the number of cached matchers, including expired ones not yet purged.
func (c *Compiler) Len() int {
	return c.cache.ItemCount()
}

// Flush drops every cached matcher.
func (c *Compiler) Flush() {
	c.cache.Flush()
}

func cacheKey(pattern string, opts Options) string {
	return strconv.FormatBool(opts.CaseSensitive) + ":" + opts.Timeout.String() + ":" + pattern
}
