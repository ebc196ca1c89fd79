package eval

import (
	"container/list"
	"sync"

	"github.com/dlclark/regexp2"

	"github.com/bargom/jobfilter/internal/jobfilter/compiler"
)

// defaultRegexCacheSize bounds how many compiled patterns the evaluator
// keeps around, the same way the service's in-memory cache bounds item
// count rather than growing unbounded.
const defaultRegexCacheSize = 256

type regexEntry struct {
	key string
	re  *regexp2.Regexp
}

// regexCache is a small LRU over compiled ECMAScript-flavor regular
// expressions, keyed by pattern+flags. $matches compiles the same
// pattern on every document a query is run against, so caching pays
// for itself after the first few evaluations.
type regexCache struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	lru      *list.List
}

func newRegexCache(capacity int) *regexCache {
	if capacity <= 0 {
		capacity = defaultRegexCacheSize
	}
	return &regexCache{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// compile returns a compiled regexp for pattern+flags, reusing a cached
// instance when available.
func (c *regexCache) compile(pattern, flags string) (*regexp2.Regexp, error) {
	key := flags + "\x00" + pattern

	c.mu.Lock()
	if elem, ok := c.items[key]; ok {
		c.lru.MoveToFront(elem)
		entry := elem.Value.(*regexEntry)
		c.mu.Unlock()
		return entry.re, nil
	}
	c.mu.Unlock()

	opts, err := parseRegexFlags(flags)
	if err != nil {
		return nil, err
	}
	re, err := regexp2.Compile(pattern, opts)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*regexEntry).re, nil
	}
	elem := c.lru.PushFront(&regexEntry{key: key, re: re})
	c.items[key] = elem
	for c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		if oldest == nil {
			break
		}
		c.lru.Remove(oldest)
		delete(c.items, oldest.Value.(*regexEntry).key)
	}
	return re, nil
}

// parseRegexFlags maps the query language's flag letters onto regexp2
// options. "i" case-insensitive, "m" multiline, "s" dot-matches-newline,
// "x" free-spacing. ECMAScript mode is always on, matching the engine's
// documented regex flavor.
func parseRegexFlags(flags string) (regexp2.RegexOptions, error) {
	opts := regexp2.ECMAScript
	for _, f := range flags {
		switch f {
		case 'i':
			opts |= regexp2.IgnoreCase
		case 'm':
			opts |= regexp2.Multiline
		case 's':
			opts |= regexp2.Singleline
		case 'x':
			opts |= regexp2.IgnorePatternWhitespace
		default:
			return 0, compiler.NewEvalError("$matches", "unsupported regex flag: "+string(f))
		}
	}
	return opts, nil
}
