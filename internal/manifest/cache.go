package manifest

import (
	"fmt"

	"github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds CachedReader when a size of zero is given.
const DefaultCacheSize = 512

// CachedReader memoizes successful manifest reads by directory. The graph
// build and the nested expander read the same manifests, so a link run only
// parses each package.json once. Failed reads are not cached.
type CachedReader struct {
	cache *lru.Cache[string, *Package]
}

// NewCachedReader returns a CachedReader holding up to size manifests.
func NewCachedReader(size int) (*CachedReader, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, *Package](size)
	if err != nil {
		return nil, fmt.Errorf("creating manifest cache: %w", err)
	}
	return &CachedReader{cache: cache}, nil
}

// ReadDependencies returns the cached manifest for dir, reading it on a miss.
func (r *CachedReader) ReadDependencies(dir string) (*Package, error) {
	if pkg, ok := r.cache.Get(dir); ok {
		return pkg, nil
	}
	pkg, err := ReadDir(dir)
	if err != nil {
		return nil, err
	}
	r.cache.Add(dir, pkg)
	return pkg, nil
}

// Invalidate drops dir from the cache so the next read sees the file again.
func (r *CachedReader) Invalidate(dir string) {
	r.cache.Remove(dir)
}

// Len reports how many manifests are cached.
func (r *CachedReader) Len() int {
	return r.cache.Len()
}
