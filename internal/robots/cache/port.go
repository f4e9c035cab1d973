package cache

// Cache is the port for robots.txt result caching.
// Values are opaque strings; callers own serialization.
type Cache interface {
	// Get returns the cached value and true if found.
	Get(key string) (string, bool)

	// Put stores a value, overwriting any previous entry for key.
	Put(key string, value string)
}
