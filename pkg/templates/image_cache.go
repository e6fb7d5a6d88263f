package templates

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"

	"jordanella.com/desktop-uitest/internal/cv"
	"jordanella.com/desktop-uitest/internal/uierr"
)

// cachedImage holds one decoded reference image
type cachedImage struct {
	image    *image.RGBA
	mu       sync.Mutex // serialises the first load of this path
	useCount int
}

// ImageCache decodes reference images once per path. Repeated loads of the
// same path return the same *image.RGBA until Clear is called.
type ImageCache struct {
	images map[string]*cachedImage
	mu     sync.RWMutex
	stats  CacheStats
}

// CacheStats tracks cache performance
type CacheStats struct {
	Hits     int64 // Loads served from memory
	Misses   int64 // Loads that had to decode the file
	Loads    int64 // Successful decodes
	Failures int64 // Missing or undecodable files
	Clears   int64
}

// NewImageCache creates a new image cache
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]*cachedImage),
	}
}

// Load returns the decoded image at path, decoding it on first use.
// A missing or undecodable file yields *uierr.ImageLoadError and is not cached.
func (ic *ImageCache) Load(path string) (*image.RGBA, error) {
	ic.mu.RLock()
	cached, ok := ic.images[path]
	ic.mu.RUnlock()

	if !ok {
		ic.mu.Lock()
		if cached, ok = ic.images[path]; !ok {
			cached = &cachedImage{}
			ic.images[path] = cached
		}
		ic.mu.Unlock()
	}

	cached.mu.Lock()
	defer cached.mu.Unlock()

	if cached.image != nil {
		cached.useCount++
		ic.mu.Lock()
		ic.stats.Hits++
		ic.mu.Unlock()
		return cached.image, nil
	}

	img, err := decodeFile(path)

	ic.mu.Lock()
	defer ic.mu.Unlock()
	ic.stats.Misses++
	if err != nil {
		ic.stats.Failures++
		// Drop the placeholder so a later load retries the file
		if ic.images[path] == cached {
			delete(ic.images, path)
		}
		return nil, err
	}
	ic.stats.Loads++
	cached.image = img
	cached.useCount++
	return img, nil
}

// Preload decodes every path up front, returning the first failure
func (ic *ImageCache) Preload(paths ...string) error {
	var failed []error
	for _, p := range paths {
		if _, err := ic.Load(p); err != nil {
			failed = append(failed, err)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("failed to preload %d images: %w", len(failed), failed[0])
	}
	return nil
}

// Evict drops a single path from the cache
func (ic *ImageCache) Evict(path string) bool {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	if _, ok := ic.images[path]; !ok {
		return false
	}
	delete(ic.images, path)
	return true
}

// Clear empties the cache. Images already handed out stay valid.
func (ic *ImageCache) Clear() {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	ic.images = make(map[string]*cachedImage)
	ic.stats.Clears++
}

// Len returns the number of cached paths
func (ic *ImageCache) Len() int {
	ic.mu.RLock()
	defer ic.mu.RUnlock()
	return len(ic.images)
}

// IsLoaded returns true if path is currently in memory
func (ic *ImageCache) IsLoaded(path string) bool {
	ic.mu.RLock()
	cached, ok := ic.images[path]
	ic.mu.RUnlock()
	if !ok {
		return false
	}
	cached.mu.Lock()
	defer cached.mu.Unlock()
	return cached.image != nil
}

// Stats returns cache statistics
func (ic *ImageCache) Stats() CacheStats {
	ic.mu.RLock()
	defer ic.mu.RUnlock()
	return ic.stats
}

func decodeFile(path string) (*image.RGBA, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &uierr.ImageLoadError{Path: path, Err: err}
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, &uierr.ImageLoadError{Path: path, Err: fmt.Errorf("failed to decode: %w", err)}
	}
	return cv.ToRGBA(img), nil
}
