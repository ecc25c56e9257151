package logo

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/UnendingLoop/ExifFrame/internal/model"
	"github.com/disintegration/imaging"
)

var ErrAssetNotFound = errors.New("logo asset not found")

// AssetStore returns the encoded logo image for a key.
type AssetStore interface {
	Logo(ctx context.Context, key Key) (io.ReadCloser, error)
}

// ObjectGetter is the part of the object storage a logo store needs.
type ObjectGetter interface {
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
}

// ObjectStore reads logos from object storage under <prefix><key>.png.
type ObjectStore struct {
	objects ObjectGetter
	prefix  string
}

func NewObjectStore(objects ObjectGetter, prefix string) *ObjectStore {
	return &ObjectStore{objects: objects, prefix: prefix}
}

func (s *ObjectStore) Logo(ctx context.Context, key Key) (io.ReadCloser, error) {
	r, _, err := s.objects.Get(ctx, s.prefix+string(key)+".png")
	if err != nil {
		return nil, fmt.Errorf("fetch logo %q from storage: %w", key, err)
	}
	return r, nil
}

// DirStore reads logos from <dir>/<key>.png on the local filesystem.
type DirStore struct {
	dir string
}

func NewDirStore(dir string) *DirStore {
	return &DirStore{dir: dir}
}

func (s *DirStore) Logo(_ context.Context, key Key) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.dir, string(key)+".png"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, key)
		}
		return nil, err
	}
	return f, nil
}

// Cache keeps decoded logos in memory. Entries are never evicted or
// mutated, so concurrent renders share them without copying.
type Cache struct {
	store AssetStore

	mu    sync.RWMutex
	items map[Key]image.Image
}

func NewCache(store AssetStore) *Cache {
	return &Cache{store: store, items: make(map[Key]image.Image)}
}

// Image returns the decoded logo for key, loading it on first use.
func (c *Cache) Image(ctx context.Context, key Key) (image.Image, error) {
	c.mu.RLock()
	img, ok := c.items[key]
	c.mu.RUnlock()
	if ok {
		return img, nil
	}

	r, err := c.store.Logo(ctx, key)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	img, err = imaging.Decode(r)
	if err != nil {
		return nil, &model.ImageLoadError{Source: "logo/" + string(key), Err: err}
	}

	c.mu.Lock()
	if prev, ok := c.items[key]; ok {
		img = prev
	} else {
		c.items[key] = img
	}
	c.mu.Unlock()

	return img, nil
}
