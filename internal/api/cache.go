package api

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"asfdemux/pkg/demux"
)

var errFileNotFound = errors.New("file not found")

// cachedExtractor 캐시에 보관된 추출기
// mu 는 한 파일에 대한 요청과 만료 시 Close 를 직렬화한다.
type cachedExtractor struct {
	mu        sync.Mutex
	name      string
	extractor *demux.Extractor
}

// extractorCache 파일 이름별로 열린 추출기를 TTL 동안 유지
type extractorCache struct {
	root  string
	opts  demux.Options
	items *cache.Cache
	open  sync.Mutex
}

func newExtractorCache(root string, ttl time.Duration, opts demux.Options) *extractorCache {
	items := cache.New(ttl, ttl)
	items.OnEvicted(func(name string, v interface{}) {
		ce, ok := v.(*cachedExtractor)
		if !ok {
			return
		}
		ce.mu.Lock()
		defer ce.mu.Unlock()
		if err := ce.extractor.Close(); err != nil {
			slog.Error("Failed to close extractor", "file", name, "err", err)
			return
		}
		slog.Debug("Extractor evicted", "file", name)
	})

	return &extractorCache{
		root:  root,
		opts:  opts,
		items: items,
	}
}

// resolve 미디어 루트 밖을 가리키지 않는 파일 경로
func (c *extractorCache) resolve(name string) (string, error) {
	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." {
		return "", fmt.Errorf("%w: %q", errFileNotFound, name)
	}
	return filepath.Join(c.root, base), nil
}

// get 캐시된 추출기를 반환하거나 새로 연다 (접근할 때마다 TTL 갱신)
func (c *extractorCache) get(name string) (*cachedExtractor, error) {
	path, err := c.resolve(name)
	if err != nil {
		return nil, err
	}
	key := filepath.Base(path)

	c.open.Lock()
	defer c.open.Unlock()

	if v, ok := c.items.Get(key); ok {
		ce := v.(*cachedExtractor)
		c.items.SetDefault(key, ce)
		return ce, nil
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", errFileNotFound, key)
		}
		return nil, fmt.Errorf("%w: %v", demux.ErrIO, err)
	}

	e, err := demux.OpenFile(path, c.opts)
	if err != nil {
		return nil, err
	}
	ce := &cachedExtractor{name: key, extractor: e}
	c.items.SetDefault(key, ce)
	slog.Info("Extractor opened", "file", key, "tracks", e.CountTracks())
	return ce, nil
}

// evict 추출기를 닫고 캐시에서 제거
func (c *extractorCache) evict(name string) bool {
	path, err := c.resolve(name)
	if err != nil {
		return false
	}
	key := filepath.Base(path)

	c.open.Lock()
	defer c.open.Unlock()

	if _, ok := c.items.Get(key); !ok {
		return false
	}
	c.items.Delete(key)
	return true
}

// flush 모든 추출기를 닫는다
func (c *extractorCache) flush() {
	c.open.Lock()
	defer c.open.Unlock()

	for key := range c.items.Items() {
		c.items.Delete(key)
	}
}

func (c *extractorCache) count() int {
	return c.items.ItemCount()
}
