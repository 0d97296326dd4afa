package volume

import (
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"
)

// Cache keeps recently loaded volumes so several primitives that reference the
// same dataset share one copy of the samples. Safe for concurrent use.
type Cache struct {
	lru    *lru.Cache // datPath+rawPath -> *Data
	group  singleflight.Group
	loader func(datPath, rawPath string) (*Data, error)
}

// NewCache returns a cache holding at most size volumes.
func NewCache(size int) (*Cache, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c, loader: Load}, nil
}

// Load returns the cached volume for the pair of files, loading it once if needed.
func (c *Cache) Load(datPath, rawPath string) (*Data, error) {
	key := datPath + "\x00" + rawPath
	if v, ok := c.lru.Get(key); ok {
		return v.(*Data), nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		d, err := c.loader(datPath, rawPath)
		if err != nil {
			return nil, err
		}
		c.lru.Add(key, d)
		return d, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Data), nil
}

func (c *Cache) Len() int {
	return c.lru.Len()
}
