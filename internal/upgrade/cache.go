package upgrade

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"

	"github.com/hpungsan/rnupgrade/internal/llm"
	"github.com/hpungsan/rnupgrade/internal/session"
)

// Cache stores model responses keyed by file path in a single JSON file
// shaped {"request": {path: response}}. A nil *Cache is a disabled cache.
type Cache struct {
	path    string
	Request map[string]*llm.ChatResponse `json:"request"`
}

// LoadCache reads the cache file at path. A missing or empty file yields an
// empty cache that is created on first write.
func LoadCache(path string) (*Cache, error) {
	c := &Cache{path: path, Request: make(map[string]*llm.ChatResponse)}

	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return nil, fmt.Errorf("read cache: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse cache %s: %w", path, err)
	}
	if c.Request == nil {
		c.Request = make(map[string]*llm.ChatResponse)
	}
	return c, nil
}

// Get returns the cached response for file.
func (c *Cache) Get(file string) (*llm.ChatResponse, bool) {
	if c == nil {
		return nil, false
	}
	resp, ok := c.Request[file]
	return resp, ok && resp != nil
}

// Put stores resp for file and writes the cache.
func (c *Cache) Put(file string, resp *llm.ChatResponse) error {
	if c == nil {
		return nil
	}
	c.Request[file] = resp
	return c.save()
}

// Evict drops the entry for file and writes the cache. It reports whether
// an entry existed.
func (c *Cache) Evict(file string) (bool, error) {
	if c == nil {
		return false, nil
	}
	if _, ok := c.Request[file]; !ok {
		return false, nil
	}
	delete(c.Request, file)
	return true, c.save()
}

// Len returns the number of cached responses.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Request)
}

func (c *Cache) save() error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	return session.WriteFileAtomic(c.path, data)
}
