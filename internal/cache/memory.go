package cache

import (
	"container/list"
	"sync"
	"time"
)

// MemoryCache is an LRU of decoded clips bounded by total PCM bytes.
type MemoryCache struct {
	mu       sync.Mutex
	capacity int64
	size     int64

	items map[string]*list.Element
	order *list.List // front is most recently used

	stats Stats
}

type memoryEntry struct {
	key    string
	pcm    []byte
	stored time.Time
}

// NewMemoryCache creates an LRU holding at most capacity bytes.
func NewMemoryCache(capacity int64) *MemoryCache {
	return &MemoryCache{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
		stats:    Stats{Capacity: capacity},
	}
}

// Get returns the clip and marks it most recently used.
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	c.order.MoveToFront(elem)
	c.stats.Hits++
	c.stats.LastAccess = time.Now()
	return elem.Value.(*memoryEntry).pcm, true
}

// Put stores a clip, evicting the least recently used ones to make room.
func (c *MemoryCache) Put(key string, pcm []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := int64(len(pcm))
	if n > c.capacity {
		return ErrItemTooLarge
	}

	if elem, ok := c.items[key]; ok {
		c.remove(elem)
	}
	for c.size+n > c.capacity && c.order.Len() > 0 {
		c.remove(c.order.Back())
		c.stats.Evictions++
		c.stats.LastEvict = time.Now()
	}

	c.items[key] = c.order.PushFront(&memoryEntry{key: key, pcm: pcm, stored: time.Now()})
	c.size += n
	return nil
}

// Delete drops a clip. Missing keys are ignored.
func (c *MemoryCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.remove(elem)
	}
	return nil
}

// Clear drops every clip.
func (c *MemoryCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.order.Init()
	c.size = 0
	return nil
}

// Contains reports whether key is cached without touching the LRU order.
func (c *MemoryCache) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}

// Size returns the number of cached PCM bytes.
func (c *MemoryCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Size = c.size
	s.ItemCount = int64(len(c.items))
	s.computeHitRate()
	return s
}

// Resize changes the capacity, evicting as needed.
func (c *MemoryCache) Resize(capacity int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.capacity = capacity
	c.stats.Capacity = capacity
	for c.size > c.capacity && c.order.Len() > 0 {
		c.remove(c.order.Back())
		c.stats.Evictions++
	}
}

// must be called with c.mu held
func (c *MemoryCache) remove(elem *list.Element) {
	entry := c.order.Remove(elem).(*memoryEntry)
	delete(c.items, entry.key)
	c.size -= int64(len(entry.pcm))
}
