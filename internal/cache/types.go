package cache

import (
	"errors"
	"time"
)

var (
	// ErrItemTooLarge is returned when a clip exceeds the capacity of a level.
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrCacheClosed is returned by Put after Close.
	ErrCacheClosed = errors.New("cache closed")
)

// Stats holds counters for one cache level.
type Stats struct {
	Capacity  int64
	Size      int64
	ItemCount int64

	Hits      int64
	Misses    int64
	Evictions int64
	HitRate   float64

	LastAccess time.Time
	LastEvict  time.Time
}

func (s *Stats) computeHitRate() {
	if s.Hits+s.Misses > 0 {
		s.HitRate = float64(s.Hits) / float64(s.Hits+s.Misses)
	}
}

// Config configures a Manager.
type Config struct {
	MemoryCapacity int64 // bytes, zero disables L1

	DiskPath         string // empty disables L2
	DiskCapacity     int64  // bytes
	CompressionLevel int    // zstd level, zero stores raw PCM

	TTL time.Duration // L2 entries older than this are pruned on open, zero keeps them
}

// DefaultConfig returns sizes suited to a few hundred short effects.
func DefaultConfig() Config {
	return Config{
		MemoryCapacity:   64 << 20,
		DiskCapacity:     512 << 20,
		CompressionLevel: 3,
		TTL:              30 * 24 * time.Hour,
	}
}

// Cache is implemented by both levels.
type Cache interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
	Delete(key string) error
	Clear() error
	Contains(key string) bool
	Size() int64
	Stats() Stats
}

var (
	_ Cache = (*MemoryCache)(nil)
	_ Cache = (*DiskCache)(nil)
)
