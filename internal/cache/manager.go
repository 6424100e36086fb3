package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Manager checks the memory level first, then the disk level, and promotes
// disk hits to memory. Disk writes happen in the background; Flush waits
// for them.
type Manager struct {
	l1 Cache
	l2 *DiskCache

	writes sync.WaitGroup

	mu    sync.Mutex
	stats ManagerStats
}

// ManagerStats aggregates hits across levels.
type ManagerStats struct {
	L1Hits     int64
	L2Hits     int64
	Misses     int64
	Promotions int64
	L1         Stats
	L2         Stats
}

// NewManager creates the levels enabled by cfg. Either level may be
// disabled; with both disabled every Get misses.
func NewManager(cfg Config) (*Manager, error) {
	m := &Manager{}
	if cfg.MemoryCapacity > 0 {
		m.l1 = NewMemoryCache(cfg.MemoryCapacity)
	}
	if cfg.DiskPath != "" {
		l2, err := NewDiskCache(cfg.DiskPath, cfg.DiskCapacity, cfg.CompressionLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to create disk cache: %w", err)
		}
		if cfg.TTL > 0 {
			if n := l2.PruneOlderThan(time.Now().Add(-cfg.TTL)); n > 0 {
				log.Debug("Pruned expired clips", "count", n, "ttl", cfg.TTL)
			}
		}
		m.l2 = l2
	}

	log.Debug("Clip cache ready",
		"memory", cfg.MemoryCapacity,
		"disk", cfg.DiskPath,
		"disk_capacity", cfg.DiskCapacity)
	return m, nil
}

// Get looks a clip up in memory, then on disk.
func (m *Manager) Get(key string) ([]byte, bool) {
	if m.l1 != nil {
		if pcm, ok := m.l1.Get(key); ok {
			m.count(func(s *ManagerStats) { s.L1Hits++ })
			return pcm, true
		}
	}
	if m.l2 != nil {
		if pcm, ok := m.l2.Get(key); ok {
			m.count(func(s *ManagerStats) { s.L2Hits++ })
			if m.l1 != nil && m.l1.Put(key, pcm) == nil {
				m.count(func(s *ManagerStats) { s.Promotions++ })
			}
			return pcm, true
		}
	}
	m.count(func(s *ManagerStats) { s.Misses++ })
	return nil, false
}

// Put stores a clip in memory and schedules the disk write. Clips too large
// for memory still go to disk.
func (m *Manager) Put(key string, pcm []byte) error {
	if m.l1 != nil {
		if err := m.l1.Put(key, pcm); err != nil && err != ErrItemTooLarge {
			return fmt.Errorf("memory cache: %w", err)
		}
	}
	if m.l2 != nil {
		m.writes.Add(1)
		go func() {
			defer m.writes.Done()
			if err := m.l2.Put(key, pcm); err != nil {
				log.Debug("Clip not written to disk cache", "key", key, "error", err)
			}
		}()
	}
	return nil
}

// Delete removes a clip from both levels.
func (m *Manager) Delete(key string) error {
	m.Flush()
	if m.l1 != nil {
		_ = m.l1.Delete(key)
	}
	if m.l2 != nil {
		return m.l2.Delete(key)
	}
	return nil
}

// Clear empties both levels.
func (m *Manager) Clear() error {
	m.Flush()
	if m.l1 != nil {
		_ = m.l1.Clear()
	}
	if m.l2 != nil {
		return m.l2.Clear()
	}
	return nil
}

// Flush waits for pending disk writes.
func (m *Manager) Flush() {
	m.writes.Wait()
}

// Close flushes pending writes and saves the disk index.
func (m *Manager) Close() error {
	m.Flush()
	if m.l2 != nil {
		return m.l2.Close()
	}
	return nil
}

func (m *Manager) Stats() ManagerStats {
	m.mu.Lock()
	s := m.stats
	m.mu.Unlock()

	if m.l1 != nil {
		s.L1 = m.l1.Stats()
	}
	if m.l2 != nil {
		s.L2 = m.l2.Stats()
	}
	return s
}

func (m *Manager) count(f func(*ManagerStats)) {
	m.mu.Lock()
	f(&m.stats)
	m.mu.Unlock()
}
