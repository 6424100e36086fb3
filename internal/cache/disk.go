package cache

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zstd"
)

const (
	indexFile    = "clips.index"
	clipExt      = ".pcm"
	minCompress  = 1024 // bytes; smaller clips are stored raw
	evictPercent = 90   // EvictTo target
)

// DiskCache persists decoded clips across runs. Clips larger than 1KB are
// zstd compressed when that makes them smaller.
type DiskCache struct {
	mu       sync.Mutex
	dir      string
	capacity int64
	size     int64 // bytes on disk

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	index  map[string]*diskEntry
	closed bool
	stats  Stats
}

type diskEntry struct {
	Key        string
	File       string
	DiskSize   int64
	PCMSize    int64
	Stored     time.Time
	LastAccess time.Time
	Compressed bool
}

// NewDiskCache opens (or creates) a disk cache in dir. A compression level
// of zero disables zstd.
func NewDiskCache(dir string, capacity int64, compressionLevel int) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dc := &DiskCache{
		dir:      dir,
		capacity: capacity,
		index:    make(map[string]*diskEntry),
		stats:    Stats{Capacity: capacity},
	}

	if compressionLevel > 0 {
		var err error
		dc.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
	}
	// The decoder is always available so clips written with compression
	// can still be read after the level is set to zero.
	var err error
	dc.decoder, err = zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	if err := dc.loadIndex(); err != nil {
		log.Warn("Discarding unreadable clip cache index", "dir", dir, "error", err)
		dc.index = make(map[string]*diskEntry)
	}
	for _, e := range dc.index {
		dc.size += e.DiskSize
	}
	// the capacity may have been lowered since the index was written
	if dc.size > capacity {
		n := dc.EvictTo()
		log.Debug("Trimmed clip cache to new capacity", "evicted", n, "capacity", capacity)
	}

	return dc, nil
}

// Get reads a clip from disk. Entries whose file is missing or corrupt are
// dropped and reported as a miss.
func (dc *DiskCache) Get(key string) ([]byte, bool) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	entry, ok := dc.index[key]
	if !ok {
		dc.stats.Misses++
		return nil, false
	}

	data, err := os.ReadFile(entry.File)
	if err == nil && entry.Compressed {
		data, err = dc.decoder.DecodeAll(data, nil)
	}
	if err == nil && int64(len(data)) != entry.PCMSize {
		err = errors.New("size mismatch")
	}
	if err != nil {
		log.Debug("Dropping bad clip cache entry", "key", key, "error", err)
		dc.drop(key, entry)
		dc.stats.Misses++
		return nil, false
	}

	entry.LastAccess = time.Now()
	dc.stats.Hits++
	dc.stats.LastAccess = entry.LastAccess
	return data, true
}

// Put writes a clip to disk, evicting least recently used clips when the
// capacity would be exceeded.
func (dc *DiskCache) Put(key string, pcm []byte) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if dc.closed {
		return ErrCacheClosed
	}

	data, compressed := pcm, false
	if dc.encoder != nil && len(pcm) > minCompress {
		if z := dc.encoder.EncodeAll(pcm, nil); len(z) < len(pcm) {
			data, compressed = z, true
		}
	}

	n := int64(len(data))
	if n > dc.capacity {
		return ErrItemTooLarge
	}
	if old, ok := dc.index[key]; ok {
		dc.drop(key, old)
	}
	for dc.size+n > dc.capacity && len(dc.index) > 0 {
		dc.evictOldest()
	}

	file := dc.fileFor(key)
	if err := writeAtomic(file, data); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	now := time.Now()
	dc.index[key] = &diskEntry{
		Key:        key,
		File:       file,
		DiskSize:   n,
		PCMSize:    int64(len(pcm)),
		Stored:     now,
		LastAccess: now,
		Compressed: compressed,
	}
	dc.size += n
	return nil
}

// Delete removes a clip. Missing keys are ignored.
func (dc *DiskCache) Delete(key string) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if entry, ok := dc.index[key]; ok {
		dc.drop(key, entry)
	}
	return nil
}

// Clear removes every clip and writes an empty index.
func (dc *DiskCache) Clear() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	for key, entry := range dc.index {
		dc.drop(key, entry)
	}
	dc.size = 0
	return dc.saveIndex()
}

func (dc *DiskCache) Contains(key string) bool {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	_, ok := dc.index[key]
	return ok
}

// Size returns the bytes used on disk.
func (dc *DiskCache) Size() int64 {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc.size
}

func (dc *DiskCache) Stats() Stats {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	s := dc.stats
	s.Size = dc.size
	s.ItemCount = int64(len(dc.index))
	s.computeHitRate()
	return s
}

// PruneOlderThan removes clips stored before cutoff and returns how many
// were removed.
func (dc *DiskCache) PruneOlderThan(cutoff time.Time) int {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	removed := 0
	for key, entry := range dc.index {
		if entry.Stored.Before(cutoff) {
			dc.drop(key, entry)
			removed++
		}
	}
	return removed
}

// EvictTo frees space until the cache is at 90% of its capacity.
func (dc *DiskCache) EvictTo() int {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	target := dc.capacity * evictPercent / 100
	evicted := 0
	for dc.size > target && len(dc.index) > 0 {
		dc.evictOldest()
		evicted++
	}
	return evicted
}

// Close saves the index. Put fails afterwards.
func (dc *DiskCache) Close() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if dc.closed {
		return nil
	}
	dc.closed = true
	if dc.encoder != nil {
		dc.encoder.Close()
	}
	return dc.saveIndex()
}

func (dc *DiskCache) fileFor(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(dc.dir, hex.EncodeToString(sum[:16])+clipExt)
}

// must be called with dc.mu held
func (dc *DiskCache) drop(key string, entry *diskEntry) {
	_ = os.Remove(entry.File)
	dc.size -= entry.DiskSize
	delete(dc.index, key)
}

// must be called with dc.mu held
func (dc *DiskCache) evictOldest() {
	var oldest *diskEntry
	for _, e := range dc.index {
		if oldest == nil || e.LastAccess.Before(oldest.LastAccess) {
			oldest = e
		}
	}
	if oldest != nil {
		dc.drop(oldest.Key, oldest)
		dc.stats.Evictions++
		dc.stats.LastEvict = time.Now()
	}
}

func (dc *DiskCache) loadIndex() error {
	f, err := os.Open(filepath.Join(dc.dir, indexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	return gob.NewDecoder(f).Decode(&dc.index)
}

func (dc *DiskCache) saveIndex() error {
	path := filepath.Join(dc.dir, indexFile)
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	err = gob.NewEncoder(f).Encode(dc.index)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
