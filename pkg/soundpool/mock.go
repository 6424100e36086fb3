package soundpool

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// MockPool implements Pool without an audio device. Streams advance on a
// clock so one-shots finish after the clip duration.
type MockPool struct {
	*basePool

	mu      sync.Mutex
	now     func() time.Time
	backend string

	// Test helpers
	VoicesCreated int
	VoicesStopped int
	Released      bool
	Suspended     bool
}

// NewMockPool creates a mock pool.
func NewMockPool(opts Options) (*MockPool, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	log.Debug("Creating mock sound pool", "max_streams", opts.MaxStreams)

	m := &MockPool{now: time.Now, backend: "mock"}
	m.basePool = newBasePool(opts, m.newVoice, m.release)
	return m, nil
}

// SetClock replaces the time source (for testing).
func (m *MockPool) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Backend describes the pool and, when auto mode picked it, why.
func (m *MockPool) Backend() string { return m.backend }

func (m *MockPool) clock() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now()
}

func (m *MockPool) newVoice(s *stream) (voice, error) {
	m.mu.Lock()
	m.VoicesCreated++
	m.mu.Unlock()

	// one repetition plus every extra loop, shortened by the rate
	var total time.Duration
	if s.loop >= 0 {
		total = time.Duration(float64(s.clip.Duration()*time.Duration(s.loop+1)) / s.rate)
	}
	return &mockVoice{pool: m, total: total, forever: s.loop < 0}, nil
}

func (m *MockPool) release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Released = true
	return nil
}

// Suspend marks the simulated device suspended.
func (m *MockPool) Suspend() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Suspended = true
	return nil
}

// ResumeDevice clears the suspended mark.
func (m *MockPool) ResumeDevice() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Suspended = false
	return nil
}

// IsSuspended reports whether Suspend was called last (for testing).
func (m *MockPool) IsSuspended() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Suspended
}

// Stats returns the voice counters (for testing).
func (m *MockPool) Stats() (created, stopped int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.VoicesCreated, m.VoicesStopped
}

type mockVoice struct {
	pool    *MockPool
	total   time.Duration
	forever bool

	mu      sync.Mutex
	started time.Time
	played  time.Duration
	running bool
}

func (v *mockVoice) play() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.running {
		v.started = v.pool.clock()
		v.running = true
	}
}

func (v *mockVoice) pause() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.running {
		v.played += v.pool.clock().Sub(v.started)
		v.running = false
	}
}

func (v *mockVoice) stop() {
	v.pause()
	v.pool.mu.Lock()
	v.pool.VoicesStopped++
	v.pool.mu.Unlock()
}

func (v *mockVoice) done() bool {
	if v.forever {
		return false
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	played := v.played
	if v.running {
		played += v.pool.clock().Sub(v.started)
	}
	return played >= v.total
}
