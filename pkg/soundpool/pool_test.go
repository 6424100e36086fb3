package soundpool

import (
	"encoding/binary"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/sfxpool/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestPool(t *testing.T, maxStreams int) (*MockPool, *fakeClock) {
	t.Helper()
	opts := DefaultOptions()
	opts.MaxStreams = maxStreams
	pool, err := NewMockPool(opts)
	require.NoError(t, err)
	clock := &fakeClock{t: time.Unix(0, 0)}
	pool.SetClock(clock.Now)
	t.Cleanup(func() { _ = pool.Release() })
	return pool, clock
}

// 4410 frames at 44.1 kHz is 100ms of audio.
func loadTone(t *testing.T, p Pool, name string) SoundID {
	t.Helper()
	id, err := p.Load(name, testutil.WAV(44100, 4410))
	require.NoError(t, err)
	return id
}

func TestMockPool_LoadAssignsIncreasingIDs(t *testing.T) {
	pool, _ := newTestPool(t, 5)

	first := loadTone(t, pool, "a.wav")
	second := loadTone(t, pool, "b.wav")

	assert.Equal(t, SoundID(1), first)
	assert.Equal(t, SoundID(2), second)
	assert.Equal(t, 2, pool.Loaded())
}

func TestMockPool_LoadRejectsUnknownExtension(t *testing.T) {
	pool, _ := newTestPool(t, 5)

	_, err := pool.Load("a.txt", []byte("hello"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestMockPool_LoadRejectsCorruptData(t *testing.T) {
	pool, _ := newTestPool(t, 5)

	_, err := pool.Load("a.wav", []byte("definitely not riff"))
	assert.Error(t, err)
	assert.Equal(t, 0, pool.Loaded())
}

func TestMockPool_OneShotFinishes(t *testing.T) {
	pool, clock := newTestPool(t, 5)
	id := loadTone(t, pool, "a.wav")

	stream, err := pool.Play(id, 0.5, 0.5, 1, 0, 1.0)
	require.NoError(t, err)
	assert.Equal(t, StreamID(1), stream)
	assert.Equal(t, StreamPlaying, pool.State(stream))

	clock.Advance(50 * time.Millisecond)
	assert.Equal(t, StreamPlaying, pool.State(stream))

	clock.Advance(60 * time.Millisecond)
	assert.Equal(t, StreamFinished, pool.State(stream))
	assert.Equal(t, 0, pool.Active())
}

func TestMockPool_LoopingNeverFinishes(t *testing.T) {
	pool, clock := newTestPool(t, 5)
	id := loadTone(t, pool, "loop.wav")

	stream, err := pool.Play(id, 1, 1, 1, LoopForever, 1.0)
	require.NoError(t, err)

	clock.Advance(time.Hour)
	assert.Equal(t, StreamPlaying, pool.State(stream))
}

func TestMockPool_PauseResume(t *testing.T) {
	pool, clock := newTestPool(t, 5)
	id := loadTone(t, pool, "a.wav")

	stream, err := pool.Play(id, 1, 1, 1, 0, 1.0)
	require.NoError(t, err)

	clock.Advance(50 * time.Millisecond)
	pool.Pause(stream)
	assert.Equal(t, StreamPaused, pool.State(stream))

	// time spent paused does not count
	clock.Advance(time.Second)
	assert.Equal(t, StreamPaused, pool.State(stream))

	pool.Resume(stream)
	assert.Equal(t, StreamPlaying, pool.State(stream))

	clock.Advance(60 * time.Millisecond)
	assert.Equal(t, StreamFinished, pool.State(stream))
}

func TestMockPool_StopForgetsStream(t *testing.T) {
	pool, _ := newTestPool(t, 5)
	id := loadTone(t, pool, "a.wav")

	stream, err := pool.Play(id, 1, 1, 1, LoopForever, 1.0)
	require.NoError(t, err)

	pool.Stop(stream)
	assert.Equal(t, StreamUnknown, pool.State(stream))

	// unknown ids are ignored
	pool.Stop(stream)
	pool.Pause(999)
	pool.Resume(999)
	_, stopped := pool.Stats()
	assert.Equal(t, 1, stopped)
}

func TestMockPool_PlayUnknownSound(t *testing.T) {
	pool, _ := newTestPool(t, 5)

	_, err := pool.Play(42, 1, 1, 1, 0, 1.0)
	assert.ErrorIs(t, err, ErrUnknownSound)
}

func TestMockPool_StealsOldestLowestPriority(t *testing.T) {
	pool, _ := newTestPool(t, 2)
	id := loadTone(t, pool, "a.wav")

	low, err := pool.Play(id, 1, 1, 0, LoopForever, 1.0)
	require.NoError(t, err)
	high, err := pool.Play(id, 1, 1, 5, LoopForever, 1.0)
	require.NoError(t, err)

	third, err := pool.Play(id, 1, 1, 1, LoopForever, 1.0)
	require.NoError(t, err)

	assert.Equal(t, StreamUnknown, pool.State(low), "lowest priority stream is stolen")
	assert.Equal(t, StreamPlaying, pool.State(high))
	assert.Equal(t, StreamPlaying, pool.State(third))
}

func TestMockPool_RefusesWhenAllBusyWithHigherPriority(t *testing.T) {
	pool, _ := newTestPool(t, 1)
	id := loadTone(t, pool, "a.wav")

	_, err := pool.Play(id, 1, 1, 5, LoopForever, 1.0)
	require.NoError(t, err)

	_, err = pool.Play(id, 1, 1, 1, 0, 1.0)
	assert.ErrorIs(t, err, ErrNoFreeStream)
}

func TestMockPool_UnloadStopsStreams(t *testing.T) {
	pool, _ := newTestPool(t, 5)
	id := loadTone(t, pool, "a.wav")

	stream, err := pool.Play(id, 1, 1, 1, LoopForever, 1.0)
	require.NoError(t, err)

	assert.True(t, pool.Unload(id))
	assert.False(t, pool.Unload(id))
	assert.Equal(t, StreamUnknown, pool.State(stream))

	_, err = pool.Play(id, 1, 1, 1, 0, 1.0)
	assert.ErrorIs(t, err, ErrUnknownSound)
}

func TestMockPool_Release(t *testing.T) {
	pool, _ := newTestPool(t, 5)
	id := loadTone(t, pool, "a.wav")
	_, err := pool.Play(id, 1, 1, 1, LoopForever, 1.0)
	require.NoError(t, err)

	require.NoError(t, pool.Release())
	assert.True(t, pool.Released)
	assert.Equal(t, 0, pool.Active())

	_, err = pool.Load("b.wav", testutil.WAV(44100, 10))
	assert.ErrorIs(t, err, ErrPoolReleased)
	_, err = pool.Play(id, 1, 1, 1, 0, 1.0)
	assert.ErrorIs(t, err, ErrPoolReleased)

	// releasing twice is harmless
	assert.NoError(t, pool.Release())
}

func TestOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"defaults", DefaultOptions(), false},
		{"48k", Options{SampleRate: 48000, MaxStreams: 1}, false},
		{"odd rate", Options{SampleRate: 22050, MaxStreams: 1}, true},
		{"no streams", Options{SampleRate: 44100, MaxStreams: -1}, true},
		{"negative buffer", Options{SampleRate: 44100, MaxStreams: 1, BufferSize: -time.Second}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	tests := map[string]Kind{
		"":       KindAuto,
		"auto":   KindAuto,
		"OTO":    KindOto,
		"device": KindOto,
		"mock":   KindMock,
		"silent": KindMock,
	}
	for in, want := range tests {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseKind("alsa")
	assert.Error(t, err)
}

func TestNew_MockKind(t *testing.T) {
	pool, err := New(KindMock, DefaultOptions())
	require.NoError(t, err)
	defer pool.Release() //nolint:errcheck

	_, ok := pool.(*MockPool)
	assert.True(t, ok)
	assert.Equal(t, Format{SampleRate: 44100, Channels: 2}, pool.Format())
	assert.Equal(t, "mock", pool.Backend())
}

func TestNew_AutoInCI(t *testing.T) {
	t.Setenv("SFX_MOCK_AUDIO", "true")

	pool, err := New(KindAuto, DefaultOptions())
	require.NoError(t, err)
	defer pool.Release() //nolint:errcheck

	_, ok := pool.(*MockPool)
	assert.True(t, ok)
	assert.Equal(t, "mock (CI environment)", pool.Backend())
}

func TestMockPool_SuspendDevice(t *testing.T) {
	pool, _ := newTestPool(t, 1)

	var s Suspender = pool
	require.NoError(t, s.Suspend())
	assert.True(t, pool.IsSuspended())
	require.NoError(t, s.ResumeDevice())
	assert.False(t, pool.IsSuspended())
}

func pcmOf(samples ...float32) []byte {
	out := make([]byte, 0, len(samples)*BytesPerSample)
	for _, s := range samples {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(s))
	}
	return out
}

func samplesOf(b []byte) []float32 {
	out := make([]float32, 0, len(b)/BytesPerSample)
	for i := 0; i+BytesPerSample <= len(b); i += BytesPerSample {
		out = append(out, math.Float32frombits(binary.LittleEndian.Uint32(b[i:])))
	}
	return out
}

func TestStreamRead_AppliesChannelGain(t *testing.T) {
	s := &stream{
		clip:  &Clip{PCM: pcmOf(1, 1, 0.5, 0.5), rate: 44100},
		left:  0.5,
		right: 1,
	}

	buf := make([]byte, 64)
	n, err := s.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 1, 0.25, 0.5}, samplesOf(buf[:n]))

	_, err = s.Read(buf)
	assert.Equal(t, io.EOF, err)
}

func TestStreamRead_LoopsRequestedTimes(t *testing.T) {
	s := &stream{
		clip:  &Clip{PCM: pcmOf(1, 1), rate: 44100},
		left:  1,
		right: 1,
		loop:  2,
	}

	all, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Len(t, samplesOf(all), 6, "one play plus two loops")
}

func TestStreamRead_LoopForeverNeverEnds(t *testing.T) {
	s := &stream{
		clip:  &Clip{PCM: pcmOf(1, 1), rate: 44100},
		left:  1,
		right: 1,
		loop:  LoopForever,
	}

	buf := make([]byte, 1024)
	for i := 0; i < 10; i++ {
		n, err := s.Read(buf)
		require.NoError(t, err)
		assert.Equal(t, len(buf), n)
	}
}

func TestStreamRead_DoubleRateSkipsFrames(t *testing.T) {
	s := &stream{
		clip:  &Clip{PCM: pcmOf(0, 0, 1, 1, 2, 2, 3, 3), rate: 44100},
		left:  1,
		right: 1,
		rate:  2,
	}

	all, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 2, 2}, samplesOf(all))
}

func TestStreamRead_HalfRateInterpolates(t *testing.T) {
	s := &stream{
		clip:  &Clip{PCM: pcmOf(0, 0, 1, 1), rate: 44100},
		left:  1,
		right: 1,
		rate:  0.5,
	}

	all, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0.5, 0.5, 1, 1, 1, 1}, samplesOf(all))
}

func TestStreamRead_ShortBufferIsNotEOF(t *testing.T) {
	s := &stream{clip: &Clip{PCM: pcmOf(1, 1), rate: 44100}, left: 1, right: 1}

	n, err := s.Read(make([]byte, BytesPerSample))
	assert.NoError(t, err)
	assert.Zero(t, n)

	n, err = s.Read(make([]byte, 64))
	require.NoError(t, err)
	assert.Equal(t, BytesPerFrame, n)
}

func TestMockPool_NaNGainIsSilent(t *testing.T) {
	pool, _ := newTestPool(t, 1)
	id := loadTone(t, pool, "a.wav")

	stream, err := pool.Play(id, math.NaN(), math.NaN(), 1, 0, 1)
	require.NoError(t, err)

	s := pool.streams[stream]
	require.NotNil(t, s)
	assert.Zero(t, s.left)
	assert.Zero(t, s.right)

	buf := make([]byte, 256)
	n, err := s.Read(buf)
	require.NoError(t, err)
	for _, v := range samplesOf(buf[:n]) {
		assert.False(t, math.IsNaN(float64(v)))
		assert.Zero(t, v)
	}
}

func TestMockPool_RateShortensOneShot(t *testing.T) {
	pool, clock := newTestPool(t, 2)
	id := loadTone(t, pool, "a.wav")

	fast, err := pool.Play(id, 1, 1, 1, 0, 2)
	require.NoError(t, err)
	normal, err := pool.Play(id, 1, 1, 1, 0, 1)
	require.NoError(t, err)

	clock.Advance(60 * time.Millisecond)
	assert.Equal(t, StreamFinished, pool.State(fast))
	assert.Equal(t, StreamPlaying, pool.State(normal))
}

func TestClampRate(t *testing.T) {
	assert.Equal(t, 1.0, clampRate(0))
	assert.Equal(t, 1.0, clampRate(-3))
	assert.Equal(t, 1.0, clampRate(math.NaN()))
	assert.Equal(t, MinRate, clampRate(0.1))
	assert.Equal(t, MaxRate, clampRate(8))
	assert.Equal(t, 1.5, clampRate(1.5))
}

type mapCache struct {
	data map[string][]byte
	puts int
}

func (c *mapCache) Get(key string) ([]byte, bool) {
	v, ok := c.data[key]
	return v, ok
}

func (c *mapCache) Put(key string, value []byte) error {
	c.puts++
	c.data[key] = value
	return nil
}

func TestLoadClip_UsesCache(t *testing.T) {
	cache := &mapCache{data: map[string][]byte{}}
	data := testutil.WAV(44100, 441)

	first, err := loadClip("a.wav", data, 44100, cache)
	require.NoError(t, err)
	assert.Equal(t, 441, first.Frames())
	assert.Equal(t, 10*time.Millisecond, first.Duration())
	assert.Equal(t, 1, cache.puts)

	second, err := loadClip("renamed.wav", data, 44100, cache)
	require.NoError(t, err)
	assert.Equal(t, first.PCM, second.PCM)
	assert.Equal(t, 1, cache.puts, "second load is served from cache")
}

func TestDecodeClip_Resamples(t *testing.T) {
	clip, err := decodeClip("a.wav", testutil.WAV(22050, 2205), 44100)
	require.NoError(t, err)
	assert.InDelta(t, 4410, clip.Frames(), 16)

	samples := samplesOf(clip.PCM[:BytesPerFrame*10])
	for i := 0; i < len(samples); i += 2 {
		assert.Equal(t, samples[i], samples[i+1], "mono is duplicated to both channels")
	}
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("sfx/boom.WAV"))
	assert.True(t, IsSupported("music.ogg"))
	assert.False(t, IsSupported("readme.md"))
}
