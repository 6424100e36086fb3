// Package sfx plays short sound effects through a sound pool.
//
// An Engine maps asset paths to loaded sounds and sounds to their most
// recent stream. Effects are loaded on first use and stay resident until
// unloaded. Looping streams are tracked separately so they can be paused
// and resumed as a group while one-shots run to completion.
//
// Engine methods never return playback errors. Failures are logged and
// reported through the InvalidSoundID sentinel, so a missing or broken
// asset never interrupts the caller.
package sfx

import (
	"math"
	"sort"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/sfxpool/pkg/soundpool"
)

// Sentinels returned when there is no sound or stream.
const (
	InvalidSoundID  soundpool.SoundID  = -1
	InvalidStreamID soundpool.StreamID = -1
)

// Playback parameters handed to the pool for every effect.
const (
	DefaultVolume = 0.5
	Priority      = 1
	Rate          = 1.0

	loopForever = soundpool.LoopForever
	loopOnce    = 0
)

// Source reads encoded effect files.
type Source interface {
	Open(path string) ([]byte, error)
}

// PoolFactory creates the pool an engine plays through. End calls it again
// after releasing the old pool.
type PoolFactory func() (soundpool.Pool, error)

// Engine is safe for concurrent use.
type Engine struct {
	mu      sync.Mutex
	src     Source
	newPool PoolFactory
	pool    soundpool.Pool
	obs     Observer

	pathSounds    map[string]soundpool.SoundID
	soundStreams  map[soundpool.SoundID]soundpool.StreamID
	repeatStreams map[soundpool.SoundID]soundpool.StreamID

	left, right float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver reports engine activity to o.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.obs = o
		}
	}
}

// WithVolume sets the initial effects volume.
func WithVolume(v float64) Option {
	return func(e *Engine) {
		e.left, e.right = clamp(v), clamp(v)
	}
}

// New creates an engine reading effects from src.
func New(src Source, newPool PoolFactory, opts ...Option) (*Engine, error) {
	pool, err := newPool()
	if err != nil {
		return nil, err
	}
	e := &Engine{
		src:     src,
		newPool: newPool,
		pool:    pool,
		obs:     nopObserver{},
	}
	e.reset()
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) reset() {
	e.pathSounds = make(map[string]soundpool.SoundID)
	e.soundStreams = make(map[soundpool.SoundID]soundpool.StreamID)
	e.repeatStreams = make(map[soundpool.SoundID]soundpool.StreamID)
	e.left, e.right = DefaultVolume, DefaultVolume
}

// PreloadEffect loads the effect at path if needed and returns its sound
// id, or InvalidSoundID when it cannot be read or decoded.
func (e *Engine) PreloadEffect(path string) soundpool.SoundID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.preload(path)
}

func (e *Engine) preload(path string) soundpool.SoundID {
	if id, ok := e.pathSounds[path]; ok {
		return id
	}
	if e.pool == nil {
		log.Error("Sound pool unavailable", "path", path)
		return InvalidSoundID
	}

	data, err := e.src.Open(path)
	if err != nil {
		log.Error("Error reading effect", "path", path, "error", err)
		e.obs.EffectLoadFailed(path, err)
		return InvalidSoundID
	}
	id, err := e.pool.Load(path, data)
	if err != nil {
		log.Error("Error loading effect", "path", path, "error", err)
		e.obs.EffectLoadFailed(path, err)
		return InvalidSoundID
	}

	e.pathSounds[path] = id
	e.soundStreams[id] = InvalidStreamID
	e.obs.EffectLoaded(path)
	log.Debug("Effect loaded", "path", path, "sound", id)
	return id
}

// PlayEffect starts the effect at path, loading it first when necessary.
// Any stream still playing for the same sound is stopped. It returns the
// sound id, or InvalidSoundID when the effect could not be loaded.
func (e *Engine) PlayEffect(path string, loop bool) soundpool.SoundID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.play(path, loop, true)
}

func (e *Engine) play(path string, loop, mayLoad bool) soundpool.SoundID {
	id, ok := e.pathSounds[path]
	if !ok {
		if !mayLoad {
			return InvalidSoundID
		}
		if e.preload(path) == InvalidSoundID {
			return InvalidSoundID
		}
		return e.play(path, loop, false)
	}

	if old := e.soundStreams[id]; old != InvalidStreamID {
		e.pool.Stop(old)
	}

	loops := loopOnce
	if loop {
		loops = loopForever
	}
	stream, err := e.pool.Play(id, e.left, e.right, Priority, loops, Rate)
	if err != nil {
		log.Error("Error playing effect", "path", path, "sound", id, "error", err)
		stream = InvalidStreamID
	}

	e.soundStreams[id] = stream
	if loop && stream != InvalidStreamID {
		e.repeatStreams[id] = stream
	} else {
		delete(e.repeatStreams, id)
	}

	if stream != InvalidStreamID {
		e.obs.EffectPlayed(path, loop)
	}
	e.obs.LoopingStreams(len(e.repeatStreams))
	log.Debug("Effect playing", "path", path, "sound", id, "stream", stream, "loop", loop)
	return id
}

// StopEffect stops the current stream of a sound. The sound stays loaded.
func (e *Engine) StopEffect(id soundpool.SoundID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	stream, ok := e.soundStreams[id]
	if !ok || stream == InvalidStreamID {
		return
	}
	e.pool.Stop(stream)
	e.soundStreams[id] = InvalidStreamID
	delete(e.repeatStreams, id)

	e.obs.EffectStopped(id)
	e.obs.LoopingStreams(len(e.repeatStreams))
}

// UnloadEffect stops and frees the effect at path.
func (e *Engine) UnloadEffect(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.unload(path)
	e.obs.LoopingStreams(len(e.repeatStreams))
}

func (e *Engine) unload(path string) {
	id, ok := e.pathSounds[path]
	if !ok {
		return
	}
	delete(e.pathSounds, path)
	delete(e.soundStreams, id)
	delete(e.repeatStreams, id)
	if e.pool != nil {
		e.pool.Unload(id)
	}
	e.obs.EffectUnloaded(path)
	log.Debug("Effect unloaded", "path", path, "sound", id)
}

// UnloadAllEffects frees every loaded effect.
func (e *Engine) UnloadAllEffects() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for path := range e.pathSounds {
		e.unload(path)
	}
	e.obs.LoopingStreams(len(e.repeatStreams))
}

// PauseAllEffects pauses looping effects. One-shots keep playing.
func (e *Engine) PauseAllEffects() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, stream := range e.repeatStreams {
		e.pool.Pause(stream)
	}
}

// ResumeAllEffects resumes looping effects paused by PauseAllEffects.
func (e *Engine) ResumeAllEffects() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, stream := range e.repeatStreams {
		e.pool.Resume(stream)
	}
}

// EffectsVolume returns the average of the left and right gain.
func (e *Engine) EffectsVolume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return (e.left + e.right) / 2
}

// SetEffectsVolume sets both channel gains, clamped to [0,1]. Streams
// already playing keep their volume.
func (e *Engine) SetEffectsVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.left, e.right = clamp(v), clamp(v)
}

// End releases the pool and resets the engine to its initial state with a
// new pool. If the new pool cannot be created the engine stays usable but
// every load fails until the next successful End.
func (e *Engine) End() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.release()
	e.reset()
	e.obs.LoopingStreams(0)

	pool, perr := e.newPool()
	if perr != nil {
		log.Error("Error recreating sound pool", "error", perr)
		if err == nil {
			err = perr
		}
		return err
	}
	e.pool = pool
	return err
}

// Close releases the pool without creating a new one.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	err := e.release()
	e.reset()
	return err
}

func (e *Engine) release() error {
	if e.pool == nil {
		return nil
	}
	err := e.pool.Release()
	e.pool = nil
	return err
}

// SuspendDevice pauses the whole output device when the pool supports it.
// Streams keep their state and continue after ResumeDevice.
func (e *Engine) SuspendDevice() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.pool.(soundpool.Suspender); ok {
		return s.Suspend()
	}
	return nil
}

// ResumeDevice resumes a device paused by SuspendDevice.
func (e *Engine) ResumeDevice() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.pool.(soundpool.Suspender); ok {
		return s.ResumeDevice()
	}
	return nil
}

// Backend describes the pool the engine plays through.
func (e *Engine) Backend() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pool == nil {
		return "released"
	}
	return e.pool.Backend()
}

// Loaded returns the loaded effect paths in sorted order.
func (e *Engine) Loaded() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	paths := make([]string, 0, len(e.pathSounds))
	for p := range e.pathSounds {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// SoundFor returns the sound id of a loaded path or InvalidSoundID.
func (e *Engine) SoundFor(path string) soundpool.SoundID {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id, ok := e.pathSounds[path]; ok {
		return id
	}
	return InvalidSoundID
}

// StreamFor returns the last stream started for a sound or InvalidStreamID.
func (e *Engine) StreamFor(id soundpool.SoundID) soundpool.StreamID {
	e.mu.Lock()
	defer e.mu.Unlock()
	if stream, ok := e.soundStreams[id]; ok {
		return stream
	}
	return InvalidStreamID
}

// IsLooping reports whether the sound has a tracked looping stream.
func (e *Engine) IsLooping(id soundpool.SoundID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.repeatStreams[id]
	return ok
}

// StreamState returns the state of the sound's current stream.
func (e *Engine) StreamState(id soundpool.SoundID) soundpool.StreamState {
	e.mu.Lock()
	defer e.mu.Unlock()
	stream, ok := e.soundStreams[id]
	if !ok || stream == InvalidStreamID || e.pool == nil {
		return soundpool.StreamUnknown
	}
	return e.pool.State(stream)
}

// clamp maps NaN to silence.
func clamp(v float64) float64 {
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
