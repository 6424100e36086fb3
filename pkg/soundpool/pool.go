// Package soundpool provides a low-latency pool of resident sound clips.
//
// Clips are decoded once with gopxl/beep and kept in memory as float32
// stereo PCM. Each call to Play starts an independent stream that is mixed
// by the output device (oto in production, a simulated clock in tests).
package soundpool

import (
	"errors"
	"fmt"
	"time"
)

// SoundID identifies a clip loaded into a pool. Valid ids start at 1.
type SoundID int

// StreamID identifies a single playback of a clip. Valid ids start at 1.
type StreamID int

// StreamState is the playback state of a stream.
type StreamState int

const (
	// StreamUnknown is reported for ids the pool does not know about,
	// including streams that were stopped or stolen.
	StreamUnknown StreamState = iota
	// StreamPlaying indicates the stream is producing audio.
	StreamPlaying
	// StreamPaused indicates the stream is paused and can be resumed.
	StreamPaused
	// StreamFinished indicates a one-shot stream played to the end.
	StreamFinished
)

func (s StreamState) String() string {
	switch s {
	case StreamPlaying:
		return "playing"
	case StreamPaused:
		return "paused"
	case StreamFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// LoopForever makes a stream repeat until it is stopped.
const LoopForever = -1

// Output format shared by every pool.
const (
	Channels       = 2
	BytesPerSample = 4 // float32
	BytesPerFrame  = Channels * BytesPerSample
)

var (
	// ErrUnknownSound is returned when a sound id was never loaded or was unloaded.
	ErrUnknownSound = errors.New("unknown sound id")
	// ErrPoolReleased is returned by every operation after Release.
	ErrPoolReleased = errors.New("sound pool released")
	// ErrUnsupportedFormat is returned when a clip cannot be decoded by extension.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	// ErrNoFreeStream is returned when all streams are busy with higher priority sounds.
	ErrNoFreeStream = errors.New("no free stream")
)

// Format describes the PCM layout produced by a pool.
type Format struct {
	SampleRate int
	Channels   int
}

// Pool is a low-latency sound pool. Sounds are loaded once and played many
// times; every playback gets its own stream id.
type Pool interface {
	// Load decodes an encoded clip. The name is used to pick a decoder by
	// file extension.
	Load(name string, data []byte) (SoundID, error)

	// Play starts a new stream of a loaded sound. Volumes are in [0,1], a
	// higher priority wins when streams must be stolen, loop is the number
	// of extra repetitions (LoopForever for infinite) and rate is the
	// playback rate where 1.0 is the original speed. Rates are clamped to
	// [MinRate, MaxRate] and change pitch along with speed.
	Play(id SoundID, left, right float64, priority, loop int, rate float64) (StreamID, error)

	// Stop stops a stream. Unknown streams are ignored.
	Stop(stream StreamID)

	// Pause pauses a playing stream. Unknown streams are ignored.
	Pause(stream StreamID)

	// Resume resumes a paused stream. Unknown streams are ignored.
	Resume(stream StreamID)

	// Unload stops every stream of the sound and drops its clip. It
	// reports whether the sound was loaded.
	Unload(id SoundID) bool

	// Release stops every stream and frees all clips. The pool is unusable
	// afterwards.
	Release() error

	// State returns the playback state of a stream.
	State(stream StreamID) StreamState

	// Format returns the output format.
	Format() Format

	// Backend describes the output, e.g. "oto (pulseaudio)" or
	// "mock (no audio devices)".
	Backend() string
}

// Suspender is implemented by pools that can pause the output device as a
// whole. Stream states are unaffected.
type Suspender interface {
	Suspend() error
	ResumeDevice() error
}

// ClipCache stores decoded PCM keyed by content hash.
type ClipCache interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
}

// Options configures a pool.
type Options struct {
	SampleRate   int           // 44100 or 48000 Hz
	MaxStreams   int           // maximum simultaneous streams
	BufferSize   time.Duration // device buffer, zero picks a platform default
	ReadyTimeout time.Duration // how long to wait for the device
	Cache        ClipCache     // optional decoded clip cache
}

// Defaults.
const (
	DefaultSampleRate = 44100
	DefaultMaxStreams = 5
)

// DefaultOptions returns the default pool options.
func DefaultOptions() Options {
	return Options{
		SampleRate:   DefaultSampleRate,
		MaxStreams:   DefaultMaxStreams,
		ReadyTimeout: 5 * time.Second,
	}
}

func (o Options) validate() error {
	if o.SampleRate != 44100 && o.SampleRate != 48000 {
		return fmt.Errorf("sample rate must be 44100 or 48000 Hz, got %d", o.SampleRate)
	}
	if o.MaxStreams < 1 {
		return fmt.Errorf("max streams must be positive, got %d", o.MaxStreams)
	}
	if o.BufferSize < 0 {
		return errors.New("buffer size must not be negative")
	}
	return nil
}

func (o Options) withDefaults() Options {
	if o.SampleRate == 0 {
		o.SampleRate = DefaultSampleRate
	}
	if o.MaxStreams == 0 {
		o.MaxStreams = DefaultMaxStreams
	}
	if o.ReadyTimeout == 0 {
		o.ReadyTimeout = 5 * time.Second
	}
	return o
}
