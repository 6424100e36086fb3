package soundpool

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/charmbracelet/log"
)

// voice is the output side of a stream.
type voice interface {
	play()
	pause()
	stop()
	// done reports whether a one-shot stream has been fully heard.
	done() bool
}

// stream is one playback of a clip. It is also the PCM source read by the
// output device.
type stream struct {
	id       StreamID
	sound    SoundID
	clip     *Clip
	priority int
	rate     float64 // clip frames advanced per output frame
	seq      uint64

	mu      sync.Mutex
	left    float32
	right   float32
	loop    int
	pos     float64 // in frames
	state   StreamState
	drained bool
	voice   voice
}

// Read fills p with gain-adjusted PCM, wrapping around while loops remain.
// Rates other than 1 interpolate linearly between neighbouring frames.
func (s *stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drained {
		return 0, io.EOF
	}

	step := s.rate
	if step <= 0 {
		step = 1
	}
	pcm := s.clip.PCM
	frames := len(pcm) / BytesPerFrame
	n := 0
	for len(p)-n >= BytesPerFrame {
		if s.pos >= float64(frames) {
			if s.loop == 0 || frames == 0 {
				break
			}
			if s.loop > 0 {
				s.loop--
			}
			s.pos -= float64(frames)
		}

		i := int(s.pos)
		frac := float32(s.pos - float64(i))
		next := i + 1
		if next >= frames {
			next = i
			if s.loop != 0 {
				next = 0
			}
		}
		for c := 0; c < Channels; c++ {
			v := sampleAt(pcm, i, c)
			if frac > 0 {
				v += (sampleAt(pcm, next, c) - v) * frac
			}
			gain := s.left
			if c == 1 {
				gain = s.right
			}
			binary.LittleEndian.PutUint32(p[n:], math.Float32bits(v*gain))
			n += BytesPerSample
		}
		s.pos += step
	}

	if n == 0 {
		if len(p) < BytesPerFrame {
			return 0, nil
		}
		s.drained = true
		return 0, io.EOF
	}
	return n, nil
}

func sampleAt(pcm []byte, frame, channel int) float32 {
	off := frame*BytesPerFrame + channel*BytesPerSample
	return math.Float32frombits(binary.LittleEndian.Uint32(pcm[off:]))
}

func (s *stream) getState() StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *stream) setState(state StreamState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// basePool holds the bookkeeping shared by every pool implementation:
// resident clips, live streams and stream stealing.
type basePool struct {
	mu         sync.Mutex
	opts       Options
	sounds     map[SoundID]*Clip
	streams    map[StreamID]*stream
	nextSound  SoundID
	nextStream StreamID
	seq        uint64
	released   bool

	newVoice func(s *stream) (voice, error)
	closeOut func() error
}

func newBasePool(opts Options, newVoice func(*stream) (voice, error), closeOut func() error) *basePool {
	return &basePool{
		opts:     opts,
		sounds:   make(map[SoundID]*Clip),
		streams:  make(map[StreamID]*stream),
		newVoice: newVoice,
		closeOut: closeOut,
	}
}

// Load decodes a clip and makes it resident.
func (p *basePool) Load(name string, data []byte) (SoundID, error) {
	p.mu.Lock()
	released := p.released
	p.mu.Unlock()
	if released {
		return 0, ErrPoolReleased
	}

	// decode outside the lock, clips can be large
	clip, err := loadClip(name, data, p.opts.SampleRate, p.opts.Cache)
	if err != nil {
		return 0, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return 0, ErrPoolReleased
	}
	p.nextSound++
	id := p.nextSound
	p.sounds[id] = clip

	log.Debug("Sound loaded", "sound", id, "name", name, "duration", clip.Duration())
	return id, nil
}

// Play starts a new stream of a loaded sound.
func (p *basePool) Play(id SoundID, left, right float64, priority, loop int, rate float64) (StreamID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.released {
		return 0, ErrPoolReleased
	}
	clip, ok := p.sounds[id]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownSound, id)
	}

	p.reapLocked()
	if err := p.makeRoomLocked(priority); err != nil {
		return 0, err
	}

	p.nextStream++
	p.seq++
	s := &stream{
		id:       p.nextStream,
		sound:    id,
		clip:     clip,
		priority: priority,
		rate:     clampRate(rate),
		seq:      p.seq,
		left:     float32(clamp01(left)),
		right:    float32(clamp01(right)),
		loop:     loop,
		state:    StreamPlaying,
	}

	v, err := p.newVoice(s)
	if err != nil {
		return 0, fmt.Errorf("failed to create voice: %w", err)
	}
	s.voice = v
	p.streams[s.id] = s
	v.play()

	log.Debug("Stream started", "sound", id, "stream", s.id, "loop", loop, "left", s.left, "right", s.right, "rate", s.rate)
	return s.id, nil
}

// makeRoomLocked steals the lowest priority, oldest stream when the pool is full.
func (p *basePool) makeRoomLocked(priority int) error {
	if len(p.streams) < p.opts.MaxStreams {
		return nil
	}
	var victim *stream
	for _, s := range p.streams {
		if victim == nil || s.priority < victim.priority ||
			(s.priority == victim.priority && s.seq < victim.seq) {
			victim = s
		}
	}
	if victim == nil {
		return nil
	}
	if priority < victim.priority {
		return ErrNoFreeStream
	}
	log.Debug("Stealing stream", "stream", victim.id, "sound", victim.sound, "priority", victim.priority)
	p.stopLocked(victim)
	return nil
}

// reapLocked drops one-shot streams that finished playing.
func (p *basePool) reapLocked() {
	for id, s := range p.streams {
		if p.finishedLocked(s) {
			s.voice.stop()
			delete(p.streams, id)
		}
	}
}

func (p *basePool) finishedLocked(s *stream) bool {
	state := s.getState()
	if state == StreamFinished {
		return true
	}
	if state == StreamPlaying && s.voice.done() {
		s.setState(StreamFinished)
		return true
	}
	return false
}

func (p *basePool) stopLocked(s *stream) {
	s.setState(StreamUnknown)
	s.voice.stop()
	delete(p.streams, s.id)
}

// Stop stops a stream.
func (p *basePool) Stop(id StreamID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s, ok := p.streams[id]; ok {
		p.stopLocked(s)
		log.Debug("Stream stopped", "stream", id)
	}
}

// Pause pauses a playing stream.
func (p *basePool) Pause(id StreamID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.streams[id]
	if !ok || s.getState() != StreamPlaying || p.finishedLocked(s) {
		return
	}
	s.voice.pause()
	s.setState(StreamPaused)
	log.Debug("Stream paused", "stream", id)
}

// Resume resumes a paused stream.
func (p *basePool) Resume(id StreamID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.streams[id]
	if !ok || s.getState() != StreamPaused {
		return
	}
	s.setState(StreamPlaying)
	s.voice.play()
	log.Debug("Stream resumed", "stream", id)
}

// Unload stops the streams of a sound and drops its clip.
func (p *basePool) Unload(id SoundID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.sounds[id]; !ok {
		return false
	}
	for _, s := range p.streams {
		if s.sound == id {
			p.stopLocked(s)
		}
	}
	delete(p.sounds, id)
	log.Debug("Sound unloaded", "sound", id)
	return true
}

// Release stops every stream and frees every clip.
func (p *basePool) Release() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.released {
		return nil
	}
	for _, s := range p.streams {
		p.stopLocked(s)
	}
	p.sounds = make(map[SoundID]*Clip)
	p.released = true

	if p.closeOut != nil {
		if err := p.closeOut(); err != nil {
			return fmt.Errorf("failed to close output: %w", err)
		}
	}
	log.Debug("Sound pool released")
	return nil
}

// State returns the playback state of a stream.
func (p *basePool) State(id StreamID) StreamState {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.streams[id]
	if !ok {
		return StreamUnknown
	}
	if p.finishedLocked(s) {
		return StreamFinished
	}
	return s.getState()
}

// Format returns the output format.
func (p *basePool) Format() Format {
	return Format{SampleRate: p.opts.SampleRate, Channels: Channels}
}

// Loaded returns the number of resident sounds.
func (p *basePool) Loaded() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sounds)
}

// Active returns the number of streams that are playing or paused.
func (p *basePool) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reapLocked()
	return len(p.streams)
}

// clamp01 maps NaN to silence.
func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Playback rate bounds, matching the range platform sound pools accept.
const (
	MinRate = 0.5
	MaxRate = 2.0
)

// clampRate keeps rate within [MinRate, MaxRate]; NaN and non-positive
// rates play at normal speed.
func clampRate(r float64) float64 {
	switch {
	case math.IsNaN(r) || r <= 0:
		return 1
	case r < MinRate:
		return MinRate
	case r > MaxRate:
		return MaxRate
	default:
		return r
	}
}
