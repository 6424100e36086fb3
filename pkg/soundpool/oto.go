//go:build !nocgo
// +build !nocgo

package soundpool

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// oto allows a single context per process, so every OtoPool shares it.
var (
	otoOnce    sync.Once
	otoContext *oto.Context
	otoRate    int
	otoErr     error
)

// OtoPool plays streams through the system audio device using oto.
type OtoPool struct {
	*basePool
	ctx         *oto.Context
	playerBytes int
	backend     string
}

// NewOtoPool creates a pool backed by the shared oto context.
func NewOtoPool(opts Options) (*OtoPool, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if opts.BufferSize == 0 {
		opts.BufferSize = defaultBufferSize()
	}

	ctx, err := sharedContext(opts)
	if err != nil {
		return nil, err
	}

	p := &OtoPool{
		ctx:         ctx,
		playerBytes: int(opts.BufferSize.Seconds()*float64(opts.SampleRate)) * BytesPerFrame,
		backend:     "oto",
	}
	p.basePool = newBasePool(opts, p.newVoice, nil)
	return p, nil
}

func sharedContext(opts Options) (*oto.Context, error) {
	otoOnce.Do(func() {
		options := &oto.NewContextOptions{
			SampleRate:   opts.SampleRate,
			ChannelCount: Channels,
			Format:       oto.FormatFloat32LE,
			BufferSize:   opts.BufferSize,
		}

		log.Debug("Initializing audio context",
			"sample_rate", options.SampleRate,
			"channels", options.ChannelCount,
			"buffer_size", options.BufferSize)

		ctx, ready, err := oto.NewContext(options)
		if err != nil {
			otoErr = fmt.Errorf("failed to create audio context: %w", err)
			return
		}

		select {
		case <-ready:
			otoContext = ctx
			otoRate = opts.SampleRate
			log.Debug("Audio context ready")
		case <-time.After(opts.ReadyTimeout):
			// oto v3 contexts cannot be closed; it will be garbage collected
			otoErr = fmt.Errorf("audio context initialization timeout after %v", opts.ReadyTimeout)
		}
	})

	if otoErr != nil {
		return nil, otoErr
	}
	if otoRate != opts.SampleRate {
		return nil, fmt.Errorf("audio context already running at %d Hz, cannot open at %d Hz", otoRate, opts.SampleRate)
	}
	return otoContext, nil
}

func defaultBufferSize() time.Duration {
	switch runtime.GOOS {
	case "darwin":
		return 40 * time.Millisecond
	case "windows":
		return 30 * time.Millisecond
	default:
		return 20 * time.Millisecond
	}
}

func (p *OtoPool) newVoice(s *stream) (voice, error) {
	player := p.ctx.NewPlayer(s)
	if player == nil {
		return nil, fmt.Errorf("failed to create oto player")
	}
	if p.playerBytes > 0 {
		player.SetBufferSize(p.playerBytes)
	}
	return &otoVoice{player: player, s: s}, nil
}

// Backend describes the output device.
func (p *OtoPool) Backend() string { return p.backend }

// Suspend pauses the audio device, e.g. when the host application loses focus.
func (p *OtoPool) Suspend() error {
	return p.ctx.Suspend()
}

// ResumeDevice resumes a suspended audio device.
func (p *OtoPool) ResumeDevice() error {
	return p.ctx.Resume()
}

type otoVoice struct {
	player *oto.Player
	s      *stream
}

func (v *otoVoice) play()  { v.player.Play() }
func (v *otoVoice) pause() { v.player.Pause() }

func (v *otoVoice) stop() {
	v.player.Pause()
	if err := v.player.Close(); err != nil {
		log.Debug("Failed to close player", "stream", v.s.id, "error", err)
	}
}

func (v *otoVoice) done() bool {
	v.s.mu.Lock()
	drained := v.s.drained
	v.s.mu.Unlock()
	return drained && !v.player.IsPlaying()
}
