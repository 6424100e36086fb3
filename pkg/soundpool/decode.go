package soundpool

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

const resampleQuality = 4

// SupportedExtensions lists the file extensions a pool can decode.
var SupportedExtensions = []string{".wav", ".mp3", ".ogg", ".flac"}

// Clip is a decoded sound kept resident in a pool.
type Clip struct {
	Name string
	PCM  []byte // float32 LE, interleaved stereo at the pool sample rate
	rate int
}

// Frames returns the number of stereo frames in the clip.
func (c *Clip) Frames() int {
	return len(c.PCM) / BytesPerFrame
}

// Duration returns the play time of a single repetition.
func (c *Clip) Duration() time.Duration {
	if c.rate == 0 {
		return 0
	}
	return time.Duration(c.Frames()) * time.Second / time.Duration(c.rate)
}

// IsSupported reports whether the name has a decodable extension.
func IsSupported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range SupportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// clipKey derives the cache key for an encoded clip at a sample rate.
func clipKey(data []byte, rate int) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s-%d", hex.EncodeToString(sum[:]), rate)
}

// loadClip returns a decoded clip, consulting the cache first.
func loadClip(name string, data []byte, rate int, cache ClipCache) (*Clip, error) {
	var key string
	if cache != nil {
		key = clipKey(data, rate)
		if pcm, ok := cache.Get(key); ok {
			log.Debug("Clip cache hit", "name", name, "bytes", len(pcm))
			return &Clip{Name: name, PCM: pcm, rate: rate}, nil
		}
	}

	clip, err := decodeClip(name, data, rate)
	if err != nil {
		return nil, err
	}

	if cache != nil {
		if err := cache.Put(key, clip.PCM); err != nil {
			log.Debug("Clip not cached", "name", name, "error", err)
		}
	}
	return clip, nil
}

// decodeClip decodes an encoded clip into float32 stereo PCM at rate.
func decodeClip(name string, data []byte, rate int) (*Clip, error) {
	streamer, format, err := decodeStream(name, data)
	if err != nil {
		return nil, err
	}
	defer streamer.Close() //nolint:errcheck

	var s beep.Streamer = streamer
	if int(format.SampleRate) != rate {
		s = beep.Resample(resampleQuality, format.SampleRate, beep.SampleRate(rate), streamer)
	}

	frames := streamer.Len()
	if int(format.SampleRate) != rate && format.SampleRate > 0 {
		frames = frames * rate / int(format.SampleRate)
	}
	pcm := make([]byte, 0, (frames+1)*BytesPerFrame)

	samples := make([][2]float64, 512)
	for {
		n, ok := s.Stream(samples)
		for _, sample := range samples[:n] {
			pcm = binary.LittleEndian.AppendUint32(pcm, math.Float32bits(float32(sample[0])))
			pcm = binary.LittleEndian.AppendUint32(pcm, math.Float32bits(float32(sample[1])))
		}
		if !ok {
			break
		}
	}
	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}

	log.Debug("Clip decoded",
		"name", name,
		"source_rate", format.SampleRate,
		"source_channels", format.NumChannels,
		"frames", len(pcm)/BytesPerFrame)

	return &Clip{Name: name, PCM: pcm, rate: rate}, nil
}

func decodeStream(name string, data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	var (
		s      beep.StreamSeekCloser
		format beep.Format
		err    error
	)
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".wav":
		s, format, err = wav.Decode(bytes.NewReader(data))
	case ".mp3":
		s, format, err = mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	case ".ogg":
		s, format, err = vorbis.Decode(io.NopCloser(bytes.NewReader(data)))
	case ".flac":
		s, format, err = flac.Decode(bytes.NewReader(data))
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return s, format, nil
}
