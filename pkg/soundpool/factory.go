package soundpool

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Kind selects a pool implementation.
type Kind int

const (
	// KindAuto picks the device pool when audio hardware is usable and the
	// mock pool otherwise.
	KindAuto Kind = iota
	// KindOto uses the system audio device via oto.
	KindOto
	// KindMock uses the silent mock pool.
	KindMock
)

func (k Kind) String() string {
	switch k {
	case KindOto:
		return "oto"
	case KindMock:
		return "mock"
	default:
		return "auto"
	}
}

// ParseKind parses a backend name as used in configuration files.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return KindAuto, nil
	case "oto", "device":
		return KindOto, nil
	case "mock", "silent":
		return KindMock, nil
	default:
		return KindAuto, fmt.Errorf("unknown pool backend %q (use auto, oto or mock)", s)
	}
}

// IsCI detects if we're running in a CI environment.
func IsCI() bool {
	ciVars := []string{
		"CI",
		"CONTINUOUS_INTEGRATION",
		"GITHUB_ACTIONS",
		"GITLAB_CI",
		"JENKINS_URL",
		"BUILDKITE",
	}
	for _, envVar := range ciVars {
		if val := os.Getenv(envVar); val != "" && val != "false" {
			log.Debug("CI environment detected", "variable", envVar)
			return true
		}
	}
	if os.Getenv("SFX_MOCK_AUDIO") == "true" {
		log.Debug("Mock audio requested via environment variable")
		return true
	}
	return false
}

// New creates a pool of the requested kind.
func New(kind Kind, opts Options) (Pool, error) {
	switch kind {
	case KindOto:
		p, err := NewOtoPool(opts)
		if err != nil {
			return nil, err
		}
		return p, nil
	case KindMock:
		return newMock(opts, "")
	case KindAuto:
		host := DetectHost()
		if reason := host.MockReason(); reason != "" {
			log.Info("Using mock sound pool", "reason", reason)
			return newMock(opts, reason)
		}
		p, err := NewOtoPool(opts)
		if err != nil {
			log.Warn("Failed to open audio device, falling back to mock", "error", err, "host", host)
			return newMock(opts, "device unavailable")
		}
		p.backend = "oto (" + host.Subsystem + ")"
		return p, nil
	default:
		return nil, fmt.Errorf("unknown pool kind: %v", kind)
	}
}

func newMock(opts Options, reason string) (Pool, error) {
	m, err := NewMockPool(opts)
	if err != nil {
		return nil, err
	}
	if reason != "" {
		m.backend = "mock (" + reason + ")"
	}
	return m, nil
}
