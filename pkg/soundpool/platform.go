package soundpool

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
)

// Host describes what auto mode found on this machine.
type Host struct {
	OS        string
	Subsystem string // pipewire, pulseaudio, alsa, coreaudio, wasapi, aaudio or empty
	Devices   bool
	CI        bool
}

// DetectHost inspects the machine for a usable audio output.
func DetectHost() Host {
	h := Host{OS: runtime.GOOS, CI: IsCI()}
	switch h.OS {
	case "linux":
		h.Subsystem, h.Devices = detectLinux(os.Getenv("XDG_RUNTIME_DIR"), "/proc/asound")
	case "darwin":
		h.Subsystem, h.Devices = "coreaudio", true
	case "windows":
		h.Subsystem, h.Devices = "wasapi", true
	case "android":
		h.Subsystem, h.Devices = "aaudio", true
	}
	log.Debug("Audio host detected", "host", h)
	return h
}

// MockReason returns why auto mode falls back to the mock pool, or an empty
// string when the device can be used.
func (h Host) MockReason() string {
	switch {
	case h.CI:
		return "CI environment"
	case h.Subsystem == "":
		return "no audio subsystem"
	case !h.Devices:
		return "no audio devices"
	default:
		return ""
	}
}

func (h Host) String() string {
	sub := h.Subsystem
	if sub == "" {
		sub = "none"
	}
	return fmt.Sprintf("%s/%s devices=%v ci=%v", h.OS, sub, h.Devices, h.CI)
}

// detectLinux prefers a sound server socket and falls back to ALSA cards. A
// sound server counts as a device on its own since it may route to network
// or bluetooth sinks without a local card.
func detectLinux(runtimeDir, asound string) (string, bool) {
	var server string
	if runtimeDir != "" {
		switch {
		case exists(filepath.Join(runtimeDir, "pipewire-0")):
			server = "pipewire"
		case exists(filepath.Join(runtimeDir, "pulse", "native")):
			server = "pulseaudio"
		}
	}
	if server == "" && os.Getenv("PULSE_SERVER") != "" {
		server = "pulseaudio"
	}

	cards := alsaCards(filepath.Join(asound, "cards"))
	switch {
	case server != "":
		return server, true
	case cards > 0:
		return "alsa", true
	case exists(asound):
		return "alsa", false
	default:
		return "", false
	}
}

// alsaCards counts the entries of /proc/asound/cards. Each card has an index
// line such as " 0 [PCH ]: HDA-Intel - HDA Intel PCH".
func alsaCards(name string) int {
	f, err := os.Open(name)
	if err != nil {
		return 0
	}
	defer f.Close() //nolint:errcheck

	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line != "" && line[0] >= '0' && line[0] <= '9' && strings.Contains(line, "[") {
			n++
		}
	}
	return n
}

func exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}
