package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# where effects are read from (a directory, or a zip archive)
assets:
  dir: "."
  # zip: "~/games/sfx.zip"
  # show hidden and git-ignored files
  all: false

# YAML manifest naming effects, hotkeys and loops
# manifest: "~/games/effects.yml"

# reload effects when their files change (directories only)
watch: false

# mouse wheel support in the soundboard
mouse: false

pool:
  # auto, oto or mock
  backend: "auto"
  # maximum simultaneous streams; the oldest low priority stream is stolen
  max_streams: 5
  # 44100 or 48000
  sample_rate: 44100
  # device buffer in milliseconds, 0 picks a platform default
  buffer_ms: 0

effects:
  # volume applied to new streams (0.0 to 1.0)
  volume: 0.5

# decoded clips are cached so large files load quickly next time
cache:
  memory_mb: 64
  # defaults to the user cache directory
  dir: ""
  # 0 disables the disk cache
  disk_mb: 512
  # zstd level, 0 stores raw PCM
  compression_level: 3

metrics:
  # serve Prometheus metrics, e.g. "127.0.0.1:9464"
  addr: ""
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the sfxpool config file",
	Long:    paragraph(fmt.Sprintf("\n%s the sfxpool config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("sfxpool config\nsfxpool config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("sfxpool", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
