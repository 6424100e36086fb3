// Package main provides the entry point for the sfxpool CLI application.
package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/dgnsrekt/sfxpool/pkg/sfx"
	"github.com/dgnsrekt/sfxpool/pkg/soundpool"
	"github.com/dgnsrekt/sfxpool/ui"
)

const appName = "sfxpool"

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	opts       settings

	rootCmd = &cobra.Command{
		Use:   "sfxpool [DIR]",
		Short: "Play sound effects from the terminal",
		Long: paragraph(
			fmt.Sprintf("\nA %s for game sound effects. Effects are decoded once, kept in a low-latency pool and played with a single key.", keyword("soundboard")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveFilterDirs
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return validateOptions(cmd, args)
		},
		RunE: execute,
	}
)

// settings holds the resolved configuration.
type settings struct {
	AssetsDir string
	AssetsZip string
	ShowAll   bool
	Manifest  string
	Watch     bool
	Mouse     bool

	Backend    soundpool.Kind
	MaxStreams int
	SampleRate int
	BufferMs   int
	Volume     float64

	CacheMemoryMB    int
	CacheDir         string
	CacheDiskMB      int
	CompressionLevel int

	MetricsAddr string
}

func validateOptions(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("config") {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}

	s := settings{
		AssetsDir:        viper.GetString("assets.dir"),
		AssetsZip:        viper.GetString("assets.zip"),
		ShowAll:          viper.GetBool("assets.all"),
		Manifest:         viper.GetString("manifest"),
		Watch:            viper.GetBool("watch"),
		Mouse:            viper.GetBool("mouse"),
		MaxStreams:       viper.GetInt("pool.max_streams"),
		SampleRate:       viper.GetInt("pool.sample_rate"),
		BufferMs:         viper.GetInt("pool.buffer_ms"),
		Volume:           viper.GetFloat64("effects.volume"),
		CacheMemoryMB:    viper.GetInt("cache.memory_mb"),
		CacheDir:         viper.GetString("cache.dir"),
		CacheDiskMB:      viper.GetInt("cache.disk_mb"),
		CompressionLevel: viper.GetInt("cache.compression_level"),
		MetricsAddr:      viper.GetString("metrics.addr"),
	}

	// a directory argument to the root command wins over the config
	if !cmd.HasParent() && len(args) == 1 {
		s.AssetsDir = args[0]
		s.AssetsZip = ""
	}

	kind, err := soundpool.ParseKind(viper.GetString("pool.backend"))
	if err != nil {
		return err
	}
	s.Backend = kind

	if math.IsNaN(s.Volume) || s.Volume < 0 || s.Volume > 1 {
		return fmt.Errorf("effects volume must be between 0 and 1, got %.2f", s.Volume)
	}
	if s.MaxStreams < 1 || s.MaxStreams > 64 {
		return fmt.Errorf("pool max_streams must be between 1 and 64, got %d", s.MaxStreams)
	}
	if s.SampleRate != 44100 && s.SampleRate != 48000 {
		return fmt.Errorf("pool sample_rate must be 44100 or 48000, got %d", s.SampleRate)
	}
	if s.BufferMs < 0 {
		return errors.New("pool buffer_ms must not be negative")
	}
	if s.CompressionLevel < 0 || s.CompressionLevel > 22 {
		return fmt.Errorf("cache compression_level must be between 0 and 22, got %d", s.CompressionLevel)
	}
	if s.AssetsZip != "" && s.Watch {
		log.Warn("Watching is not supported for zip resources, ignoring")
		s.Watch = false
	}

	opts = s
	return nil
}

func execute(*cobra.Command, []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("the soundboard needs a terminal, use 'sfxpool play' or 'sfxpool ls' instead")
	}
	return runTUI(opts)
}

func runTUI(s settings) error {
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}
	cfg.EnableMouse = cfg.EnableMouse || s.Mouse

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	changes := make(chan string, 16)
	a, err := newApp(ctx, s, func(path string) {
		select {
		case changes <- path:
		default:
		}
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(); err != nil {
			log.Error("Error shutting down", "error", err)
		}
	}()

	effects, err := a.effects()
	if err != nil {
		return err
	}
	cfg.Source = a.source.Name()

	if _, err := ui.NewProgram(cfg, a.engine, effects, changes).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

// poolOptions converts settings to pool options.
func poolOptions(s settings) soundpool.Options {
	o := soundpool.DefaultOptions()
	o.SampleRate = s.SampleRate
	o.MaxStreams = s.MaxStreams
	o.BufferSize = msToDuration(s.BufferMs)
	return o
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	flags.StringP("dir", "d", ".", "resource directory holding the effects")
	flags.StringP("zip", "z", "", "resource zip file (instead of a directory)")
	flags.BoolP("all", "a", false, "show hidden and git-ignored files")
	flags.StringP("manifest", "f", "", "YAML manifest naming the effects")
	flags.BoolP("watch", "w", false, "reload effects when their files change")
	flags.String("backend", "auto", "sound pool backend: auto, oto or mock")
	flags.Int("max-streams", soundpool.DefaultMaxStreams, "maximum simultaneous streams")
	flags.Float64("volume", sfx.DefaultVolume, "effects volume between 0 and 1")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address")
	rootCmd.Flags().BoolP("mouse", "m", false, "enable mouse wheel")
	_ = rootCmd.Flags().MarkHidden("mouse")

	// Config bindings
	_ = viper.BindPFlag("assets.dir", flags.Lookup("dir"))
	_ = viper.BindPFlag("assets.zip", flags.Lookup("zip"))
	_ = viper.BindPFlag("assets.all", flags.Lookup("all"))
	_ = viper.BindPFlag("manifest", flags.Lookup("manifest"))
	_ = viper.BindPFlag("watch", flags.Lookup("watch"))
	_ = viper.BindPFlag("pool.backend", flags.Lookup("backend"))
	_ = viper.BindPFlag("pool.max_streams", flags.Lookup("max-streams"))
	_ = viper.BindPFlag("effects.volume", flags.Lookup("volume"))
	_ = viper.BindPFlag("metrics.addr", flags.Lookup("metrics-addr"))
	_ = viper.BindPFlag("mouse", rootCmd.Flags().Lookup("mouse"))

	setDefaults()

	rootCmd.AddCommand(playCmd, lsCmd, configCmd, manCmd)
}

func setDefaults() {
	viper.SetDefault("assets.dir", ".")
	viper.SetDefault("assets.all", false)
	viper.SetDefault("watch", false)
	viper.SetDefault("pool.backend", "auto")
	viper.SetDefault("pool.max_streams", soundpool.DefaultMaxStreams)
	viper.SetDefault("pool.sample_rate", soundpool.DefaultSampleRate)
	viper.SetDefault("pool.buffer_ms", 0)
	viper.SetDefault("effects.volume", sfx.DefaultVolume)
	viper.SetDefault("cache.memory_mb", 64)
	viper.SetDefault("cache.dir", "")
	viper.SetDefault("cache.disk_mb", 512)
	viper.SetDefault("cache.compression_level", 3)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, appName)
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, appName)}, dirs...)
	}

	if c := os.Getenv("SFXPOOL_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName(appName)
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix(appName)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], appName+".yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
