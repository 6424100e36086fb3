package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/sfxpool/pkg/sfx"
	"github.com/dgnsrekt/sfxpool/pkg/soundpool"
)

const pollInterval = 20 * time.Millisecond

var (
	playLoop     bool
	playDuration time.Duration

	playCmd = &cobra.Command{
		Use:   "play EFFECT...",
		Short: "Play effects and wait for them to finish",
		Long: paragraph(fmt.Sprintf("\n%s one or more effects by manifest name or path. One-shots play to the end; loops run until --duration passes or you press ctrl+c.", keyword("Play"))),
		Example: paragraph("sfxpool play sfx/jump.wav\n" +
			"sfxpool play -f effects.yml engine --loop --duration 5s"),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer cancel()

			a, err := newApp(ctx, opts, nil)
			if err != nil {
				return err
			}
			defer a.close() //nolint:errcheck

			return a.play(ctx, cmd.OutOrStdout(), args, playLoop, playDuration)
		},
	}
)

func init() {
	playCmd.Flags().BoolVarP(&playLoop, "loop", "l", false, "loop the effects")
	playCmd.Flags().DurationVarP(&playDuration, "duration", "t", 0, "stop after this long (0 waits for one-shots, forever for loops)")
}

// play starts every effect and blocks until they finish, the duration
// passes or ctx is done.
func (a *app) play(ctx context.Context, w io.Writer, names []string, loop bool, d time.Duration) error {
	var (
		started []soundpool.SoundID
		looping bool
		failed  []string
	)
	log.Debug("Playing effects", "backend", a.engine.Backend(), "count", len(names))
	if strings.HasPrefix(a.engine.Backend(), "mock") {
		fmt.Fprintln(w, errorText("no audio output: "+a.engine.Backend()))
	}
	for _, name := range names {
		p, defLoop := a.resolve(name)
		l := loop || defLoop
		id := a.engine.PlayEffect(p, l)
		if id == sfx.InvalidSoundID {
			failed = append(failed, name)
			fmt.Fprintln(w, errorText("✗ "+name))
			continue
		}
		started = append(started, id)
		looping = looping || l
		mode := ""
		if l {
			mode = " (loop)"
		}
		fmt.Fprintln(w, keyword("▶ ")+name+mode)
	}

	if len(started) > 0 {
		if d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
		a.wait(ctx, started, looping)
		for _, id := range started {
			a.engine.StopEffect(id)
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("could not play %d of %d effects", len(failed), len(names))
	}
	return nil
}

// wait returns when ctx is done or, when nothing loops, every stream has
// stopped playing.
func (a *app) wait(ctx context.Context, ids []soundpool.SoundID, looping bool) {
	t := time.NewTicker(pollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if looping {
				continue
			}
			if !a.anyPlaying(ids) {
				return
			}
		}
	}
}

func (a *app) anyPlaying(ids []soundpool.SoundID) bool {
	for _, id := range ids {
		if a.engine.StreamState(id) == soundpool.StreamPlaying {
			return true
		}
	}
	return false
}
