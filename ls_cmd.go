package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/sfxpool/pkg/soundpool"
	"github.com/dgnsrekt/sfxpool/ui"
)

var lsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List the effects the soundboard would show",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s := opts
		// listing never needs the device
		s.Backend = soundpool.KindMock
		s.Watch = false
		s.MetricsAddr = ""

		a, err := newApp(cmd.Context(), s, nil)
		if err != nil {
			return err
		}
		defer a.close() //nolint:errcheck

		effects, err := a.effects()
		if err != nil {
			return err
		}
		return printEffects(cmd.OutOrStdout(), a.source.Name(), effects)
	},
}

func printEffects(w io.Writer, source string, effects []ui.Effect) error {
	if len(effects) == 0 {
		_, err := fmt.Fprintf(w, "No effects found in %s\n", source)
		return err
	}

	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("NAME", "PATH", "KEY", "LOOP", "SIZE").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
	for _, e := range effects {
		size := ""
		if e.Size > 0 {
			size = humanize.Bytes(uint64(e.Size))
		}
		t.Row(e.Name, e.Path, e.Key, strconv.FormatBool(e.Loop), size)
	}

	_, err := fmt.Fprintln(w, t.Render())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%d effects in %s\n", len(effects), source)
	return err
}
