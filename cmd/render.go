package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mrdg/bleeper/audio"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5fafff"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#555"))
	noteStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#87d787"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5f5f"))
)

func column(width int) lipgloss.Style {
	return lipgloss.NewStyle().Width(width)
}

// renderTrack prints every channel of the track with its score and the
// events it decodes to.
func renderTrack(w io.Writer, track *audio.Track) error {
	rate := track.Rate
	if rate == 0 {
		rate = audio.DefaultRate
	}
	fmt.Fprintf(w, "%s %d bpm, %d Hz\n", headerStyle.Render("track"), track.BPM, rate)
	for _, ch := range track.Channels {
		fmt.Fprintln(w)
		if err := renderChannel(w, ch, track.BPM, rate); err != nil {
			return err
		}
	}
	return nil
}

func renderChannel(w io.Writer, ch *audio.Channel, bpm, rate int) error {
	fmt.Fprintf(w, "%s %s\n", headerStyle.Render(ch.Name), dimStyle.Render(fmt.Sprintf("%.1f Hz", ch.Tuning)))
	fmt.Fprintln(w, ch.Score.String())

	header := column(6).Render("atom") + column(6).Render("kind") + column(8).Render("pitch") +
		column(8).Render("volume") + column(10).Render("samples") + "seconds"
	fmt.Fprintln(w, dimStyle.Render(header))

	var total int
	dec := audio.NewDecoder(audio.SamplesPerWhole(rate), bpm)
	err := dec.Run(context.Background(), ch.Score.Flatten(), func(ev audio.Event) error {
		total += ev.Duration
		pitch, volume := "", ""
		if ev.Kind == audio.NoteEvent {
			pitch = noteName(ch.Score.Set, ev.Pitch)
			volume = strconv.Itoa(ev.Pitch.Volume)
		}
		row := column(6).Render(strconv.Itoa(ev.Pos)) +
			column(6).Render(ev.Kind.String()) +
			column(8).Render(pitch) +
			column(8).Render(volume) +
			column(10).Render(strconv.Itoa(ev.Duration)) +
			fmt.Sprintf("%.4f", float64(ev.Duration)/float64(rate))
		if ev.Kind == audio.NoteEvent {
			row = noteStyle.Render(row)
		}
		fmt.Fprintln(w, row)
		return nil
	})
	if err != nil {
		fmt.Fprintln(w, errorStyle.Render(err.Error()))
		return &audio.ChannelError{Channel: ch.Name, Err: err}
	}
	fmt.Fprintf(w, "%s %d samples, %s\n", dimStyle.Render("total"), total, seconds(total, rate))
	return nil
}

// noteName writes the pitch the way a score would: the note symbol followed
// by the 1-based octave.
func noteName(set []rune, p audio.Pitch) string {
	var b strings.Builder
	if p.Index >= 0 && p.Index < len(set) {
		b.WriteRune(set[p.Index])
	} else {
		b.WriteString("?")
	}
	b.WriteString(strconv.Itoa(p.Octave + 1))
	return b.String()
}
