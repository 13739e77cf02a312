package cmd

import (
	"context"
	"log/slog"

	"github.com/mrdg/bleeper/audio"
	"github.com/mrdg/bleeper/song"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var playSel selection

func init() {
	playCmd.Flags().StringVar(&playSel.album, "album", "", "only play this album")
	playCmd.Flags().StringVar(&playSel.track, "track", "", "only play this track")
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(tryCmd)
}

var playCmd = &cobra.Command{
	Use:   "play FILE",
	Short: "Plays tracks on the default audio device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, tracks, err := load(args[0], playSel)
		if err != nil {
			return err
		}
		sink, err := audio.NewSink(sampleRate)
		if err != nil {
			return errors.Wrap(err, "opening audio device")
		}
		defer sink.Close()
		for i, e := range entries {
			if err := play(cmd.Context(), sink, tracks[i]); err != nil {
				return errors.Wrapf(err, "track %s", e)
			}
		}
		return nil
	},
}

var tryCmd = &cobra.Command{
	Use:   "try SIGNAL [SCORE]",
	Short: "Plays the default score with a custom signal",
	Long: `Plays a single channel with the given signal expression, or preset name,
and score. The default score is used when none is given.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		track, err := tryTrack(args)
		if err != nil {
			return err
		}
		samples, err := track.Render(cmd.Context())
		if err != nil {
			return err
		}
		return audio.Play(cmd.Context(), samples, sampleRate)
	},
}

func tryTrack(args []string) (*audio.Track, error) {
	t := song.Default()
	ch := t.Channels["default"]
	ch.Signal = song.Signal{args[0]}
	if len(args) > 1 {
		ch.Score = args[1]
	}
	return t.Build(sampleRate, "")
}

func play(ctx context.Context, sink *audio.Sink, track *audio.Track) error {
	samples, err := track.Render(ctx)
	if err != nil {
		return err
	}
	slog.Debug("playing", "samples", len(samples), "length", seconds(len(samples), sampleRate))
	return sink.Play(ctx, samples)
}
