package cmd

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mrdg/bleeper/midi"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	midiDir string
	midiSel selection
)

func init() {
	midiCmd.Flags().StringVarP(&midiDir, "out", "o", ".", "output directory")
	midiCmd.Flags().StringVar(&midiSel.album, "album", "", "only convert this album")
	midiCmd.Flags().StringVar(&midiSel.track, "track", "", "only convert this track")
	rootCmd.AddCommand(midiCmd)
}

var midiCmd = &cobra.Command{
	Use:   "midi FILE",
	Short: "Converts tracks to MIDI files",
	Long: `Writes every track of a song document to "<out>/<artist> - <album>/<track>.mid",
one MIDI track per channel.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := exportMIDI(args[0], midiDir, midiSel)
		return err
	},
}

func exportMIDI(path, out string, sel selection) ([]string, error) {
	entries, tracks, err := load(path, sel)
	if err != nil {
		return nil, err
	}
	var files []string
	for i, e := range entries {
		dir := filepath.Join(out, e.dir())
		if err := os.MkdirAll(dir, 0755); err != nil {
			return files, errors.WithStack(err)
		}
		s, err := midi.Render(tracks[i])
		if err != nil {
			return files, errors.Wrapf(err, "track %s", e)
		}
		file := filepath.Join(dir, fileName(e.name)+".mid")
		if err := s.WriteFile(file); err != nil {
			return files, errors.Wrapf(err, "writing %s", file)
		}
		slog.Info("wrote midi file", "track", e.String(), "file", file)
		files = append(files, file)
	}
	return files, nil
}
