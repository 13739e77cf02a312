package cmd

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mrdg/bleeper/audio"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	exportDir string
	exportSel selection
)

func init() {
	exportCmd.Flags().StringVarP(&exportDir, "out", "o", ".", "output directory")
	exportCmd.Flags().StringVar(&exportSel.album, "album", "", "only export this album")
	exportCmd.Flags().StringVar(&exportSel.track, "track", "", "only export this track")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export FILE",
	Short: "Renders tracks to WAV files",
	Long: `Renders every track of a song document to "<out>/<artist> - <album>/<track>.wav"
as 16 bit mono PCM.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := export(cmd.Context(), args[0], exportDir, exportSel)
		return err
	},
}

// export renders the selected tracks and returns the files it wrote.
func export(ctx context.Context, path, out string, sel selection) ([]string, error) {
	entries, tracks, err := load(path, sel)
	if err != nil {
		return nil, err
	}
	var files []string
	for i, e := range entries {
		start := time.Now()
		samples, err := tracks[i].Render(ctx)
		if err != nil {
			return files, errors.Wrapf(err, "track %s", e)
		}
		dir := filepath.Join(out, e.dir())
		if err := os.MkdirAll(dir, 0755); err != nil {
			return files, errors.WithStack(err)
		}
		file := filepath.Join(dir, fileName(e.name)+".wav")
		if err := audio.SaveWAV(file, samples, sampleRate); err != nil {
			return files, errors.Wrapf(err, "writing %s", file)
		}
		slog.Info("exported track",
			"track", e.String(),
			"file", file,
			"length", seconds(len(samples), sampleRate),
			"elapsed", time.Since(start))
		files = append(files, file)
	}
	return files, nil
}

func seconds(samples, rate int) time.Duration {
	return time.Duration(float64(samples) / float64(rate) * float64(time.Second))
}
