package cmd

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var inspectSel selection

func init() {
	inspectCmd.Flags().StringVar(&inspectSel.album, "album", "", "only inspect this album")
	inspectCmd.Flags().StringVar(&inspectSel.track, "track", "", "only inspect this track")
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect FILE",
	Short: "Prints the decoded events of every channel",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return inspect(os.Stdout, args[0], inspectSel)
	},
}

func inspect(w io.Writer, path string, sel selection) error {
	entries, tracks, err := load(path, sel)
	if err != nil {
		return err
	}
	for i, e := range entries {
		if i > 0 {
			io.WriteString(w, "\n")
		}
		io.WriteString(w, headerStyle.Render(e.String())+"\n")
		if err := renderTrack(w, tracks[i]); err != nil {
			return errors.Wrapf(err, "track %s", e)
		}
	}
	return nil
}
