package cmd

import (
	"os"

	"github.com/mrdg/bleeper/song"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	newAlbum  string
	newArtist string
	newTrack  string
)

func init() {
	newCmd.Flags().StringVar(&newAlbum, "album", "untitled", "album name")
	newCmd.Flags().StringVar(&newArtist, "artist", "", "artist name")
	newCmd.Flags().StringVar(&newTrack, "track", "default", "track name")
	rootCmd.AddCommand(newCmd)
}

var newCmd = &cobra.Command{
	Use:   "new FILE",
	Short: "Writes a song document with the default track",
	Long: `Writes a song document holding a single album with the default track. The
format is TOML when FILE ends in .toml and JSON otherwise.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return newDocument(args[0], newArtist, newAlbum, newTrack)
	},
}

func newDocument(path, artist, album, track string) error {
	if _, err := os.Stat(path); err == nil {
		return errors.Errorf("%s already exists", path)
	}
	root := song.Root{
		album: &song.Album{
			Artist: artist,
			Tracks: map[string]*song.Track{track: song.Default()},
		},
	}
	return root.Save(path)
}
