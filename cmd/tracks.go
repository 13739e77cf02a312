package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mrdg/bleeper/audio"
	"github.com/mrdg/bleeper/song"
	"github.com/pkg/errors"
)

// selection picks tracks out of a song document. Empty fields match
// everything.
type selection struct {
	album string
	track string
}

type entry struct {
	album  string
	artist string
	name   string
	track  *song.Track
}

// dir is the directory the track is exported to, relative to the output
// directory.
func (e entry) dir() string {
	if e.artist == "" {
		return fileName(e.album)
	}
	return fileName(fmt.Sprintf("%s - %s", e.artist, e.album))
}

func (e entry) String() string {
	return e.album + "/" + e.name
}

func fileName(s string) string {
	return strings.NewReplacer("/", "_", string(filepath.Separator), "_").Replace(s)
}

// tracks returns the selected tracks ordered by album and track name.
func (s selection) tracks(root song.Root) ([]entry, error) {
	var entries []entry
	for _, albumName := range song.Names(root) {
		if s.album != "" && s.album != albumName {
			continue
		}
		album := root[albumName]
		if album == nil {
			continue
		}
		for _, name := range song.Names(album.Tracks) {
			if s.track != "" && s.track != name {
				continue
			}
			entries = append(entries, entry{
				album:  albumName,
				artist: album.Artist,
				name:   name,
				track:  album.Tracks[name],
			})
		}
	}
	if len(entries) == 0 {
		return nil, errors.New("no matching tracks")
	}
	return entries, nil
}

// load reads the document at path and builds the selected tracks. Sample
// paths are relative to the document.
func load(path string, sel selection) ([]entry, []*audio.Track, error) {
	root, err := song.Load(path)
	if err != nil {
		return nil, nil, err
	}
	entries, err := sel.tracks(root)
	if err != nil {
		return nil, nil, errors.Wrap(err, path)
	}
	tracks := make([]*audio.Track, len(entries))
	for i, e := range entries {
		if e.track == nil {
			return nil, nil, errors.Errorf("%s: empty track", e)
		}
		tracks[i], err = e.track.Build(sampleRate, filepath.Dir(path))
		if err != nil {
			return nil, nil, errors.Wrapf(err, "track %s", e)
		}
	}
	return entries, tracks, nil
}
