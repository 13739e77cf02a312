package song

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mrdg/bleeper/audio"
	"github.com/mrdg/bleeper/mask"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jsonSong = `{
  "First Light": {
    "artist": "Nobody",
    "tracks": {
      "intro": {
        "BPM": 90,
        "channels": {
          "lead": {
            "signal": ["a = 0.5", "a*sin(2*pi*f*t)"],
            "set": "abc",
            "score": "(2 a b) c",
            "tuning": 440,
            "volume": 0.8,
            "envelope": {"attack": 0.01, "release": 0.1}
          },
          "pad": {"signal": "square", "score": "@3 $1 a"}
        }
      }
    }
  }
}`

const tomlSong = `
["First Light"]
artist = "Nobody"

["First Light".tracks.intro]
bpm = 90

["First Light".tracks.intro.channels.lead]
signal = ["a = 0.5", "a*sin(2*pi*f*t)"]
set = "abc"
score = "(2 a b) c"
tuning = 440.0
volume = 0.8
envelope = { attack = 0.01, release = 0.1 }

["First Light".tracks.intro.channels.pad]
signal = "square"
score = "@3 $1 a"
`

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	for _, path := range []string{
		write(t, "song.json", jsonSong),
		write(t, "song.toml", tomlSong),
	} {
		root, err := Load(path)
		require.NoError(t, err, path)

		album := root["First Light"]
		require.NotNil(t, album, path)
		assert.Equal(t, "Nobody", album.Artist)

		track := album.Tracks["intro"]
		require.NotNil(t, track, path)
		assert.Equal(t, 90, track.BPM, path)

		lead := track.Channels["lead"]
		require.NotNil(t, lead, path)
		assert.Equal(t, Signal{"a = 0.5", "a*sin(2*pi*f*t)"}, lead.Signal, path)
		assert.Equal(t, "abc", lead.Set)
		assert.Equal(t, 440.0, lead.Tuning)
		require.NotNil(t, lead.Volume)
		assert.Equal(t, 0.8, *lead.Volume)
		assert.Equal(t, &Envelope{Attack: 0.01, Release: 0.1}, lead.Envelope)

		assert.Equal(t, Signal{"square"}, track.Channels["pad"].Signal, path)
	}
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = Load(write(t, "bad.json", `{"x": {"tracks": {"t": {"channels": {"c": {"signal": 3}}}}}}`))
	assert.Error(t, err)

	_, err = Load(write(t, "bad.toml", "[x.tracks.t.channels.c]\nsignal = 3\n"))
	assert.Error(t, err)
}

func TestBuild(t *testing.T) {
	root, err := Load(write(t, "song.json", jsonSong))
	require.NoError(t, err)
	track, err := root["First Light"].Tracks["intro"].Build(44100, "")
	require.NoError(t, err)

	assert.Equal(t, 90, track.BPM)
	assert.Equal(t, 44100, track.Rate)
	require.Len(t, track.Channels, 2)

	lead, pad := track.Channels[0], track.Channels[1]
	assert.Equal(t, "lead", lead.Name)
	assert.Equal(t, "pad", pad.Name)
	assert.Equal(t, 3, lead.Score.Size())
	assert.Equal(t, 0.8, lead.Gain)
	assert.Equal(t, &audio.Envelope{Attack: 0.01, Release: 0.1}, lead.Envelope)
	assert.Equal(t, audio.Expression{Body: "a*sin(2*pi*f*t)", Defs: []string{"a = 0.5"}}, lead.Instrument)

	square, err := audio.LoadPreset("square")
	require.NoError(t, err)
	assert.Equal(t, square, pad.Instrument)
	assert.Equal(t, DefaultTuning, pad.Tuning)
	assert.Equal(t, 1.0, pad.Gain)
	assert.Equal(t, len([]rune(DefaultSet)), pad.Score.Size())
}

func TestBuildErrors(t *testing.T) {
	tests := []*Track{
		{},
		{Channels: map[string]*Channel{"c": {Score: "x"}}},
		{Channels: map[string]*Channel{"c": {Score: "a", Signal: Signal{"sin("}}}},
		{Channels: map[string]*Channel{"c": {Score: "a", Signal: Signal{"sine"}, Sample: &Sample{Path: "x.wav"}}}},
		{Channels: map[string]*Channel{"c": {Score: "a", Sample: &Sample{Path: "missing.wav"}}}},
		{Channels: map[string]*Channel{"c": nil}},
	}
	for i, track := range tests {
		_, err := track.Build(audio.DefaultRate, t.TempDir())
		assert.Error(t, err, "%d", i)
	}

	_, err := (&Track{Channels: map[string]*Channel{"c": {Score: "a ("}}}).Build(audio.DefaultRate, "")
	var perr *mask.ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestBuildSample(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, audio.SaveWAV(filepath.Join(dir, "kick.wav"), []float32{0.5, 0.25, 0}, 48000))

	track := &Track{
		BPM: 60,
		Channels: map[string]*Channel{
			"drums": {Score: "a", Sample: &Sample{Path: "kick.wav", Root: 440, Loop: true}},
		},
	}
	built, err := track.Build(48000, dir)
	require.NoError(t, err)
	sample, ok := built.Channels[0].Instrument.(*audio.Sample)
	require.True(t, ok)
	assert.Equal(t, 3, sample.Sound.Len())
	assert.Equal(t, 440.0, sample.Root)
	assert.True(t, sample.Loop)
}

func TestDefault(t *testing.T) {
	track, err := Default().Build(audio.DefaultRate, "")
	require.NoError(t, err)
	require.Len(t, track.Channels, 1)
	assert.Equal(t, DefaultBPM, track.BPM)
	assert.Equal(t, DefaultTuning, track.Channels[0].Tuning)
}

func TestSaveRoundTrip(t *testing.T) {
	volume := 0.5
	root := Root{
		"Album": {
			Artist: "Someone",
			Tracks: map[string]*Track{
				"one": Default(),
				"two": {BPM: 60, Channels: map[string]*Channel{
					"x": {Signal: Signal{"a*t", "a = 2"}, Score: "a", Volume: &volume},
				}},
			},
		},
	}
	for _, name := range []string{"song.json", "song.toml"} {
		path := filepath.Join(t.TempDir(), name)
		require.NoError(t, root.Save(path))
		loaded, err := Load(path)
		require.NoError(t, err, name)
		assert.Equal(t, root, loaded, name)
	}
}

func TestParseTrack(t *testing.T) {
	track, err := ParseTrack([]byte(`{"bpm": 100, "channels": {"a": {"score": "c d e"}}}`))
	require.NoError(t, err)
	assert.Equal(t, 100, track.BPM)
	assert.Equal(t, "c d e", track.Channels["a"].Score)

	_, err = ParseTrack([]byte(`{"tempo": 100}`))
	assert.Error(t, err)
}

func TestSignalExpression(t *testing.T) {
	sine, err := audio.LoadPreset("sine")
	require.NoError(t, err)
	tests := []struct {
		signal Signal
		want   audio.Expression
	}{
		{nil, audio.Expression{Body: DefaultSignal}},
		{Signal{"sine"}, sine},
		{Signal{"t*f"}, audio.Expression{Body: "t*f", Defs: []string{}}},
		{Signal{"a = 1", "a"}, audio.Expression{Body: "a", Defs: []string{"a = 1"}}},
		{Signal{"a = 2", "f(x) = a*x", "sin(f(2)*pi*f*t)"}, audio.Expression{
			Body: "sin(f(2)*pi*f*t)",
			Defs: []string{"a = 2", "f(x) = a*x"},
		}},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, test.signal.Expression())
	}
}
