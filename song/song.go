// Package song reads song documents: albums of tracks made of channels, each
// channel a score for one instrument.
package song

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/mrdg/bleeper/audio"
	"github.com/mrdg/bleeper/mask"
	"github.com/pkg/errors"
)

const (
	DefaultBPM    = 120
	DefaultSet    = "aAbcCdDefFgG"
	DefaultTuning = 442.0
	DefaultSignal = "sin(2*pi*f*t)"
	DefaultScore  = "cccd'ed`cedd''c"
)

// Root maps album names to albums.
type Root map[string]*Album

type Album struct {
	Artist string            `json:"artist" toml:"artist"`
	Tracks map[string]*Track `json:"tracks" toml:"tracks"`
}

type Track struct {
	BPM      int                 `json:"bpm,omitempty" toml:"bpm,omitempty"`
	Channels map[string]*Channel `json:"channels" toml:"channels"`
}

type Channel struct {
	Signal   Signal    `json:"signal,omitempty" toml:"signal,omitempty"`
	Sample   *Sample   `json:"sample,omitempty" toml:"sample,omitempty"`
	Set      string    `json:"set,omitempty" toml:"set,omitempty"`
	Score    string    `json:"score" toml:"score"`
	Tuning   float64   `json:"tuning,omitempty" toml:"tuning,omitempty"`
	Volume   *float64  `json:"volume,omitempty" toml:"volume,omitempty"`
	Envelope *Envelope `json:"envelope,omitempty" toml:"envelope,omitempty"`
}

type Sample struct {
	Path string  `json:"path" toml:"path"`
	Root float64 `json:"root,omitempty" toml:"root,omitempty"`
	Loop bool    `json:"loop,omitempty" toml:"loop,omitempty"`
}

type Envelope struct {
	Attack  float64 `json:"attack,omitempty" toml:"attack,omitempty"`
	Release float64 `json:"release,omitempty" toml:"release,omitempty"`
}

// Signal is a signal expression, or a preset name, optionally preceded by
// "name = expr" or "name(x) = expr" definitions. Documents may write it as a single string or as
// a list of strings.
type Signal []string

func (s *Signal) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = Signal{str}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return errors.New("signal must be a string or a list of strings")
	}
	*s = list
	return nil
}

func (s Signal) MarshalJSON() ([]byte, error) {
	if len(s) == 1 {
		return json.Marshal(s[0])
	}
	return json.Marshal([]string(s))
}

func (s *Signal) UnmarshalTOML(v interface{}) error {
	switch v := v.(type) {
	case string:
		*s = Signal{v}
		return nil
	case []interface{}:
		list := make(Signal, len(v))
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return errors.Errorf("signal: item %d is not a string: %v", i, item)
			}
			list[i] = str
		}
		*s = list
		return nil
	}
	return errors.Errorf("signal must be a string or a list of strings, got %T", v)
}

// MarshalTOML writes JSON strings, which TOML reads as basic strings.
func (s Signal) MarshalTOML() ([]byte, error) {
	return s.MarshalJSON()
}

// Expression resolves the signal into an expression. A single preset name
// resolves to the preset.
func (s Signal) Expression() audio.Expression {
	if len(s) == 0 || strings.TrimSpace(s[len(s)-1]) == "" {
		return audio.Expression{Body: DefaultSignal}
	}
	if len(s) == 1 {
		if p, err := audio.LoadPreset(strings.TrimSpace(s[0])); err == nil {
			return p
		}
	}
	return audio.Expression{Body: s[len(s)-1], Defs: s[:len(s)-1]}
}

// Default returns a track with a single channel playing the default score.
func Default() *Track {
	return &Track{
		BPM: DefaultBPM,
		Channels: map[string]*Channel{
			"default": {
				Signal: Signal{DefaultSignal},
				Set:    DefaultSet,
				Score:  DefaultScore,
				Tuning: DefaultTuning,
			},
		},
	}
}

// Load reads a document. The format is picked by the file extension: .toml
// for TOML, JSON otherwise.
func Load(path string) (Root, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	var root Root
	if isTOML(path) {
		_, err = toml.Decode(string(data), &root)
	} else {
		err = json.Unmarshal(data, &root)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return root, nil
}

// Save writes root to path in the format matching its extension.
func (r Root) Save(path string) error {
	var buf bytes.Buffer
	if isTOML(path) {
		if err := toml.NewEncoder(&buf).Encode(r); err != nil {
			return errors.Wrap(err, "encoding toml")
		}
	} else {
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return errors.Wrap(err, "encoding json")
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return errors.WithStack(os.WriteFile(path, buf.Bytes(), 0644))
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// ParseTrack reads a single track document in JSON.
func ParseTrack(data []byte) (*Track, error) {
	var t Track
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&t); err != nil {
		return nil, errors.Wrap(err, "parsing track")
	}
	return &t, nil
}

// Names returns the keys of m in order.
func Names[T any](m map[string]T) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build turns the track into channels ready to be decoded. Relative sample
// paths are resolved against dir. Channels are ordered by name.
func (t *Track) Build(rate int, dir string) (*audio.Track, error) {
	if len(t.Channels) == 0 {
		return nil, errors.New("track has no channels")
	}
	bpm := t.BPM
	if bpm == 0 {
		bpm = DefaultBPM
	}
	track := &audio.Track{BPM: bpm, Rate: rate}
	for _, name := range Names(t.Channels) {
		ch, err := t.Channels[name].Build(name, dir)
		if err != nil {
			return nil, err
		}
		track.Channels = append(track.Channels, ch)
	}
	return track, nil
}

// Build parses the score and sets up the instrument of the channel.
func (c *Channel) Build(name, dir string) (*audio.Channel, error) {
	if c == nil {
		return nil, errors.Errorf("channel %s: empty", name)
	}
	set := c.Set
	if set == "" {
		set = DefaultSet
	}
	score, err := mask.Parse(c.Score, set)
	if err != nil {
		return nil, errors.Wrapf(err, "channel %s: score", name)
	}
	inst, err := c.Instrument(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "channel %s", name)
	}
	tuning := c.Tuning
	if tuning == 0 {
		tuning = DefaultTuning
	}
	ch, err := audio.NewChannel(name, score, inst, tuning)
	if err != nil {
		return nil, err
	}
	if c.Volume != nil {
		ch.Gain = *c.Volume
	}
	if c.Envelope != nil {
		ch.Envelope = &audio.Envelope{Attack: c.Envelope.Attack, Release: c.Envelope.Release}
	}
	return ch, nil
}

// Instrument returns the sampler when a sample is configured and the signal
// expression otherwise.
func (c *Channel) Instrument(dir string) (audio.Instrument, error) {
	if c.Sample != nil {
		if len(c.Signal) > 0 {
			return nil, errors.New("both signal and sample are set")
		}
		path := c.Sample.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		snd, err := audio.LoadSound(path)
		if err != nil {
			return nil, errors.Wrap(err, "loading sample")
		}
		return &audio.Sample{Sound: snd, Root: c.Sample.Root, Loop: c.Sample.Loop}, nil
	}
	e := c.Signal.Expression()
	if err := e.Check(); err != nil {
		return nil, err
	}
	return e, nil
}
