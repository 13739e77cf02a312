package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mrdg/bleeper/audio"
	"github.com/mrdg/bleeper/dub"
	"github.com/mrdg/bleeper/mask"
	"github.com/mrdg/bleeper/song"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(replCmd)
}

var replCmd = &cobra.Command{
	Use:   "repl [FILE]",
	Short: "Starts an interactive session",
	Long: `Starts an interactive session editing a single track. The track is read from
FILE when given and starts out as the default track otherwise. Type "help" for
the list of commands.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env := newEnv(cmd.Context())
		if len(args) == 1 {
			if _, err := env.eval(fmt.Sprintf("load %q", args[0])); err != nil {
				return err
			}
		}
		err := repl(env)
		if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
			return nil
		}
		return err
	},
}

type env struct {
	ctx   context.Context
	track *song.Track
	muted map[string]bool
	play  func(ctx context.Context, samples []float32) error
}

func newEnv(ctx context.Context) *env {
	return &env{
		ctx:   ctx,
		track: song.Default(),
		muted: make(map[string]bool),
		play: func(ctx context.Context, samples []float32) error {
			return audio.Play(ctx, samples, sampleRate)
		},
	}
}

func (e *env) channel(name string) (*song.Channel, error) {
	ch, ok := e.track.Channels[name]
	if !ok {
		return nil, fmt.Errorf("unknown channel: %s", name)
	}
	return ch, nil
}

// build returns the track without its muted channels.
func (e *env) build() (*audio.Track, error) {
	t := &song.Track{BPM: e.track.BPM, Channels: make(map[string]*song.Channel)}
	for name, ch := range e.track.Channels {
		if !e.muted[name] {
			t.Channels[name] = ch
		}
	}
	if len(t.Channels) == 0 {
		return nil, errors.New("all channels are muted")
	}
	return t.Build(sampleRate, ".")
}

func (e *env) eval(input string) (string, error) {
	command, err := dub.Parse(input)
	if err != nil {
		return "", err
	}
	name := string(command.Name)
	for _, cmd := range commands {
		if name != cmd.name {
			continue
		}
		if cmd.arity < 0 {
			arity := -cmd.arity
			if len(command.Args) < arity {
				return "", fmt.Errorf("%s: wrong number of arguments: need at least %v, got %v",
					cmd.name, arity, len(command.Args))
			}
		} else if len(command.Args) != cmd.arity {
			return "", fmt.Errorf("%s: wrong number of arguments: want %v, got %v",
				cmd.name, cmd.arity, len(command.Args))
		}
		result, err := cmd.run(e, command.Args)
		if err != nil {
			return result, fmt.Errorf("%s error: %w", cmd.name, err)
		}
		return result, nil
	}
	return "", fmt.Errorf("unknown command: %s", name)
}

func repl(env *env) error {
	rl, err := readline.New("> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == io.EOF || err == readline.ErrInterrupt {
			return err
		}
		if err != nil {
			fmt.Println(err)
			continue
		}
		if len(strings.TrimSpace(line)) == 0 {
			continue
		}
		if result, err := env.eval(line); err != nil {
			fmt.Println(err)
		} else if result != "" {
			fmt.Println(result)
		}
	}
}

type command struct {
	name  string
	run   func(*env, []dub.Node) (string, error)
	arity int // -n means len(args) must be >= n
	usage string
}

var commands []command

func init() {
	commands = []command{
		{"bpm", bpmCommand, 1, "bpm N"},
		{"channel", channelCommand, 1, "channel NAME"},
		{"remove", removeCommand, 1, "remove NAME"},
		{"score", scoreCommand, 2, `score NAME "SCORE"`},
		{"set", setCommand, 2, `set NAME "NOTES"`},
		{"signal", signalCommand, -2, `signal NAME ["DEF"...] "EXPR"`},
		{"tuning", tuningCommand, 2, "tuning NAME HZ"},
		{"volume", volumeCommand, 2, "volume NAME GAIN"},
		{"mute", muteCommand, 1, "mute 'SELECTOR"},
		{"show", showCommand, 0, "show"},
		{"play", playCommand, 0, "play"},
		{"save", saveCommand, 1, `save "FILE"`},
		{"load", loadCommand, -1, `load "FILE" [ALBUM TRACK]`},
		{"help", helpCommand, 0, "help"},
	}
}

func bpmCommand(env *env, args []dub.Node) (string, error) {
	var bpm int
	if err := readArgs(args, &bpm); err != nil {
		return "", err
	}
	if bpm <= 0 {
		return "", fmt.Errorf("bpm must be positive, got %d", bpm)
	}
	env.track.BPM = bpm
	return "", nil
}

func channelCommand(env *env, args []dub.Node) (string, error) {
	var name string
	if err := readArgs(args, &name); err != nil {
		return "", err
	}
	if _, ok := env.track.Channels[name]; ok {
		return "", fmt.Errorf("channel exists: %s", name)
	}
	ch := *song.Default().Channels["default"]
	env.track.Channels[name] = &ch
	return "", nil
}

func removeCommand(env *env, args []dub.Node) (string, error) {
	var name string
	if err := readArgs(args, &name); err != nil {
		return "", err
	}
	if _, err := env.channel(name); err != nil {
		return "", err
	}
	delete(env.track.Channels, name)
	delete(env.muted, name)
	return "", nil
}

func scoreCommand(env *env, args []dub.Node) (string, error) {
	var name, score string
	if err := readArgs(args, &name, &score); err != nil {
		return "", err
	}
	ch, err := env.channel(name)
	if err != nil {
		return "", err
	}
	s, err := mask.Parse(score, noteSet(ch))
	if err != nil {
		return "", err
	}
	ch.Score = score
	return s.String(), nil
}

func setCommand(env *env, args []dub.Node) (string, error) {
	var name, set string
	if err := readArgs(args, &name, &set); err != nil {
		return "", err
	}
	ch, err := env.channel(name)
	if err != nil {
		return "", err
	}
	if _, err := mask.Parse(ch.Score, set); err != nil {
		return "", fmt.Errorf("score does not fit the new set: %w", err)
	}
	ch.Set = set
	return "", nil
}

func signalCommand(env *env, args []dub.Node) (string, error) {
	var name string
	if err := readArgs(args[:1], &name); err != nil {
		return "", err
	}
	ch, err := env.channel(name)
	if err != nil {
		return "", err
	}
	var signal song.Signal
	for _, arg := range args[1:] {
		var s string
		if err := readArgs([]dub.Node{arg}, &s); err != nil {
			return "", err
		}
		signal = append(signal, s)
	}
	expr := signal.Expression()
	if err := expr.Check(); err != nil {
		return "", err
	}
	ch.Signal = signal
	ch.Sample = nil
	return expr.String(), nil
}

func tuningCommand(env *env, args []dub.Node) (string, error) {
	var name string
	var hz float64
	if err := readArgs(args, &name, &hz); err != nil {
		return "", err
	}
	ch, err := env.channel(name)
	if err != nil {
		return "", err
	}
	if hz <= 0 {
		return "", fmt.Errorf("tuning must be positive, got %v", hz)
	}
	ch.Tuning = hz
	return "", nil
}

func volumeCommand(env *env, args []dub.Node) (string, error) {
	var name string
	var gain float64
	if err := readArgs(args, &name, &gain); err != nil {
		return "", err
	}
	ch, err := env.channel(name)
	if err != nil {
		return "", err
	}
	if gain < 0 {
		return "", fmt.Errorf("volume must not be negative, got %v", gain)
	}
	ch.Volume = &gain
	return "", nil
}

// muteCommand toggles the channels at the selected positions, counted in
// name order.
func muteCommand(env *env, args []dub.Node) (string, error) {
	var sel dub.Selector
	if err := readArgs(args, &sel); err != nil {
		return "", err
	}
	names := song.Names(env.track.Channels)
	positions, err := sel.Select(len(names))
	if err != nil {
		return "", err
	}
	for _, i := range positions {
		name := names[i-1]
		env.muted[name] = !env.muted[name]
	}
	return "", nil
}

func showCommand(env *env, args []dub.Node) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "bpm %d", env.track.BPM)
	for i, name := range song.Names(env.track.Channels) {
		ch := env.track.Channels[name]
		state := ""
		if env.muted[name] {
			state = " (muted)"
		}
		fmt.Fprintf(&b, "\n%d %s%s: %s", i+1, name, state, ch.Score)
	}
	return b.String(), nil
}

func playCommand(env *env, args []dub.Node) (string, error) {
	track, err := env.build()
	if err != nil {
		return "", err
	}
	samples, err := track.Render(env.ctx)
	if err != nil {
		return "", err
	}
	return "", env.play(env.ctx, samples)
}

func saveCommand(env *env, args []dub.Node) (string, error) {
	var file string
	if err := readArgs(args, &file); err != nil {
		return "", err
	}
	root := song.Root{
		"session": &song.Album{Tracks: map[string]*song.Track{"session": env.track}},
	}
	return "", root.Save(file)
}

func loadCommand(env *env, args []dub.Node) (string, error) {
	var file string
	if err := readArgs(args[:1], &file); err != nil {
		return "", err
	}
	var sel selection
	switch len(args) {
	case 1:
	case 3:
		if err := readArgs(args[1:], &sel.album, &sel.track); err != nil {
			return "", err
		}
	default:
		return "", errors.New("need a file, optionally followed by album and track")
	}
	root, err := song.Load(file)
	if err != nil {
		return "", err
	}
	entries, err := sel.tracks(root)
	if err != nil {
		return "", err
	}
	e := entries[0]
	if e.track == nil || len(e.track.Channels) == 0 {
		return "", fmt.Errorf("%s: track has no channels", e)
	}
	env.track = e.track
	if env.track.BPM == 0 {
		env.track.BPM = song.DefaultBPM
	}
	env.muted = make(map[string]bool)
	return "loaded " + e.String(), nil
}

func helpCommand(env *env, args []dub.Node) (string, error) {
	usage := make([]string, len(commands))
	for i, cmd := range commands {
		usage[i] = cmd.usage
	}
	return strings.Join(usage, "\n"), nil
}

func noteSet(ch *song.Channel) string {
	if ch.Set == "" {
		return song.DefaultSet
	}
	return ch.Set
}

func readArgs(args []dub.Node, slots ...interface{}) error {
	if len(args) != len(slots) {
		return errors.New("not enough arguments")
	}
	for n, arg := range args {
		dest := slots[n]
		switch p := dest.(type) {
		case *string:
			switch s := arg.(type) {
			case dub.String:
				*p = string(s)
			case dub.Identifier:
				*p = string(s)
			default:
				return fmt.Errorf("argument error: expected a string or identifier")
			}
		case *float64:
			switch v := arg.(type) {
			case dub.Float:
				*p = float64(v)
			case dub.Int:
				*p = float64(v)
			default:
				return fmt.Errorf("argument error: expected a number")
			}
		case *int:
			n, ok := arg.(dub.Int)
			if !ok {
				return fmt.Errorf("argument error: expected an integer")
			}
			*p = int(n)
		case *dub.Selector:
			sel, ok := arg.(dub.Selector)
			if !ok {
				return fmt.Errorf("argument error: expected a channel selector")
			}
			*p = sel
		default:
			panic("readArgs: unhandled destination type: " + fmt.Sprint(p))
		}
	}
	return nil
}
