package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/mrdg/bleeper/audio"
	"github.com/spf13/cobra"
)

var (
	sampleRate int
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "bleeper",
	Short: "Renders music written in mask notation",
	Long: `bleeper renders songs written in mask notation, a compact music macro
language, to WAV or MIDI files, or plays them on the default audio device.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().IntVar(&sampleRate, "rate", audio.DefaultRate, "sample rate in Hz")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output")
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	cobra.CheckErr(rootCmd.ExecuteContext(ctx))
}
