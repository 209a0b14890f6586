package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/kiliankoe/gptwolf/internal/agent"
	"github.com/kiliankoe/gptwolf/internal/config"
	"github.com/kiliankoe/gptwolf/internal/game"
	"github.com/kiliankoe/gptwolf/internal/render"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newPlayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play one game to the end",
		RunE:  runPlay,
	}
	cmd.Flags().Int("eliminators", 0, "Number of eliminators (default from ELIMINATORS or 2)")
	cmd.Flags().Int("bystanders", 0, "Number of bystanders (default from BYSTANDERS or 5)")
	cmd.Flags().Int64("seed", 0, "Random seed; 0 picks one")
	cmd.Flags().Bool("reveal", false, "Show roles and private night results as the game runs")
	cmd.Flags().String("export", "", "Write the finished transcript to this file")
	return cmd
}

func runPlay(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Root().PersistentFlags().GetString("config")
	provider, _ := cmd.Root().PersistentFlags().GetString("provider")
	model, _ := cmd.Root().PersistentFlags().GetString("model")
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	eliminators, _ := cmd.Flags().GetInt("eliminators")
	bystanders, _ := cmd.Flags().GetInt("bystanders")
	seed, _ := cmd.Flags().GetInt64("seed")
	reveal, _ := cmd.Flags().GetBool("reveal")
	export, _ := cmd.Flags().GetString("export")

	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).Level(level)

	cfg := config.FromEnv()
	if configFile != "" {
		if err := config.LoadFile(configFile, &cfg); err != nil {
			return err
		}
	}
	if provider != "" {
		cfg.DefaultProvider = provider
	}
	if model != "" {
		cfg.DefaultModel = model
	}
	if eliminators > 0 {
		cfg.Eliminators = eliminators
	}
	if bystanders > 0 {
		cfg.Bystanders = bystanders
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	opts, err := agent.Options(cfg, seed)
	if err != nil {
		return fmt.Errorf("agents: %w", err)
	}
	sess := game.NewSession(opts)
	out := cmd.OutOrStdout()
	sess.OnLog = func(e game.LogEntry) {
		if line := render.Entry(e, reveal); line != "" {
			fmt.Fprintln(out, line)
		}
	}

	gameCfg := game.GameConfig{EliminatorCount: cfg.Eliminators, BystanderCount: cfg.Bystanders}
	if err := gameCfg.Validate(); err != nil {
		return err
	}
	if err := sess.SetupGame(gameCfg); err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	fmt.Fprintf(out, "Seed %d, backend %s\n%s\n", seed, cfg.DefaultProvider, render.Roster(sess.Roster(), reveal))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := sess.Run(ctx); err != nil {
		return fmt.Errorf("game: %w", err)
	}

	st := sess.State()
	fmt.Fprintln(out, render.Winner(st.Winner, st.Day))
	fmt.Fprintln(out, render.Roster(st.Players, true))

	if export != "" {
		if err := os.WriteFile(export, []byte(game.Transcript("cli", st, false)), 0644); err != nil {
			return fmt.Errorf("export: %w", err)
		}
	}
	return nil
}
