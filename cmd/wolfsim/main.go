package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "wolfsim",
		Short: "Play a game of Werewolf between AI agents in the terminal",
		Long:  "Runs one Werewolf game to completion with agents backed by a completion API (openai, ollama) or the offline random backend, printing every event as it happens.",
	}

	root.PersistentFlags().String("config", "", "YAML config file applied on top of the environment")
	root.PersistentFlags().String("provider", "", "Agent backend: random, openai or ollama (overrides DEFAULT_PROVIDER)")
	root.PersistentFlags().String("model", "", "Model for completion backends (overrides DEFAULT_MODEL)")
	root.PersistentFlags().Bool("verbose", false, "Log orchestration details to stderr")

	root.AddCommand(newPlayCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
