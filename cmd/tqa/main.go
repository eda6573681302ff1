// Command tqa answers a natural-language question over a single table by
// searching the space of reasoning trajectories and debating the candidates.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"tqa/config"
	"tqa/engine"
	"tqa/table"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		tablePath  string
		question   string
		configPath string
		iterations int
		noDebate   bool
		showTrace  bool
	)

	cmd := &cobra.Command{
		Use:   "tqa",
		Short: "Answer a question over a table via trajectory search",
		Long: `tqa reads a table (markdown, CSV, TSV or aligned text), searches for
reasoning trajectories that answer the question, and selects the final answer
through a panel of independent critics.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("iterations") {
				cfg.Search.Iterations = iterations
			}
			if noDebate {
				cfg.Debate.Enabled = false
			}
			setupLogging(cfg.Log)

			t, err := readTable(tablePath)
			if err != nil {
				return err
			}
			if strings.TrimSpace(question) == "" {
				return fmt.Errorf("--question is required")
			}

			eng, err := engine.New(cfg)
			if err != nil {
				return err
			}

			result, err := eng.Answer(cmd.Context(), question, t)
			if err != nil {
				return err
			}

			fmt.Printf("answer: %v\n", result.Answer)
			fmt.Printf("score: %.3f (from %d candidate traces)\n", result.Score, result.Candidates)
			if showTrace {
				fmt.Println("trace:")
				fmt.Println(result.Trace.Summary(0))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&tablePath, "table", "t", "-", "table file, or - for stdin")
	cmd.Flags().StringVarP(&question, "question", "q", "", "question to answer")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	cmd.Flags().IntVarP(&iterations, "iterations", "n", 0, "search iteration budget override")
	cmd.Flags().BoolVar(&noDebate, "no-debate", false, "skip the critic panel, use search scores")
	cmd.Flags().BoolVar(&showTrace, "trace", false, "print the winning trace")

	return cmd
}

func readTable(path string) (*table.Table, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}
	return table.ParseText(string(data))
}

func setupLogging(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
