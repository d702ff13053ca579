package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mlange/insight/pkg/clients"
	"github.com/mlange/insight/pkg/config"
	"github.com/mlange/insight/pkg/profiles"
	"github.com/mlange/insight/pkg/reports"
	"github.com/mlange/insight/pkg/research"
	"github.com/mlange/insight/pkg/research/tools"
	"github.com/spf13/cobra"
)

var (
	query         string
	industry      string
	maxIterations int
)

func main() {
	handler := slog.NewTextHandler(os.Stderr, nil)
	slog.SetDefault(slog.New(handler))

	if err := godotenv.Load(); err != nil {
		// Fine without a .env file, as long as env vars are set.
	}

	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:   "insight",
		Short: "A terminal-based industry research agent",
		Long:  `Insight researches a question by iterating through a plan-search-reflect loop over web evidence, then writes a synthesized report to stdout and a file.`,
		Run: func(cmd *cobra.Command, args []string) {
			if !cmd.Flags().Changed("query") {
				// Interactive mode
				reader := bufio.NewReader(os.Stdin)

				fmt.Print("Enter research question: ")
				input, _ := reader.ReadString('\n')
				query = strings.TrimSpace(input)
				if query == "" {
					slog.Error("Question cannot be empty")
					os.Exit(1)
				}

				fmt.Printf("Enter industry %v (default: %s): ", profiles.IDs(), industry)
				input, _ = reader.ReadString('\n')
				if input = strings.TrimSpace(input); input != "" {
					industry = input
				}
			} else if query == "" {
				slog.Error("--query flag provided but empty")
				os.Exit(1)
			}

			profile, ok := profiles.Get(industry)
			if !ok {
				slog.Error("Unknown industry", "industry", industry, "valid", profiles.IDs())
				os.Exit(1)
			}

			ctx := context.Background()

			reasoningLLM, err := clients.GoogleAI(ctx, cfg.GoogleApiKey, cfg.ReasoningModel)
			if err != nil {
				slog.Error("Failed to create reasoning client", "error", err)
				os.Exit(1)
			}
			synthesisLLM, err := clients.GoogleAI(ctx, cfg.GoogleApiKey, cfg.SynthesisModel)
			if err != nil {
				slog.Error("Failed to create synthesis client", "error", err)
				os.Exit(1)
			}
			reasoner := clients.NewReasoner(reasoningLLM, slog.Default())
			synthesizer := clients.NewReasoner(synthesisLLM, slog.Default())
			searcher := tools.NewWebSearch(cfg.SearchEndpoint, cfg.SearchApiKey)

			runCfg := research.Config{
				MaxIterations: cfg.MaxIterations,
				SearchCount:   cfg.SearchCount,
				SearchPacing:  cfg.SearchPacing,
			}
			if maxIterations > 0 {
				runCfg.MaxIterations = maxIterations
			}

			engine, err := research.NewEngine(runCfg, profile, searcher, reasoner, slog.Default())
			if err != nil {
				slog.Error("Error initializing engine", "error", err)
				os.Exit(1)
			}

			outcome, err := engine.Run(ctx, query)
			if err != nil {
				slog.Error("Error running research", "error", err)
				os.Exit(1)
			}

			slog.Info("Research complete, synthesizing report",
				"evidence", len(outcome.Evidence), "iterations", outcome.Iterations)

			var report strings.Builder
			for chunk, err := range synthesizer.StreamText(ctx, profile.SynthesizerSystemPrompt, outcome.SynthesisPrompt) {
				if err != nil {
					slog.Error("Synthesis failed", "error", err)
					os.Exit(1)
				}
				fmt.Print(chunk)
				report.WriteString(chunk)
			}
			fmt.Println()

			path, err := reports.Save(cfg.ReportsDir, profile, query, report.String())
			if err != nil {
				slog.Error("Failed to write report file", "error", err)
				os.Exit(1)
			}
			slog.Info("Report saved", "path", path)
		},
	}

	rootCmd.Flags().StringVarP(&query, "query", "q", "", "The research question")
	rootCmd.Flags().StringVarP(&industry, "industry", "i", "deepResearch", "The industry profile to use")
	rootCmd.Flags().IntVarP(&maxIterations, "max-iterations", "n", 0, "Override the iteration budget")

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}
