package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-manager/internal/llm"
	"github.com/jonathan/resume-manager/internal/logger"
	"github.com/jonathan/resume-manager/internal/optimizer"
)

var (
	optimizeJob     string
	optimizeAsJSON  bool
	optimizeVerbose bool
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Generate optimized bullet points for a job title",
	Long:  `Run the generate/evaluate loop against the Gemini API and print the resulting bullet points. Useful for trying prompts without starting the server.`,
	RunE:  runOptimize,
}

func init() {
	optimizeCmd.Flags().StringVarP(&optimizeJob, "job", "j", "", "Job title to optimize for (required)")
	optimizeCmd.Flags().BoolVar(&optimizeAsJSON, "json", false, "Print the full optimization state as JSON")
	optimizeCmd.Flags().BoolVarP(&optimizeVerbose, "verbose", "v", false, "Print each iteration's grades and feedback")
	_ = optimizeCmd.MarkFlagRequired("job")
	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(_ *cobra.Command, _ []string) error {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	log, err := logger.New(false, optimizeVerbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	client, err := llm.NewClient(ctx, nil, apiKey)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer func() { _ = client.Close() }()

	opt := optimizer.New(client, log)
	if optimizeVerbose {
		opt.OnIteration = func(state *optimizer.OptimizationState) {
			fmt.Fprintf(os.Stderr, "iteration %d: grades=%v\n", state.IterationCount, state.Grades)
		}
	}

	state, err := opt.Optimize(ctx, optimizeJob)
	if err != nil {
		return fmt.Errorf("optimization failed: %w", err)
	}

	if optimizeAsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	}

	for _, bp := range state.BulletPoints {
		fmt.Printf("- %s\n", bp)
	}
	return nil
}
