// Package main provides the entry point for the resume manager HTTP API
// server and its companion CLI commands.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "resume-manager",
	Short: "Resume manager HTTP API server",
	Long:  "Resume manager stores versioned resumes, optimizes bullet points against job titles, parses uploaded resume documents, and hosts a conversational resume assistant via REST API.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
