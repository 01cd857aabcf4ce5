package main

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-manager/internal/extraction"
	"github.com/jonathan/resume-manager/internal/llm"
	"github.com/jonathan/resume-manager/internal/logger"
)

var parseMimeType string

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Extract a structured resume profile from a document",
	Long:  `Read a PDF, DOCX, or plain-text resume, extract its text locally, and print the structured profile as JSON.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func init() {
	parseCmd.Flags().StringVar(&parseMimeType, "mime-type", "", "Override the MIME type inferred from the file extension")
	rootCmd.AddCommand(parseCmd)
}

func runParse(_ *cobra.Command, args []string) error {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	mimeType := parseMimeType
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(path))
	}
	if mimeType == "" {
		mimeType = extraction.MimePlain
	}
	// Strip parameters like "; charset=utf-8".
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = mt
	}

	text, err := extraction.Text(mimeType, data)
	if err != nil {
		return fmt.Errorf("failed to extract text: %w", err)
	}

	log, err := logger.New(false, false)
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

	profile, err := extraction.NewExtractor(client, log).ExtractProfile(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to extract profile: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(profile)
}
