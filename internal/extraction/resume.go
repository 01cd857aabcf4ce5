package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/resume-manager/internal/llm"
	"github.com/jonathan/resume-manager/internal/prompts"
	"github.com/jonathan/resume-manager/internal/schemas"
	"github.com/jonathan/resume-manager/internal/types"
)

// Extractor lifts raw resume text into a structured profile using a model
// call, then validates the output against the profile schema before it is
// decoded.
type Extractor struct {
	client llm.Client
	logger *zap.Logger
}

// NewExtractor creates an Extractor. A nil logger is replaced with a no-op.
func NewExtractor(client llm.Client, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{client: client, logger: logger}
}

// ExtractProfile parses resume text into a ResumeProfile. Model output that
// fails schema validation is rejected rather than repaired.
func (e *Extractor) ExtractProfile(ctx context.Context, text string) (*types.ResumeProfile, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("resume text is empty")
	}

	template, err := prompts.Get("extraction.json", "extract-resume")
	if err != nil {
		return nil, fmt.Errorf("failed to load extraction prompt: %w", err)
	}
	prompt := prompts.Format(template, map[string]string{"Text": text})

	raw, err := e.client.GenerateJSON(ctx, prompt, llm.TierLite)
	if err != nil {
		return nil, fmt.Errorf("profile extraction failed: %w", err)
	}
	cleaned := llm.CleanJSONBlock(raw)

	if err := schemas.ValidateResumeProfile(cleaned); err != nil {
		e.logger.Warn("extracted profile rejected by schema", zap.Error(err))
		return nil, fmt.Errorf("extracted profile failed validation: %w", err)
	}

	var profile types.ResumeProfile
	if err := json.Unmarshal([]byte(cleaned), &profile); err != nil {
		return nil, fmt.Errorf("failed to decode extracted profile: %w", err)
	}

	e.logger.Debug("profile extracted",
		zap.String("name", profile.Name),
		zap.Int("skills", len(profile.Skills)),
		zap.Int("experiences", len(profile.Experiences)))

	return &profile, nil
}
