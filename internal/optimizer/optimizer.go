package optimizer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/resume-manager/internal/llm"
	"github.com/jonathan/resume-manager/internal/prompts"
)

// forcedPassPrefix marks feedback retained for a bullet whose failing grade
// was overridden at the iteration cap.
const forcedPassPrefix = "Forced pass after 5 iterations. Original feedback: "

// missingBulletFeedback is recorded for slots the generator left empty.
const missingBulletFeedback = "Missing bullet point. Please generate a complete bullet point."

// evaluation is the structured verdict expected from the evaluator model.
type evaluation struct {
	Grade    string `json:"grade"`
	Feedback string `json:"feedback"`
}

// Optimizer runs the bullet-point generate/evaluate loop. The LLM client is
// injected at construction; the optimizer holds no other state and is safe
// for concurrent use, with each Optimize call owning its own state.
type Optimizer struct {
	client llm.Client
	logger *zap.Logger

	// OnIteration, when set, receives a snapshot of the state after each
	// evaluation pass. Used by the streaming API to report progress.
	OnIteration func(*OptimizationState)
}

// New creates an Optimizer using the given LLM client.
func New(client llm.Client, logger *zap.Logger) *Optimizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Optimizer{client: client, logger: logger}
}

// Optimize produces exactly BulletCount bullet points for the job title,
// regenerating failed bullets with evaluator feedback until all pass or
// MaxIterations is reached. At the cap, failing grades are forced to pass so
// the call always returns a complete state. Any LLM failure aborts the call;
// no partial state is returned.
func (o *Optimizer) Optimize(ctx context.Context, job string) (*OptimizationState, error) {
	if strings.TrimSpace(job) == "" {
		return nil, fmt.Errorf("job title is required")
	}

	state := NewState(job)

	for {
		if err := o.generate(ctx, state); err != nil {
			return nil, fmt.Errorf("iteration %d: %w", state.IterationCount, err)
		}
		if err := o.evaluate(ctx, state); err != nil {
			return nil, fmt.Errorf("iteration %d: %w", state.IterationCount, err)
		}

		o.logger.Debug("optimizer iteration complete",
			zap.String("job", job),
			zap.Int("iteration", state.IterationCount),
			zap.Int("failed", state.FailedCount()))

		if o.OnIteration != nil {
			o.OnIteration(state.snapshot())
		}

		if state.AllPassed() || state.IterationCount >= MaxIterations {
			return state, nil
		}
	}
}

// generate runs one text-generation call and extracts four bullets from it.
// From the second iteration onward the prompt carries the prior iteration's
// feedback, tagged by bullet index. At the iteration cap, slots the
// extraction left empty are filled with one single-bullet call each.
func (o *Optimizer) generate(ctx context.Context, state *OptimizationState) error {
	state.IterationCount++

	template := prompts.MustGet("optimizer.json", "generate-experience")
	prompt := prompts.Format(template, map[string]string{"Job": state.Job})

	if state.IterationCount > 1 && hasFeedback(state.Feedback) {
		var sb strings.Builder
		sb.WriteString(prompt)
		sb.WriteString(prompts.MustGet("optimizer.json", "generate-feedback-header"))
		for i, fb := range state.Feedback {
			if fb != "" {
				fmt.Fprintf(&sb, "- Bullet point %d: %s\n", i+1, fb)
			}
		}
		prompt = sb.String()
	}

	text, err := o.client.GenerateContent(ctx, prompt, llm.TierStandard)
	if err != nil {
		return fmt.Errorf("bullet generation failed: %w", err)
	}

	state.Experience = strings.TrimSpace(text)
	state.BulletPoints = ExtractBulletPoints(state.Experience)

	if state.IterationCount >= MaxIterations {
		if err := o.fillEmptySlots(ctx, state); err != nil {
			return err
		}
	}

	state.resetEvaluation()
	return nil
}

// fillEmptySlots issues one direct generation call per empty bullet slot.
func (o *Optimizer) fillEmptySlots(ctx context.Context, state *OptimizationState) error {
	template := prompts.MustGet("optimizer.json", "generate-single-bullet")
	prompt := prompts.Format(template, map[string]string{"Job": state.Job})

	for i, bp := range state.BulletPoints {
		if bp != "" {
			continue
		}
		text, err := o.client.GenerateContent(ctx, prompt, llm.TierLite)
		if err != nil {
			return fmt.Errorf("single bullet generation failed for slot %d: %w", i+1, err)
		}
		state.BulletPoints[i] = strings.TrimSpace(text)
	}
	return nil
}

// evaluate grades each bullet against the rubric via one structured call per
// bullet. Empty bullets fail without an LLM call. At the iteration cap the
// recorded grade is forced to pass while the evaluator's feedback is kept
// for observability.
func (o *Optimizer) evaluate(ctx context.Context, state *OptimizationState) error {
	template := prompts.MustGet("optimizer.json", "evaluate-bullet")

	for i, bp := range state.BulletPoints {
		if bp == "" {
			state.Grades[i] = GradeFail
			state.Feedback[i] = missingBulletFeedback
			continue
		}

		prompt := prompts.Format(template, map[string]string{
			"Job":    state.Job,
			"Bullet": bp,
		})

		jsonResp, err := o.client.GenerateJSON(ctx, prompt, llm.TierStandard)
		if err != nil {
			return fmt.Errorf("bullet evaluation failed: %w", err)
		}

		var result evaluation
		if err := json.Unmarshal([]byte(llm.CleanJSONBlock(jsonResp)), &result); err != nil {
			return fmt.Errorf("failed to parse evaluation response: %w (content: %s)", err, jsonResp)
		}

		grade := Grade(strings.ToLower(strings.TrimSpace(result.Grade)))
		if grade != GradePass && grade != GradeFail {
			return fmt.Errorf("evaluator returned invalid grade %q", result.Grade)
		}

		if state.IterationCount >= MaxIterations {
			state.Grades[i] = GradePass
			if grade == GradeFail {
				state.Feedback[i] = forcedPassPrefix + result.Feedback
			} else {
				state.Feedback[i] = result.Feedback
			}
			continue
		}

		state.Grades[i] = grade
		state.Feedback[i] = result.Feedback
	}

	return nil
}

// hasFeedback reports whether any feedback entry is non-empty.
func hasFeedback(feedback []string) bool {
	for _, fb := range feedback {
		if fb != "" {
			return true
		}
	}
	return false
}
