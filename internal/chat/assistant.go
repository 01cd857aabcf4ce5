package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"github.com/jonathan/resume-manager/internal/llm"
	"github.com/jonathan/resume-manager/internal/prompts"
	"github.com/jonathan/resume-manager/internal/types"
)

const appName = "resume-assistant"

// BulletGenerator produces tailored bullet points for a job title. The
// assistant delegates to it when a turn asks for bullet generation.
type BulletGenerator interface {
	GenerateBullets(ctx context.Context, job string) ([]string, error)
}

// toolCall is the envelope the agent emits instead of writing bullets
// itself. Anything that does not decode into this shape is a plain reply.
type toolCall struct {
	Action string `json:"action"`
	Job    string `json:"job"`
}

// Assistant is the conversational resume helper. Each user turn runs
// through the agent; bullet-generation requests are detected in the
// agent's reply and routed to the generator.
type Assistant struct {
	runner    *runner.Runner
	sessions  session.Service
	registry  *Registry
	generator BulletGenerator
	logger    *zap.Logger
}

// AssistantConfig configures a new Assistant.
type AssistantConfig struct {
	APIKey      string
	Model       string // defaults to the advanced-tier model
	SessionTTL  time.Duration
	MaxSessions int
	Generator   BulletGenerator
}

// NewAssistant builds the agent, runner, and session registry.
func NewAssistant(ctx context.Context, cfg AssistantConfig, logger *zap.Logger) (*Assistant, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Model == "" {
		cfg.Model = llm.DefaultConfig().GetModel(llm.TierAdvanced)
	}

	model, err := gemini.NewModel(ctx, cfg.Model, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}

	assistantAgent, err := llmagent.New(llmagent.Config{
		Name:        appName,
		Model:       model,
		Description: "Resume writing and tailoring assistant",
		Instruction: prompts.MustGet("chat.json", "assistant-instruction"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}

	sessionService := session.InMemoryService()

	r, err := runner.New(runner.Config{
		AppName:        assistantAgent.Name(),
		Agent:          assistantAgent,
		SessionService: sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}

	a := &Assistant{
		runner:    r,
		sessions:  sessionService,
		generator: cfg.Generator,
		logger:    logger,
	}
	a.registry = NewRegistry(cfg.SessionTTL, cfg.MaxSessions, a.dropSession)
	return a, nil
}

// Close stops the session sweeper.
func (a *Assistant) Close() {
	a.registry.Stop()
}

// Chat runs one turn of the conversation. An empty sessionID starts a new
// conversation; the minted ID is returned for subsequent turns. An unknown
// or expired sessionID is an error so the client knows its history is gone.
func (a *Assistant) Chat(ctx context.Context, userID, sessionID, message string) (*types.ChatResponse, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("message is empty")
	}

	if sessionID == "" {
		sessionID = uuid.NewString()
		if _, err := a.sessions.Create(ctx, &session.CreateRequest{
			AppName:   appName,
			UserID:    userID,
			SessionID: sessionID,
		}); err != nil {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
		a.registry.Add(sessionID, userID)
	} else if !a.registry.Touch(sessionID) {
		return nil, &SessionExpiredError{SessionID: sessionID}
	}

	reply, err := a.run(ctx, userID, sessionID, message)
	if err != nil {
		return nil, err
	}

	resp := &types.ChatResponse{
		SessionID: sessionID,
		Reply:     reply,
		CreatedAt: time.Now().UTC(),
	}

	if call, ok := parseToolCall(reply); ok {
		bullets, err := a.generator.GenerateBullets(ctx, call.Job)
		if err != nil {
			return nil, fmt.Errorf("bullet generation failed: %w", err)
		}
		resp.Bullets = bullets
		resp.Reply = renderBulletReply(call.Job, bullets)
		a.logger.Info("chat turn invoked bullet generation",
			zap.String("session_id", sessionID),
			zap.String("job", call.Job))
	}

	return resp, nil
}

// run streams one agent turn and returns the final response text.
func (a *Assistant) run(ctx context.Context, userID, sessionID, message string) (string, error) {
	stream := a.runner.Run(ctx, userID, sessionID, &genai.Content{
		Role: "user",
		Parts: []*genai.Part{
			{Text: message},
		},
	}, agent.RunConfig{})

	var output string
	for event, err := range stream {
		if err != nil {
			return "", fmt.Errorf("agent stream failed: %w", err)
		}
		if event != nil && event.IsFinalResponse() && len(event.Content.Parts) > 0 {
			output = event.Content.Parts[0].Text
		}
	}

	if output == "" {
		return "", fmt.Errorf("empty agent response")
	}
	return output, nil
}

// dropSession removes expired or evicted sessions from the session service.
func (a *Assistant) dropSession(userID, sessionID string) {
	err := a.sessions.Delete(context.Background(), &session.DeleteRequest{
		AppName:   appName,
		UserID:    userID,
		SessionID: sessionID,
	})
	if err != nil {
		a.logger.Warn("failed to delete expired session",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}
}

// SessionExpiredError indicates the referenced conversation no longer
// exists; the client should start a new one.
type SessionExpiredError struct {
	SessionID string
}

func (e *SessionExpiredError) Error() string {
	return fmt.Sprintf("chat session %s not found or expired", e.SessionID)
}

// parseToolCall reports whether the agent's reply is a bullet-generation
// request.
func parseToolCall(reply string) (*toolCall, bool) {
	cleaned := llm.CleanJSONBlock(reply)
	if !strings.HasPrefix(cleaned, "{") {
		return nil, false
	}
	var call toolCall
	if err := json.Unmarshal([]byte(cleaned), &call); err != nil {
		return nil, false
	}
	if call.Action != "generate_bullets" || strings.TrimSpace(call.Job) == "" {
		return nil, false
	}
	return &call, true
}

func renderBulletReply(job string, bullets []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Here are tailored bullet points for %s:\n", job)
	for _, b := range bullets {
		sb.WriteString("- ")
		sb.WriteString(b)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
