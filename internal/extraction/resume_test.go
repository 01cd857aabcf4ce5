package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-manager/internal/llm"
	"github.com/jonathan/resume-manager/internal/schemas"
)

type mockLLMClient struct {
	GenerateJSONFunc func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
}

func (m *mockLLMClient) GenerateContent(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
	return "", nil
}

func (m *mockLLMClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, prompt, tier)
	}
	return "{}", nil
}

func (m *mockLLMClient) GetModel(_ llm.ModelTier) string { return "mock-model" }

func (m *mockLLMClient) Close() error { return nil }

const profileJSON = `{
  "name": "Jordan Smith",
  "email": "jordan@example.com",
  "skills": ["Go", "PostgreSQL"],
  "experiences": [
    {"company": "Acme", "title": "Engineer", "bullets": ["Built the billing service"]}
  ]
}`

func TestExtractProfile(t *testing.T) {
	var seenPrompt string
	var seenTier llm.ModelTier
	client := &mockLLMClient{
		GenerateJSONFunc: func(_ context.Context, prompt string, tier llm.ModelTier) (string, error) {
			seenPrompt = prompt
			seenTier = tier
			return profileJSON, nil
		},
	}

	e := NewExtractor(client, nil)
	profile, err := e.ExtractProfile(context.Background(), "Jordan Smith\nEngineer at Acme\nGo, PostgreSQL")

	require.NoError(t, err)
	assert.Equal(t, "Jordan Smith", profile.Name)
	assert.Equal(t, []string{"Go", "PostgreSQL"}, profile.Skills)
	require.Len(t, profile.Experiences, 1)
	assert.Equal(t, "Acme", profile.Experiences[0].Company)

	assert.Equal(t, llm.TierLite, seenTier)
	assert.Contains(t, seenPrompt, "Jordan Smith\nEngineer at Acme")
	assert.NotContains(t, seenPrompt, "{{.Text}}", "placeholder must be substituted")
}

func TestExtractProfile_StripsCodeFence(t *testing.T) {
	client := &mockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			return "```json\n" + profileJSON + "\n```", nil
		},
	}

	e := NewExtractor(client, nil)
	profile, err := e.ExtractProfile(context.Background(), "resume text")

	require.NoError(t, err)
	assert.Equal(t, "Jordan Smith", profile.Name)
}

func TestExtractProfile_SchemaRejection(t *testing.T) {
	client := &mockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			// name is required by the schema
			return `{"skills": [], "experiences": []}`, nil
		},
	}

	e := NewExtractor(client, nil)
	_, err := e.ExtractProfile(context.Background(), "resume text")

	require.Error(t, err)
	var ve *schemas.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestExtractProfile_ModelError(t *testing.T) {
	client := &mockLLMClient{
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			return "", errors.New("quota exhausted")
		},
	}

	e := NewExtractor(client, nil)
	_, err := e.ExtractProfile(context.Background(), "resume text")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "profile extraction failed")
}

func TestExtractProfile_EmptyText(t *testing.T) {
	e := NewExtractor(&mockLLMClient{}, nil)

	_, err := e.ExtractProfile(context.Background(), "   \n  ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resume text is empty")
}

func TestText_Plain(t *testing.T) {
	out, err := Text(MimePlain, []byte("plain resume text"))
	require.NoError(t, err)
	assert.Equal(t, "plain resume text", out)
}

func TestText_UnsupportedType(t *testing.T) {
	_, err := Text("image/png", []byte{0x89, 0x50})

	var unsupported *UnsupportedTypeError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "image/png", unsupported.MimeType)
}

func TestText_CorruptPDF(t *testing.T) {
	_, err := Text(MimePDF, []byte("not a pdf"))
	require.Error(t, err)
}

func TestText_CorruptDocx(t *testing.T) {
	_, err := Text(MimeDocx, []byte("not a docx"))
	require.Error(t, err)
}
