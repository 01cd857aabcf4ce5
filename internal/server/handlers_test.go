package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonathan/resume-manager/internal/extraction"
	"github.com/jonathan/resume-manager/internal/llm"
	"github.com/jonathan/resume-manager/internal/optimizer"
	"github.com/jonathan/resume-manager/internal/server/middleware"
	"github.com/jonathan/resume-manager/internal/types"
)

// mockLLMClient implements llm.Client with function fields so each test can
// shape the model's responses.
type mockLLMClient struct {
	GenerateContentFunc func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
	GenerateJSONFunc    func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
}

func (m *mockLLMClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	if m.GenerateContentFunc != nil {
		return m.GenerateContentFunc(ctx, prompt, tier)
	}
	return "", fmt.Errorf("unexpected GenerateContent call")
}

func (m *mockLLMClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, prompt, tier)
	}
	return "", fmt.Errorf("unexpected GenerateJSON call")
}

func (m *mockLLMClient) GetModel(_ llm.ModelTier) string { return "mock-model" }

func (m *mockLLMClient) Close() error { return nil }

func newTestServer(client llm.Client) *Server {
	return &Server{
		logger:    zap.NewNop(),
		llmClient: client,
		extractor: extraction.NewExtractor(client, nil),
	}
}

// passingOptimizerClient answers the generate call with four bullets and
// grades everything pass, so the loop finishes in one iteration.
func passingOptimizerClient() *mockLLMClient {
	return &mockLLMClient{
		GenerateContentFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			return "- Shipped the billing service\n- Cut p99 latency by 40%\n- Led a team of five\n- Migrated storage to Postgres", nil
		},
		GenerateJSONFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			return `{"grade": "pass", "feedback": "strong"}`, nil
		},
	}
}

func withUser(r *http.Request, userID uuid.UUID) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.UserIDKey(), userID)
	return r.WithContext(ctx)
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(&mockLLMClient{})

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}

func TestHandleOptimize(t *testing.T) {
	s := newTestServer(passingOptimizerClient())

	body, _ := json.Marshal(types.OptimizeRequest{Job: "Senior Backend Engineer"})
	rec := httptest.NewRecorder()
	s.handleOptimize(rec, httptest.NewRequest("POST", "/optimize", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)

	var state optimizer.OptimizationState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, "Senior Backend Engineer", state.Job)
	assert.Len(t, state.BulletPoints, optimizer.BulletCount)
	assert.Equal(t, 1, state.IterationCount)
	assert.True(t, state.AllPassed())
}

func TestHandleOptimizeMissingJob(t *testing.T) {
	s := newTestServer(&mockLLMClient{})

	rec := httptest.NewRecorder()
	s.handleOptimize(rec, httptest.NewRequest("POST", "/optimize", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleOptimizeInvalidBody(t *testing.T) {
	s := newTestServer(&mockLLMClient{})

	rec := httptest.NewRecorder()
	s.handleOptimize(rec, httptest.NewRequest("POST", "/optimize", strings.NewReader("not json")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleOptimizeModelFailure(t *testing.T) {
	s := newTestServer(&mockLLMClient{
		GenerateContentFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			return "", fmt.Errorf("model unavailable")
		},
	})

	body, _ := json.Marshal(types.OptimizeRequest{Job: "Engineer"})
	rec := httptest.NewRecorder()
	s.handleOptimize(rec, httptest.NewRequest("POST", "/optimize", bytes.NewReader(body)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleOptimizeStream(t *testing.T) {
	s := newTestServer(passingOptimizerClient())

	body, _ := json.Marshal(types.OptimizeRequest{Job: "Data Engineer"})
	rec := httptest.NewRecorder()
	s.handleOptimizeStream(rec, httptest.NewRequest("POST", "/optimize/stream", bytes.NewReader(body)))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	out := rec.Body.String()
	assert.Contains(t, out, "event: iteration")
	assert.Contains(t, out, "event: complete")
	assert.Contains(t, out, "Data Engineer")
}

func TestHandleOptimizeStreamModelFailure(t *testing.T) {
	s := newTestServer(&mockLLMClient{
		GenerateContentFunc: func(_ context.Context, _ string, _ llm.ModelTier) (string, error) {
			return "", fmt.Errorf("model unavailable")
		},
	})

	body, _ := json.Marshal(types.OptimizeRequest{Job: "Engineer"})
	rec := httptest.NewRecorder()
	s.handleOptimizeStream(rec, httptest.NewRequest("POST", "/optimize/stream", bytes.NewReader(body)))

	assert.Contains(t, rec.Body.String(), "event: error")
}

func multipartUpload(t *testing.T, fieldName, fileName, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fieldName, fileName))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return &buf, writer.FormDataContentType()
}

func TestHandleParseResumeLocalFallback(t *testing.T) {
	// No parse provider configured: the text is extracted locally, then the
	// profile comes from the extraction model.
	s := newTestServer(&mockLLMClient{
		GenerateJSONFunc: func(_ context.Context, prompt string, _ llm.ModelTier) (string, error) {
			assert.Contains(t, prompt, "Ada Lovelace, Senior Engineer at Analytical Engines")
			return `{"name": "Ada Lovelace", "skills": ["Go", "SQL"], "experiences": [{"company": "Analytical Engines", "title": "Senior Engineer"}]}`, nil
		},
	})

	body, contentType := multipartUpload(t, "file", "resume.txt", "text/plain; charset=utf-8",
		[]byte("Ada Lovelace, Senior Engineer at Analytical Engines"))

	req := httptest.NewRequest("POST", "/resumes/parse", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.handleParseResume(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var profile types.ResumeProfile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, "Ada Lovelace", profile.Name)
	assert.Equal(t, []string{"Go", "SQL"}, profile.Skills)
}

func TestHandleParseResumeUnsupportedType(t *testing.T) {
	s := newTestServer(&mockLLMClient{})

	body, contentType := multipartUpload(t, "file", "photo.png", "image/png", []byte{0x89, 0x50})

	req := httptest.NewRequest("POST", "/resumes/parse", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.handleParseResume(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleParseResumeMissingFile(t *testing.T) {
	s := newTestServer(&mockLLMClient{})

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("result_type", "text"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/resumes/parse", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	s.handleParseResume(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResumePathIDs(t *testing.T) {
	s := newTestServer(&mockLLMClient{})
	userID := uuid.New()

	t.Run("missing auth context", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/resumes/"+uuid.NewString(), nil)
		req.SetPathValue("id", uuid.NewString())
		rec := httptest.NewRecorder()
		_, _, ok := s.resumePathIDs(rec, req)
		assert.False(t, ok)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid resume id", func(t *testing.T) {
		req := withUser(httptest.NewRequest("GET", "/resumes/not-a-uuid", nil), userID)
		req.SetPathValue("id", "not-a-uuid")
		rec := httptest.NewRecorder()
		_, _, ok := s.resumePathIDs(rec, req)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("valid", func(t *testing.T) {
		resumeID := uuid.New()
		req := withUser(httptest.NewRequest("GET", "/resumes/"+resumeID.String(), nil), userID)
		req.SetPathValue("id", resumeID.String())
		rec := httptest.NewRecorder()
		gotUser, gotResume, ok := s.resumePathIDs(rec, req)
		require.True(t, ok)
		assert.Equal(t, userID, gotUser)
		assert.Equal(t, resumeID, gotResume)
	})
}

func TestHandleChatUnauthorized(t *testing.T) {
	s := newTestServer(&mockLLMClient{})

	body, _ := json.Marshal(types.ChatRequest{Message: "hello"})
	rec := httptest.NewRecorder()
	s.handleChat(rec, httptest.NewRequest("POST", "/chat", bytes.NewReader(body)))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleGetResumeVersionInvalidVersion(t *testing.T) {
	s := newTestServer(&mockLLMClient{})
	resumeID := uuid.New()

	req := withUser(httptest.NewRequest("GET", fmt.Sprintf("/resumes/%s/versions/zero", resumeID), nil), uuid.New())
	req.SetPathValue("id", resumeID.String())
	req.SetPathValue("version", "zero")
	rec := httptest.NewRecorder()
	s.handleGetResumeVersion(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
