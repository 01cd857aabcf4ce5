package server

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/resume-manager/internal/docparse"
	"github.com/jonathan/resume-manager/internal/extraction"
	"github.com/jonathan/resume-manager/internal/logger"
	"github.com/jonathan/resume-manager/internal/optimizer"
	"github.com/jonathan/resume-manager/internal/server/middleware"
	"github.com/jonathan/resume-manager/internal/types"
)

const maxUploadBytes = 10 << 20 // 10 MB

// handleOptimize runs the bullet-point optimization loop and returns the
// final state.
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req types.OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	state, err := optimizer.New(s.llmClient, s.logger).Optimize(r.Context(), req.Job)
	if err != nil {
		s.logger.Error("optimization failed",
			zap.String("job", logger.TruncateForLog(req.Job, 80)),
			zap.Error(err))
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, state)
}

// handleOptimizeStream runs the optimization loop, streaming each
// iteration's snapshot as an SSE event before the final state.
func (s *Server) handleOptimizeStream(w http.ResponseWriter, r *http.Request) {
	var req types.OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	opt := optimizer.New(s.llmClient, s.logger)
	opt.OnIteration = func(snapshot *optimizer.OptimizationState) {
		if err := sse.WriteEvent("iteration", snapshot); err != nil {
			s.logger.Warn("failed to write iteration event", zap.Error(err))
		}
	}

	state, err := opt.Optimize(r.Context(), req.Job)
	if err != nil {
		s.logger.Error("streamed optimization failed",
			zap.String("job", logger.TruncateForLog(req.Job, 80)),
			zap.Error(err))
		sse.WriteError(err.Error())
		return
	}

	if err := sse.WriteEvent("complete", state); err != nil {
		s.logger.Warn("failed to write complete event", zap.Error(err))
	}
}

// handleChat runs one turn of the assistant conversation.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req types.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	resp, err := s.assistant.Chat(r.Context(), userID.String(), req.SessionID, req.Message)
	if err != nil {
		s.logger.Error("chat turn failed",
			zap.String("session_id", req.SessionID),
			zap.Error(err))
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, resp)
}

// handleParseResume accepts a document upload and returns the extracted
// resume profile. When a parse provider is configured the document goes
// through it first; otherwise the text is extracted locally.
func (s *Server) handleParseResume(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Failed to read upload")
		return
	}
	if len(data) > maxUploadBytes {
		s.errorResponse(w, http.StatusRequestEntityTooLarge, "File exceeds 10 MB limit")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = mt
	}

	text, err := s.documentText(r, data, header.Filename, mimeType)
	if err != nil {
		s.logger.Error("document parsing failed",
			zap.String("filename", header.Filename),
			zap.String("mime_type", mimeType),
			zap.Error(err))
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	profile, err := s.extractor.ExtractProfile(r.Context(), text)
	if err != nil {
		s.logger.Error("profile extraction failed",
			zap.String("filename", header.Filename),
			zap.Error(err))
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, profile)
}

// documentText resolves the upload to plain text, preferring the external
// parse provider when one is configured.
func (s *Server) documentText(r *http.Request, data []byte, filename, mimeType string) (string, error) {
	if s.parseClient == nil {
		return extraction.Text(mimeType, data)
	}

	resultType := docparse.ResultText
	if v := r.FormValue("result_type"); v != "" {
		resultType = docparse.ResultType(v)
	}

	result, err := s.parseClient.Parse(r.Context(), data, filename, mimeType, resultType)
	if err != nil {
		return "", err
	}
	return result.Content, nil
}

// handleCreateResume stores a new resume for the authenticated user.
func (s *Server) handleCreateResume(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req types.CreateResumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	resume, err := s.db.InsertResume(r.Context(), userID, req.Title, req.Profile)
	if err != nil {
		s.logger.Error("failed to create resume", zap.Error(err))
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusCreated, resume)
}

// handleListResumes returns the user's resumes.
func (s *Server) handleListResumes(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	resumes, err := s.db.ListResumes(r.Context(), userID)
	if err != nil {
		s.logger.Error("failed to list resumes", zap.Error(err))
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	if resumes == nil {
		resumes = []types.Resume{}
	}

	s.jsonResponse(w, http.StatusOK, resumes)
}

// handleGetResume returns one resume.
func (s *Server) handleGetResume(w http.ResponseWriter, r *http.Request) {
	userID, resumeID, ok := s.resumePathIDs(w, r)
	if !ok {
		return
	}

	resume, err := s.db.GetResume(r.Context(), userID, resumeID)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, resume)
}

// handleUpdateResume replaces a resume's content, bumping its version.
func (s *Server) handleUpdateResume(w http.ResponseWriter, r *http.Request) {
	userID, resumeID, ok := s.resumePathIDs(w, r)
	if !ok {
		return
	}

	var req types.UpdateResumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return
	}

	resume, err := s.db.UpdateResume(r.Context(), userID, resumeID, req.Title, req.Profile)
	if err != nil {
		s.logger.Error("failed to update resume",
			zap.String("resume_id", resumeID.String()),
			zap.Error(err))
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, resume)
}

// handleDeleteResume removes a resume and its history.
func (s *Server) handleDeleteResume(w http.ResponseWriter, r *http.Request) {
	userID, resumeID, ok := s.resumePathIDs(w, r)
	if !ok {
		return
	}

	if err := s.db.DeleteResume(r.Context(), userID, resumeID); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleListResumeVersions returns a resume's version history.
func (s *Server) handleListResumeVersions(w http.ResponseWriter, r *http.Request) {
	userID, resumeID, ok := s.resumePathIDs(w, r)
	if !ok {
		return
	}

	versions, err := s.db.ListResumeVersions(r.Context(), userID, resumeID)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	if versions == nil {
		versions = []types.ResumeVersion{}
	}

	s.jsonResponse(w, http.StatusOK, versions)
}

// handleGetResumeVersion returns one historical snapshot.
func (s *Server) handleGetResumeVersion(w http.ResponseWriter, r *http.Request) {
	userID, resumeID, ok := s.resumePathIDs(w, r)
	if !ok {
		return
	}

	version, err := strconv.Atoi(r.PathValue("version"))
	if err != nil || version < 1 {
		s.errorResponse(w, http.StatusBadRequest, "Invalid version number")
		return
	}

	snapshot, err := s.db.GetResumeVersion(r.Context(), userID, resumeID, version)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, snapshot)
}

// resumePathIDs extracts the caller's user ID and the {id} path segment.
func (s *Server) resumePathIDs(w http.ResponseWriter, r *http.Request) (userID, resumeID uuid.UUID, ok bool) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return uuid.Nil, uuid.Nil, false
	}

	resumeID, err = uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid resume ID")
		return uuid.Nil, uuid.Nil, false
	}

	return userID, resumeID, true
}
