package types

import (
	"time"

	"github.com/google/uuid"
)

// OptimizeRequest asks for a tailored set of bullet points for a job title.
type OptimizeRequest struct {
	Job string `json:"job" validate:"required,min=1"`
}

// ChatRequest is one turn of the assistant conversation. SessionID is empty
// on the first turn; the server mints one and returns it.
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message" validate:"required,min=1"`
}

// ChatResponse is the assistant's reply for one turn.
type ChatResponse struct {
	SessionID string    `json:"session_id"`
	Reply     string    `json:"reply"`
	Bullets   []string  `json:"bullets,omitempty"` // set when the turn invoked bullet generation
	CreatedAt time.Time `json:"created_at"`
}

// CreateResumeRequest stores a new resume under the authenticated user.
type CreateResumeRequest struct {
	Title   string         `json:"title" validate:"required,min=1"`
	Profile *ResumeProfile `json:"profile" validate:"required"`
}

// UpdateResumeRequest replaces a resume's profile. The previous profile is
// snapshotted as a version in the same transaction.
type UpdateResumeRequest struct {
	Title   string         `json:"title,omitempty"`
	Profile *ResumeProfile `json:"profile" validate:"required"`
}

// Resume is a stored resume with its current profile.
type Resume struct {
	ID        uuid.UUID      `json:"id"`
	UserID    uuid.UUID      `json:"user_id"`
	Title     string         `json:"title"`
	Profile   *ResumeProfile `json:"profile"`
	Version   int            `json:"version"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// ResumeVersion is a historical snapshot of a resume's profile.
type ResumeVersion struct {
	ID        uuid.UUID      `json:"id"`
	ResumeID  uuid.UUID      `json:"resume_id"`
	Version   int            `json:"version"`
	Title     string         `json:"title"`
	Profile   *ResumeProfile `json:"profile"`
	CreatedAt time.Time      `json:"created_at"`
}

// Validate checks the request against its field constraints.
func (r *OptimizeRequest) Validate() error {
	return validate.Struct(r)
}

// Validate checks the request against its field constraints.
func (r *ChatRequest) Validate() error {
	return validate.Struct(r)
}

// Validate checks the request against its field constraints.
func (r *CreateResumeRequest) Validate() error {
	return validate.Struct(r)
}

// Validate checks the request against its field constraints.
func (r *UpdateResumeRequest) Validate() error {
	return validate.Struct(r)
}
