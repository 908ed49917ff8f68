package ai

import (
	"context"
	"encoding/json"
)

// FileRef points at a media file uploaded to the reasoning service.
type FileRef struct {
	// Name is the service-side resource name, used for deletion.
	Name string
	// URI is the reference attached to generation requests.
	URI      string
	MIMEType string
}

// Generator produces free-form text from a prompt. There is no structural
// guarantee on the output beyond best-effort instruction following, so
// callers must parse defensively.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// StructuredGenerator produces JSON output from a prompt with optional
// media attachments.
type StructuredGenerator interface {
	GenerateStructured(ctx context.Context, prompt string, attachments []FileRef) (json.RawMessage, error)
}

// FileStore manages temporary media uploads on the reasoning service side.
type FileStore interface {
	UploadFile(ctx context.Context, path string) (FileRef, error)
	DeleteFile(ctx context.Context, name string) error
}
