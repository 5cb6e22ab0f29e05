package llm

import (
	"context"
	"errors"
)

// ModelHost is the capability this service needs from a vision-capable
// model provider: file-handle uploads and multimodal inference. Any
// provider with those semantics satisfies it.
type ModelHost interface {
	UploadFile(ctx context.Context, data []byte, filename, contentType string) (string, error)
	DeleteFile(ctx context.Context, fileID string) error
	Infer(ctx context.Context, req InferenceRequest) (string, error)
}

// InferenceRequest describes one model call. When Schema is set the host
// must enforce strict JSON-schema output; otherwise plain text is expected.
type InferenceRequest struct {
	Model           string
	Instructions    string
	Text            string
	FileIDs         []string
	Schema          map[string]interface{}
	SchemaName      string
	Verbosity       string
	ReasoningEffort string
}

// Error kinds surfaced by the generation pipeline. Raw transport errors
// from the provider are wrapped, never leaked to callers directly.
var (
	ErrNoImages          = errors.New("at least one image is required")
	ErrNoFileIDs         = errors.New("at least one file id is required")
	ErrUpload            = errors.New("image upload failed")
	ErrUpstream          = errors.New("upstream call failed")
	ErrMalformedResponse = errors.New("malformed upstream response")
	ErrTimeout           = errors.New("menu extraction timed out")
)
