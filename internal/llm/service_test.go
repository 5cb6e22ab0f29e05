package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

const validExtraction = `{"items": [{"section": "Menu", "original_name": "Pho",
	"translated_name": "Noodle Soup", "description": "Beef broth", "price": 9.5}]}`

// fakeHost stands in for the model provider. Extraction calls are the ones
// carrying a schema; everything else is a suggestion call.
type fakeHost struct {
	mu      sync.Mutex
	nextID  int
	uploads []string
	deleted []string

	failUpload map[string]bool

	extractionOutput string
	extractionErr    error
	blockExtraction  bool

	suggestionOutput    string
	suggestionErr       error
	blockSuggestion     bool
	suggestionCancelled atomic.Bool
}

func (f *fakeHost) UploadFile(_ context.Context, _ []byte, filename, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpload[filename] {
		return "", errors.New("provider rejected upload")
	}
	f.nextID++
	id := fmt.Sprintf("file-%d", f.nextID)
	f.uploads = append(f.uploads, id)
	return id, nil
}

func (f *fakeHost) DeleteFile(_ context.Context, fileID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, fileID)
	return nil
}

func (f *fakeHost) Infer(ctx context.Context, req InferenceRequest) (string, error) {
	if req.Schema != nil {
		if f.blockExtraction {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return f.extractionOutput, f.extractionErr
	}

	if f.blockSuggestion {
		<-ctx.Done()
		f.suggestionCancelled.Store(true)
		return "", ctx.Err()
	}
	return f.suggestionOutput, f.suggestionErr
}

func (f *fakeHost) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

func (f *fakeHost) deletedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func newTestService(host *fakeHost) *Service {
	return NewService(host, Config{
		Model:                 "primary-model",
		QuickSuggestionModel:  "fast-model",
		ExtractionTimeout:     50 * time.Millisecond,
		SuggestionTimeout:     50 * time.Millisecond,
		DefaultOutputLanguage: "English",
	}, zap.NewNop())
}

func testImages(n int) []Image {
	images := make([]Image, n)
	for i := range images {
		images[i] = Image{
			Data:        []byte("fake-image"),
			Filename:    fmt.Sprintf("page-%d.jpg", i+1),
			ContentType: "image/jpeg",
		}
	}
	return images
}

func TestUploadImagesFanOut(t *testing.T) {
	host := &fakeHost{}
	service := newTestService(host)

	ids, err := service.UploadImages(context.Background(), testImages(3))
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 file ids, got %v", ids)
	}
	if host.uploadCount() != 3 {
		t.Fatalf("expected 3 upload calls, got %d", host.uploadCount())
	}
}

func TestUploadImagesEmptyBatch(t *testing.T) {
	service := newTestService(&fakeHost{})

	_, err := service.UploadImages(context.Background(), nil)
	if !errors.Is(err, ErrNoImages) {
		t.Fatalf("expected ErrNoImages, got %v", err)
	}
}

func TestUploadImagesPartialFailureCleansUp(t *testing.T) {
	host := &fakeHost{failUpload: map[string]bool{"page-2.jpg": true}}
	service := newTestService(host)

	_, err := service.UploadImages(context.Background(), testImages(3))
	if !errors.Is(err, ErrUpload) {
		t.Fatalf("expected ErrUpload, got %v", err)
	}

	// Both successful uploads of the failed batch must be released.
	deleted := host.deletedIDs()
	if len(deleted) != 2 {
		t.Fatalf("expected 2 cleanup deletions, got %v", deleted)
	}
}

func TestGenerateTemplateSuccess(t *testing.T) {
	host := &fakeHost{extractionOutput: validExtraction}
	service := newTestService(host)

	template, err := service.GenerateTemplate(context.Background(), []string{"file-1"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(template.Sections) != 1 || template.Sections[0].Dishes[0].OriginalName != "Pho" {
		t.Fatalf("unexpected template: %+v", template)
	}
	if got := *template.Sections[0].Dishes[0].Price; got != "9.50" {
		t.Fatalf("expected price 9.50, got %q", got)
	}
}

func TestGenerateTemplateNoFileIDs(t *testing.T) {
	service := newTestService(&fakeHost{})

	_, err := service.GenerateTemplate(context.Background(), nil, "")
	if !errors.Is(err, ErrNoFileIDs) {
		t.Fatalf("expected ErrNoFileIDs, got %v", err)
	}
}

func TestGenerateTemplateUpstreamFailure(t *testing.T) {
	host := &fakeHost{extractionErr: errors.New("connection reset")}
	service := newTestService(host)

	_, err := service.GenerateTemplate(context.Background(), []string{"file-1"}, "")
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestGenerateTemplateMalformedResponse(t *testing.T) {
	host := &fakeHost{extractionOutput: "this is not json"}
	service := newTestService(host)

	_, err := service.GenerateTemplate(context.Background(), []string{"file-1"}, "")
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
	if errors.Is(err, ErrUpstream) {
		t.Fatal("malformed response must stay distinct from upstream failure")
	}
}

func TestGenerateTemplateTimeout(t *testing.T) {
	host := &fakeHost{blockExtraction: true}
	service := newTestService(host)

	_, err := service.GenerateTemplate(context.Background(), []string{"file-1"}, "")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestGenerateWithSuggestionSuccess(t *testing.T) {
	host := &fakeHost{
		extractionOutput: validExtraction,
		suggestionOutput: "Try the Pho! 🍜",
	}
	service := newTestService(host)

	template, suggestion, err := service.GenerateWithSuggestion(
		context.Background(), []string{"file-1"}, "", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(template.Sections) != 1 {
		t.Fatalf("unexpected template: %+v", template)
	}
	if suggestion != "Try the Pho! 🍜" {
		t.Fatalf("unexpected suggestion: %q", suggestion)
	}
}

func TestGenerateWithSuggestionCancelledOnPrimaryTimeout(t *testing.T) {
	host := &fakeHost{blockExtraction: true, blockSuggestion: true}
	service := newTestService(host)

	_, _, err := service.GenerateWithSuggestion(
		context.Background(), []string{"file-1"}, "", true)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}

	// The join drains the suggestion task before returning, so by now its
	// cancellation must have been observed.
	if !host.suggestionCancelled.Load() {
		t.Fatal("suggestion task was not cancelled after primary failure")
	}
}

func TestSuggestionFailureDegradesToEmpty(t *testing.T) {
	host := &fakeHost{
		extractionOutput: validExtraction,
		suggestionErr:    errors.New("fast model unavailable"),
	}
	service := newTestService(host)

	_, suggestion, err := service.GenerateWithSuggestion(
		context.Background(), []string{"file-1"}, "", true)
	if err != nil {
		t.Fatalf("suggestion failure must never be fatal: %v", err)
	}
	if suggestion != "" {
		t.Fatalf("expected empty suggestion, got %q", suggestion)
	}
}

func TestSuggestionTimeoutDegradesToEmpty(t *testing.T) {
	host := &fakeHost{
		extractionOutput: validExtraction,
		blockSuggestion:  true,
	}
	service := newTestService(host)

	_, suggestion, err := service.GenerateWithSuggestion(
		context.Background(), []string{"file-1"}, "", true)
	if err != nil {
		t.Fatalf("suggestion timeout must never be fatal: %v", err)
	}
	if suggestion != "" {
		t.Fatalf("expected empty suggestion, got %q", suggestion)
	}
	if !host.suggestionCancelled.Load() {
		t.Fatal("timed-out suggestion task was not cancelled")
	}
}

func TestGenerateWithSuggestionExcluded(t *testing.T) {
	host := &fakeHost{extractionOutput: validExtraction}
	service := newTestService(host)

	_, suggestion, err := service.GenerateWithSuggestion(
		context.Background(), []string{"file-1"}, "", false)
	if err != nil {
		t.Fatal(err)
	}
	if suggestion != "" {
		t.Fatalf("no suggestion was requested, got %q", suggestion)
	}
}
