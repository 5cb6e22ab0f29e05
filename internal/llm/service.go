package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kianyangchn/mainu-web/internal/menu"
)

// Config carries every knob of the pipeline; nothing is hardcoded here.
type Config struct {
	Model                 string
	QuickSuggestionModel  string
	ExtractionTimeout     time.Duration
	SuggestionTimeout     time.Duration
	DefaultOutputLanguage string
}

// Image is one uploaded menu photo after peripheral pre-processing.
type Image struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Service converts batches of menu photos into structured templates with
// strict latency and remote-resource cleanup guarantees.
type Service struct {
	host ModelHost
	cfg  Config
	log  *zap.Logger
}

func NewService(host ModelHost, cfg Config, log *zap.Logger) *Service {
	return &Service{host: host, cfg: cfg, log: log}
}

// UploadImages fans out one upload call per image. A batch is all or
// nothing: if any upload fails, the ids obtained so far are released
// best-effort and the whole batch fails.
func (s *Service) UploadImages(ctx context.Context, images []Image) ([]string, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}

	ids := make([]string, len(images))
	errs := make([]error, len(images))

	var wg sync.WaitGroup
	for i, img := range images {
		wg.Add(1)
		go func(i int, img Image) {
			defer wg.Done()
			name := img.Filename
			if name == "" {
				name = fmt.Sprintf("menu-page-%d.jpg", i+1)
			}
			contentType := img.ContentType
			if contentType == "" {
				contentType = "image/jpeg"
			}
			ids[i], errs[i] = s.host.UploadFile(ctx, img.Data, name, contentType)
		}(i, img)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			obtained := make([]string, 0, len(ids))
			for _, id := range ids {
				if id != "" {
					obtained = append(obtained, id)
				}
			}
			s.DeleteFiles(context.WithoutCancel(ctx), obtained)
			s.log.Error("image upload failed", zap.Error(err))
			return nil, fmt.Errorf("%w: batch of %d image(s)", ErrUpload, len(images))
		}
	}
	return ids, nil
}

// DeleteFiles releases file handles concurrently. Deletion is advisory
// cleanup against the provider quota, so individual failures are swallowed.
func (s *Service) DeleteFiles(ctx context.Context, fileIDs []string) {
	if len(fileIDs) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, fileID := range fileIDs {
		wg.Add(1)
		go func(fileID string) {
			defer wg.Done()
			if err := s.host.DeleteFile(ctx, fileID); err != nil {
				s.log.Debug("file cleanup failed",
					zap.String("file_id", fileID),
					zap.Error(err),
				)
			}
		}(fileID)
	}
	wg.Wait()
}

// GenerateTemplate issues the structured-extraction call under a hard
// wall-clock timeout. A timed-out request is abandoned, not retried.
func (s *Service) GenerateTemplate(ctx context.Context, fileIDs []string, outputLanguage string) (menu.Template, error) {
	if len(fileIDs) == 0 {
		return menu.Template{}, ErrNoFileIDs
	}

	lang := s.language(outputLanguage)
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ExtractionTimeout)
	defer cancel()

	output, err := s.host.Infer(callCtx, InferenceRequest{
		Model:           s.cfg.Model,
		Instructions:    extractionInstructions,
		Text:            extractionUserText(lang),
		FileIDs:         fileIDs,
		Schema:          menuItemsSchema(),
		SchemaName:      jsonSchemaName,
		Verbosity:       "low",
		ReasoningEffort: "low",
	})
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			s.log.Warn("menu extraction timed out",
				zap.Duration("timeout", s.cfg.ExtractionTimeout),
			)
			return menu.Template{}, fmt.Errorf("%w after %s", ErrTimeout, s.cfg.ExtractionTimeout)
		}
		s.log.Error("menu extraction call failed", zap.Error(err))
		return menu.Template{}, fmt.Errorf("%w: menu extraction", ErrUpstream)
	}

	template, err := menu.BuildTemplate([]byte(output))
	if err != nil {
		s.log.Error("menu extraction returned malformed payload", zap.Error(err))
		return menu.Template{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return template, nil
}

// QuickSuggestion produces a short dish recommendation on a fast model
// variant. Callers treat any failure as "no suggestion".
func (s *Service) QuickSuggestion(ctx context.Context, fileIDs []string, outputLanguage string) (string, error) {
	if len(fileIDs) == 0 {
		return "", ErrNoFileIDs
	}

	lang := s.language(outputLanguage)
	output, err := s.host.Infer(ctx, InferenceRequest{
		Model:           s.cfg.QuickSuggestionModel,
		Instructions:    suggestionInstructions(lang),
		Text:            suggestionUserText(lang),
		FileIDs:         fileIDs,
		Verbosity:       "low",
		ReasoningEffort: "minimal",
	})
	if err != nil {
		return "", fmt.Errorf("%w: quick suggestion", ErrUpstream)
	}
	return strings.TrimSpace(output), nil
}

// GenerateWithSuggestion runs the full extraction and the quick suggestion
// concurrently over the same file batch. The extraction result is the
// primary deliverable; the suggestion is joined afterwards with its own
// timeout and cancelled-and-drained once the primary path has failed.
func (s *Service) GenerateWithSuggestion(ctx context.Context, fileIDs []string, outputLanguage string, includeSuggestion bool) (menu.Template, string, error) {
	lang := s.language(outputLanguage)

	suggestionCtx, cancelSuggestion := context.WithCancel(ctx)
	defer cancelSuggestion()

	var suggestionCh chan string
	if includeSuggestion && s.cfg.QuickSuggestionModel != "" {
		suggestionCh = make(chan string, 1)
		go func() {
			text, err := s.QuickSuggestion(suggestionCtx, fileIDs, lang)
			if err != nil {
				suggestionCh <- ""
				return
			}
			suggestionCh <- text
		}()
	}

	template, err := s.GenerateTemplate(ctx, fileIDs, lang)
	if err != nil {
		if suggestionCh != nil {
			cancelSuggestion()
			<-suggestionCh
		}
		return menu.Template{}, "", err
	}

	suggestion := ""
	if suggestionCh != nil {
		timer := time.NewTimer(s.cfg.SuggestionTimeout)
		defer timer.Stop()
		select {
		case suggestion = <-suggestionCh:
		case <-timer.C:
			cancelSuggestion()
			<-suggestionCh
			suggestion = ""
		}
	}
	return template, suggestion, nil
}

func (s *Service) language(outputLanguage string) string {
	if outputLanguage != "" {
		return outputLanguage
	}
	return s.cfg.DefaultOutputLanguage
}
