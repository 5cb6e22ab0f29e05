package api

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kianyangchn/mainu-web/internal/llm"
	"github.com/kianyangchn/mainu-web/internal/menu"
	"github.com/kianyangchn/mainu-web/internal/session"
	"github.com/kianyangchn/mainu-web/internal/share"
	"github.com/kianyangchn/mainu-web/internal/tokenstore"
)

// PhotoArchiver is the optional capability for keeping a copy of the
// original menu photos.
type PhotoArchiver interface {
	Archive(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Service exposes the operations consumed by the thin HTTP layer. All
// collaborators are injected once at startup.
type Service struct {
	pipeline *llm.Service
	sessions *session.Store
	shares   *share.Store
	archive  PhotoArchiver
	log      *zap.Logger
}

func NewService(pipeline *llm.Service, sessions *session.Store, shares *share.Store, archive PhotoArchiver, log *zap.Logger) *Service {
	return &Service{
		pipeline: pipeline,
		sessions: sessions,
		shares:   shares,
		archive:  archive,
		log:      log,
	}
}

// ProcessResult is what one full processing run yields.
type ProcessResult struct {
	Template        menu.Template
	QuickSuggestion string
	SessionToken    string
}

// Process uploads the batch, hands the file handles to a fresh upload
// session, and runs extraction and quick suggestion concurrently. On a
// generation failure the session and its file handles are released, since
// the caller never receives a token to retry with.
func (s *Service) Process(ctx context.Context, images []llm.Image, outputLanguage string) (*ProcessResult, error) {
	s.sweepSessions(ctx)

	fileIDs, err := s.pipeline.UploadImages(ctx, images)
	if err != nil {
		return nil, err
	}

	filenames := make([]string, len(images))
	contentTypes := make([]string, len(images))
	for i, img := range images {
		filenames[i] = img.Filename
		contentTypes[i] = img.ContentType
	}

	token, err := s.sessions.Create(ctx, fileIDs, filenames, contentTypes)
	if err != nil {
		// Ownership was never handed off, so the pipeline cleans up.
		s.pipeline.DeleteFiles(context.WithoutCancel(ctx), fileIDs)
		return nil, err
	}

	s.archivePhotos(ctx, token, images)

	template, suggestion, err := s.pipeline.GenerateWithSuggestion(ctx, fileIDs, outputLanguage, true)
	if err != nil {
		s.releaseSession(context.WithoutCancel(ctx), token, fileIDs)
		return nil, err
	}

	return &ProcessResult{
		Template:        template,
		QuickSuggestion: suggestion,
		SessionToken:    token,
	}, nil
}

// Retry regenerates the template from an existing session's file handles
// without re-uploading. Each call consumes one retry from the bounded
// budget.
func (s *Service) Retry(ctx context.Context, token, outputLanguage string) (*ProcessResult, error) {
	s.sweepSessions(ctx)

	record, err := s.sessions.Describe(ctx, token)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("upload session: %w", tokenstore.ErrNotFound)
	}

	if _, err := s.sessions.IncrementRetry(ctx, token); err != nil {
		return nil, err
	}

	template, suggestion, err := s.pipeline.GenerateWithSuggestion(ctx, record.FileIDs, outputLanguage, true)
	if err != nil {
		// The session keeps its file handles; the caller still holds the
		// token and may retry within the cap and TTL.
		return nil, err
	}

	return &ProcessResult{
		Template:        template,
		QuickSuggestion: suggestion,
		SessionToken:    token,
	}, nil
}

// DeleteSession releases the file handles a session owns, then drops the
// record. Deleting an unknown token is a no-op.
func (s *Service) DeleteSession(ctx context.Context, token string) error {
	record, err := s.sessions.Describe(ctx, token)
	if err != nil {
		return err
	}
	if record != nil {
		s.pipeline.DeleteFiles(ctx, record.FileIDs)
	}
	return s.sessions.Delete(ctx, token)
}

// CreateShare persists a completed template behind a fresh share token.
func (s *Service) CreateShare(ctx context.Context, template menu.Template) (*share.Record, error) {
	if err := s.shares.PurgeExpired(ctx); err != nil {
		s.log.Warn("share purge failed", zap.Error(err))
	}

	token, err := s.shares.Create(ctx, template)
	if err != nil {
		return nil, err
	}

	record, err := s.shares.Describe(ctx, token)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("share token vanished after create: %w", tokenstore.ErrNotFound)
	}
	return record, nil
}

// FetchShare returns the shared template while its token is valid.
func (s *Service) FetchShare(ctx context.Context, token string) (*menu.Template, error) {
	template, err := s.shares.FetchTemplate(ctx, token)
	if err != nil {
		return nil, err
	}
	if template == nil {
		return nil, fmt.Errorf("share link: %w", tokenstore.ErrNotFound)
	}
	return template, nil
}

// sweepSessions is the cooperative purge entry point invoked before
// mutating operations. Every purged session has its file handles released.
func (s *Service) sweepSessions(ctx context.Context) {
	purged, err := s.sessions.PurgeExpired(ctx)
	if err != nil {
		s.log.Warn("session purge failed", zap.Error(err))
		return
	}
	for _, record := range purged {
		s.pipeline.DeleteFiles(ctx, record.FileIDs)
	}
}

func (s *Service) releaseSession(ctx context.Context, token string, fileIDs []string) {
	s.pipeline.DeleteFiles(ctx, fileIDs)
	if err := s.sessions.Delete(ctx, token); err != nil {
		s.log.Warn("session delete failed",
			zap.String("token", token),
			zap.Error(err),
		)
	}
}

// archivePhotos copies the original photos to the archive in the
// background. Failures are logged, never surfaced.
func (s *Service) archivePhotos(ctx context.Context, token string, images []llm.Image) {
	if s.archive == nil {
		return
	}

	archiveCtx := context.WithoutCancel(ctx)
	go func() {
		for _, img := range images {
			ext := filepath.Ext(img.Filename)
			if ext == "" {
				ext = ".jpg"
			}
			key := fmt.Sprintf("menus/%s/%s%s", token, uuid.New().String(), ext)
			if _, err := s.archive.Archive(archiveCtx, key, img.Data, img.ContentType); err != nil {
				s.log.Warn("photo archive failed",
					zap.String("key", key),
					zap.Error(err),
				)
			}
		}
	}()
}
