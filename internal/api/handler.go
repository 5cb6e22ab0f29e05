package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kianyangchn/mainu-web/internal/llm"
	"github.com/kianyangchn/mainu-web/internal/menu"
	"github.com/kianyangchn/mainu-web/internal/session"
	"github.com/kianyangchn/mainu-web/internal/tokenstore"
)

var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/heic": true,
}

type Handler struct {
	service *Service
	log     *zap.Logger
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// Process accepts one or more menu photos and returns the structured
// template, the optional quick suggestion, and the upload session token.
func (h *Handler) Process(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form is required"})
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one image is required"})
		return
	}

	images := make([]llm.Image, 0, len(files))
	for _, header := range files {
		contentType := header.Header.Get("Content-Type")
		if !allowedContentTypes[contentType] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported file type"})
			return
		}

		file, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable file uploaded"})
			return
		}
		raw, err := io.ReadAll(file)
		file.Close()
		if err != nil || len(raw) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Empty file uploaded"})
			return
		}

		images = append(images, llm.Image{
			Data:        raw,
			Filename:    header.Filename,
			ContentType: contentType,
		})
	}

	result, err := h.service.Process(c.Request.Context(), images, c.PostForm("output_language"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"template":          result.Template,
		"quick_suggestion":  result.QuickSuggestion,
		"upload_session_id": result.SessionToken,
	})
}

// Retry regenerates a template from an existing upload session.
func (h *Handler) Retry(c *gin.Context) {
	var body struct {
		OutputLanguage string `json:"output_language"`
	}
	_ = c.ShouldBindJSON(&body)

	result, err := h.service.Retry(c.Request.Context(), c.Param("token"), body.OutputLanguage)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"template":         result.Template,
		"quick_suggestion": result.QuickSuggestion,
	})
}

// DeleteSession releases an upload session and the remote files it owns.
func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.service.DeleteSession(c.Request.Context(), c.Param("token")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateShare mints a time-limited viewing link for a completed template.
func (h *Handler) CreateShare(c *gin.Context) {
	var template menu.Template
	if err := c.ShouldBindJSON(&template); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "template payload is required"})
		return
	}
	if len(template.Sections) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "template must contain at least one section"})
		return
	}

	record, err := h.service.CreateShare(c.Request.Context(), template)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"share_token":              record.Token,
		"share_url":                "/menu/share/" + record.Token,
		"share_expires_at":         record.ExpiresAt,
		"share_expires_in_seconds": record.RemainingSeconds(),
	})
}

// FetchShare returns the shared template while the token is valid.
func (h *Handler) FetchShare(c *gin.Context) {
	template, err := h.service.FetchShare(c.Request.Context(), c.Param("token"))
	if err != nil {
		if errors.Is(err, tokenstore.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Share link expired or invalid"})
			return
		}
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, template)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// respondError translates the error taxonomy into client-facing statuses.
// Upstream details are logged here and never forwarded to end users.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, llm.ErrNoImages) || errors.Is(err, llm.ErrNoFileIDs):
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one image is required"})
	case errors.Is(err, session.ErrRetryLimitExceeded):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many retry attempts for this upload"})
	case errors.Is(err, tokenstore.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown or expired token"})
	case errors.Is(err, llm.ErrTimeout):
		h.log.Warn("request timed out", zap.Error(err))
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Menu processing took too long, please try again"})
	case errors.Is(err, llm.ErrUpload), errors.Is(err, llm.ErrUpstream), errors.Is(err, llm.ErrMalformedResponse):
		h.log.Error("menu processing failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Menu processing failed"})
	default:
		h.log.Error("unexpected error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
