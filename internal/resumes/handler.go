package resumes

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"resume-ats/internal/debounce"
	"resume-ats/internal/extract"
	"resume-ats/internal/shared/server/middleware"
	"resume-ats/internal/shared/server/respond"
	"resume-ats/internal/shared/telemetry"
)

const defaultMaxUploadSize = 10 << 20 // 10MB

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc            *Service
	Gate           debounce.Gate
	MaxUploadBytes int64
}

// NewHandler constructs a Handler. A nil gate disables debouncing.
func NewHandler(svc *Service, gate debounce.Gate, maxUploadBytes int64) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadSize
	}
	return &Handler{Svc: svc, Gate: gate, MaxUploadBytes: maxUploadBytes}
}

// RegisterRoutes attaches resume routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/resumes", h.upload)
	rg.GET("/resumes", h.list)
	rg.GET("/resumes/:id", h.get)
	rg.PATCH("/resumes/:id", h.edit)
	rg.DELETE("/resumes/:id", h.delete)
	rg.POST("/resumes/:id/process", h.process)
	rg.GET("/resumes/:id/ats-score", h.score)
	rg.GET("/resumes/:id/download", h.download)
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "file exceeds the upload limit", gin.H{"maxBytes": h.MaxUploadBytes})
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	rec, _, err := h.Svc.Submit(withRequest(c), SubmitInput{
		UserID:     userID,
		FileName:   fileHeader.Filename,
		Body:       file,
		JobID:      c.PostForm("jobId"),
		Tags:       splitList(c.PostForm("tags")),
		Visibility: c.PostForm("visibility"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set(middleware.ResumeIDKey, rec.ID)

	respond.Created(c, uploadResponse{
		ID:         rec.ID,
		Status:     rec.Processing.Status,
		FileName:   rec.OriginalFile.FileName,
		UploadedAt: rec.CreatedAt,
	})
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	limit, err := queryInt(c, "limit")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "limit must be an integer", nil)
		return
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "offset must be an integer", nil)
		return
	}
	filter := normalizePage(ListFilter{
		Status: strings.TrimSpace(c.Query("status")),
		Tags:   splitList(c.Query("tags")),
		Limit:  limit,
		Offset: offset,
	})

	items, total, err := h.Svc.List(withRequest(c), userID, filter)
	if err != nil {
		writeError(c, err)
		return
	}
	out := listResponse{Items: make([]resumeSummary, 0, len(items)), Total: total, Limit: filter.Limit, Offset: filter.Offset}
	for _, item := range items {
		out.Items = append(out.Items, toSummary(item))
	}
	respond.OK(c, out)
}

func (h *Handler) get(c *gin.Context) {
	id := resumeParam(c)
	rec, err := h.Svc.Get(withRequest(c), id, middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toResponse(rec))
}

func (h *Handler) edit(c *gin.Context) {
	id := resumeParam(c)
	userID := middleware.UserIDFromContext(c)

	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request fields", gin.H{"fields": invalidFields(verrs)})
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	taken, ok := h.acquire(c, userID, req.editedFields()...)
	if !ok {
		return
	}

	rec, err := h.Svc.ApplyEdits(withRequest(c), id, userID, req.toInput())
	if err != nil {
		h.release(c, userID, taken)
		writeError(c, err)
		return
	}
	respond.OK(c, toResponse(rec))
}

func (h *Handler) delete(c *gin.Context) {
	id := resumeParam(c)
	if err := h.Svc.SoftDelete(withRequest(c), id, middleware.UserIDFromContext(c)); err != nil {
		writeError(c, err)
		return
	}
	respond.NoContent(c)
}

func (h *Handler) process(c *gin.Context) {
	id := resumeParam(c)
	userID := middleware.UserIDFromContext(c)
	taken, ok := h.acquire(c, userID, "process:"+id)
	if !ok {
		return
	}
	rec, _, err := h.Svc.Retrigger(withRequest(c), id, userID)
	if err != nil {
		h.release(c, userID, taken)
		writeError(c, err)
		return
	}
	if rec.Processing.Status != StatusProcessing {
		c.Set(middleware.StatusTransitionKey, transitionLabel(rec.Processing.Status, StatusProcessing))
	}
	respond.Accepted(c, processResponse{ID: rec.ID, Status: StatusProcessing})
}

func (h *Handler) score(c *gin.Context) {
	id := resumeParam(c)
	score, err := h.Svc.RecalculateScore(withRequest(c), id, middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, scoreResponse{ID: id, ATSScore: score})
}

func (h *Handler) download(c *gin.Context) {
	id := resumeParam(c)
	body, file, err := h.Svc.Open(withRequest(c), id, middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	defer body.Close()

	contentType := file.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": file.FileName})
	c.DataFromReader(http.StatusOK, file.Size, contentType, body, map[string]string{
		"Content-Disposition": disposition,
	})
}

// acquire takes the debounce slot of every field, or none of them: when one
// field is too soon the slots already taken are released and a 429 is written.
func (h *Handler) acquire(c *gin.Context, userID string, fields ...string) ([]string, bool) {
	if h.Gate == nil {
		return nil, true
	}
	taken := make([]string, 0, len(fields))
	for _, field := range fields {
		ok, retryAfter, err := h.Gate.Allow(c.Request.Context(), userID, field)
		if err != nil {
			h.release(c, userID, taken)
			respond.Error(c, http.StatusInternalServerError, "internal_error", "debounce check failed", nil)
			return nil, false
		}
		if !ok {
			h.release(c, userID, taken)
			respond.TooManyRequests(c, "debounced", "change saved too recently, retry shortly", retryAfter, gin.H{"field": field})
			return nil, false
		}
		taken = append(taken, field)
	}
	return taken, true
}

// release frees slots of an action that was not applied.
func (h *Handler) release(c *gin.Context, userID string, fields []string) {
	for _, field := range fields {
		if err := h.Gate.Release(c.Request.Context(), userID, field); err != nil {
			telemetry.Warn("debounce.release_failed", map[string]any{
				"user_id": userID,
				"field":   field,
				"err":     err.Error(),
			})
		}
	}
}

func invalidFields(verrs validator.ValidationErrors) []string {
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fe.Namespace())
	}
	return out
}

func writeError(c *gin.Context, err error) {
	var dup *DuplicateError
	switch {
	case errors.As(err, &dup):
		respond.Error(c, http.StatusConflict, "duplicate_resume", "this file was already uploaded", gin.H{"existingResumeId": dup.ExistingID})
	case errors.Is(err, extract.ErrUnsupportedFileType):
		respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_file_type", "only pdf, doc and docx files are accepted", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "resume not found", nil)
	case errors.Is(err, ErrInvalidTransition):
		respond.Error(c, http.StatusConflict, "invalid_state", err.Error(), nil)
	default:
		telemetry.Error("resume.request_failed", map[string]any{
			"request_id": middleware.RequestIDFromContext(c),
			"err":        err.Error(),
		})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "request failed", nil)
	}
}

func withRequest(c *gin.Context) context.Context {
	return WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
}

func resumeParam(c *gin.Context) string {
	id := strings.TrimSpace(c.Param("id"))
	c.Set(middleware.ResumeIDKey, id)
	return id
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
