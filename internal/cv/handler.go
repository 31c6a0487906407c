package cv

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"student-dashboard/internal/shared/server/middleware"
	"student-dashboard/internal/shared/server/respond"
)

// multipartOverhead leaves room for form boundaries around a maximum-size file.
const multipartOverhead = 64 << 10

// Handler wires HTTP handlers to the CV service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches CV routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/cv", h.current)
	rg.POST("/cv", h.upload)
	rg.DELETE("/cv", h.delete)
	rg.GET("/cv/download", h.download)
	rg.GET("/cv/preview", h.preview)
}

func (h *Handler) current(c *gin.Context) {
	f, err := h.Svc.Current(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		respond.Failure(c, err, "failed to fetch CV")
		return
	}
	c.Set(middleware.LogCvFileKey, f.ID)
	respond.OK(c, toResponse(f))
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxFileSize+multipartOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			respond.Failure(c, ErrTooLarge, "")
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

	info := FileInfo{
		Name:     fileHeader.Filename,
		Size:     fileHeader.Size,
		MimeType: fileHeader.Header.Get("Content-Type"),
	}
	sess, err := h.Svc.Upload(c.Request.Context(), userID, info, file)
	if err != nil {
		respond.Failure(c, err, "failed to upload CV")
		return
	}

	if wantsEventStream(c) {
		h.streamProgress(c, sess)
		return
	}

	f, err := sess.Wait(c.Request.Context())
	if err != nil {
		respond.Failure(c, err, "failed to upload CV")
		return
	}
	c.Set(middleware.LogCvFileKey, f.ID)
	respond.JSON(c, http.StatusCreated, toResponse(f))
}

// streamProgress relays progress as server-sent events and finishes with a
// complete or error event.
func (h *Handler) streamProgress(c *gin.Context, sess *Session) {
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	ctx := c.Request.Context()
	progress := sess.Progress()
	for pct := range progress {
		c.SSEvent("progress", progressEvent{Percent: pct})
		c.Writer.Flush()
		if ctx.Err() != nil {
			sess.Cancel()
			return
		}
	}

	f, err := sess.Wait(ctx)
	if err != nil {
		_, body := respond.Classify(err, "failed to upload CV")
		c.SSEvent("error", body)
		c.Writer.Flush()
		return
	}
	c.Set(middleware.LogCvFileKey, f.ID)
	c.SSEvent("complete", toResponse(f))
	c.Writer.Flush()
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c)); err != nil {
		respond.Failure(c, err, "failed to delete CV")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) download(c *gin.Context) {
	f, rc, err := h.Svc.Download(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		respond.Failure(c, err, "failed to download CV")
		return
	}
	defer rc.Close()
	c.Set(middleware.LogCvFileKey, f.ID)
	c.DataFromReader(http.StatusOK, f.FileSize, f.MimeType, rc, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", f.FileName),
	})
}

func (h *Handler) preview(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			respond.Error(c, http.StatusBadRequest, "validation_error", "limit must be a positive integer", nil)
			return
		}
		limit = parsed
	}
	p, err := h.Svc.Preview(c.Request.Context(), middleware.UserIDFromContext(c), limit)
	if err != nil {
		respond.Failure(c, err, "failed to preview CV")
		return
	}
	respond.OK(c, p)
}

func wantsEventStream(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "text/event-stream")
}
