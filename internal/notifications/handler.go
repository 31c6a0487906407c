package notifications

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"student-dashboard/internal/shared/server/middleware"
	"student-dashboard/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the notification stores.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches notification routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/notifications", h.list)
	rg.GET("/notifications/unread-count", h.unreadCount)
	rg.POST("/notifications/read-all", h.markAllRead)
	rg.POST("/notifications/:id/read", h.markRead)
	rg.POST("/notifications/:id/click", h.click)
	rg.DELETE("/notifications/:id", h.clear)
	rg.DELETE("/notifications", h.clearAll)
}

func (h *Handler) store(c *gin.Context) *Store {
	return h.Svc.StoreFor(middleware.UserIDFromContext(c))
}

func (h *Handler) filter(c *gin.Context) (Filter, bool) {
	filter, err := ParseFilter(c.Query("filter"))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "filter must be one of all, unread, read", nil)
		return "", false
	}
	return filter, true
}

func (h *Handler) list(c *gin.Context) {
	filter, ok := h.filter(c)
	if !ok {
		return
	}
	st := h.store(c)
	if err := st.Refresh(c.Request.Context()); err != nil {
		respond.Failure(c, err, "failed to load notifications")
		return
	}
	respond.OK(c, st.View(filter))
}

func (h *Handler) unreadCount(c *gin.Context) {
	st := h.store(c)
	if err := st.Refresh(c.Request.Context()); err != nil {
		respond.Failure(c, err, "failed to load notifications")
		return
	}
	respond.OK(c, gin.H{"unreadCount": st.UnreadCount()})
}

func (h *Handler) markRead(c *gin.Context) {
	h.mutate(c, func(st *Store) error {
		return st.MarkRead(c.Request.Context(), c.Param("id"))
	})
}

func (h *Handler) markAllRead(c *gin.Context) {
	h.mutate(c, func(st *Store) error {
		return st.MarkAllRead(c.Request.Context())
	})
}

func (h *Handler) clear(c *gin.Context) {
	h.mutate(c, func(st *Store) error {
		return st.Clear(c.Request.Context(), c.Param("id"))
	})
}

func (h *Handler) clearAll(c *gin.Context) {
	h.mutate(c, func(st *Store) error {
		return st.ClearAll(c.Request.Context())
	})
}

// mutate runs op and answers with the re-derived view for the caller's filter.
func (h *Handler) mutate(c *gin.Context, op func(st *Store) error) {
	filter, ok := h.filter(c)
	if !ok {
		return
	}
	st := h.store(c)
	if err := op(st); err != nil {
		respond.Failure(c, err, "failed to update notifications")
		return
	}
	respond.OK(c, st.View(filter))
}

func (h *Handler) click(c *gin.Context) {
	res, err := h.store(c).Click(c.Request.Context(), c.Param("id"))
	if err != nil {
		respond.Failure(c, err, "failed to update notifications")
		return
	}
	respond.OK(c, res)
}
