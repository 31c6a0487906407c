package session

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"student-dashboard/internal/shared/server/middleware"
	"student-dashboard/internal/shared/server/respond"
)

// Handler exposes mock login and logout.
type Handler struct {
	Manager *Manager
	// OnLogout, when set, releases per-user state after a logout.
	OnLogout func(userID string)
}

// NewHandler constructs a Handler.
func NewHandler(m *Manager, onLogout func(userID string)) *Handler {
	return &Handler{Manager: m, OnLogout: onLogout}
}

// RegisterRoutes attaches session routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/session", h.login)
	rg.GET("/session", h.current)
	rg.DELETE("/session", h.logout)
}

type loginRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid login body", nil)
		return
	}
	sess, err := h.Manager.Login(c.Request.Context(), req.Email, req.Name)
	if err != nil {
		respond.Failure(c, err, "failed to create session")
		return
	}
	respond.JSON(c, http.StatusCreated, sess)
}

func (h *Handler) current(c *gin.Context) {
	if middleware.IsGuest(c) {
		respond.JSON(c, http.StatusOK, gin.H{
			"guest": true,
			"user":  gin.H{"id": middleware.UserIDFromContext(c)},
		})
		return
	}
	sess, err := h.Manager.Current(c.Request.Context(), middleware.SessionIDFromContext(c))
	if err != nil {
		respond.Failure(c, err, "failed to load session")
		return
	}
	respond.OK(c, gin.H{"guest": false, "user": sess.User})
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.Manager.Logout(c.Request.Context(), middleware.SessionIDFromContext(c)); err != nil {
		respond.Failure(c, err, "failed to end session")
		return
	}
	if h.OnLogout != nil {
		h.OnLogout(middleware.UserIDFromContext(c))
	}
	c.Status(http.StatusNoContent)
}
