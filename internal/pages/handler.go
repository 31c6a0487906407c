package pages

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"student-dashboard/internal/shared/server/middleware"
	"student-dashboard/internal/shared/server/respond"
)

// Handler exposes page resources over HTTP.
type Handler struct {
	Registry *Registry
}

// NewHandler constructs a Handler.
func NewHandler(registry *Registry) *Handler {
	return &Handler{Registry: registry}
}

// RegisterRoutes attaches page routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/pages", h.mounted)
	rg.GET("/pages/:page", h.get)
	rg.POST("/pages/:page/reload", h.reload)
	rg.DELETE("/pages/:page", h.unmount)
}

func (h *Handler) page(c *gin.Context) (Page, bool) {
	page, err := ParsePage(c.Param("page"))
	if err != nil {
		respond.Failure(c, err, "")
		return "", false
	}
	c.Set(middleware.LogPageKey, string(page))
	return page, true
}

func wantsWait(c *gin.Context) bool {
	wait, err := strconv.ParseBool(c.DefaultQuery("wait", "false"))
	return err == nil && wait
}

func (h *Handler) mounted(c *gin.Context) {
	pages := h.Registry.Mounted(middleware.UserIDFromContext(c))
	if pages == nil {
		pages = []Page{}
	}
	respond.OK(c, gin.H{"mounted": pages})
}

func (h *Handler) get(c *gin.Context) {
	page, ok := h.page(c)
	if !ok {
		return
	}
	snap, err := h.Registry.Get(c.Request.Context(), middleware.UserIDFromContext(c), page, wantsWait(c))
	if err != nil {
		respond.Error(c, http.StatusGatewayTimeout, "timeout", "page did not settle before the request ended", snap)
		return
	}
	respond.OK(c, snap)
}

func (h *Handler) reload(c *gin.Context) {
	page, ok := h.page(c)
	if !ok {
		return
	}
	snap, err := h.Registry.Reload(c.Request.Context(), middleware.UserIDFromContext(c), page, wantsWait(c))
	if err != nil {
		respond.Error(c, http.StatusGatewayTimeout, "timeout", "page did not settle before the request ended", snap)
		return
	}
	respond.JSON(c, http.StatusAccepted, snap)
}

func (h *Handler) unmount(c *gin.Context) {
	page, ok := h.page(c)
	if !ok {
		return
	}
	if err := h.Registry.Unmount(middleware.UserIDFromContext(c), page); err != nil {
		respond.Failure(c, err, "")
		return
	}
	c.Status(http.StatusNoContent)
}
