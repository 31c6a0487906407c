package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"student-dashboard/internal/cv"
	"student-dashboard/internal/notifications"
	"student-dashboard/internal/pages"
	"student-dashboard/internal/shared/server/middleware"
	"student-dashboard/internal/shared/server/respond"
)

// meDeps are the services the dashboard header summarizes.
type meDeps struct {
	Notifications *notifications.Service
	CV            *cv.Service
	Pages         *pages.Registry
}

// registerMeRoutes attaches the /me endpoint.
func registerMeRoutes(rg *gin.RouterGroup, deps meDeps) {
	rg.GET("/me", func(c *gin.Context) { meHandler(c, deps) })
}

// meHandler returns the identity plus what the navigation shell badges:
// unread notifications, whether a CV is on record, and mounted pages.
func meHandler(c *gin.Context, deps meDeps) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
		return
	}

	response := gin.H{
		"userId": userID,
		"guest":  middleware.IsGuest(c),
	}
	if email := middleware.UserEmailFromContext(c); email != "" {
		response["email"] = email
	}
	if name := middleware.UserNameFromContext(c); name != "" {
		response["name"] = name
	}

	ctx := c.Request.Context()
	if deps.Notifications != nil {
		st := deps.Notifications.StoreFor(userID)
		if err := st.Refresh(ctx); err != nil {
			respond.Failure(c, err, "failed to load notifications")
			return
		}
		response["unreadCount"] = st.UnreadCount()
	}
	if deps.CV != nil {
		_, err := deps.CV.Current(ctx, userID)
		if err != nil && !errors.Is(err, cv.ErrNotFound) {
			respond.Failure(c, err, "failed to fetch CV")
			return
		}
		response["hasCv"] = err == nil
	}
	if deps.Pages != nil {
		mounted := deps.Pages.Mounted(userID)
		if mounted == nil {
			mounted = []pages.Page{}
		}
		response["mountedPages"] = mounted
	}

	respond.JSON(c, http.StatusOK, response)
}
