package handler

import (
	"github.com/amoylab/hydrowatch/internal/apiserver/middleware"
	"github.com/amoylab/hydrowatch/internal/common/cnst"
	"github.com/gin-gonic/gin"
)

// Register binds every route. limiter guards the unauthenticated account
// endpoints and may be nil.
func (h *Handler) Register(r gin.IRouter, limiter *middleware.RateLimiter) {
	auth := h.auth
	user := auth.Require(cnst.RoleUser)
	admin := auth.Require(cnst.RoleAdmin)
	super := auth.Require(cnst.RoleSuperAdmin)

	r.GET("/healthz", h.Healthz)
	r.GET("/version", h.Version)

	public := r.Group("")
	if limiter != nil {
		public.Use(limiter.Handler())
	}
	public.POST("/users", h.Signup)
	public.POST("/login", h.Login)
	public.POST("/verify-otp", h.VerifyOTP)
	public.POST("/resend-otp", h.ResendOTP)
	public.POST("/forgot-password", h.ForgotPassword)
	public.POST("/reset-password", h.ResetPassword)

	r.POST("/logout", user, h.Logout)
	r.POST("/admin", super, h.CreateAdmin)

	api := r.Group("/api")
	{
		api.GET("/me", user, h.Me)
		api.PUT("/me", user, h.UpdateMe)
		api.PUT("/me/password", user, h.ChangePassword)

		api.POST("/access-requests", user, h.CreateAccessRequest)

		api.GET("/establishments", user, h.ListEstablishments)
		api.GET("/establishments/:id", user, h.GetEstablishment)
		api.POST("/establishments", super, h.CreateEstablishment)
		api.PUT("/establishments/:id", super, h.UpdateEstablishment)
		api.DELETE("/establishments/:id", super, h.DeleteEstablishment)

		api.GET("/sensors", user, h.ListSensors)
		api.POST("/sensors", super, h.CreateSensor)
		api.DELETE("/sensors/:id", super, h.DeleteSensor)

		api.GET("/events", user, h.ListEvents)

		api.GET("/user/notifications", user, h.UserNotifications)
		api.GET("/user/notifications/unread-count", user, h.UserUnreadCount)
		api.POST("/user/notifications/mark-read", user, h.UserMarkRead)
		api.DELETE("/user/notifications/:id", user, h.UserDeleteNotification)
		api.POST("/user/notifications/delete-all", user, h.UserDeleteAll)

		api.GET("/devices/:deviceId/latest", user, auth.RequireDevice("deviceId"), h.LatestReadings)
		api.POST("/devices/:deviceId/readings",
			middleware.BridgeKey(h.cfg.Realtime.BridgeKey, h.errs), h.IngestReadings)
	}

	adm := api.Group("/admin")
	{
		adm.GET("/admins", super, h.ListAdmins)
		adm.PUT("/admins/:id/establishments", super, h.SetAdminEstablishments)
		adm.GET("/users", admin, h.ListUsers)
		adm.DELETE("/users/:id", super, h.DeleteUser)
		adm.GET("/session-history", admin, h.SessionHistory)

		adm.GET("/access-requests", admin, h.ListAccessRequests)
		adm.PUT("/access-requests/:notificationId/approve", admin, h.ApproveAccessRequest)

		adm.GET("/notifications", admin, h.AdminNotifications)
		adm.GET("/notifications/unread-count", admin, h.AdminUnreadCount)
		adm.POST("/notifications/mark-read", admin, h.AdminMarkRead)
		adm.DELETE("/notifications/:id", admin, h.AdminDeleteNotification)

		adm.POST("/events", admin, h.CreateEvent)
		adm.PUT("/events/:id", admin, h.UpdateEvent)
		adm.DELETE("/events/:id", admin, h.DeleteEvent)
	}

	r.GET("/ws/devices/:deviceId", h.DeviceFeed)
}
