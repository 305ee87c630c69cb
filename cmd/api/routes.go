package main

import (
	"listenline/internal/httpapi"
	"listenline/internal/rbac"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// AUTH routes (token issuance).
	// NOTE: This is a placeholder login route; real credential validation is not implemented.
	r.POST("/v1/auth/login", h.Login)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		// CALL routes: both parties drive the lifecycle.
		callGroup := v1.Group("/calls")
		callGroup.Use(rbac.RequireAnyRole(rbac.RoleCaller, rbac.RoleListener))
		{
			callGroup.POST("", h.CreateCall)
			callGroup.GET("/:call_id", h.GetCall)
			callGroup.POST("/:call_id/status", h.TransitionCall)
			callGroup.GET("/:call_id/rtc-token", h.RTCToken)
			callGroup.POST("/:call_id/rating", h.SubmitRating)
		}

		// LISTENER routes.
		listeners := v1.Group("/listeners")
		{
			listeners.GET("/random", h.RandomListener)
			listeners.GET("/:listener_id", h.GetListener)
			listeners.GET("/:listener_id/ratings", h.ListRatings)

			own := listeners.Group("")
			own.Use(rbac.RequireAnyRole(rbac.RoleListener))
			{
				own.POST("/:listener_id/heartbeat", h.Heartbeat)
				own.PUT("/:listener_id/availability", h.SetAvailability)
			}

			listeners.GET("/:listener_id/summary", h.ListenerSummary)
		}
	}
}
