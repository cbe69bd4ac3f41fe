package httpapi

import (
	"arrest-log/internal/auth"
	"arrest-log/internal/rbac"

	"github.com/gin-gonic/gin"
)

// Routes wires every endpoint onto r.
// Keep this free of business logic; handlers delegate to internal services.
func (h Handlers) Routes(r gin.IRouter) {
	r.GET("/healthz", h.Healthz)

	v1 := r.Group("/v1")

	public := v1.Group("/auth")
	{
		public.POST("/register", h.Register)
		public.POST("/login", h.Login)
		public.POST("/refresh", h.Refresh)
	}

	authed := v1.Group("")
	authed.Use(auth.RequireAccessToken(h.Auth), rbac.RequireSession())
	{
		authed.POST("/auth/logout", h.Logout)
		authed.GET("/me", h.Me)
		authed.POST("/me/activity", h.TouchActivity)
		authed.GET("/me/permissions", h.Permissions)
		authed.GET("/roles", h.Roles)

		recs := authed.Group("/records")
		{
			recs.GET("", h.ListRecords)
			recs.POST("", rbac.Require(rbac.CanCreateRecords), h.CreateRecord)
			recs.GET("/by-individual", rbac.Require(rbac.CanViewAllRecords), h.RecordsByIndividual)
			recs.GET("/aggregate", rbac.Require(rbac.CanViewAllRecords), h.AggregateRecords)
			recs.PATCH("/:id", rbac.Require(rbac.CanEditRecords), h.UpdateRecord)
			recs.DELETE("/:id", rbac.Require(rbac.CanDeleteRecords), h.DeleteRecord)
		}

		authed.GET("/reports/records", rbac.Require(rbac.CanViewAllRecords), h.RecordsReport)
		authed.POST("/images", rbac.Require(rbac.CanCreateRecords), h.UploadImages)

		admin := authed.Group("")
		admin.Use(rbac.Require(rbac.CanManageUsers))
		{
			admin.GET("/users", h.ListUsers)
			admin.PATCH("/users/:id/role", h.ChangeUserRole)
			admin.DELETE("/users/:id", h.RemoveUser)
			admin.GET("/logs", h.ListLogs)
			admin.GET("/reports/activity", h.ActivityReport)
		}

		authed.GET("/settings", h.GetSettings)
		authed.PUT("/settings", rbac.Require(rbac.CanManageSettings), h.PutSettings)
	}
}
