package routes

import (
	"civicreport-be/controllers"

	"github.com/gin-gonic/gin"
)

// IssueRoutes sets up the issue and archive routes. createLimit, when not
// nil, runs before issue creation.
func IssueRoutes(r *gin.Engine, ic *controllers.IssueController, createLimit gin.HandlerFunc) {
	create := []gin.HandlerFunc{ic.CreateIssue}
	if createLimit != nil {
		create = append([]gin.HandlerFunc{createLimit}, create...)
	}

	issues := r.Group("/api/issues")
	{
		issues.GET("", ic.ListIssues)
		issues.POST("", create...)
		issues.POST("/clear-resolved", ic.ClearResolved)
		issues.PATCH("/:id/status", ic.UpdateIssueStatus)
		issues.POST("/:id/assign", ic.AssignIssue)
		issues.DELETE("/:id", ic.DeleteIssue)
	}
	r.GET("/api/archive", ic.ListArchive)
}
