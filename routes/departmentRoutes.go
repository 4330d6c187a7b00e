package routes

import (
	"civicreport-be/controllers"

	"github.com/gin-gonic/gin"
)

// DepartmentRoutes sets up the department routes.
func DepartmentRoutes(r *gin.Engine, dc *controllers.DepartmentController) {
	r.GET("/api/departments", dc.ListDepartments)
}

// UploadRoutes sets up media upload and serves the stored files.
func UploadRoutes(r *gin.Engine, uc *controllers.UploadController) {
	r.POST("/api/upload", uc.UploadFiles)
	r.Static(controllers.UploadsURLPrefix, uc.Dir())
}
