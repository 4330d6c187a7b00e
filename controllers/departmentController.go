package controllers

import (
	"context"
	"net/http"

	"civicreport-be/models"

	"github.com/gin-gonic/gin"
)

type departmentLister interface {
	List(ctx context.Context) []models.Department
}

// DepartmentController serves the department reference list.
type DepartmentController struct {
	catalog departmentLister
}

// NewDepartmentController builds the controller.
func NewDepartmentController(catalog departmentLister) *DepartmentController {
	return &DepartmentController{catalog: catalog}
}

// ListDepartments returns every department in seed order.
func (dc *DepartmentController) ListDepartments(c *gin.Context) {
	c.JSON(http.StatusOK, dc.catalog.List(c.Request.Context()))
}
