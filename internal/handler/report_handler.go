package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/obetrack/attainment-api/internal/service"
	appErrors "github.com/obetrack/attainment-api/pkg/errors"
	"github.com/obetrack/attainment-api/pkg/response"
)

// ReportHandler exposes attainment report downloads.
type ReportHandler struct {
	reports *service.ReportService
	access  *service.AccessService
}

// NewReportHandler constructs handler.
func NewReportHandler(reports *service.ReportService, access *service.AccessService) *ReportHandler {
	return &ReportHandler{reports: reports, access: access}
}

// Download godoc
// @Summary Download a course attainment report
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param courseRef path string true "Course id or code"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Security BearerAuth
// @Router /courses/{courseRef}/report [get]
func (h *ReportHandler) Download(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	course, err := h.access.ResolveCourse(c.Request.Context(), claims.Role, claims.UserID, c.Param("courseRef"))
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.reports.CourseAttainmentReport(c.Request.Context(), course.ID, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Content)
}
