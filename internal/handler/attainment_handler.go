package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/obetrack/attainment-api/internal/models"
	"github.com/obetrack/attainment-api/internal/service"
	appErrors "github.com/obetrack/attainment-api/pkg/errors"
	"github.com/obetrack/attainment-api/pkg/response"
)

// AttainmentHandler exposes attainment calculation and read endpoints.
type AttainmentHandler struct {
	attainments *service.AttainmentService
	exams       *service.ExamService
	access      *service.AccessService
	metrics     *service.MetricsService
}

// NewAttainmentHandler constructs handler.
func NewAttainmentHandler(attainments *service.AttainmentService, exams *service.ExamService, access *service.AccessService, metrics *service.MetricsService) *AttainmentHandler {
	return &AttainmentHandler{attainments: attainments, exams: exams, access: access, metrics: metrics}
}

// CalculateExam godoc
// @Summary Calculate per-CO attainment for an exam
// @Tags Attainment
// @Produce json
// @Param examId path string true "Exam id"
// @Param section query string false "Section, or all"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attainment/exam-co/{examId} [post]
func (h *AttainmentHandler) CalculateExam(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	exam, err := h.exams.GetExam(c.Request.Context(), c.Param("examId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	scope, err := h.access.ResolveScope(c.Request.Context(), claims.Role, claims.UserID, exam.CourseID, c.Query("section"))
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	records, err := h.attainments.CalculateExamCO(c.Request.Context(), exam.ID, scope.Section)
	h.metrics.ObserveCalculation("exam_co", time.Since(start), err)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// ExamRecords godoc
// @Summary List the stored per-CO records of an exam
// @Tags Attainment
// @Produce json
// @Param examId path string true "Exam id"
// @Param section query string false "Section, or all"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attainment/exam-co/{examId} [get]
func (h *AttainmentHandler) ExamRecords(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	exam, err := h.exams.GetExam(c.Request.Context(), c.Param("examId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	scope, err := h.access.ResolveScope(c.Request.Context(), claims.Role, claims.UserID, exam.CourseID, c.Query("section"))
	if err != nil {
		response.Error(c, err)
		return
	}
	records, err := h.attainments.ListExamCO(c.Request.Context(), exam.ID, scope.Section)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// CalculateCTFinal godoc
// @Summary Calculate the CT final rollup of a course
// @Tags Attainment
// @Produce json
// @Param courseRef path string true "Course id or code"
// @Param section query string false "Section, or all"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attainment/ct-final/{courseRef} [post]
func (h *AttainmentHandler) CalculateCTFinal(c *gin.Context) {
	h.calculateFinal(c, models.AttainmentCTFinal)
}

// CalculateAssignmentFinal godoc
// @Summary Calculate the assignment final rollup of a course
// @Tags Attainment
// @Produce json
// @Param courseRef path string true "Course id or code"
// @Param section query string false "Section, or all"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attainment/assignment-final/{courseRef} [post]
func (h *AttainmentHandler) CalculateAssignmentFinal(c *gin.Context) {
	h.calculateFinal(c, models.AttainmentAssignmentFinal)
}

func (h *AttainmentHandler) calculateFinal(c *gin.Context, typ models.AttainmentType) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	scope, err := h.access.ResolveScope(c.Request.Context(), claims.Role, claims.UserID, c.Param("courseRef"), c.Query("section"))
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	record, err := h.attainments.CalculateCourseFinal(c.Request.Context(), scope.Course.ID, typ, scope.Section)
	h.metrics.ObserveCalculation("course_final", time.Since(start), err)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// CalculateOverall godoc
// @Summary Calculate the overall level from the two finals
// @Tags Attainment
// @Produce json
// @Param courseRef path string true "Course id or code"
// @Param section query string false "Section, or all"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attainment/overall/{courseRef} [post]
func (h *AttainmentHandler) CalculateOverall(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	scope, err := h.access.ResolveScope(c.Request.Context(), claims.Role, claims.UserID, c.Param("courseRef"), c.Query("section"))
	if err != nil {
		response.Error(c, err)
		return
	}
	start := time.Now()
	record, err := h.attainments.CalculateOverall(c.Request.Context(), scope.Course.ID, scope.Section)
	h.metrics.ObserveCalculation("overall", time.Since(start), err)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// RefreshCombined godoc
// @Summary Rebuild the cross-section combined records of a course
// @Tags Attainment
// @Produce json
// @Param courseRef path string true "Course id or code"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/attainment/courses/{courseRef}/combined [post]
func (h *AttainmentHandler) RefreshCombined(c *gin.Context) {
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
	start := time.Now()
	summary, err := h.attainments.RefreshCombined(c.Request.Context(), course.ID)
	h.metrics.ObserveCalculation("combined", time.Since(start), err)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// CourseView godoc
// @Summary Full attainment view of a course
// @Tags Attainment
// @Produce json
// @Param courseRef path string true "Course id or code"
// @Param type query string false "Restrict per-section records to one type"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attainment/courses/{courseRef} [get]
func (h *AttainmentHandler) CourseView(c *gin.Context) {
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
	var typ *models.AttainmentType
	if raw := c.Query("type"); raw != "" {
		parsed := models.AttainmentType(raw)
		switch parsed {
		case models.AttainmentCTFinal, models.AttainmentAssignmentFinal, models.AttainmentOverall:
			typ = &parsed
		default:
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown attainment type"))
			return
		}
	}
	view, err := h.attainments.GetCourseView(c.Request.Context(), course.ID, typ)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Summary godoc
// @Summary Combined attainment summary of a course
// @Tags Attainment
// @Produce json
// @Param courseRef path string true "Course id or code"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /attainment/courses/{courseRef}/summary [get]
func (h *AttainmentHandler) Summary(c *gin.Context) {
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
	summary, err := h.attainments.GetSummary(c.Request.Context(), course.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
