package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/obetrack/attainment-api/internal/service"
	appErrors "github.com/obetrack/attainment-api/pkg/errors"
	"github.com/obetrack/attainment-api/pkg/response"
)

// ExamHandler exposes exam, question and marksheet endpoints.
type ExamHandler struct {
	exams  *service.ExamService
	access *service.AccessService
}

// NewExamHandler constructs handler.
func NewExamHandler(exams *service.ExamService, access *service.AccessService) *ExamHandler {
	return &ExamHandler{exams: exams, access: access}
}

// MyCourses godoc
// @Summary List the courses assigned to the authenticated teacher
// @Tags Exams
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /teacher/courses [get]
func (h *ExamHandler) MyCourses(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	courses, err := h.access.AssignedCourses(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// CreateExam godoc
// @Summary Create an exam for a course
// @Tags Exams
// @Accept json
// @Produce json
// @Param courseRef path string true "Course id or code"
// @Param payload body service.CreateExamRequest true "Exam payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /teacher/courses/{courseRef}/exams [post]
func (h *ExamHandler) CreateExam(c *gin.Context) {
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
	var req service.CreateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	exam, err := h.exams.CreateExam(c.Request.Context(), course.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, exam)
}

// ListExams godoc
// @Summary List the exams of a course
// @Tags Exams
// @Produce json
// @Param courseRef path string true "Course id or code"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /teacher/courses/{courseRef}/exams [get]
func (h *ExamHandler) ListExams(c *gin.Context) {
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
	exams, err := h.exams.ListExams(c.Request.Context(), course.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exams, nil)
}

// AddQuestions godoc
// @Summary Append questions to an exam
// @Tags Exams
// @Accept json
// @Produce json
// @Param examId path string true "Exam id"
// @Param payload body []service.QuestionInput true "Questions"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /teacher/exams/{examId}/questions [post]
func (h *ExamHandler) AddQuestions(c *gin.Context) {
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
	if _, err := h.access.ResolveCourse(c.Request.Context(), claims.Role, claims.UserID, exam.CourseID); err != nil {
		response.Error(c, err)
		return
	}
	var inputs []service.QuestionInput
	if err := c.ShouldBindJSON(&inputs); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	questions, err := h.exams.AddQuestions(c.Request.Context(), exam.ID, inputs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, questions)
}

// DeleteQuestion godoc
// @Summary Delete a question and its marks
// @Tags Exams
// @Param questionId path string true "Question id"
// @Success 204
// @Security BearerAuth
// @Router /teacher/questions/{questionId} [delete]
func (h *ExamHandler) DeleteQuestion(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	exam, err := h.exams.QuestionOwner(c.Request.Context(), c.Param("questionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if _, err := h.access.ResolveCourse(c.Request.Context(), claims.Role, claims.UserID, exam.CourseID); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.exams.DeleteQuestion(c.Request.Context(), c.Param("questionId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Marksheet godoc
// @Summary Get the editable marksheet of an exam
// @Tags Exams
// @Produce json
// @Param examId path string true "Exam id"
// @Param section query string false "Section"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /teacher/exams/{examId}/marksheet [get]
func (h *ExamHandler) Marksheet(c *gin.Context) {
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
	sheet, err := h.exams.GetMarksheet(c.Request.Context(), scope.Course, exam.ID, scope.Section)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sheet, nil)
}

// SubmitMarks godoc
// @Summary Submit marks for an exam
// @Tags Exams
// @Accept json
// @Produce json
// @Param examId path string true "Exam id"
// @Param section query string false "Section"
// @Param payload body service.SubmitMarksheetRequest true "Marks"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /teacher/exams/{examId}/marks [post]
func (h *ExamHandler) SubmitMarks(c *gin.Context) {
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
	var req service.SubmitMarksheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.exams.SubmitMarksheet(c.Request.Context(), scope.Course, exam.ID, scope.Section, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
