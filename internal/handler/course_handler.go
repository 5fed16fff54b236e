package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/obetrack/attainment-api/internal/service"
	appErrors "github.com/obetrack/attainment-api/pkg/errors"
	"github.com/obetrack/attainment-api/pkg/response"
)

// CourseHandler exposes course administration endpoints.
type CourseHandler struct {
	courses *service.CourseService
}

// NewCourseHandler constructs handler.
func NewCourseHandler(courses *service.CourseService) *CourseHandler {
	return &CourseHandler{courses: courses}
}

// Create godoc
// @Summary Create a course
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body service.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req service.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course, err := h.courses.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// List godoc
// @Summary List courses
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	courses, err := h.courses.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, nil)
}

// Get godoc
// @Summary Get a course by id or code
// @Tags Courses
// @Produce json
// @Param courseRef path string true "Course id or code"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{courseRef} [get]
func (h *CourseHandler) Get(c *gin.Context) {
	course, err := h.courses.Get(c.Request.Context(), c.Param("courseRef"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// AssignTeachers godoc
// @Summary Replace the section-teacher assignments of a course
// @Tags Courses
// @Accept json
// @Produce json
// @Param courseRef path string true "Course id or code"
// @Param payload body service.AssignTeachersRequest true "Assignments"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/courses/{courseRef}/teachers [put]
func (h *CourseHandler) AssignTeachers(c *gin.Context) {
	var req service.AssignTeachersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course, err := h.courses.AssignTeachers(c.Request.Context(), c.Param("courseRef"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}
