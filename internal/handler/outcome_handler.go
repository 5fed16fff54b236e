package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/obetrack/attainment-api/internal/service"
	appErrors "github.com/obetrack/attainment-api/pkg/errors"
	"github.com/obetrack/attainment-api/pkg/response"
)

// OutcomeHandler exposes program outcome, course outcome and mapping
// endpoints.
type OutcomeHandler struct {
	outcomes *service.OutcomeService
}

// NewOutcomeHandler constructs handler.
func NewOutcomeHandler(outcomes *service.OutcomeService) *OutcomeHandler {
	return &OutcomeHandler{outcomes: outcomes}
}

// CreateProgramOutcome godoc
// @Summary Create a program outcome
// @Tags Outcomes
// @Accept json
// @Produce json
// @Param payload body service.CreateProgramOutcomeRequest true "Program outcome"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/outcomes/program [post]
func (h *OutcomeHandler) CreateProgramOutcome(c *gin.Context) {
	var req service.CreateProgramOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	po, err := h.outcomes.CreateProgramOutcome(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, po)
}

// ListProgramOutcomes godoc
// @Summary List program outcomes
// @Tags Outcomes
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /outcomes/program [get]
func (h *OutcomeHandler) ListProgramOutcomes(c *gin.Context) {
	pos, err := h.outcomes.ListProgramOutcomes(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pos, nil)
}

// CreateCourseOutcome godoc
// @Summary Create a course outcome
// @Tags Outcomes
// @Accept json
// @Produce json
// @Param courseRef path string true "Course id or code"
// @Param payload body service.CreateCourseOutcomeRequest true "Course outcome"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/courses/{courseRef}/outcomes [post]
func (h *OutcomeHandler) CreateCourseOutcome(c *gin.Context) {
	var req service.CreateCourseOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	co, err := h.outcomes.CreateCourseOutcome(c.Request.Context(), c.Param("courseRef"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, co)
}

// ListCourseOutcomes godoc
// @Summary List the course outcomes of a course
// @Tags Outcomes
// @Produce json
// @Param courseRef path string true "Course id or code"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /courses/{courseRef}/outcomes [get]
func (h *OutcomeHandler) ListCourseOutcomes(c *gin.Context) {
	cos, err := h.outcomes.ListCourseOutcomes(c.Request.Context(), c.Param("courseRef"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cos, nil)
}

// CreateMapping godoc
// @Summary Map a course outcome to a program outcome
// @Tags Outcomes
// @Accept json
// @Produce json
// @Param courseRef path string true "Course id or code"
// @Param payload body service.CreateMappingRequest true "Mapping"
// @Success 201 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/courses/{courseRef}/mappings [post]
func (h *OutcomeHandler) CreateMapping(c *gin.Context) {
	var req service.CreateMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	mapping, err := h.outcomes.CreateMapping(c.Request.Context(), c.Param("courseRef"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, mapping)
}

// ListMappings godoc
// @Summary List every CO-PO mapping
// @Tags Outcomes
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /outcomes/mappings [get]
func (h *OutcomeHandler) ListMappings(c *gin.Context) {
	mappings, err := h.outcomes.ListMappings(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mappings, nil)
}
