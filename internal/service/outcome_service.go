package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/obetrack/attainment-api/internal/models"
	appErrors "github.com/obetrack/attainment-api/pkg/errors"
)

type outcomeStore interface {
	CreateProgramOutcome(ctx context.Context, po *models.ProgramOutcome) error
	ListProgramOutcomes(ctx context.Context) ([]models.ProgramOutcome, error)
	FindProgramOutcomeByCode(ctx context.Context, code string) (*models.ProgramOutcome, error)
	CreateCourseOutcome(ctx context.Context, co *models.CourseOutcome) error
	ListCourseOutcomes(ctx context.Context, courseID string) ([]models.CourseOutcome, error)
	CreateMapping(ctx context.Context, mapping *models.COPOMapping) error
	ListMappings(ctx context.Context) ([]models.COPOMappingDetail, error)
}

// CreateProgramOutcomeRequest registers a program outcome.
type CreateProgramOutcomeRequest struct {
	Code        string `json:"code" validate:"required"`
	Description string `json:"description" validate:"required"`
}

// CreateCourseOutcomeRequest registers a course outcome.
type CreateCourseOutcomeRequest struct {
	Number      int    `json:"number" validate:"required,min=1"`
	Description string `json:"description" validate:"required"`
}

// CreateMappingRequest links a CO to a PO.
type CreateMappingRequest struct {
	CONumber int    `json:"co_number" validate:"required,min=1"`
	POCode   string `json:"po_code" validate:"required"`
	Level    int    `json:"level" validate:"required,min=1,max=3"`
}

// OutcomeService manages program outcomes, course outcomes and their
// mappings.
type OutcomeService struct {
	outcomes  outcomeStore
	courses   courseResolver
	validator *validator.Validate
	logger    *zap.Logger
}

// NewOutcomeService constructs OutcomeService.
func NewOutcomeService(outcomes outcomeStore, courses courseResolver, validate *validator.Validate, logger *zap.Logger) *OutcomeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutcomeService{outcomes: outcomes, courses: courses, validator: validate, logger: logger}
}

// CreateProgramOutcome registers a program outcome with a unique code.
func (s *OutcomeService) CreateProgramOutcome(ctx context.Context, req CreateProgramOutcomeRequest) (*models.ProgramOutcome, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid program outcome payload")
	}
	if _, err := s.outcomes.FindProgramOutcomeByCode(ctx, req.Code); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "program outcome code already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check program outcome code")
	}
	po := &models.ProgramOutcome{Code: req.Code, Description: req.Description}
	if err := s.outcomes.CreateProgramOutcome(ctx, po); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create program outcome")
	}
	return po, nil
}

// ListProgramOutcomes returns all program outcomes.
func (s *OutcomeService) ListProgramOutcomes(ctx context.Context) ([]models.ProgramOutcome, error) {
	pos, err := s.outcomes.ListProgramOutcomes(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list program outcomes")
	}
	return pos, nil
}

// CreateCourseOutcome registers a CO for a course referenced by id or code.
func (s *OutcomeService) CreateCourseOutcome(ctx context.Context, courseRef string, req CreateCourseOutcomeRequest) (*models.CourseOutcome, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course outcome payload")
	}
	course, err := s.resolveCourse(ctx, courseRef)
	if err != nil {
		return nil, err
	}
	existing, err := s.outcomes.ListCourseOutcomes(ctx, course.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course outcomes")
	}
	for _, co := range existing {
		if co.Number == req.Number {
			return nil, appErrors.Clone(appErrors.ErrConflict, "course outcome number already exists")
		}
	}
	co := &models.CourseOutcome{CourseID: course.ID, Number: req.Number, Description: req.Description}
	if err := s.outcomes.CreateCourseOutcome(ctx, co); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course outcome")
	}
	return co, nil
}

// ListCourseOutcomes returns the COs of a course referenced by id or code.
func (s *OutcomeService) ListCourseOutcomes(ctx context.Context, courseRef string) ([]models.CourseOutcome, error) {
	course, err := s.resolveCourse(ctx, courseRef)
	if err != nil {
		return nil, err
	}
	cos, err := s.outcomes.ListCourseOutcomes(ctx, course.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course outcomes")
	}
	return cos, nil
}

// CreateMapping links a CO of a course to a program outcome. The CO and PO
// must both exist.
func (s *OutcomeService) CreateMapping(ctx context.Context, courseRef string, req CreateMappingRequest) (*models.COPOMapping, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mapping payload")
	}
	course, err := s.resolveCourse(ctx, courseRef)
	if err != nil {
		return nil, err
	}
	cos, err := s.outcomes.ListCourseOutcomes(ctx, course.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course outcomes")
	}
	found := false
	for _, co := range cos {
		if co.Number == req.CONumber {
			found = true
			break
		}
	}
	if !found {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course outcome not defined")
	}
	if _, err := s.outcomes.FindProgramOutcomeByCode(ctx, req.POCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "program outcome not defined")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program outcome")
	}
	mapping := &models.COPOMapping{CourseID: course.ID, CONumber: req.CONumber, POCode: req.POCode, Level: req.Level}
	if err := s.outcomes.CreateMapping(ctx, mapping); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create mapping")
	}
	return mapping, nil
}

// ListMappings returns every CO-PO mapping with course identification.
func (s *OutcomeService) ListMappings(ctx context.Context) ([]models.COPOMappingDetail, error) {
	mappings, err := s.outcomes.ListMappings(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list mappings")
	}
	return mappings, nil
}

func (s *OutcomeService) resolveCourse(ctx context.Context, ref string) (*models.Course, error) {
	course, err := s.courses.ResolveRef(ctx, ref)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve course")
	}
	return course, nil
}
