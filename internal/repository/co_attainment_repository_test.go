package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obetrack/attainment-api/internal/models"
)

func TestCOAttainmentUpsertUpdatesExisting(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCOAttainmentRepository(db)

	examID := "exam-1"
	section := "A"
	record := &models.COAttainment{
		CourseID: "course-1", ExamID: &examID, ExamLabel: "CT1",
		Section: &section, CONumber: 1, Y: 3, N: 1, Percentage: 75, Level: 3,
	}
	mock.ExpectExec("UPDATE co_attainments").
		WithArgs(3, 1, 75.0, 3, sqlmock.AnyArg(), "course-1", &examID, "CT1", &section, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Upsert(context.Background(), record))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCOAttainmentUpsertInsertsWhenMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCOAttainmentRepository(db)

	examID := "exam-1"
	record := &models.COAttainment{
		CourseID: "course-1", ExamID: &examID, ExamLabel: "CT1",
		CONumber: 2, Y: 1, N: 4, Percentage: 20, Level: 0,
	}
	mock.ExpectExec("UPDATE co_attainments").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO co_attainments").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Upsert(context.Background(), record))
	assert.NotEmpty(t, record.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCOAttainmentListByExamAndSection(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCOAttainmentRepository(db)

	examID := "exam-1"
	section := "A"
	mock.ExpectQuery(regexp.QuoteMeta("WHERE exam_id = $1 AND section IS NOT DISTINCT FROM $2")).
		WithArgs(examID, &section).
		WillReturnRows(sqlmock.NewRows([]string{"id", "course_id", "exam_id", "exam_label", "section", "co_number", "y", "n", "percentage", "level", "updated_at"}).
			AddRow("r1", "course-1", examID, "CT1", section, 1, 3, 1, 75.0, 3, time.Now().UTC()))

	records, err := repo.ListByExamAndSection(context.Background(), examID, &section)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].CONumber)
	assert.Equal(t, 3, records[0].Y)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCombinedByCourseSumsConcreteRowsOnly(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCOAttainmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE course_id = $1 AND exam_id IS NOT NULL AND section IS NOT NULL")).
		WithArgs("course-1").
		WillReturnRows(sqlmock.NewRows([]string{"co_number", "y", "n"}).
			AddRow(1, 12, 8).
			AddRow(2, 5, 15))

	combined, err := repo.CombinedByCourse(context.Background(), "course-1")
	require.NoError(t, err)
	require.Len(t, combined, 2)
	assert.Equal(t, 12, combined[0].Y)
	assert.Equal(t, 8, combined[0].N)
	assert.Equal(t, 2, combined[1].CONumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}
