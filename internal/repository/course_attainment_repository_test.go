package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obetrack/attainment-api/internal/models"
)

func courseAttainmentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "course_id", "type", "section", "total_y", "total_n", "percentage", "level", "updated_at"})
}

func TestCourseAttainmentUpsertUpdatesExisting(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseAttainmentRepository(db)

	totalY, totalN := 12, 8
	pct := 60.0
	section := "A"
	record := &models.CourseAttainment{
		CourseID: "course-1", Type: models.AttainmentCTFinal, Section: &section,
		TotalY: &totalY, TotalN: &totalN, Percentage: &pct, Level: 2,
	}
	mock.ExpectExec("UPDATE course_attainments").
		WithArgs(&totalY, &totalN, &pct, 2, sqlmock.AnyArg(), "course-1", "CT_FINAL", &section).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Upsert(context.Background(), record))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseAttainmentUpsertInsertsWhenMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseAttainmentRepository(db)

	record := &models.CourseAttainment{
		CourseID: "course-1", Type: models.AttainmentOverall, Level: 3,
	}
	mock.ExpectExec("UPDATE course_attainments").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO course_attainments").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Upsert(context.Background(), record))
	assert.NotEmpty(t, record.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseAttainmentFindNoRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseAttainmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE course_id = $1 AND type = $2 AND section IS NOT DISTINCT FROM $3")).
		WithArgs("course-1", "OVERALL", nil).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Find(context.Background(), "course-1", models.AttainmentOverall, nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseAttainmentListByCourseWithType(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseAttainmentRepository(db)

	typ := models.AttainmentCTFinal
	mock.ExpectQuery(regexp.QuoteMeta("WHERE course_id = $1 AND type = $2")).
		WithArgs("course-1", "CT_FINAL").
		WillReturnRows(courseAttainmentRows().
			AddRow("r1", "course-1", "CT_FINAL", nil, 12, 8, 60.0, 2, time.Now().UTC()).
			AddRow("r2", "course-1", "CT_FINAL", "A", 8, 2, 80.0, 3, time.Now().UTC()))

	records, err := repo.ListByCourse(context.Background(), "course-1", &typ)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Nil(t, records[0].Section)
	require.NotNil(t, records[1].Section)
	assert.Equal(t, "A", *records[1].Section)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseAttainmentListSections(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewCourseAttainmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("section IS NOT NULL")).
		WithArgs("course-1", "CT_FINAL").
		WillReturnRows(courseAttainmentRows().
			AddRow("r1", "course-1", "CT_FINAL", "A", 8, 2, 80.0, 3, time.Now().UTC()).
			AddRow("r2", "course-1", "CT_FINAL", "B", 4, 6, 40.0, 0, time.Now().UTC()))

	records, err := repo.ListSections(context.Background(), "course-1", models.AttainmentCTFinal)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "A", *records[0].Section)
	assert.Equal(t, "B", *records[1].Section)
	assert.NoError(t, mock.ExpectationsWereMet())
}
