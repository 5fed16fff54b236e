package main

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"

	"github.com/obetrack/attainment-api/internal/models"
	"github.com/obetrack/attainment-api/internal/repository"
	"github.com/obetrack/attainment-api/pkg/config"
	"github.com/obetrack/attainment-api/pkg/database"
)

// Seeds a development database with an admin account, two teachers, a
// two-section course and a small student roster.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect postgres: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	users := repository.NewUserRepository(db)
	courses := repository.NewCourseRepository(db)
	outcomes := repository.NewOutcomeRepository(db)

	admin, err := seedUser(ctx, users, "admin@example.edu", "admin12345", "Admin", models.RoleAdmin, nil, nil, nil)
	if err != nil {
		log.Fatalf("seed admin: %v", err)
	}
	log.Printf("admin ready: %s", admin.Email)

	teacherA, err := seedUser(ctx, users, "teacher.a@example.edu", "teacher12345", "Teacher A", models.RoleTeacher, nil, nil, nil)
	if err != nil {
		log.Fatalf("seed teacher: %v", err)
	}
	teacherB, err := seedUser(ctx, users, "teacher.b@example.edu", "teacher12345", "Teacher B", models.RoleTeacher, nil, nil, nil)
	if err != nil {
		log.Fatalf("seed teacher: %v", err)
	}

	semester := 5
	year := "2025-2026"
	for i := 1; i <= 10; i++ {
		section := "A"
		if i > 5 {
			section = "B"
		}
		email := fmt.Sprintf("student%02d@example.edu", i)
		name := fmt.Sprintf("Student %02d", i)
		if _, err := seedUser(ctx, users, email, "student12345", name, models.RoleStudent, &semester, &section, &year); err != nil {
			log.Fatalf("seed student: %v", err)
		}
	}

	course, err := courses.FindByCode(ctx, "CSE501")
	if err != nil {
		course = &models.Course{
			Code:         "CSE501",
			Name:         "Software Engineering",
			Semester:     &semester,
			AcademicYear: &year,
		}
		if err := courses.Create(ctx, course); err != nil {
			log.Fatalf("seed course: %v", err)
		}
		assignments := []models.SectionTeacher{
			{Section: "A", TeacherID: teacherA.ID},
			{Section: "B", TeacherID: teacherB.ID},
		}
		if err := courses.ReplaceSectionTeachers(ctx, course.ID, assignments); err != nil {
			log.Fatalf("seed assignments: %v", err)
		}
	}
	log.Printf("course ready: %s", course.Code)

	for number, description := range map[int]string{
		1: "Apply software process models",
		2: "Design modular architectures",
		3: "Verify systems through testing",
	} {
		co := &models.CourseOutcome{CourseID: course.ID, Number: number, Description: description}
		if err := outcomes.CreateCourseOutcome(ctx, co); err != nil {
			log.Printf("course outcome CO%d skipped: %v", number, err)
		}
	}

	for code, description := range map[string]string{
		"PO1": "Engineering knowledge",
		"PO2": "Problem analysis",
		"PO3": "Design of solutions",
	} {
		po := &models.ProgramOutcome{Code: code, Description: description}
		if err := outcomes.CreateProgramOutcome(ctx, po); err != nil {
			log.Printf("program outcome %s skipped: %v", code, err)
		}
	}

	log.Println("seed complete")
}

func seedUser(ctx context.Context, users *repository.UserRepository, email, password, name string, role models.UserRole, semester *int, section, year *string) (*models.User, error) {
	if existing, err := users.FindByEmail(ctx, email); err == nil {
		return existing, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		Role:         role,
		Semester:     semester,
		Section:      section,
		AcademicYear: year,
		Active:       true,
	}
	if err := users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
