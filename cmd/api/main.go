package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/obetrack/attainment-api/api/swagger"
	"github.com/obetrack/attainment-api/internal/handler"
	"github.com/obetrack/attainment-api/internal/middleware"
	"github.com/obetrack/attainment-api/internal/models"
	"github.com/obetrack/attainment-api/internal/repository"
	"github.com/obetrack/attainment-api/internal/service"
	"github.com/obetrack/attainment-api/pkg/cache"
	"github.com/obetrack/attainment-api/pkg/config"
	"github.com/obetrack/attainment-api/pkg/database"
	"github.com/obetrack/attainment-api/pkg/logger"
	corsmiddleware "github.com/obetrack/attainment-api/pkg/middleware/cors"
	reqidmiddleware "github.com/obetrack/attainment-api/pkg/middleware/requestid"
)

// @title OBE Attainment API
// @version 1.0.0
// @description Outcome-based education attainment tracking
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect redis", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	outcomeRepo := repository.NewOutcomeRepository(db)
	examRepo := repository.NewExamRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	markRepo := repository.NewMarkRepository(db)
	coAttainmentRepo := repository.NewCOAttainmentRepository(db)
	courseAttainmentRepo := repository.NewCourseAttainmentRepository(db)
	summaryCache := repository.NewSummaryCacheRepository(redisClient, cfg.Attainment.SummaryCacheTTL)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "obe-attainment-api",
	})
	accessService := service.NewAccessService(courseRepo, logr)
	userService := service.NewUserService(userRepo, validate, logr)
	courseService := service.NewCourseService(courseRepo, userRepo, validate, logr)
	outcomeService := service.NewOutcomeService(outcomeRepo, courseRepo, validate, logr)
	examService := service.NewExamService(examRepo, questionRepo, markRepo, userRepo, validate, logr)
	attainmentService := service.NewAttainmentService(courseRepo, examRepo, questionRepo, markRepo, userRepo, coAttainmentRepo, courseAttainmentRepo, summaryCache, logr)
	reportService := service.NewReportService(attainmentService, courseRepo, logr)
	metricsService := service.NewMetricsService()

	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	courseHandler := handler.NewCourseHandler(courseService)
	outcomeHandler := handler.NewOutcomeHandler(outcomeService)
	examHandler := handler.NewExamHandler(examService, accessService)
	attainmentHandler := handler.NewAttainmentHandler(attainmentService, examService, accessService, metricsService)
	reportHandler := handler.NewReportHandler(reportService, accessService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsService.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authService), authHandler.Logout)
	auth.GET("/me", middleware.JWT(authService), authHandler.Me)

	authed := api.Group("")
	authed.Use(middleware.JWT(authService))

	admin := authed.Group("/admin")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	admin.POST("/users", userHandler.Create)
	admin.GET("/users", userHandler.List)
	admin.POST("/courses", courseHandler.Create)
	admin.PUT("/courses/:courseRef/teachers", courseHandler.AssignTeachers)
	admin.POST("/courses/:courseRef/outcomes", outcomeHandler.CreateCourseOutcome)
	admin.POST("/courses/:courseRef/mappings", outcomeHandler.CreateMapping)
	admin.POST("/outcomes/program", outcomeHandler.CreateProgramOutcome)
	admin.POST("/attainment/courses/:courseRef/combined", attainmentHandler.RefreshCombined)

	staff := authed.Group("")
	staff.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher))
	staff.GET("/courses", courseHandler.List)
	staff.GET("/courses/:courseRef", courseHandler.Get)
	staff.GET("/courses/:courseRef/outcomes", outcomeHandler.ListCourseOutcomes)
	staff.GET("/courses/:courseRef/report", reportHandler.Download)
	staff.GET("/outcomes/program", outcomeHandler.ListProgramOutcomes)
	staff.GET("/outcomes/mappings", outcomeHandler.ListMappings)

	teacher := authed.Group("/teacher")
	teacher.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher))
	teacher.GET("/courses", examHandler.MyCourses)
	teacher.POST("/courses/:courseRef/exams", examHandler.CreateExam)
	teacher.GET("/courses/:courseRef/exams", examHandler.ListExams)
	teacher.POST("/exams/:examId/questions", examHandler.AddQuestions)
	teacher.DELETE("/questions/:questionId", examHandler.DeleteQuestion)
	teacher.GET("/exams/:examId/marksheet", examHandler.Marksheet)
	teacher.POST("/exams/:examId/marks", examHandler.SubmitMarks)

	attainment := authed.Group("/attainment")
	attainment.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher))
	attainment.POST("/exam-co/:examId", attainmentHandler.CalculateExam)
	attainment.GET("/exam-co/:examId", attainmentHandler.ExamRecords)
	attainment.POST("/ct-final/:courseRef", attainmentHandler.CalculateCTFinal)
	attainment.POST("/assignment-final/:courseRef", attainmentHandler.CalculateAssignmentFinal)
	attainment.POST("/overall/:courseRef", attainmentHandler.CalculateOverall)
	attainment.GET("/courses/:courseRef", attainmentHandler.CourseView)
	attainment.GET("/courses/:courseRef/summary", attainmentHandler.Summary)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
