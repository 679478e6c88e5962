package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campuskit/timetable-api/api/swagger"
	"github.com/campuskit/timetable-api/internal/handler"
	"github.com/campuskit/timetable-api/internal/middleware"
	"github.com/campuskit/timetable-api/internal/models"
	"github.com/campuskit/timetable-api/internal/repository"
	"github.com/campuskit/timetable-api/internal/service"
	"github.com/campuskit/timetable-api/pkg/cache"
	"github.com/campuskit/timetable-api/pkg/config"
	"github.com/campuskit/timetable-api/pkg/database"
	"github.com/campuskit/timetable-api/pkg/export"
	"github.com/campuskit/timetable-api/pkg/jobs"
	"github.com/campuskit/timetable-api/pkg/logger"
	corsmiddleware "github.com/campuskit/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campuskit/timetable-api/pkg/middleware/requestid"
)

// @title Campus Timetable API
// @version 1.0.0
// @description Schedule editing, conflict detection and hour accounting for campus timetables.
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, conflict context cache disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	offeringRepo := repository.NewOfferingRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)

	var conflictCache *repository.CacheRepository
	var debouncer *jobs.Debouncer
	if redisClient != nil {
		conflictCache = repository.NewCacheRepository(redisClient)
		debouncer = jobs.NewDebouncer(jobs.DebouncerConfig{
			Delay:  cfg.Scheduling.RefreshDebounce,
			Logger: logr,
		})
		defer debouncer.Stop()
	}

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	subjectSvc := service.NewSubjectService(subjectRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, validate, logr)
	roomSvc := service.NewRoomService(roomRepo, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, validate, logr)
	offeringSvc := service.NewOfferingService(offeringRepo, subjectRepo, validate, logr)
	var scheduleCache service.ConflictCache
	if conflictCache != nil {
		scheduleCache = conflictCache
	}
	scheduleSvc := service.NewScheduleService(scheduleRepo, scheduleCache, offeringSvc, debouncer, validate, logr, cfg.Scheduling.ConflictCacheTTL)
	workloadSvc := service.NewWorkloadService(offeringRepo, subjectRepo, teacherRepo, validate, logr, cfg.Workload.MaxUnitLimit)
	exportSvc := service.NewExportService(scheduleSvc, export.NewPDFExporter(), export.NewCSVExporter(), logr, cfg.Exports.Enabled)
	metricsSvc := service.NewMetricsService()

	authHandler := handler.NewAuthHandler(authSvc)
	subjectHandler := handler.NewSubjectHandler(subjectSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	roomHandler := handler.NewRoomHandler(roomSvc)
	teacherHandler := handler.NewTeacherHandler(teacherSvc)
	offeringHandler := handler.NewOfferingHandler(offeringSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc, metricsSvc)
	workloadHandler := handler.NewWorkloadHandler(workloadSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	gridHandler := handler.NewGridHandler()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	authed.GET("/auth/me", authHandler.Me)
	authed.GET("/status", metricsHandler.Status)
	authed.GET("/grid", gridHandler.Slots)

	writers := middleware.RequireRoles(models.RoleAdmin, models.RoleRegistrar)
	admins := middleware.RequireRoles(models.RoleAdmin)

	authed.GET("/subjects", subjectHandler.List)
	authed.GET("/subjects/:id", subjectHandler.Get)
	authed.POST("/subjects", writers, subjectHandler.Create)
	authed.PUT("/subjects/:id", writers, subjectHandler.Update)
	authed.DELETE("/subjects/:id", admins, subjectHandler.Delete)

	authed.GET("/courses", courseHandler.List)
	authed.GET("/courses/:id", courseHandler.Get)
	authed.POST("/courses", writers, courseHandler.Create)
	authed.PUT("/courses/:id", writers, courseHandler.Update)
	authed.DELETE("/courses/:id", admins, courseHandler.Delete)

	authed.GET("/rooms", roomHandler.List)
	authed.GET("/rooms/:id", roomHandler.Get)
	authed.POST("/rooms", writers, roomHandler.Create)
	authed.PUT("/rooms/:id", writers, roomHandler.Update)
	authed.DELETE("/rooms/:id", admins, roomHandler.Delete)

	authed.GET("/teachers", teacherHandler.List)
	authed.GET("/teachers/:id", teacherHandler.Get)
	authed.POST("/teachers", writers, teacherHandler.Create)
	authed.PUT("/teachers/:id", writers, teacherHandler.Update)
	authed.DELETE("/teachers/:id", admins, teacherHandler.Delete)

	authed.GET("/offerings", offeringHandler.List)
	authed.GET("/offerings/:id", offeringHandler.Get)
	authed.POST("/offerings", writers, offeringHandler.Create)
	authed.PUT("/offerings/:id", writers, offeringHandler.Update)
	authed.DELETE("/offerings/:id", admins, offeringHandler.Delete)

	authed.GET("/schedules", scheduleHandler.List)
	authed.GET("/schedules/conflict-context", scheduleHandler.ConflictContext)
	authed.POST("/schedules/validate-event", scheduleHandler.ValidatePlacement)
	authed.GET("/schedules/:id", scheduleHandler.Get)
	authed.POST("/schedules", writers, scheduleHandler.Create)
	authed.PUT("/schedules/:id", writers, scheduleHandler.Update)
	authed.DELETE("/schedules/:id", admins, scheduleHandler.Delete)
	authed.GET("/schedules/:id/export/pdf", exportHandler.PDF)
	authed.GET("/schedules/:id/export/csv", exportHandler.CSV)

	authed.POST("/workload/validate", writers, workloadHandler.Check)
	authed.GET("/workload/teachers/:id", workloadHandler.Summary)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
