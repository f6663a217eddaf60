package app

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/tasknest/tasknest/internal/config"
	"github.com/tasknest/tasknest/internal/db"
	"github.com/tasknest/tasknest/internal/repository"
	"github.com/tasknest/tasknest/internal/service"
)

type App struct {
	Cfg            *config.Config
	DB             *sqlx.DB
	AuthService    *service.AuthService
	ProfileService *service.ProfileService
	TaskService    *service.TaskService
}

func New(cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	// Repositories
	userRepository := repository.NewUserRepository(database)
	taskRepository := repository.NewTaskRepository(database)
	attachmentRepository := repository.NewAttachmentRepository(database)

	// Services
	authService := service.NewAuthService(
		userRepository,
		attachmentRepository,
		cfg.JWTSecret,
		cfg.JWTExpiry,
	)
	profileService := service.NewProfileService(userRepository, attachmentRepository)
	taskService := service.NewTaskService(taskRepository, attachmentRepository)

	return &App{
		Cfg:            cfg,
		DB:             database,
		AuthService:    authService,
		ProfileService: profileService,
		TaskService:    taskService,
	}, nil
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
