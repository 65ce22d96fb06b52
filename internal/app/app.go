package app

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/vidaplan/vidaplan/internal/config"
	"github.com/vidaplan/vidaplan/internal/db"
	"github.com/vidaplan/vidaplan/internal/repository"
	"github.com/vidaplan/vidaplan/internal/service"
	"github.com/vidaplan/vidaplan/internal/storage"
)

type App struct {
	Cfg          *config.Config
	DB           *sqlx.DB
	UserRepo     repository.UserRepository
	AuthService  *service.AuthService
	EmailService *service.EmailService
	GoalService  *service.GoalService
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
	tokenRepository := repository.NewTokenRepository(database)
	goalRepository := repository.NewGoalRepository(database)

	// Storage
	fileStorage, err := storage.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %v", err)
	}

	// Services
	emailService := service.NewEmailService(
		cfg.ResendAPIKey,
		cfg.EmailFrom,
		cfg.AppURL,
		cfg.AppName,
		cfg.IsDevelopment(),
	)
	authService := service.NewAuthService(
		userRepository,
		tokenRepository,
		emailService,
		cfg.JWTSecret,
		cfg.IsProduction(),
		cfg.JWTExpiry,
		cfg.TokenMagicLinkExpiry,
	)
	goalService := service.NewGoalService(goalRepository, fileStorage)

	return &App{
		Cfg:          cfg,
		DB:           database,
		UserRepo:     userRepository,
		AuthService:  authService,
		EmailService: emailService,
		GoalService:  goalService,
	}, nil
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
