package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/kotoba-api/internal/config"
	"github.com/phrazzld/kotoba-api/internal/domain"
	allocator "github.com/phrazzld/kotoba-api/internal/domain/lessons"
	"github.com/phrazzld/kotoba-api/internal/domain/queue"
	"github.com/phrazzld/kotoba-api/internal/domain/srs"
	"github.com/phrazzld/kotoba-api/internal/events"
	"github.com/phrazzld/kotoba-api/internal/platform/memory"
	"github.com/phrazzld/kotoba-api/internal/platform/postgres"
	"github.com/phrazzld/kotoba-api/internal/service"
	"github.com/phrazzld/kotoba-api/internal/service/auth"
	"github.com/phrazzld/kotoba-api/internal/service/lessons"
	"github.com/phrazzld/kotoba-api/internal/service/review"
	"github.com/phrazzld/kotoba-api/internal/store"
)

// appOptions are the serve flags that change how the application is built.
type appOptions struct {
	// memory keeps every store in process instead of PostgreSQL.
	memory bool
	// subjectsFile, when set, is a JSON curriculum upserted at startup.
	subjectsFile string
}

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	subjectStore  store.SubjectStore
	progressStore store.ProgressStore
	synonymStore  store.SynonymStore

	jwtService    auth.JWTService
	srsService    srs.Service
	lessonService lessons.LessonService
	reviewService review.ReviewService

	eventEmitter *events.InMemoryEventEmitter
}

// newApplication creates an application with every dependency initialized.
// Without opts.memory it connects to the configured database, which the
// caller releases through cleanup (Run does this on shutdown).
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	opts appOptions,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		slog.Int("token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes))

	if err := app.setupStores(ctx, opts); err != nil {
		app.cleanup()
		return nil, err
	}

	if opts.subjectsFile != "" {
		seeder, ok := app.subjectStore.(subjectSeeder)
		if !ok {
			app.cleanup()
			return nil, fmt.Errorf("subject store %T does not accept subjects", app.subjectStore)
		}
		n, err := seedSubjects(ctx, seeder, opts.subjectsFile)
		if err != nil {
			app.cleanup()
			return nil, err
		}
		logger.Info("subjects seeded", slog.String("file", opts.subjectsFile), slog.Int("count", n))
	}

	if err := app.setupServices(); err != nil {
		app.cleanup()
		return nil, err
	}

	logger.Info("application initialized successfully", slog.Bool("memory", opts.memory))
	return app, nil
}

// setupStores picks the in-memory or PostgreSQL stores.
func (app *application) setupStores(ctx context.Context, opts appOptions) error {
	if opts.memory {
		subjects := memory.NewSubjectStore()
		app.subjectStore = subjects
		app.progressStore = memory.NewProgressStore()
		app.synonymStore = memory.NewSynonymStore(subjects)
		app.logger.Warn("serving from memory, progress is lost on shutdown")
		return nil
	}

	if app.config.Database.URL == "" {
		return fmt.Errorf("database url is required unless --memory is set")
	}
	db, err := setupAppDatabase(ctx, app.config, app.logger)
	if err != nil {
		return err
	}
	app.db = db
	app.subjectStore = postgres.NewPostgresSubjectStore(db, app.logger)
	app.progressStore = postgres.NewPostgresProgressStore(db, app.logger)
	app.synonymStore = postgres.NewPostgresSynonymStore(db, app.logger)
	return nil
}

// setupServices builds the scheduler and the use-case services from config.
func (app *application) setupServices() error {
	cfg := app.config

	quotaLoc, err := cfg.Progression.Location()
	if err != nil {
		return err
	}
	reviewLoc, err := cfg.Review.Location()
	if err != nil {
		return err
	}

	params, err := srs.NewParams(srs.ParamsConfig{
		RequestRetention: cfg.Scheduler.RequestRetention,
		MaximumInterval:  cfg.Scheduler.MaximumInterval,
		NewAgainDelay:    cfg.Scheduler.NewAgainDelay,
		AgainDelay:       cfg.Scheduler.AgainDelay,
	})
	if err != nil {
		return fmt.Errorf("invalid scheduler configuration: %w", err)
	}
	app.srsService, err = srs.NewServiceWithParams(params)
	if err != nil {
		return fmt.Errorf("failed to create SRS service: %w", err)
	}

	app.eventEmitter = events.NewInMemoryEventEmitter(app.logger)
	app.eventEmitter.RegisterHandler(events.NewLogHandler(app.logger))

	defaults := service.LearnerDefaults{
		Settings: domain.LessonSettings{
			MaximumLessonsPerDay: cfg.Progression.MaximumLessonsPerDay,
			LessonsPerSession:    cfg.Progression.LessonsPerSession,
		},
		SchedulerParams: params.Scheduler,
	}
	svcOpts := service.Options{
		Emitter: app.eventEmitter,
		Retry:   service.RetryPolicyFromConfig(cfg.Store),
		Logger:  app.logger,
	}

	app.lessonService = lessons.NewLessonService(
		app.subjectStore,
		app.progressStore,
		allocator.NewAllocator(quotaLoc),
		defaults,
		svcOpts,
	)
	app.reviewService = review.NewReviewService(
		app.subjectStore,
		app.progressStore,
		app.synonymStore,
		app.srsService,
		queue.NewSelector(cfg.Review.Tolerance, cfg.Review.BlockWindow, reviewLoc),
		defaults,
		svcOpts,
	)
	return nil
}

// Run serves HTTP until ctx is canceled, then shuts down gracefully and
// releases resources.
func (app *application) Run(ctx context.Context) error {
	defer app.cleanup()

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", slog.String("error", err.Error()))
		}
		app.db = nil
	}
	app.logger.Info("application shutdown completed")
}
