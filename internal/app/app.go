package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"taskdeck/internal/config"
	"taskdeck/internal/handlers"
	"taskdeck/internal/logger"
	"taskdeck/internal/middleware"
	"taskdeck/internal/repository"
	"taskdeck/internal/repository/task/inmemory"
	"taskdeck/internal/repository/task/postgres"
	"taskdeck/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type App struct {
	config    *config.Config
	server    *http.Server
	shutdowns []func()
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

func (a *App) Init(ctx context.Context) error {
	if err := logger.Init(a.config.Logging.Development); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("App: flushing logs")
		logger.Sync()
	})

	tasks, categories, health, err := a.buildStores(ctx)
	if err != nil {
		return err
	}

	taskService := service.NewTaskService(tasks, categories)
	categoryService := service.NewCategoryService(categories)

	taskHandler := handlers.NewTaskHandler(taskService, health)
	categoryHandler := handlers.NewCategoryHandler(categoryService)

	a.server = &http.Server{
		Addr:    a.config.ServerAddr(),
		Handler: a.buildRouter(taskHandler, categoryHandler),
	}
	return nil
}

func (a *App) buildStores(ctx context.Context) (repository.TaskStore, repository.CategoryStore, handlers.HealthChecker, error) {
	switch a.config.Repository.Type {
	case "postgres":
		if err := postgres.Migrate(a.config.Database.URL); err != nil {
			return nil, nil, nil, fmt.Errorf("running migrations: %w", err)
		}

		store, err := postgres.New(ctx, a.config.Database.URL, postgres.PoolConfig{
			MaxConns:    a.config.Database.MaxConnections,
			MinConns:    a.config.Database.MinConnections,
			IdleTimeout: a.config.Database.IdleTimeout,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		a.shutdowns = append(a.shutdowns, func() {
			logger.Info("App: closing database pool")
			store.Close()
		})

		logger.Info("App: using postgres storage")
		return store, store.Categories(), store, nil

	case "inmemory":
		store := inmemory.NewStorage()
		logger.Info("App: using in-memory storage")
		return store, store.Categories(), store, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown repository type %q", a.config.Repository.Type)
	}
}

func (a *App) buildRouter(tasks *handlers.TaskHandler, categories *handlers.CategoryHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.RateLimit(a.config.RateLimit.RequestsPerMinute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", tasks.HealthCheck)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Identity)

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", tasks.List)          // GET /tasks
			r.Post("/", tasks.Create)       // POST /tasks
			r.Patch("/reorder", tasks.Reorder) // PATCH /tasks/reorder
			r.Get("/trash", tasks.ListTrash)   // GET /tasks/trash

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", tasks.GetByID)   // GET /tasks/{id}
				r.Patch("/", tasks.Update)  // PATCH /tasks/{id}
				r.Delete("/", tasks.Delete) // DELETE /tasks/{id}

				r.Post("/restore", tasks.Restore) // POST /tasks/{id}/restore
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", categories.List)    // GET /categories
			r.Post("/", categories.Create) // POST /categories

			r.Route("/{id}", func(r chi.Router) {
				r.Patch("/", categories.Update)  // PATCH /categories/{id}
				r.Delete("/", categories.Delete) // DELETE /categories/{id}
			})
		})

		r.Get("/dashboard/stats", tasks.Stats) // GET /dashboard/stats
	})

	return r
}

// Run serves until ctx is cancelled, then drains in-flight requests
// within the configured shutdown timeout.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("App: server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
		defer cancel()

		logger.Info("App: shutting down")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	err := g.Wait()

	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
	return err
}
