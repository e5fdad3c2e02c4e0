package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"

	"evidence-explorer/internal/backend"
	"evidence-explorer/internal/blob"
	"evidence-explorer/internal/config"
	"evidence-explorer/internal/database"
	"evidence-explorer/internal/event"
	"evidence-explorer/internal/handler"
	"evidence-explorer/internal/middleware"
	"evidence-explorer/internal/preview"
	"evidence-explorer/internal/repository"
	"evidence-explorer/internal/router"
	"evidence-explorer/internal/session"
	"evidence-explorer/internal/websocket"
)

const sessionCleanupInterval = time.Minute

type App struct {
	server       *http.Server
	sessions     *session.Manager
	cleanupFuncs []func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	validator, err := middleware.NewHMACValidator(cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token validator: %w", err)
	}
	authMiddleware := middleware.NewAuthMiddleware(validator)

	backendClient := backend.NewClient(backend.Options{
		BaseURL:  cfg.BackendBaseURL,
		Timeout:  cfg.BackendTimeout,
		RetryMax: cfg.BackendRetryMax,
		Logger:   slog.Default(),
	})
	transport := blob.NewTransport(azcore.ClientOptions{
		Retry: policy.RetryOptions{MaxRetries: int32(cfg.BackendRetryMax)},
	})
	previews := preview.NewService(backendClient, transport, cfg.ThumbnailMaxSize, cfg.MaxUploadSize)

	var (
		audit        session.AuditRecorder = repository.DiscardAudit{}
		auditHandler *handler.AuditHandler
		healthDB     *database.DB
		cleanupFuncs []func()
	)
	if cfg.AuditEnabled() {
		slog.Info("connecting to PostgreSQL audit log")
		db, err := database.New(context.Background(), database.Options{
			URL:      cfg.DatabaseURL,
			MaxConns: cfg.DBMaxConns,
			MinConns: cfg.DBMinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		if err := db.EnsureSchema(context.Background()); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to ensure database schema: %w", err)
		}

		auditRepo := repository.NewAuditRepository(db.Pool)
		audit = auditRepo
		auditHandler = handler.NewAuditHandler(auditRepo)
		healthDB = db
		cleanupFuncs = append(cleanupFuncs, db.Close)
	} else {
		slog.Warn("DATABASE_URL not set; audit entries are only logged")
	}

	bus := event.NewBus()
	hub := websocket.NewHub(bus)

	sessions := session.NewManager(session.Deps{
		Backend:           backendClient,
		Transport:         transport,
		Preview:           previews,
		Bus:               bus,
		Audit:             audit,
		DeleteConcurrency: cfg.DeleteConcurrency,
		PromptTimeout:     cfg.PromptTimeout,
	}, cfg.SessionTTL)

	healthHandler := handler.NewHealthHandler(nil)
	if healthDB != nil {
		healthHandler = handler.NewHealthHandler(healthDB)
	}

	appRouter := router.New(cfg, authMiddleware, router.Handlers{
		Health:     healthHandler,
		Session:    handler.NewSessionHandler(sessions),
		Upload:     handler.NewUploadHandler(sessions, cfg.MaxUploadSize),
		Properties: handler.NewPropertiesHandler(sessions),
		Preview:    handler.NewPreviewHandler(sessions),
		Events:     handler.NewEventsHandler(sessions, hub, websocket.NewUpgrader(cfg.CORSOrigins)),
		Audit:      auditHandler,
	})

	backgroundCtx, backgroundCancel := context.WithCancel(context.Background())
	go hub.Run(backgroundCtx)
	go sessions.StartCleanupTicker(backgroundCtx, sessionCleanupInterval)

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server:   server,
		sessions: sessions,
		cleanupFuncs: append([]func(){
			backgroundCancel,
			bus.Close,
		}, cleanupFuncs...),
	}, nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	shutdownErr := a.server.Shutdown(ctx)

	// Running upload batches are cancelled; their audit entries are written
	// before the database closes.
	a.sessions.Close()
	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	slog.Info("server stopped")
	return nil
}
