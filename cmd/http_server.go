package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/document-management/internal"
	"github.com/frahmantamala/document-management/internal/audit"
	auditPostgres "github.com/frahmantamala/document-management/internal/audit/postgres"
	"github.com/frahmantamala/document-management/internal/auth"
	authPostgres "github.com/frahmantamala/document-management/internal/auth/postgres"
	"github.com/frahmantamala/document-management/internal/changerequest"
	changerequestPostgres "github.com/frahmantamala/document-management/internal/changerequest/postgres"
	"github.com/frahmantamala/document-management/internal/core/events"
	"github.com/frahmantamala/document-management/internal/directory"
	directoryPostgres "github.com/frahmantamala/document-management/internal/directory/postgres"
	"github.com/frahmantamala/document-management/internal/document"
	documentPostgres "github.com/frahmantamala/document-management/internal/document/postgres"
	"github.com/frahmantamala/document-management/internal/permission"
	permissionPostgres "github.com/frahmantamala/document-management/internal/permission/postgres"
	"github.com/frahmantamala/document-management/internal/transport/rest"
	"github.com/frahmantamala/document-management/internal/workflow"
	workflowPostgres "github.com/frahmantamala/document-management/internal/workflow/postgres"
	"github.com/frahmantamala/document-management/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config          *internal.Config
	DB              *sqlx.DB
	GormDB          *gorm.DB
	Router          *chi.Mux
	Cache           *permission.Cache
	AuditWriter     *audit.Writer
	EventBus        *events.EventBus
	DocumentService *document.Service
	Logger          *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	deps.Cache.Start()

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		deps.EventBus.Drain()
		deps.Cache.Close()
		deps.AuditWriter.Close()
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Observability.Logging.Level, config.Observability.Logging.Format)
	lg := logger.L()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	// Audit pipeline: async writer in front of the durable sink so business
	// operations never block on audit persistence.
	auditRepo := auditPostgres.NewAuditRepository(gormDB)
	auditWriter := audit.NewWriter(auditRepo, config.Audit.QueueSize, lg)

	// Permission engine: resolver walks the grant store, cache fronts it.
	permissionRepo := permissionPostgres.NewRepository(gormDB)
	resolver := permission.NewResolver(permissionRepo, config.Cache.MaxDepth, lg)
	cache := permission.NewCache(config.Cache.TTL, config.Cache.SweepInterval, lg)
	permissionService := permission.NewService(permissionRepo, resolver, cache, auditWriter, config.Cache.ResolveTimeout, lg)

	// Identity.
	userRepo := authPostgres.NewRepository(gormDB)
	tokenGen := auth.NewJWTTokenGenerator(
		config.Security.AccessTokenSecret,
		config.Security.RefreshTokenSecret,
		config.Security.AccessTokenDuration,
		config.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(userRepo, tokenGen, config.Security.BCryptCost)
	roles := auth.NewRoleAuthorization(lg)

	// Event bus carries approval and rejection outcomes to subscribers off
	// the request path; notification delivery starts as structured logs.
	eventBus := events.NewEventBus(lg)
	for _, eventType := range []string{events.EventTypeDocumentApproved, events.EventTypeDocumentRejected} {
		eventBus.Subscribe(eventType, func(ctx context.Context, event events.Event) error {
			lg.Info("document lifecycle notification",
				"event_type", event.EventType(), "event_id", event.EventID(), "payload", event.Payload())
			return nil
		})
	}

	// Domain services.
	documentRepo := documentPostgres.NewRepository(gormDB)
	documentService := document.NewService(documentRepo, permissionService, auditWriter, eventBus, lg)

	directoryRepo := directoryPostgres.NewRepository(gormDB)
	directoryService := directory.NewService(directoryRepo, cache, auditWriter, lg)

	changeRequestRepo := changerequestPostgres.NewRepository(gormDB)
	changeRequestService := changerequest.NewService(changeRequestRepo, documentService, permissionService, auditWriter, lg)

	workflowRepo := workflowPostgres.NewRepository(gormDB)
	workflowService := workflow.NewService(workflowRepo, map[workflow.SubjectKind]workflow.SubjectTransitioner{
		workflow.SubjectDocument:      documentService,
		workflow.SubjectChangeRequest: changeRequestService,
	}, auditWriter, lg)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, db.DB, rest.Handlers{
		Auth:          auth.NewHandler(authService),
		Document:      document.NewHandler(documentService),
		Directory:     directory.NewHandler(directoryService),
		Permission:    permission.NewHandler(permissionService),
		Workflow:      workflow.NewHandler(workflowService),
		ChangeRequest: changerequest.NewHandler(changeRequestService),
		Audit:         audit.NewHandler(auditRepo, auditWriter),
	}, roles, lg)

	return &Dependencies{
		Config:          config,
		Logger:          lg,
		DB:              db,
		GormDB:          gormDB,
		Router:          router,
		Cache:           cache,
		AuditWriter:     auditWriter,
		EventBus:        eventBus,
		DocumentService: documentService,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
