package app

import (
	"context"
	"fmt"
	"time"

	"github.com/modelmux/modelmux/auth"
	"github.com/modelmux/modelmux/config"
	"github.com/modelmux/modelmux/middleware"
	"github.com/modelmux/modelmux/repositories/postgres"
	"github.com/modelmux/modelmux/services/audit"
	"github.com/modelmux/modelmux/services/backends/groq"
	"github.com/modelmux/modelmux/services/backends/ollama"
	"github.com/modelmux/modelmux/services/backends/openai"
	"github.com/modelmux/modelmux/services/catalog"
	"github.com/modelmux/modelmux/services/dispatch"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	Config *config.Config
	Logger *zap.Logger

	// Registry and dispatch
	Catalog *catalog.Catalog
	Router  *dispatch.Router
	Clients dispatch.Clients

	// Optional audit log (nil when DATABASE_URL is unset)
	DB    *postgres.DB
	Audit *audit.Service

	// Optional auth (nil when JWT_SECRET is unset)
	AuthMiddleware *middleware.AuthMiddleware
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	deps.initClients(cfg)
	deps.initCatalog(ctx)
	deps.Router = dispatch.NewRouter(deps.Catalog, deps.Clients, logger)

	if err := deps.initAudit(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize dispatch audit: %w", err)
	}

	deps.initAuth(cfg)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initClients builds one live client per registered backend. The local
// inference server speaks the OpenAI wire protocol, so it shares the
// openai client with a different name and base URL.
func (d *Dependencies) initClients(cfg *config.Config) {
	groqClient := groq.New(groq.Config{
		APIKey:  cfg.Backends.Groq.APIKey,
		BaseURL: cfg.Backends.Groq.BaseURL,
		Timeout: cfg.Backends.Groq.Timeout,
	})
	openAIClient := openai.New(openai.Config{
		Name:    string(catalog.BackendOpenAI),
		APIKey:  cfg.Backends.OpenAI.APIKey,
		BaseURL: cfg.Backends.OpenAI.BaseURL,
		Timeout: cfg.Backends.OpenAI.Timeout,
		OrgID:   cfg.Backends.OpenAI.OrgID,
	})
	localAIClient := openai.New(openai.Config{
		Name:    string(catalog.BackendLocalAI),
		APIKey:  cfg.Backends.LocalAI.APIKey,
		BaseURL: cfg.Backends.LocalAI.BaseURL,
		Timeout: cfg.Backends.LocalAI.Timeout,
	})
	ollamaClient := ollama.New(ollama.Config{
		BaseURL: cfg.Backends.Ollama.BaseURL,
		Timeout: cfg.Backends.Ollama.Timeout,
	})

	d.Clients = dispatch.Clients{
		catalog.BackendGroq:    groqClient,
		catalog.BackendOpenAI:  openAIClient,
		catalog.BackendLocalAI: localAIClient,
		catalog.BackendOllama:  ollamaClient,
	}
}

// initCatalog builds the static model registry and enriches the Ollama
// entries from the local server. Discovery happens exactly once; an
// unreachable server leaves the Ollama registry empty.
func (d *Dependencies) initCatalog(ctx context.Context) {
	d.Catalog = catalog.New()

	ollamaClient, ok := d.Clients[catalog.BackendOllama].(*ollama.Client)
	if !ok {
		return
	}

	discoverCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if !ollamaClient.Ready(discoverCtx) {
		d.Logger.Info("ollama server unreachable, registry left empty")
		return
	}

	entries, err := ollamaClient.Models(discoverCtx)
	if err != nil {
		d.Logger.Warn("ollama model discovery failed", zap.Error(err))
		return
	}

	d.Catalog.SetBackendModels(catalog.BackendOllama, entries)
	d.Logger.Info("ollama models discovered", zap.Int("count", len(entries)))
}

// initAudit connects the optional dispatch audit database and starts
// the background writer pool.
func (d *Dependencies) initAudit(ctx context.Context, cfg *config.Config) error {
	if cfg.AuditDatabase == nil {
		d.Logger.Info("dispatch audit disabled, no database configured")
		return nil
	}

	db, err := postgres.NewDB(*cfg.AuditDatabase, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect audit database: %w", err)
	}
	if err := db.InitSchema(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize audit schema: %w", err)
	}

	repo := postgres.NewDispatchRepository(db, d.Logger)
	svc := audit.NewService(repo, d.Logger, audit.DefaultConfig())
	if err := svc.Start(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to start audit service: %w", err)
	}

	d.DB = db
	d.Audit = svc

	d.Logger.Info("dispatch audit enabled",
		zap.String("connection", cfg.AuditDatabase.LogString()))
	return nil
}

func (d *Dependencies) initAuth(cfg *config.Config) {
	if cfg.Auth.JWTSecret == "" {
		d.Logger.Warn("JWT_SECRET not set, gateway running without authentication")
		return
	}
	validator := auth.NewJWTValidator(cfg.Auth.JWTSecret)
	d.AuthMiddleware = middleware.NewAuthMiddleware(validator, d.Logger)
	d.Logger.Info("jwt authentication enabled")
}

// Close gracefully shuts down all dependencies.
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.Audit != nil {
		if err := d.Audit.Stop(10 * time.Second); err != nil {
			errs = append(errs, fmt.Errorf("audit service shutdown: %w", err))
		}
	}
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database close: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	d.Logger.Info("dependencies shut down cleanly")
	return nil
}
