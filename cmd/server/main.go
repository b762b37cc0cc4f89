package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"automatonbot/internal/auth"
	"automatonbot/internal/capabilities"
	"automatonbot/internal/config"
	"automatonbot/internal/domain/repositories"
	"automatonbot/internal/handler"
	"automatonbot/internal/metrics"
	"automatonbot/internal/middleware"
	"automatonbot/internal/repository/postgres"
	"automatonbot/internal/repository/redis"
	"automatonbot/internal/repository/sqlite"
	authService "automatonbot/internal/service/auth"
	"automatonbot/internal/service/conversation"
	"automatonbot/internal/service/llm/gateway"
)

// writeMargin is added on top of the worst-case LLM latency so the reply can still be written
const writeMargin = 15 * time.Second

// storage is the repository set for the configured DATABASE_DRIVER
type storage struct {
	conversations repositories.ConversationRepository
	users         repositories.UserRepository
	txManager     repositories.TransactionManager
	close         func()
}

func main() {
	// Load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := config.Load()

	logger, logCloser, err := config.NewLogger(cfg, os.Stdout)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"database_driver", cfg.DatabaseDriver,
		"table_prefix", cfg.TablePrefix,
		"llm_provider", cfg.LLMProvider,
	)

	ctx := context.Background()

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer store.close()

	collector := metrics.NewCollector("automatonbot")

	// Optional read-through cache in front of the conversation repository
	conversationRepo := store.conversations
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer client.Close()

		conversationRepo = redis.NewConversationCache(conversationRepo, client, logger,
			redis.WithTTL(cfg.CacheTTL),
			redis.WithPrefix("automatonbot:"+cfg.TablePrefix+"conversation:"),
			redis.WithMetrics(collector),
		)
		logger.Info("conversation cache enabled", "ttl", cfg.CacheTTL)
	}

	capabilityRegistry, err := capabilities.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to initialize capability registry: %v", err)
	}

	llmGateway, err := gateway.Setup(cfg, capabilityRegistry, collector, logger)
	if err != nil {
		log.Fatalf("Failed to set up LLM gateway: %v", err)
	}

	// Token issuance and verification
	tokens, err := auth.NewHS256Verifier(cfg.JWTSecret, cfg.JWTTTL, "automatonbot", logger)
	if err != nil {
		log.Fatalf("Failed to create token issuer: %v", err)
	}
	var verifier auth.TokenVerifier = tokens
	if cfg.JWKSURL != "" {
		jwks, err := auth.NewJWKSVerifier(cfg.JWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to create JWKS verifier: %v", err)
		}
		verifier = auth.NewChainVerifier(tokens, jwks)
	}
	defer verifier.Close()

	// Services
	conversationService := conversation.NewService(conversationRepo, store.txManager, llmGateway, logger)
	accountService := authService.NewAuthService(store.users, tokens, logger)

	// Handlers
	automatonHandler := handler.NewAutomatonHandler(conversationService, logger)
	authHandler := handler.NewAuthHandler(accountService, logger)
	modelsHandler := handler.NewModelsHandler(cfg, logger, capabilityRegistry)

	logger.Info("services initialized")

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handler.HealthCheck)
	mux.Handle("GET /metrics", collector.Handler())

	// Auth routes
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)
	mux.HandleFunc("POST /api/auth/refresh", authHandler.Refresh)

	// Automaton routes
	mux.HandleFunc("POST /api/automaton", automatonHandler.Process)
	mux.HandleFunc("POST /api/automaton/export", automatonHandler.Export)
	mux.HandleFunc("GET /api/automaton/history", automatonHandler.History) // literal segment wins over {conversationId}
	mux.HandleFunc("GET /api/automaton/{conversationId}", automatonHandler.GetConversation)
	mux.HandleFunc("PUT /api/automaton/{conversationId}/name", automatonHandler.RenameConversation)
	mux.HandleFunc("DELETE /api/automaton/{conversationId}", automatonHandler.DeleteConversation)

	// Model catalog
	mux.HandleFunc("GET /api/models", modelsHandler.GetCapabilities)

	// Apply middleware (wrap in reverse order: last added runs first)
	var handler http.Handler = mux

	handler = middleware.Auth(verifier, logger)(handler)
	handler = middleware.Metrics(collector, mux)(handler)
	handler = middleware.Recovery(logger)(handler)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	})
	handler = corsHandler.Handler(handler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: gateway.WorstCaseLatency(cfg) + writeMargin,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port, "write_timeout", server.WriteTimeout)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

// openStorage connects to the configured database and builds its repositories
func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage, error) {
	switch cfg.DatabaseDriver {
	case "sqlite":
		db, err := sqlite.Open(cfg.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("database opened", "driver", "sqlite", "path", cfg.SQLitePath)
		return sqliteStorage(db, logger), nil

	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required for the postgres driver")
		}
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}

		tables := postgres.NewTableNames(cfg.TablePrefix)
		if cfg.AutoMigrate {
			if err := postgres.EnsureSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
				pool.Close()
				return nil, err
			}
			logger.Info("schema ensured", "table_prefix", cfg.TablePrefix)
		}
		logger.Info("database connected", "driver", "postgres")
		return postgresStorage(pool, tables, logger), nil

	default:
		return nil, errors.New("unsupported DATABASE_DRIVER " + cfg.DatabaseDriver)
	}
}

func postgresStorage(pool *pgxpool.Pool, tables *postgres.TableNames, logger *slog.Logger) *storage {
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	return &storage{
		conversations: postgres.NewConversationRepository(repoConfig),
		users:         postgres.NewUserRepository(repoConfig),
		txManager:     postgres.NewTransactionManager(pool, logger),
		close:         pool.Close,
	}
}

func sqliteStorage(db *sql.DB, logger *slog.Logger) *storage {
	return &storage{
		conversations: sqlite.NewConversationRepository(db, logger),
		users:         sqlite.NewUserRepository(db),
		txManager:     sqlite.NewTransactionManager(db, logger),
		close:         func() { _ = db.Close() },
	}
}
