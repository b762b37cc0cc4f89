package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"automatonbot/internal/config"
	"automatonbot/internal/domain/repositories"
	"automatonbot/internal/repository/postgres"
	"automatonbot/internal/repository/sqlite"
	"automatonbot/internal/seed"
)

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed data")
	clearData := flag.Bool("clear-data", false, "Clear all conversations and turns (keep schema and users)")
	username := flag.String("username", "demo", "Demo account username")
	password := flag.String("password", "demo-password", "Demo account password")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && (*dropTables || *clearData) {
		log.Fatalf("BLOCKED: Cannot run destructive operations (--drop-tables or --clear-data) in production environment")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	switch {
	case *clearData:
		log.Printf("Clearing data only (environment: %s, driver: %s)", cfg.Environment, cfg.DatabaseDriver)
	case *schemaOnly:
		log.Printf("Setting up schema only (environment: %s, driver: %s)", cfg.Environment, cfg.DatabaseDriver)
	default:
		log.Printf("Seeding database (environment: %s, driver: %s, prefix: %s)", cfg.Environment, cfg.DatabaseDriver, cfg.TablePrefix)
	}

	ctx := context.Background()

	var (
		users         repositories.UserRepository
		conversations repositories.ConversationRepository
		txManager     repositories.TransactionManager
	)

	switch cfg.DatabaseDriver {
	case "sqlite":
		if *dropTables {
			log.Printf("Removing %s...", cfg.SQLitePath)
			if err := os.Remove(cfg.SQLitePath); err != nil && !os.IsNotExist(err) {
				log.Fatalf("Failed to remove database: %v", err)
			}
		}

		// Open creates the schema
		db, err := sqlite.Open(cfg.SQLitePath, logger)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer db.Close()

		if *schemaOnly {
			log.Println("Schema setup complete (schema-only mode)")
			return
		}
		if *clearData {
			if err := sqlite.ClearData(ctx, db); err != nil {
				log.Fatalf("Failed to clear data: %v", err)
			}
			log.Println("Data cleared successfully")
			return
		}

		users = sqlite.NewUserRepository(db)
		conversations = sqlite.NewConversationRepository(db, logger)
		txManager = sqlite.NewTransactionManager(db, logger)

	case "postgres":
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer pool.Close()

		tables := postgres.NewTableNames(cfg.TablePrefix)

		if *dropTables {
			log.Println("Dropping all tables...")
			if err := postgres.DropSchema(ctx, pool, tables, logger); err != nil {
				log.Fatalf("Failed to drop tables: %v", err)
			}
		}

		log.Println("Ensuring database schema is up to date...")
		if err := postgres.EnsureSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
			log.Fatalf("Failed to run schema: %v", err)
		}

		if *schemaOnly {
			log.Println("Schema setup complete (schema-only mode)")
			return
		}
		if *clearData {
			if err := postgres.ClearData(ctx, pool, tables); err != nil {
				log.Fatalf("Failed to clear data: %v", err)
			}
			log.Println("Data cleared successfully")
			return
		}

		repoConfig := &postgres.RepositoryConfig{
			Pool:   pool,
			Tables: tables,
			Logger: logger,
		}
		users = postgres.NewUserRepository(repoConfig)
		conversations = postgres.NewConversationRepository(repoConfig)
		txManager = postgres.NewTransactionManager(pool, logger)

	default:
		log.Fatalf("Unsupported DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}

	seeder := seed.NewSeeder(users, conversations, txManager, logger)

	user, err := seeder.EnsureUser(ctx, *username, *password)
	if err != nil {
		log.Fatalf("Failed to create demo user: %v", err)
	}

	seeded, err := seeder.SeedConversations(ctx, user.ID)
	if err != nil {
		log.Fatalf("Failed to seed conversations: %v", err)
	}

	log.Printf("Seeding complete: user %s (%s), %d conversations", user.Username, user.ID, len(seeded))
}
