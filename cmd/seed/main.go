package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"momentum/internal/card"
	"momentum/internal/config"
	"momentum/internal/domain/models"
	"momentum/internal/domain/repositories"
	"momentum/internal/domain/services"
	"momentum/internal/repository/postgres"
	postgresChat "momentum/internal/repository/postgres/chat"
	serviceChat "momentum/internal/service/chat"
)

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed demo data")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && *dropTables {
		log.Fatalf("BLOCKED: cannot run --drop-tables in production environment")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	log.Printf("Seeding database (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		log.Println("Dropping all tables...")
		if err := dropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("Tables dropped")
	}

	log.Println("Ensuring database schema is up to date...")
	if err := runSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("Schema ready")

	if *schemaOnly {
		log.Println("Schema setup complete (schema-only mode)")
		return
	}

	// Create repositories and services
	repoConfig := postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	threadRepo := postgresChat.NewThreadRepository(repoConfig)
	messageRepo := postgresChat.NewMessageRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)
	threadService := serviceChat.NewThreadService(threadRepo, messageRepo, txManager, logger)

	log.Println("Seeding demo conversation...")
	if err := seedDemoThread(ctx, threadService, threadRepo, messageRepo, cfg.SeedUserID); err != nil {
		log.Fatalf("Failed to seed demo thread: %v", err)
	}

	log.Println("Seeding complete")
}

// runSchema creates tables if they don't exist
func runSchema(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, tablePrefix string) error {
	createThreads := `
		CREATE TABLE IF NOT EXISTS ` + tables.Threads + ` (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			title TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			deleted_at TIMESTAMPTZ
		)
	`
	if _, err := pool.Exec(ctx, createThreads); err != nil {
		return err
	}

	createMessages := `
		CREATE TABLE IF NOT EXISTS ` + tables.Messages + ` (
			id UUID PRIMARY KEY,
			thread_id UUID NOT NULL REFERENCES ` + tables.Threads + `(id) ON DELETE CASCADE,
			role TEXT NOT NULL CHECK (role IN ('user', 'assistant', 'system')),
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createMessages); err != nil {
		return err
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `threads_user_updated ON ` + tables.Threads + `(user_id, updated_at DESC) WHERE deleted_at IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `messages_thread_created ON ` + tables.Messages + `(thread_id, created_at, id)`,
	}
	for _, indexSQL := range indexes {
		if _, err := pool.Exec(ctx, indexSQL); err != nil {
			return err
		}
	}

	return nil
}

// dropAllTables drops all tables in reverse order (to respect foreign keys)
func dropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	for _, table := range []string{tables.Messages, tables.Threads} {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE"); err != nil {
			return err
		}
		log.Printf("  dropped %s", table)
	}
	return nil
}

// seedDemoThread creates one titled thread holding a full exchange, card
// payload included, so the client has something to render immediately.
func seedDemoThread(
	ctx context.Context,
	threadService services.ThreadService,
	threadRepo repositories.ThreadRepository,
	messageRepo repositories.MessageRepository,
	userID string,
) error {
	thread, err := threadService.CreateThread(ctx, &services.CreateThreadRequest{UserID: userID})
	if err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]any{
		"type":    string(card.KindHabitCompletion),
		"habit":   map[string]any{"title": "Morning run", "streak": 3},
		"message": "Three days in a row!",
	})
	if err != nil {
		return err
	}

	exchange := []models.Message{
		{
			ThreadID: thread.ID,
			Role:     models.RoleUser,
			Content:  "Just finished my morning run, third day straight!",
		},
		{
			ThreadID: thread.ID,
			Role:     models.RoleAssistant,
			Content:  "Nice work! Three days is where a streak starts feeling real." + card.Marker + string(payload),
		},
		{
			ThreadID: thread.ID,
			Role:     models.RoleSystem,
			Content:  "User acknowledged the habit_completion card.",
		},
	}

	for i := range exchange {
		exchange[i].ID = uuid.NewString()
		if err := messageRepo.CreateMessage(ctx, &exchange[i]); err != nil {
			return err
		}
		log.Printf("  created %s message %s", exchange[i].Role, exchange[i].ID)
	}

	if err := threadRepo.SetTitle(ctx, thread.ID, userID, "Morning run streak"); err != nil {
		return err
	}

	log.Printf("  thread %s ready", thread.ID)
	return nil
}
