package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	pgmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	redismodule "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/lib/pq"

	storage "github.com/voltmesh/voltmesh/internal/adapter/storage/postgres"
)

// TestEnv holds test environment resources
type TestEnv struct {
	Gorm              *gorm.DB
	DB                *sql.DB
	Redis             *redis.Client
	RedisURL          string
	PostgresContainer testcontainers.Container
	RedisContainer    testcontainers.Container
	Logger            *zap.Logger
}

var testEnv *TestEnv

// SetupTestEnvironment starts (or reuses) postgres and redis for the test
// run. With DATABASE_URL set, external services are used instead of
// containers (CI environment).
func SetupTestEnvironment(t *testing.T) *TestEnv {
	if testEnv != nil {
		return testEnv
	}

	ctx := context.Background()

	if os.Getenv("DATABASE_URL") != "" {
		return setupExternalServices(t, ctx)
	}
	return setupContainers(t, ctx)
}

func setupExternalServices(t *testing.T, ctx context.Context) *TestEnv {
	logger, _ := zap.NewDevelopment()

	connStr := os.Getenv("DATABASE_URL")
	gormDB := connectGorm(t, connStr, logger)
	db := connectSQL(t, connStr)

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		t.Fatalf("Failed to parse Redis URL: %v", err)
	}
	redisClient := redis.NewClient(opt)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	testEnv = &TestEnv{
		Gorm:     gormDB,
		DB:       db,
		Redis:    redisClient,
		RedisURL: redisURL,
		Logger:   logger,
	}
	return testEnv
}

func setupContainers(t *testing.T, ctx context.Context) *TestEnv {
	logger, _ := zap.NewDevelopment()

	postgresContainer, err := pgmodule.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		pgmodule.WithDatabase("voltmesh_test"),
		pgmodule.WithUsername("voltmesh"),
		pgmodule.WithPassword("voltmesh_test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}

	pgHost, err := postgresContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get postgres host: %v", err)
	}
	pgPort, err := postgresContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get postgres port: %v", err)
	}
	connStr := fmt.Sprintf("postgres://voltmesh:voltmesh_test@%s:%s/voltmesh_test?sslmode=disable",
		pgHost, pgPort.Port())

	gormDB := connectGorm(t, connStr, logger)
	db := connectSQL(t, connStr)

	redisContainer, err := redismodule.RunContainer(ctx,
		testcontainers.WithImage("redis:7-alpine"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("Ready to accept connections").
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Failed to start redis container: %v", err)
	}

	redisHost, err := redisContainer.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get redis host: %v", err)
	}
	redisPort, err := redisContainer.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get redis port: %v", err)
	}
	redisURL := fmt.Sprintf("redis://%s:%s", redisHost, redisPort.Port())

	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", redisHost, redisPort.Port()),
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to redis: %v", err)
	}

	testEnv = &TestEnv{
		Gorm:              gormDB,
		DB:                db,
		Redis:             redisClient,
		RedisURL:          redisURL,
		PostgresContainer: postgresContainer,
		RedisContainer:    redisContainer,
		Logger:            logger,
	}
	return testEnv
}

func connectGorm(t *testing.T, connStr string, logger *zap.Logger) *gorm.DB {
	gormDB, err := storage.NewConnection(connStr, logger)
	if err != nil {
		t.Fatalf("Failed to connect gorm: %v", err)
	}
	if err := storage.RunMigrations(gormDB); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return gormDB
}

func connectSQL(t *testing.T, connStr string) *sql.DB {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("Failed to connect to postgres: %v", err)
	}
	for i := 0; i < 30; i++ {
		if err := db.Ping(); err == nil {
			return db
		}
		time.Sleep(time.Second)
	}
	t.Fatal("Postgres never became ready")
	return nil
}

// CleanDatabase truncates all ledger tables
func CleanDatabase(t *testing.T, db *sql.DB) {
	tables := []string{
		"wallet_transactions",
		"wallets",
		"trades",
		"offers",
		"certificates",
		"readings",
		"participants",
		"users",
	}
	for _, table := range tables {
		if _, err := db.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			t.Logf("Failed to truncate %s: %v", table, err)
		}
	}
}

// FlushRedis clears all Redis keys
func FlushRedis(t *testing.T, client *redis.Client) {
	if err := client.FlushAll(context.Background()).Err(); err != nil {
		t.Fatalf("Failed to flush redis: %v", err)
	}
}
