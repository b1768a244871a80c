package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"broadcaster/database"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// ledgerTables are emptied between tests, children first
var ledgerTables = []string{"top_up_keys", "payments", "broadcasts", "transactions", "accounts"}

// TestDatabase is a migrated PostgreSQL container shared by every test in the binary
type TestDatabase struct {
	Container *postgres.PostgresContainer
	DB        *database.DB
	URL       string
}

var (
	shared     *TestDatabase
	sharedErr  error
	sharedOnce sync.Once
)

// SetupTestDatabase returns the shared container with every ledger table emptied.
// The container is started on first use and reaped by testcontainers when the
// test binary exits.
func SetupTestDatabase(t *testing.T) *TestDatabase {
	t.Helper()

	sharedOnce.Do(func() {
		shared, sharedErr = startDatabase()
	})
	require.NoError(t, sharedErr, "failed to start test database")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err := shared.DB.Exec(ctx, "TRUNCATE "+strings.Join(ledgerTables, ", "))
	require.NoError(t, err)

	return shared
}

func startDatabase() (*TestDatabase, error) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("broadcaster_test"),
		postgres.WithUsername("test_user"),
		postgres.WithPassword("test_password"),
		postgres.BasicWaitStrategies(),
		testcontainers.WithLabels(map[string]string{
			"test":    "broadcaster-repository",
			"cleanup": "auto",
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, fmt.Errorf("container connection string: %w", err)
	}

	if err := database.RunMigrationsWithURL(connStr); err != nil {
		return nil, err
	}

	db, err := database.NewConnection(ctx, connStr)
	if err != nil {
		return nil, err
	}

	return &TestDatabase{Container: container, DB: db, URL: connStr}, nil
}
