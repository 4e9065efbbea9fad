package test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/memodrops/memodrops/internal/profile"
	"github.com/memodrops/memodrops/store"
	"github.com/memodrops/memodrops/store/db"
)

// NewTestingStore returns a migrated store on a fresh database.
// The driver is SQLite unless MEMODROPS_TEST_DRIVER=postgres or POSTGRES_TEST_DSN is set.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()
	return newTestingStoreWithProfile(ctx, t, getTestingProfile(t))
}

// NewDemoTestingStore returns a store migrated in demo mode on a fresh SQLite database.
// It never shares a database, so the seeded rows cannot leak into other tests.
func NewDemoTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()
	data := t.TempDir()
	return newTestingStoreWithProfile(ctx, t, &profile.Profile{
		Mode:                  "demo",
		Driver:                "sqlite",
		Data:                  data,
		DSN:                   filepath.Join(data, "memodrops_demo.db"),
		DailyPlanLimit:        profile.DefaultDailyPlanLimit,
		PlanLookupConcurrency: 4,
	})
}

func newTestingStoreWithProfile(ctx context.Context, t *testing.T, profile *profile.Profile) *store.Store {
	t.Helper()
	dbDriver, err := db.NewDBDriver(profile)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}

	ts := store.New(dbDriver, profile)
	if err := ts.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	t.Cleanup(func() {
		if err := ts.Close(); err != nil {
			t.Logf("failed to close store: %v", err)
		}
	})
	return ts
}

func getTestingProfile(t *testing.T) *profile.Profile {
	t.Helper()
	driver := getDriverFromEnv()
	p := &profile.Profile{
		Mode:                  "dev",
		Driver:                driver,
		Data:                  t.TempDir(),
		DailyPlanLimit:        profile.DefaultDailyPlanLimit,
		PlanLookupConcurrency: 4,
	}
	switch driver {
	case "postgres":
		p.DSN = GetPostgresDSN(t)
	default:
		p.DSN = filepath.Join(p.Data, "memodrops_test.db")
	}
	return p
}

func getDriverFromEnv() string {
	driver := os.Getenv("MEMODROPS_TEST_DRIVER")
	if driver == "" && os.Getenv("POSTGRES_TEST_DSN") != "" {
		return "postgres"
	}
	if driver == "" {
		return "sqlite"
	}
	return driver
}
