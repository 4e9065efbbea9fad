package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/memodrops/memodrops/internal/profile"
	"github.com/memodrops/memodrops/server/runner/planpreview"
	"github.com/memodrops/memodrops/server/service/card"
	"github.com/memodrops/memodrops/server/service/learn"
	"github.com/memodrops/memodrops/server/service/plan"
	"github.com/memodrops/memodrops/server/service/progress"
	"github.com/memodrops/memodrops/store"
	"github.com/memodrops/memodrops/store/db"
)

const version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:           "memodrops",
	Short:         "Spaced repetition scheduling for MemoDrops study plans",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// app wires the store and the services for one command invocation.
type app struct {
	profile  *profile.Profile
	store    *store.Store
	plan     plan.Service
	learn    learn.Service
	card     card.Service
	progress *progress.Service
}

func newApp(ctx context.Context) (*app, error) {
	instanceProfile := &profile.Profile{
		Mode:    viper.GetString("mode"),
		Data:    viper.GetString("data"),
		Driver:  viper.GetString("driver"),
		DSN:     viper.GetString("dsn"),
		Version: version,
	}
	instanceProfile.FromEnv()
	if err := instanceProfile.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid profile")
	}
	setupLogger(instanceProfile)

	dbDriver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		return nil, err
	}
	storeInstance := store.New(dbDriver, instanceProfile)
	if err := storeInstance.Migrate(ctx); err != nil {
		storeInstance.Close()
		return nil, errors.Wrap(err, "failed to migrate")
	}

	return &app{
		profile: instanceProfile,
		store:   storeInstance,
		plan: plan.NewService(storeInstance, plan.Config{
			DefaultLimit:      instanceProfile.DailyPlanLimit,
			LookupConcurrency: instanceProfile.PlanLookupConcurrency,
		}),
		learn:    learn.NewService(storeInstance),
		card:     card.NewService(storeInstance),
		progress: progress.NewService(storeInstance),
	}, nil
}

func (a *app) newPreviewRunner() *planpreview.Runner {
	return planpreview.NewRunner(a.store, a.plan, a.profile.PreviewInterval, a.profile.PreviewRate, a.profile.DailyPlanLimit)
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		slog.Warn("failed to close store", slog.String("error", err.Error()))
	}
}

// withApp runs fn with a ready app and closes it afterwards.
func withApp(fn func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, cmd, a, args)
	}
}

func setupLogger(p *profile.Profile) {
	var handler slog.Handler
	if p.IsDev() {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))
}

func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")

	rootCmd.PersistentFlags().String("mode", "dev", `mode of the instance, "prod", "dev" or "demo"`)
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver, sqlite or postgres")
	rootCmd.PersistentFlags().String("dsn", "", "database source name")

	for _, key := range []string{"mode", "data", "driver", "dsn"} {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(key)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("memodrops")
	viper.AutomaticEnv()

	rootCmd.AddCommand(
		newMigrateCommand(),
		newDropCommand(),
		newPlanCommand(),
		newLearnCommand(),
		newCardCommand(),
		newStatsCommand(),
		newResetCommand(),
		newVersionCommand(),
	)
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
