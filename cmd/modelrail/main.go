package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/railzwaylabs/modelrail/internal/account"
	"github.com/railzwaylabs/modelrail/internal/aiaccount"
	"github.com/railzwaylabs/modelrail/internal/archive"
	"github.com/railzwaylabs/modelrail/internal/auth"
	"github.com/railzwaylabs/modelrail/internal/authorization"
	"github.com/railzwaylabs/modelrail/internal/billing"
	"github.com/railzwaylabs/modelrail/internal/bootstrap"
	"github.com/railzwaylabs/modelrail/internal/clock"
	"github.com/railzwaylabs/modelrail/internal/config"
	"github.com/railzwaylabs/modelrail/internal/migration"
	"github.com/railzwaylabs/modelrail/internal/notify"
	"github.com/railzwaylabs/modelrail/internal/observability"
	"github.com/railzwaylabs/modelrail/internal/redis"
	"github.com/railzwaylabs/modelrail/internal/security/vault"
	"github.com/railzwaylabs/modelrail/internal/server"
	"github.com/railzwaylabs/modelrail/internal/subscription"
	"github.com/railzwaylabs/modelrail/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "modelrail",
		Short:   "Modelrail CLI",
		Version: readVersionFromEnv(),
	}
	root.AddCommand(newMigrateCmd(), newServeCmd(), newAllCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations and activate schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate()
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			runServe()
			return nil
		},
	}
}

func newAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run migrations, then start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runMigrate(); err != nil {
				return err
			}
			runServe()
			return nil
		},
	}
}

func runMigrate() error {
	app := fx.New(
		config.Module,
		observability.Module,
		db.Module,
		migration.Module,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("migrate failed: %w", err)
	}
	_ = app.Stop(context.Background())
	return nil
}

func runServe() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		clock.Module,
		redis.Module,
		vault.Module,
		account.Module,
		auth.Module,
		authorization.Module,
		subscription.Module,
		notify.Module,
		aiaccount.Module,
		archive.Module,
		billing.Module,
		bootstrap.Module,
		server.Module,
	)
	app.Run()
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}

func readVersionFromEnv() string {
	if v := strings.TrimSpace(os.Getenv("APP_VERSION")); v != "" {
		return v
	}
	return "dev"
}
