package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/whsiao/tariffcompare/internal/api"
	"github.com/whsiao/tariffcompare/internal/catalog"
	"github.com/whsiao/tariffcompare/internal/config"
	"github.com/whsiao/tariffcompare/internal/cron"
	"github.com/whsiao/tariffcompare/internal/migrate"
)

func main() {
	// Local development convenience; missing .env is fine.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "tariffcompare",
		Short: "Electricity tariff plan comparison service",
	}
	root.AddCommand(serveCmd(), workerCmd(), migrateCmd(), validateCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			mux := api.NewMux(cfg)

			addr := ":" + cfg.Port
			log.Printf("tariffcompare listening on %s", addr)
			return http.ListenAndServe(addr, mux)
		},
	}
}

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the catalog refresh worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return ignoreCanceled(cron.Run(ctx, config.FromEnv()))
		},
	}
}

// ignoreCanceled swallows context cancellation so a signal-driven shutdown
// exits cleanly, including cancellations wrapped along the way.
func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "migrate {up|down|status}",
		Short:     "Run database schema migrations",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			ctx := cmd.Context()
			switch args[0] {
			case "up":
				return migrate.Up(ctx, cfg.DBDriver, cfg.DBDSN)
			case "down":
				return migrate.Down(ctx, cfg.DBDriver, cfg.DBDSN)
			case "status":
				return migrate.Status(ctx, cfg.DBDriver, cfg.DBDSN)
			}
			return fmt.Errorf("unknown migrate action %q", args[0])
		},
	}
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [catalog.json]",
		Short: "Validate a catalog document without serving it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var source catalog.Source = catalog.EmbeddedSource{}
			if len(args) == 1 {
				source = catalog.FileSource{Path: args[0]}
			}

			payload, err := source.Fetch(cmd.Context())
			if err != nil {
				return err
			}
			if err := catalog.ValidateDocument(payload); err != nil {
				return err
			}
			cat, err := catalog.Parse(payload)
			if err != nil {
				return err
			}
			fmt.Printf("catalog %s: %d plans ok\n", cat.Version, len(cat.Plans))
			return nil
		},
	}
}
