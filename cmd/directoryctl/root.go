package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	rosterStore "directory/internal/adapters/storage/roster"
	"directory/internal/application/directory"
	"directory/internal/application/orchestrators"
	"directory/internal/config"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	envFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "directoryctl",
		Short: "Administer the clinical staff directory",
		Long: `directoryctl reads the configured roster source and the local settings
database. It uses the same DIRECTORY_* environment as the server.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn})))
		},
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the environment")

	root.AddCommand(newHashPasswordCmd())
	root.AddCommand(newQueryCmd(opts))
	root.AddCommand(newExportCmd(opts))
	root.AddCommand(newImportSettingsCmd(opts))
	return root
}

// loadConfig reads the dotenv file named by --env-file and the environment.
func (o *rootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.envFile)
	if err != nil {
		return config.Config{}, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

// loadRoster opens the configured source and loads one snapshot.
// The memory driver is seeded with the sample roster first.
func loadRoster(ctx context.Context, cfg config.Config) (directory.Snapshot, error) {
	src, err := rosterStore.Open(ctx, cfg.Source)
	if err != nil {
		return directory.Snapshot{}, err
	}
	if cfg.Source.Driver == config.DriverMemory {
		if _, err := orchestrators.ExecuteSeedRoster(ctx, orchestrators.SeedRosterDeps{Source: src}); err != nil {
			return directory.Snapshot{}, err
		}
	}
	snap, err := directory.NewStore(src, cfg.IdentityField).Load(ctx)
	if err != nil {
		return directory.Snapshot{}, fmt.Errorf("load roster from %s source: %w", cfg.Source.Driver, err)
	}
	return snap, nil
}

// stdinFd is the descriptor passwords are read from.
var stdinFd = int(os.Stdin.Fd())
