package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	exportAdapter "directory/internal/adapters/export"
	"directory/internal/adapters/storage"
	settingsStore "directory/internal/adapters/storage/settings"
	domainExport "directory/internal/domain/export"
	"directory/internal/domain/filter"
)

type exportOptions struct {
	root    *rootOptions
	filters criteriaFlags
	all     bool
}

func newExportCmd(root *rootOptions) *cobra.Command {
	o := &exportOptions{root: root}
	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Write staff matching the filter flags to a .xlsx or .csv file",
		Example: `  directoryctl export npd.xlsx --location NPD
  directoryctl export all.csv --all-fields`,
		Args: cobra.ExactArgs(1),
		RunE: o.run,
	}
	o.filters.bind(cmd)
	cmd.Flags().BoolVar(&o.all, "all-fields", false, "include contact and photo columns")
	return cmd
}

func (o *exportOptions) run(cmd *cobra.Command, args []string) error {
	path := args[0]
	format, err := domainExport.FormatForPath(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	cfg, err := o.root.loadConfig()
	if err != nil {
		return err
	}
	snap, err := loadRoster(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	matched, err := filter.Standard.Apply(snap.Records, snap.Headers, o.filters.criteria())
	if err != nil {
		return err
	}

	table := domainExport.Build(snap.Headers, matched, o.all)
	table.Metadata.ExportDate = time.Now()
	table.Metadata.Format = format
	table.Metadata.Version = settingsVersion(cmd, cfg.DBPath)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := exportAdapter.Write(f, format, table); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d staff to %s\n", table.Metadata.RecordCount, path)
	return nil
}

// settingsVersion reads the version string from the local settings database.
// An unreadable database yields no version.
func settingsVersion(cmd *cobra.Command, dbPath string) string {
	db, err := storage.Open(dbPath)
	if err != nil {
		return ""
	}
	defer db.Close()
	s, _ := settingsStore.NewSQLiteStore(db).Load(cmd.Context())
	return s.Version()
}
