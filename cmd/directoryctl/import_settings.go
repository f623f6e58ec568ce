package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"directory/internal/adapters/storage"
	settingsStore "directory/internal/adapters/storage/settings"
	domainSettings "directory/internal/domain/settings"
)

func newImportSettingsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import-settings FILE",
		Short: "Import a desktop settings.json into the settings database",
		Long: `import-settings reads font, fontSize, theme and version_rev from a settings.json
written by the desktop client. Keys that are missing or invalid fall back to defaults.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			s, err := domainSettings.ParseLegacyJSON(data)
			if err != nil {
				return err
			}
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			db, err := storage.Open(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := settingsStore.NewSQLiteStore(db).Save(cmd.Context(), s); err != nil {
				return fmt.Errorf("save settings: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported settings: font=%s size=%d theme=%s version=%s\n",
				s.Font, s.FontSize, s.Theme, s.Version())
			return nil
		},
	}
}
