package dangdoc

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dang-doctor/doctor-fe/internal/app"
	"github.com/dang-doctor/doctor-fe/internal/db"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize local dangdoc database",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveDBPath()
		if err != nil {
			return err
		}
		if err := app.EnsureDBDir(path); err != nil {
			return err
		}

		sqldb, err := db.Open(path)
		if err != nil {
			return err
		}
		defer sqldb.Close()

		if err := db.ApplyMigrations(sqldb); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Initialized dangdoc database at %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

// resolveDBPath picks the database file: --db, then DANGDOC_DB_PATH (from the
// environment or a dotenv file), then dangdoc.db under the user config dir. A
// config that fails to load falls through to the default rather than failing
// here; withEnv reports the config error itself.
func resolveDBPath() (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}
	if cfg, err := loadConfig(); err == nil && cfg.DBPath != "" {
		return cfg.DBPath, nil
	}
	return app.DefaultDBPath()
}
