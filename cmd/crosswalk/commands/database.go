package commands

import (
	"database/sql"

	"github.com/The-Politico/crosswalk/config"
	"github.com/The-Politico/crosswalk/db"
	"github.com/The-Politico/crosswalk/errors"
	"github.com/The-Politico/crosswalk/logger"
)

// openDatabase opens and migrates the database at dbPath, falling back to
// the configured path when dbPath is empty.
func openDatabase(dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, errors.Wrap(err, "failed to load configuration")
		}
		dbPath = cfg.Database.Path
	}

	database, err := db.OpenWithMigrations(dbPath, logger.Logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", dbPath)
	}
	return database, nil
}
