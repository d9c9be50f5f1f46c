package db

import (
	"database/sql"
	"fmt"
)

// GetSchemaVersion returns the current schema version from the database.
func (db *DB) GetSchemaVersion() (int, error) {
	var version string
	err := db.conn.QueryRow("SELECT value FROM schema_info WHERE key = 'version'").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		// Table might not exist yet
		return 0, nil
	}
	var v int
	fmt.Sscanf(version, "%d", &v)
	return v, nil
}

func (db *DB) setSchemaVersion(version int) error {
	_, err := db.conn.Exec(`INSERT OR REPLACE INTO schema_info (key, value) VALUES ('version', ?)`,
		fmt.Sprintf("%d", version))
	return err
}

// RunMigrations applies any pending migrations. Safe to call on every open.
func (db *DB) RunMigrations() error {
	currentVersion, _ := db.GetSchemaVersion()
	if currentVersion >= SchemaVersion {
		return nil
	}

	return db.withWriteLock(func() error {
		_, err := db.conn.Exec(`CREATE TABLE IF NOT EXISTS schema_info (key TEXT PRIMARY KEY, value TEXT NOT NULL)`)
		if err != nil {
			return fmt.Errorf("create schema_info: %w", err)
		}

		currentVersion, err := db.GetSchemaVersion()
		if err != nil {
			return fmt.Errorf("get schema version: %w", err)
		}

		for _, migration := range Migrations {
			if migration.Version <= currentVersion {
				continue
			}
			if _, err := db.conn.Exec(migration.SQL); err != nil {
				return fmt.Errorf("migration %d (%s): %w", migration.Version, migration.Description, err)
			}
			if err := db.setSchemaVersion(migration.Version); err != nil {
				return fmt.Errorf("set version %d: %w", migration.Version, err)
			}
		}

		if currentVersion == 0 {
			return db.setSchemaVersion(SchemaVersion)
		}
		return nil
	})
}
