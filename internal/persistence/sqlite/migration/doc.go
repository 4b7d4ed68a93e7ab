// Package migration applies versioned SQL schema changes.
//
// Migration files follow the naming convention {version}_{description}.sql
// (e.g. "001_initial_schema.sql") and are read from an fs.FS, so the schema
// can be embedded into the binary. Applied versions are tracked in a
// schema_migrations table together with a BLAKE2b checksum of the file.
//
// Example usage:
//
//	scanner := migration.NewFileScanner(migrationsFS, "migrations")
//	executor := migration.NewSQLExecutor(db, nil)
//	if _, err := migration.NewManager(scanner, executor, logger).Run(ctx); err != nil {
//		return err
//	}
package migration
