package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"gosip/internal/errors"
	"gosip/internal/migration"
)

// Open connects to the result store and applies the schema. driver is
// "postgres" or "sqlite".
func Open(ctx context.Context, driver, url string) (*sqlx.DB, error) {
	switch driver {
	case "postgres", "sqlite":
	default:
		return nil, errors.ConfigInvalid(fmt.Sprintf("unsupported database driver %q", driver))
	}

	db, err := sqlx.ConnectContext(ctx, driver, url)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to database", err)
	}

	if driver == "sqlite" {
		// a single connection keeps in-memory databases shared and serializes writers
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, errors.DatabaseError("failed to enable foreign keys", err)
		}
	}

	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return nil, errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "database migration failed"))
	}

	return db, nil
}
