package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/domain"
	"github.com/baechuer/real-time-ressys/services/account-service/internal/infrastructure/db/migrations"
)

// gooseUp is a seam for tests.
var gooseUp = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded schema, including the role fixtures.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUp(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// CheckRoleCatalog fails when the roles table disagrees with the compiled
// catalog, which would break the role foreign key at runtime.
func CheckRoleCatalog(ctx context.Context, db DBTX) error {
	rows, err := db.QueryContext(ctx, `SELECT id, name FROM roles ORDER BY id;`)
	if err != nil {
		return domain.ErrDBUnavailable(err)
	}
	defer rows.Close()

	stored := map[int]string{}
	for rows.Next() {
		var (
			id   int
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return domain.ErrDBUnavailable(err)
		}
		stored[id] = name
	}
	if err := rows.Err(); err != nil {
		return domain.ErrDBUnavailable(err)
	}

	for _, ri := range domain.Roles() {
		name, ok := stored[int(ri.ID)]
		if !ok {
			return fmt.Errorf("role %s (id=%d) missing from roles table", ri.Name, ri.ID)
		}
		if name != ri.Name {
			return fmt.Errorf("role id=%d is %q in roles table, want %q", ri.ID, name, ri.Name)
		}
	}
	return nil
}
