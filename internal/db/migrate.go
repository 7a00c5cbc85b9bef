package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// RunMigrations applies the embedded goose migrations using the stdlib pgx
// driver; the pgxpool is opened separately afterwards.
func RunMigrations(ctx context.Context, dbURL string) error {
	sqldb, err := sql.Open("pgx", dbURL)
	if err != nil {
		return fmt.Errorf("db open error: %w", err)
	}
	defer sqldb.Close()

	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	if err := goose.UpContext(ctx, sqldb, "migrations"); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	return nil
}
