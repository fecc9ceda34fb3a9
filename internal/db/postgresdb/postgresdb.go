// Package postgresdb provides a PostgreSQL-based implementation of the storage
// interface for users and cats. The schema is created by goose migrations
// embedded into the binary.
package postgresdb

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/patric-chuzhbe/catsapi/internal/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

const uniqueViolationCode = "23505"

// PostgresDB is a PostgreSQL-backed implementation of the users and cats storage.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

type initOptions struct {
	DBPreReset bool
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset enables or disables dropping every table before migrating.
// It is meant for test setups.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// migrate is a seam for tests running against sqlmock.
var migrate = func(ctx context.Context, database *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	return goose.UpContext(ctx, database, "migrations")
}

// New opens the connection pool, optionally resets the schema and applies
// the embedded migrations.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/New(): error while `sql.Open()` calling: %w", err)
	}

	result := NewWithDB(database, connectionTimeout)

	if err := result.Ping(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/New(): error while `result.Ping()` calling: %w", err)
	}

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/New(): error while `result.resetDB()` calling: %w", err)
		}
	}

	if err := migrate(ctx, database); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("in internal/db/postgresdb/postgresdb.go/New(): error while `migrate()` calling: %w", err)
	}

	return result, nil
}

// NewWithDB wraps an already opened connection pool without touching the schema.
func NewWithDB(database *sql.DB, connectionTimeout time.Duration) *PostgresDB {
	return &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}
}

// FindAllCats returns every cat ordered by id.
func (db *PostgresDB) FindAllCats(ctx context.Context) ([]models.Cat, error) {
	rows, err := db.database.QueryContext(
		ctx,
		`SELECT id, name, age FROM cats ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []models.Cat{}
	for rows.Next() {
		var cat models.Cat
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Age); err != nil {
			return nil, err
		}
		result = append(result, cat)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// FindCatByID returns models.ErrNotFound when there is no such cat.
func (db *PostgresDB) FindCatByID(ctx context.Context, id int64) (*models.Cat, error) {
	row := db.database.QueryRowContext(
		ctx,
		`SELECT id, name, age FROM cats WHERE id = $1`,
		id,
	)

	return scanCat(row)
}

// CreateCat inserts a cat; the id is assigned by the database sequence.
func (db *PostgresDB) CreateCat(ctx context.Context, name string, age int) (*models.Cat, error) {
	row := db.database.QueryRowContext(
		ctx,
		`INSERT INTO cats (name, age) VALUES ($1, $2) RETURNING id, name, age`,
		name,
		age,
	)

	return scanCat(row)
}

// UpdateCat applies the non-nil fields of the patch in a single statement.
func (db *PostgresDB) UpdateCat(ctx context.Context, id int64, patch models.CatPatch) (*models.Cat, error) {
	var name, age interface{}
	if patch.Name != nil {
		name = *patch.Name
	}
	if patch.Age != nil {
		age = *patch.Age
	}

	row := db.database.QueryRowContext(
		ctx,
		`
			UPDATE cats
				SET name = COALESCE($2::text, name),
					age = COALESCE($3::integer, age)
				WHERE id = $1
				RETURNING id, name, age
		`,
		id,
		name,
		age,
	)

	return scanCat(row)
}

// DeleteCat returns models.ErrNotFound when no row was removed.
func (db *PostgresDB) DeleteCat(ctx context.Context, id int64) error {
	result, err := db.database.ExecContext(
		ctx,
		`DELETE FROM cats WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrNotFound
	}

	return nil
}

// FindUserByEmail returns models.ErrNotFound for an unknown email.
func (db *PostgresDB) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := db.database.QueryRowContext(
		ctx,
		`SELECT id, email, name, hash FROM users WHERE email = $1`,
		email,
	)

	var usr models.User
	err := row.Scan(&usr.ID, &usr.Email, &usr.Name, &usr.Hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}

	return &usr, nil
}

func (db *PostgresDB) CountUsers(ctx context.Context) (int64, error) {
	row := db.database.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`)

	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

// CreateUser inserts a user and maps a duplicate email to models.ErrConflict.
func (db *PostgresDB) CreateUser(ctx context.Context, usr *models.User) (*models.User, error) {
	row := db.database.QueryRowContext(
		ctx,
		`INSERT INTO users (email, name, hash) VALUES ($1, $2, $3) RETURNING id`,
		usr.Email,
		usr.Name,
		usr.Hash,
	)

	created := *usr
	err := row.Scan(&created.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return nil, fmt.Errorf("user %q: %w", usr.Email, models.ErrConflict)
		}
		return nil, err
	}

	return &created, nil
}

// Ping verifies connectivity with the PostgreSQL database within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

// Close closes the database connection and releases any associated resources.
func (db *PostgresDB) Close() error {
	return db.database.Close()
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			DO $$
			DECLARE
				r RECORD;
			BEGIN
				FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
					EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
				END LOOP;
			END $$;
		`,
	)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/resetDB(): error while `db.database.ExecContext()` calling: %w",
			err,
		)
	}
	return nil
}

func scanCat(row *sql.Row) (*models.Cat, error) {
	var cat models.Cat
	err := row.Scan(&cat.ID, &cat.Name, &cat.Age)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}

	return &cat, nil
}
