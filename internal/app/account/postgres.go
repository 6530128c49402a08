package account

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// PostgresStore is the production Store backed by PostgreSQL. Uniqueness
// is enforced by the unique constraints on id and email; violations are
// translated to the package sentinels.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore initializes the connection pool and applies pending
// migrations.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database DSN: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer sqlDB.Close()

	if err := runMigrations(sqlDB); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// runMigrations applies all pending migrations from the embedded filesystem.
func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}

// isUniqueViolation checks for a PostgreSQL unique constraint violation
// (code 23505) on the named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == constraint
	}
	return false
}

const selectColumns = "id, name, avatar_ext, email, password_hash, banned, ext"

func scanAccount(row pgx.Row) (*Account, error) {
	acct := &Account{}
	err := row.Scan(&acct.ID, &acct.Name, &acct.AvatarExt, &acct.Email, &acct.PasswordHash, &acct.Banned, &acct.Ext)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return acct, nil
}

// ByID returns the account with the given id, or ErrNotFound.
func (s *PostgresStore) ByID(ctx context.Context, id string) (*Account, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+selectColumns+" FROM accounts WHERE id = $1", id)
	return scanAccount(row)
}

// ByEmail returns the account with the given email, or ErrNotFound.
func (s *PostgresStore) ByEmail(ctx context.Context, email string) (*Account, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+selectColumns+" FROM accounts WHERE email = lower($1)", email)
	return scanAccount(row)
}

// List returns all accounts ordered by id.
func (s *PostgresStore) List(ctx context.Context) ([]*Account, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+selectColumns+" FROM accounts ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acct)
	}

	return accounts, rows.Err()
}

// Create inserts a new account, mapping constraint violations to the
// uniqueness sentinels.
func (s *PostgresStore) Create(ctx context.Context, acct *Account) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO accounts (id, name, avatar_ext, email, password_hash, banned, ext)
		 VALUES ($1, $2, $3, lower($4), $5, $6, $7)`,
		acct.ID, acct.Name, acct.AvatarExt, acct.Email, acct.PasswordHash, acct.Banned, acct.Ext,
	)

	if isUniqueViolation(err, "accounts_pkey") {
		return ErrIDTaken
	}
	if isUniqueViolation(err, "accounts_email_key") {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}

	return nil
}

// Save persists the current state of an existing account.
func (s *PostgresStore) Save(ctx context.Context, acct *Account) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE accounts
		 SET name = $2, avatar_ext = $3, email = lower($4), password_hash = $5, banned = $6, ext = $7
		 WHERE id = $1`,
		acct.ID, acct.Name, acct.AvatarExt, acct.Email, acct.PasswordHash, acct.Banned, acct.Ext,
	)

	if isUniqueViolation(err, "accounts_email_key") {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// RenameID changes an account's identity id.
func (s *PostgresStore) RenameID(ctx context.Context, oldID, newID string) error {
	tag, err := s.pool.Exec(ctx, "UPDATE accounts SET id = $2 WHERE id = $1", oldID, newID)

	if isUniqueViolation(err, "accounts_pkey") {
		return ErrIDTaken
	}
	if err != nil {
		return fmt.Errorf("rename account id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}
