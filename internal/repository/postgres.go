package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/casimirlb/shortener/internal/models"
)

type PostgresStore struct {
	pool   *pgxpool.Pool
	sb     squirrel.StatementBuilderType
	logger *zap.Logger
}

func NewPostgresStore(dsn string, logger *zap.Logger) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := runMigrations(dsn); err != nil {
		return nil, fmt.Errorf("migrations failed: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("PostgreSQL store initialized")

	return &PostgresStore{
		pool:   pool,
		sb:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		logger: logger,
	}, nil
}

func runMigrations(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open database for migrations: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database for migrations: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres", driver,
	)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func (p *PostgresStore) CreateMapping(ctx context.Context, m *models.Mapping) error {
	var owner any
	if m.OwnerID != "" {
		owner = m.OwnerID
	}

	query, args, err := p.sb.
		Insert("url_mappings").
		Columns("short_code", "original_url", "owner_id", "expires_at").
		Values(m.ShortCode, m.OriginalURL, owner, m.ExpiresAt).
		Suffix("RETURNING id, created_at, click_count").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	err = p.pool.QueryRow(ctx, query, args...).Scan(&m.ID, &m.CreatedAt, &m.ClickCount)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrCodeTaken
		}
		return fmt.Errorf("insert mapping: %w", err)
	}

	return nil
}

func (p *PostgresStore) GetMapping(ctx context.Context, shortCode string) (*models.Mapping, error) {
	query, args, err := p.sb.
		Select("id", "short_code", "original_url", "owner_id", "created_at", "expires_at", "click_count").
		From("url_mappings").
		Where(squirrel.Eq{"short_code": shortCode}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var m models.Mapping
	var owner sql.NullString
	err = p.pool.QueryRow(ctx, query, args...).Scan(
		&m.ID, &m.ShortCode, &m.OriginalURL, &owner, &m.CreatedAt, &m.ExpiresAt, &m.ClickCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query row: %w", err)
	}
	m.OwnerID = owner.String

	return &m, nil
}

// IncrementClicks bumps click_count in a single UPDATE guarded by the
// liveness predicate, so concurrent redirects are each counted exactly
// once and expired mappings are never touched.
func (p *PostgresStore) IncrementClicks(ctx context.Context, shortCode string, now time.Time) (string, error) {
	query, args, err := p.sb.
		Update("url_mappings").
		Set("click_count", squirrel.Expr("click_count + 1")).
		Where(squirrel.Eq{"short_code": shortCode}).
		Where(squirrel.Or{
			squirrel.Eq{"expires_at": nil},
			squirrel.Gt{"expires_at": now},
		}).
		Suffix("RETURNING original_url").
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build query: %w", err)
	}

	var originalURL string
	err = p.pool.QueryRow(ctx, query, args...).Scan(&originalURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("increment clicks: %w", err)
	}

	return originalURL, nil
}

func (p *PostgresStore) DeleteMapping(ctx context.Context, shortCode string) error {
	query, args, err := p.sb.
		Delete("url_mappings").
		Where(squirrel.Eq{"short_code": shortCode}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	cmdTag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete mapping: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (p *PostgresStore) ListMappingsByOwner(ctx context.Context, ownerID string) ([]models.Mapping, error) {
	return p.listMappings(ctx, squirrel.Eq{"owner_id": ownerID})
}

func (p *PostgresStore) ListAllMappings(ctx context.Context) ([]models.Mapping, error) {
	return p.listMappings(ctx, nil)
}

func (p *PostgresStore) listMappings(ctx context.Context, where any) ([]models.Mapping, error) {
	builder := p.sb.
		Select("id", "short_code", "original_url", "owner_id", "created_at", "expires_at", "click_count").
		From("url_mappings").
		OrderBy("created_at DESC")
	if where != nil {
		builder = builder.Where(where)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query mappings: %w", err)
	}
	defer rows.Close()

	var mappings []models.Mapping
	for rows.Next() {
		var m models.Mapping
		var owner sql.NullString
		if err := rows.Scan(&m.ID, &m.ShortCode, &m.OriginalURL, &owner, &m.CreatedAt, &m.ExpiresAt, &m.ClickCount); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		m.OwnerID = owner.String
		mappings = append(mappings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return mappings, nil
}

func (p *PostgresStore) MappingTotals(ctx context.Context) (int64, int64, error) {
	query, args, err := p.sb.
		Select("COUNT(*)", "COALESCE(SUM(click_count), 0)").
		From("url_mappings").
		ToSql()
	if err != nil {
		return 0, 0, fmt.Errorf("build query: %w", err)
	}

	var urls, clicks int64
	if err := p.pool.QueryRow(ctx, query, args...).Scan(&urls, &clicks); err != nil {
		return 0, 0, fmt.Errorf("query totals: %w", err)
	}

	return urls, clicks, nil
}

func (p *PostgresStore) CreateUser(ctx context.Context, u *models.User) error {
	query, args, err := p.sb.
		Insert("users").
		Columns("id", "username", "password_hash", "is_admin", "is_active").
		Values(u.ID, u.Username, u.PasswordHash, u.IsAdmin, u.IsActive).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	err = p.pool.QueryRow(ctx, query, args...).Scan(&u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

func (p *PostgresStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return p.getUser(ctx, squirrel.Eq{"id": id})
}

func (p *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return p.getUser(ctx, squirrel.Eq{"username": username})
}

func (p *PostgresStore) getUser(ctx context.Context, where squirrel.Eq) (*models.User, error) {
	query, args, err := p.sb.
		Select("id", "username", "password_hash", "is_admin", "is_active", "created_at").
		From("users").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var u models.User
	err = p.pool.QueryRow(ctx, query, args...).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.IsAdmin, &u.IsActive, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query row: %w", err)
	}

	return &u, nil
}

func (p *PostgresStore) ListUsers(ctx context.Context) ([]models.User, error) {
	query, args, err := p.sb.
		Select("id", "username", "password_hash", "is_admin", "is_active", "created_at").
		From("users").
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsAdmin, &u.IsActive, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return users, nil
}

func (p *PostgresStore) DeleteUser(ctx context.Context, id string) error {
	query, args, err := p.sb.
		Delete("users").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	cmdTag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (p *PostgresStore) CountUsers(ctx context.Context) (int64, error) {
	query, args, err := p.sb.
		Select("COUNT(*)").
		From("users").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var count int64
	if err := p.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("query count: %w", err)
	}

	return count, nil
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}
