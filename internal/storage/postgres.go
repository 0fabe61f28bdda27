package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terra-clan/wellness-hub/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 25
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 2
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

var _ Repository = (*PostgresRepository)(nil)

// Pool exposes the underlying pool for migrations.
func (r *PostgresRepository) Pool() *pgxpool.Pool {
	return r.pool
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// --- resources ---

const resourceColumns = `r.id, r.title, r.description, r.content, r.category, r.duration, r.is_active, r.user_id, r.created_at, r.updated_at, (f.user_id IS NOT NULL)`

// CreateResource inserts a new resource
func (r *PostgresRepository) CreateResource(ctx context.Context, res *models.Resource) error {
	query := `
		INSERT INTO resources (id, title, description, content, category, duration, is_active, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.pool.Exec(ctx, query,
		res.ID,
		res.Title,
		res.Description,
		nullString(res.Content),
		res.Category,
		res.Duration,
		res.IsActive,
		nullString(res.UserID),
		res.CreatedAt,
		res.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", mapError(err))
	}
	return nil
}

// GetResource retrieves a resource, marking IsFavorite for viewerID
func (r *PostgresRepository) GetResource(ctx context.Context, id, viewerID string) (*models.Resource, error) {
	query := `SELECT ` + resourceColumns + `
		FROM resources r
		LEFT JOIN user_favorites f ON f.resource_id = r.id AND f.user_id = $2
		WHERE r.id = $1`

	res, err := scanResource(r.pool.QueryRow(ctx, query, id, viewerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}
	return res, nil
}

// UpdateResource updates an existing resource
func (r *PostgresRepository) UpdateResource(ctx context.Context, res *models.Resource) error {
	query := `
		UPDATE resources
		SET title = $2, description = $3, content = $4, category = $5, duration = $6, is_active = $7, updated_at = $8
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		res.ID,
		res.Title,
		res.Description,
		nullString(res.Content),
		res.Category,
		res.Duration,
		res.IsActive,
		res.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update resource: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteResource removes a resource and its favorites
func (r *PostgresRepository) DeleteResource(ctx context.Context, id string) error {
	return r.execDelete(ctx, `DELETE FROM resources WHERE id = $1`, id, "resource")
}

// ListResources returns resources matching filters, newest first
func (r *PostgresRepository) ListResources(ctx context.Context, filters models.ResourceFilters) ([]*models.Resource, error) {
	join := "LEFT JOIN"
	if filters.Favorites {
		join = "JOIN"
	}
	query := `SELECT ` + resourceColumns + `
		FROM resources r
		` + join + ` user_favorites f ON f.resource_id = r.id AND f.user_id = $1
		WHERE 1=1`
	args := []interface{}{filters.ViewerID}
	argNum := 2

	if filters.Category != "" {
		query += fmt.Sprintf(" AND LOWER(r.category) = LOWER($%d)", argNum)
		args = append(args, filters.Category)
		argNum++
	}

	if filters.ActiveOnly {
		query += " AND r.is_active"
	}

	if filters.Search != "" {
		query += fmt.Sprintf(" AND (r.title ILIKE $%d OR r.description ILIKE $%d)", argNum, argNum)
		args = append(args, containsPattern(filters.Search))
		argNum++
	}

	query += " ORDER BY r.created_at DESC, r.id"

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filters.Limit)
		argNum++
	}

	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, filters.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	defer rows.Close()

	resources := []*models.Resource{}
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		resources = append(resources, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating resources: %w", err)
	}
	return resources, nil
}

// CountResourcesByCategory counts resources filed under a category name
func (r *PostgresRepository) CountResourcesByCategory(ctx context.Context, category string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM resources WHERE LOWER(category) = LOWER($1)`, category).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count resources: %w", err)
	}
	return n, nil
}

// SetFavorite marks or unmarks a resource as a favorite of userID
func (r *PostgresRepository) SetFavorite(ctx context.Context, userID, resourceID string, favorite bool) error {
	if !favorite {
		_, err := r.pool.Exec(ctx, `DELETE FROM user_favorites WHERE user_id = $1 AND resource_id = $2`, userID, resourceID)
		if err != nil {
			return fmt.Errorf("failed to remove favorite: %w", err)
		}
		return nil
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_favorites (user_id, resource_id) VALUES ($1, $2)
		ON CONFLICT (user_id, resource_id) DO NOTHING
	`, userID, resourceID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrNotFound
		}
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

// --- categories ---

// CreateCategory inserts a new category
func (r *PostgresRepository) CreateCategory(ctx context.Context, c *models.ResourceCategory) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO resource_categories (id, name, description) VALUES ($1, $2, $3)`,
		c.ID, c.Name, nullString(c.Description))
	if err != nil {
		return fmt.Errorf("failed to create category: %w", mapError(err))
	}
	return nil
}

// GetCategory retrieves a category by ID
func (r *PostgresRepository) GetCategory(ctx context.Context, id string) (*models.ResourceCategory, error) {
	return r.getCategory(ctx, `SELECT id, name, description FROM resource_categories WHERE id = $1`, id)
}

// GetCategoryByName retrieves a category by case-insensitive name
func (r *PostgresRepository) GetCategoryByName(ctx context.Context, name string) (*models.ResourceCategory, error) {
	return r.getCategory(ctx, `SELECT id, name, description FROM resource_categories WHERE LOWER(name) = LOWER($1)`, name)
}

func (r *PostgresRepository) getCategory(ctx context.Context, query string, arg string) (*models.ResourceCategory, error) {
	var c models.ResourceCategory
	var desc sql.NullString
	if err := r.pool.QueryRow(ctx, query, arg).Scan(&c.ID, &c.Name, &desc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	c.Description = desc.String
	return &c, nil
}

// UpdateCategory updates name and description
func (r *PostgresRepository) UpdateCategory(ctx context.Context, c *models.ResourceCategory) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE resource_categories SET name = $2, description = $3 WHERE id = $1`,
		c.ID, c.Name, nullString(c.Description))
	if err != nil {
		return fmt.Errorf("failed to update category: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCategory removes a category
func (r *PostgresRepository) DeleteCategory(ctx context.Context, id string) error {
	return r.execDelete(ctx, `DELETE FROM resource_categories WHERE id = $1`, id, "category")
}

// ListCategories returns all categories ordered by name
func (r *PostgresRepository) ListCategories(ctx context.Context) ([]*models.ResourceCategory, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description FROM resource_categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []*models.ResourceCategory{}
	for rows.Next() {
		var c models.ResourceCategory
		var desc sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &desc); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		c.Description = desc.String
		categories = append(categories, &c)
	}
	return categories, rows.Err()
}

// --- users ---

const userColumns = `id, email, name, pass_hash, created_at, last_login, is_admin`

// CreateUser inserts a new user
func (r *PostgresRepository) CreateUser(ctx context.Context, u *models.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (id, email, name, pass_hash, created_at, last_login, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, u.ID, u.Email, nullString(u.Name), u.PassHash, u.CreatedAt, nullTime(u.LastLogin), u.IsAdmin)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", mapError(err))
	}
	return nil
}

// GetUserByID retrieves a user by ID
func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetUserByEmail retrieves a user by normalized email
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, models.NormalizeEmail(email))
}

func (r *PostgresRepository) getUser(ctx context.Context, query, arg string) (*models.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// UpdateUser updates profile, password hash and admin flag
func (r *PostgresRepository) UpdateUser(ctx context.Context, u *models.User) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET email = $2, name = $3, pass_hash = $4, is_admin = $5
		WHERE id = $1
	`, u.ID, u.Email, nullString(u.Name), u.PassHash, u.IsAdmin)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes a user, cascading favorites and diagnostics
func (r *PostgresRepository) DeleteUser(ctx context.Context, id string) error {
	return r.execDelete(ctx, `DELETE FROM users WHERE id = $1`, id, "user")
}

// ListUsers returns users matching filters ordered by email
func (r *PostgresRepository) ListUsers(ctx context.Context, filters models.UserFilters) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE 1=1`
	args := make([]interface{}, 0)
	argNum := 1

	if filters.Search != "" {
		query += fmt.Sprintf(" AND (email ILIKE $%d OR name ILIKE $%d)", argNum, argNum)
		args = append(args, containsPattern(filters.Search))
		argNum++
	}

	query += " ORDER BY email"

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filters.Limit)
		argNum++
	}

	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, filters.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// TouchLastLogin records a successful login
func (r *PostgresRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- diagnostics ---

const diagnosticColumns = `id, user_id, kind, total_score, feedback_title, feedback_message, stress_score, risk_category, answers, date`

// CreateDiagnostic stores a scored diagnostic
func (r *PostgresRepository) CreateDiagnostic(ctx context.Context, d *models.DiagnosticResult) error {
	answersJSON, err := json.Marshal(d.Answers)
	if err != nil {
		return fmt.Errorf("failed to marshal answers: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO diagnostic_results (id, user_id, kind, total_score, feedback_title, feedback_message, stress_score, risk_category, answers, date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		d.ID,
		nullString(d.UserID),
		string(d.Kind),
		d.TotalScore,
		nullString(d.FeedbackTitle),
		nullString(d.FeedbackMessage),
		d.StressScore,
		nullString(string(d.RiskCategory)),
		answersJSON,
		d.Date,
	)
	if err != nil {
		return fmt.Errorf("failed to create diagnostic: %w", mapError(err))
	}
	return nil
}

// GetDiagnostic retrieves a diagnostic by ID
func (r *PostgresRepository) GetDiagnostic(ctx context.Context, id string) (*models.DiagnosticResult, error) {
	d, err := scanDiagnostic(r.pool.QueryRow(ctx, `SELECT `+diagnosticColumns+` FROM diagnostic_results WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get diagnostic: %w", err)
	}
	return d, nil
}

// ListDiagnosticsByUser returns a user's diagnostics, most recent first
func (r *PostgresRepository) ListDiagnosticsByUser(ctx context.Context, userID string, limit int) ([]*models.DiagnosticResult, error) {
	query := `SELECT ` + diagnosticColumns + ` FROM diagnostic_results WHERE user_id = $1 ORDER BY date DESC`
	args := []interface{}{userID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list diagnostics: %w", err)
	}
	defer rows.Close()

	results := []*models.DiagnosticResult{}
	for rows.Next() {
		d, err := scanDiagnostic(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan diagnostic: %w", err)
		}
		results = append(results, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating diagnostics: %w", err)
	}
	return results, nil
}

// DeleteDiagnosticsBefore purges diagnostics dated before cutoff
func (r *PostgresRepository) DeleteDiagnosticsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM diagnostic_results WHERE date < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old diagnostics: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// --- info pages ---

// CreatePage inserts a page and its sections in one transaction
func (r *PostgresRepository) CreatePage(ctx context.Context, p *models.InfoPage) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO info_pages (id, title, slug, is_published, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.Title, p.Slug, p.IsPublished, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create page: %w", mapError(err))
	}

	if err := insertSections(ctx, tx, p); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit page: %w", err)
	}
	return nil
}

// GetPage retrieves a page with its sections
func (r *PostgresRepository) GetPage(ctx context.Context, id string) (*models.InfoPage, error) {
	return r.getPage(ctx, `SELECT id, title, slug, is_published, created_at, updated_at FROM info_pages WHERE id = $1`, id)
}

// GetPageBySlug retrieves a page by slug
func (r *PostgresRepository) GetPageBySlug(ctx context.Context, slug string) (*models.InfoPage, error) {
	return r.getPage(ctx, `SELECT id, title, slug, is_published, created_at, updated_at FROM info_pages WHERE slug = $1`, slug)
}

func (r *PostgresRepository) getPage(ctx context.Context, query, arg string) (*models.InfoPage, error) {
	var p models.InfoPage
	err := r.pool.QueryRow(ctx, query, arg).Scan(&p.ID, &p.Title, &p.Slug, &p.IsPublished, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get page: %w", err)
	}

	sections, err := r.getSections(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Sections = sections
	return &p, nil
}

// UpdatePage replaces a page and its sections
func (r *PostgresRepository) UpdatePage(ctx context.Context, p *models.InfoPage) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE info_pages SET title = $2, slug = $3, is_published = $4, updated_at = $5
		WHERE id = $1
	`, p.ID, p.Title, p.Slug, p.IsPublished, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update page: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM page_sections WHERE page_id = $1`, p.ID); err != nil {
		return fmt.Errorf("failed to clear sections: %w", err)
	}
	if err := insertSections(ctx, tx, p); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit page: %w", err)
	}
	return nil
}

// DeletePage removes a page and its sections
func (r *PostgresRepository) DeletePage(ctx context.Context, id string) error {
	return r.execDelete(ctx, `DELETE FROM info_pages WHERE id = $1`, id, "page")
}

// ListPages returns pages ordered by title
func (r *PostgresRepository) ListPages(ctx context.Context, publishedOnly bool) ([]*models.InfoPage, error) {
	query := `SELECT id, title, slug, is_published, created_at, updated_at FROM info_pages`
	if publishedOnly {
		query += ` WHERE is_published`
	}
	query += ` ORDER BY title`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}

	pages := []*models.InfoPage{}
	for rows.Next() {
		var p models.InfoPage
		if err := rows.Scan(&p.ID, &p.Title, &p.Slug, &p.IsPublished, &p.CreatedAt, &p.UpdatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		pages = append(pages, &p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pages: %w", err)
	}

	for _, p := range pages {
		sections, err := r.getSections(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		p.Sections = sections
	}
	return pages, nil
}

func (r *PostgresRepository) getSections(ctx context.Context, pageID string) ([]*models.Section, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, title, content, sort_order FROM page_sections
		WHERE page_id = $1 ORDER BY sort_order, id
	`, pageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get sections: %w", err)
	}
	defer rows.Close()

	sections := []*models.Section{}
	for rows.Next() {
		var s models.Section
		if err := rows.Scan(&s.ID, &s.Title, &s.Content, &s.Order); err != nil {
			return nil, fmt.Errorf("failed to scan section: %w", err)
		}
		sections = append(sections, &s)
	}
	return sections, rows.Err()
}

func insertSections(ctx context.Context, tx pgx.Tx, p *models.InfoPage) error {
	for _, s := range p.Sections {
		_, err := tx.Exec(ctx, `
			INSERT INTO page_sections (id, page_id, title, content, sort_order)
			VALUES ($1, $2, $3, $4, $5)
		`, s.ID, p.ID, s.Title, s.Content, s.Order)
		if err != nil {
			return fmt.Errorf("failed to insert section %s: %w", s.ID, mapError(err))
		}
	}
	return nil
}

// --- api clients ---

// UpsertClient creates or refreshes an API client by id. A changed key
// replaces the old one.
func (r *PostgresRepository) UpsertClient(ctx context.Context, c *models.ApiClient) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO api_clients (id, name, role, api_key, is_active, permissions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, role = EXCLUDED.role, api_key = EXCLUDED.api_key,
			is_active = EXCLUDED.is_active, permissions = EXCLUDED.permissions
	`, c.ID, c.Name, c.Role, c.ApiKey, c.IsActive, c.Permissions, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert api client: %w", err)
	}
	return nil
}

// GetClientByApiKey retrieves an API client by its key
func (r *PostgresRepository) GetClientByApiKey(ctx context.Context, apiKey string) (*models.ApiClient, error) {
	var c models.ApiClient
	var lastUsed sql.NullTime
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, role, api_key, is_active, permissions, created_at, last_used_at
		FROM api_clients WHERE api_key = $1
	`, apiKey).Scan(&c.ID, &c.Name, &c.Role, &c.ApiKey, &c.IsActive, &c.Permissions, &c.CreatedAt, &lastUsed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get api client: %w", err)
	}
	if lastUsed.Valid {
		c.LastUsedAt = &lastUsed.Time
	}
	return &c, nil
}

// UpdateClientLastUsed stamps the client's last use
func (r *PostgresRepository) UpdateClientLastUsed(ctx context.Context, apiKey string) error {
	_, err := r.pool.Exec(ctx, `UPDATE api_clients SET last_used_at = NOW() WHERE api_key = $1`, apiKey)
	if err != nil {
		return fmt.Errorf("failed to update last used: %w", err)
	}
	return nil
}

// --- helpers ---

func (r *PostgresRepository) execDelete(ctx context.Context, query, id, what string) error {
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", what, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanResource(row pgx.Row) (*models.Resource, error) {
	var res models.Resource
	var content, userID sql.NullString
	var duration sql.NullInt32
	err := row.Scan(
		&res.ID,
		&res.Title,
		&res.Description,
		&content,
		&res.Category,
		&duration,
		&res.IsActive,
		&userID,
		&res.CreatedAt,
		&res.UpdatedAt,
		&res.IsFavorite,
	)
	if err != nil {
		return nil, err
	}
	res.Content = content.String
	res.UserID = userID.String
	if duration.Valid {
		d := int(duration.Int32)
		res.Duration = &d
	}
	return &res, nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var name sql.NullString
	var lastLogin sql.NullTime
	if err := row.Scan(&u.ID, &u.Email, &name, &u.PassHash, &u.CreatedAt, &lastLogin, &u.IsAdmin); err != nil {
		return nil, err
	}
	u.Name = name.String
	if lastLogin.Valid {
		u.LastLogin = &lastLogin.Time
	}
	return &u, nil
}

func scanDiagnostic(row pgx.Row) (*models.DiagnosticResult, error) {
	var d models.DiagnosticResult
	var userID, title, message, risk sql.NullString
	var stress sql.NullInt32
	var kind string
	var answersJSON []byte
	err := row.Scan(&d.ID, &userID, &kind, &d.TotalScore, &title, &message, &stress, &risk, &answersJSON, &d.Date)
	if err != nil {
		return nil, err
	}
	d.UserID = userID.String
	d.Kind = models.DiagnosticKind(kind)
	d.FeedbackTitle = title.String
	d.FeedbackMessage = message.String
	d.RiskCategory = models.RiskCategory(risk.String)
	if stress.Valid {
		s := int(stress.Int32)
		d.StressScore = &s
	}
	if err := json.Unmarshal(answersJSON, &d.Answers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal answers: %w", err)
	}
	return &d, nil
}

// mapError turns unique violations into ErrConflict.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrConflict
	}
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching s as a literal substring.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
