package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kalpovskii/nervetask/internal/app/models"
	"github.com/lib/pq"
)

// PostgresNetwork keeps the tenant directory in the public schema and gives
// every tenant its own schema.
type PostgresNetwork struct {
	db *sql.DB
}

func NewPostgresNetwork(dsn string) (*PostgresNetwork, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS tenants (
			id BIGSERIAL PRIMARY KEY,
			domain TEXT NOT NULL UNIQUE,
			archived BOOLEAN NOT NULL DEFAULT FALSE,
			spam BOOLEAN NOT NULL DEFAULT FALSE,
			deleted BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &PostgresNetwork{db: db}, nil
}

func (n *PostgresNetwork) Close() error {
	return n.db.Close()
}

const tenantColumns = "id, domain, archived, spam, deleted, created_at"

func scanTenant(row interface{ Scan(...any) error }) (*models.Tenant, error) {
	var t models.Tenant
	if err := row.Scan(&t.ID, &t.Domain, &t.Archived, &t.Spam, &t.Deleted, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (n *PostgresNetwork) ActiveTenants(ctx context.Context) ([]models.Tenant, error) {
	rows, err := n.db.QueryContext(ctx, `SELECT `+tenantColumns+` FROM tenants
		WHERE archived = FALSE AND spam = FALSE AND deleted = FALSE
		ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []models.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, *t)
	}
	return tenants, rows.Err()
}

func (n *PostgresNetwork) CreateTenant(ctx context.Context, domain string) (*models.Tenant, error) {
	row := n.db.QueryRowContext(ctx,
		`INSERT INTO tenants (domain) VALUES ($1) RETURNING `+tenantColumns, domain)
	t, err := scanTenant(row)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrTenantExists
		}
		return nil, err
	}
	return t, nil
}

func (n *PostgresNetwork) EnsureTenant(ctx context.Context, domain string) (*models.Tenant, error) {
	_, err := n.db.ExecContext(ctx,
		`INSERT INTO tenants (domain) VALUES ($1) ON CONFLICT (domain) DO NOTHING`, domain)
	if err != nil {
		return nil, err
	}
	return n.TenantByDomain(ctx, domain)
}

func (n *PostgresNetwork) TenantByDomain(ctx context.Context, domain string) (*models.Tenant, error) {
	row := n.db.QueryRowContext(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE domain = $1`, domain)
	return scanTenant(row)
}

func (n *PostgresNetwork) UpdateTenantFlags(ctx context.Context, id int64, flags models.TenantFlags) (*models.Tenant, error) {
	row := n.db.QueryRowContext(ctx, `
		UPDATE tenants SET
			archived = COALESCE($2, archived),
			spam = COALESCE($3, spam),
			deleted = COALESCE($4, deleted)
		WHERE id = $1
		RETURNING `+tenantColumns,
		id, nullBool(flags.Archived), nullBool(flags.Spam), nullBool(flags.Deleted))
	return scanTenant(row)
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

// schemaErr reports a missing tenant schema or table as ErrNotProvisioned.
func schemaErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && (pqErr.Code == "3F000" || pqErr.Code == "42P01") {
		return fmt.Errorf("%w: %s", ErrNotProvisioned, pqErr.Message)
	}
	return err
}

func SchemaName(tenantID int64) string {
	return fmt.Sprintf("tenant_%d", tenantID)
}

// Acquire pins a pooled connection and switches its search_path into the
// tenant schema. Release switches it back before returning it to the pool.
func (n *PostgresNetwork) Acquire(ctx context.Context, tenantID int64) (TenantHandle, error) {
	conn, err := n.db.Conn(ctx)
	if err != nil {
		return nil, err
	}

	schema := SchemaName(tenantID)
	if _, err := conn.ExecContext(ctx, "SET search_path TO "+pq.QuoteIdentifier(schema)+", public"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("switch to %s: %w", schema, err)
	}

	return &PostgresTenantStore{conn: conn, tenantID: tenantID, schema: pq.QuoteIdentifier(schema)}, nil
}

type PostgresTenantStore struct {
	conn     *sql.Conn
	tenantID int64
	schema   string
}

func (s *PostgresTenantStore) TenantID() int64 {
	return s.tenantID
}

func (s *PostgresTenantStore) Release() error {
	if s.conn == nil {
		return nil
	}
	_, err := s.conn.ExecContext(context.Background(), "SET search_path TO public")
	cerr := s.conn.Close()
	s.conn = nil
	return errors.Join(err, cerr)
}

func (s *PostgresTenantStore) table(name string) string {
	return s.schema + "." + name
}

func (s *PostgresTenantStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE SCHEMA IF NOT EXISTS %[1]s`,
		`CREATE TABLE IF NOT EXISTS %[1]s.entity_types (
			name TEXT PRIMARY KEY,
			definition JSONB NOT NULL,
			registered_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS %[1]s.taxonomies (
			name TEXT PRIMARY KEY,
			slug TEXT NOT NULL,
			hierarchical BOOLEAN NOT NULL,
			definition JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS %[1]s.relation_types (
			name TEXT PRIMARY KEY,
			from_type TEXT NOT NULL,
			to_type TEXT NOT NULL,
			label TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS %[1]s.options (
			name TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS %[1]s.tasks (
			id BIGSERIAL PRIMARY KEY,
			title TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			excerpt TEXT NOT NULL DEFAULT '',
			author_id BIGINT NOT NULL,
			responsible_id BIGINT,
			due_date TIMESTAMPTZ,
			meta JSONB NOT NULL DEFAULT '{}',
			menu_order INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			modified_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS %[1]s.task_revisions (
			id BIGSERIAL PRIMARY KEY,
			task_id BIGINT NOT NULL REFERENCES %[1]s.tasks(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			content TEXT NOT NULL,
			excerpt TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS %[1]s.terms (
			id BIGSERIAL PRIMARY KEY,
			taxonomy TEXT NOT NULL,
			name TEXT NOT NULL,
			slug TEXT NOT NULL,
			parent_id BIGINT REFERENCES %[1]s.terms(id) ON DELETE SET NULL,
			UNIQUE (taxonomy, slug)
		)`,
		`CREATE TABLE IF NOT EXISTS %[1]s.task_terms (
			task_id BIGINT NOT NULL REFERENCES %[1]s.tasks(id) ON DELETE CASCADE,
			term_id BIGINT NOT NULL REFERENCES %[1]s.terms(id) ON DELETE CASCADE,
			PRIMARY KEY (task_id, term_id)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.conn.ExecContext(ctx, fmt.Sprintf(stmt, s.schema)); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresTenantStore) RegisterEntityType(ctx context.Context, entity models.EntityType) error {
	def, err := json.Marshal(entity)
	if err != nil {
		return err
	}
	_, err = s.conn.ExecContext(ctx, `INSERT INTO `+s.table("entity_types")+` AS e (name, definition)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET definition = EXCLUDED.definition
		WHERE e.definition IS DISTINCT FROM EXCLUDED.definition`,
		entity.Name, string(def))
	return err
}

func (s *PostgresTenantStore) RegisterTaxonomy(ctx context.Context, taxonomy models.Taxonomy) error {
	def, err := json.Marshal(taxonomy)
	if err != nil {
		return err
	}
	_, err = s.conn.ExecContext(ctx, `INSERT INTO `+s.table("taxonomies")+` AS t (name, slug, hierarchical, definition)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET
			slug = EXCLUDED.slug,
			hierarchical = EXCLUDED.hierarchical,
			definition = EXCLUDED.definition
		WHERE t.definition IS DISTINCT FROM EXCLUDED.definition`,
		taxonomy.Name, taxonomy.Slug, taxonomy.Hierarchical, string(def))
	return err
}

func (s *PostgresTenantStore) RegisterRelationType(ctx context.Context, rel models.RelationType) error {
	_, err := s.conn.ExecContext(ctx, `INSERT INTO `+s.table("relation_types")+` (name, from_type, to_type, label)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET from_type = EXCLUDED.from_type, to_type = EXCLUDED.to_type, label = EXCLUDED.label`,
		rel.Name, rel.From, rel.To, rel.Label)
	return err
}

func (s *PostgresTenantStore) HasRelationType(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.conn.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+s.table("relation_types")+` WHERE name = $1)`, name).Scan(&exists)
	return exists, err
}

func (s *PostgresTenantStore) GetOption(ctx context.Context, name string) (string, bool, error) {
	var value string
	err := s.conn.QueryRowContext(ctx, `SELECT value FROM `+s.table("options")+` WHERE name = $1`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, schemaErr(err)
	}
	return value, true, nil
}

func (s *PostgresTenantStore) AddOption(ctx context.Context, name, value string) error {
	_, err := s.conn.ExecContext(ctx, `INSERT INTO `+s.table("options")+` (name, value) VALUES ($1, $2)
		ON CONFLICT (name) DO NOTHING`, name, value)
	return err
}

func (s *PostgresTenantStore) SetOption(ctx context.Context, name, value string) error {
	_, err := s.conn.ExecContext(ctx, `INSERT INTO `+s.table("options")+` (name, value) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value`, name, value)
	return err
}

const taskColumns = "id, title, content, excerpt, author_id, responsible_id, due_date, meta, menu_order, created_at, modified_at"

func scanTask(row interface{ Scan(...any) error }) (*models.Task, error) {
	var (
		t           models.Task
		responsible sql.NullInt64
		due         sql.NullTime
		meta        []byte
	)
	err := row.Scan(&t.ID, &t.Title, &t.Content, &t.Excerpt, &t.AuthorID, &responsible, &due,
		&meta, &t.MenuOrder, &t.CreatedAt, &t.ModifiedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if responsible.Valid {
		t.ResponsibleID = &responsible.Int64
	}
	if due.Valid {
		t.DueDate = &due.Time
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &t.Meta); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

// encodeMeta returns text so lib/pq does not send it as bytea.
func encodeMeta(meta map[string]string) (string, error) {
	if meta == nil {
		return "{}", nil
	}
	b, err := json.Marshal(meta)
	return string(b), err
}

func (s *PostgresTenantStore) CreateTask(ctx context.Context, task *models.Task) error {
	meta, err := encodeMeta(task.Meta)
	if err != nil {
		return err
	}
	now := time.Now()
	row := s.conn.QueryRowContext(ctx, `INSERT INTO `+s.table("tasks")+`
		(title, content, excerpt, author_id, responsible_id, due_date, meta, menu_order, created_at, modified_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING id, created_at, modified_at`,
		task.Title, task.Content, task.Excerpt, task.AuthorID, task.ResponsibleID, task.DueDate, meta, task.MenuOrder, now)
	return row.Scan(&task.ID, &task.CreatedAt, &task.ModifiedAt)
}

func (s *PostgresTenantStore) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM `+s.table("tasks")+` WHERE id = $1`, id)
	t, err := scanTask(row)
	if err != nil {
		return nil, schemaErr(err)
	}
	return t, nil
}

func (s *PostgresTenantStore) ListTasks(ctx context.Context) ([]models.Task, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT `+taskColumns+` FROM `+s.table("tasks")+` ORDER BY menu_order, id`)
	if err != nil {
		return nil, schemaErr(err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// UpdateTask stores the previous title, content and excerpt as a revision
// before overwriting the task.
func (s *PostgresTenantStore) UpdateTask(ctx context.Context, task *models.Task) error {
	meta, err := encodeMeta(task.Meta)
	if err != nil {
		return err
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `INSERT INTO `+s.table("task_revisions")+` (task_id, title, content, excerpt)
		SELECT id, title, content, excerpt FROM `+s.table("tasks")+` WHERE id = $1`, task.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	row := tx.QueryRowContext(ctx, `UPDATE `+s.table("tasks")+` SET
			title = $2, content = $3, excerpt = $4, due_date = $5, meta = $6, menu_order = $7,
			modified_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING modified_at`,
		task.ID, task.Title, task.Content, task.Excerpt, task.DueDate, meta, task.MenuOrder)
	if err := row.Scan(&task.ModifiedAt); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PostgresTenantStore) DeleteTask(ctx context.Context, id int64) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM `+s.table("tasks")+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresTenantStore) Revisions(ctx context.Context, taskID int64) ([]models.Revision, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT id, task_id, title, content, excerpt, created_at
		FROM `+s.table("task_revisions")+` WHERE task_id = $1 ORDER BY id`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	revisions := []models.Revision{}
	for rows.Next() {
		var r models.Revision
		if err := rows.Scan(&r.ID, &r.TaskID, &r.Title, &r.Content, &r.Excerpt, &r.CreatedAt); err != nil {
			return nil, err
		}
		revisions = append(revisions, r)
	}
	return revisions, rows.Err()
}

func (s *PostgresTenantStore) SetResponsible(ctx context.Context, taskID int64, userID *int64) error {
	res, err := s.conn.ExecContext(ctx, `UPDATE `+s.table("tasks")+` SET responsible_id = $2 WHERE id = $1`, taskID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTerms(rows *sql.Rows) ([]models.Term, error) {
	defer rows.Close()

	terms := []models.Term{}
	for rows.Next() {
		var (
			t      models.Term
			parent sql.NullInt64
		)
		if err := rows.Scan(&t.ID, &t.Taxonomy, &t.Name, &t.Slug, &parent); err != nil {
			return nil, err
		}
		if parent.Valid {
			t.ParentID = &parent.Int64
		}
		terms = append(terms, t)
	}
	return terms, rows.Err()
}

func (s *PostgresTenantStore) Terms(ctx context.Context, taxonomy string) ([]models.Term, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT id, taxonomy, name, slug, parent_id
		FROM `+s.table("terms")+` WHERE taxonomy = $1 ORDER BY slug`, taxonomy)
	if err != nil {
		return nil, schemaErr(err)
	}
	return scanTerms(rows)
}

func (s *PostgresTenantStore) TaskTerms(ctx context.Context, taskID int64, taxonomy string) ([]models.Term, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT t.id, t.taxonomy, t.name, t.slug, t.parent_id
		FROM `+s.table("terms")+` t
		JOIN `+s.table("task_terms")+` tt ON tt.term_id = t.id
		WHERE tt.task_id = $1 AND t.taxonomy = $2
		ORDER BY t.name, t.id`, taskID, taxonomy)
	if err != nil {
		return nil, err
	}
	return scanTerms(rows)
}

func (s *PostgresTenantStore) AssignTermsByName(ctx context.Context, taskID int64, taxonomy string, names []string) ([]models.Term, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM `+s.table("tasks")+` WHERE id = $1)`, taskID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}

	terms := make([]models.Term, 0, len(names))
	for _, name := range uniqueNames(names) {
		slug := models.Slugify(name)
		if _, err := tx.ExecContext(ctx, `INSERT INTO `+s.table("terms")+` (taxonomy, name, slug)
			VALUES ($1, $2, $3) ON CONFLICT (taxonomy, slug) DO NOTHING`, taxonomy, name, slug); err != nil {
			return nil, err
		}

		var (
			t      models.Term
			parent sql.NullInt64
		)
		err := tx.QueryRowContext(ctx, `SELECT id, taxonomy, name, slug, parent_id FROM `+s.table("terms")+`
			WHERE taxonomy = $1 AND slug = $2`, taxonomy, slug).Scan(&t.ID, &t.Taxonomy, &t.Name, &t.Slug, &parent)
		if err != nil {
			return nil, err
		}
		if parent.Valid {
			t.ParentID = &parent.Int64
		}
		terms = append(terms, t)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+s.table("task_terms")+`
		WHERE task_id = $1 AND term_id IN (SELECT id FROM `+s.table("terms")+` WHERE taxonomy = $2)`,
		taskID, taxonomy); err != nil {
		return nil, err
	}
	for _, t := range terms {
		if _, err := tx.ExecContext(ctx, `INSERT INTO `+s.table("task_terms")+` (task_id, term_id)
			VALUES ($1, $2) ON CONFLICT DO NOTHING`, taskID, t.ID); err != nil {
			return nil, err
		}
	}

	return terms, tx.Commit()
}
