package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-engine/internal/db"
	"github.com/sells-group/lead-engine/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS contacts (
	seq           BIGSERIAL,
	id            TEXT PRIMARY KEY,
	event_id      TEXT NOT NULL DEFAULT '',
	name          TEXT NOT NULL DEFAULT '',
	email         TEXT NOT NULL DEFAULT '',
	company       TEXT NOT NULL DEFAULT '',
	title         TEXT NOT NULL DEFAULT '',
	phone         TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT 'PENDING',
	status_reason TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_contacts_event_status ON contacts(event_id, status);
CREATE INDEX IF NOT EXISTS idx_contacts_seq ON contacts(seq);

CREATE TABLE IF NOT EXISTS company_profiles (
	contact_id TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	source     TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS personas (
	seq         BIGSERIAL,
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	is_default  BOOLEAN NOT NULL DEFAULT false,
	criteria    JSONB NOT NULL,
	weights     JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS persona_matches (
	contact_id    TEXT NOT NULL,
	persona_id    TEXT NOT NULL,
	position      INTEGER NOT NULL,
	fit_score     DOUBLE PRECISION NOT NULL,
	tier          TEXT NOT NULL,
	data          JSONB NOT NULL,
	calculated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (contact_id, persona_id)
);

CREATE INDEX IF NOT EXISTS idx_persona_matches_persona ON persona_matches(persona_id);

CREATE TABLE IF NOT EXISTS meddic_scores (
	contact_id    TEXT PRIMARY KEY,
	overall_score DOUBLE PRECISION NOT NULL,
	status        TEXT NOT NULL,
	data          JSONB NOT NULL,
	calculated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS report_refs (
	id         TEXT PRIMARY KEY,
	contact_id TEXT NOT NULL,
	persona_id TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_report_refs_persona ON report_refs(persona_id);
`

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// --- Contacts ---

var contactColumnList = []string{
	"id", "event_id", "name", "email", "company", "title", "phone",
	"status", "status_reason", "created_at", "updated_at",
}

func (s *PostgresStore) CreateContact(ctx context.Context, c *model.Contact) error {
	prepareContact(c, time.Now().UTC())
	_, err := s.pool.Exec(ctx,
		`INSERT INTO contacts (`+contactColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		contactArgs(c)...,
	)
	return eris.Wrapf(err, "postgres: insert contact %s", c.ID)
}

// ImportContacts bulk-loads contacts with COPY. Contacts whose ID already
// exists are skipped.
func (s *PostgresStore) ImportContacts(ctx context.Context, contacts []model.Contact) (int, error) {
	now := time.Now().UTC()
	rows := make([][]any, len(contacts))
	for i := range contacts {
		prepareContact(&contacts[i], now)
		rows[i] = contactArgs(&contacts[i])
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "contacts",
		Columns:      contactColumnList,
		ConflictKeys: []string{"id"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: import contacts")
	}
	return int(n), nil
}

func (s *PostgresStore) GetContact(ctx context.Context, id string) (*model.Contact, error) {
	c, err := scanContact(s.pool.QueryRow(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "contact %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get contact %s", id)
	}
	return c, nil
}

func (s *PostgresStore) ListContacts(ctx context.Context, filter ContactFilter) ([]model.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE true`
	args := []any{}
	argIdx := 1

	if filter.EventID != "" {
		query += fmt.Sprintf(` AND event_id = $%d`, argIdx)
		args = append(args, filter.EventID)
		argIdx++
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		query += fmt.Sprintf(` AND status = ANY($%d)`, argIdx)
		args = append(args, statuses)
		argIdx++
	}
	query += ` ORDER BY seq`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argIdx)
		args = append(args, filter.Limit)
		argIdx++
		if filter.Offset > 0 {
			query += fmt.Sprintf(` OFFSET $%d`, argIdx)
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list contacts")
	}
	defer rows.Close()

	var out []model.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan contact")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list contacts iterate")
}

func (s *PostgresStore) UpdateContactStatus(ctx context.Context, id string, status model.EnrichmentStatus, reason string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE contacts SET status = $1, status_reason = $2, updated_at = $3 WHERE id = $4`,
		string(status), reason, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update contact status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "contact %s", id)
	}
	return nil
}

// --- Profiles ---

func (s *PostgresStore) SaveProfile(ctx context.Context, contactID string, p *model.EnrichedCompany) error {
	data, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal profile")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO company_profiles (contact_id, data, source, updated_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (contact_id) DO UPDATE SET data = EXCLUDED.data, source = EXCLUDED.source, updated_at = EXCLUDED.updated_at`,
		contactID, data, string(p.EnrichmentSource), time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: save profile %s", contactID)
}

func (s *PostgresStore) GetProfile(ctx context.Context, contactID string) (*model.EnrichedCompany, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM company_profiles WHERE contact_id = $1`, contactID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "profile %s", contactID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get profile %s", contactID)
	}
	var p model.EnrichedCompany
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal profile")
	}
	return &p, nil
}

// --- Personas ---

func (s *PostgresStore) CreatePersona(ctx context.Context, p *model.Persona) error {
	criteria, weights, err := marshalPersona(p)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO personas (`+personaColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.Name, p.Description, p.IsDefault, criteria, weights, p.CreatedAt, p.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: insert persona %s", p.ID)
}

func (s *PostgresStore) UpdatePersona(ctx context.Context, p *model.Persona) error {
	criteria, weights, err := marshalPersona(p)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE personas SET name = $1, description = $2, criteria = $3, weights = $4, updated_at = $5 WHERE id = $6`,
		p.Name, p.Description, criteria, weights, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update persona %s", p.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "persona %s", p.ID)
	}
	return nil
}

func (s *PostgresStore) GetPersona(ctx context.Context, id string) (*model.Persona, error) {
	p, err := scanPersona(s.pool.QueryRow(ctx, `SELECT `+personaColumns+` FROM personas WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "persona %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get persona %s", id)
	}
	return p, nil
}

func (s *PostgresStore) ListPersonas(ctx context.Context) ([]model.Persona, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+personaColumns+` FROM personas ORDER BY seq`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list personas")
	}
	defer rows.Close()

	var out []model.Persona
	for rows.Next() {
		p, err := scanPersona(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan persona")
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list personas iterate")
}

func (s *PostgresStore) DeletePersona(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM personas WHERE id = $1
		   AND NOT EXISTS (SELECT 1 FROM persona_matches WHERE persona_id = $1)
		   AND NOT EXISTS (SELECT 1 FROM report_refs WHERE persona_id = $1)`,
		id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete persona %s", id)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM personas WHERE id = $1)`, id).Scan(&exists); err != nil {
		return eris.Wrapf(err, "postgres: check persona %s", id)
	}
	if exists {
		return eris.Wrapf(ErrReferenced, "persona %s", id)
	}
	return eris.Wrapf(ErrNotFound, "persona %s", id)
}

func (s *PostgresStore) CountPersonaReferences(ctx context.Context, id string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT (SELECT COUNT(*) FROM persona_matches WHERE persona_id = $1) +
		        (SELECT COUNT(*) FROM report_refs WHERE persona_id = $1)`,
		id,
	).Scan(&n)
	return n, eris.Wrapf(err, "postgres: count persona references %s", id)
}

// --- Scores ---

var matchColumnList = []string{"contact_id", "persona_id", "position", "fit_score", "tier", "data", "calculated_at"}

// ReplaceMatches swaps all matches of a contact in one transaction.
func (s *PostgresStore) ReplaceMatches(ctx context.Context, contactID string, matches []model.PersonaMatch) error {
	rows := make([][]any, len(matches))
	for i, m := range matches {
		data, err := json.Marshal(m)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal match")
		}
		rows[i] = []any{contactID, m.PersonaID, int32(i), m.FitScore, string(m.Tier), data, m.CalculatedAt}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: replace matches: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM persona_matches WHERE contact_id = $1`, contactID); err != nil {
		return eris.Wrapf(err, "postgres: clear matches %s", contactID)
	}
	if _, err := db.CopyFrom(ctx, tx, "persona_matches", matchColumnList, rows); err != nil {
		return eris.Wrapf(err, "postgres: insert matches %s", contactID)
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: replace matches: commit")
}

func (s *PostgresStore) ListMatches(ctx context.Context, contactID string) ([]model.PersonaMatch, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM persona_matches WHERE contact_id = $1 ORDER BY position`, contactID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list matches %s", contactID)
	}
	defer rows.Close()

	var out []model.PersonaMatch
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan match")
		}
		var m model.PersonaMatch
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal match")
		}
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list matches iterate")
}

func (s *PostgresStore) SaveMEDDIC(ctx context.Context, m *model.MEDDICScore) error {
	data, err := json.Marshal(m)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal meddic")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO meddic_scores (contact_id, overall_score, status, data, calculated_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (contact_id) DO UPDATE SET overall_score = EXCLUDED.overall_score, status = EXCLUDED.status,
		 data = EXCLUDED.data, calculated_at = EXCLUDED.calculated_at`,
		m.BadgeScanID, m.OverallScore, string(m.QualificationStatus), data, m.CalculatedAt,
	)
	return eris.Wrapf(err, "postgres: save meddic %s", m.BadgeScanID)
}

func (s *PostgresStore) GetMEDDIC(ctx context.Context, contactID string) (*model.MEDDICScore, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM meddic_scores WHERE contact_id = $1`, contactID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "meddic %s", contactID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get meddic %s", contactID)
	}
	var m model.MEDDICScore
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal meddic")
	}
	return &m, nil
}

// --- Reports ---

func (s *PostgresStore) CreateReportRef(ctx context.Context, r *model.ReportRef) error {
	prepareReportRef(r, time.Now().UTC())
	_, err := s.pool.Exec(ctx,
		`INSERT INTO report_refs (id, contact_id, persona_id, created_at) VALUES ($1, $2, $3, $4)`,
		r.ID, r.ContactID, r.PersonaID, r.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert report ref %s", r.ID)
}
