package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/lead-engine/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// Pragmas are per connection and writes serialize anyway.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS contacts (
	seq           INTEGER PRIMARY KEY AUTOINCREMENT,
	id            TEXT NOT NULL UNIQUE,
	event_id      TEXT NOT NULL DEFAULT '',
	name          TEXT NOT NULL DEFAULT '',
	email         TEXT NOT NULL DEFAULT '',
	company       TEXT NOT NULL DEFAULT '',
	title         TEXT NOT NULL DEFAULT '',
	phone         TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT 'PENDING',
	status_reason TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_contacts_event_status ON contacts(event_id, status);

CREATE TABLE IF NOT EXISTS company_profiles (
	contact_id TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	source     TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS personas (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT NOT NULL UNIQUE,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	is_default  INTEGER NOT NULL DEFAULT 0,
	criteria    TEXT NOT NULL,
	weights     TEXT NOT NULL,
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS persona_matches (
	contact_id    TEXT NOT NULL,
	persona_id    TEXT NOT NULL,
	position      INTEGER NOT NULL,
	fit_score     REAL NOT NULL,
	tier          TEXT NOT NULL,
	data          TEXT NOT NULL,
	calculated_at DATETIME NOT NULL,
	PRIMARY KEY (contact_id, persona_id)
);

CREATE INDEX IF NOT EXISTS idx_persona_matches_persona ON persona_matches(persona_id);

CREATE TABLE IF NOT EXISTS meddic_scores (
	contact_id    TEXT PRIMARY KEY,
	overall_score REAL NOT NULL,
	status        TEXT NOT NULL,
	data          TEXT NOT NULL,
	calculated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS report_refs (
	id         TEXT PRIMARY KEY,
	contact_id TEXT NOT NULL,
	persona_id TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_report_refs_persona ON report_refs(persona_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Contacts ---

const contactColumns = `id, event_id, name, email, company, title, phone, status, status_reason, created_at, updated_at`

func (s *SQLiteStore) CreateContact(ctx context.Context, c *model.Contact) error {
	prepareContact(c, time.Now().UTC())
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contacts (`+contactColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		contactArgs(c)...,
	)
	return eris.Wrapf(err, "sqlite: insert contact %s", c.ID)
}

func (s *SQLiteStore) ImportContacts(ctx context.Context, contacts []model.Contact) (int, error) {
	if len(contacts) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: import contacts: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO contacts (`+contactColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: import contacts: prepare")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	inserted := 0
	for i := range contacts {
		prepareContact(&contacts[i], now)
		res, err := stmt.ExecContext(ctx, contactArgs(&contacts[i])...)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: import contact %s", contacts[i].ID)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: import contacts: commit")
	}
	return inserted, nil
}

func (s *SQLiteStore) GetContact(ctx context.Context, id string) (*model.Contact, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = ?`, id)
	c, err := scanContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "contact %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get contact %s", id)
	}
	return c, nil
}

func (s *SQLiteStore) ListContacts(ctx context.Context, filter ContactFilter) ([]model.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE 1=1`
	var args []any

	if filter.EventID != "" {
		query += ` AND event_id = ?`
		args = append(args, filter.EventID)
	}
	if len(filter.Statuses) > 0 {
		query += ` AND status IN (` + strings.TrimSuffix(strings.Repeat("?, ", len(filter.Statuses)), ", ") + `)`
		for _, st := range filter.Statuses {
			args = append(args, string(st))
		}
	}
	query += ` ORDER BY seq`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list contacts")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan contact")
		}
		out = append(out, *c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list contacts iterate")
}

func (s *SQLiteStore) UpdateContactStatus(ctx context.Context, id string, status model.EnrichmentStatus, reason string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE contacts SET status = ?, status_reason = ?, updated_at = ? WHERE id = ?`,
		string(status), reason, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update contact status %s", id)
	}
	return checkRowsAffected(res, "contact", id)
}

// --- Profiles ---

func (s *SQLiteStore) SaveProfile(ctx context.Context, contactID string, p *model.EnrichedCompany) error {
	data, err := json.Marshal(p)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal profile")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO company_profiles (contact_id, data, source, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(contact_id) DO UPDATE SET data = excluded.data, source = excluded.source, updated_at = excluded.updated_at`,
		contactID, string(data), string(p.EnrichmentSource), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: save profile %s", contactID)
}

func (s *SQLiteStore) GetProfile(ctx context.Context, contactID string) (*model.EnrichedCompany, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM company_profiles WHERE contact_id = ?`, contactID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "profile %s", contactID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get profile %s", contactID)
	}
	var p model.EnrichedCompany
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal profile")
	}
	return &p, nil
}

// --- Personas ---

const personaColumns = `id, name, description, is_default, criteria, weights, created_at, updated_at`

func (s *SQLiteStore) CreatePersona(ctx context.Context, p *model.Persona) error {
	criteria, weights, err := marshalPersona(p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO personas (`+personaColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.IsDefault, string(criteria), string(weights), p.CreatedAt, p.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert persona %s", p.ID)
}

func (s *SQLiteStore) UpdatePersona(ctx context.Context, p *model.Persona) error {
	criteria, weights, err := marshalPersona(p)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE personas SET name = ?, description = ?, criteria = ?, weights = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.Description, string(criteria), string(weights), p.UpdatedAt, p.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update persona %s", p.ID)
	}
	return checkRowsAffected(res, "persona", p.ID)
}

func (s *SQLiteStore) GetPersona(ctx context.Context, id string) (*model.Persona, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+personaColumns+` FROM personas WHERE id = ?`, id)
	p, err := scanPersona(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "persona %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get persona %s", id)
	}
	return p, nil
}

func (s *SQLiteStore) ListPersonas(ctx context.Context) ([]model.Persona, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+personaColumns+` FROM personas ORDER BY seq`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list personas")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Persona
	for rows.Next() {
		p, err := scanPersona(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan persona")
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list personas iterate")
}

func (s *SQLiteStore) DeletePersona(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM personas WHERE id = ?
		   AND NOT EXISTS (SELECT 1 FROM persona_matches WHERE persona_id = ?)
		   AND NOT EXISTS (SELECT 1 FROM report_refs WHERE persona_id = ?)`,
		id, id, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete persona %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n > 0 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM personas WHERE id = ?)`, id).Scan(&exists); err != nil {
		return eris.Wrapf(err, "sqlite: check persona %s", id)
	}
	if exists {
		return eris.Wrapf(ErrReferenced, "persona %s", id)
	}
	return eris.Wrapf(ErrNotFound, "persona %s", id)
}

func (s *SQLiteStore) CountPersonaReferences(ctx context.Context, id string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM persona_matches WHERE persona_id = ?) +
		        (SELECT COUNT(*) FROM report_refs WHERE persona_id = ?)`,
		id, id,
	).Scan(&n)
	return n, eris.Wrapf(err, "sqlite: count persona references %s", id)
}

// --- Scores ---

func (s *SQLiteStore) ReplaceMatches(ctx context.Context, contactID string, matches []model.PersonaMatch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: replace matches: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM persona_matches WHERE contact_id = ?`, contactID); err != nil {
		return eris.Wrapf(err, "sqlite: clear matches %s", contactID)
	}
	for i, m := range matches {
		data, err := json.Marshal(m)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal match")
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO persona_matches (contact_id, persona_id, position, fit_score, tier, data, calculated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			contactID, m.PersonaID, i, m.FitScore, string(m.Tier), string(data), m.CalculatedAt,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert match %s/%s", contactID, m.PersonaID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: replace matches: commit")
}

func (s *SQLiteStore) ListMatches(ctx context.Context, contactID string) ([]model.PersonaMatch, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM persona_matches WHERE contact_id = ? ORDER BY position`, contactID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list matches %s", contactID)
	}
	defer rows.Close() //nolint:errcheck

	var out []model.PersonaMatch
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan match")
		}
		var m model.PersonaMatch
		if err := json.Unmarshal([]byte(data), &m); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal match")
		}
		out = append(out, m)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list matches iterate")
}

func (s *SQLiteStore) SaveMEDDIC(ctx context.Context, m *model.MEDDICScore) error {
	data, err := json.Marshal(m)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal meddic")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO meddic_scores (contact_id, overall_score, status, data, calculated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(contact_id) DO UPDATE SET overall_score = excluded.overall_score, status = excluded.status,
		 data = excluded.data, calculated_at = excluded.calculated_at`,
		m.BadgeScanID, m.OverallScore, string(m.QualificationStatus), string(data), m.CalculatedAt,
	)
	return eris.Wrapf(err, "sqlite: save meddic %s", m.BadgeScanID)
}

func (s *SQLiteStore) GetMEDDIC(ctx context.Context, contactID string) (*model.MEDDICScore, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM meddic_scores WHERE contact_id = ?`, contactID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "meddic %s", contactID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get meddic %s", contactID)
	}
	var m model.MEDDICScore
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal meddic")
	}
	return &m, nil
}

// --- Reports ---

func (s *SQLiteStore) CreateReportRef(ctx context.Context, r *model.ReportRef) error {
	prepareReportRef(r, time.Now().UTC())
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO report_refs (id, contact_id, persona_id, created_at) VALUES (?, ?, ?, ?)`,
		r.ID, r.ContactID, r.PersonaID, r.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert report ref %s", r.ID)
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanContact(row scannable) (*model.Contact, error) {
	var c model.Contact
	err := row.Scan(&c.ID, &c.EventID, &c.Name, &c.Email, &c.Company, &c.Title, &c.Phone,
		&c.Status, &c.StatusReason, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanPersona(row scannable) (*model.Persona, error) {
	var p model.Persona
	var criteria, weights []byte
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.IsDefault, &criteria, &weights, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if err := unmarshalPersona(&p, criteria, weights); err != nil {
		return nil, err
	}
	return &p, nil
}

// prepareContact fills the ID, status and timestamps of a new contact.
func prepareContact(c *model.Contact, now time.Time) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = model.EnrichmentPending
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
}

func contactArgs(c *model.Contact) []any {
	return []any{c.ID, c.EventID, c.Name, c.Email, c.Company, c.Title, c.Phone,
		string(c.Status), c.StatusReason, c.CreatedAt, c.UpdatedAt}
}

func prepareReportRef(r *model.ReportRef, now time.Time) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
}

func marshalPersona(p *model.Persona) (criteria, weights []byte, err error) {
	if criteria, err = json.Marshal(p.Criteria); err != nil {
		return nil, nil, eris.Wrap(err, "store: marshal persona criteria")
	}
	if weights, err = json.Marshal(p.Weights); err != nil {
		return nil, nil, eris.Wrap(err, "store: marshal persona weights")
	}
	return criteria, weights, nil
}

func unmarshalPersona(p *model.Persona, criteria, weights []byte) error {
	if err := json.Unmarshal(criteria, &p.Criteria); err != nil {
		return eris.Wrap(err, "store: unmarshal persona criteria")
	}
	if err := json.Unmarshal(weights, &p.Weights); err != nil {
		return eris.Wrap(err, "store: unmarshal persona weights")
	}
	return nil
}
