package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/mikey/mbox-contacts/internal/core"
	"go.uber.org/zap"
)

// SQLStore is a SQL implementation of core.Store
type SQLStore struct {
	db      *sqlx.DB
	dialect Dialect
	logger  *zap.Logger
}

// NewSQLStore opens the database and creates the schema if needed
func NewSQLStore(dialect Dialect, dsn string, logger *zap.Logger) (*SQLStore, error) {
	db, err := sqlx.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialect.Name, err)
	}
	if dialect.SingleConnection {
		db.SetMaxOpenConns(1)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", dialect.Name, err)
	}

	for _, stmt := range dialect.Schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	logger.Debug("Opened store", zap.String("dialect", dialect.Name))
	return &SQLStore{
		db:      db,
		dialect: dialect,
		logger:  logger,
	}, nil
}

// NewSQLiteStore opens a SQLite store at path
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLStore, error) {
	return NewSQLStore(SQLite, path, logger)
}

type occurrenceRow struct {
	ID          int64         `db:"id"`
	RunID       string        `db:"run_id"`
	Source      string        `db:"source"`
	Email       string        `db:"email"`
	DisplayName string        `db:"display_name"`
	FirstName   string        `db:"first_name"`
	LastName    string        `db:"last_name"`
	Name        string        `db:"name"`
	HeaderRole  string        `db:"header_role"`
	OccurredAt  sql.NullInt64 `db:"occurred_at"`
	Markers     string        `db:"markers"`
	RawHeaders  string        `db:"raw_headers"`
}

const occurrenceColumns = `id, run_id, source, email, display_name, first_name, last_name, name,
	header_role, occurred_at, markers, raw_headers`

func (r occurrenceRow) toOccurrence() (core.Occurrence, error) {
	markers, err := core.ParseMarkerSet(r.Markers)
	if err != nil {
		return core.Occurrence{}, fmt.Errorf("occurrence %d: %w", r.ID, err)
	}
	role, err := core.ParseHeaderRole(r.HeaderRole)
	if err != nil {
		return core.Occurrence{}, fmt.Errorf("occurrence %d: %w", r.ID, err)
	}
	var keys []string
	if r.RawHeaders != "" {
		keys = strings.Split(r.RawHeaders, ",")
	}
	return core.Occurrence{
		ID:            r.ID,
		RunID:         r.RunID,
		Source:        r.Source,
		Email:         r.Email,
		DisplayName:   r.DisplayName,
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Name:          r.Name,
		Role:          role,
		OccurredAt:    fromUnix(r.OccurredAt),
		Markers:       markers,
		RawHeaderKeys: keys,
	}, nil
}

func toUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func fromUnix(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}

// InsertOccurrences appends occurrences in one transaction
func (s *SQLStore) InsertOccurrences(ctx context.Context, occurrences []core.Occurrence) error {
	if len(occurrences) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(`
		INSERT INTO occurrences (
			run_id, source, email, display_name, first_name, last_name, name,
			header_role, occurred_at, markers, raw_headers
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for _, occ := range occurrences {
		_, err := stmt.ExecContext(ctx,
			occ.RunID, occ.Source, occ.Email, occ.DisplayName, occ.FirstName, occ.LastName, occ.Name,
			string(occ.Role), toUnix(occ.OccurredAt), occ.Markers.String(), strings.Join(occ.RawHeaderKeys, ","),
		)
		if err != nil {
			return fmt.Errorf("inserting occurrence of %s: %w", occ.Email, err)
		}
	}

	return tx.Commit()
}

// UpdateMarkers rewrites the markers of every occurrence of the given emails
// in one transaction
func (s *SQLStore) UpdateMarkers(ctx context.Context, emails []string, update func(core.MarkerSet) core.MarkerSet) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	selectQuery := tx.Rebind(`SELECT id, markers FROM occurrences WHERE email = ? ORDER BY id` + s.dialect.LockClause)
	updateQuery := tx.Rebind(`UPDATE occurrences SET markers = ? WHERE id = ?`)

	changed := 0
	for _, email := range emails {
		var rows []struct {
			ID      int64  `db:"id"`
			Markers string `db:"markers"`
		}
		if err := tx.SelectContext(ctx, &rows, selectQuery, email); err != nil {
			return 0, fmt.Errorf("selecting occurrences of %s: %w", email, err)
		}
		for _, row := range rows {
			current, err := core.ParseMarkerSet(row.Markers)
			if err != nil {
				return 0, fmt.Errorf("occurrence %d: %w", row.ID, err)
			}
			next := update(current)
			if next == current {
				continue
			}
			if _, err := tx.ExecContext(ctx, updateQuery, next.String(), row.ID); err != nil {
				return 0, fmt.Errorf("updating markers of occurrence %d: %w", row.ID, err)
			}
			changed++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing marker update: %w", err)
	}
	return changed, nil
}

// AllOccurrences returns every occurrence in insertion order
func (s *SQLStore) AllOccurrences(ctx context.Context) ([]core.Occurrence, error) {
	return s.queryOccurrences(ctx, `SELECT `+occurrenceColumns+` FROM occurrences ORDER BY id`)
}

// OccurrencesByEmail returns the occurrences of one email in insertion order
func (s *SQLStore) OccurrencesByEmail(ctx context.Context, email string) ([]core.Occurrence, error) {
	return s.queryOccurrences(ctx, `SELECT `+occurrenceColumns+` FROM occurrences WHERE email = ? ORDER BY id`, email)
}

func (s *SQLStore) queryOccurrences(ctx context.Context, query string, args ...interface{}) ([]core.Occurrence, error) {
	var rows []occurrenceRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query occurrences: %w", err)
	}

	out := make([]core.Occurrence, 0, len(rows))
	for _, row := range rows {
		occ, err := row.toOccurrence()
		if err != nil {
			return nil, err
		}
		out = append(out, occ)
	}
	return out, nil
}

// AggregateByEmail groups occurrences by email, ordered by email
func (s *SQLStore) AggregateByEmail(ctx context.Context) ([]core.EmailAggregate, error) {
	var rows []struct {
		Email       string        `db:"email"`
		Occurrences int           `db:"occurrences"`
		FirstAt     sql.NullInt64 `db:"first_at"`
		LastAt      sql.NullInt64 `db:"last_at"`
	}
	err := s.db.SelectContext(ctx, &rows, `
		SELECT email,
			COUNT(*) AS occurrences,
			MIN(occurred_at) AS first_at,
			MAX(occurred_at) AS last_at
		FROM occurrences
		GROUP BY email
		ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate occurrences: %w", err)
	}

	out := make([]core.EmailAggregate, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.EmailAggregate{
			Email:           row.Email,
			Occurrences:     row.Occurrences,
			FirstOccurrence: fromUnix(row.FirstAt),
			LastOccurrence:  fromUnix(row.LastAt),
		})
	}
	return out, nil
}

type contactRow struct {
	Email       string `db:"email"`
	FirstName   string `db:"first_name"`
	LastName    string `db:"last_name"`
	DisplayName string `db:"display_name"`
	Source      string `db:"source"`
}

func (r contactRow) toContact() core.CanonicalContact {
	return core.CanonicalContact{
		Email:       r.Email,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		DisplayName: r.DisplayName,
		Source:      r.Source,
	}
}

const contactColumns = `email, first_name, last_name, display_name, source`

// GetContact returns the contact for an email
func (s *SQLStore) GetContact(ctx context.Context, email string) (*core.CanonicalContact, error) {
	var row contactRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT `+contactColumns+` FROM contacts WHERE email = ?`), email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query contact: %w", err)
	}
	c := row.toContact()
	return &c, nil
}

// MergeContact reads, merges and writes one contact in a transaction
func (s *SQLStore) MergeContact(ctx context.Context, email string, merge core.MergeFunc) (core.MergeOutcome, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return core.MergeUnchanged, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var existing *core.CanonicalContact
	var row contactRow
	err = tx.GetContext(ctx, &row, tx.Rebind(`SELECT `+contactColumns+` FROM contacts WHERE email = ?`+s.dialect.LockClause), email)
	switch {
	case err == nil:
		c := row.toContact()
		existing = &c
	case !errors.Is(err, sql.ErrNoRows):
		return core.MergeUnchanged, fmt.Errorf("failed to query contact: %w", err)
	}

	merged, outcome := merge(existing)
	now := time.Now().Unix()
	switch outcome {
	case core.MergeCreated:
		_, err = tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO contacts (email, first_name, last_name, display_name, source, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`),
			email, merged.FirstName, merged.LastName, merged.DisplayName, merged.Source, now, now)
	case core.MergeUpdated:
		_, err = tx.ExecContext(ctx, tx.Rebind(`
			UPDATE contacts
			SET first_name = ?, last_name = ?, display_name = ?, source = ?, updated_at = ?
			WHERE email = ?`),
			merged.FirstName, merged.LastName, merged.DisplayName, merged.Source, now, email)
	default:
		return outcome, nil
	}
	if err != nil {
		return core.MergeUnchanged, fmt.Errorf("failed to write contact %s: %w", email, err)
	}

	if err := tx.Commit(); err != nil {
		return core.MergeUnchanged, fmt.Errorf("committing contact %s: %w", email, err)
	}
	return outcome, nil
}

// AllContacts returns every contact ordered by email
func (s *SQLStore) AllContacts(ctx context.Context) ([]core.CanonicalContact, error) {
	var rows []contactRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+contactColumns+` FROM contacts ORDER BY email`); err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	out := make([]core.CanonicalContact, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toContact())
	}
	return out, nil
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database", zap.String("dialect", s.dialect.Name), zap.Error(err))
		return err
	}
	return nil
}
