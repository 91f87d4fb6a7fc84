package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/abrezinsky/munreg/internal/models"
)

// Repository provides data access methods
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new Repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// SQLite works best with a single connection. It also serializes every
	// conditional update, which the seat checks below rely on.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	repo := NewWithDB(db)
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

// NewWithDB wraps an already opened database without running migrations.
// Used by tests that drive the repository through sqlmock.
func NewWithDB(db *sql.DB) *Repository {
	return &Repository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// DB returns the underlying database connection
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the database connection
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// migrate runs database migrations
func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS committees (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			countries TEXT NOT NULL,
			display_order INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS registrations (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL,
			profile TEXT NOT NULL,
			preferences TEXT NOT NULL,
			payment_status TEXT NOT NULL DEFAULT 'Unverified',
			assignment_status TEXT NOT NULL DEFAULT 'Unassigned',
			assigned_committee_id TEXT,
			assigned_country TEXT,
			version INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			CHECK (payment_status IN ('Unverified', 'Verified')),
			CHECK (
				(assignment_status = 'Assigned' AND assigned_committee_id IS NOT NULL AND assigned_country IS NOT NULL)
				OR (assignment_status = 'Unassigned' AND assigned_committee_id IS NULL AND assigned_country IS NULL)
			)
		)`,
		`CREATE TABLE IF NOT EXISTS mail_outbox (
			id TEXT PRIMARY KEY,
			recipient_refs TEXT NOT NULL,
			template_name TEXT NOT NULL,
			template_data TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'queued',
			created_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_registrations_seat
			ON registrations(assigned_committee_id, assigned_country)
			WHERE assignment_status = 'Assigned'`,
		`CREATE INDEX IF NOT EXISTS idx_registrations_email ON registrations(email)`,
		`CREATE INDEX IF NOT EXISTS idx_mail_created ON mail_outbox(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return err
		}
	}
	return nil
}

// ==================== Committee Methods ====================

// GetCommittee retrieves a committee by id
func (r *Repository) GetCommittee(ctx context.Context, id string) (*models.Committee, error) {
	var c models.Committee
	var countriesJSON string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, countries FROM committees WHERE id = ?`, id).Scan(&c.ID, &c.Name, &countriesJSON)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(countriesJSON), &c.Countries); err != nil {
		return nil, fmt.Errorf("decode countries for committee %s: %w", id, err)
	}
	return &c, nil
}

// ListCommittees returns the catalog in display order
func (r *Repository) ListCommittees(ctx context.Context) ([]models.Committee, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, countries FROM committees ORDER BY display_order, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	committees := []models.Committee{}
	for rows.Next() {
		var c models.Committee
		var countriesJSON string
		if err := rows.Scan(&c.ID, &c.Name, &countriesJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(countriesJSON), &c.Countries); err != nil {
			return nil, fmt.Errorf("decode countries for committee %s: %w", c.ID, err)
		}
		committees = append(committees, c)
	}
	return committees, rows.Err()
}

// ReplaceCommittees swaps the whole catalog in one transaction. Display order
// follows slice order.
func (r *Repository) ReplaceCommittees(ctx context.Context, committees []models.Committee) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM committees`); err != nil {
		return err
	}
	for i, c := range committees {
		countries := c.Countries
		if countries == nil {
			countries = []string{}
		}
		countriesJSON, _ := json.Marshal(countries) // Marshal on []string never fails
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO committees (id, name, countries, display_order) VALUES (?, ?, ?, ?)`,
			c.ID, c.Name, string(countriesJSON), i+1); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ==================== Registration Methods ====================

const registrationColumns = `id, email, profile, preferences, payment_status, assignment_status,
	assigned_committee_id, assigned_country, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row rowScanner) (*models.Registration, error) {
	var reg models.Registration
	var profileJSON, prefsJSON, payment, assignment string
	var committeeID, country sql.NullString
	if err := row.Scan(&reg.ID, &reg.Email, &profileJSON, &prefsJSON, &payment, &assignment,
		&committeeID, &country, &reg.Version, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(profileJSON), &reg.Profile); err != nil {
		return nil, fmt.Errorf("decode profile for registration %s: %w", reg.ID, err)
	}
	if err := json.Unmarshal([]byte(prefsJSON), &reg.Preferences); err != nil {
		return nil, fmt.Errorf("decode preferences for registration %s: %w", reg.ID, err)
	}
	if reg.Preferences == nil {
		reg.Preferences = []models.Preference{}
	}
	reg.PaymentStatus = models.PaymentStatus(payment)
	reg.AssignmentStatus = models.AssignmentStatus(assignment)
	if committeeID.Valid {
		reg.AssignedCommitteeID = &committeeID.String
	}
	if country.Valid {
		reg.AssignedCountry = &country.String
	}
	return &reg, nil
}

// GetRegistration retrieves a registration by delegate id
func (r *Repository) GetRegistration(ctx context.Context, id string) (*models.Registration, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = ?`, id)
	reg, err := scanRegistration(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return reg, err
}

// ListRegistrations returns every registration ordered by creation time
func (r *Repository) ListRegistrations(ctx context.Context) ([]models.Registration, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+registrationColumns+` FROM registrations ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	regs := []models.Registration{}
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, *reg)
	}
	return regs, rows.Err()
}

// UpsertRegistration creates the registration, or replaces its email, profile
// and preferences. Payment and assignment fields are left untouched on update.
func (r *Repository) UpsertRegistration(ctx context.Context, input RegistrationInput) (bool, error) {
	profileJSON, err := json.Marshal(input.Profile)
	if err != nil {
		return false, err
	}
	prefs := input.Preferences
	if prefs == nil {
		prefs = []models.Preference{}
	}
	prefsJSON, err := json.Marshal(prefs)
	if err != nil {
		return false, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM registrations WHERE id = ?)`, input.ID).Scan(&exists); err != nil {
		return false, err
	}

	now := r.now()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO registrations (id, email, profile, preferences, payment_status, assignment_status, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, 'Unverified', 'Unassigned', 1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			profile = excluded.profile,
			preferences = excluded.preferences,
			version = registrations.version + 1,
			updated_at = excluded.updated_at`,
		input.ID, input.Email, string(profileJSON), string(prefsJSON), now, now); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}
	return !exists, nil
}

// ConditionalUpdate applies patch only if the stored version still equals
// expectedVersion. An assign patch additionally requires that no other
// registration holds the seat; that check runs inside the same UPDATE.
// Every successful write bumps the version.
//
// Errors: ErrNotFound, ErrVersionConflict, ErrSeatOccupied, or the
// patch validation errors.
func (r *Repository) ConditionalUpdate(ctx context.Context, id string, expectedVersion int64, patch Patch) error {
	if err := patch.Validate(); err != nil {
		return err
	}

	sets := []string{"version = version + 1", "updated_at = ?"}
	args := []any{r.now()}
	if patch.PaymentStatus != nil {
		sets = append(sets, "payment_status = ?")
		args = append(args, string(*patch.PaymentStatus))
	}
	switch {
	case patch.Assign != nil:
		sets = append(sets, "assignment_status = 'Assigned'", "assigned_committee_id = ?", "assigned_country = ?")
		args = append(args, patch.Assign.CommitteeID, patch.Assign.Country)
	case patch.Unassign:
		sets = append(sets, "assignment_status = 'Unassigned'", "assigned_committee_id = NULL", "assigned_country = NULL")
	}

	query := `UPDATE registrations SET ` + strings.Join(sets, ", ") + ` WHERE id = ? AND version = ?`
	args = append(args, id, expectedVersion)
	if patch.Assign != nil {
		query += ` AND NOT EXISTS (
			SELECT 1 FROM registrations o
			WHERE o.assignment_status = 'Assigned'
				AND o.assigned_committee_id = ?
				AND o.assigned_country = ?
				AND o.id <> ?)`
		args = append(args, patch.Assign.CommitteeID, patch.Assign.Country, id)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSeatOccupied
		}
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return classifyMiss(ctx, tx, id, expectedVersion)
	}
	return tx.Commit()
}

// classifyMiss explains why a conditional update touched no rows
func classifyMiss(ctx context.Context, tx *sql.Tx, id string, expectedVersion int64) error {
	var current int64
	err := tx.QueryRowContext(ctx, `SELECT version FROM registrations WHERE id = ?`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if current != expectedVersion {
		return ErrVersionConflict
	}
	return ErrSeatOccupied
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// CountAssigned returns how many registrations currently hold a seat
func (r *Repository) CountAssigned(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE assignment_status = 'Assigned'`).Scan(&n)
	return n, err
}

// ==================== Mail Methods ====================

// InsertMail appends a message to the outbox
func (r *Repository) InsertMail(ctx context.Context, msg models.MailMessage) error {
	refs := msg.RecipientRefs
	if refs == nil {
		refs = []string{}
	}
	refsJSON, _ := json.Marshal(refs) // Marshal on []string never fails
	data := msg.TemplateData
	if data == nil {
		data = map[string]string{}
	}
	dataJSON, _ := json.Marshal(data) // Marshal on map[string]string never fails

	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO mail_outbox (id, recipient_refs, template_name, template_data, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.ID, string(refsJSON), msg.TemplateName, string(dataJSON), createdAt)
	return err
}

// ListMail returns the newest outbox messages first. A non-positive limit
// returns everything.
func (r *Repository) ListMail(ctx context.Context, limit int) ([]models.MailMessage, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, recipient_refs, template_name, template_data, created_at
		FROM mail_outbox ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []models.MailMessage{}
	for rows.Next() {
		var m models.MailMessage
		var refsJSON, dataJSON string
		if err := rows.Scan(&m.ID, &refsJSON, &m.TemplateName, &dataJSON, &m.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(refsJSON), &m.RecipientRefs); err != nil {
			return nil, fmt.Errorf("decode recipients for mail %s: %w", m.ID, err)
		}
		if err := json.Unmarshal([]byte(dataJSON), &m.TemplateData); err != nil {
			return nil, fmt.Errorf("decode template data for mail %s: %w", m.ID, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
