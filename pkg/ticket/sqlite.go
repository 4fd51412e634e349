package ticket

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// SQLiteStore implements Store and Directory on a local SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

// updatableColumns whitelists the ticket fields an update request may
// touch, keyed by canonical field name.
var updatableColumns = map[string]bool{
	"status":          true,
	"priority":        true,
	"category":        true,
	"team":            true,
	"assigned_to":     true,
	"requester":       true,
	"requester_email": true,
	"description":     true,
	"auto_solved":     true,
	"ai_response":     true,
	"admin_review":    true,
}

const schema = `
CREATE TABLE IF NOT EXISTS tickets (
	id              TEXT PRIMARY KEY,
	requester       TEXT NOT NULL DEFAULT '',
	requester_email TEXT NOT NULL DEFAULT '',
	assigned_to     TEXT NOT NULL DEFAULT '',
	team            TEXT NOT NULL DEFAULT '',
	category        TEXT NOT NULL DEFAULT '',
	priority        TEXT NOT NULL DEFAULT 'Medium',
	status          TEXT NOT NULL DEFAULT 'Open',
	description     TEXT NOT NULL DEFAULT '',
	auto_solved     INTEGER NOT NULL DEFAULT 0,
	ai_response     TEXT NOT NULL DEFAULT '',
	admin_review    INTEGER NOT NULL DEFAULT 0,
	created_at      TIMESTAMP NOT NULL,
	updated_at      TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS invoices (
	invoice_number TEXT PRIMARY KEY,
	po_number      TEXT NOT NULL DEFAULT '',
	customer_name  TEXT NOT NULL DEFAULT '',
	customer_id    TEXT NOT NULL DEFAULT '',
	vendor_name    TEXT NOT NULL DEFAULT '',
	vendor_id      TEXT NOT NULL DEFAULT '',
	amount         REAL NOT NULL DEFAULT 0,
	currency       TEXT NOT NULL DEFAULT '',
	payment_status TEXT NOT NULL DEFAULT '',
	invoice_date   TIMESTAMP,
	due_date       TIMESTAMP,
	clearing_date  TIMESTAMP
);
CREATE TABLE IF NOT EXISTS directory (
	name       TEXT PRIMARY KEY,
	email      TEXT NOT NULL DEFAULT '',
	team       TEXT NOT NULL DEFAULT '',
	is_manager INTEGER NOT NULL DEFAULT 0
);
`

// OpenSQLite opens (creating if needed) the ticket database at path.
func OpenSQLite(path string, logger zerolog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open ticket database: %w", err)
	}

	// Conflicting writes from parallel resolver workers serialize on a
	// single connection; last writer wins at the row level.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info().Str("path", path).Msg("Ticket store opened")

	return &SQLiteStore{db: db, logger: logger, now: time.Now}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB exposes the handle for seeding and tests.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// FetchTickets returns all tickets accepted by the filters.
func (s *SQLiteStore) FetchTickets(ctx context.Context, f Filters) ([]Ticket, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, requester, requester_email, assigned_to, team, category,
		       priority, status, description, auto_solved, ai_response,
		       admin_review, created_at, updated_at
		FROM tickets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	var tickets []Ticket
	for rows.Next() {
		var t Ticket
		var autoSolved, adminReview int
		if err := rows.Scan(&t.ID, &t.Requester, &t.RequesterEmail, &t.AssignedTo,
			&t.Team, &t.Category, &t.Priority, &t.Status, &t.Description,
			&autoSolved, &t.AIResponse, &adminReview, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ticket row: %w", err)
		}
		t.AutoSolved = autoSolved != 0
		t.AdminReview = adminReview != 0
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ticket row iteration failed: %w", err)
	}

	return f.SelectTickets(tickets), nil
}

// FetchInvoices returns all invoices accepted by the filters.
func (s *SQLiteStore) FetchInvoices(ctx context.Context, f Filters) ([]Invoice, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT invoice_number, po_number, customer_name, customer_id,
		       vendor_name, vendor_id, amount, currency, payment_status,
		       invoice_date, due_date, clearing_date
		FROM invoices ORDER BY invoice_number`)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		var inv Invoice
		var invoiceDate, dueDate, clearingDate sql.NullTime
		if err := rows.Scan(&inv.Number, &inv.PONumber, &inv.Customer, &inv.CustomerID,
			&inv.Vendor, &inv.VendorID, &inv.Amount, &inv.Currency, &inv.PaymentStatus,
			&invoiceDate, &dueDate, &clearingDate); err != nil {
			return nil, fmt.Errorf("failed to scan invoice row: %w", err)
		}
		inv.InvoiceDate = invoiceDate.Time
		inv.DueDate = dueDate.Time
		inv.ClearingDate = clearingDate.Time
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("invoice row iteration failed: %w", err)
	}

	return f.SelectInvoices(invoices), nil
}

// UpdateTicket applies the supplied field set to one ticket in a single
// transaction. Legacy field names are remapped, unknown fields are
// dropped, and updated_at always reflects the write.
func (s *SQLiteStore) UpdateTicket(ctx context.Context, id string, updates map[string]any) (bool, error) {
	setClauses := []string{}
	args := []any{}

	for field, value := range updates {
		col := CanonicalField(field)
		if !updatableColumns[col] {
			s.logger.Debug().Str("field", field).Str("ticket_id", id).Msg("Ignoring unknown update field")
			continue
		}
		setClauses = append(setClauses, col+" = ?")
		args = append(args, normalizeValue(col, value))
	}

	setClauses = append(setClauses, "updated_at = ?")
	args = append(args, s.now().UTC())
	args = append(args, strings.TrimSpace(id))

	query := "UPDATE tickets SET " + strings.Join(setClauses, ", ") + " WHERE id = ?"

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update ticket %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read update result: %w", err)
	}
	return affected > 0, nil
}

// normalizeValue coerces update values into column-compatible types.
func normalizeValue(col string, value any) any {
	switch col {
	case "auto_solved", "admin_review":
		switch v := value.(type) {
		case bool:
			if v {
				return 1
			}
			return 0
		case string:
			if strings.EqualFold(v, "yes") || strings.EqualFold(v, "true") {
				return 1
			}
			return 0
		default:
			return 0
		}
	default:
		if value == nil {
			return ""
		}
		return fmt.Sprintf("%v", value)
	}
}

// UserEmail implements Directory.
func (s *SQLiteStore) UserEmail(ctx context.Context, name string) (string, bool) {
	var email string
	err := s.db.QueryRowContext(ctx,
		`SELECT email FROM directory WHERE LOWER(name) = LOWER(?)`, strings.TrimSpace(name)).Scan(&email)
	if err != nil || email == "" {
		return "", false
	}
	return email, true
}

// TeamManager implements Directory.
func (s *SQLiteStore) TeamManager(ctx context.Context, team string) (Manager, bool) {
	var m Manager
	err := s.db.QueryRowContext(ctx,
		`SELECT name, email FROM directory WHERE LOWER(team) = LOWER(?) AND is_manager = 1`,
		strings.TrimSpace(team)).Scan(&m.Name, &m.Email)
	if err != nil {
		return Manager{}, false
	}
	return m, true
}

// InsertTicket adds a ticket record, used by seeding and tests.
func (s *SQLiteStore) InsertTicket(ctx context.Context, t Ticket) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now().UTC()
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tickets (id, requester, requester_email, assigned_to, team,
			category, priority, status, description, auto_solved, ai_response,
			admin_review, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Requester, t.RequesterEmail, t.AssignedTo, t.Team, t.Category,
		t.Priority, t.Status, t.Description, boolToInt(t.AutoSolved), t.AIResponse,
		boolToInt(t.AdminReview), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert ticket %s: %w", t.ID, err)
	}
	return nil
}

// InsertInvoice adds an invoice record, used by seeding and tests.
func (s *SQLiteStore) InsertInvoice(ctx context.Context, inv Invoice) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invoices (invoice_number, po_number, customer_name, customer_id,
			vendor_name, vendor_id, amount, currency, payment_status,
			invoice_date, due_date, clearing_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.Number, inv.PONumber, inv.Customer, inv.CustomerID, inv.Vendor,
		inv.VendorID, inv.Amount, inv.Currency, inv.PaymentStatus,
		inv.InvoiceDate, inv.DueDate, inv.ClearingDate)
	if err != nil {
		return fmt.Errorf("failed to insert invoice %s: %w", inv.Number, err)
	}
	return nil
}

// InsertContact adds a directory entry, used by seeding and tests.
func (s *SQLiteStore) InsertContact(ctx context.Context, name, email, team string, isManager bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO directory (name, email, team, is_manager) VALUES (?, ?, ?, ?)`,
		name, email, team, boolToInt(isManager))
	if err != nil {
		return fmt.Errorf("failed to insert contact %s: %w", name, err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
