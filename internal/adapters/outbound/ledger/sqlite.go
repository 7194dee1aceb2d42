// Package ledger keeps the session's credit log in SQLite. The default store
// lives in memory and disappears with the process.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/pourline/pourline/internal/domain"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

// Store implements domain.CreditLedger on SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ domain.CreditLedger = (*Store)(nil)

// Open opens the ledger at dsn and applies migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	// One connection: an in-memory database is per connection, and SQLite
	// has a single writer anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

// OpenMemory opens a fresh in-memory ledger.
func OpenMemory() (*Store, error) {
	return Open(context.Background(), MemoryDSN)
}

// Close releases the database.
func (s *Store) Close() error { return s.db.Close() }

// NewCreditID returns an id of the form CRED-XXXXXXXX.
func NewCreditID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "CRED-" + strings.ToUpper(hex[:8])
}

func (s *Store) Record(ctx context.Context, rec domain.CreditRecord) (domain.CreditRecord, error) {
	if rec.ID == "" {
		rec.ID = NewCreditID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	if rec.Status == "" {
		rec.Status = domain.CreditSent
	}
	if rec.Status == domain.CreditSent {
		rec.Remaining = rec.Quantity
	} else {
		rec.Remaining = 0
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credits (id, session_id, operator, server_no, product_name, plu_no,
			quantity, remaining, status, is_cancellation, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, rec.Operator, rec.ServerNo, rec.ProductName, rec.PLU,
		rec.Quantity, rec.Remaining, string(rec.Status), boolToInt(rec.IsCancellation),
		rec.Message, rec.CreatedAt.UnixNano(),
	)
	if err != nil {
		return domain.CreditRecord{}, fmt.Errorf("recording credit %s: %w", rec.ID, err)
	}
	return rec, nil
}

func (s *Store) ActiveCredits(ctx context.Context, sessionID, plu string, limit int) ([]domain.CreditRecord, error) {
	query := selectCredits + `
		WHERE session_id = ? AND plu_no = ? AND status = 'sent' AND is_cancellation = 0 AND remaining > 0
		ORDER BY created_at DESC, seq DESC`
	args := []any{sessionID, plu}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.query(ctx, query, args...)
}

func (s *Store) CancelUnit(ctx context.Context, id string, at time.Time, response string) (domain.CreditRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.CreditRecord{}, err
	}
	defer func() { _ = tx.Rollback() }()

	rec, err := scanCredit(tx.QueryRowContext(ctx, selectCredits+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CreditRecord{}, fmt.Errorf("credit %s: %w", id, domain.ErrCreditNotFound)
	}
	if err != nil {
		return domain.CreditRecord{}, fmt.Errorf("loading credit %s: %w", id, err)
	}
	if rec.Status != domain.CreditSent || rec.Remaining <= 0 {
		return domain.CreditRecord{}, fmt.Errorf("credit %s: %w", id, domain.ErrNoCreditsToCancel)
	}

	rec.Remaining--
	at = at.UTC()
	rec.CancelledAt = &at
	if rec.Remaining == 0 {
		rec.Status = domain.CreditCancelled
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE credits SET remaining = ?, status = ?, cancelled_at = ?, cancellation_response = ?
		WHERE id = ?`,
		rec.Remaining, string(rec.Status), at.UnixNano(), response, id,
	)
	if err != nil {
		return domain.CreditRecord{}, fmt.Errorf("cancelling credit %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return domain.CreditRecord{}, err
	}
	return rec, nil
}

// List returns a session's credits in the order they were recorded. An empty
// sessionID lists every credit.
func (s *Store) List(ctx context.Context, sessionID string) ([]domain.CreditRecord, error) {
	if sessionID == "" {
		return s.query(ctx, selectCredits+` ORDER BY seq`)
	}
	return s.query(ctx, selectCredits+` WHERE session_id = ? ORDER BY seq`, sessionID)
}

const selectCredits = `
	SELECT id, session_id, operator, server_no, product_name, plu_no, quantity,
		remaining, status, is_cancellation, message, created_at, cancelled_at
	FROM credits`

func (s *Store) query(ctx context.Context, query string, args ...any) ([]domain.CreditRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying credits: %w", err)
	}
	defer rows.Close()

	var out []domain.CreditRecord
	for rows.Next() {
		rec, err := scanCredit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredit(row rowScanner) (domain.CreditRecord, error) {
	var (
		rec         domain.CreditRecord
		status      string
		isCancel    int
		createdAt   int64
		cancelledAt sql.NullInt64
	)
	err := row.Scan(&rec.ID, &rec.SessionID, &rec.Operator, &rec.ServerNo, &rec.ProductName,
		&rec.PLU, &rec.Quantity, &rec.Remaining, &status, &isCancel, &rec.Message,
		&createdAt, &cancelledAt)
	if err != nil {
		return domain.CreditRecord{}, err
	}
	rec.Status = domain.CreditStatus(status)
	rec.IsCancellation = isCancel != 0
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	if cancelledAt.Valid {
		t := time.Unix(0, cancelledAt.Int64).UTC()
		rec.CancelledAt = &t
	}
	return rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
