package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pokertracker/internal/core"
	"pokertracker/internal/log"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so TEXT timestamps sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const sessionColumns = `id, user_id, session_date, duration_minutes, buy_in_amount, rebuy_amount, cash_out_amount, notes, created_at, updated_at`

// CreateSession inserts the session and its outbox row in one transaction.
func (r *SQLiteRepository) CreateSession(ctx context.Context, s core.Session) (core.Session, error) {
	now := r.now()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.CreatedAt, s.UpdatedAt = now, now

	err := r.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO poker_sessions (`+sessionColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			s.ID.String(), s.OwnerID.String(), s.Date.String(), s.DurationMinutes,
			s.BuyIn.Amount.String(), s.Rebuy.Amount.String(), s.CashOut.Amount.String(),
			nullString(s.Notes), now.Format(timeLayout), now.Format(timeLayout))
		if err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		return recordChange(ctx, tx, s.ID, s.OwnerID, OpUpsert, now)
	})
	if err != nil {
		return core.Session{}, err
	}

	storageLogger(ctx).DebugContext(ctx, "Session saved to SQLite",
		log.FieldSessionID, s.ID,
		log.FieldOwnerID, s.OwnerID,
		"session_date", s.Date.String())

	return s, nil
}

func (r *SQLiteRepository) GetSession(ctx context.Context, owner, id uuid.UUID) (core.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM poker_sessions WHERE id = ? AND user_id = ?`,
		id.String(), owner.String())
	s, err := scanSession(row)
	if err != nil {
		return core.Session{}, fmt.Errorf("get session %s: %w", id, err)
	}
	return s, nil
}

func (r *SQLiteRepository) ListSessions(ctx context.Context, owner uuid.UUID) ([]core.Session, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM poker_sessions
		WHERE user_id = ? ORDER BY session_date DESC, created_at DESC`, owner.String())
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]core.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

func (r *SQLiteRepository) UpdateSession(ctx context.Context, s core.Session) (core.Session, error) {
	now := r.now()
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE poker_sessions
			SET session_date = ?, duration_minutes = ?, buy_in_amount = ?, rebuy_amount = ?,
			    cash_out_amount = ?, notes = ?, updated_at = ?
			WHERE id = ? AND user_id = ?`,
			s.Date.String(), s.DurationMinutes, s.BuyIn.Amount.String(), s.Rebuy.Amount.String(),
			s.CashOut.Amount.String(), nullString(s.Notes), now.Format(timeLayout),
			s.ID.String(), s.OwnerID.String())
		if err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		if err := expectOneRow(res); err != nil {
			return fmt.Errorf("update session %s: %w", s.ID, err)
		}
		return recordChange(ctx, tx, s.ID, s.OwnerID, OpUpsert, now)
	})
	if err != nil {
		return core.Session{}, err
	}
	return r.GetSession(ctx, s.OwnerID, s.ID)
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, owner, id uuid.UUID) error {
	now := r.now()
	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM poker_sessions WHERE id = ? AND user_id = ?`,
			id.String(), owner.String())
		if err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		if err := expectOneRow(res); err != nil {
			return fmt.Errorf("delete session %s: %w", id, err)
		}
		return recordChange(ctx, tx, id, owner, OpDelete, now)
	})
}

const userColumns = `id, email, username, password_hash, cookie_consent, cookie_consent_date, created_at, updated_at`

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	now := r.now()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt, u.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx, `INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID.String(), u.Email, u.Username, u.PasswordHash, u.CookieConsent,
		nullTime(u.CookieConsentDate), now.Format(timeLayout), now.Format(timeLayout))
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, fmt.Errorf("create user %s: %w", u.Email, ErrConflict)
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id uuid.UUID) (core.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id.String()))
	if err != nil {
		return core.User{}, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		return core.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) UpdateUser(ctx context.Context, u core.User) (core.User, error) {
	now := r.now()
	res, err := r.db.ExecContext(ctx, `UPDATE users
		SET email = ?, username = ?, password_hash = ?, cookie_consent = ?, cookie_consent_date = ?, updated_at = ?
		WHERE id = ?`,
		u.Email, u.Username, u.PasswordHash, u.CookieConsent, nullTime(u.CookieConsentDate),
		now.Format(timeLayout), u.ID.String())
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, fmt.Errorf("update user %s: %w", u.ID, ErrConflict)
		}
		return core.User{}, fmt.Errorf("update user: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return core.User{}, fmt.Errorf("update user %s: %w", u.ID, err)
	}
	u.UpdatedAt = now
	return u, nil
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(sc scanner) (core.Session, error) {
	var (
		s                     core.Session
		id, owner, date       string
		buyIn, rebuy, cashOut string
		notes                 sql.NullString
		createdAt, updatedAt  string
	)
	err := sc.Scan(&id, &owner, &date, &s.DurationMinutes, &buyIn, &rebuy, &cashOut, &notes, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Session{}, ErrNotFound
	}
	if err != nil {
		return core.Session{}, err
	}

	if s.ID, err = uuid.Parse(id); err != nil {
		return core.Session{}, fmt.Errorf("parse session id: %w", err)
	}
	if s.OwnerID, err = uuid.Parse(owner); err != nil {
		return core.Session{}, fmt.Errorf("parse owner id: %w", err)
	}
	if s.Date, err = core.ParseDate(date); err != nil {
		return core.Session{}, err
	}
	for _, f := range []struct {
		raw string
		dst *core.Money
	}{{buyIn, &s.BuyIn}, {rebuy, &s.Rebuy}, {cashOut, &s.CashOut}} {
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return core.Session{}, fmt.Errorf("parse amount %q: %w", f.raw, err)
		}
		*f.dst = core.Money{Amount: d}
	}
	if notes.Valid {
		n := notes.String
		s.Notes = &n
	}
	s.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	s.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return s, nil
}

func scanUser(sc scanner) (core.User, error) {
	var (
		u                    core.User
		id                   string
		consentDate          sql.NullString
		createdAt, updatedAt string
	)
	err := sc.Scan(&id, &u.Email, &u.Username, &u.PasswordHash, &u.CookieConsent, &consentDate, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, err
	}
	if u.ID, err = uuid.Parse(id); err != nil {
		return core.User{}, fmt.Errorf("parse user id: %w", err)
	}
	if consentDate.Valid {
		if t, err := time.Parse(timeLayout, consentDate.String); err == nil {
			u.CookieConsentDate = &t
		}
	}
	u.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	u.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return u, nil
}

func storageLogger(ctx context.Context) *log.Logger {
	return log.FromContext(ctx).WithComponent(log.ComponentStorage)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timeLayout), Valid: true}
}
