package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pokertracker/internal/core"
	"pokertracker/internal/log"
)

const syncColumns = `id, session_id, user_id, operation, status, attempts, last_error, created_at, updated_at`

var _ SessionVersioner = (*SQLiteRepository)(nil)

// recordChange writes the outbox row and bumps the owner's session version
// inside the caller's transaction.
func recordChange(ctx context.Context, tx *sql.Tx, sessionID, owner uuid.UUID, op string, now time.Time) error {
	if err := enqueueSync(ctx, tx, sessionID, owner, op, now); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO session_versions (user_id, version) VALUES (?, 1)
		ON CONFLICT(user_id) DO UPDATE SET version = version + 1`, owner.String())
	if err != nil {
		return fmt.Errorf("bump session version: %w", err)
	}
	return nil
}

// SessionsVersion returns a counter that changes with every committed
// session write of owner, from this process or any other. It is 0 before the
// first write.
func (r *SQLiteRepository) SessionsVersion(ctx context.Context, owner uuid.UUID) (int64, error) {
	var v int64
	err := r.db.QueryRowContext(ctx, `SELECT version FROM session_versions WHERE user_id = ?`, owner.String()).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read session version: %w", err)
	}
	return v, nil
}

func enqueueSync(ctx context.Context, tx *sql.Tx, sessionID, owner uuid.UUID, op string, now time.Time) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO sync_queue (session_id, user_id, operation, status, attempts, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, ?)`,
		sessionID.String(), owner.String(), op, SyncPending, now.Format(timeLayout), now.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("enqueue %s sync: %w", op, err)
	}
	return nil
}

// DequeueSyncBatch returns the oldest pending items without claiming them.
func (r *SQLiteRepository) DequeueSyncBatch(ctx context.Context, limit int) ([]SyncItem, error) {
	return r.querySyncItems(ctx, `SELECT `+syncColumns+` FROM sync_queue
		WHERE status = ? ORDER BY id LIMIT ?`, SyncPending, limit)
}

func (r *SQLiteRepository) PendingSyncForSession(ctx context.Context, sessionID uuid.UUID) ([]SyncItem, error) {
	return r.querySyncItems(ctx, `SELECT `+syncColumns+` FROM sync_queue
		WHERE session_id = ? AND status = ? ORDER BY id`, sessionID.String(), SyncPending)
}

func (r *SQLiteRepository) ClaimSyncItem(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE sync_queue SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		SyncProcessing, r.now().Format(timeLayout), id, SyncPending)
	if err != nil {
		return false, fmt.Errorf("claim sync item %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim sync item %d: %w", id, err)
	}
	return n == 1, nil
}

func (r *SQLiteRepository) MarkSyncComplete(ctx context.Context, id int64) error {
	return r.setSyncStatus(ctx, id, SyncCompleted, sql.NullString{}, false)
}

func (r *SQLiteRepository) MarkSyncFailed(ctx context.Context, id int64, reason string) error {
	if err := r.setSyncStatus(ctx, id, SyncFailed, sql.NullString{String: reason, Valid: true}, true); err != nil {
		return err
	}
	storageLogger(ctx).WarnContext(ctx, "Sync item marked as failed", log.FieldSyncItemID, id, log.FieldError, reason)
	return nil
}

// IncrementSyncAttempt records a failed attempt and puts the item back in line.
func (r *SQLiteRepository) IncrementSyncAttempt(ctx context.Context, id int64, reason string) error {
	return r.setSyncStatus(ctx, id, SyncPending, sql.NullString{String: reason, Valid: true}, true)
}

func (r *SQLiteRepository) setSyncStatus(ctx context.Context, id int64, status string, reason sql.NullString, bump bool) error {
	inc := 0
	if bump {
		inc = 1
	}
	_, err := r.db.ExecContext(ctx, `UPDATE sync_queue
		SET status = ?, attempts = attempts + ?, last_error = COALESCE(?, last_error), updated_at = ?
		WHERE id = ?`,
		status, inc, reason, r.now().Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("set sync item %d to %s: %w", id, status, err)
	}
	return nil
}

// ResetStaleProcessing returns items left in processing by a crashed worker.
func (r *SQLiteRepository) ResetStaleProcessing(ctx context.Context) error {
	res, err := r.db.ExecContext(ctx, `UPDATE sync_queue SET status = ?, updated_at = ? WHERE status = ?`,
		SyncPending, r.now().Format(timeLayout), SyncProcessing)
	if err != nil {
		return fmt.Errorf("reset stale processing: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		storageLogger(ctx).InfoContext(ctx, "Reset stale sync items", log.FieldCount, n)
	}
	return nil
}

func (r *SQLiteRepository) CleanupCompletedSyncs(ctx context.Context, before time.Time) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE status = ? AND updated_at < ?`,
		SyncCompleted, before.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("cleanup completed syncs: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) RetryFailedSyncs(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `UPDATE sync_queue SET status = ?, attempts = 0, updated_at = ? WHERE status = ?`,
		SyncPending, r.now().Format(timeLayout), SyncFailed)
	if err != nil {
		return fmt.Errorf("retry failed syncs: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetSyncQueueStats(ctx context.Context) (SyncQueueStats, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM sync_queue GROUP BY status`)
	if err != nil {
		return SyncQueueStats{}, fmt.Errorf("sync queue stats: %w", err)
	}
	defer rows.Close()

	var st SyncQueueStats
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return SyncQueueStats{}, fmt.Errorf("scan sync queue stats: %w", err)
		}
		switch status {
		case SyncPending:
			st.Pending = n
		case SyncProcessing:
			st.Processing = n
		case SyncCompleted:
			st.Completed = n
		case SyncFailed:
			st.Failed = n
		}
	}
	return st, rows.Err()
}

func (r *SQLiteRepository) SessionForSync(ctx context.Context, id uuid.UUID) (core.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM poker_sessions WHERE id = ?`, id.String())
	s, err := scanSession(row)
	if err != nil {
		return core.Session{}, fmt.Errorf("get session %s for sync: %w", id, err)
	}
	return s, nil
}

func (r *SQLiteRepository) querySyncItems(ctx context.Context, query string, args ...any) ([]SyncItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sync queue: %w", err)
	}
	defer rows.Close()

	var items []SyncItem
	for rows.Next() {
		var (
			it                   SyncItem
			sessionID, owner     string
			lastError            sql.NullString
			createdAt, updatedAt string
		)
		if err := rows.Scan(&it.ID, &sessionID, &owner, &it.Operation, &it.Status, &it.Attempts,
			&lastError, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan sync item: %w", err)
		}
		it.SessionID, _ = uuid.Parse(sessionID)
		it.OwnerID, _ = uuid.Parse(owner)
		it.LastError = lastError.String
		it.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		it.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
		items = append(items, it)
	}
	return items, rows.Err()
}
