package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// SQLiteHistoryRepository handles database operations for watch history rows
type SQLiteHistoryRepository struct {
	db *DB
	q  querier
}

var _ HistoryRepository = (*SQLiteHistoryRepository)(nil)

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *DB) *SQLiteHistoryRepository {
	return &SQLiteHistoryRepository{db: db, q: db.DB}
}

// HasAny reports whether at least one row exists
func (r *SQLiteHistoryRepository) HasAny(ctx context.Context) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM watch_history)").Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check history: %w", err)
	}
	return exists, nil
}

// Count returns the total number of rows
func (r *SQLiteHistoryRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM watch_history").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get history count: %w", err)
	}
	return count, nil
}

// InsertBatch appends entries atomically. An empty batch is a no-op.
func (r *SQLiteHistoryRepository) InsertBatch(ctx context.Context, entries []HistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}

	return r.withTx(ctx, func(tr *SQLiteHistoryRepository) error {
		stmt, err := tr.q.PrepareContext(ctx, `
			INSERT INTO watch_history (
				video_id, title, channel_id, channel_name,
				watched_at, activity_type, source_url
			) VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, entry := range entries {
			_, err := stmt.ExecContext(ctx,
				nullString(entry.VideoID), entry.Title, entry.ChannelID, entry.ChannelName,
				formatTimestamp(entry.WatchedAt), entry.ActivityType, nullString(entry.SourceURL))
			if err != nil {
				return fmt.Errorf("failed to insert history entry: %w", err)
			}
		}

		return nil
	})
}

// DeleteAll removes every row. Ids are not reused afterwards.
func (r *SQLiteHistoryRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.q.ExecContext(ctx, "DELETE FROM watch_history"); err != nil {
		return fmt.Errorf("failed to delete history: %w", err)
	}
	return nil
}

// List returns one page of rows matching filters, newest first, and the
// total number of matching rows before pagination.
func (r *SQLiteHistoryRepository) List(ctx context.Context, filters ListFilters) (*ListResult, error) {
	builder := newQueryBuilder().
		addRange(filters.From, filters.To).
		addChannels(filters.ChannelIDs)
	where := builder.where()

	var total int
	err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM watch_history"+where, builder.args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("failed to count history: %w", err)
	}

	page := max(filters.Page, 1)
	limit := filters.Limit
	if limit < 1 {
		limit = 1
	}

	// Checked by division so the offset below never overflows.
	if page-1 > total/limit {
		return &ListResult{Items: []WatchEntry{}, Total: total}, nil
	}

	args := append(append([]interface{}{}, builder.args...), limit, (page-1)*limit)
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, video_id, title, channel_id, channel_name,
		       watched_at, activity_type, source_url
		FROM watch_history`+where+`
		ORDER BY watched_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	items := make([]WatchEntry, 0, min(limit, total))
	for rows.Next() {
		var entry WatchEntry
		var videoID, sourceURL sql.NullString
		var watchedAt string

		err := rows.Scan(
			&entry.ID, &videoID, &entry.Title, &entry.ChannelID, &entry.ChannelName,
			&watchedAt, &entry.ActivityType, &sourceURL,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}

		entry.WatchedAt, err = parseTimestamp(watchedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse watched_at of row %d: %w", entry.ID, err)
		}
		if videoID.Valid {
			entry.VideoID = &videoID.String
		}
		if sourceURL.Valid {
			entry.SourceURL = &sourceURL.String
		}

		items = append(items, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history rows: %w", err)
	}

	return &ListResult{Items: items, Total: total}, nil
}

func (r *SQLiteHistoryRepository) InTx(ctx context.Context, fn func(repo HistoryRepository) error) error {
	return r.withTx(ctx, func(tr *SQLiteHistoryRepository) error {
		return fn(tr)
	})
}

// withTx joins the current transaction if there is one.
func (r *SQLiteHistoryRepository) withTx(ctx context.Context, fn func(tr *SQLiteHistoryRepository) error) error {
	if _, inTx := r.q.(*sql.Tx); inTx {
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(&SQLiteHistoryRepository{db: r.db, q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Error("Failed to roll back transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
