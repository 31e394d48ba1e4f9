package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteStatsRepository runs read-only aggregates over watch_history.
// All hour, weekday and month groupings are in UTC.
type SQLiteStatsRepository struct {
	db *DB
}

var _ StatsRepository = (*SQLiteStatsRepository)(nil)

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db *DB) *SQLiteStatsRepository {
	return &SQLiteStatsRepository{db: db}
}

func (r *SQLiteStatsRepository) Overview(ctx context.Context, filter RangeFilter) (*Overview, error) {
	builder := newQueryBuilder().addRange(filter.From, filter.To)

	var overview Overview
	var first, last sql.NullString

	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT channel_id), MIN(watched_at), MAX(watched_at)
		FROM watch_history`+builder.where(), builder.args...).
		Scan(&overview.TotalViews, &overview.UniqueChannels, &first, &last)
	if err != nil {
		return nil, fmt.Errorf("failed to get overview: %w", err)
	}

	if overview.FirstWatched, err = parseNullTimestamp(first); err != nil {
		return nil, err
	}
	if overview.LastWatched, err = parseNullTimestamp(last); err != nil {
		return nil, err
	}

	return &overview, nil
}

// Channels returns the most watched channels. A channel that was renamed
// between views is reported under its lexically greatest name.
func (r *SQLiteStatsRepository) Channels(ctx context.Context, filter RangeFilter, limit int, search string) ([]ChannelCount, error) {
	builder := newQueryBuilder().
		addRange(filter.From, filter.To).
		addNameSearch(search)

	rows, err := r.db.QueryContext(ctx, `
		SELECT channel_id, MAX(channel_name), COUNT(*) AS views
		FROM watch_history`+builder.where()+`
		GROUP BY channel_id
		ORDER BY views DESC, channel_id ASC
		LIMIT ?
	`, append(builder.args, limit)...)
	if err != nil {
		return nil, fmt.Errorf("failed to get channel stats: %w", err)
	}
	defer rows.Close()

	channels := []ChannelCount{}
	for rows.Next() {
		var c ChannelCount
		if err := rows.Scan(&c.ChannelID, &c.ChannelName, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan channel row: %w", err)
		}
		channels = append(channels, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating channel rows: %w", err)
	}

	return channels, nil
}

func (r *SQLiteStatsRepository) ByHour(ctx context.Context, filter RangeFilter) ([]HourCount, error) {
	hours := []HourCount{}
	err := r.groupCount(ctx, filter, "CAST(strftime('%H', watched_at) AS INTEGER)", func(key, count int) {
		hours = append(hours, HourCount{Hour: key, Count: count})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get hourly stats: %w", err)
	}
	return hours, nil
}

func (r *SQLiteStatsRepository) ByWeekday(ctx context.Context, filter RangeFilter) ([]WeekdayCount, error) {
	weekdays := []WeekdayCount{}
	err := r.groupCount(ctx, filter, "CAST(strftime('%w', watched_at) AS INTEGER)", func(key, count int) {
		weekdays = append(weekdays, WeekdayCount{Weekday: key, Count: count})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get weekday stats: %w", err)
	}
	return weekdays, nil
}

func (r *SQLiteStatsRepository) ByMonth(ctx context.Context, filter RangeFilter) ([]MonthCount, error) {
	// year*100+month keeps a single sortable key per calendar month
	months := []MonthCount{}
	err := r.groupCount(ctx, filter, "CAST(strftime('%Y%m', watched_at) AS INTEGER)", func(key, count int) {
		months = append(months, MonthCount{Year: key / 100, Month: key % 100, Count: count})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get monthly stats: %w", err)
	}
	return months, nil
}

// groupCount runs COUNT(*) grouped by keyExpr in ascending key order.
func (r *SQLiteStatsRepository) groupCount(ctx context.Context, filter RangeFilter, keyExpr string, fn func(key, count int)) error {
	builder := newQueryBuilder().addRange(filter.From, filter.To)

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+keyExpr+` AS bucket, COUNT(*)
		FROM watch_history`+builder.where()+`
		GROUP BY bucket
		ORDER BY bucket ASC
	`, builder.args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key, count int
		if err := rows.Scan(&key, &count); err != nil {
			return err
		}
		fn(key, count)
	}

	return rows.Err()
}

func parseNullTimestamp(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTimestamp(s.String)
	if err != nil {
		return nil, fmt.Errorf("failed to parse timestamp %q: %w", s.String, err)
	}
	return &t, nil
}
