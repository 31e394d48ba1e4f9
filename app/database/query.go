package database

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// queryBuilder accumulates WHERE conditions shared by list and stats queries.
type queryBuilder struct {
	conditions []string
	args       []interface{}
}

func newQueryBuilder() *queryBuilder {
	return &queryBuilder{}
}

// addRange bounds watched_at inclusively. Stored timestamps have whole-second
// precision, so a fractional from is rounded up and a fractional to is
// rounded down.
func (b *queryBuilder) addRange(from, to *time.Time) *queryBuilder {
	if from != nil {
		lower := *from
		if lower.Nanosecond() != 0 {
			lower = lower.Truncate(time.Second).Add(time.Second)
		}
		b.conditions = append(b.conditions, "watched_at >= ?")
		b.args = append(b.args, formatTimestamp(lower))
	}
	if to != nil {
		b.conditions = append(b.conditions, "watched_at <= ?")
		b.args = append(b.args, formatTimestamp(*to))
	}
	return b
}

func (b *queryBuilder) addChannels(channelIDs []string) *queryBuilder {
	if len(channelIDs) == 0 {
		return b
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(channelIDs)), ",")
	b.conditions = append(b.conditions, "channel_id IN ("+placeholders+")")
	for _, id := range channelIDs {
		b.args = append(b.args, id)
	}
	return b
}

func (b *queryBuilder) addNameSearch(search string) *queryBuilder {
	search = strings.TrimSpace(search)
	if search == "" {
		return b
	}

	b.conditions = append(b.conditions, `casefold(channel_name) LIKE ? ESCAPE '\'`)
	b.args = append(b.args, "%"+escapeLikePattern(foldCase(search))+"%")
	return b
}

// where renders the accumulated conditions, including the leading keyword.
func (b *queryBuilder) where() string {
	if len(b.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.conditions, " AND ")
}

func escapeLikePattern(raw string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(raw)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func parseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampLayout, s)
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
