package database

import (
	"context"
)

type HistoryRepository interface {
	HasAny(ctx context.Context) (bool, error)
	Count(ctx context.Context) (int, error)
	List(ctx context.Context, filters ListFilters) (*ListResult, error)

	InsertBatch(ctx context.Context, entries []HistoryEntry) error
	DeleteAll(ctx context.Context) error

	// InTx runs fn against a repository bound to a single transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(repo HistoryRepository) error) error
}

type StatsRepository interface {
	Overview(ctx context.Context, filter RangeFilter) (*Overview, error)
	Channels(ctx context.Context, filter RangeFilter, limit int, search string) ([]ChannelCount, error)
	ByHour(ctx context.Context, filter RangeFilter) ([]HourCount, error)
	ByWeekday(ctx context.Context, filter RangeFilter) ([]WeekdayCount, error)
	ByMonth(ctx context.Context, filter RangeFilter) ([]MonthCount, error)
}
