package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedStats(t *testing.T) (*SQLiteStatsRepository, *SQLiteHistoryRepository) {
	t.Helper()

	db := openTestDB(t)
	history := NewHistoryRepository(db)

	require.NoError(t, history.InsertBatch(context.Background(), []HistoryEntry{
		// 2024-01-01 is a Monday
		entry("UCa", "Ärzte TV", "2024-01-01T08:15:00Z"),
		entry("UCa", "Ärzte TV", "2024-01-01T08:45:00Z"),
		entry("UCa", "Ärzte TV", "2024-01-06T20:00:00Z"),
		entry("UCb", "100%_Real", "2024-01-07T20:30:00Z"),
		entry("UCb", "100%_Real", "2024-02-10T23:59:59Z"),
		entry("UCc", "Cooking", "2023-12-31T23:00:00Z"),
	}))

	return NewStatsRepository(db), history
}

func TestOverview_Empty(t *testing.T) {
	stats := NewStatsRepository(openTestDB(t))

	overview, err := stats.Overview(context.Background(), RangeFilter{})
	require.NoError(t, err)
	assert.Zero(t, overview.TotalViews)
	assert.Zero(t, overview.UniqueChannels)
	assert.Nil(t, overview.FirstWatched)
	assert.Nil(t, overview.LastWatched)
}

func TestOverview(t *testing.T) {
	stats, _ := seedStats(t)
	ctx := context.Background()

	overview, err := stats.Overview(ctx, RangeFilter{})
	require.NoError(t, err)
	assert.Equal(t, 6, overview.TotalViews)
	assert.Equal(t, 3, overview.UniqueChannels)
	require.NotNil(t, overview.FirstWatched)
	require.NotNil(t, overview.LastWatched)
	assert.True(t, overview.FirstWatched.Equal(at("2023-12-31T23:00:00Z")))
	assert.True(t, overview.LastWatched.Equal(at("2024-02-10T23:59:59Z")))

	ranged, err := stats.Overview(ctx, RangeFilter{
		From: ptr(at("2024-01-01T00:00:00Z")),
		To:   ptr(at("2024-01-31T23:59:59Z")),
	})
	require.NoError(t, err)
	assert.Equal(t, 4, ranged.TotalViews)
	assert.Equal(t, 2, ranged.UniqueChannels)
	assert.True(t, ranged.FirstWatched.Equal(at("2024-01-01T08:15:00Z")))
	assert.True(t, ranged.LastWatched.Equal(at("2024-01-07T20:30:00Z")))
}

func TestChannels_OrderingAndLimit(t *testing.T) {
	stats, _ := seedStats(t)
	ctx := context.Background()

	channels, err := stats.Channels(ctx, RangeFilter{}, 10, "")
	require.NoError(t, err)
	require.Len(t, channels, 3)

	assert.Equal(t, ChannelCount{ChannelID: "UCa", ChannelName: "Ärzte TV", Count: 3}, channels[0])
	assert.Equal(t, ChannelCount{ChannelID: "UCb", ChannelName: "100%_Real", Count: 2}, channels[1])
	assert.Equal(t, ChannelCount{ChannelID: "UCc", ChannelName: "Cooking", Count: 1}, channels[2])

	sum := 0
	for _, c := range channels {
		sum += c.Count
	}
	overview, err := stats.Overview(ctx, RangeFilter{})
	require.NoError(t, err)
	assert.Equal(t, overview.TotalViews, sum, "channel counts must sum to total views")

	top, err := stats.Channels(ctx, RangeFilter{}, 1, "")
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "UCa", top[0].ChannelID)
}

func TestChannels_TiesBreakByChannelID(t *testing.T) {
	db := openTestDB(t)
	history := NewHistoryRepository(db)
	ctx := context.Background()

	require.NoError(t, history.InsertBatch(ctx, []HistoryEntry{
		entry("UCz", "Zed", "2024-01-01T00:00:00Z"),
		entry("UCm", "Em", "2024-01-01T00:00:00Z"),
	}))

	channels, err := NewStatsRepository(db).Channels(ctx, RangeFilter{}, 10, "")
	require.NoError(t, err)
	require.Len(t, channels, 2)
	assert.Equal(t, "UCm", channels[0].ChannelID)
	assert.Equal(t, "UCz", channels[1].ChannelID)
}

func TestChannels_Search(t *testing.T) {
	stats, _ := seedStats(t)

	tests := []struct {
		name     string
		search   string
		expected []string
	}{
		{"ascii case-insensitive", "COOK", []string{"UCc"}},
		{"non-ascii case-insensitive", "ärzte", []string{"UCa"}},
		{"literal percent", "%", []string{"UCb"}},
		{"literal underscore", "_real", []string{"UCb"}},
		{"underscore is not a wildcard", "0__R", nil},
		{"whitespace only means no search", "   ", []string{"UCa", "UCb", "UCc"}},
		{"no match", "nothing", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			channels, err := stats.Channels(context.Background(), RangeFilter{}, 50, tt.search)
			require.NoError(t, err)
			require.NotNil(t, channels)

			var ids []string
			for _, c := range channels {
				ids = append(ids, c.ChannelID)
			}
			assert.Equal(t, tt.expected, ids)
		})
	}
}

func TestByHour(t *testing.T) {
	stats, _ := seedStats(t)

	hours, err := stats.ByHour(context.Background(), RangeFilter{})
	require.NoError(t, err)
	assert.Equal(t, []HourCount{
		{Hour: 8, Count: 2},
		{Hour: 20, Count: 2},
		{Hour: 23, Count: 2},
	}, hours)
}

func TestByWeekday(t *testing.T) {
	stats, _ := seedStats(t)

	weekdays, err := stats.ByWeekday(context.Background(), RangeFilter{})
	require.NoError(t, err)
	assert.Equal(t, []WeekdayCount{
		{Weekday: 0, Count: 2}, // 2023-12-31, 2024-01-07
		{Weekday: 1, Count: 2}, // 2024-01-01
		{Weekday: 6, Count: 2}, // 2024-01-06, 2024-02-10
	}, weekdays)
}

func TestByMonth(t *testing.T) {
	stats, _ := seedStats(t)
	ctx := context.Background()

	months, err := stats.ByMonth(ctx, RangeFilter{})
	require.NoError(t, err)
	assert.Equal(t, []MonthCount{
		{Year: 2023, Month: 12, Count: 1},
		{Year: 2024, Month: 1, Count: 4},
		{Year: 2024, Month: 2, Count: 1},
	}, months)

	ranged, err := stats.ByMonth(ctx, RangeFilter{From: ptr(at("2024-02-01T00:00:00Z"))})
	require.NoError(t, err)
	assert.Equal(t, []MonthCount{{Year: 2024, Month: 2, Count: 1}}, ranged)
}

func TestGroupings_EmptyStoreReturnsEmptySlices(t *testing.T) {
	stats := NewStatsRepository(openTestDB(t))
	ctx := context.Background()

	hours, err := stats.ByHour(ctx, RangeFilter{})
	require.NoError(t, err)
	assert.NotNil(t, hours)
	assert.Empty(t, hours)

	weekdays, err := stats.ByWeekday(ctx, RangeFilter{})
	require.NoError(t, err)
	assert.NotNil(t, weekdays)
	assert.Empty(t, weekdays)

	months, err := stats.ByMonth(ctx, RangeFilter{})
	require.NoError(t, err)
	assert.NotNil(t, months)
	assert.Empty(t, months)

	channels, err := stats.Channels(ctx, RangeFilter{}, 10, "")
	require.NoError(t, err)
	assert.NotNil(t, channels)
	assert.Empty(t, channels)
}
