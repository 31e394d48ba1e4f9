package database

import (
	"time"
)

// TimestampLayout is the on-disk form of watched_at. It is fixed width and
// always UTC, so string order is time order.
const TimestampLayout = "2006-01-02T15:04:05Z"

// HistoryEntry is the insert shape of a watch_history row
type HistoryEntry struct {
	VideoID      string // empty when the export had no extractable id
	Title        string
	ChannelID    string
	ChannelName  string
	WatchedAt    time.Time
	ActivityType string
	SourceURL    string // empty when VideoID is set
}

// WatchEntry represents a stored watch_history row
type WatchEntry struct {
	ID           int64
	VideoID      *string
	Title        string
	ChannelID    string
	ChannelName  string
	WatchedAt    time.Time
	ActivityType string
	SourceURL    *string
}

type ListFilters struct {
	From       *time.Time
	To         *time.Time
	ChannelIDs []string
	Page       int // 1-based
	Limit      int
}

type ListResult struct {
	Items []WatchEntry
	Total int
}

// RangeFilter bounds aggregate queries; both ends are inclusive and optional.
type RangeFilter struct {
	From *time.Time
	To   *time.Time
}

type Overview struct {
	TotalViews     int
	UniqueChannels int
	FirstWatched   *time.Time
	LastWatched    *time.Time
}

type ChannelCount struct {
	ChannelID   string
	ChannelName string
	Count       int
}

type HourCount struct {
	Hour  int
	Count int
}

type WeekdayCount struct {
	Weekday int // 0 = Sunday
	Count   int
}

type MonthCount struct {
	Year  int
	Month int
	Count int
}
