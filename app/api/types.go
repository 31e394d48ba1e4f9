package api

import (
	"context"
	"time"

	"github.com/lysyi3m/watch-history/app/cfg"
	"github.com/lysyi3m/watch-history/app/database"
	"github.com/lysyi3m/watch-history/app/history"
	"github.com/lysyi3m/watch-history/app/importer"
)

type ImporterInterface interface {
	Run(ctx context.Context, data []byte) (*importer.Result, error)
	Status(ctx context.Context) (*importer.Status, error)
	Clear(ctx context.Context) error
}

type GeneratorInterface interface {
	Run(info history.FeedInfo, entries []database.WatchEntry) (string, error)
}

var (
	_ ImporterInterface  = (*importer.Importer)(nil)
	_ GeneratorInterface = (*history.Generator)(nil)
)

type Handler struct {
	historyRepo database.HistoryRepository
	statsRepo   database.StatsRepository
	importer    ImporterInterface
	generator   GeneratorInterface
	cfg         *cfg.Cfg
}

type listQuery struct {
	Page       *int     `form:"page"`
	Limit      *int     `form:"limit"`
	From       string   `form:"from"`
	To         string   `form:"to"`
	ChannelIDs []string `form:"channelIds"`
}

type rangeQuery struct {
	From string `form:"from"`
	To   string `form:"to"`
}

type channelsQuery struct {
	From   string `form:"from"`
	To     string `form:"to"`
	Limit  *int   `form:"limit"`
	Search string `form:"search"`
}

type feedQuery struct {
	Limit *int `form:"limit"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type watchEntryResponse struct {
	ID           int64   `json:"id"`
	VideoID      *string `json:"videoId"`
	Title        string  `json:"title"`
	ChannelID    string  `json:"channelId"`
	ChannelName  string  `json:"channelName"`
	WatchedAt    string  `json:"watchedAt"`
	ActivityType string  `json:"activityType"`
	SourceURL    *string `json:"sourceUrl"`
}

type listResponse struct {
	Items []watchEntryResponse `json:"items"`
	Total int                  `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}

type overviewResponse struct {
	TotalViews     int     `json:"totalViews"`
	UniqueChannels int     `json:"uniqueChannels"`
	FirstWatched   *string `json:"firstWatched"`
	LastWatched    *string `json:"lastWatched"`
}

type channelResponse struct {
	ChannelID   string `json:"channelId"`
	ChannelName string `json:"channelName"`
	Count       int    `json:"count"`
}

type hourResponse struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

type weekdayResponse struct {
	Weekday int `json:"weekday"`
	Count   int `json:"count"`
}

type monthResponse struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Count int `json:"count"`
}

type importStatusResponse struct {
	HasData bool `json:"hasData"`
}

type importResponse struct {
	Inserted int  `json:"inserted"`
	Replaced bool `json:"replaced"`
}

type serverInfoResponse struct {
	BaseURL string `json:"baseUrl"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func toWatchEntryResponse(e database.WatchEntry) watchEntryResponse {
	return watchEntryResponse{
		ID:           e.ID,
		VideoID:      e.VideoID,
		Title:        e.Title,
		ChannelID:    e.ChannelID,
		ChannelName:  e.ChannelName,
		WatchedAt:    formatTime(e.WatchedAt),
		ActivityType: e.ActivityType,
		SourceURL:    e.SourceURL,
	}
}
