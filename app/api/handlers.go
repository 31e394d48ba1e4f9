package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/watch-history/app/cfg"
	"github.com/lysyi3m/watch-history/app/database"
	"github.com/lysyi3m/watch-history/app/history"
	"github.com/lysyi3m/watch-history/app/importer"
)

func NewHandler(config *cfg.Cfg, historyRepo database.HistoryRepository,
	statsRepo database.StatsRepository, imp ImporterInterface) *Handler {
	return &Handler{
		historyRepo: historyRepo,
		statsRepo:   statsRepo,
		importer:    imp,
		generator:   history.NewGenerator(),
		cfg:         config,
	}
}

func (h *Handler) ListHistory(c *gin.Context) {
	var query listQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		badRequest(c, "page and limit must be integers")
		return
	}

	filter, err := parseRange(query.From, query.To)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	filters := database.ListFilters{
		From:       filter.From,
		To:         filter.To,
		ChannelIDs: splitChannelIDs(query.ChannelIDs),
		Page:       clamp(query.Page, defaultPage, 1, 0),
		Limit:      clamp(query.Limit, defaultListLimit, 1, maxListLimit),
	}

	result, err := h.historyRepo.List(c.Request.Context(), filters)
	if err != nil {
		internalError(c, "list_history", err)
		return
	}

	items := make([]watchEntryResponse, 0, len(result.Items))
	for _, entry := range result.Items {
		items = append(items, toWatchEntryResponse(entry))
	}

	c.JSON(http.StatusOK, listResponse{
		Items: items,
		Total: result.Total,
		Page:  filters.Page,
		Limit: filters.Limit,
	})
}

func (h *Handler) GetHistoryFeed(c *gin.Context) {
	var query feedQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		badRequest(c, "limit must be an integer")
		return
	}

	limit := clamp(query.Limit, h.cfg.FeedItems, 1, maxListLimit)

	result, err := h.historyRepo.List(c.Request.Context(), database.ListFilters{Page: 1, Limit: limit})
	if err != nil {
		internalError(c, "get_history_feed", err)
		return
	}

	baseURL := h.baseURL()
	rss, err := h.generator.Run(history.FeedInfo{
		Title:    "Watch History",
		Link:     baseURL + "/history",
		SelfLink: baseURL + "/api/history/feed",
		Version:  h.cfg.Version,
	}, result.Items)
	if err != nil {
		internalError(c, "generate_history_feed", err)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(result.Items)))
	c.String(http.StatusOK, rss)
}

func (h *Handler) GetOverview(c *gin.Context) {
	filter, ok := bindRange(c)
	if !ok {
		return
	}

	overview, err := h.statsRepo.Overview(c.Request.Context(), filter)
	if err != nil {
		internalError(c, "get_overview", err)
		return
	}

	c.JSON(http.StatusOK, overviewResponse{
		TotalViews:     overview.TotalViews,
		UniqueChannels: overview.UniqueChannels,
		FirstWatched:   formatOptionalTime(overview.FirstWatched),
		LastWatched:    formatOptionalTime(overview.LastWatched),
	})
}

func (h *Handler) GetChannels(c *gin.Context) {
	var query channelsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		badRequest(c, "limit must be an integer")
		return
	}

	filter, err := parseRange(query.From, query.To)
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	limit := clamp(query.Limit, defaultChannelsLimit, 1, maxChannelsLimit)

	channels, err := h.statsRepo.Channels(c.Request.Context(), filter, limit, query.Search)
	if err != nil {
		internalError(c, "get_channels", err)
		return
	}

	response := make([]channelResponse, 0, len(channels))
	for _, ch := range channels {
		response = append(response, channelResponse{ChannelID: ch.ChannelID, ChannelName: ch.ChannelName, Count: ch.Count})
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) GetByHour(c *gin.Context) {
	filter, ok := bindRange(c)
	if !ok {
		return
	}

	hours, err := h.statsRepo.ByHour(c.Request.Context(), filter)
	if err != nil {
		internalError(c, "get_by_hour", err)
		return
	}

	response := make([]hourResponse, 0, len(hours))
	for _, hc := range hours {
		response = append(response, hourResponse{Hour: hc.Hour, Count: hc.Count})
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) GetByWeekday(c *gin.Context) {
	filter, ok := bindRange(c)
	if !ok {
		return
	}

	weekdays, err := h.statsRepo.ByWeekday(c.Request.Context(), filter)
	if err != nil {
		internalError(c, "get_by_weekday", err)
		return
	}

	response := make([]weekdayResponse, 0, len(weekdays))
	for _, wc := range weekdays {
		response = append(response, weekdayResponse{Weekday: wc.Weekday, Count: wc.Count})
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) GetByMonth(c *gin.Context) {
	filter, ok := bindRange(c)
	if !ok {
		return
	}

	months, err := h.statsRepo.ByMonth(c.Request.Context(), filter)
	if err != nil {
		internalError(c, "get_by_month", err)
		return
	}

	response := make([]monthResponse, 0, len(months))
	for _, mc := range months {
		response = append(response, monthResponse{Year: mc.Year, Month: mc.Month, Count: mc.Count})
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) GetImportStatus(c *gin.Context) {
	status, err := h.importer.Status(c.Request.Context())
	if err != nil {
		internalError(c, "get_import_status", err)
		return
	}

	c.JSON(http.StatusOK, importStatusResponse{HasData: status.HasData})
}

func (h *Handler) Import(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxImportSize))
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			c.JSON(http.StatusRequestEntityTooLarge, errorResponse{
				Error:   "Payload Too Large",
				Message: fmt.Sprintf("Request body exceeds %d bytes.", maxBytesErr.Limit),
			})
			return
		}
		badRequest(c, "Failed to read request body.")
		return
	}

	result, err := h.importer.Run(c.Request.Context(), body)
	switch {
	case errors.Is(err, importer.ErrEmptyDocument):
		badRequest(c, "Request body must be non-empty HTML (text/html).")
		return
	case errors.Is(err, importer.ErrAlreadyHasData):
		c.JSON(http.StatusConflict, errorResponse{
			Error:   "Conflict",
			Message: "History data already exists. Clear it before importing again.",
		})
		return
	case err != nil:
		internalError(c, "import", err)
		return
	}

	c.JSON(http.StatusCreated, importResponse{Inserted: result.Inserted, Replaced: result.Replaced})
}

func (h *Handler) ClearData(c *gin.Context) {
	if err := h.importer.Clear(c.Request.Context()); err != nil {
		internalError(c, "clear_data", err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) GetServerInfo(c *gin.Context) {
	c.JSON(http.StatusOK, serverInfoResponse{BaseURL: h.baseURL()})
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   h.cfg.Version,
	}

	if count, err := h.historyRepo.Count(c.Request.Context()); err == nil {
		health["entries"] = count
	} else {
		slog.Error("Database error", "operation", "health_count", "error", err)
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) baseURL() string {
	if h.cfg.BaseUrl != "" {
		return h.cfg.BaseUrl
	}
	return lanBaseURL(h.cfg.Port)
}

func bindRange(c *gin.Context) (database.RangeFilter, bool) {
	var query rangeQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		badRequest(c, err.Error())
		return database.RangeFilter{}, false
	}

	filter, err := parseRange(query.From, query.To)
	if err != nil {
		badRequest(c, err.Error())
		return database.RangeFilter{}, false
	}

	return filter, true
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: "Bad Request", Message: message})
}

func internalError(c *gin.Context, operation string, err error) {
	slog.Error("Request failed", "operation", operation, "request_id", c.GetString(requestIDKey), "error", err)
	c.JSON(http.StatusInternalServerError, errorResponse{
		Error:   "Internal Server Error",
		Message: "An unexpected error occurred.",
	})
}
