package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/lysyi3m/watch-history/app/database"
)

const (
	defaultPage          = 1
	defaultListLimit     = 50
	maxListLimit         = 100
	defaultChannelsLimit = 10
	maxChannelsLimit     = 50
)

const dateOnlyLayout = "2006-01-02"

// clamp applies def when v is unset and bounds the result to [lo, hi].
// hi <= 0 means no upper bound.
func clamp(v *int, def, lo, hi int) int {
	n := def
	if v != nil {
		n = *v
	}
	if n < lo {
		n = lo
	}
	if hi > 0 && n > hi {
		n = hi
	}
	return n
}

// parseDate accepts YYYY-MM-DD or RFC 3339. A bare date used as an upper
// bound covers the whole UTC day.
func parseDate(name, value string, endOfDay bool) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	if t, err := time.Parse(dateOnlyLayout, value); err == nil {
		if endOfDay {
			t = t.Add(24*time.Hour - time.Second)
		}
		return &t, nil
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("%s must be a date (YYYY-MM-DD) or an RFC 3339 timestamp", name)
	}
	t = t.UTC()
	return &t, nil
}

func parseRange(from, to string) (database.RangeFilter, error) {
	var filter database.RangeFilter
	var err error

	if filter.From, err = parseDate("from", from, false); err != nil {
		return filter, err
	}
	if filter.To, err = parseDate("to", to, true); err != nil {
		return filter, err
	}
	return filter, nil
}

// splitChannelIDs accepts both channelIds=a,b and repeated channelIds params.
func splitChannelIDs(values []string) []string {
	var ids []string
	seen := map[string]bool{}

	for _, value := range values {
		for _, id := range strings.Split(value, ",") {
			id = strings.TrimSpace(id)
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
	}

	return ids
}
