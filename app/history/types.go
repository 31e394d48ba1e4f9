package history

import "time"

const (
	ActivityWatch  = "watch"
	ActivityViewed = "viewed"
)

// Entry is one activity block extracted from a Takeout export
type Entry struct {
	VideoID      string // empty when the URL carries no recognisable id
	Title        string
	ChannelID    string
	ChannelName  string
	WatchedAt    time.Time // always UTC
	ActivityType string
	SourceURL    string // original URL, set only when VideoID is empty
}

// rawBlock holds the captured groups of one structural match, before any
// decoding or validation.
type rawBlock struct {
	verb        string
	url         string
	title       string
	channelID   string
	channelName string
	date        string
}

// FeedInfo describes the channel of a generated history feed
type FeedInfo struct {
	Title    string
	Link     string
	SelfLink string
	Version  string
}
