package history

import (
	"regexp"
	"strings"
)

var (
	blockPattern = regexp.MustCompile(`(?i)` +
		`(?P<verb>Watched|Viewed)\s+<a\s+href="(?P<url>https?://[^"]+)">(?P<title>[^<]*)</a>\s*<br>\s*` +
		`<a\s+href="https://www\.youtube\.com/channel/(?P<channel>UC[\w-]+)">(?P<name>[^<]*)</a><br>\s*` +
		`(?P<date>[^<]+(?:BRT|UTC|GMT)[^<]*)`)

	videoIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`[?&]v=([a-zA-Z0-9_-]{11})`),
		regexp.MustCompile(`youtu\.be/([a-zA-Z0-9_-]{11})`),
	}

	entityReplacer = strings.NewReplacer(
		"&#39;", "'",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&nbsp;", " ",
	)
)

// Parser extracts watch activity from a Takeout "watch-history.html"
// document. It holds no state and is safe for concurrent use.
type Parser struct{}

// NewParser creates a new Takeout history parser
func NewParser() *Parser {
	return &Parser{}
}

// Run returns every well-formed activity block in document order. Blocks
// that do not match the expected structure, or whose date cannot be read,
// are skipped.
func (p *Parser) Run(data []byte) []Entry {
	matches := blockPattern.FindAllSubmatch(data, -1)
	entries := make([]Entry, 0, len(matches))

	for _, match := range matches {
		entry, ok := p.convert(newRawBlock(match))
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}

	return entries
}

func newRawBlock(match [][]byte) rawBlock {
	group := func(name string) string {
		return string(match[blockPattern.SubexpIndex(name)])
	}

	return rawBlock{
		verb:        group("verb"),
		url:         group("url"),
		title:       group("title"),
		channelID:   group("channel"),
		channelName: group("name"),
		date:        group("date"),
	}
}

func (p *Parser) convert(block rawBlock) (Entry, bool) {
	watchedAt, ok := parseWatchedAt(block.date)
	if !ok {
		return Entry{}, false
	}

	entry := Entry{
		Title:        decodeEntities(block.title),
		ChannelID:    block.channelID,
		ChannelName:  decodeEntities(block.channelName),
		WatchedAt:    watchedAt,
		ActivityType: activityType(block.verb),
	}

	if videoID := extractVideoID(block.url); videoID != "" {
		entry.VideoID = videoID
	} else {
		entry.SourceURL = block.url
	}

	return entry, true
}

func activityType(verb string) string {
	if strings.EqualFold(verb, "viewed") {
		return ActivityViewed
	}
	return ActivityWatch
}

// extractVideoID returns the 11 character id of a watch or short link URL
func extractVideoID(url string) string {
	for _, pattern := range videoIDPatterns {
		if m := pattern.FindStringSubmatch(url); m != nil {
			return m[1]
		}
	}
	return ""
}

// decodeEntities decodes the handful of entities Takeout emits. Each
// occurrence is decoded once, so "&amp;lt;" becomes "&lt;".
func decodeEntities(s string) string {
	return strings.TrimSpace(entityReplacer.Replace(s))
}
