package history

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"time"

	"github.com/lysyi3m/watch-history/app/database"
)

// Generator renders stored history as an RSS 2.0 document, newest first.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Run(info FeedInfo, entries []database.WatchEntry) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", info.Title, 4)
	g.writeElement(&buf, "link", info.Link, 4)
	g.writeElement(&buf, "description", "Recently watched videos", 4)

	if info.SelfLink != "" {
		buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(info.SelfLink)))
	}

	lastBuildDate := time.Now().UTC()
	if len(entries) > 0 {
		lastBuildDate = entries[0].WatchedAt
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("Watch-History/%s", info.Version), 4)

	for _, entry := range entries {
		g.writeItem(&buf, entry)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, entry database.WatchEntry) {
	buf.WriteString("    <item>\n")

	buf.WriteString("      <guid isPermaLink=\"false\">")
	xml.EscapeText(buf, []byte(fmt.Sprintf("watch-history-%d", entry.ID)))
	buf.WriteString("</guid>\n")

	title := entry.Title
	if title == "" {
		title = "Untitled"
	}
	g.writeElement(buf, "title", title, 6)
	g.writeElement(buf, "link", EntryLink(entry), 6)

	verb := "Watched"
	if entry.ActivityType == ActivityViewed {
		verb = "Viewed"
	}
	g.writeElement(buf, "description", fmt.Sprintf("%s on %s", verb, entry.ChannelName), 6)
	g.writeElement(buf, "pubDate", entry.WatchedAt.Format(time.RFC1123Z), 6)
	g.writeElement(buf, "category", entry.ChannelName, 6)

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

// EntryLink points at the watch page when an id is known, otherwise at the
// URL recorded in the export.
func EntryLink(entry database.WatchEntry) string {
	if entry.VideoID != nil {
		return "https://www.youtube.com/watch?v=" + *entry.VideoID
	}
	if entry.SourceURL != nil {
		return *entry.SourceURL
	}
	return ""
}
