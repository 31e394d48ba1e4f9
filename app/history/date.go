package history

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Takeout writes dates like "1 de jan. de 2024, 12:00:00 BRT". Spaces may be
// any Unicode space separator.
var datePattern = regexp.MustCompile(`(?i)` +
	`(\d{1,2})[\s\p{Zs}]+de[\s\p{Zs}]+(\p{L}+)\.?[\s\p{Zs}]+de[\s\p{Zs}]+(\d{4}),[\s\p{Zs}]+` +
	`(\d{1,2}):(\d{2}):(\d{2})[\s\p{Zs}]+(BRT|UTC|GMT)`)

var months = map[string]time.Month{
	"jan": time.January,
	"fev": time.February,
	"mar": time.March,
	"abr": time.April,
	"mai": time.May,
	"jun": time.June,
	"jul": time.July,
	"ago": time.August,
	"set": time.September,
	"out": time.October,
	"nov": time.November,
	"dez": time.December,
}

// brt has no daylight saving
var brt = time.FixedZone("BRT", -3*60*60)

func zone(abbr string) *time.Location {
	if strings.EqualFold(abbr, "BRT") {
		return brt
	}
	return time.UTC
}

// parseWatchedAt reads a Takeout timestamp and returns it in UTC.
func parseWatchedAt(text string) (time.Time, bool) {
	m := datePattern.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}

	month, ok := lookupMonth(m[2])
	if !ok {
		return time.Time{}, false
	}

	var fields [5]int
	for i, s := range []string{m[1], m[3], m[4], m[5], m[6]} {
		n, err := strconv.Atoi(s)
		if err != nil {
			return time.Time{}, false
		}
		fields[i] = n
	}
	day, year, hour, minute, second := fields[0], fields[1], fields[2], fields[3], fields[4]

	t := time.Date(year, month, day, hour, minute, second, 0, zone(m[7]))

	// time.Date normalises overflow; reject anything that did not round-trip
	if t.Year() != year || t.Month() != month || t.Day() != day ||
		t.Hour() != hour || t.Minute() != minute || t.Second() != second {
		return time.Time{}, false
	}

	return t.UTC(), true
}

// lookupMonth matches on the first three letters, ignoring case and accents,
// so "jan", "Jan." and "março" are all accepted.
func lookupMonth(token string) (time.Month, bool) {
	folded := cases.Lower(language.Portuguese).String(stripMarks(token))
	if len([]rune(folded)) < 3 {
		return 0, false
	}

	month, ok := months[string([]rune(folded)[:3])]
	return month, ok
}

func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return result
}
