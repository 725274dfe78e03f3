package feed

import (
	"bytes"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/mmcdole/gofeed"
)

var buildDateLayouts = []string{
	time.RFC1123Z,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
}

// rfc822Zones maps the named zones RFC 822 allows to their fixed offsets in
// hours. time.Parse would read any of them it does not know as UTC.
var rfc822Zones = map[string]int{
	"UT":  0,
	"UTC": 0,
	"GMT": 0,
	"Z":   0,
	"EST": -5,
	"EDT": -4,
	"CST": -6,
	"CDT": -5,
	"MST": -7,
	"MDT": -6,
	"PST": -8,
	"PDT": -7,
}

// Watermark returns the lastBuildDate recorded in a feed document, in UTC.
// ok is false when the document is absent, unparseable, or carries no build
// date; callers must then treat every candidate source item as new.
func Watermark(data []byte) (time.Time, bool) {
	if len(bytes.TrimSpace(data)) == 0 {
		return time.Time{}, false
	}

	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return time.Time{}, false
	}

	return lastBuildDate(parsed)
}

// lastBuildDate maps to gofeed's Updated field, which the RSS translator fills from <lastBuildDate>.
func lastBuildDate(parsed *gofeed.Feed) (time.Time, bool) {
	raw := strings.TrimSpace(parsed.Updated)
	if raw == "" {
		return time.Time{}, false
	}

	numeric, named := withNumericZone(raw)
	for _, layout := range buildDateLayouts {
		if t, err := time.Parse(layout, numeric); err == nil {
			return t.UTC(), true
		}
	}

	// An unrecognised zone name has no known offset.
	if named {
		return time.Time{}, false
	}

	if parsed.UpdatedParsed != nil {
		return parsed.UpdatedParsed.UTC(), true
	}

	return time.Time{}, false
}

// withNumericZone rewrites a trailing RFC 822 zone name as a numeric offset.
// named reports whether raw ends in an alphabetic zone, known or not.
func withNumericZone(raw string) (string, bool) {
	idx := strings.LastIndexByte(raw, ' ')
	if idx < 0 {
		return raw, false
	}

	zone := raw[idx+1:]
	if zone == "" || strings.IndexFunc(zone, func(r rune) bool { return !unicode.IsLetter(r) }) >= 0 {
		return raw, false
	}

	hours, ok := rfc822Zones[strings.ToUpper(zone)]
	if !ok {
		return raw, true
	}

	sign := '+'
	if hours < 0 {
		sign = '-'
		hours = -hours
	}
	return fmt.Sprintf("%s %c%02d00", raw[:idx], sign, hours), true
}
