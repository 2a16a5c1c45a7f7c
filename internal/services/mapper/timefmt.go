package mapper

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	summaryLayout = "060102 03.04 PM"
	dateLayout    = "2006-01-02"
	hourLayout    = "3:04 PM"
)

var inputLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	dateLayout,
}

// TimeFormats are the three renderings of one shoot timestamp.
type TimeFormats struct {
	Summary string
	Date    string
	Hour    string
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range inputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Errorf("unrecognized timestamp %q", s)
}

// FormatTimes renders raw in loc. Unparseable or empty input yields zero formats.
func FormatTimes(raw string, loc *time.Location) TimeFormats {
	if raw == "" {
		return TimeFormats{}
	}
	t, err := parseTimestamp(raw)
	if err != nil {
		return TimeFormats{}
	}
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return TimeFormats{
		Summary: t.Format(summaryLayout),
		Date:    t.Format(dateLayout),
		Hour:    t.Format(hourLayout),
	}
}

func formatDate(raw string, loc *time.Location) string {
	return FormatTimes(raw, loc).Date
}
