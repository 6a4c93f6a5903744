package releaseorder

import (
	"strings"
	"time"
)

// NBSP is the static rendering of an empty value. It keeps the layout box
// height of the control it replaces.
const NBSP = "\u00a0"

const (
	isoDateLayout     = "2006-01-02"
	displayDateLayout = "02.01.2006"
)

var dateInputLayouts = []string{
	isoDateLayout,
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
}

// ParseDate parses the date values produced by date inputs and pickers.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateInputLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// FormatDisplayDate renders a date value as dd.mm.yyyy. Empty values render
// as NBSP; unparseable values pass through unchanged.
func FormatDisplayDate(value string) string {
	if strings.TrimSpace(value) == "" {
		return NBSP
	}
	parsed, ok := ParseDate(value)
	if !ok {
		return value
	}
	return parsed.Format(displayDateLayout)
}

// StaticText renders a text value, substituting NBSP for empty values.
func StaticText(value string) string {
	if value == "" {
		return NBSP
	}
	return value
}
