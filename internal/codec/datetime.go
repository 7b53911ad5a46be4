package codec

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Date layouts accepted from grid cells, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"02.01.2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
}

// EncodeDate converts a spreadsheet date value or parseable date string
// into the remote "YYYY-MM-DD" form.
func EncodeDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("unrecognized date %q", raw)
}

// DecodeDate renders a remote "YYYY-MM-DD" value for display. Values that
// fail to parse are passed through unchanged.
func DecodeDate(raw string) string {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.Format("2006-01-02")
	}
	return raw
}

// EncodeTime converts a time-of-day cell value into the remote "HH:MM:SS"
// form: single-digit hours are zero-padded, missing seconds default to
// "00", and 12-hour AM/PM values are converted to 24-hour first.
func EncodeTime(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("empty time")
	}

	upper := strings.ToUpper(s)
	meridiem := ""
	for _, suffix := range []string{"AM", "PM", "A.M.", "P.M."} {
		if strings.HasSuffix(upper, suffix) {
			meridiem = string(suffix[0])
			s = strings.TrimSpace(s[:len(s)-len(suffix)])
			break
		}
	}

	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return "", fmt.Errorf("unrecognized time %q", raw)
	}

	hour, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return "", fmt.Errorf("unrecognized time %q", raw)
	}
	minute, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return "", fmt.Errorf("unrecognized time %q", raw)
	}
	second := 0
	if len(parts) == 3 {
		second, err = strconv.Atoi(strings.TrimSpace(parts[2]))
		if err != nil {
			return "", fmt.Errorf("unrecognized time %q", raw)
		}
	}

	switch meridiem {
	case "P":
		if hour < 12 {
			hour += 12
		}
	case "A":
		if hour == 12 {
			hour = 0
		}
	}

	if hour < 0 || hour > 23 || minute < 0 || minute > 59 || second < 0 || second > 59 {
		return "", fmt.Errorf("time %q out of range", raw)
	}

	return fmt.Sprintf("%02d:%02d:%02d", hour, minute, second), nil
}
