package ccda

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const hl7Layout = "20060102150405"

// layouts by digit count for the reduced HL7 TS precisions.
var hl7Layouts = map[int]string{
	4:  "2006",
	6:  "200601",
	8:  "20060102",
	10: "2006010215",
	12: "200601021504",
	14: hl7Layout,
}

// FormatTime renders t as a fourteen-digit HL7 timestamp in UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(hl7Layout)
}

// ParseTime decodes an HL7 TS value. It accepts the reduced precisions
// (YYYY, YYYYMM, YYYYMMDD, YYYYMMDDHH, YYYYMMDDHHmm, YYYYMMDDHHmmss),
// fractional seconds on the full form, and a trailing +HHMM/-HHMM offset.
// The result is always in UTC.
func ParseTime(s string) (time.Time, error) {
	raw := strings.TrimSpace(s)
	base := raw
	loc := time.UTC

	if i := strings.IndexAny(base, "+-"); i >= 0 {
		zone, err := parseOffset(base[i:])
		if err != nil {
			return time.Time{}, invalidTime(s)
		}
		loc = zone
		base = base[:i]
	}

	var frac time.Duration
	if i := strings.IndexByte(base, '.'); i >= 0 {
		digits := base[i+1:]
		base = base[:i]
		if len(base) != 14 || digits == "" || len(digits) > 9 || !isDigits(digits) {
			return time.Time{}, invalidTime(s)
		}
		n, _ := strconv.Atoi(digits + strings.Repeat("0", 9-len(digits)))
		frac = time.Duration(n)
	}

	layout, ok := hl7Layouts[len(base)]
	if !ok || !isDigits(base) {
		return time.Time{}, invalidTime(s)
	}
	t, err := time.ParseInLocation(layout, base, loc)
	if err != nil {
		return time.Time{}, invalidTime(s)
	}
	return t.Add(frac).UTC(), nil
}

func parseOffset(s string) (*time.Location, error) {
	if len(s) != 5 || !isDigits(s[1:]) {
		return nil, fmt.Errorf("bad offset %q", s)
	}
	hh, _ := strconv.Atoi(s[1:3])
	mm, _ := strconv.Atoi(s[3:5])
	if hh > 14 || mm > 59 {
		return nil, fmt.Errorf("bad offset %q", s)
	}
	secs := hh*3600 + mm*60
	if s[0] == '-' {
		secs = -secs
	}
	return time.FixedZone(s, secs), nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

func invalidTime(s string) error {
	return fmt.Errorf("ccda: invalid HL7 timestamp %q: %w", s, ErrValidation)
}
