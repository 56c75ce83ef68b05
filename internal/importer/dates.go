package importer

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var (
	timeOfDay = regexp.MustCompile(`\d{1,2}:\d{2}(?::\d{2})?(?:\.\d+)?`)
	dateToken = regexp.MustCompile(`\d+|\pL+`)
)

// dateFields are the calendar parts written in a date string: its numbers
// and month names, with any time of day left out.
type dateFields struct {
	numbers []string
	months  []time.Month
}

func scanDate(s string) dateFields {
	var f dateFields
	for _, tok := range dateToken.FindAllString(timeOfDay.ReplaceAllString(s, " "), -1) {
		if tok[0] >= '0' && tok[0] <= '9' {
			f.numbers = append(f.numbers, tok)
		} else if m, ok := monthName(tok); ok {
			f.months = append(f.months, m)
		}
	}
	return f
}

// parts counts the year, month and day components present. A run of eight
// digits such as 20190315 carries all three.
func (f dateFields) parts() int {
	n := len(f.months)
	for _, num := range f.numbers {
		if len(num) == 8 {
			n += 3
		} else {
			n++
		}
	}
	return n
}

// yearMonth reads a date made of exactly a four-digit year and a month, in
// either order and with any separator.
func (f dateFields) yearMonth() (int, time.Month, bool) {
	switch {
	case len(f.months) == 1 && len(f.numbers) == 1 && len(f.numbers[0]) == 4:
		year, _ := strconv.Atoi(f.numbers[0])
		return year, f.months[0], true
	case len(f.months) == 0 && len(f.numbers) == 2:
		yi, mi := 0, 1
		if len(f.numbers[1]) == 4 {
			yi, mi = 1, 0
		}
		if len(f.numbers[yi]) != 4 || len(f.numbers[mi]) > 2 {
			return 0, 0, false
		}
		year, _ := strconv.Atoi(f.numbers[yi])
		month, _ := strconv.Atoi(f.numbers[mi])
		if month < 1 || month > 12 {
			return 0, 0, false
		}
		return year, time.Month(month), true
	}
	return 0, 0, false
}

// monthName matches English month names and their abbreviations of at
// least three letters.
func monthName(tok string) (time.Month, bool) {
	if len(tok) < 3 {
		return 0, false
	}
	tok = strings.ToLower(tok)
	for m := time.January; m <= time.December; m++ {
		if strings.HasPrefix(strings.ToLower(m.String()), tok) {
			return m, true
		}
	}
	return 0, false
}

// parseIssueDate reads the year, month and day of an issue date. Year and
// month are required; the day defaults to 1 when s only carries a year and
// month, whatever their format.
func parseIssueDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	f := scanDate(s)
	switch {
	case f.parts() < 2:
		return time.Time{}, false
	case f.parts() == 2:
		year, month, ok := f.yearMonth()
		if !ok {
			return time.Time{}, false
		}
		return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC), true
	}
	return parseFullDate(s)
}

// parseFullDate parses s as a complete calendar date. Partial dates such as a
// bare year or a year and month are rejected in every format.
func parseFullDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if scanDate(s).parts() < 3 {
		return time.Time{}, false
	}
	t, err := dateparse.ParseStrict(s)
	if err != nil || t.Year() == 0 {
		return time.Time{}, false
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC), true
}

// leadingInt returns the integer formed by the leading digits of s, or 0.
func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, _ := strconv.Atoi(s[:end])
	return n
}
