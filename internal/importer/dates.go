package importer

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/example/attendance-engine/internal/interval"
)

type datePattern struct {
	re               *regexp.Regexp
	year, month, day int
}

var datePatterns = []datePattern{
	{re: regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`), year: 1, month: 2, day: 3},
	{re: regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4}|\d{2})\b`), year: 3, month: 1, day: 2},
	{re: regexp.MustCompile(`\b(\d{1,2})-(\d{1,2})-(\d{4}|\d{2})\b`), year: 3, month: 1, day: 2},
}

// ExtractDate finds the first date in label. The returned description is
// the label without the date and without leading punctuation.
func ExtractDate(label string) (interval.Date, string, bool) {
	for _, p := range datePatterns {
		loc := p.re.FindStringSubmatchIndex(label)
		if loc == nil {
			continue
		}
		group := func(n int) string { return label[loc[2*n]:loc[2*n+1]] }
		date, ok := buildDate(group(p.year), group(p.month), group(p.day))
		if !ok {
			continue
		}
		return date, describe(label[:loc[0]] + " " + label[loc[1]:]), true
	}
	return interval.Date{}, describe(label), false
}

func buildDate(yearText, monthText, dayText string) (interval.Date, bool) {
	year, err := strconv.Atoi(yearText)
	if err != nil {
		return interval.Date{}, false
	}
	if len(yearText) == 2 {
		year += 2000
	}
	month, err := strconv.Atoi(monthText)
	if err != nil || month < 1 || month > 12 {
		return interval.Date{}, false
	}
	day, err := strconv.Atoi(dayText)
	if err != nil || day < 1 {
		return interval.Date{}, false
	}
	date := interval.NewDate(year, time.Month(month), day)
	if date.Day != day {
		return interval.Date{}, false
	}
	return date, true
}

func describe(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	text = strings.TrimLeftFunc(text, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
	return strings.TrimRight(text, " ,;:-")
}

// InferDates fills the zero entries of dates from their dated neighbours:
// the floor midpoint when both sides have a date, the day after the
// previous or the day before the next when only one does. Entries with no
// dated neighbour stay zero. The returned slice marks inferred entries.
func InferDates(dates []interval.Date) []bool {
	inferred := make([]bool, len(dates))
	known := make([]interval.Date, len(dates))
	copy(known, dates)

	for i := range dates {
		if !known[i].IsZero() {
			continue
		}
		prev, hasPrev := nearest(known, i, -1)
		next, hasNext := nearest(known, i, 1)
		switch {
		case hasPrev && hasNext:
			dates[i] = prev.AddDays(floorDiv(prev.DaysUntil(next), 2))
		case hasPrev:
			dates[i] = prev.AddDays(1)
		case hasNext:
			dates[i] = next.AddDays(-1)
		default:
			continue
		}
		inferred[i] = true
	}
	return inferred
}

func nearest(dates []interval.Date, from, step int) (interval.Date, bool) {
	for i := from + step; i >= 0 && i < len(dates); i += step {
		if !dates[i].IsZero() {
			return dates[i], true
		}
	}
	return interval.Date{}, false
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
