// Package timeparse extracts Russian natural-language time expressions
// embedded in note text and resolves them to absolute timestamps.
//
// A fixed, ordered list of phrase patterns is tried against the
// lower-cased input; the first pattern that matches anywhere in the text
// wins, and its matched fragment is resolved relative to a reference
// time with a bias toward future interpretations. If resolution of that
// fragment fails, the extraction as a whole yields nothing: later
// patterns are not tried as fallback.
package timeparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

type patternKind int

const (
	kindRelativeOffset patternKind = iota // "через N минут/часов/дней/..."
	kindTodayAt                           // "сегодня в 18[:30]"
	kindTomorrowAt                        // "завтра в 10[:00]"
	kindAfterTomorrowAt                   // "послезавтра в 9[:15]"
	kindHourWithPeriod                    // "10[:30] утра", "6 вечера"
	kindBareAt                            // "в 10[:00]"
	kindInAnHour                          // "через час"
	kindInAMinute                         // "через минуту"
)

// wordBreak keeps "завтра" from matching inside "послезавтра" and
// "в 10" from matching inside a longer Cyrillic word.
const wordBreak = `(?:^|[^а-яё])`

// clockTail admits a 1-2 digit hour with an optional :MM part. Hours are
// not range-validated by the pattern; the resolver rejects out-of-range
// values by failing, which surfaces as "no reminder".
const clockTail = `(\d{1,2})(?::(\d{2}))?`

type pattern struct {
	kind patternKind
	re   *regexp.Regexp
}

// patterns is the fixed priority order. Earlier entries win even when a
// later one would also match.
var patterns = []pattern{
	{kindRelativeOffset, regexp.MustCompile(`через (\d+) (минут|минуту|час|часов|день|дня|дней|неделю|недели|недель|месяц|месяца|месяцев)`)},
	{kindTodayAt, regexp.MustCompile(wordBreak + `сегодня в ` + clockTail)},
	{kindTomorrowAt, regexp.MustCompile(wordBreak + `завтра в ` + clockTail)},
	{kindAfterTomorrowAt, regexp.MustCompile(wordBreak + `послезавтра в ` + clockTail)},
	{kindHourWithPeriod, regexp.MustCompile(clockTail + ` (утра|вечера|дня|ночи)`)},
	{kindBareAt, regexp.MustCompile(wordBreak + `в ` + clockTail)},
	{kindInAnHour, regexp.MustCompile(`через час`)},
	{kindInAMinute, regexp.MustCompile(`через минуту`)},
}

// Extract scans text for the first matching time expression and resolves
// it relative to now. The boolean is false when no pattern matches or
// when the matched fragment does not resolve to a valid time.
func Extract(text string, now time.Time) (time.Time, bool) {
	lowered := strings.ToLower(text)

	for _, p := range patterns {
		m := p.re.FindStringSubmatch(lowered)
		if m == nil {
			continue
		}
		// First syntactic match wins: a failed resolution here must not
		// fall through to later patterns.
		return resolve(p.kind, m, now)
	}

	return time.Time{}, false
}

func resolve(kind patternKind, m []string, now time.Time) (time.Time, bool) {
	switch kind {
	case kindRelativeOffset:
		return resolveRelativeOffset(m[1], m[2], now)
	case kindTodayAt:
		return resolveDayAt(0, m[1], m[2], now)
	case kindTomorrowAt:
		return resolveDayAt(1, m[1], m[2], now)
	case kindAfterTomorrowAt:
		return resolveDayAt(2, m[1], m[2], now)
	case kindHourWithPeriod:
		return resolveHourWithPeriod(m[1], m[2], m[3], now)
	case kindBareAt:
		return resolveBareAt(m[1], m[2], now)
	case kindInAnHour:
		return now.Add(time.Hour), true
	case kindInAMinute:
		return now.Add(time.Minute), true
	}
	return time.Time{}, false
}

// resolveRelativeOffset handles "через N <unit>". The pattern admits
// the singular, paucal and plural case forms of each unit; prefix
// matching folds the forms of one unit onto a single branch.
func resolveRelativeOffset(nStr, unit string, now time.Time) (time.Time, bool) {
	n, err := strconv.Atoi(nStr)
	if err != nil {
		return time.Time{}, false
	}

	switch {
	case strings.HasPrefix(unit, "минут"):
		return now.Add(time.Duration(n) * time.Minute), true
	case strings.HasPrefix(unit, "час"):
		return now.Add(time.Duration(n) * time.Hour), true
	case strings.HasPrefix(unit, "день"), strings.HasPrefix(unit, "дн"):
		return now.AddDate(0, 0, n), true
	case strings.HasPrefix(unit, "недел"):
		return now.AddDate(0, 0, 7*n), true
	case strings.HasPrefix(unit, "месяц"):
		return now.AddDate(0, n, 0), true
	}

	return time.Time{}, false
}

// resolveDayAt handles phrases with an explicit day word. The day is
// pinned: "сегодня в 6" stays today even if 6:00 already passed, matching
// how an explicit date anchor overrides the future preference.
func resolveDayAt(dayOffset int, hourStr, minStr string, now time.Time) (time.Time, bool) {
	hour, minute, ok := parseClock(hourStr, minStr, 23)
	if !ok {
		return time.Time{}, false
	}

	base := now.AddDate(0, 0, dayOffset)
	return time.Date(base.Year(), base.Month(), base.Day(), hour, minute, 0, 0, now.Location()), true
}

// resolveHourWithPeriod handles "10 утра", "6:30 вечера" and similar.
// Period words only make sense with a 1-12 hour; anything else fails.
func resolveHourWithPeriod(hourStr, minStr, period string, now time.Time) (time.Time, bool) {
	hour, minute, ok := parseClock(hourStr, minStr, 12)
	if !ok || hour == 0 {
		return time.Time{}, false
	}

	switch period {
	case "вечера", "дня":
		if hour < 12 {
			hour += 12
		}
	case "ночи":
		if hour == 12 {
			hour = 0
		}
	}
	// "утра" keeps the hour as written.

	t := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	return ensureFuture(t, now), true
}

// resolveBareAt handles "в 10", "в 18:30".
func resolveBareAt(hourStr, minStr string, now time.Time) (time.Time, bool) {
	hour, minute, ok := parseClock(hourStr, minStr, 23)
	if !ok {
		return time.Time{}, false
	}

	t := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	return ensureFuture(t, now), true
}

// parseClock validates the hour/minute fragments. minStr may be empty.
func parseClock(hourStr, minStr string, maxHour int) (hour, minute int, ok bool) {
	hour, err := strconv.Atoi(hourStr)
	if err != nil || hour > maxHour {
		return 0, 0, false
	}
	if minStr != "" {
		minute, err = strconv.Atoi(minStr)
		if err != nil || minute > 59 {
			return 0, 0, false
		}
	}
	return hour, minute, true
}

// ensureFuture shifts a same-day resolution to the next day once the
// moment has already passed. Applied only to phrases without an explicit
// day word.
func ensureFuture(t, now time.Time) time.Time {
	if !t.After(now) {
		return t.AddDate(0, 0, 1)
	}
	return t
}
