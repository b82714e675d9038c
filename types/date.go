package types

import (
	"encoding/json"
	"phenotips.org/pedigree/utils"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	dateYearKey       = "year"
	dateMonthKey      = "month"
	dateDayKey        = "day"
	dateRangeKey      = "range"
	dateRangeYearsKey = "years"

	// deprecated encodings
	dateDecadeKey = "decade"
	dateLowKey    = "low"
	dateHighKey   = "high"

	DecadeRangeYears = 10

	minMonth = 1
	maxMonth = 12
	minDay   = 1
	maxDay   = 31
)

var (
	// "1920s", "1990", "1990-05", "1990-01-21", "1990s-01-01"
	dateStringPattern = regexp.MustCompile(`(\d\d\d\d)(s)?(-(\d\d)(-(\d\d))?)?`)
	decadePattern     = regexp.MustCompile(`(\d\d\d\d)s`)
)

// DateEstimate is a partially known calendar date. Zero fields are unknown,
// RangeYears of 0 means the year is exact.
type DateEstimate struct {
	Year       int
	Month      int
	Day        int
	RangeYears int
}

// ParseDate accepts either a date object or a date string.
func ParseDate(v interface{}) DateEstimate {
	switch value := v.(type) {
	case map[string]interface{}:
		return ParseDateJSON(value)
	case string:
		trimmed := strings.TrimSpace(value)
		if strings.HasPrefix(trimmed, "{") {
			// an object that does not decode is unreadable, not a date string
			obj, ok := decodeDateObject(trimmed)
			if !ok {
				return DateEstimate{}
			}
			return ParseDateJSON(obj)
		}
		return ParseDateString(trimmed)
	}
	return DateEstimate{}
}

// ParseDateJSON reads the current {year, month, day, range:{years}} encoding as
// well as the deprecated {decade:"1980s"} and {low, high} encodings.
// Unreadable or out-of-range parts are dropped.
func ParseDateJSON(obj map[string]interface{}) DateEstimate {
	var date DateEstimate
	if obj == nil {
		return date
	}
	_, hasYear := obj[dateYearKey]

	if year, ok := utils.AsInt(obj[dateYearKey]); ok {
		date.Year = year
		if rangeObj, ok := obj[dateRangeKey].(map[string]interface{}); ok {
			if years, ok := utils.AsInt(rangeObj[dateRangeYearsKey]); ok && years > 0 {
				date.RangeYears = years
			}
		}
	}
	if !hasYear {
		if decade, ok := obj[dateDecadeKey].(string); ok {
			if m := decadePattern.FindStringSubmatch(decade); m != nil {
				date.Year, _ = strconv.Atoi(m[1])
				date.RangeYears = DecadeRangeYears
			}
		} else if low, ok := utils.AsInt(obj[dateLowKey]); ok {
			date.Year = low
			if high, ok := utils.AsInt(obj[dateHighKey]); ok && high > low {
				date.RangeYears = high - low + 1
			}
		}
	}
	date.Month = intInRange(obj[dateMonthKey], minMonth, maxMonth)
	date.Day = intInRange(obj[dateDayKey], minDay, maxDay)
	return date
}

// ParseDateString reads "yyyy[s][-mm[-dd]]" where a trailing "s" on the year
// marks a decade.
func ParseDateString(s string) DateEstimate {
	m := dateStringPattern.FindStringSubmatch(s)
	if m == nil {
		return DateEstimate{}
	}
	var date DateEstimate
	date.Year, _ = strconv.Atoi(m[1])
	date.Month = intInRange(m[4], minMonth, maxMonth)
	date.Day = intInRange(m[6], minDay, maxDay)
	if m[2] != "" {
		date.RangeYears = DecadeRangeYears
	}
	return date
}

func DateFromTime(t time.Time) DateEstimate {
	return DateEstimate{
		Year:  t.Year(),
		Month: int(t.Month()),
		Day:   t.Day(),
	}
}

func (date DateEstimate) IsEmpty() bool {
	return date.Year == 0 && date.Month == 0 && date.Day == 0
}

// ToJSON always renders the current encoding, whatever the date was parsed from.
func (date DateEstimate) ToJSON() map[string]interface{} {
	result := map[string]interface{}{}
	if date.Year != 0 {
		result[dateYearKey] = date.Year
	}
	if date.Month != 0 {
		result[dateMonthKey] = date.Month
	}
	if date.Day != 0 {
		result[dateDayKey] = date.Day
	}
	if date.Year != 0 && date.RangeYears > 0 {
		result[dateRangeKey] = map[string]interface{}{dateRangeYearsKey: date.RangeYears}
	}
	return result
}

// String is the as-entered text form: compact JSON of ToJSON with sorted keys.
func (date DateEstimate) String() string {
	b, err := json.Marshal(date.ToJSON())
	if err != nil {
		panic(err)
	}
	return string(b)
}

// EarliestTime is the first day the estimate may stand for. It is false when
// the year is unknown.
func (date DateEstimate) EarliestTime() (time.Time, bool) {
	if date.Year == 0 {
		return time.Time{}, false
	}
	month, day := 1, 1
	if date.Month != 0 {
		month = date.Month
		if date.Day != 0 {
			day = date.Day
		}
	}
	return time.Date(date.Year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}

// Format renders EarliestTime with layout, or "" when the year is unknown.
func (date DateEstimate) Format(layout string) string {
	t, ok := date.EarliestTime()
	if !ok {
		return ""
	}
	return t.Format(layout)
}

func intInRange(v interface{}, min, max int) int {
	n, ok := utils.AsInt(v)
	if !ok || n < min || n > max {
		return 0
	}
	return n
}

func decodeDateObject(s string) (map[string]interface{}, bool) {
	var obj map[string]interface{}
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, false
	}
	return obj, true
}
