package utils

import (
	"math"
	"strconv"
	"strings"
)

func strconvFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// AsInt accepts both numeric and string encodings of an integer, the way
// stored JSON mixes them.
func AsInt(v interface{}) (int, bool) {
	switch value := v.(type) {
	case float64:
		if value != math.Trunc(value) {
			return 0, false
		}
		return int(value), true
	case int:
		return value, true
	case int64:
		return int(value), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
