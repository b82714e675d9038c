package utils

import (
	"github.com/twmb/murmur3"
	"strings"
)

func HashString(s string) uint64 {
	return HashBytes([]byte(s))
}

func HashBytes(bytes ...[]byte) uint64 {
	hash := murmur3.New64()
	for _, b := range bytes {
		_, err := hash.Write(b)
		if err != nil {
			panic(err)
		}
	}
	return hash.Sum64()
}

// IsBlank reports whether v is nil, a whitespace-only string, or an empty
// JSON array or object. Any other value counts as filled.
func IsBlank(v interface{}) bool {
	switch value := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(value) == ""
	case []interface{}:
		return len(value) == 0
	case map[string]interface{}:
		return len(value) == 0
	}
	return false
}

// AsString returns the trimmed string form of a JSON scalar, or "" for
// anything that is not a string or a number.
func AsString(v interface{}) string {
	switch value := v.(type) {
	case string:
		return strings.TrimSpace(value)
	case float64:
		return strings.TrimSpace(strconvFloat(value))
	case int:
		return strings.TrimSpace(strconvFloat(float64(value)))
	}
	return ""
}

func ContainsString(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
