package pedigree

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyPedigree        = errors.New("pedigree data is empty")
	ErrUnsupportedFormat    = errors.New("unsupported pedigree format")
	ErrUnsupportedOperation = errors.New("operation is not supported by the pedigree format")
)

type Format int

const (
	FormatUnknown Format = iota
	// FormatLegacy nests member properties under the nodes of a "members" or "GG" array.
	FormatLegacy
	// FormatFlat keeps one flat object per member in a "data" array.
	FormatFlat
)

const (
	legacyMembersKey = "members"
	legacyGraphKey   = "GG"
	flatDataKey      = "data"
)

func (format Format) String() string {
	switch format {
	case FormatLegacy:
		return "legacy"
	case FormatFlat:
		return "flat"
	}
	return "unknown"
}

// DetectFormat classifies a pedigree by its top-level keys only.
func DetectFormat(data map[string]interface{}) (Format, error) {
	if _, ok := data[legacyMembersKey]; ok {
		return FormatLegacy, nil
	}
	if _, ok := data[legacyGraphKey]; ok {
		return FormatLegacy, nil
	}
	if _, ok := data[flatDataKey].([]interface{}); ok {
		return FormatFlat, nil
	}
	return FormatUnknown, fmt.Errorf("%w: neither %q nor %q is present", ErrUnsupportedFormat, legacyMembersKey, flatDataKey)
}
