package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a dot-separated numeric version. Missing components compare
// as zero, so 1.7 and 1.7.0 are equal.
type Version []int

// ParseVersion parses strings like "1.7.0", "v2.0" or "1.7.0-beta".
// Each component keeps its leading digit run; the first component must be
// numeric, later non-numeric components end the parse.
func ParseVersion(s string) (Version, error) {
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimPrefix(trimmed, "v")
	if trimmed == "" {
		return nil, fmt.Errorf("empty version")
	}

	var v Version
	for i, part := range strings.Split(trimmed, ".") {
		digits := leadingDigits(part)
		if digits == "" {
			if i == 0 {
				return nil, fmt.Errorf("invalid version %q", s)
			}
			break
		}
		n, err := strconv.Atoi(digits)
		if err != nil {
			return nil, fmt.Errorf("invalid version %q: %w", s, err)
		}
		v = append(v, n)
	}
	if len(v) == 0 {
		return nil, fmt.Errorf("invalid version %q", s)
	}
	return v, nil
}

// Compare returns -1, 0 or 1 depending on whether v is older than, equal to
// or newer than other.
func (v Version) Compare(other Version) int {
	n := len(v)
	if len(other) > n {
		n = len(other)
	}
	for i := 0; i < n; i++ {
		a, b := 0, 0
		if i < len(v) {
			a = v[i]
		}
		if i < len(other) {
			b = other[i]
		}
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
	}
	return 0
}

// Older reports whether v is strictly older than other.
func (v Version) Older(other Version) bool {
	return v.Compare(other) < 0
}

func (v Version) String() string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

func leadingDigits(s string) string {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return s[:end]
}
