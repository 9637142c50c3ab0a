package utils

import (
	"time"
	"unicode/utf8"
)

// OrDefault returns def when v is the zero value of its type.
func OrDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

// PositiveDuration returns def for zero and negative durations.
func PositiveDuration(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// SliceUTF16 cuts s by offset and length measured in UTF-16 code units,
// which is how the Bot API reports message entities.
func SliceUTF16(s string, offset, length int) string {
	if offset < 0 {
		offset = 0
	}
	if length <= 0 || s == "" {
		return ""
	}
	start := utf16OffsetToByteIndex(s, offset)
	end := utf16OffsetToByteIndex(s, offset+length)
	if start >= end {
		return ""
	}
	return s[start:end]
}

func utf16OffsetToByteIndex(s string, offset int) int {
	if offset <= 0 {
		return 0
	}
	units := 0
	for i, r := range s {
		if units >= offset {
			return i
		}
		if r >= 0x10000 && r <= utf8.MaxRune {
			units += 2
		} else {
			units++
		}
	}
	return len(s)
}
