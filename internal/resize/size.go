package resize

import (
	"fmt"
	"strconv"
	"strings"
)

// Size is one configured target bounding box. Raw is the string as
// configured and is what appears in resized object names. A zero Width or
// Height means "auto": that axis is not constrained.
type Size struct {
	Raw    string
	Width  int
	Height int
}

// ParseSize parses "W,H" or "WxH". Each half is a base-10 integer or "auto".
// Values are not checked for positivity here.
func ParseSize(s string) (Size, error) {
	var parts []string
	switch {
	case strings.Contains(s, ","):
		parts = strings.SplitN(s, ",", 2)
	case strings.Contains(s, "x"):
		parts = strings.SplitN(s, "x", 2)
	default:
		return Size{}, fmt.Errorf("%w: %q", ErrMalformedSize, s)
	}

	width, err := parseDimension(parts[0])
	if err != nil {
		return Size{}, fmt.Errorf("%w: %q: width: %w", ErrMalformedSize, s, err)
	}
	height, err := parseDimension(parts[1])
	if err != nil {
		return Size{}, fmt.Errorf("%w: %q: height: %w", ErrMalformedSize, s, err)
	}
	return Size{Raw: s, Width: width, Height: height}, nil
}

func parseDimension(s string) (int, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "auto") {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// SplitSizeList splits the IMG_SIZES deployment value. Entries are
// ';'-separated when the value contains ';' (which allows "W,H" entries);
// otherwise ',' and whitespace both separate entries ("200x200,400x400").
// Empty entries are dropped.
func SplitSizeList(list string) []string {
	var fields []string
	if strings.Contains(list, ";") {
		fields = strings.Split(list, ";")
	} else {
		fields = strings.FieldsFunc(list, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t' || r == '\n'
		})
	}

	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// UniqueSizes drops repeated sizes, keeping the first occurrence and the
// original order. Duplicates would resize twice and upload to the same key.
func UniqueSizes(sizes []string) []string {
	seen := make(map[string]bool, len(sizes))
	out := make([]string, 0, len(sizes))
	for _, s := range sizes {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
