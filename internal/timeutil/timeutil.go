// Package timeutil converts between "HH:MM" clock strings and minutes from
// midnight, and formats the labels the calendar UI renders.
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

const defaultCacheSize = 512

// Parser converts "HH:MM" strings to minutes from midnight with a bounded
// memo cache. The input domain is small and highly repetitive (a few dozen
// distinct timestamps across hundreds of blocks per render), so caching
// avoids re-parsing identical strings on every layout pass.
//
// Safe for concurrent use.
type Parser struct {
	mu    sync.Mutex
	cache map[string]int
	max   int
}

// NewParser creates a Parser whose cache holds at most maxEntries entries.
// maxEntries <= 0 selects a default size.
func NewParser(maxEntries int) *Parser {
	if maxEntries <= 0 {
		maxEntries = defaultCacheSize
	}
	return &Parser{
		cache: make(map[string]int, maxEntries),
		max:   maxEntries,
	}
}

// ToMinutes parses a "HH:MM" string into minutes from midnight. Empty or
// malformed input degrades to 0 rather than failing; rendering availability
// wins over strict validation here.
func (p *Parser) ToMinutes(t string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if v, ok := p.cache[t]; ok {
		return v
	}

	v := parseMinutes(t)

	// When full, drop everything rather than tracking recency. The domain
	// repeats within a single pass, so a refilled cache converges immediately.
	if len(p.cache) >= p.max {
		p.cache = make(map[string]int, p.max)
	}
	p.cache[t] = v
	return v
}

// parseMinutes is the uncached conversion.
func parseMinutes(t string) int {
	if t == "" {
		return 0
	}
	h, m, ok := strings.Cut(t, ":")
	if !ok {
		m = "0"
	}
	hours, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil {
		return 0
	}
	mins, err := strconv.Atoi(strings.TrimSpace(m))
	if err != nil {
		return 0
	}
	return hours*60 + mins
}

// ToTimeString renders minutes from midnight as zero-padded "HH:MM".
// No rounding is applied.
func ToTimeString(min int) string {
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

// FormatRange renders an "HH:MM - HH:MM" label for drawer headers.
func FormatRange(startMin, endMin int) string {
	return ToTimeString(startMin) + " - " + ToTimeString(endMin)
}

// FormatHour renders a 12-hour gutter label such as "7:00 AM" for the
// given minute mark.
func FormatHour(min int) string {
	h := min / 60
	ampm := "AM"
	if h >= 12 {
		ampm = "PM"
	}
	hr := (h+11)%12 + 1
	return fmt.Sprintf("%d:00 %s", hr, ampm)
}

// TimeOptions lists the selectable "HH:MM" values for the edit form:
// 5-minute steps from 07:00 through 19:00 inclusive.
func TimeOptions() []string {
	const (
		start = 7 * 60
		end   = 19 * 60
	)
	out := make([]string, 0, (end-start)/5+1)
	for m := start; m <= end; m += 5 {
		out = append(out, ToTimeString(m))
	}
	return out
}
