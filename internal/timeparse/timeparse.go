// Package timeparse converts human time strings like "1h 30m" into minutes.
package timeparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	bareNumber = regexp.MustCompile(`^\d+$`)
	hoursPart  = regexp.MustCompile(`(?i)(\d+)\s*h(?:ours?)?`)
	minsPart   = regexp.MustCompile(`(?i)(\d+)\s*m(?:in(?:utes?)?)?`)
	anyNumber  = regexp.MustCompile(`\d+`)
)

// Minutes parses a duration string into whole minutes.
//
// Accepted forms: a bare number of minutes ("90"), hours ("2h", "2 hours"),
// minutes ("30m", "45 minutes"), or a combination ("1h 30m"). When no unit
// matches, the first number in the string is taken as minutes.
func Minutes(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("could not parse time string %q", s)
	}

	if bareNumber.MatchString(s) {
		return strconv.Atoi(s)
	}

	total := 0
	matched := false

	if m := hoursPart.FindStringSubmatch(s); m != nil {
		h, err := strconv.Atoi(m[1])
		if err == nil {
			total += h * 60
			matched = true
		}
	}
	if m := minsPart.FindStringSubmatch(s); m != nil {
		min, err := strconv.Atoi(m[1])
		if err == nil {
			total += min
			matched = true
		}
	}
	if matched {
		return total, nil
	}

	// Last resort: treat the first number found as minutes.
	if m := anyNumber.FindString(s); m != "" {
		return strconv.Atoi(m)
	}

	return 0, fmt.Errorf("could not parse time string %q", s)
}
