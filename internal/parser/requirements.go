package parser

import (
	"regexp"
	"strconv"

	"github.com/erazemk/poetrack/internal/model"
)

var (
	levelRE = regexp.MustCompile(`(?i)Level\s+(\d+)`)
	intRE   = regexp.MustCompile(`(?i)(\d+)\s+Int`)
	strRE   = regexp.MustCompile(`(?i)(\d+)\s+Str`)
	dexRE   = regexp.MustCompile(`(?i)(\d+)\s+Dex`)
)

// ParseRequirements extracts level and attribute requirements from the text
// after "Requires:", e.g. "Level 78, 137 Int". Fields without a match are
// left zero.
func ParseRequirements(s string) model.Requirements {
	return model.Requirements{
		Level:        firstInt(levelRE, s),
		Intelligence: firstInt(intRE, s),
		Strength:     firstInt(strRE, s),
		Dexterity:    firstInt(dexRE, s),
	}
}

func firstInt(re *regexp.Regexp, s string) int {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}
