package timestamp

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

func regexpGroupRange(a, b int) string {
	parts := make([]string, 0, b-a)
	for i := a; i < b; i++ {
		parts = append(parts, fmt.Sprintf("%02d", i))
	}
	return "(" + strings.Join(parts, "|") + ")"
}

var (
	regexpGroupYear  = `((?:19|20|21)\d\d)`
	regexpGroupMonth = regexpGroupRange(1, 13)
	regexpGroupDay   = regexpGroupRange(1, 32)
	regexpGroupHour  = regexpGroupRange(0, 24)
	regexpGroupMin   = `([0-5]\d)`
	regexpGroupSec   = `([0-5]\d)`
	regexpDelim      = `[-:_\., ]*`
	// Go's regexp has no lookbehind; the non-digit boundary is matched as an
	// optional capture that must be empty or non-numeric.
	notANumber = `(?:^|[^0-9])`
)

// RegexpNoTZ matches yyyy MM dd HH mm ss with flexible separators, preceded
// by a non-digit boundary. Six capture groups.
var RegexpNoTZ = regexp.MustCompile(
	notANumber + strings.Join([]string{
		regexpGroupYear,
		regexpGroupMonth,
		regexpGroupDay,
		regexpGroupHour,
		regexpGroupMin,
		regexpGroupSec,
	}, regexpDelim),
)

// RegexpWhatsApp matches WhatsApp style filenames like IMG-20220101-WA0007.jpg.
// Year, month and day come from the filename; the WA counter is used as
// microseconds so media stays ordered within the day but grouped apart from
// other media taken on that date.
var RegexpWhatsApp = regexp.MustCompile(`^(?:IMG|VID)[-_](\d{4})(\d{2})(\d{2})(?:[-_]WA(\d+))?`)

var whatsAppGroupMapping = []string{"year", "month", "day", "microsecond"}

type predefinedRegexp struct {
	re      *regexp.Regexp
	mapping []string
}

var predefinedRegexps = map[string]predefinedRegexp{
	"default":  {RegexpNoTZ, nil},
	"whatsapp": {RegexpWhatsApp, whatsAppGroupMapping},
}

var regexpGroupIndex = map[string]int{
	"year":        0,
	"month":       1,
	"day":         2,
	"hour":        3,
	"minute":      4,
	"second":      5,
	"microsecond": 6,
}

// extractNoTZDatetime parses a naive datetime out of s using re. With a nil
// mapping the six groups are taken positionally as year..second; otherwise
// each group is assigned to the named datetime field. Parsed values more than
// 30 days in the future are rejected as garbage.
func extractNoTZDatetime(s string, re *regexp.Regexp, mapping []string) (time.Time, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	groups := m[1:]

	// year, month, day, hour, minute, second, microsecond
	args := [7]int{0, 0, 0, 0, 0, 0, 0}
	if mapping == nil {
		if len(groups) < 6 {
			return time.Time{}, false
		}
		for i := 0; i < 6; i++ {
			n, err := strconv.Atoi(groups[i])
			if err != nil {
				return time.Time{}, false
			}
			args[i] = n
		}
	} else {
		if len(groups) > len(mapping) {
			return time.Time{}, false
		}
		for i, val := range groups {
			if val == "" {
				continue
			}
			idx, ok := regexpGroupIndex[mapping[i]]
			if !ok {
				return time.Time{}, false
			}
			n, err := strconv.Atoi(val)
			if err != nil {
				return time.Time{}, false
			}
			args[idx] = n
		}
	}

	if args[0] == 0 || args[1] < 1 || args[1] > 12 || args[2] < 1 || args[2] > 31 {
		return time.Time{}, false
	}
	parsed := time.Date(args[0], time.Month(args[1]), args[2], args[3], args[4], args[5], args[6]*1000, time.UTC)
	// time.Date normalises out-of-range values (e.g. Feb 30); treat that as a
	// parse failure like the original did.
	if parsed.Day() != args[2] || int(parsed.Month()) != args[1] {
		return time.Time{}, false
	}
	if parsed.Sub(time.Now().UTC()) > 30*24*time.Hour {
		return time.Time{}, false
	}
	return parsed, true
}
