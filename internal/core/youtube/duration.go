package youtube

import (
	"fmt"
	"strings"
	"unicode"
)

// ParseISODuration converts the Data API's ISO 8601 duration form
// ("PT1H2M3S", "P1DT4H") into seconds.
func ParseISODuration(s string) (int, error) {
	orig := s
	if !strings.HasPrefix(s, "P") {
		return 0, fmt.Errorf("invalid ISO 8601 duration %q", orig)
	}
	s = s[1:]

	total := 0
	inTime := false
	num := 0
	haveNum := false
	for _, r := range s {
		switch {
		case r == 'T':
			inTime = true
		case unicode.IsDigit(r):
			num = num*10 + int(r-'0')
			haveNum = true
		default:
			if !haveNum {
				return 0, fmt.Errorf("invalid ISO 8601 duration %q", orig)
			}
			switch {
			case r == 'D' && !inTime:
				total += num * 86400
			case r == 'H' && inTime:
				total += num * 3600
			case r == 'M' && inTime:
				total += num * 60
			case r == 'S' && inTime:
				total += num
			default:
				return 0, fmt.Errorf("invalid ISO 8601 duration %q", orig)
			}
			num = 0
			haveNum = false
		}
	}
	if haveNum {
		return 0, fmt.Errorf("invalid ISO 8601 duration %q", orig)
	}
	return total, nil
}

// FormatColonDuration renders seconds in the platform's colon form:
// "m:ss", "h:mm:ss" or "d:hh:mm:ss".
func FormatColonDuration(sec int) string {
	if sec < 0 {
		sec = 0
	}
	d := sec / 86400
	h := sec % 86400 / 3600
	m := sec % 3600 / 60
	s := sec % 60
	switch {
	case d > 0:
		return fmt.Sprintf("%d:%02d:%02d:%02d", d, h, m, s)
	case h > 0:
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	default:
		return fmt.Sprintf("%d:%02d", m, s)
	}
}
