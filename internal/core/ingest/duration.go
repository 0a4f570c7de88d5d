package ingest

import (
	"fmt"
	"strconv"
	"strings"
)

// DurationSeconds converts a colon-separated duration ("ss", "mm:ss",
// "hh:mm:ss" or "dd:hh:mm:ss") to seconds.
func DurationSeconds(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) == 0 || len(parts) > 4 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}

	factors := []int{1, 60, 3600, 86400}
	total := 0
	for i := 0; i < len(parts); i++ {
		unit, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1-i]))
		if err != nil || unit < 0 {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		total += unit * factors[i]
	}
	return total, nil
}
