package slipstream

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseTimeGap converts a result-feed gap ("0:00", "+ 1:23", "+1:02:03") to
// seconds behind the winner.
func ParseTimeGap(raw string) (int64, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "+")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	if cleaned == "" {
		return 0, fmt.Errorf("empty time gap")
	}

	parts := strings.Split(cleaned, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("malformed time gap %q", raw)
	}

	var total int64
	for _, part := range parts {
		value, err := strconv.ParseInt(part, 10, 64)
		if err != nil || value < 0 {
			return 0, fmt.Errorf("malformed time gap %q", raw)
		}
		total = total*60 + value
	}
	return total, nil
}

// FormatTimeLost renders seconds as the gap string shown to players. Zero
// renders as "0:00", everything else carries the leading plus.
func FormatTimeLost(seconds int64) string {
	if seconds == 0 {
		return "0:00"
	}

	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	if hours > 0 {
		return fmt.Sprintf("+%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("+%d:%02d", minutes, secs)
}
