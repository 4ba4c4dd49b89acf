package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ScheduleImmediate publishes the next article on the following tick.
const ScheduleImmediate = "immediate"

// ParseSchedule converts a publish schedule token into the pause between
// articles. Supported forms: "immediate", "N_per_hour", "N_per_day",
// "N_per_week". An immediate schedule returns zero.
func ParseSchedule(schedule string) (time.Duration, error) {
	s := strings.TrimSpace(strings.ToLower(schedule))
	if s == "" || s == ScheduleImmediate {
		return 0, nil
	}

	parts := strings.SplitN(s, "_per_", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("unsupported publish schedule %q", schedule)
	}
	n, err := strconv.Atoi(parts[0])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("unsupported publish schedule %q", schedule)
	}

	var span time.Duration
	switch parts[1] {
	case "hour":
		span = time.Hour
	case "day":
		span = 24 * time.Hour
	case "week":
		span = 7 * 24 * time.Hour
	default:
		return 0, fmt.Errorf("unsupported publish schedule %q", schedule)
	}
	return span / time.Duration(n), nil
}
