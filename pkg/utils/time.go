package utils

import (
	"fmt"
	"time"
)

const (
	// DisplayDateLayout renders DD-MM-YYYY.
	DisplayDateLayout = "02-01-2006"
	// DisplayClockLayout renders a 12-hour clock with AM/PM.
	DisplayClockLayout = "03:04:05 PM"
)

// DisplayLocation is the single timezone used for every timestamp shown to
// users. Asia/Kolkata has no DST, so the fixed zone is an exact fallback when
// tzdata is missing.
var DisplayLocation = loadDisplayLocation()

func loadDisplayLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		return time.FixedZone("IST", 5*3600+30*60)
	}
	return loc
}

// Now returns current time (useful for mocking in tests)
var Now = time.Now

// FormatDate formats t as DD-MM-YYYY in the display timezone.
func FormatDate(t time.Time) string {
	return t.In(DisplayLocation).Format(DisplayDateLayout)
}

// FormatClock formats t as hh:mm:ss AM/PM in the display timezone.
func FormatClock(t time.Time) string {
	return t.In(DisplayLocation).Format(DisplayClockLayout)
}

// SplitDuration breaks d into whole days, hours, minutes and seconds by
// successive truncating division. Negative durations yield zeros.
func SplitDuration(d time.Duration) (days, hours, minutes, seconds int) {
	if d < 0 {
		return 0, 0, 0, 0
	}
	total := int64(d / time.Second)
	days = int(total / 86400)
	total %= 86400
	hours = int(total / 3600)
	total %= 3600
	minutes = int(total / 60)
	seconds = int(total % 60)
	return days, hours, minutes, seconds
}

// FormatRemaining renders "D days, H hours, M minutes".
func FormatRemaining(d time.Duration) string {
	days, hours, minutes, _ := SplitDuration(d)
	return fmt.Sprintf("%d days, %d hours, %d minutes", days, hours, minutes)
}

// FormatRemainingShort drops leading zero components and falls back to
// seconds for durations under a minute.
func FormatRemainingShort(d time.Duration) string {
	days, hours, minutes, seconds := SplitDuration(d)
	switch {
	case days > 0:
		return fmt.Sprintf("%d days, %d hours, %d minutes", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%d hours, %d minutes", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%d minutes", minutes)
	default:
		return fmt.Sprintf("%d seconds", seconds)
	}
}
