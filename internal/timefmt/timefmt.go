// Package timefmt converts between a seconds count and the HH:MM:SS string
// shown on the countdown display.
package timefmt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MaxSeconds is one second short of a day, the largest value the three
// two-digit fields can express with the hour field capped at 23.
const MaxSeconds = 24*3600 - 1

// ErrInvalid is returned by Parse for input that is not a clock string.
var ErrInvalid = errors.New("invalid time")

// Format renders seconds as zero-padded HH:MM:SS. Negative values clamp to 0.
func Format(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, s := Split(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// Split breaks seconds into hours, minutes and seconds.
func Split(seconds int) (h, m, s int) {
	if seconds < 0 {
		seconds = 0
	}
	return seconds / 3600, (seconds % 3600) / 60, seconds % 60
}

// Parse accepts HH:MM:SS, MM:SS, a bare seconds count or a Go duration
// such as "1h30m" and returns the total number of seconds. Minute and
// second fields must be below 60 when a larger field is present, and the
// total may not exceed MaxSeconds.
func Parse(value string) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalid)
	}
	if strings.ContainsAny(value, "hms") {
		return parseUnits(value)
	}
	parts := strings.Split(value, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalid, value)
	}

	fields := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalid, value)
		}
		if i > 0 && n > 59 {
			return 0, fmt.Errorf("%w: field %q out of range", ErrInvalid, p)
		}
		fields[i] = n
	}

	total := 0
	for _, n := range fields {
		// total is at most MaxSeconds here, so the product cannot overflow.
		total = total*60 + n
		if total > MaxSeconds {
			return 0, fmt.Errorf("%w: %q longer than %s", ErrInvalid, value, Format(MaxSeconds))
		}
	}
	return total, nil
}

func parseUnits(value string) (int, error) {
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalid, value)
	}
	if d%time.Second != 0 {
		return 0, fmt.Errorf("%w: %q is not whole seconds", ErrInvalid, value)
	}
	if d > MaxSeconds*time.Second {
		return 0, fmt.Errorf("%w: %q longer than %s", ErrInvalid, value, Format(MaxSeconds))
	}
	return int(d / time.Second), nil
}

// FromFields sums hour, minute and second text fields the way the duration
// input does: empty or non-numeric fields count as zero.
func FromFields(hours, minutes, seconds string) int {
	return atoiOrZero(hours)*3600 + atoiOrZero(minutes)*60 + atoiOrZero(seconds)
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
