package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Clock is minutes since midnight, giving Schedule cheap, allocation-free
// comparison for the overlap check instead of parsing "HH:MM" on every
// invariant check.
type Clock int

func NewClock(hour, minute int) Clock { return Clock(hour*60 + minute) }

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// ParseClock parses "HH:MM" into a Clock value.
func ParseClock(s string) (Clock, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return NewClock(h, m), nil
}
