package slurm

import (
	"math"
	"regexp"
	"strconv"
	"time"

	"hatchery-backend/internal"
)

// MaxDuration is the value of an "infinite" scheduler time limit.
const MaxDuration = time.Duration(math.MaxInt64)

// Scheduler time limit syntax: [days-]hours[:minutes[:seconds]]. Minutes and
// seconds are capped at 59, hours and days are unbounded.
var timeLimitPattern = regexp.MustCompile(`^(?:([0-9]+)-)?([0-9]+)(?::([0-5]?[0-9])(?::([0-5]?[0-9]))?)?$`)

// ParseTimeLimit converts a scheduler time limit string to a duration. The
// literal "infinite" maps to MaxDuration.
func ParseTimeLimit(value string) (time.Duration, error) {
	if value == "infinite" {
		return MaxDuration, nil
	}

	match := timeLimitPattern.FindStringSubmatch(value)
	if match == nil {
		return 0, &internal.ParseError{
			Field:  "timelimit",
			Value:  value,
			Reason: "expected [days-]hours[:minutes[:seconds]] or \"infinite\"",
		}
	}

	days := atoiOrZero(match[1])
	hours := atoiOrZero(match[2])
	minutes := atoiOrZero(match[3])
	seconds := atoiOrZero(match[4])

	total := time.Duration(days)*24*time.Hour +
		time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second
	return total, nil
}

func atoiOrZero(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
