package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Unit is a duration unit accepted by grant commands.
type Unit string

const (
	UnitSecond Unit = "second"
	UnitMinute Unit = "minute"
	UnitHour   Unit = "hour"
	UnitDay    Unit = "day"
	UnitMonth  Unit = "month"
	UnitYear   Unit = "year"
)

// Fixed approximations, not calendar aware.
var unitSeconds = map[Unit]int64{
	UnitSecond: 1,
	UnitMinute: 60,
	UnitHour:   3600,
	UnitDay:    86400,
	UnitMonth:  30 * 86400,
	UnitYear:   365 * 86400,
}

var unitAliases = map[string]Unit{
	"s":       UnitSecond,
	"sec":     UnitSecond,
	"secs":    UnitSecond,
	"second":  UnitSecond,
	"seconds": UnitSecond,
	"min":     UnitMinute,
	"mins":    UnitMinute,
	"minute":  UnitMinute,
	"minutes": UnitMinute,
	"hr":      UnitHour,
	"hrs":     UnitHour,
	"hour":    UnitHour,
	"hours":   UnitHour,
	"day":     UnitDay,
	"days":    UnitDay,
	"month":   UnitMonth,
	"months":  UnitMonth,
	"year":    UnitYear,
	"years":   UnitYear,
}

// ParseUnit resolves a user supplied unit name. Matching is case insensitive.
func ParseUnit(s string) (Unit, bool) {
	u, ok := unitAliases[strings.ToLower(strings.TrimSpace(s))]
	return u, ok
}

// maxSeconds keeps the result representable as a time.Duration.
const maxSeconds = math.MaxInt64 / int64(time.Second)

// DurationExpression is a human entered (quantity, unit) pair such as "3 month".
type DurationExpression struct {
	Quantity int64
	Unit     Unit
}

// ParseDurationExpression parses the quantity and unit arguments of a grant
// command. Any failure is reported as ErrInvalidDuration.
func ParseDurationExpression(quantity, unit string) (DurationExpression, error) {
	q, err := strconv.ParseInt(strings.TrimSpace(quantity), 10, 64)
	if err != nil {
		return DurationExpression{}, fmt.Errorf("%w: quantity %q is not an integer", ErrInvalidDuration, quantity)
	}
	u, ok := ParseUnit(unit)
	if !ok {
		return DurationExpression{}, fmt.Errorf("%w: unknown unit %q", ErrInvalidDuration, unit)
	}
	expr := DurationExpression{Quantity: q, Unit: u}
	if expr.Seconds() <= 0 {
		return DurationExpression{}, fmt.Errorf("%w: %s", ErrInvalidDuration, expr)
	}
	return expr, nil
}

// Seconds converts the expression to a second count. It returns 0 for an
// unknown unit, a non-positive quantity or a value that would overflow.
func (d DurationExpression) Seconds() int64 {
	per, ok := unitSeconds[d.Unit]
	if !ok || d.Quantity <= 0 {
		return 0
	}
	if d.Quantity > maxSeconds/per {
		return 0
	}
	return d.Quantity * per
}

// Duration returns the expression as a time.Duration or ErrInvalidDuration.
func (d DurationExpression) Duration() (time.Duration, error) {
	secs := d.Seconds()
	if secs <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidDuration, d)
	}
	return time.Duration(secs) * time.Second, nil
}

func (d DurationExpression) String() string {
	return fmt.Sprintf("%d %s", d.Quantity, d.Unit)
}
