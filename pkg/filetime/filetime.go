// Package filetime decodes Windows FILETIME tick counts (100ns intervals
// since 1601-01-01 UTC) into calendar times, keeping the "never" sentinels
// and out-of-range values distinct from real timestamps.
package filetime

import (
	"encoding/json"
	"time"
)

// Kind distinguishes a real timestamp from the two non-time outcomes.
type Kind uint8

const (
	KindTime Kind = iota
	KindNever
	KindOutOfRange
)

const (
	// NeverMax is the "never expires" sentinel written by Windows.
	NeverMax uint64 = 0x7FFFFFFFFFFFFFFF

	ticksPerSecond = 10_000_000
	// epochDelta is the number of seconds between 1601-01-01 and 1970-01-01.
	epochDelta = 11_644_473_600
	// maxTicks is the first tick count past 9999-12-31T23:59:59.9999999Z.
	maxTicks uint64 = 2_650_467_744_000_000_000
)

// Value is a decoded FILETIME.
type Value struct {
	Kind Kind
	Raw  uint64
	Time time.Time // zero unless Kind == KindTime
}

// Decode converts a tick count. 0 and NeverMax decode to KindNever; counts
// whose calendar time would fall past year 9999 decode to KindOutOfRange.
func Decode(ticks uint64) Value {
	switch {
	case ticks == 0 || ticks == NeverMax:
		return Value{Kind: KindNever, Raw: ticks}
	case ticks >= maxTicks:
		return Value{Kind: KindOutOfRange, Raw: ticks}
	}
	secs := int64(ticks / ticksPerSecond)
	nsec := int64(ticks%ticksPerSecond) * 100
	return Value{Kind: KindTime, Raw: ticks, Time: time.Unix(secs-epochDelta, nsec).UTC()}
}

// Encode is the inverse of Decode for times inside the representable range.
// Times before the epoch encode as 0.
func Encode(t time.Time) uint64 {
	t = t.UTC()
	secs := t.Unix() + epochDelta
	if secs < 0 {
		return 0
	}
	return uint64(secs)*ticksPerSecond + uint64(t.Nanosecond()/100)
}

// IsSet reports whether v holds a real timestamp.
func (v Value) IsSet() bool { return v.Kind == KindTime }

func (v Value) String() string {
	switch v.Kind {
	case KindNever:
		return "Never"
	case KindOutOfRange:
		return "OutOfRange"
	default:
		return v.Time.Format(time.RFC3339Nano)
	}
}

// MarshalJSON renders the same text as String.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}
