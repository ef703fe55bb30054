package models

import "time"

// Timestamp mirrors the wire shape used everywhere in Kamuy: a second and
// nanosecond pair produced server-side at write time.
type Timestamp struct {
	Seconds     int64 `bson:"seconds" json:"seconds"`
	Nanoseconds int32 `bson:"nanoseconds" json:"nanoseconds"`
}

func Now() Timestamp {
	now := time.Now()
	return Timestamp{
		Seconds:     now.Unix(),
		Nanoseconds: int32(now.Nanosecond()),
	}
}

func (t Timestamp) Time() time.Time {
	return time.Unix(t.Seconds, int64(t.Nanoseconds))
}

func (t Timestamp) IsZero() bool {
	return t.Seconds == 0 && t.Nanoseconds == 0
}

// Before reports whether t is earlier than other, with nanosecond
// resolution.
func (t Timestamp) Before(other Timestamp) bool {
	if t.Seconds != other.Seconds {
		return t.Seconds < other.Seconds
	}
	return t.Nanoseconds < other.Nanoseconds
}
