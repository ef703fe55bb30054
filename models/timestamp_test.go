package models

import (
	"testing"
	"time"
)

func TestTimestampBefore(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Timestamp
		expected bool
	}{
		{
			name:     "earlier second",
			a:        Timestamp{Seconds: 1, Nanoseconds: 900},
			b:        Timestamp{Seconds: 2, Nanoseconds: 0},
			expected: true,
		},
		{
			name:     "same second earlier nanosecond",
			a:        Timestamp{Seconds: 5, Nanoseconds: 100},
			b:        Timestamp{Seconds: 5, Nanoseconds: 200},
			expected: true,
		},
		{
			name:     "equal",
			a:        Timestamp{Seconds: 5, Nanoseconds: 100},
			b:        Timestamp{Seconds: 5, Nanoseconds: 100},
			expected: false,
		},
		{
			name:     "later",
			a:        Timestamp{Seconds: 6, Nanoseconds: 0},
			b:        Timestamp{Seconds: 5, Nanoseconds: 999},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Before(tt.b); got != tt.expected {
				t.Errorf("Before() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	now := time.Now()
	ts := Timestamp{Seconds: now.Unix(), Nanoseconds: int32(now.Nanosecond())}
	if !ts.Time().Equal(now.Truncate(0)) && ts.Time().UnixNano() != now.UnixNano() {
		t.Errorf("Time() = %v, want %v", ts.Time(), now)
	}
}

func TestTimestampIsZero(t *testing.T) {
	if !(Timestamp{}).IsZero() {
		t.Error("zero value should report IsZero")
	}
	if Now().IsZero() {
		t.Error("Now() should not report IsZero")
	}
}
