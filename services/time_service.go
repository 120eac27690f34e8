package services

import "time"

// Clock supplies repository timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock reports the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// GetCurrentTimestamp returns the current time in RFC3339.
func GetCurrentTimestamp() string {
	return SystemClock{}.Now().Format(time.RFC3339)
}

func clockOrDefault(c Clock) Clock {
	if c == nil {
		return SystemClock{}
	}
	return c
}
