package utils

import (
	"testing"
	"time"
)

func TestResetTime(t *testing.T) {
	base := time.Date(2025, 6, 10, 14, 35, 42, 123, time.UTC)

	if got := ResetTime(base, "minute"); got.Second() != 0 || got.Minute() != 35 {
		t.Fatalf("minute reset wrong: %v", got)
	}
	if got := ResetTime(base, "hour"); got.Minute() != 0 || got.Hour() != 14 {
		t.Fatalf("hour reset wrong: %v", got)
	}
	if got := ResetTime(base, "day"); !got.Equal(time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("day reset wrong: %v", got)
	}
	if got := ResetTime(base, "week"); !got.Equal(base) {
		t.Fatalf("unknown granularity must return input unchanged: %v", got)
	}
}
