package util

import (
    "strconv"
    "testing"
    "time"
)

func TestParseTimeRFC3339(t *testing.T) {
    s := "2025-03-04T09:30:00Z"
    got, ok := ParseTime(s)
    if !ok {
        t.Fatalf("expected %q to parse", s)
    }
    if got.UTC().Format(time.RFC3339) != s {
        t.Fatalf("unexpected time %v", got)
    }
}

func TestParseTimeUnix(t *testing.T) {
    want := time.Date(2025, 3, 4, 9, 30, 0, 0, time.UTC).Unix()
    got, ok := ParseTime(strconv.FormatInt(want, 10))
    if !ok {
        t.Fatalf("expected unix seconds to parse")
    }
    if got.Unix() != want {
        t.Fatalf("unexpected unix %v", got.Unix())
    }
}

func TestParseTimeGarbage(t *testing.T) {
    if _, ok := ParseTime("not-a-time"); ok {
        t.Fatalf("expected parse failure")
    }
}

func TestParseTimeDefault(t *testing.T) {
    def := time.Date(2025, 3, 4, 9, 30, 0, 0, time.UTC)
    if got := ParseTimeDefault("", def); !got.Equal(def) {
        t.Fatalf("expected default, got %v", got)
    }
}

func TestAlignDayRange(t *testing.T) {
    from := time.Date(2024, 10, 8, 14, 30, 0, 0, time.UTC)
    to := time.Date(2024, 10, 10, 9, 15, 0, 0, time.UTC)
    af, at := AlignDayRange(from, to)
    if !af.Equal(time.Date(2024, 10, 8, 0, 0, 0, 0, time.UTC)) {
        t.Fatalf("unexpected from %v", af)
    }
    if !at.Equal(time.Date(2024, 10, 10, 23, 59, 59, 999999999, time.UTC)) {
        t.Fatalf("unexpected to %v", at)
    }
}

func TestNormalizeTicker(t *testing.T) {
    if got := NormalizeTicker("  brk.b "); got != "BRK.B" {
        t.Fatalf("unexpected ticker %q", got)
    }
}
