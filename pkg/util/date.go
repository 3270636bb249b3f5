package util

import (
    "strconv"
    "time"
)

// ParseTime accepts unix seconds or RFC3339 timestamps and reports
// whether the input parsed.
func ParseTime(s string) (time.Time, bool) {
    if s == "" {
        return time.Time{}, false
    }
    if sec, err := strconv.ParseInt(s, 10, 64); err == nil && sec > 0 {
        return time.Unix(sec, 0), true
    }
    if t, err := time.Parse(time.RFC3339, s); err == nil {
        return t, true
    }
    if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
        return t, true
    }
    return time.Time{}, false
}

// ParseTimeDefault parses time or falls back to def.
func ParseTimeDefault(s string, def time.Time) time.Time {
    t, ok := ParseTime(s)
    if !ok {
        return def
    }
    return t
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
    y, m, d := t.UTC().Date()
    return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AlignDayRange widens [from, to] to whole UTC days so equal requests
// resolve to the same storage range. From snaps back to midnight and
// to runs to the last instant of its day.
func AlignDayRange(from, to time.Time) (time.Time, time.Time) {
    return Day(from), Day(to).Add(24*time.Hour - time.Nanosecond)
}
