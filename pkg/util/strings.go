package util

import (
    "strconv"
    "strings"
)

// ParseIntDefault parses s as an int or returns def when empty/invalid.
func ParseIntDefault(s string, def int) int {
    if s == "" {
        return def
    }
    v, err := strconv.Atoi(s)
    if err != nil {
        return def
    }
    return v
}

// NormalizeTicker canonicalizes a user-supplied symbol. Vendors and
// storage both key on the upper-cased form.
func NormalizeTicker(s string) string {
    return strings.ToUpper(strings.TrimSpace(s))
}
