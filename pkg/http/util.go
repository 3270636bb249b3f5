package http

import (
    "time"

    xutil "EquityPulse/pkg/util"
)

// Query-param parsing shims so handlers only import this package.

func ParseIntDefault(s string, def int) int { return xutil.ParseIntDefault(s, def) }

func ParseTimeDefault(s string, def time.Time) time.Time { return xutil.ParseTimeDefault(s, def) }
