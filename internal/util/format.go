// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides shared helpers for ollama-cli.
package util

import (
	"strconv"
	"time"
)

// FormatInt formats n with comma grouping ("12,345").
func FormatInt(n int) string {
	s := strconv.Itoa(n)
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	if len(s) <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}

// FormatFloat formats f with the given number of decimal places.
func FormatFloat(f float64, prec int) string {
	return strconv.FormatFloat(f, 'f', prec, 64)
}

// FormatDuration renders d compactly for status lines: "840ms", "1.2s",
// "3m05s", "1h12m".
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
	case d < time.Minute:
		return strconv.FormatFloat(d.Seconds(), 'f', 1, 64) + "s"
	case d < time.Hour:
		m := int(d.Minutes())
		s := int(d.Seconds()) - m*60
		out := strconv.Itoa(m) + "m"
		if s < 10 {
			out += "0"
		}
		return out + strconv.Itoa(s) + "s"
	default:
		h := int(d.Hours())
		m := int(d.Minutes()) - h*60
		return strconv.Itoa(h) + "h" + strconv.Itoa(m) + "m"
	}
}
