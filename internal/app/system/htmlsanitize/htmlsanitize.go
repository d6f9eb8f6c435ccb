// Package htmlsanitize cleans user-entered text before it is stored. Every
// free-text field in the tracker (wasted reasons, patterns, reflections,
// pomodoro task labels, checklist items) is plain text, so the policy strips
// all markup rather than allowlisting any.
package htmlsanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// Field limits, generous enough for reflections while keeping a lid on
// storage and the live document payload.
const (
	MaxLabelLen = 200
	MaxTextLen  = 5000
)

// Plain strips all HTML from s, unescapes entities the stripper introduced,
// and trims surrounding whitespace.
func Plain(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(getPolicy().Sanitize(s)))
}

// Label sanitizes a short single-line value: tags stripped, inner whitespace
// collapsed, clamped to MaxLabelLen.
func Label(s string) string {
	s = Plain(s)
	s = strings.Join(strings.Fields(s), " ")
	return clamp(s, MaxLabelLen)
}

// Text sanitizes a multi-line value, preserving newlines but clamping to
// MaxTextLen.
func Text(s string) string {
	return clamp(Plain(s), MaxTextLen)
}

// clamp cuts s to at most n bytes without splitting a UTF-8 sequence.
func clamp(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && s[n]&0xC0 == 0x80 {
		n--
	}
	return s[:n]
}
