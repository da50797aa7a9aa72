// Package topic implements MQTT subscription-pattern matching: '+' matches
// exactly one level, '#' matches zero or more trailing levels and must be
// terminal (spec.md §4.1).
package topic

import "strings"

// Matches reports whether topic satisfies pattern. It is a pure function of
// pattern.split('/') and topic.split('/') — it allocates no shared state and
// is safe for concurrent use.
//
// '#' appearing anywhere but the final segment is invalid and never
// matches. A bare "#" matches everything, including the zero-sublevel
// topic it's rooted at (spec.md §8 Open Question, resolved here: "sensors/#"
// matches "sensors" itself, treating '#' as zero-or-more once it is reached,
// which keeps Matches total instead of rejecting valid subscriptions at
// match time).
func Matches(pattern, topic string) bool {
	if !validPattern(pattern) {
		return false
	}
	return matchSegments(strings.Split(pattern, "/"), strings.Split(topic, "/"))
}

// validPattern rejects a '#' that isn't the final segment.
func validPattern(pattern string) bool {
	segs := strings.Split(pattern, "/")
	for i, s := range segs {
		if s == "#" && i != len(segs)-1 {
			return false
		}
	}
	return true
}

func matchSegments(pat, top []string) bool {
	for i, p := range pat {
		switch {
		case p == "#":
			// '#' consumes this segment and everything after it,
			// including zero remaining segments.
			return true
		case i >= len(top):
			return false
		case p == "+":
			continue
		case p != top[i]:
			return false
		}
	}
	return len(pat) == len(top)
}

// MatchesAny reports whether topic satisfies at least one of patterns.
func MatchesAny(patterns []string, topic string) bool {
	for _, p := range patterns {
		if Matches(p, topic) {
			return true
		}
	}
	return false
}

// Valid reports whether pattern is a well-formed subscription pattern —
// i.e. any '#' it contains is the final segment.
func Valid(pattern string) bool {
	return validPattern(pattern)
}
