// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package titlenorm canonicalizes movie and show titles into comparable keys.
package titlenorm

import (
	"strings"
	"time"
	"unicode"

	"github.com/autobrr/autobrr/pkg/ttlcache"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const cacheTTL = 5 * time.Minute

// normalizeCache avoids repeated NFKD transformations for identical inputs.
// Library snapshots and catalog credit lists hit the same titles constantly.
var normalizeCache = ttlcache.New(ttlcache.Options[string, string]{}.SetDefaultTTL(cacheTTL))

// Normalize folds a free-text title into a comparable key: diacritics stripped,
// lowercased, every run of non-alphanumeric characters collapsed to a single
// space, trimmed. It is total (never fails) and idempotent.
// Examples:
//   - "Amélie" → "amelie"
//   - "Spider-Man: No Way Home" → "spider man no way home"
//   - "Shōgun" → "shogun"
func Normalize(s string) string {
	if cached, ok := normalizeCache.Get(s); ok {
		return cached
	}

	result := normalize(s)
	normalizeCache.Set(s, result, ttlcache.DefaultTTL)
	return result
}

func normalize(s string) string {
	// Letters that NFKD does not decompose to ASCII equivalents; these are
	// distinct letters in Nordic/Germanic alphabets, not composed characters.
	s = strings.ReplaceAll(s, "æ", "ae")
	s = strings.ReplaceAll(s, "Æ", "AE")
	s = strings.ReplaceAll(s, "œ", "oe")
	s = strings.ReplaceAll(s, "Œ", "OE")
	s = strings.ReplaceAll(s, "ø", "o")
	s = strings.ReplaceAll(s, "Ø", "O")
	s = strings.ReplaceAll(s, "ß", "ss")
	s = strings.ReplaceAll(s, "ð", "d")
	s = strings.ReplaceAll(s, "Ð", "D")
	s = strings.ReplaceAll(s, "þ", "th")
	s = strings.ReplaceAll(s, "Þ", "TH")

	// transform.Chain is not safe for concurrent use, so build it per call.
	// The cache in front keeps this off the hot path.
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(t, s)
	if err == nil {
		s = folded
	}

	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !alnum {
			pendingSpace = b.Len() > 0
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// PersonID derives the stable identifier for a tracked cast or crew member
// from their role and display name. Actors keep a bare slug; directors and
// writers are prefixed with the role so the three namespaces never collide.
func PersonID(role, name string) string {
	slug := strings.ReplaceAll(Normalize(name), " ", "-")
	if role == "" || role == "actor" {
		return slug
	}
	return role + "-" + slug
}
