// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package titlenorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain", input: "Heat", expected: "heat"},
		{name: "diacritics", input: "Amélie", expected: "amelie"},
		{name: "macron", input: "Shōgun", expected: "shogun"},
		{name: "nordic_letters", input: "Børning", expected: "borning"},
		{name: "ligature", input: "Œuvre", expected: "oeuvre"},
		{name: "punctuation_runs", input: "Spider-Man: No Way Home", expected: "spider man no way home"},
		{name: "apostrophe", input: "Bob's Burgers", expected: "bob s burgers"},
		{name: "leading_trailing", input: "  ...Heat!  ", expected: "heat"},
		{name: "digits_kept", input: "Blade Runner 2049", expected: "blade runner 2049"},
		{name: "empty", input: "", expected: ""},
		{name: "only_punctuation", input: "?!...", expected: ""},
		{name: "multibyte_dropped", input: "七人の侍 Seven Samurai", expected: "seven samurai"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Amélie", "Spider-Man: No Way Home", "  A   B  ", "Æon Flux",
		"ÅÄÖ", "L'Économie", "", "droste Droste DROSTE",
	}

	for _, input := range inputs {
		once := Normalize(input)
		assert.Equal(t, once, Normalize(once), "normalize must be idempotent for %q", input)
	}
}

func TestPersonID(t *testing.T) {
	tests := []struct {
		name     string
		role     string
		person   string
		expected string
	}{
		{name: "actor_bare_slug", role: "actor", person: "Mads Mikkelsen", expected: "mads-mikkelsen"},
		{name: "empty_role_defaults_to_actor", role: "", person: "Mads Mikkelsen", expected: "mads-mikkelsen"},
		{name: "director_prefixed", role: "director", person: "Denis Villeneuve", expected: "director-denis-villeneuve"},
		{name: "writer_prefixed", role: "writer", person: "Aaron Sorkin", expected: "writer-aaron-sorkin"},
		{name: "diacritics_folded", role: "director", person: "Alejandro G. Iñárritu", expected: "director-alejandro-g-inarritu"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, PersonID(tt.role, tt.person))
		})
	}
}
