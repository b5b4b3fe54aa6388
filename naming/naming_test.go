/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package naming

import (
	"strings"
	"testing"
)

func TestPrefixForCleanKeyPassesThrough(t *testing.T) {
	tests := []string{"plugin", "plugin_a", "Plugin42", "_hidden"}

	for _, key := range tests {
		t.Run(key, func(t *testing.T) {
			if got := PrefixFor(key); got != key {
				t.Errorf("PrefixFor(%q) = %q, want unchanged", key, got)
			}
		})
	}
}

func TestPrefixForSanitizesUnsafeRuns(t *testing.T) {
	got := PrefixFor("my-plugin/v2")

	if !strings.HasPrefix(got, "my_plugin_v2_") {
		t.Errorf("PrefixFor sanitized form = %q, want my_plugin_v2_<digest>", got)
	}
	suffix := strings.TrimPrefix(got, "my_plugin_v2_")
	if len(suffix) != 6 {
		t.Errorf("digest suffix = %q, want 6 hex characters", suffix)
	}
	for _, r := range suffix {
		if !strings.ContainsRune("0123456789abcdef", r) {
			t.Errorf("digest suffix %q contains non-hex character %q", suffix, r)
		}
	}
}

func TestPrefixForDeterministic(t *testing.T) {
	first := PrefixFor("scope@host:1")
	second := PrefixFor("scope@host:1")

	if first != second {
		t.Errorf("PrefixFor is not deterministic: %q vs %q", first, second)
	}
}

func TestPrefixForDisambiguatesSanitizedCollisions(t *testing.T) {
	// "a-b" and "a_b" sanitize to the same string; only one of them is a
	// clean key and the other must carry a digest suffix.
	dashed := PrefixFor("a-b")
	underscored := PrefixFor("a_b")

	if underscored != "a_b" {
		t.Errorf("PrefixFor(%q) = %q, want unchanged a_b", "a_b", underscored)
	}
	if dashed == underscored {
		t.Errorf("PrefixFor(%q) and PrefixFor(%q) collide on %q", "a-b", "a_b", dashed)
	}
	if !strings.HasPrefix(dashed, "a_b_") {
		t.Errorf("PrefixFor(%q) = %q, want a_b_<digest>", "a-b", dashed)
	}
}

func TestPrefixForDistinctUnsafeKeysDiverge(t *testing.T) {
	first := PrefixFor("scope.one")
	second := PrefixFor("scope-one")

	// Both sanitize to scope_one but carry different digests.
	if first == second {
		t.Errorf("distinct raw keys resolved to the same prefix %q", first)
	}
}

func TestJoin(t *testing.T) {
	if got := Join("pluginA", "users"); got != "pluginA_users" {
		t.Errorf("Join = %q, want pluginA_users", got)
	}
}

func TestStripPrefix(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		prefix   string
		expected string
	}{
		{name: "prefixed", input: "pluginA_users", prefix: "pluginA", expected: "users"},
		{name: "unprefixed", input: "users", prefix: "pluginA", expected: "users"},
		{name: "other prefix", input: "pluginB_users", prefix: "pluginA", expected: "pluginB_users"},
		{name: "prefix only substring", input: "pluginAusers", prefix: "pluginA", expected: "pluginAusers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripPrefix(tt.input, tt.prefix); got != tt.expected {
				t.Errorf("StripPrefix(%q, %q) = %q, want %q", tt.input, tt.prefix, got, tt.expected)
			}
		})
	}
}

func TestStripThenJoinIsStable(t *testing.T) {
	prefix := PrefixFor("pluginA")
	name := Join(prefix, "users")

	// Re-entering with the already-prefixed name must not double-prefix.
	again := Join(prefix, StripPrefix(name, prefix))
	if again != name {
		t.Errorf("re-joined name = %q, want %q", again, name)
	}
}
