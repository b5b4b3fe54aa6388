/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package naming derives collision-safe namespace prefixes from raw scope
// keys and computes the namespaced entity and table names built from them.
package naming

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var unsafeRunPattern = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// PrefixFor derives a deterministic namespace prefix from a raw scope key.
//
// Keys already made of [A-Za-z0-9_] pass through unchanged. Any other key is
// sanitized by collapsing each run of unsafe characters into a single
// underscore, then suffixed with a 6-hex-character digest of the raw key:
// two distinct raw keys that sanitize identically (for example "a-b" and
// "a_b") would otherwise collide. The digest suffix makes a collision
// between distinct raw keys astronomically unlikely rather than impossible.
func PrefixFor(rawKey string) string {
	sanitized := unsafeRunPattern.ReplaceAllString(rawKey, "_")
	if sanitized == rawKey {
		return sanitized
	}
	return sanitized + "_" + digest(rawKey)
}

// digest returns the first 6 hex characters of the SHA-256 of the raw key.
func digest(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(sum[:3])
}

// Join builds a namespaced name from a prefix and a base name.
func Join(prefix, base string) string {
	return prefix + "_" + base
}

// StripPrefix removes an existing prefix from a supplied base name so that
// re-registering with an already-prefixed name does not double-prefix it.
// Names that do not carry the prefix are returned unchanged.
func StripPrefix(name, prefix string) string {
	return strings.TrimPrefix(name, prefix+"_")
}

// HasPrefix reports whether name already carries the namespace prefix.
func HasPrefix(name, prefix string) bool {
	return strings.HasPrefix(name, prefix+"_")
}
