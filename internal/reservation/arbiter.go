// Package reservation implements the path normalization and overlap rules
// shared by the broker (authoritative arbiter) and the client (pre-flight
// write guard). Both call sites use exactly these two functions so a path
// is judged the same way no matter which side asks.
package reservation

import "strings"

// Normalize canonicalizes a raw path into the form stored in a Reservation.
//
// Rules (in order):
//  1. Trim surrounding whitespace.
//  2. Remember whether the input ends in '/' or '\' — that marks a
//     directory reservation, which subsumes everything beneath it.
//  3. Replace backslashes with forward slashes and collapse runs of '/'
//     into one.
//  4. If the input is not absolute and cwd is non-empty, resolve it against
//     cwd first (client-side only; the broker never resolves against a cwd
//     since it normalizes whatever the agent already sent).
//  5. Strip the trailing slash, then re-append exactly one iff the input
//     was a directory.
//
// An empty input normalizes to the empty string (callers reject this as
// invalid). A directory input that reduces to nothing becomes "/".
func Normalize(path string, cwd string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return ""
	}

	isDir := strings.HasSuffix(trimmed, "/") || strings.HasSuffix(trimmed, "\\")

	slashed := strings.ReplaceAll(trimmed, "\\", "/")
	slashed = collapseSlashes(slashed)

	if cwd != "" && !strings.HasPrefix(slashed, "/") {
		slashed = joinPath(collapseSlashes(strings.ReplaceAll(cwd, "\\", "/")), slashed)
	}

	slashed = strings.TrimRight(slashed, "/")

	if isDir {
		return slashed + "/"
	}
	if slashed == "" {
		return ""
	}
	return slashed
}

// collapseSlashes replaces every run of one or more '/' with a single '/'.
func collapseSlashes(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSlash := false
	for _, r := range s {
		if r == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// joinPath concatenates a base directory and a relative tail with exactly
// one '/' between them.
func joinPath(base, tail string) string {
	base = strings.TrimRight(base, "/")
	tail = strings.TrimLeft(tail, "/")
	if base == "" {
		return "/" + tail
	}
	return base + "/" + tail
}

// Overlap reports whether two normalized paths conflict under the
// directory-subsumption rule: equal paths always overlap; a directory path
// (trailing '/') overlaps anything nested beneath it, in either direction.
func Overlap(a, b string) bool {
	if a == b {
		return true
	}
	if isDir(a) && subsumes(a, b) {
		return true
	}
	if isDir(b) && subsumes(b, a) {
		return true
	}
	return false
}

func isDir(p string) bool {
	return strings.HasSuffix(p, "/")
}

// subsumes reports whether directory path dir contains path p: either p is
// nested under dir, or p is dir with its trailing slash stripped.
func subsumes(dir, p string) bool {
	if strings.HasPrefix(p, dir) {
		return true
	}
	return p == strings.TrimSuffix(dir, "/")
}

// Dedup returns paths with duplicates removed, preserving first-seen order.
func Dedup(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
