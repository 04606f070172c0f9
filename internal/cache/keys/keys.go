package keys

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/mohammed-shakir/incident-router/internal/core/model"
)

const (
	routePrefix    = "route"
	fingerprintTag = "n="
)

// RouteKey names a cached route result. Coordinates are written in their
// shortest exact decimal form so distinct incidents never share a key.
// fingerprint must cover the road graph and the facility catalog; a change to
// either then moves every query to a fresh key.
func RouteKey(category, policy string, p model.Point, fingerprint uint64) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s:%s%016x",
		routePrefix,
		sanitizeForKey(strings.ToLower(strings.TrimSpace(category))),
		sanitizeForKey(strings.ToLower(strings.TrimSpace(policy))),
		formatCoord(p.X),
		formatCoord(p.Y),
		fingerprintTag,
		fingerprint,
	)
}

// RoutePattern matches every route key, whatever its fingerprint, for SCAN.
func RoutePattern() string {
	return routePrefix + ":*"
}

// RouteFingerprint extracts the fingerprint a route key was written under.
func RouteFingerprint(key string) (uint64, bool) {
	if !strings.HasPrefix(key, routePrefix+":") {
		return 0, false
	}
	i := strings.LastIndex(key, ":"+fingerprintTag)
	if i < 0 {
		return 0, false
	}
	hex := key[i+1+len(fingerprintTag):]
	if len(hex) != 16 {
		return 0, false
	}
	fp, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return 0, false
	}
	return fp, true
}

// StaleRoute reports route keys written under a fingerprint other than current.
// Keys it cannot parse are left alone.
func StaleRoute(current uint64) func(key string) bool {
	return func(key string) bool {
		fp, ok := RouteFingerprint(key)
		return ok && fp != current
	}
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func sanitizeForKey(s string) string {
	if s == "" {
		return "_"
	}
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			out = '_'
		case isAlphaNum(r) || r == '_' || r == '-':
			out = r
		default:
			// Any other rune (including ':' and non-ASCII) becomes '-'
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		unicode.IsDigit(r)
}
