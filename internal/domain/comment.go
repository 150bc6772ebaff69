package domain

import (
	"regexp"
	"strings"
)

// Outcome markers appended to comments. Downstream consumers key provenance
// rendering off these suffixes, so decoration must be idempotent.
const (
	consensusMarker   = " (consensus)"
	arbitrationMarker = " (arbitration)"
)

// peerTagPattern matches the alignment tags graders are asked to emit during
// consensus rounds. They are negotiation chatter, not rationale, and are
// stripped before a comment is surfaced.
var peerTagPattern = regexp.MustCompile(`\[\s*(aligned|divergent)\s*\]`)

// multiSpace collapses runs of whitespace left behind by tag removal.
var multiSpace = regexp.MustCompile(`\s{2,}`)

// StripPeerTags removes round-negotiation tags and stale outcome markers from
// a raw comment, returning the bare rationale text.
func StripPeerTags(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	s = peerTagPattern.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, consensusMarker, "")
	s = strings.ReplaceAll(s, arbitrationMarker, "")
	return strings.TrimSpace(multiSpace.ReplaceAllString(s, " "))
}

// DecorateComment annotates a comment with the marker for the given outcome
// kind. Applying it twice yields the same string as applying it once.
func DecorateComment(comment string, kind OutcomeKind) string {
	base := StripPeerTags(comment)
	if kind == Arbitration {
		return base + arbitrationMarker
	}
	return base + consensusMarker
}
