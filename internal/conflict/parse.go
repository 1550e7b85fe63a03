// Package conflict implements the merge-conflict sub-session: parsing
// conflict markers into resolvable hunks, tracking per-hunk resolutions,
// rebuilding output, and committing the result through the version-control
// collaborator.
package conflict

import "strings"

// Marker prefixes as git writes them. The separator is an exact line; start
// and end markers carry a trailing label ("HEAD", a branch name, a hash).
const (
	markerStart     = "<<<<<<<"
	markerSeparator = "======="
	markerEnd       = ">>>>>>>"
)

// Hunk is one conflict region. Line fields are 0-based indices into the
// source content's line slice: StartLine is the start marker, SepLine the
// separator, EndLine the end marker.
type Hunk struct {
	Index         int
	StartLine     int
	SepLine       int
	EndLine       int
	CurrentLines  []string
	IncomingLines []string
	CurrentLabel  string
	IncomingLabel string
}

// Parse scans content line-by-line and returns one hunk per well-formed
// start/separator/end triple, in document order. A hunk whose closing
// markers never arrive before end-of-input is dropped silently; truncated
// markup is a fact of life mid-merge, not an error.
func Parse(content string) []Hunk {
	lines := strings.Split(content, "\n")

	var hunks []Hunk
	var current *Hunk
	inIncoming := false

	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, markerStart):
			// A new start marker abandons any half-built hunk.
			current = &Hunk{
				Index:        len(hunks),
				StartLine:    i,
				CurrentLabel: strings.TrimSpace(strings.TrimPrefix(line, markerStart)),
			}
			inIncoming = false

		case current != nil && !inIncoming && line == markerSeparator:
			current.SepLine = i
			inIncoming = true

		case current != nil && inIncoming && strings.HasPrefix(line, markerEnd):
			current.EndLine = i
			current.IncomingLabel = strings.TrimSpace(strings.TrimPrefix(line, markerEnd))
			hunks = append(hunks, *current)
			current = nil
			inIncoming = false

		case current != nil:
			if inIncoming {
				current.IncomingLines = append(current.IncomingLines, line)
			} else {
				current.CurrentLines = append(current.CurrentLines, line)
			}
		}
	}
	return hunks
}

// Resolution selects which side(s) of a hunk survive.
type Resolution string

const (
	ResolutionCurrent  Resolution = "current"
	ResolutionIncoming Resolution = "incoming"
	ResolutionBoth     Resolution = "both"
)

// Valid reports whether r is one of the three defined choices.
func (r Resolution) Valid() bool {
	switch r {
	case ResolutionCurrent, ResolutionIncoming, ResolutionBoth:
		return true
	}
	return false
}

// ResolveHunkLines returns the lines a resolution keeps: ours, theirs, or
// ours followed by theirs in that fixed order.
func ResolveHunkLines(h Hunk, r Resolution) []string {
	switch r {
	case ResolutionCurrent:
		return h.CurrentLines
	case ResolutionIncoming:
		return h.IncomingLines
	case ResolutionBoth:
		out := make([]string, 0, len(h.CurrentLines)+len(h.IncomingLines))
		out = append(out, h.CurrentLines...)
		return append(out, h.IncomingLines...)
	}
	return nil
}
