// Package keypath identifies slots in a conceptually nested mapping.
//
// A Path is an ordered sequence of one or more string segments. A single
// string is one segment; use Parse to split dotted text into segments.
//
//	keypath.New("counter")            // ["counter"]
//	keypath.New("user", "profile")    // ["user" "profile"]
//	keypath.Parse("user.profile")     // ["user" "profile"]
package keypath

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// keySeparator joins segments in Key. It is rejected inside segments so that
// ["a.b"] and ["a" "b"] never share a key.
const keySeparator = "\x1f"

var (
	ErrEmptyPath      = errors.New("key path has no segments")
	ErrInvalidSegment = errors.New("invalid key path segment")
)

// segmentPattern rejects empty segments and control characters.
var segmentPattern = regexp.MustCompile(`^[^\x00-\x1f\x7f]+$`)

// Path is an ordered, non-empty list of segments.
type Path []string

// New builds a path from explicit segments.
func New(segments ...string) Path {
	p := make(Path, len(segments))
	copy(p, segments)
	return p
}

// Parse splits dotted text into segments. "a.b.c" becomes ["a" "b" "c"].
func Parse(dotted string) Path {
	if dotted == "" {
		return Path{}
	}
	return New(strings.Split(dotted, ".")...)
}

// Validate reports whether p can address a slot.
func (p Path) Validate() error {
	if len(p) == 0 {
		return ErrEmptyPath
	}
	for i, seg := range p {
		if !segmentPattern.MatchString(seg) {
			return fmt.Errorf("%w: segment %d %q", ErrInvalidSegment, i, seg)
		}
	}
	return nil
}

// Key returns an unambiguous string form suitable for map keys.
func (p Path) Key() string {
	return strings.Join(p, keySeparator)
}

// String returns the dotted form used in logs, topics and CLI output.
func (p Path) String() string {
	return strings.Join(p, ".")
}
