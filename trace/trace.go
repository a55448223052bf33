// Package trace implements structural addresses of execution frames.
//
// A trace is the colon-separated path of child indices from the script root
// to one AST node occurrence. The root itself is "0"; the third statement of
// the script is "0:2"; the first argument of a call in that statement might
// be "0:2:0:0". Traces are derived purely from AST structure and are never
// renumbered, so they stay valid across ticks and across a serialize/restore
// round trip.
package trace

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Root is the trace of the script root frame.
const Root = "0"

// Separator joins path segments.
const Separator = ":"

// ErrMalformed is returned for traces that are not a root-anchored path of
// non-negative integers.
var ErrMalformed = errors.New("malformed trace")

// Child returns the trace of child i under parent.
func Child(parent string, i int) string {
	return parent + Separator + strconv.Itoa(i)
}

// Parent returns the trace one level up. The root has no parent.
func Parent(t string) (string, bool) {
	idx := strings.LastIndex(t, Separator)
	if idx < 0 {
		return "", false
	}
	return t[:idx], true
}

// Depth is the number of segments below the root.
func Depth(t string) int {
	return strings.Count(t, Separator)
}

// Parse splits t into its child indices, excluding the leading root segment.
func Parse(t string) ([]int, error) {
	parts := strings.Split(t, Separator)
	if parts[0] != Root {
		return nil, fmt.Errorf("%w: %q must start at %s", ErrMalformed, t, Root)
	}
	path := make([]int, 0, len(parts)-1)
	for _, p := range parts[1:] {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: %q has bad segment %q", ErrMalformed, t, p)
		}
		path = append(path, n)
	}
	return path, nil
}

// Join is the inverse of Parse.
func Join(path []int) string {
	var b strings.Builder
	b.WriteString(Root)
	for _, n := range path {
		b.WriteString(Separator)
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}
