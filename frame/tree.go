package frame

import (
	"time"

	"github.com/everydev1618/vegascript/trace"
	"github.com/everydev1618/vegascript/value"
)

// Tree indexes a frame hierarchy by trace. Frames do not point at their
// parents; parent and scope lookups go through the index.
type Tree struct {
	root    *Frame
	byTrace map[string]*Frame
}

// NewTree indexes root and all of its descendants.
func NewTree(root *Frame) *Tree {
	t := &Tree{root: root, byTrace: make(map[string]*Frame)}
	t.index(root)
	return t
}

func (t *Tree) index(f *Frame) {
	t.byTrace[f.Trace] = f
	for _, c := range f.Children {
		if c != nil {
			t.index(c)
		}
	}
}

// Root returns the root frame.
func (t *Tree) Root() *Frame { return t.root }

// Get returns the frame at tr.
func (t *Tree) Get(tr string) (*Frame, bool) {
	f, ok := t.byTrace[tr]
	return f, ok
}

// Len returns the number of materialized frames.
func (t *Tree) Len() int { return len(t.byTrace) }

// Parent returns the frame one level above f.
func (t *Tree) Parent(f *Frame) (*Frame, bool) {
	pt, ok := trace.Parent(f.Trace)
	if !ok {
		return nil, false
	}
	return t.Get(pt)
}

// Enter returns child i of parent, creating it as a running frame when it
// does not exist yet.
func (t *Tree) Enter(parent *Frame, i int, now time.Time) *Frame {
	if c := parent.Child(i); c != nil {
		return c
	}
	c := New(trace.Child(parent.Trace, i), now)
	parent.SetChild(i, c)
	t.byTrace[c.Trace] = c
	return c
}

// Drop discards the children of f from both f and the index.
func (t *Tree) Drop(f *Frame) {
	for _, c := range f.Children {
		if c != nil {
			t.Drop(c)
			delete(t.byTrace, c.Trace)
		}
	}
	f.Children = nil
}

// Scope returns the nearest frame at or above f that declares name.
func (t *Tree) Scope(f *Frame, name string) (*Frame, bool) {
	for cur, ok := f, true; ok; cur, ok = t.Parent(cur) {
		if cur.Variables != nil && cur.Variables.Has(name) {
			return cur, true
		}
	}
	return nil, false
}

// NearestScope returns the nearest frame at or above f that opens a scope.
func (t *Tree) NearestScope(f *Frame) (*Frame, bool) {
	for cur, ok := f, true; ok; cur, ok = t.Parent(cur) {
		if cur.Variables != nil {
			return cur, true
		}
	}
	return nil, false
}

// Lookup resolves name through the scope chain starting at f.
func (t *Tree) Lookup(f *Frame, name string) (value.Value, bool) {
	s, ok := t.Scope(f, name)
	if !ok {
		return nil, false
	}
	return s.Variables.Lookup(name), true
}

// Walk visits every materialized frame depth-first in child order.
func (t *Tree) Walk(fn func(*Frame)) {
	var walk func(*Frame)
	walk = func(f *Frame) {
		fn(f)
		for _, c := range f.Children {
			if c != nil {
				walk(c)
			}
		}
	}
	walk(t.root)
}
