// Package ast defines the syntax tree of the scripting dialect and its
// canonical document encoding.
//
// The interpreter never parses source text itself. A host parser (or the
// constructors in build.go) produces a tree, and the tree round-trips through
// a JSON document with a "type" tag on every node:
//
//	{"body": [
//	  {"type": "ExpressionStatement",
//	   "expr": {"type": "Call",
//	            "callee": {"type": "Identifier", "name": "tool"},
//	            "args": [{"type": "Literal", "value": "foo"}]}}
//	]}
//
// ChildAt fixes, for every node type, the ordered list of children that a
// trace segment indexes into. Resolve walks a trace down from the Program.
package ast
