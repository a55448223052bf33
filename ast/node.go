package ast

import "math/big"

// Kind tags every node so codecs and error messages can name it without
// inspecting Go types.
type Kind string

const (
	KindVariableDeclaration Kind = "VariableDeclaration"
	KindExpressionStatement Kind = "ExpressionStatement"
	KindIf                  Kind = "If"
	KindWhile               Kind = "While"
	KindBreak               Kind = "Break"
	KindBlock               Kind = "Block"
	KindReturn              Kind = "Return"

	KindLiteral     Kind = "Literal"
	KindIdentifier  Kind = "Identifier"
	KindMember      Kind = "Member"
	KindIndex       Kind = "Index"
	KindCall        Kind = "Call"
	KindNew         Kind = "New"
	KindAssignment  Kind = "Assignment"
	KindObject      Kind = "ObjectLiteral"
	KindArray       Kind = "ArrayLiteral"
	KindTemplate    Kind = "TemplateLiteral"
	KindRegex       Kind = "RegexLiteral"
	KindUpdate      Kind = "UpdateExpr"
	KindBinary      Kind = "BinaryExpr"
	KindLogical     Kind = "LogicalExpr"
	KindUnary       Kind = "UnaryExpr"
	KindConditional Kind = "ConditionalExpr"
	KindSpread      Kind = "Spread"

	KindObjectPattern Kind = "ObjectPattern"
	KindArrayPattern  Kind = "ArrayPattern"

	// KindIteration is the synthetic node standing for one pass of a While loop.
	KindIteration Kind = "Iteration"
	// KindProgram is the synthetic root of a script.
	KindProgram Kind = "Program"
)

// Node is implemented by every AST node.
type Node interface {
	Kind() Kind
}

// Statement is a marker interface for statement nodes.
type Statement interface {
	Node
	statementNode()
}

// Expression is a marker interface for expression nodes.
type Expression interface {
	Node
	expressionNode()
}

// Pattern is a binding or assignment target: an Identifier, an ObjectPattern
// or an ArrayPattern.
type Pattern interface {
	Node
	patternNode()
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// VariableDeclaration binds Pattern to the value of Init in the nearest scope.
// Declare is "let", "const" or "var"; all three are block scoped.
type VariableDeclaration struct {
	Declare string
	Pattern Pattern
	Init    Expression // optional
}

// ExpressionStatement evaluates Expr for its effect and value.
type ExpressionStatement struct {
	Expr Expression
}

// If runs Then when Cond is truthy, otherwise Else (optional).
type If struct {
	Cond Expression
	Then Statement
	Else Statement
}

// While repeats Body as long as Cond is truthy.
type While struct {
	Cond Expression
	Body Statement
}

// Break leaves the innermost While.
type Break struct{}

// Block is a braced statement list. It introduces a scope.
type Block struct {
	Body []Statement
}

// Return ends the script; Arg (optional) becomes the output.
type Return struct {
	Arg Expression
}

func (*VariableDeclaration) Kind() Kind { return KindVariableDeclaration }
func (*ExpressionStatement) Kind() Kind { return KindExpressionStatement }
func (*If) Kind() Kind                  { return KindIf }
func (*While) Kind() Kind               { return KindWhile }
func (*Break) Kind() Kind               { return KindBreak }
func (*Block) Kind() Kind               { return KindBlock }
func (*Return) Kind() Kind              { return KindReturn }

func (*VariableDeclaration) statementNode() {}
func (*ExpressionStatement) statementNode() {}
func (*If) statementNode()                  {}
func (*While) statementNode()               {}
func (*Break) statementNode()               {}
func (*Block) statementNode()               {}
func (*Return) statementNode()              {}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// Literal is a constant. Value holds nil (null), bool, float64 or string;
// BigInt is set instead for bigint literals.
type Literal struct {
	Value  any
	BigInt *big.Int
}

// Identifier names a variable, a tool, a tool namespace or a built-in.
type Identifier struct {
	Name string
}

// Member is non-computed property access: Object.Property.
type Member struct {
	Object   Expression
	Property string
	Optional bool
}

// Index is computed property access: Object[Index].
type Index struct {
	Object   Expression
	Index    Expression
	Optional bool
}

// Call invokes Callee with Args. Args may contain Spread nodes.
type Call struct {
	Callee   Expression
	Args     []Expression
	Optional bool
}

// New constructs a built-in: new Date(), new Set(items), new RegExp(src).
type New struct {
	Callee Expression
	Args   []Expression
}

// Assignment stores Right into Left. Operator is "=" or a compound form
// such as "+=".
type Assignment struct {
	Operator string
	Left     Node // Identifier, *Member, *Index, *ObjectPattern or *ArrayPattern
	Right    Expression
}

// Property is one entry of an object literal. When Spread is true, Value is
// the spread argument and Key is ignored. A non-nil Computed replaces Key.
type Property struct {
	Key      string
	Computed Expression
	Value    Expression
	Spread   bool
}

// ObjectLiteral is { key: value, ...rest }.
type ObjectLiteral struct {
	Props []Property
}

// ArrayLiteral is [a, b, ...rest]. A nil item is a hole.
type ArrayLiteral struct {
	Items []Expression
}

// TemplateLiteral is `q0${e0}q1${e1}q2`; len(Quasis) == len(Exprs)+1.
type TemplateLiteral struct {
	Quasis []string
	Exprs  []Expression
}

// RegexLiteral is /pattern/flags.
type RegexLiteral struct {
	Pattern string
	Flags   string
}

// UpdateExpr is ++x, x++, --x or x--.
type UpdateExpr struct {
	Operator string // "++" or "--"
	Target   Expression
	Prefix   bool
}

// BinaryExpr applies an arithmetic, comparison or bitwise operator.
type BinaryExpr struct {
	Operator string
	Left     Expression
	Right    Expression
}

// LogicalExpr is a short-circuiting &&, || or ??.
type LogicalExpr struct {
	Operator string
	Left     Expression
	Right    Expression
}

// UnaryExpr is !x, -x, +x or typeof x.
type UnaryExpr struct {
	Operator string
	Arg      Expression
}

// ConditionalExpr is Test ? Consequent : Alternate.
type ConditionalExpr struct {
	Test       Expression
	Consequent Expression
	Alternate  Expression
}

// Spread is ...Arg inside array literals, object literals and call arguments.
type Spread struct {
	Arg Expression
}

func (*Literal) Kind() Kind         { return KindLiteral }
func (*Identifier) Kind() Kind      { return KindIdentifier }
func (*Member) Kind() Kind          { return KindMember }
func (*Index) Kind() Kind           { return KindIndex }
func (*Call) Kind() Kind            { return KindCall }
func (*New) Kind() Kind             { return KindNew }
func (*Assignment) Kind() Kind      { return KindAssignment }
func (*ObjectLiteral) Kind() Kind   { return KindObject }
func (*ArrayLiteral) Kind() Kind    { return KindArray }
func (*TemplateLiteral) Kind() Kind { return KindTemplate }
func (*RegexLiteral) Kind() Kind    { return KindRegex }
func (*UpdateExpr) Kind() Kind      { return KindUpdate }
func (*BinaryExpr) Kind() Kind      { return KindBinary }
func (*LogicalExpr) Kind() Kind     { return KindLogical }
func (*UnaryExpr) Kind() Kind       { return KindUnary }
func (*ConditionalExpr) Kind() Kind { return KindConditional }
func (*Spread) Kind() Kind          { return KindSpread }

func (*Literal) expressionNode()         {}
func (*Identifier) expressionNode()      {}
func (*Member) expressionNode()          {}
func (*Index) expressionNode()           {}
func (*Call) expressionNode()            {}
func (*New) expressionNode()             {}
func (*Assignment) expressionNode()      {}
func (*ObjectLiteral) expressionNode()   {}
func (*ArrayLiteral) expressionNode()    {}
func (*TemplateLiteral) expressionNode() {}
func (*RegexLiteral) expressionNode()    {}
func (*UpdateExpr) expressionNode()      {}
func (*BinaryExpr) expressionNode()      {}
func (*LogicalExpr) expressionNode()     {}
func (*UnaryExpr) expressionNode()       {}
func (*ConditionalExpr) expressionNode() {}
func (*Spread) expressionNode()          {}

// ---------------------------------------------------------------------------
// Patterns
// ---------------------------------------------------------------------------

// PatternProp binds property Key to Target, falling back to Default when the
// property is undefined.
type PatternProp struct {
	Key     string
	Target  Pattern
	Default Expression
}

// ObjectPattern is { a, b: c = 1, ...rest }.
type ObjectPattern struct {
	Props []PatternProp
	Rest  string
}

// PatternElem is one position of an ArrayPattern. A nil Target skips the
// position.
type PatternElem struct {
	Target  Pattern
	Default Expression
}

// ArrayPattern is [a, , b = 2, ...rest].
type ArrayPattern struct {
	Elems []PatternElem
	Rest  string
}

func (*ObjectPattern) Kind() Kind { return KindObjectPattern }
func (*ArrayPattern) Kind() Kind  { return KindArrayPattern }

func (*Identifier) patternNode()    {}
func (*ObjectPattern) patternNode() {}
func (*ArrayPattern) patternNode()  {}

// ---------------------------------------------------------------------------
// Synthetic nodes
// ---------------------------------------------------------------------------

// Program is the root of a script: its children are the top-level statements.
type Program struct {
	Body []Statement
}

// Iteration stands for pass N of Loop. Its children are the loop condition
// (0) and the loop body (1).
type Iteration struct {
	Loop *While
	N    int
}

func (*Program) Kind() Kind   { return KindProgram }
func (*Iteration) Kind() Kind { return KindIteration }
