// Package rewriter rewrites expression-condition and value_expression DSL
// text into target Go source, per spec.md §4.2. Grammar shape mirrors the
// betrace DSL's use of participle v2 over a hand-declared simple lexer.
package rewriter

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// exprTop is a possibly-compared arithmetic expression: the comparison is
// optional because value_expression text is pure arithmetic while an
// Expression condition's text is usually (but need not be) a comparison.
type exprTop struct {
	Left  *arithExpr `@@`
	Op    *string    `( @( "<=" | ">=" | "==" | "!=" | "<" | ">" )`
	Right *arithExpr `  @@ )?`
}

// arithExpr handles + and - (lowest arithmetic precedence).
type arithExpr struct {
	Left *term    `@@`
	Rest []*addOp `@@*`
}

type addOp struct {
	Op   string `@("+" | "-")`
	Term *term  `@@`
}

// term handles * and /.
type term struct {
	Left *powExpr `@@`
	Rest []*mulOp `@@*`
}

type mulOp struct {
	Op    string   `@("*" | "/")`
	Right *powExpr `@@`
}

// powExpr handles ^, binding tighter than * and /. A chain a^b^c folds
// left-to-right: pow(pow(a, b), c).
type powExpr struct {
	Left *unary   `@@`
	Rest []*unary `( "^" @@ )*`
}

// unary handles a leading unary minus.
type unary struct {
	Neg  bool  `@"-"?`
	Atom *atom `@@`
}

// atom is a number, a sensor/identifier reference, a function call, or a
// parenthesized subexpression. funcCall is tried before the bare Ident
// alternative so "sqrt(x)" isn't swallowed as a lone identifier followed by
// an unconsumed "(x)".
type atom struct {
	Call   *funcCall `  @@`
	Ident  *string   `| @Ident`
	Number *string   `| @Float | @Int`
	Group  *exprTop  `| "(" @@ ")"`
}

type funcCall struct {
	Name string     `@Ident "("`
	Args []*exprTop `( @@ ( "," @@ )* )? ")"`
}

var dslLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
	{Name: "Float", Pattern: `\d+\.\d+`},
	{Name: "Int", Pattern: `\d+`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Operator", Pattern: `==|!=|<=|>=|<|>|\+|-|\*|/|\^`},
	{Name: "Punct", Pattern: `[(),]`},
})

var exprParser = participle.MustBuild[exprTop](
	participle.Lexer(dslLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

func parse(expr string) (*exprTop, error) {
	return exprParser.ParseString("", expr)
}
