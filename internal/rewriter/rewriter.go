package rewriter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pulsar-rules/pulsar/internal/domain"
)

// mathFunctions maps every accepted spelling (lower-cased) to the target
// runtime's canonical name.
var mathFunctions = map[string]string{
	"abs": "abs", "pow": "pow", "sqrt": "sqrt",
	"sin": "sin", "cos": "cos", "tan": "tan",
	"log": "log", "exp": "exp",
	"floor": "floor", "ceil": "ceil", "round": "round",
}

// ProducerIndex reports whether name is produced by some rule's SetValue
// action, in which case a bare reference to it reads from outputs rather
// than inputs.
type ProducerIndex func(name string) bool

// Rewrite turns DSL expression text into target-language source. sensor
// names are rewritten to inputs["name"] or outputs["name"] depending on
// producer; ^ is rewritten to pow(); whitelisted function names are
// normalized to their canonical spelling.
//
// Rewrite is total on lexically-recognizable input: a malformed expression
// produces an *domain.ExpressionError, never a panic.
func Rewrite(expr string, loc domain.SourceLocation, produced ProducerIndex) (string, error) {
	tree, err := parse(expr)
	if err != nil {
		return "", &domain.ExpressionError{Expr: expr, Message: err.Error(), Location: loc}
	}

	body := renderTop(tree, produced)
	if needsWrap(expr) {
		return "(" + body + ")", nil
	}
	return body, nil
}

var tokenPattern = regexp.MustCompile(`\d+\.\d+|\d+|[A-Za-z_][A-Za-z0-9_]*|==|!=|<=|>=|<|>|\+|-|\*|/|\^|[(),]`)

// needsWrap implements the parenthesization rule in spec.md §4.2: wrap iff
// the expression is more than a single bare token (identifier or number).
// A single function call, or any expression mixing arithmetic and
// comparison operators, always lexes to more than one token, so this one
// token-count check subsumes all three conditions the rule lists. This
// counts tokens directly off the source text rather than re-using the
// participle lexer, since only a count is needed, not a parse.
func needsWrap(expr string) bool {
	return len(tokenPattern.FindAllString(expr, 2)) > 1
}

func renderTop(e *exprTop, produced ProducerIndex) string {
	left := renderArith(e.Left, produced)
	if e.Op == nil {
		return left
	}
	right := renderArith(e.Right, produced)
	return fmt.Sprintf("%s %s %s", left, *e.Op, right)
}

func renderArith(e *arithExpr, produced ProducerIndex) string {
	out := renderTerm(e.Left, produced)
	for _, r := range e.Rest {
		out = fmt.Sprintf("%s %s %s", out, r.Op, renderTerm(r.Term, produced))
	}
	return out
}

func renderTerm(t *term, produced ProducerIndex) string {
	out := renderPow(t.Left, produced)
	for _, r := range t.Rest {
		out = fmt.Sprintf("%s %s %s", out, r.Op, renderPow(r.Right, produced))
	}
	return out
}

func renderPow(p *powExpr, produced ProducerIndex) string {
	out := renderUnary(p.Left, produced)
	for _, r := range p.Rest {
		out = fmt.Sprintf("pow(%s, %s)", out, renderUnary(r, produced))
	}
	return out
}

func renderUnary(u *unary, produced ProducerIndex) string {
	out := renderAtom(u.Atom, produced)
	if u.Neg {
		return "-" + out
	}
	return out
}

func renderAtom(a *atom, produced ProducerIndex) string {
	switch {
	case a.Call != nil:
		return renderCall(a.Call, produced)
	case a.Ident != nil:
		return renderRef(*a.Ident, produced)
	case a.Number != nil:
		return *a.Number
	case a.Group != nil:
		return "(" + renderTop(a.Group, produced) + ")"
	default:
		return ""
	}
}

func renderCall(c *funcCall, produced ProducerIndex) string {
	name := c.Name
	if canonical, ok := mathFunctions[strings.ToLower(c.Name)]; ok {
		name = canonical
	}
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = renderTop(a, produced)
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(args, ", "))
}

func renderRef(name string, produced ProducerIndex) string {
	if produced != nil && produced(name) {
		return fmt.Sprintf("outputs[%q]", name)
	}
	return fmt.Sprintf("inputs[%q]", name)
}
