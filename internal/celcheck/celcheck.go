// Package celcheck is a test-only oracle used by internal/rewriter's tests
// to assert the round-trip property from spec.md §8: the boolean/numeric
// value the target runtime computes for a rewritten expression must equal
// the DSL-semantics value of the original. It builds a cel-go environment
// that mirrors the rewriter's identifier/function surface and evaluates the
// *original* DSL expression text directly, independent of the rewriter's
// own logic, so a bug shared between the two wouldn't cancel out.
//
// No non-test package imports celcheck.
package celcheck

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// Oracle evaluates DSL arithmetic/boolean expressions via cel-go.
type Oracle struct {
	env *cel.Env
}

// New builds an Oracle whose environment declares one float64 variable per
// name in sensorNames (the DSL's sensor namespace is flat, so inputs and
// outputs share one set of identifiers) plus the whitelisted math
// functions from spec.md §4.2.
func New(sensorNames []string) (*Oracle, error) {
	opts := make([]cel.EnvOption, 0, len(sensorNames)+12)
	for _, name := range sensorNames {
		opts = append(opts, cel.Variable(name, cel.DoubleType))
	}
	opts = append(opts, mathFunctionDecls()...)

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("celcheck: failed to build environment: %w", err)
	}
	return &Oracle{env: env}, nil
}

// Eval compiles and evaluates expr (DSL syntax, including `^` for power)
// against vars and returns its numeric result: true/false become 1/0.
func (o *Oracle) Eval(expr string, vars map[string]float64) (float64, error) {
	translated := floatLiterals(translateCaret(expr))

	ast, issues := o.env.Compile(translated)
	if issues != nil && issues.Err() != nil {
		return 0, fmt.Errorf("celcheck: compile %q (as %q): %w", expr, translated, issues.Err())
	}
	prg, err := o.env.Program(ast)
	if err != nil {
		return 0, fmt.Errorf("celcheck: program %q: %w", expr, err)
	}

	activation := make(map[string]any, len(vars))
	for k, v := range vars {
		activation[k] = v
	}

	out, _, err := prg.Eval(activation)
	if err != nil {
		return 0, fmt.Errorf("celcheck: eval %q: %w", expr, err)
	}
	return toFloat(out), nil
}

func toFloat(v ref.Val) float64 {
	switch x := v.(type) {
	case types.Bool:
		if x {
			return 1
		}
		return 0
	case types.Double:
		return float64(x)
	case types.Int:
		return float64(x)
	default:
		return 0
	}
}

// caretPattern matches the same flanking atoms the rewriter recognizes for
// `^`: a function call/identifier/number/parenthesized group on each side.
// The function-call alternative is what lets a later pass take the
// `pow(...)` produced by an earlier pass as its left operand.
var caretPattern = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*\([^()]*\)|[A-Za-z_][A-Za-z0-9_]*|\d+(?:\.\d+)?|\([^()]*\))\s*\^\s*([A-Za-z_][A-Za-z0-9_]*\([^()]*\)|[A-Za-z_][A-Za-z0-9_]*|\d+(?:\.\d+)?|\([^()]*\))`)

// numberOrIdent matches identifiers and numeric literals, so that
// floatLiterals can tell a bare integer apart from digits inside a name.
var numberOrIdent = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*|\d+(?:\.\d+)?`)

// floatLiterals rewrites every integer literal as a double literal (`32`
// becomes `32.0`): DSL numbers are all float64, and cel-go has no implicit
// int-to-double conversion for arithmetic or for the pow overload.
func floatLiterals(expr string) string {
	return numberOrIdent.ReplaceAllStringFunc(expr, func(tok string) string {
		if tok[0] >= '0' && tok[0] <= '9' && !strings.Contains(tok, ".") {
			return tok + ".0"
		}
		return tok
	})
}

// translateCaret rewrites every `A ^ B` into `pow(A, B)`, repeating until
// no carets remain (handles a three-atom chain like `a ^ b ^ c` left to
// right, as pow(pow(a, b), c)).
func translateCaret(expr string) string {
	for caretPattern.MatchString(expr) {
		expr = caretPattern.ReplaceAllString(expr, "pow($1, $2)")
	}
	return expr
}

func mathFunctionDecls() []cel.EnvOption {
	unary := map[string]func(float64) float64{
		"abs":   math.Abs,
		"sqrt":  math.Sqrt,
		"sin":   math.Sin,
		"cos":   math.Cos,
		"tan":   math.Tan,
		"log":   math.Log,
		"exp":   math.Exp,
		"floor": math.Floor,
		"ceil":  math.Ceil,
		"round": math.Round,
	}

	opts := make([]cel.EnvOption, 0, len(unary)+1)
	for name, fn := range unary {
		fn := fn
		opts = append(opts, cel.Function(name,
			cel.Overload(name+"_double", []*cel.Type{cel.DoubleType}, cel.DoubleType,
				cel.UnaryBinding(func(v ref.Val) ref.Val {
					return types.Double(fn(float64(v.(types.Double))))
				}),
			),
		))
	}

	opts = append(opts, cel.Function("pow",
		cel.Overload("pow_double_double", []*cel.Type{cel.DoubleType, cel.DoubleType}, cel.DoubleType,
			cel.BinaryBinding(func(a, b ref.Val) ref.Val {
				return types.Double(math.Pow(float64(a.(types.Double)), float64(b.(types.Double))))
			}),
		),
	))

	return opts
}
