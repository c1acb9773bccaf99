// Package air implements the constraint expression DAG, zerofiers, and
// per-layout AIR configurations: the symbolic leaves
// Trace/X/Constant/Challenge/Hint/CompositionCoeff, the CPU, permutation,
// and builtin constraint groups, and the composition-polynomial assembly
// both the prover and verifier evaluate. Constraints are explicit
// expression trees so TraceArguments can walk them to discover which
// (col, row_offset) pairs need out-of-domain evaluations.
package air

import (
	"fmt"

	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"
)

// Expr is a node in a constraint's rational-expression tree.
type Expr interface {
	// eval evaluates the node given a row-accessor, the evaluation point,
	// drawn challenges, derived hints, and composition coefficients.
	eval(env *Env) field.Fp
	// walk invokes visit on every Trace leaf reachable from this node.
	walk(visit func(Trace))
}

// Env supplies every external value an Expr might reference.
type Env struct {
	X              field.Fp
	Row            func(col int, rowOffset int) field.Fp
	Challenges     []field.Fp
	Hints          []field.Fp
	CompCoeffs     []field.Fp
}

// Eval evaluates e in env.
func Eval(e Expr, env *Env) field.Fp { return e.eval(env) }

// Trace references column `col` at `rowOffset` rows from the current row
// (mod trace length, handled by the Row accessor).
type Trace struct {
	Col       int
	RowOffset int
	// Name documents which logical register/column this is, purely for
	// error messages and trace_arguments() labeling.
	Name string
}

func (t Trace) eval(env *Env) field.Fp    { return env.Row(t.Col, t.RowOffset) }
func (t Trace) walk(visit func(Trace))    { visit(t) }

// X is the evaluation point itself.
type X struct{}

func (X) eval(env *Env) field.Fp { return env.X }
func (X) walk(func(Trace))       {}

// Constant is a fixed field element baked into the constraint.
type Constant struct{ V field.Fp }

func (c Constant) eval(*Env) field.Fp { return c.V }
func (c Constant) walk(func(Trace))   {}

// ConstU64 is shorthand for a Constant built from a uint64.
func ConstU64(v uint64) Expr { return Constant{V: field.FpFromUint64(v)} }

// Challenge references the i-th verifier challenge drawn after the base
// commitment.
type Challenge struct{ Index int }

func (c Challenge) eval(env *Env) field.Fp { return env.Challenges[c.Index] }
func (c Challenge) walk(func(Trace))       {}

// Hint references the i-th prover/verifier-derived constant:
// initial/final registers, memory/range-check/diluted-check boundary
// values.
type Hint struct{ Index int }

func (h Hint) eval(env *Env) field.Fp { return env.Hints[h.Index] }
func (h Hint) walk(func(Trace))       {}

// CompositionCoeff references the i-th composition coefficient alpha^i.
type CompositionCoeff struct{ Index int }

func (c CompositionCoeff) eval(env *Env) field.Fp { return env.CompCoeffs[c.Index] }
func (c CompositionCoeff) walk(func(Trace))       {}

type binOp struct {
	op          byte // '+', '-', '*', '/'
	left, right Expr
}

func (b binOp) eval(env *Env) field.Fp {
	l, r := b.left.eval(env), b.right.eval(env)
	switch b.op {
	case '+':
		return l.Add(r)
	case '-':
		return l.Sub(r)
	case '*':
		return l.Mul(r)
	case '/':
		v, err := l.Div(r)
		if err != nil {
			panic(fmt.Errorf("air: division by zero evaluating constraint expression: %w", err))
		}
		return v
	default:
		panic("air: invalid binOp")
	}
}

func (b binOp) walk(visit func(Trace)) {
	b.left.walk(visit)
	b.right.walk(visit)
}

func Add(a, b Expr) Expr { return binOp{op: '+', left: a, right: b} }
func Sub(a, b Expr) Expr { return binOp{op: '-', left: a, right: b} }
func Mul(a, b Expr) Expr { return binOp{op: '*', left: a, right: b} }
func Div(a, b Expr) Expr { return binOp{op: '/', left: a, right: b} }

// Sum and Product fold a slice of expressions with + and * respectively,
// starting from the additive/multiplicative identity.
func Sum(es ...Expr) Expr {
	acc := Expr(Constant{V: field.ZeroFp()})
	for _, e := range es {
		acc = Add(acc, e)
	}
	return acc
}

func Product(es ...Expr) Expr {
	acc := Expr(Constant{V: field.OneFp()})
	for _, e := range es {
		acc = Mul(acc, e)
	}
	return acc
}

// Neg returns -e.
func Neg(e Expr) Expr { return Sub(Constant{V: field.ZeroFp()}, e) }

// One and ZeroExpr are convenience constants.
func One() Expr  { return Constant{V: field.OneFp()} }
func ZeroExpr() Expr { return Constant{V: field.ZeroFp()} }

// Booleanity returns the constraint expression b*(b-1), zero iff b in {0,1}.
func Booleanity(b Expr) Expr { return Mul(b, Sub(b, One())) }

// TraceArguments walks every constraint and returns the deduplicated,
// ordered list of (col, rowOffset) pairs referenced -- the out-of-domain
// evaluation points the prover must emit and the verifier must request.
func TraceArguments(constraints []Constraint) []Trace {
	seen := map[[2]int]bool{}
	var out []Trace
	for _, c := range constraints {
		c.Numerator.walk(func(t Trace) {
			key := [2]int{t.Col, t.RowOffset}
			if !seen[key] {
				seen[key] = true
				out = append(out, t)
			}
		})
	}
	return out
}
