package air

import "github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"

// Constraint is one AIR constraint: Numerator/Zerofier, both rational
// expressions in the symbolic leaves. A valid trace makes
// Numerator vanish at every point the Zerofier also vanishes, so
// Numerator/Zerofier is a polynomial (no remainder) over the whole LDE
// domain -- the defining property the composition polynomial's
// construction depends on.
type Constraint struct {
	Name      string
	Numerator Expr
	Zerofier  Expr
}

// Eval evaluates Numerator(env) / Zerofier(env).
func (c Constraint) Eval(env *Env) field.Fp {
	num := c.Numerator.eval(env)
	den := c.Zerofier.eval(env)
	v, err := num.Div(den)
	if err != nil {
		panic("air: constraint " + c.Name + " zerofier vanished at evaluation point")
	}
	return v
}

// domain bundles the per-Air constants zerofier construction needs: the
// trace-length root of unity and the trace length itself.
type domain struct {
	omega field.Fp
	n     int
}

func (d domain) omegaPow(k int) field.Fp {
	k = ((k % d.n) + d.n) % d.n
	return d.omega.Pow(uint64(k))
}

// everyRowZerofier returns X^n - 1, vanishing at every trace row.
func (d domain) everyRowZerofier() Expr {
	return Sub(powX(d.n), One())
}

// everyKthRowZerofier returns X^(n/k) - 1, vanishing at every k-th row
// (rows 0, k, 2k, ...).
func (d domain) everyKthRowZerofier(k int) Expr {
	return Sub(powX(d.n/k), One())
}

// everyKthRowExceptLast returns the zerofier for "every k-th row except the
// last group": (X^(n/k) - 1) / (X - omega^(k*(n/k - 1))). X^(n/k)-1 vanishes
// at every k-th row including the last; dividing out the last row's factor
// leaves a polynomial vanishing at every k-th row except it, used for
// transition constraints that reference the next cycle's columns (there is
// no cycle after the last one to reference).
func (d domain) everyKthRowExceptLast(k int) Expr {
	last := d.omegaPow(k * (d.n/k - 1))
	return Div(d.everyKthRowZerofier(k), Sub(X{}, Constant{V: last}))
}

// singleRow returns the zerofier vanishing only at omega^row:
// (X - omega^row).
func (d domain) singleRow(row int) Expr {
	return Sub(X{}, Constant{V: d.omegaPow(row)})
}

// powX builds X^k via repeated squaring over the Expr tree; k is small
// relative to the trace length in every zerofier used here, so an
// unrolled Mul chain beats a dedicated Pow leaf.
func powX(k int) Expr {
	if k == 0 {
		return One()
	}
	base := Expr(X{})
	result := Expr(One())
	e := k
	for e > 0 {
		if e&1 == 1 {
			result = Mul(result, base)
		}
		base = Mul(base, base)
		e >>= 1
	}
	return result
}
