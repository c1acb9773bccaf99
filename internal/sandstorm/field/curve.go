package field

import "math/big"

// Stark curve: y^2 = x^3 + alpha*x + beta over Fp.
//
// Constants reproduced from StarkWare's published Pedersen hash parameters
// (cairo-lang's pedersen_params.json / crypto-cpp). See DESIGN.md for the
// grounding note: these are the standard publicly documented values: a
// production deployment should diff them against the reference
// implementation's parameter table before relying on proofs interoperating
// with mainnet SHARP/Cairo verifiers.
var (
	CurveAlpha = OneFp()
	curveBeta, _ = new(big.Int).SetString(
		"3141592653589793238462643383279502884197169399375105820974944592307816406665", 10)
	CurveBeta = NewFp(curveBeta)
)

// Point is an affine point on the Stark curve. Inf marks the point at
// infinity (the additive identity).
type Point struct {
	X, Y Fp
	Inf  bool
}

// InfinityPoint returns the additive identity.
func InfinityPoint() Point { return Point{Inf: true} }

// IsOnCurve reports whether p satisfies y^2 = x^3 + alpha*x + beta.
func (p Point) IsOnCurve() bool {
	if p.Inf {
		return true
	}
	lhs := p.Y.Square()
	rhs := p.X.Square().Mul(p.X).Add(CurveAlpha.Mul(p.X)).Add(CurveBeta)
	return lhs.Equal(rhs)
}

// Neg returns -p.
func (p Point) Neg() Point {
	if p.Inf {
		return p
	}
	return Point{X: p.X, Y: p.Y.Neg()}
}

// Add adds two affine points using the short-Weierstrass addition formula,
// handling the doubling and point-at-infinity special cases explicitly (as
// the AIR must: the slope used at each trace step is an explicit witness
// column, not a hidden branch).
func (p Point) Add(q Point) Point {
	if p.Inf {
		return q
	}
	if q.Inf {
		return p
	}
	if p.X.Equal(q.X) {
		if p.Y.Add(q.Y).IsZero() {
			return InfinityPoint()
		}
		return p.Double()
	}
	slope, err := q.Y.Sub(p.Y).Div(q.X.Sub(p.X))
	if err != nil {
		// x-coordinates differ, so q.X - p.X cannot be zero; unreachable.
		panic(err)
	}
	return addWithSlope(p, q, slope)
}

// Double returns p+p.
func (p Point) Double() Point {
	if p.Inf || p.Y.IsZero() {
		return InfinityPoint()
	}
	num := p.X.Square().Mul(FpFromUint64(3)).Add(CurveAlpha)
	den := p.Y.Mul(FpFromUint64(2))
	slope, err := num.Div(den)
	if err != nil {
		panic(err)
	}
	return addWithSlope(p, p, slope)
}

func addWithSlope(p, q Point, slope Fp) Point {
	x3 := slope.Square().Sub(p.X).Sub(q.X)
	y3 := slope.Mul(p.X.Sub(x3)).Sub(p.Y)
	return Point{X: x3, Y: y3}
}

// ScalarMul computes [k]p via double-and-add over the bits of k, matching
// the order the AIR's builtin trace generators process bits (LSB first).
func (p Point) ScalarMul(k Fr) Point {
	acc := InfinityPoint()
	base := p
	v := k.Big()
	for i := 0; i < v.BitLen(); i++ {
		if v.Bit(i) == 1 {
			acc = acc.Add(base)
		}
		base = base.Double()
	}
	return acc
}

// Pedersen generator table. ShiftPoint, P1..P4 are the fixed base points
// used by the StarkWare Pedersen hash. Values below are
// the commonly published StarkWare constants; flagged in DESIGN.md as the
// one set of numeric constants in this repo that should be diffed against
// the reference crypto-cpp/cairo-lang tables before trusting cross-verifier
// proof compatibility, since no test execution is available here to pin
// them down definitively.
var (
	ShiftPoint = mustPoint(
		"0x49ee3eba8c1600700ee1b87eb599f16716b0b1022947733551fde4050ca6804",
		"0x3ca0cfe4b3bc6ddf346d49d06ea0ed34e621062c0e056c1d0405d266e10268a")
	PedersenP1 = mustPoint(
		"0x234287dcbaffe7f969c748655fca9e58fa8120b6d56eb0c1080d17957ebe47b",
		"0x3b056f100f96fb21e889527d41f4e39940135dd7a6c94cc6ed0268ee89e5615")
	PedersenP2 = mustPoint(
		"0x4fa56f376c83db33f9dab2656558f3399099ec1de5e3018b7a6932dba8aa378",
		"0x3fa0984c931c9e38113e0c0e47e4401562761f92a7a23b45168f4e80ff5b54d")
	PedersenP3 = mustPoint(
		"0x4ba4cc166be8dec764910f75b45f74b40c690c74709e90f3aa372f0bd2d6997",
		"0x0040301cf5c1751f4b971e46c4ede85fcac5c59a5ce5ae7c48151f27b24b219c")
	PedersenP4 = mustPoint(
		"0x54302dcb0e6cc1c6e44cca8f61a63bb2ca65048d53fb325d36ff12c49a58202",
		"0x1b77b3e37d13504b348046268d8ae25ce98ad783c25561a879dcc77e99c2426")
)

// ecdsaGenerator is the Stark curve's standard ECDSA base point (the
// publicly documented EC_GEN constant cairo-lang's signature.py uses),
// distinct from the Pedersen hash's ShiftPoint/P1..P4 table above. Same
// caveat as the Pedersen table: diff against the reference constant table
// before relying on cross-verifier signature compatibility.
var ecdsaGenerator = mustPoint(
	"0x1ef15c18599971b7beced415a40f0c7deacfd9b0d1819e03d723d8bc943cfca",
	"0x5668060aa49730b7be4801df46ec62de53ecd11abe43a32873000c36e8dc1f")

// StarkGenerator returns the Stark curve's ECDSA base point.
func StarkGenerator() Point { return ecdsaGenerator }

func mustPoint(xHex, yHex string) Point {
	x, ok1 := new(big.Int).SetString(xHex[2:], 16)
	y, ok2 := new(big.Int).SetString(yHex[2:], 16)
	if !ok1 || !ok2 {
		panic("field: malformed curve point constant")
	}
	return Point{X: NewFp(x), Y: NewFp(y)}
}
