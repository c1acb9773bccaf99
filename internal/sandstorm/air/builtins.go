package air

import (
	"math/big"

	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"
)

// twoPow128 weights the bitwise builtin's overflow witness: each operand
// slot's 8 limbs cover the low 128 bits, and forcing the overflow term to
// zero rules out a value using more than those 128 bits.
var twoPow128 = field.NewFp(new(big.Int).Lsh(big.NewInt(1), 128))

// Builtin column blocks are laid out after the CPU's NumCPUBaseColumns,
// one block per builtin a layout enables. Each builtin runs at its own
// ratio (trace rows per instance) and occupies its own periodic row
// structure within the shared n-row table. Ratios are multiples of
// CycleHeight so every checkpoint lands on a cycle's first row, where the
// memory stream and diluted pool sample builtin cells.
//
// Each block carries one witnessed step of its instance's recurrence per
// checkpoint rather than the full step chain; the chain's remaining steps
// are recomputed outside the trace when the instance is built. See
// DESIGN.md for the fidelity notes.
const (
	PedersenRatio      = 128
	RangeCheck128Ratio = CycleHeight
	ECDSARatio         = 2048
	// BitwiseRatio stays at one instance per cycle: the diluted-check
	// permutation samples ColDilutedUnsorted at cycle-start rows only, so a
	// smaller ratio would feed the pool at rows it never reads.
	BitwiseRatio  = CycleHeight
	ECOpRatio     = 256
	PoseidonRatio = CycleHeight
)

type builtinLayout struct {
	pedersenBase, rangeCheckBase, ecdsaBase, bitwiseBase, ecOpBase, poseidonBase int
	total                                                                       int
}

func layoutBuiltinColumns(base int, names []string) builtinLayout {
	bl := builtinLayout{}
	cur := base
	has := func(n string) bool {
		for _, x := range names {
			if x == n {
				return true
			}
		}
		return false
	}
	if has("pedersen") {
		bl.pedersenBase = cur
		cur += 6 // partial_x, partial_y, suffix, slope, addr, value
	}
	if has("range_check128") {
		bl.rangeCheckBase = cur
		cur += 3 // value, addr, part
	}
	if has("ecdsa") {
		bl.ecdsaBase = cur
		cur += 10 // px,py,suffix,slope, qx,qy (pubkey point), pubkey addr/val, msg addr/val
	}
	if has("bitwise") {
		bl.bitwiseBase = cur
		// x,y,x_and_y,x_xor_y,x_or_y,addr, then per-slot 16-bit limb/overflow
		// columns for x/y/and/xor (4 slots * 2), plus the low-order
		// residue/companion pair that feeds the diluted-check pool.
		cur += 16
	}
	if has("ec_op") {
		bl.ecOpBase = cur
		cur += 8 // px,py,suffix,slope, qx,qy (operand point), addr, value
	}
	if has("poseidon") {
		bl.poseidonBase = cur
		cur += 4 // pre_sbox, post_sbox, output, addr
	}
	bl.total = cur
	return bl
}

// StarknetConfig enables the starknet layout's builtin set: Pedersen,
// range-check-128, ECDSA, bitwise, EC-op.
func StarknetConfig() Config {
	names := []string{"pedersen", "range_check128", "ecdsa", "bitwise", "ec_op"}
	bl := layoutBuiltinColumns(NumCPUBaseColumns, names)
	return Config{
		Layout:              LayoutStarknet,
		NumBaseColumns:      bl.total,
		NumExtensionColumns: NumCPUExtensionColumns,
		// The on-chain verifier exposes only the leading 20 bytes of each
		// commitment digest, so the production starknet layout commits
		// through the masked variant; the plain layout keeps full-width
		// Keccak digests.
		HashFamily: "masked-keccak256",
		Builtins: []BuiltinRatio{
			{Name: "pedersen", Ratio: PedersenRatio},
			{Name: "range_check128", Ratio: RangeCheck128Ratio},
			{Name: "ecdsa", Ratio: ECDSARatio},
			{Name: "bitwise", Ratio: BitwiseRatio},
			{Name: "ec_op", Ratio: ECOpRatio},
		},
	}
}

// RecursiveConfig enables Pedersen, range-check-128, and Poseidon -- the
// builtin set a proof-verifying-a-proof layout needs.
func RecursiveConfig() Config {
	names := []string{"pedersen", "range_check128", "poseidon"}
	bl := layoutBuiltinColumns(NumCPUBaseColumns, names)
	return Config{
		Layout:              LayoutRecursive,
		NumBaseColumns:      bl.total,
		NumExtensionColumns: NumCPUExtensionColumns,
		HashFamily:          "masked-blake2s256",
		Builtins: []BuiltinRatio{
			{Name: "pedersen", Ratio: PedersenRatio},
			{Name: "range_check128", Ratio: RangeCheck128Ratio},
			{Name: "poseidon", Ratio: PoseidonRatio},
		},
	}
}

// BuiltinLayout exposes the starting column index of each builtin's block
// for a given config, the same bookkeeping BuiltinConstraints uses
// internally, so trace building can fill the exact columns the constraints
// read without duplicating the offset arithmetic.
type BuiltinLayout struct {
	PedersenBase, RangeCheckBase, ECDSABase, BitwiseBase, ECOpBase, PoseidonBase int
	NumBaseColumns                                                              int
}

// BuiltinColumns returns cfg's builtin column layout.
func BuiltinColumns(cfg Config) BuiltinLayout {
	bl := layoutBuiltinColumns(NumCPUBaseColumns, builtinNames(cfg))
	return BuiltinLayout{
		PedersenBase:   bl.pedersenBase,
		RangeCheckBase: bl.rangeCheckBase,
		ECDSABase:      bl.ecdsaBase,
		BitwiseBase:    bl.bitwiseBase,
		ECOpBase:       bl.ecOpBase,
		PoseidonBase:   bl.poseidonBase,
		NumBaseColumns: bl.total,
	}
}

// MemPair names one builtin's (address, value) cell pair, fed into the
// memory permutation's program-order stream one slot per cycle.
type MemPair struct {
	Name    string
	AddrCol int
	ValCol  int
}

// BuiltinMemPairs lists the memory cells cfg's builtins contribute to the
// stream, in builtin order. ECDSA contributes two cells (pubkey and
// message); the rest contribute one.
func BuiltinMemPairs(cfg Config) []MemPair {
	bl := layoutBuiltinColumns(NumCPUBaseColumns, builtinNames(cfg))
	var out []MemPair
	for _, b := range cfg.Builtins {
		switch b.Name {
		case "pedersen":
			out = append(out, MemPair{"pedersen", bl.pedersenBase + pedColAddr, bl.pedersenBase + pedColValue})
		case "range_check128":
			out = append(out, MemPair{"rc128", bl.rangeCheckBase + rcColAddr, bl.rangeCheckBase + rcColValue})
		case "ecdsa":
			out = append(out,
				MemPair{"ecdsa_pubkey", bl.ecdsaBase + ecdsaColPubkeyAddr, bl.ecdsaBase + ecdsaColPubkeyVal},
				MemPair{"ecdsa_msg", bl.ecdsaBase + ecdsaColMsgAddr, bl.ecdsaBase + ecdsaColMsgVal})
		case "bitwise":
			out = append(out, MemPair{"bitwise", bl.bitwiseBase + bwColAddr, bl.bitwiseBase + bwColX})
		case "ec_op":
			out = append(out, MemPair{"ecop", bl.ecOpBase + ecOpColAddr, bl.ecOpBase + ecOpColValue})
		case "poseidon":
			out = append(out, MemPair{"poseidon", bl.poseidonBase + poseidonColAddr, bl.poseidonBase + poseidonColOutput})
		}
	}
	return out
}

// Intra-block column offsets, exported so trace building can write the
// exact cells the constraint builders read.
const (
	PedColPartialX = pedColPartialX
	PedColPartialY = pedColPartialY
	PedColSuffix   = pedColSuffix
	PedColSlope    = pedColSlope
	PedColAddr     = pedColAddr
	PedColValue    = pedColValue

	RCColValue = rcColValue
	RCColAddr  = rcColAddr
	RCColPart  = rcColPart

	BWColX           = bwColX
	BWColY           = bwColY
	BWColAnd         = bwColAnd
	BWColXor         = bwColXor
	BWColOr          = bwColOr
	BWColAddr        = bwColAddr
	BWColXLimb       = bwColXLimb
	BWColYLimb       = bwColYLimb
	BWColAndLimb     = bwColAndLimb
	BWColXorLimb     = bwColXorLimb
	BWColXOverflow   = bwColXOverflow
	BWColYOverflow   = bwColYOverflow
	BWColAndOverflow = bwColAndOverflow
	BWColXorOverflow = bwColXorOverflow
	BWColXLow2       = bwColXLow2
	BWColXHi         = bwColXHi

	ECDSAColPX         = ecdsaColPX
	ECDSAColPY         = ecdsaColPY
	ECDSAColSuffix     = ecdsaColSuffix
	ECDSAColSlope      = ecdsaColSlope
	ECDSAColQX         = ecdsaColQX
	ECDSAColQY         = ecdsaColQY
	ECDSAColPubkeyAddr = ecdsaColPubkeyAddr
	ECDSAColPubkeyVal  = ecdsaColPubkeyVal
	ECDSAColMsgAddr    = ecdsaColMsgAddr
	ECDSAColMsgVal     = ecdsaColMsgVal

	ECOpColPX     = ecOpColPX
	ECOpColPY     = ecOpColPY
	ECOpColSuffix = ecOpColSuffix
	ECOpColSlope  = ecOpColSlope
	ECOpColQX     = ecOpColQX
	ECOpColQY     = ecOpColQY
	ECOpColAddr   = ecOpColAddr
	ECOpColValue  = ecOpColValue

	PoseidonColPreSBox  = poseidonColPreSBox
	PoseidonColPostSBox = poseidonColPostSBox
	PoseidonColOutput   = poseidonColOutput
	PoseidonColAddr     = poseidonColAddr
)

func builtinNames(cfg Config) []string {
	names := make([]string, len(cfg.Builtins))
	for i, b := range cfg.Builtins {
		names[i] = b.Name
	}
	return names
}

// BuiltinConstraints builds the constraint group for every builtin
// cfg.Builtins lists.
func BuiltinConstraints(cfg Config, n int, omega field.Fp) []Constraint {
	d := domain{omega: omega, n: n}
	bl := layoutBuiltinColumns(NumCPUBaseColumns, builtinNames(cfg))
	var cs []Constraint
	add := func(name string, numerator Expr, zerofier Expr) {
		cs = append(cs, Constraint{Name: name, Numerator: numerator, Zerofier: zerofier})
	}

	for _, b := range cfg.Builtins {
		switch b.Name {
		case "pedersen":
			addPedersenConstraints(add, d, bl.pedersenBase, b.Ratio)
		case "range_check128":
			addRangeCheck128Constraints(add, d, bl.rangeCheckBase, b.Ratio)
		case "bitwise":
			addBitwiseConstraints(add, d, bl.bitwiseBase, b.Ratio)
		case "ecdsa":
			addECDSAConstraints(add, d, bl.ecdsaBase, b.Ratio)
		case "ec_op":
			addECOpConstraints(add, d, bl.ecOpBase, b.Ratio)
		case "poseidon":
			addPoseidonConstraints(add, d, bl.poseidonBase, b.Ratio)
		}
	}
	return cs
}

const (
	pedColPartialX = iota
	pedColPartialY
	pedColSuffix
	pedColSlope
	pedColAddr
	pedColValue
)

// addPedersenConstraints checks one witnessed step of the hash's
// partial-sum recurrence per instance: selector-bit booleanity, the
// 252-bit decomposition end, and the conditional chord addition of the
// first generator-table point. The witnessed step is the low half's bit-0
// step, so the table point is the constant P1 (a full periodic-polynomial
// table would supply it as an expression in X^(n/512); see DESIGN.md).
func addPedersenConstraints(add func(string, Expr, Expr), d domain, base, ratio int) {
	instancePeriod := d.everyKthRowZerofier(ratio)
	instancePeriodExceptLast := d.everyKthRowExceptLast(ratio)
	px := func(o int) Expr { return col(base+pedColPartialX, o, "pedersen_partial_x") }
	py := func(o int) Expr { return col(base+pedColPartialY, o, "pedersen_partial_y") }
	suffix := func(o int) Expr { return col(base+pedColSuffix, o, "pedersen_suffix") }
	slope := col(base+pedColSlope, 0, "pedersen_slope")

	b := Sub(suffix(0), Mul(ConstU64(2), suffix(1)))
	add("pedersen_selector_bool", Booleanity(b), instancePeriod)
	add("pedersen_decomposition_end", suffix(252), instancePeriod)

	p1x, p1y := Constant{V: field.PedersenP1.X}, Constant{V: field.PedersenP1.Y}
	// Chord-slope definition: slope*(px - P1.x) = py - P1.y when adding.
	add("pedersen_slope_def", Mul(b, Sub(Mul(slope, Sub(px(0), p1x)), Sub(py(0), p1y))), instancePeriod)
	nextX, nextY := px(1), py(1)
	sameX := Mul(Sub(One(), b), Sub(nextX, px(0)))
	addedX := Mul(b, Sub(nextX, Sub(Sub(Mul(slope, slope), px(0)), p1x)))
	add("pedersen_add_or_copy_x", Add(sameX, addedX), instancePeriod)
	sameY := Mul(Sub(One(), b), Sub(nextY, py(0)))
	addedY := Mul(b, Sub(nextY, Sub(Mul(slope, Sub(px(0), nextX)), py(0))))
	add("pedersen_add_or_copy_y", Add(sameY, addedY), instancePeriod)

	add("pedersen_memory_linkage", Sub(col(base+pedColValue, 0, "pedersen_value"), px(0)), instancePeriod)
	addrNext := col(base+pedColAddr, ratio, "pedersen_addr_next")
	addrCur := col(base+pedColAddr, 0, "pedersen_addr")
	// addrNext reaches into the next instance's row; the last instance has
	// no next one to reach into.
	add("pedersen_addr_continuity", Sub(addrNext, Add(addrCur, One())), instancePeriodExceptLast)
}

const (
	rcColValue = iota
	rcColAddr
	rcColPart
)

// addRangeCheck128Constraints checks value = Sum part_i * 2^(16i) over the
// eight 16-bit limbs and address continuity.
func addRangeCheck128Constraints(add func(string, Expr, Expr), d domain, base, ratio int) {
	instancePeriod := d.everyKthRowZerofier(ratio)
	var sum Expr = ZeroExpr()
	for i := 0; i < 8; i++ {
		part := col(base+rcColPart, i, "rc128_part")
		sum = Add(sum, Mul(part, ConstU64(uint64(1)<<(16*uint(i)))))
	}
	add("range_check128_decomposition", Sub(col(base+rcColValue, 0, "rc128_value"), sum), instancePeriod)
	addrNext := col(base+rcColAddr, ratio, "rc128_addr_next")
	addrCur := col(base+rcColAddr, 0, "rc128_addr")
	add("range_check128_addr_continuity", Sub(addrNext, Add(addrCur, One())), d.everyKthRowExceptLast(ratio))
}

const (
	bwColX = iota
	bwColY
	bwColAnd
	bwColXor
	bwColOr
	bwColAddr
	bwColXLimb
	bwColYLimb
	bwColAndLimb
	bwColXorLimb
	bwColXOverflow
	bwColYOverflow
	bwColAndOverflow
	bwColXorOverflow
	bwColXLow2 // low DilutedNBits-bit residue of x's least-significant limb
	bwColXHi   // companion quotient: limb0 = 2^DilutedNBits * hi + low2
)

// addBitwiseConstraints checks the closed-form identities
// x|y = (x&y)+(x^y) and x+y = (x^y)+2*(x&y), reconstructs each of the four
// operand slots from its own eight 16-bit limbs, forces each slot's
// overflow witness to zero, and feeds the diluted-check pool with x's
// low-order residue.
//
// Operands are 128-bit (8 plain limbs) rather than 256-bit diluted
// segments, and limbs are not individually range-checked to 16 bits.
func addBitwiseConstraints(add func(string, Expr, Expr), d domain, base, ratio int) {
	instancePeriod := d.everyKthRowZerofier(ratio)
	x, y := col(base+bwColX, 0, "bw_x"), col(base+bwColY, 0, "bw_y")
	and, xor, or := col(base+bwColAnd, 0, "bw_and"), col(base+bwColXor, 0, "bw_xor"), col(base+bwColOr, 0, "bw_or")
	add("bitwise_or_identity", Sub(or, Add(and, xor)), instancePeriod)
	add("bitwise_add_identity", Sub(Add(x, y), Add(xor, Mul(ConstU64(2), and))), instancePeriod)

	decompose := func(val Expr, limbCol, overflowCol int, name string) {
		var sum Expr = ZeroExpr()
		for i := 0; i < 8; i++ {
			limb := col(base+limbCol, i, name+"_limb")
			sum = Add(sum, Mul(limb, ConstU64(uint64(1)<<(16*uint(i)))))
		}
		overflow := col(base+overflowCol, 0, name+"_overflow")
		sum = Add(sum, Mul(overflow, Constant{V: twoPow128}))
		add(name+"_decomposition", Sub(val, sum), instancePeriod)
		add(name+"_unique_unpacking", overflow, instancePeriod)
	}
	decompose(x, bwColXLimb, bwColXOverflow, "bitwise_x")
	decompose(y, bwColYLimb, bwColYOverflow, "bitwise_y")
	decompose(and, bwColAndLimb, bwColAndOverflow, "bitwise_and")
	decompose(xor, bwColXorLimb, bwColXorOverflow, "bitwise_xor")

	limb0, hi, low2 := col(base+bwColXLimb, 0, "bw_x_limb"), col(base+bwColXHi, 0, "bw_x_hi"), col(base+bwColXLow2, 0, "bw_x_low2")
	add("bitwise_low2_decomposition", Sub(limb0, Add(Mul(ConstU64(uint64(1)<<uint(DilutedNBits)), hi), low2)), instancePeriod)
	rangePoly := Expr(One())
	for v := uint64(0); v < uint64(1)<<uint(DilutedNBits); v++ {
		rangePoly = Mul(rangePoly, Sub(low2, ConstU64(v)))
	}
	add("bitwise_low2_range", rangePoly, instancePeriod)
	add("bitwise_diluted_feed", Sub(col(ColDilutedUnsorted, 0, "diluted_unsorted"), dilutionExpr(low2, DilutedNBits, DilutedSpacing)), instancePeriod)
}

const (
	ecdsaColPX = iota
	ecdsaColPY
	ecdsaColSuffix
	ecdsaColSlope
	ecdsaColQX
	ecdsaColQY
	ecdsaColPubkeyAddr
	ecdsaColPubkeyVal
	ecdsaColMsgAddr
	ecdsaColMsgVal
)

// addECDSAConstraints checks one witnessed step of the u2*pubkey scalar
// multiplication per instance. The running sum (px, py) is anchored at the
// shift point so every intermediate value stays affine; the pubkey point
// lives in its own (qx, qy) columns, is checked on-curve, and is what the
// pubkey memory cell is tied to -- so a committed pubkey value that is not
// the x-coordinate of a curve point, or that disagrees with the point the
// witnessed addition actually consumed, fails in-circuit. The chord slope
// is a witness column bound by its defining relation.
func addECDSAConstraints(add func(string, Expr, Expr), d domain, base, ratio int) {
	instancePeriod := d.everyKthRowZerofier(ratio)
	instancePeriodExceptLast := d.everyKthRowExceptLast(ratio)
	px := func(o int) Expr { return col(base+ecdsaColPX, o, "ecdsa_px") }
	py := func(o int) Expr { return col(base+ecdsaColPY, o, "ecdsa_py") }
	qx := col(base+ecdsaColQX, 0, "ecdsa_qx")
	qy := col(base+ecdsaColQY, 0, "ecdsa_qy")
	slope := col(base+ecdsaColSlope, 0, "ecdsa_slope")

	onCurve := func(xe, ye Expr) Expr {
		return Sub(Mul(ye, ye), Add(Mul(xe, Mul(xe, xe)), Add(Mul(Constant{V: field.CurveAlpha}, xe), Constant{V: field.CurveBeta})))
	}
	add("ecdsa_acc_on_curve", onCurve(px(0), py(0)), instancePeriod)
	add("ecdsa_pubkey_on_curve", onCurve(qx, qy), instancePeriod)

	suffix := func(o int) Expr { return col(base+ecdsaColSuffix, o, "ecdsa_suffix") }
	b := Sub(suffix(0), Mul(ConstU64(2), suffix(1)))
	add("ecdsa_selector_bool", Booleanity(b), instancePeriod)
	add("ecdsa_decomposition_end", suffix(252), instancePeriod)

	// Chord-slope definition and conditional addition of (qx, qy).
	add("ecdsa_slope_def", Mul(b, Sub(Mul(slope, Sub(px(0), qx)), Sub(py(0), qy))), instancePeriod)
	nextX, nextY := px(1), py(1)
	sameX := Mul(Sub(One(), b), Sub(nextX, px(0)))
	addedX := Mul(b, Sub(nextX, Sub(Sub(Mul(slope, slope), px(0)), qx)))
	add("ecdsa_add_or_copy_x", Add(sameX, addedX), instancePeriod)
	sameY := Mul(Sub(One(), b), Sub(nextY, py(0)))
	addedY := Mul(b, Sub(nextY, Sub(Mul(slope, Sub(px(0), nextX)), py(0))))
	add("ecdsa_add_or_copy_y", Add(sameY, addedY), instancePeriod)

	add("ecdsa_pubkey_linkage", Sub(col(base+ecdsaColPubkeyVal, 0, "ecdsa_pubkey_val"), qx), instancePeriod)
	pubkeyAddrNext := col(base+ecdsaColPubkeyAddr, ratio, "ecdsa_pubkey_addr_next")
	pubkeyAddrCur := col(base+ecdsaColPubkeyAddr, 0, "ecdsa_pubkey_addr")
	add("ecdsa_pubkey_addr_continuity", Sub(pubkeyAddrNext, Add(pubkeyAddrCur, One())), instancePeriodExceptLast)
	msgAddrNext := col(base+ecdsaColMsgAddr, ratio, "ecdsa_msg_addr_next")
	msgAddrCur := col(base+ecdsaColMsgAddr, 0, "ecdsa_msg_addr")
	add("ecdsa_msg_addr_continuity", Sub(msgAddrNext, Add(msgAddrCur, One())), instancePeriodExceptLast)
}

const (
	ecOpColPX = iota
	ecOpColPY
	ecOpColSuffix
	ecOpColSlope
	ecOpColQX
	ecOpColQY
	ecOpColAddr
	ecOpColValue
)

// addECOpConstraints checks one witnessed step of the p + m*q accumulation
// per instance, with the same chord-addition shape as the ECDSA block: the
// operand point q sits in its own on-curve-checked columns, the running
// sum starts at p (also on-curve-checked), and the slope witness is bound
// by its chord relation.
func addECOpConstraints(add func(string, Expr, Expr), d domain, base, ratio int) {
	instancePeriod := d.everyKthRowZerofier(ratio)
	instancePeriodExceptLast := d.everyKthRowExceptLast(ratio)
	px := func(o int) Expr { return col(base+ecOpColPX, o, "ecop_px") }
	py := func(o int) Expr { return col(base+ecOpColPY, o, "ecop_py") }
	qx := col(base+ecOpColQX, 0, "ecop_qx")
	qy := col(base+ecOpColQY, 0, "ecop_qy")
	slope := col(base+ecOpColSlope, 0, "ecop_slope")

	onCurve := func(xe, ye Expr) Expr {
		return Sub(Mul(ye, ye), Add(Mul(xe, Mul(xe, xe)), Add(Mul(Constant{V: field.CurveAlpha}, xe), Constant{V: field.CurveBeta})))
	}
	add("ecop_p_on_curve", onCurve(px(0), py(0)), instancePeriod)
	add("ecop_q_on_curve", onCurve(qx, qy), instancePeriod)

	suffix := func(o int) Expr { return col(base+ecOpColSuffix, o, "ecop_suffix") }
	b := Sub(suffix(0), Mul(ConstU64(2), suffix(1)))
	add("ecop_selector_bool", Booleanity(b), instancePeriod)
	add("ecop_decomposition_end", suffix(252), instancePeriod)

	add("ecop_slope_def", Mul(b, Sub(Mul(slope, Sub(px(0), qx)), Sub(py(0), qy))), instancePeriod)
	nextX, nextY := px(1), py(1)
	sameX := Mul(Sub(One(), b), Sub(nextX, px(0)))
	addedX := Mul(b, Sub(nextX, Sub(Sub(Mul(slope, slope), px(0)), qx)))
	add("ecop_add_or_copy_x", Add(sameX, addedX), instancePeriod)
	sameY := Mul(Sub(One(), b), Sub(nextY, py(0)))
	addedY := Mul(b, Sub(nextY, Sub(Mul(slope, Sub(px(0), nextX)), py(0))))
	add("ecop_add_or_copy_y", Add(sameY, addedY), instancePeriod)

	add("ecop_memory_linkage", Sub(col(base+ecOpColValue, 0, "ecop_value"), px(0)), instancePeriod)
	addrNext := col(base+ecOpColAddr, ratio, "ecop_addr_next")
	addrCur := col(base+ecOpColAddr, 0, "ecop_addr")
	add("ecop_addr_continuity", Sub(addrNext, Add(addrCur, One())), instancePeriodExceptLast)
}

const (
	poseidonColPreSBox  = iota // first round's pre-S-box state[0]
	poseidonColPostSBox        // its cube, the S-box output witness
	poseidonColOutput          // the permutation's final state[0]
	poseidonColAddr
)

// addPoseidonConstraints checks the cubing S-box on one witnessed round
// per instance: the recorded pre-S-box value, cubed, must equal the
// post-S-box witness at the same checkpoint row. A full in-circuit round
// chain would also carry the round constants and MDS mix as algebraic
// terms between consecutive rows (see DESIGN.md). A zero-filled padding
// checkpoint satisfies 0 == 0^3. The output cell enters the memory stream
// through the block's addr/output pair.
func addPoseidonConstraints(add func(string, Expr, Expr), d domain, base, ratio int) {
	instancePeriod := d.everyKthRowZerofier(ratio)
	pre := col(base+poseidonColPreSBox, 0, "poseidon_pre_sbox")
	post := col(base+poseidonColPostSBox, 0, "poseidon_post_sbox")
	add("poseidon_sbox_degree", Sub(post, Mul(pre, Mul(pre, pre))), instancePeriod)
	addrNext := col(base+poseidonColAddr, ratio, "poseidon_addr_next")
	addrCur := col(base+poseidonColAddr, 0, "poseidon_addr")
	add("poseidon_addr_continuity", Sub(addrNext, Add(addrCur, One())), d.everyKthRowExceptLast(ratio))
}
