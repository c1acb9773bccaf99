package trace

import (
	"fmt"

	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/air"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/builtins"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"
)

// PedersenInput is one pedersen(a, b) instance's private input. Its
// memory-segment address is assigned by BuildBuiltins from the builtin's
// public segment, the same way BuildBase derives CPU operand addresses
// from the register log rather than taking them as input.
type PedersenInput struct{ A, B field.Fp }

// RangeCheck128Input is one range_check128(v) instance's private input.
type RangeCheck128Input struct{ Value field.Fp }

// ECDSAInput is one ecdsa signature-verification instance's private input.
type ECDSAInput struct {
	Pubkey field.Point
	Msg    field.Fp
	Sig    builtins.ECDSASignature
}

// BitwiseInput is one bitwise(x, y) instance's private input.
type BitwiseInput struct{ X, Y field.Fp }

// ECOpInput is one ec_op(p, m, q) instance's private input.
type ECOpInput struct {
	P field.Point
	M field.Fp
	Q field.Point
}

// PoseidonInput is one Poseidon permutation instance's private input.
type PoseidonInput struct{ State [field.PoseidonWidth]field.Fp }

// AirPrivateInput bundles every enabled builtin's per-instance private
// witness: the data only the prover needs in order to compute the
// intermediate values (partial sums, scalar-mult steps, limb
// decompositions, ...) the builtin constraints check algebraically.
// Instances are assigned to a layout's builtin segments in order; a layout
// with N checkpoints for a builtin tolerates up to that many instances,
// and any unused checkpoints are filled as deterministic padding instances
// that still satisfy every constraint (see BuildBuiltins).
type AirPrivateInput struct {
	Pedersen      []PedersenInput
	RangeCheck128 []RangeCheck128Input
	ECDSA         []ECDSAInput
	Bitwise       []BitwiseInput
	ECOp          []ECOpInput
	Poseidon      []PoseidonInput
}

// BuildBuiltins fills m's builtin column blocks from priv, then derives
// the memory stream and the sorted companion columns from the completed
// base matrix. It must run after BuildBase and before the matrix is
// committed, on every layout -- the plain layout has no builtin blocks but
// still needs the stream and sorted columns.
//
// Builtin columns start zero-filled; an all-zero checkpoint satisfies the
// arithmetic constraints (a zero selector bit, a zero add-or-copy delta, a
// zero decomposition sum) the same way an idle CPU cycle's zero flags do.
// Address cells are the exception, since address continuity is checked at
// every checkpoint pair: every checkpoint, padding included, gets a
// sequential address from the builtin's public memory segment. The EC
// blocks additionally anchor their point columns at fixed curve points so
// the on-curve checks hold on padding too.
//
// Each builtin's (addr, val) cells also feed the memory permutation: the
// stream samples them at every cycle's start row, so an instance spanning
// several cycles repeats its pair at each of them.
func (b *Builder) BuildBuiltins(m *Matrix, priv AirPrivateInput) error {
	bl := air.BuiltinColumns(b.cfg)
	zeroFill := func(base, width int) {
		for c := base; c < base+width; c++ {
			for r := 0; r < m.NumRows; r++ {
				m.Columns[c][r] = field.ZeroFp()
			}
		}
	}
	for r := 0; r < m.NumRows; r++ {
		m.Columns[air.ColDilutedUnsorted][r] = field.ZeroFp()
	}

	for _, bi := range b.cfg.Builtins {
		switch bi.Name {
		case "pedersen":
			zeroFill(bl.PedersenBase, 6)
			if err := b.fillPedersen(m, bl.PedersenBase, bi.Ratio, priv.Pedersen); err != nil {
				return err
			}
		case "range_check128":
			zeroFill(bl.RangeCheckBase, 3)
			if err := b.fillRangeCheck128(m, bl.RangeCheckBase, bi.Ratio, priv.RangeCheck128); err != nil {
				return err
			}
		case "ecdsa":
			zeroFill(bl.ECDSABase, 10)
			if err := b.fillECDSA(m, bl.ECDSABase, bi.Ratio, priv.ECDSA); err != nil {
				return err
			}
		case "bitwise":
			zeroFill(bl.BitwiseBase, 16)
			if err := b.fillBitwise(m, bl.BitwiseBase, bi.Ratio, priv.Bitwise); err != nil {
				return err
			}
		case "ec_op":
			zeroFill(bl.ECOpBase, 8)
			if err := b.fillECOp(m, bl.ECOpBase, bi.Ratio, priv.ECOp); err != nil {
				return err
			}
		case "poseidon":
			zeroFill(bl.PoseidonBase, 4)
			if err := b.fillPoseidon(m, bl.PoseidonBase, bi.Ratio, priv.Poseidon); err != nil {
				return err
			}
		}
	}

	if err := b.fillPermutationColumns(m); err != nil {
		return err
	}
	return resortDiluted(m)
}

func (b *Builder) segmentBegin(name string) uint64 {
	if seg, ok := b.pub.MemorySegments[name]; ok {
		return seg.BeginAddr
	}
	return 0
}

func checkpoints(numRows, ratio int) (int, error) {
	if ratio <= 0 || numRows%ratio != 0 {
		return 0, fmt.Errorf("trace: builtin ratio %d does not divide trace length %d", ratio, numRows)
	}
	return numRows / ratio, nil
}

// spreadPair writes one instance's (addr, val) memory cell at the start
// row of every cycle the instance spans, where the memory stream samples
// builtin cells.
func spreadPair(m *Matrix, addrCol, valCol, row, ratio int, addr, val field.Fp) {
	for r := row; r < row+ratio && r < m.NumRows; r += air.CycleHeight {
		m.Columns[addrCol][r] = addr
		m.Columns[valCol][r] = val
	}
}

// fillPedersen writes the step-0/step-1 pair of the low half's 256-step
// recurrence at each checkpoint: the constraints witness that single step
// (genuine add/copy branches against the P1 table point), and the
// suffix-decrement chain's tail stays at the zero fill.
func (b *Builder) fillPedersen(m *Matrix, base, ratio int, in []PedersenInput) error {
	n, err := checkpoints(m.NumRows, ratio)
	if err != nil {
		return err
	}
	if len(in) > n {
		return fmt.Errorf("trace: %d pedersen instances exceed %d checkpoints at ratio %d", len(in), n, ratio)
	}
	begin := b.segmentBegin("pedersen")
	for i := 0; i < n; i++ {
		row := i * ratio
		addr := field.FpFromUint64(begin + uint64(i))
		val := field.ZeroFp()
		if i < len(in) {
			out := builtins.ComputePedersen(in[i].A, in[i].B)
			steps := out.LowHalf
			m.Columns[base+air.PedColPartialX][row] = steps[0].PartialX
			m.Columns[base+air.PedColPartialY][row] = steps[0].PartialY
			m.Columns[base+air.PedColSuffix][row] = steps[0].Suffix
			m.Columns[base+air.PedColSlope][row] = steps[0].Slope
			m.Columns[base+air.PedColPartialX][row+1] = steps[1].PartialX
			m.Columns[base+air.PedColPartialY][row+1] = steps[1].PartialY
			m.Columns[base+air.PedColSuffix][row+1] = steps[1].Suffix
			val = steps[0].PartialX
		}
		spreadPair(m, base+air.PedColAddr, base+air.PedColValue, row, ratio, addr, val)
	}
	return nil
}

func (b *Builder) fillRangeCheck128(m *Matrix, base, ratio int, in []RangeCheck128Input) error {
	n, err := checkpoints(m.NumRows, ratio)
	if err != nil {
		return err
	}
	if len(in) > n {
		return fmt.Errorf("trace: %d range_check128 instances exceed %d checkpoints at ratio %d", len(in), n, ratio)
	}
	begin := b.segmentBegin("range_check128")
	for i := 0; i < n; i++ {
		row := i * ratio
		addr := field.FpFromUint64(begin + uint64(i))
		val := field.ZeroFp()
		if i < len(in) {
			parts, err := builtins.RangeCheck128(in[i].Value)
			if err != nil {
				return fmt.Errorf("trace: range_check128 instance %d: %w", i, err)
			}
			val = in[i].Value
			for j, p := range parts {
				m.Columns[base+air.RCColPart][row+j] = p
			}
		}
		spreadPair(m, base+air.RCColAddr, base+air.RCColValue, row, ratio, addr, val)
	}
	return nil
}

// fillBitwise writes the four plain 16-bit limb decompositions and the
// low-order residue/companion pair that feeds the diluted-check pool at
// this checkpoint's row; BitwiseRatio == air.CycleHeight guarantees that
// row is also a cycle start, where the pool and the memory stream sample.
func (b *Builder) fillBitwise(m *Matrix, base, ratio int, in []BitwiseInput) error {
	n, err := checkpoints(m.NumRows, ratio)
	if err != nil {
		return err
	}
	if len(in) > n {
		return fmt.Errorf("trace: %d bitwise instances exceed %d checkpoints at ratio %d", len(in), n, ratio)
	}
	begin := b.segmentBegin("bitwise")
	for i := 0; i < n; i++ {
		row := i * ratio
		m.Columns[base+air.BWColAddr][row] = field.FpFromUint64(begin + uint64(i))
		if i >= len(in) {
			continue
		}
		out := builtins.ComputeBitwise(in[i].X, in[i].Y)
		m.Columns[base+air.BWColX][row] = out.X
		m.Columns[base+air.BWColY][row] = out.Y
		m.Columns[base+air.BWColAnd][row] = out.And
		m.Columns[base+air.BWColXor][row] = out.Xor
		m.Columns[base+air.BWColOr][row] = out.Or

		decompose := func(v field.Fp, limbCol int) ([8]field.Fp, error) {
			parts, err := builtins.RangeCheck128(v)
			if err != nil {
				return parts, err
			}
			for j, p := range parts {
				m.Columns[base+limbCol][row+j] = p
			}
			return parts, nil
		}
		xParts, err := decompose(out.X, air.BWColXLimb)
		if err != nil {
			return fmt.Errorf("trace: bitwise instance %d: x: %w", i, err)
		}
		if _, err := decompose(out.Y, air.BWColYLimb); err != nil {
			return fmt.Errorf("trace: bitwise instance %d: y: %w", i, err)
		}
		if _, err := decompose(out.And, air.BWColAndLimb); err != nil {
			return fmt.Errorf("trace: bitwise instance %d: and: %w", i, err)
		}
		if _, err := decompose(out.Xor, air.BWColXorLimb); err != nil {
			return fmt.Errorf("trace: bitwise instance %d: xor: %w", i, err)
		}

		limb0 := xParts[0].Big().Uint64()
		low2 := limb0 & (uint64(1)<<uint(air.DilutedNBits) - 1)
		hi := limb0 >> uint(air.DilutedNBits)
		m.Columns[base+air.BWColXLow2][row] = field.FpFromUint64(low2)
		m.Columns[base+air.BWColXHi][row] = field.FpFromUint64(hi)
		m.Columns[air.ColDilutedUnsorted][row] = field.DiluteFp(low2, air.DilutedNBits, air.DilutedSpacing)
	}
	return nil
}

// fillECDSA witnesses one step of the u2*pubkey scalar multiplication per
// instance: the accumulator (anchored at the shift point) before and after
// folding the scalar's lowest bit, the chord slope that fold consumed, and
// the pubkey point in its own on-curve-checked columns. The full
// verification equation is additionally checked here, outside the trace,
// so a signature that does not verify is rejected before any column is
// written; the committed step then carries genuine data from that same
// multiplication.
func (b *Builder) fillECDSA(m *Matrix, base, ratio int, in []ECDSAInput) error {
	n, err := checkpoints(m.NumRows, ratio)
	if err != nil {
		return err
	}
	if len(in) > n {
		return fmt.Errorf("trace: %d ecdsa instances exceed %d checkpoints at ratio %d", len(in), n, ratio)
	}
	pubkeyBegin := b.segmentBegin("ecdsa")
	msgBegin := pubkeyBegin + uint64(n)
	g := field.StarkGenerator()
	shift := field.ShiftPoint
	for i := 0; i < n; i++ {
		row := i * ratio
		pubkeyAddr := field.FpFromUint64(pubkeyBegin + uint64(i))
		msgAddr := field.FpFromUint64(msgBegin + uint64(i))

		// Padding checkpoints hold a fixed on-curve anchor with a zero
		// scalar suffix, so the copy branch and both on-curve checks hold.
		q := g
		msgVal := field.ZeroFp()
		acc0, acc1 := shift, shift
		suffix0, suffix1, slope := field.ZeroFp(), field.ZeroFp(), field.ZeroFp()

		if i < len(in) {
			ok, err := builtins.VerifyECDSA(in[i].Pubkey, in[i].Msg, in[i].Sig)
			if err != nil {
				return fmt.Errorf("trace: ecdsa instance %d: %w", i, err)
			}
			if !ok {
				return fmt.Errorf("trace: ecdsa instance %d: signature does not verify", i)
			}
			sInv, err := in[i].Sig.S.Inv()
			if err != nil {
				return fmt.Errorf("trace: ecdsa instance %d: zero s", i)
			}
			u2 := in[i].Sig.R.Mul(sInv)
			steps := builtins.ComputeECDSAScalarMul(in[i].Pubkey, u2)
			q = in[i].Pubkey
			msgVal = in[i].Msg
			acc0 = field.Point{X: steps[0].AccX, Y: steps[0].AccY}
			acc1 = field.Point{X: steps[1].AccX, Y: steps[1].AccY}
			suffix0, suffix1 = steps[0].Suffix, steps[1].Suffix
			slope = steps[0].Slope
		}

		m.Columns[base+air.ECDSAColPX][row] = acc0.X
		m.Columns[base+air.ECDSAColPY][row] = acc0.Y
		m.Columns[base+air.ECDSAColPX][row+1] = acc1.X
		m.Columns[base+air.ECDSAColPY][row+1] = acc1.Y
		m.Columns[base+air.ECDSAColSuffix][row] = suffix0
		m.Columns[base+air.ECDSAColSuffix][row+1] = suffix1
		m.Columns[base+air.ECDSAColSlope][row] = slope
		m.Columns[base+air.ECDSAColQX][row] = q.X
		m.Columns[base+air.ECDSAColQY][row] = q.Y

		spreadPair(m, base+air.ECDSAColPubkeyAddr, base+air.ECDSAColPubkeyVal, row, ratio, pubkeyAddr, q.X)
		spreadPair(m, base+air.ECDSAColMsgAddr, base+air.ECDSAColMsgVal, row, ratio, msgAddr, msgVal)
	}
	return nil
}

// fillECOp witnesses one step of the p + m*q accumulation per instance,
// with the same chord-slope shape as fillECDSA: the accumulator starts at
// p itself, and q sits in the on-curve-checked operand columns.
func (b *Builder) fillECOp(m *Matrix, base, ratio int, in []ECOpInput) error {
	n, err := checkpoints(m.NumRows, ratio)
	if err != nil {
		return err
	}
	if len(in) > n {
		return fmt.Errorf("trace: %d ec_op instances exceed %d checkpoints at ratio %d", len(in), n, ratio)
	}
	begin := b.segmentBegin("ec_op")
	g := field.StarkGenerator()
	shift := field.ShiftPoint
	for i := 0; i < n; i++ {
		row := i * ratio
		addr := field.FpFromUint64(begin + uint64(i))

		q := g
		acc0, acc1 := shift, shift
		suffix0, suffix1, slope := field.ZeroFp(), field.ZeroFp(), field.ZeroFp()

		if i < len(in) {
			out, err := builtins.ComputeECOp(in[i].P, in[i].M, in[i].Q)
			if err != nil {
				return fmt.Errorf("trace: ec_op instance %d: %w", i, err)
			}
			q = in[i].Q
			acc0 = field.Point{X: out.Steps[0].AccX, Y: out.Steps[0].AccY}
			acc1 = field.Point{X: out.Steps[1].AccX, Y: out.Steps[1].AccY}
			suffix0, suffix1 = out.Steps[0].Suffix, out.Steps[1].Suffix
			slope = out.Steps[0].Slope
		}

		m.Columns[base+air.ECOpColPX][row] = acc0.X
		m.Columns[base+air.ECOpColPY][row] = acc0.Y
		m.Columns[base+air.ECOpColPX][row+1] = acc1.X
		m.Columns[base+air.ECOpColPY][row+1] = acc1.Y
		m.Columns[base+air.ECOpColSuffix][row] = suffix0
		m.Columns[base+air.ECOpColSuffix][row+1] = suffix1
		m.Columns[base+air.ECOpColSlope][row] = slope
		m.Columns[base+air.ECOpColQX][row] = q.X
		m.Columns[base+air.ECOpColQY][row] = q.Y

		spreadPair(m, base+air.ECOpColAddr, base+air.ECOpColValue, row, ratio, addr, acc0.X)
	}
	return nil
}

func (b *Builder) fillPoseidon(m *Matrix, base, ratio int, in []PoseidonInput) error {
	n, err := checkpoints(m.NumRows, ratio)
	if err != nil {
		return err
	}
	if len(in) > n {
		return fmt.Errorf("trace: %d poseidon instances exceed %d checkpoints at ratio %d", len(in), n, ratio)
	}
	begin := b.segmentBegin("poseidon")
	for i := 0; i < n; i++ {
		row := i * ratio
		addr := field.FpFromUint64(begin + uint64(i))
		output := field.ZeroFp()
		if i < len(in) {
			// One witnessed S-box step per checkpoint: the first round's
			// pre-S-box state and its cube, plus the permutation's final
			// digest as the output memory cell.
			out := builtins.ComputePoseidonPermutation(in[i].State)
			pre := out.Rounds[0].State[0]
			m.Columns[base+air.PoseidonColPreSBox][row] = pre
			m.Columns[base+air.PoseidonColPostSBox][row] = pre.Mul(pre).Mul(pre)
			output = out.Final[0]
		}
		spreadPair(m, base+air.PoseidonColAddr, base+air.PoseidonColOutput, row, ratio, addr, output)
	}
	return nil
}

// resortDiluted rebuilds air.ColSortedDiluted as the ascending-sorted
// permutation of air.ColDilutedUnsorted, which only has real entries once
// the builtin pass has run. Values sit at each cycle's start row with the
// remaining in-cycle rows repeating the entry, matching the
// CycleHeight-strided offsets the diluted-check constraints read.
//
// For the sorted column's boundary constraints to hold, the pool's
// bitwise-fed entries must collectively cover every residue in the
// DilutedNBits-bit alphabet at least once; supplying enough varied bitwise
// instances is the caller's responsibility.
func resortDiluted(m *Matrix) error {
	steps := m.NumRows / air.CycleHeight
	vals := make([]field.Fp, steps)
	for step := 0; step < steps; step++ {
		vals[step] = m.Columns[air.ColDilutedUnsorted][step*air.CycleHeight]
	}
	sortFp(vals)
	for step := 0; step < steps; step++ {
		row := step * air.CycleHeight
		v := vals[step]
		m.Columns[air.ColSortedDiluted][row] = v
		for i := 1; i < air.CycleHeight; i++ {
			m.Columns[air.ColSortedDiluted][row+i] = v
		}
	}
	return nil
}

func sortFp(vals []field.Fp) {
	for i := 1; i < len(vals); i++ {
		for j := i; j > 0 && vals[j-1].Cmp(vals[j]) > 0; j-- {
			vals[j-1], vals[j] = vals[j], vals[j-1]
		}
	}
}
