package air

import "github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"

// CycleHeight is the number of trace rows one VM instruction occupies:
// one row holding the instruction's registers/operands/result plus the 15
// intra-cycle rows that expose each flag-prefix value (and the memory
// stream's per-cycle access slots) at its own row offset.
const CycleHeight = 16

// Base column indices for the CPU component, common to every layout. A
// builtin-bearing layout appends its own columns after NumCPUBaseColumns.
const (
	ColFlags = iota // flags[row_offset=i] = FlagPrefix(i) of this cycle's instruction word
	ColInstr        // raw instruction word, read from memory at address ColPC
	ColPC
	ColAP
	ColFP
	ColDstAddr
	ColDstVal
	ColOp0Addr
	ColOp0Val
	ColOp1Addr
	ColOp1Val
	ColOffDst // raw biased 16-bit encoding (0..2^16), not the unbiased signed offset
	ColOffOp0
	ColOffOp1
	ColRes
	ColT0
	ColT1
	// ColMemAddr/ColMemVal hold the program-order memory access stream, one
	// (addr, val) pair per row: each cycle's 16 slots carry the CPU's four
	// accesses (pc/instr, dst, op0, op1), one slot per enabled builtin's
	// access, and constrained copies of the last real slot as padding. The
	// memory grand product folds exactly one stream pair per row, so every
	// builtin's memory cells pass through the same single-valuedness and
	// continuity checks the CPU's do.
	ColMemAddr
	ColMemVal
	ColSortedAddr // the stream's (addr, val) pairs reordered by address
	ColSortedVal
	ColSortedRC // range-check permutation's sorted off_* column
	ColDilutedUnsorted // diluted-check permutation's per-cycle unsorted value
	ColSortedDiluted   // diluted-check permutation's sorted value
	NumCPUBaseColumns
)

// NumCPUMemSlots is how many of each cycle's memory stream slots the CPU
// itself occupies; builtin slots follow, then pad copies.
const NumCPUMemSlots = 4

// DilutedNBits/DilutedSpacing parametrize the diluted-check pool: its
// alphabet is dilute_s(v) for every v in [0, 2^DilutedNBits). Production
// Cairo fixes these at (16, 4); covering that 65536-entry range needs a
// pool of at least 65536 slots (one per cycle here), far beyond small
// traces, so the width is scoped down to keep the range-coverage property
// exercisable end to end. See DESIGN.md.
const (
	DilutedNBits   = 2
	DilutedSpacing = 4
)

// ExtColumnBase reserves a column-index namespace for extension columns
// that can never collide with a base or builtin column, regardless of
// layout: builtin column blocks are laid out starting at
// NumCPUBaseColumns (air/builtins.go's layoutBuiltinColumns) and every
// layout's builtin set is small, so a generous fixed offset keeps a
// constraint free to reference both a base/builtin Trace{Col: c} and an
// extension Trace{Col: ExtColumnBase+i} within the same expression tree
// without the two numbering schemes aliasing. The prover/verifier's
// combined row accessor routes on this boundary (see DESIGN.md).
const ExtColumnBase = 1 << 16

// Extension column indices (built from challenges after the base commit).
const (
	ColExtMemProduct = ExtColumnBase + iota
	ColExtRCProduct
	ColExtDilutedProduct // diluted-check permutation grand product
	ColExtDilutedAgg     // diluted-check aggregation accumulator
	extColumnEnd
)

// NumCPUExtensionColumns is how many extension columns the CPU AIR adds.
const NumCPUExtensionColumns = extColumnEnd - ExtColumnBase

// Challenge indices, drawn after the base trace commitment.
const (
	ChZMem = iota
	ChAlphaMem
	ChZRC
	ChZDiluted
	ChZDilutedAgg
	ChAlphaDilutedAgg
	NumCPUChallenges
)

// Hint indices: verifier-derivable constants the boundary and
// permutation-terminal constraints check against.
const (
	HintInitialAP = iota
	HintInitialFP
	HintInitialPC
	HintFinalAP
	HintFinalFP
	HintFinalPC
	HintMemoryQuotient
	HintRCMin
	HintRCMax
	HintDilutedCheckCumulativeValue
	NumCPUHints
)

// Flag bit indices within the 16-bit flags word (cairo-lang's standard
// instruction decode layout).
const (
	FlagDstReg = iota
	FlagOp0Reg
	FlagOp1Imm
	FlagOp1Fp
	FlagOp1Ap
	FlagResAdd
	FlagResMul
	FlagPcJumpAbs
	FlagPcJumpRel
	FlagPcJnz
	FlagApAdd
	FlagApAdd1
	FlagOpcodeCall
	FlagOpcodeRet
	FlagOpcodeAssertEq
	FlagPadding
)

func flag(i int) Expr { return Trace{Col: ColFlags, RowOffset: i, Name: flagName(i)} }

func flagName(i int) string {
	names := [...]string{"dst_reg", "op0_reg", "op1_imm", "op1_fp", "op1_ap", "res_add", "res_mul",
		"pc_jump_abs", "pc_jump_rel", "pc_jnz", "ap_add", "ap_add1", "opcode_call", "opcode_ret",
		"opcode_assert_eq", "padding"}
	if i < 0 || i >= len(names) {
		return "flag"
	}
	return names[i]
}

func col(c int, rowOffset int, name string) Expr {
	return Trace{Col: c, RowOffset: rowOffset, Name: name}
}

// CPUConstraints builds the per-instruction constraint groups (decode,
// addressing, res, pc update, ap/fp update, opcode-specific, register
// boundary) for a trace of length n (n must be a multiple of CycleHeight).
// omega generates the trace domain (poly.DomainGenerator(n)).
func CPUConstraints(n int, omega field.Fp) []Constraint {
	d := domain{omega: omega, n: n}
	cycleStart := d.everyKthRowZerofier(CycleHeight)
	// Transition constraints below reference the *next* cycle's columns
	// (row_offset = CycleHeight); the last cycle has no next cycle to
	// reference, so those use exceptLast instead of cycleStart.
	exceptLast := d.everyKthRowExceptLast(CycleHeight)

	var cs []Constraint
	add := func(name string, numerator Expr, zerofier Expr) {
		cs = append(cs, Constraint{Name: name, Numerator: numerator, Zerofier: zerofier})
	}

	// Group 1: instruction decode & flag well-formedness.
	add("padding_flag_zero", flag(FlagPadding), cycleStart)
	for i := 0; i < FlagPadding; i++ {
		b := Sub(flag(i), Mul(ConstU64(2), flag(i+1)))
		add("flag_bool_"+flagName(i), Booleanity(b), cycleStart)
	}
	onehot := func(name string, bits ...int) {
		var sum Expr = ZeroExpr()
		for _, b := range bits {
			sum = Add(sum, flag(b))
		}
		add("onehot_"+name, Booleanity(sum), cycleStart)
	}
	onehot("dst_reg", FlagDstReg)
	onehot("op0_reg", FlagOp0Reg)
	onehot("op1_src", FlagOp1Imm, FlagOp1Fp, FlagOp1Ap)
	onehot("res_logic", FlagResAdd, FlagResMul, FlagPcJnz)
	onehot("pc_update", FlagPcJumpAbs, FlagPcJumpRel, FlagPcJnz)
	onehot("ap_update", FlagApAdd, FlagApAdd1)
	onehot("opcode", FlagOpcodeCall, FlagOpcodeRet, FlagOpcodeAssertEq)

	instrFromParts := Sum(
		col(ColOffDst, 0, "off_dst"),
		Mul(ConstU64(1<<16), col(ColOffOp0, 0, "off_op0")),
		Mul(ConstU64(1<<32), col(ColOffOp1, 0, "off_op1")),
		Mul(ConstU64(1<<48), flag(0)),
	)
	add("instr_decode", Sub(col(ColInstr, 0, "instr"), instrFromParts), cycleStart)

	// Group 2: operand addressing.
	pc, ap, fp := col(ColPC, 0, "pc"), col(ColAP, 0, "ap"), col(ColFP, 0, "fp")
	op0Val := col(ColOp0Val, 0, "op0_val")
	bias := ConstU64(1 << 15)
	add("dst_addr", Sub(Add(col(ColDstAddr, 0, "dst_addr"), bias),
		Add(Add(Mul(flag(FlagDstReg), fp), Mul(Sub(One(), flag(FlagDstReg)), ap)), col(ColOffDst, 0, "off_dst"))),
		cycleStart)
	add("op0_addr", Sub(Add(col(ColOp0Addr, 0, "op0_addr"), bias),
		Add(Add(Mul(flag(FlagOp0Reg), fp), Mul(Sub(One(), flag(FlagOp0Reg)), ap)), col(ColOffOp0, 0, "off_op0"))),
		cycleStart)
	op1Base := Sum(
		Mul(flag(FlagOp1Imm), pc),
		Mul(flag(FlagOp1Ap), ap),
		Mul(flag(FlagOp1Fp), fp),
		Mul(Sub(One(), Sum(flag(FlagOp1Imm), flag(FlagOp1Ap), flag(FlagOp1Fp))), op0Val),
	)
	add("op1_addr", Sub(Add(col(ColOp1Addr, 0, "op1_addr"), bias), Add(op1Base, col(ColOffOp1, 0, "off_op1"))), cycleStart)

	// Group 3: res computation (only meaningful when PcJnz = 0).
	op1Val := col(ColOp1Val, 0, "op1_val")
	resExpected := Sum(
		Mul(flag(FlagResAdd), Add(op0Val, op1Val)),
		Mul(flag(FlagResMul), Mul(op0Val, op1Val)),
		Mul(Sub(One(), Sum(flag(FlagResAdd), flag(FlagResMul), flag(FlagPcJnz))), op1Val),
	)
	add("res_computation", Mul(Sub(One(), flag(FlagPcJnz)), Sub(col(ColRes, 0, "res"), resExpected)), cycleStart)

	// Group 4: PC update.
	dstVal := col(ColDstVal, 0, "dst_val")
	res := col(ColRes, 0, "res")
	t0, t1 := col(ColT0, 0, "t0"), col(ColT1, 0, "t1")
	add("t0_def", Sub(t0, Mul(flag(FlagPcJnz), dstVal)), cycleStart)
	add("t1_def", Sub(t1, Mul(t0, res)), cycleStart)

	instrSize := Add(One(), flag(FlagOp1Imm))
	nextPC := col(ColPC, CycleHeight, "next_pc")
	regularPC := Sub(Sub(Sub(One(), flag(FlagPcJumpAbs)), flag(FlagPcJumpRel)), flag(FlagPcJnz))
	lhs := Add(Mul(Sub(One(), flag(FlagPcJnz)), nextPC), Mul(t0, Sub(nextPC, Add(pc, op1Val))))
	rhs := Sum(
		Mul(regularPC, Add(pc, instrSize)),
		Mul(flag(FlagPcJumpAbs), res),
		Mul(flag(FlagPcJumpRel), Add(pc, res)),
	)
	add("pc_update_main", Sub(lhs, rhs), exceptLast)
	add("pc_update_jnz", Mul(Sub(t1, flag(FlagPcJnz)), Sub(nextPC, Add(pc, instrSize))), exceptLast)

	// Group 5: AP/FP update.
	nextAP := col(ColAP, CycleHeight, "next_ap")
	apExpected := Sum(ap, Mul(flag(FlagApAdd), res), flag(FlagApAdd1), Mul(ConstU64(2), flag(FlagOpcodeCall)))
	add("ap_update", Sub(nextAP, apExpected), exceptLast)

	nextFP := col(ColFP, CycleHeight, "next_fp")
	regularFPGate := Sub(Sub(One(), flag(FlagOpcodeCall)), flag(FlagOpcodeRet))
	fpExpected := Sum(
		Mul(regularFPGate, fp),
		Mul(flag(FlagOpcodeRet), dstVal),
		Mul(flag(FlagOpcodeCall), Add(ap, ConstU64(2))),
	)
	add("fp_update", Sub(nextFP, fpExpected), exceptLast)

	// Group 6: opcode-specific assertions.
	add("call_dst_is_fp", Mul(flag(FlagOpcodeCall), Sub(dstVal, fp)), cycleStart)
	add("call_op0_is_next_instr", Mul(flag(FlagOpcodeCall), Sub(op0Val, Add(pc, instrSize))), cycleStart)
	add("call_off_dst", Mul(flag(FlagOpcodeCall), Sub(col(ColOffDst, 0, "off_dst"), ConstU64(1<<15))), cycleStart)
	add("call_off_op0", Mul(flag(FlagOpcodeCall), Sub(col(ColOffOp0, 0, "off_op0"), ConstU64(1<<15+1))), cycleStart)

	add("ret_off_dst", Mul(flag(FlagOpcodeRet), Sub(col(ColOffDst, 0, "off_dst"), ConstU64((1<<15)-2))), cycleStart)
	add("ret_off_op1", Mul(flag(FlagOpcodeRet), Sub(col(ColOffOp1, 0, "off_op1"), ConstU64((1<<15)-1))), cycleStart)
	add("ret_pc_jump_abs", Mul(flag(FlagOpcodeRet), Sub(flag(FlagPcJumpAbs), One())), cycleStart)
	add("ret_dst_reg", Mul(flag(FlagOpcodeRet), Sub(flag(FlagDstReg), One())), cycleStart)
	add("ret_op1_fp", Mul(flag(FlagOpcodeRet), Sub(flag(FlagOp1Fp), One())), cycleStart)
	add("ret_res_logic_zero", Mul(flag(FlagOpcodeRet), Add(flag(FlagResAdd), flag(FlagResMul))), cycleStart)

	add("assert_eq_dst_is_res", Mul(flag(FlagOpcodeAssertEq), Sub(dstVal, res)), cycleStart)

	// Group 7: register boundary.
	initialRow, finalRow := d.singleRow(0), d.singleRow(n-CycleHeight)
	add("initial_ap", Sub(col(ColAP, 0, "ap"), Hint{Index: HintInitialAP}), initialRow)
	add("initial_fp", Sub(col(ColFP, 0, "fp"), Hint{Index: HintInitialFP}), initialRow)
	add("initial_pc", Sub(col(ColPC, 0, "pc"), Hint{Index: HintInitialPC}), initialRow)
	add("final_ap", Sub(col(ColAP, 0, "ap"), Hint{Index: HintFinalAP}), finalRow)
	add("final_fp", Sub(col(ColFP, 0, "fp"), Hint{Index: HintFinalFP}), finalRow)
	add("final_pc", Sub(col(ColPC, 0, "pc"), Hint{Index: HintFinalPC}), finalRow)

	return cs
}
