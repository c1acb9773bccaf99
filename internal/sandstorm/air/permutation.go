package air

import "github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"

// PermutationConstraints builds the memory and range-check permutation
// arguments.
//
// Memory (single-valued, continuous, read-only) works over a dedicated
// program-order access stream: ColMemAddr/ColMemVal carry one (addr, val)
// pair per row, and the grand product in ColExtMemProduct folds exactly
// one pair per row against the address-sorted companion columns. Each
// cycle's stream slots are pinned to their sources -- the CPU's four
// accesses in slots 0-3, one slot per enabled builtin's access cell, and
// copy-constrained padding for the rest -- so a builtin's memory content
// passes through the same single-valuedness check as a CPU access: a
// program that reads a builtin's output cell through a normal memory
// access cannot see anything other than the value the builtin's own
// columns carry at that address.
//
// The range check keeps cycle granularity: the three off_* values enter
// the product once per cycle against a sorted companion packed at each
// cycle's first three rows.
func PermutationConstraints(cfg Config, n int, omega field.Fp) []Constraint {
	d := domain{omega: omega, n: n}
	cycleStart := d.everyKthRowZerofier(CycleHeight)
	cycleExceptLast := d.everyKthRowExceptLast(CycleHeight)
	// Row-to-next-row checks wrap around the cyclic domain at the final
	// row, where "the next row" is row 0; they are gated off it.
	rowExceptLast := d.everyKthRowExceptLast(1)

	var cs []Constraint
	add := func(name string, numerator Expr, zerofier Expr) {
		cs = append(cs, Constraint{Name: name, Numerator: numerator, Zerofier: zerofier})
	}

	zMem, alphaMem := Challenge{Index: ChZMem}, Challenge{Index: ChAlphaMem}
	memAddr := func(o int) Expr { return col(ColMemAddr, o, "mem_addr") }
	memVal := func(o int) Expr { return col(ColMemVal, o, "mem_val") }

	// Stream slot binding: each cycle's slots hold exactly the accesses the
	// rest of the trace claims happened.
	cpuSlots := []struct {
		name      string
		addr, val Expr
	}{
		{"pc", col(ColPC, 0, "pc"), col(ColInstr, 0, "instr")},
		{"dst", col(ColDstAddr, 0, "dst_addr"), col(ColDstVal, 0, "dst_val")},
		{"op0", col(ColOp0Addr, 0, "op0_addr"), col(ColOp0Val, 0, "op0_val")},
		{"op1", col(ColOp1Addr, 0, "op1_addr"), col(ColOp1Val, 0, "op1_val")},
	}
	for i, slot := range cpuSlots {
		add("mem_stream_"+slot.name+"_addr", Sub(memAddr(i), slot.addr), cycleStart)
		add("mem_stream_"+slot.name+"_val", Sub(memVal(i), slot.val), cycleStart)
	}
	pairs := BuiltinMemPairs(cfg)
	for k, p := range pairs {
		s := NumCPUMemSlots + k
		add("mem_stream_"+p.Name+"_addr", Sub(memAddr(s), col(p.AddrCol, 0, p.Name+"_addr")), cycleStart)
		add("mem_stream_"+p.Name+"_val", Sub(memVal(s), col(p.ValCol, 0, p.Name+"_val")), cycleStart)
	}
	// Pad slots repeat the last real slot, so the stream carries no free
	// cells a prover could use to smuggle extra (addr, val) pairs past the
	// sorted side's continuity checks.
	for s := NumCPUMemSlots + len(pairs); s < CycleHeight; s++ {
		add("mem_stream_pad_addr", Sub(memAddr(s), memAddr(s-1)), cycleStart)
		add("mem_stream_pad_val", Sub(memVal(s), memVal(s-1)), cycleStart)
	}

	// Grand product, one fold per row:
	// pi_{r+1} * (z - (a'_r + alpha*v'_r)) = pi_r * (z - (a_r + alpha*v_r)).
	streamTerm := Sub(zMem, Add(memAddr(0), Mul(alphaMem, memVal(0))))
	sortedTerm := Sub(zMem, Add(col(ColSortedAddr, 0, "sorted_addr"), Mul(alphaMem, col(ColSortedVal, 0, "sorted_val"))))
	piCur := col(ColExtMemProduct, 0, "mem_product")
	piNext := col(ColExtMemProduct, 1, "mem_product_next")
	add("mem_permutation_step", Sub(Mul(piNext, sortedTerm), Mul(piCur, streamTerm)), rowExceptLast)
	// The sorted side is a reordering of the stream, so the ratio chain
	// telescopes end to end and both ends sit at the same verifier-known
	// value: the public-memory quotient. The last row's own pair closes the
	// chain against that value in place of a wrapped-around next row.
	add("mem_initial", Sub(piCur, Hint{Index: HintMemoryQuotient}), d.singleRow(0))
	add("mem_terminal", Sub(Mul(Hint{Index: HintMemoryQuotient}, sortedTerm), Mul(piCur, streamTerm)), d.singleRow(n-1))

	sAddrCur, sAddrNext := col(ColSortedAddr, 0, "sorted_addr"), col(ColSortedAddr, 1, "sorted_addr_next")
	sValCur, sValNext := col(ColSortedVal, 0, "sorted_val"), col(ColSortedVal, 1, "sorted_val_next")
	addrDelta := Sub(sAddrNext, sAddrCur)
	add("mem_addr_continuity", Booleanity(addrDelta), rowExceptLast)
	add("mem_single_valued", Mul(Sub(addrDelta, One()), Sub(sValNext, sValCur)), rowExceptLast)
	add("mem_first_addr_one", Sub(col(ColSortedAddr, 0, "sorted_addr"), One()), d.singleRow(0))

	// Range-check permutation.
	zRC := Challenge{Index: ChZRC}
	rcOffsets := []Expr{col(ColOffDst, 0, "off_dst"), col(ColOffOp0, 0, "off_op0"), col(ColOffOp1, 0, "off_op1")}
	rcSortedSlots := []int{0, 1, 2}
	rcNumer := Expr(One())
	rcDenom := Expr(One())
	for i, off := range rcOffsets {
		rcNumer = Mul(rcNumer, Sub(zRC, off))
		rcDenom = Mul(rcDenom, Sub(zRC, col(ColSortedRC, rcSortedSlots[i], "sorted_rc")))
	}
	rcCur := col(ColExtRCProduct, 0, "rc_product")
	rcNext := col(ColExtRCProduct, CycleHeight, "rc_product_next")
	rcEnd := col(ColExtRCProduct, CycleHeight-1, "rc_product_end")
	add("rc_permutation_step", Sub(Mul(rcNext, rcDenom), Mul(rcCur, rcNumer)), cycleExceptLast)
	// Closes the final cycle's own ratio with an in-cycle row offset, since
	// a next-cycle reference would wrap around to row 0.
	add("rc_permutation_last_step", Sub(Mul(rcEnd, rcDenom), Mul(rcCur, rcNumer)), d.singleRow(n-CycleHeight))
	add("rc_initial", Sub(col(ColExtRCProduct, 0, "rc_product"), One()), d.singleRow(0))

	rcCurV, rcNextV := col(ColSortedRC, 0, "sorted_rc"), col(ColSortedRC, 1, "sorted_rc_next")
	add("rc_sorted_diff_bool", Booleanity(Sub(rcNextV, rcCurV)), rowExceptLast)
	add("rc_first_is_min", Sub(col(ColSortedRC, 0, "sorted_rc"), Hint{Index: HintRCMin}), d.singleRow(0))
	// Sorted RC values are non-decreasing; the cycle-padding rows repeat
	// each cycle's last real entry, so the global maximum holds through the
	// final row.
	add("rc_last_is_max", Sub(col(ColSortedRC, 0, "sorted_rc"), Hint{Index: HintRCMax}), d.singleRow(n-1))

	return cs
}

// DilutedCheckConstraints builds the diluted-check permutation and its
// aggregation, added only on layouts with a diluted-value producer (the
// bitwise builtin feeds the pool).
//
// The sorted column's consecutive differences are restricted to the exact
// finite set of deltas the diluted alphabet produces (plus zero): for
// spacing 4, dilute(1)-dilute(0) = 1 but dilute(2)-dilute(1) = 15, so a
// single constant-gap check would be wrong for any alphabet wider than one
// bit. The allowed-gap set is computed once at construction time and
// enforced as a vanishing product.
func DilutedCheckConstraints(n int, omega field.Fp) []Constraint {
	d := domain{omega: omega, n: n}
	exceptLast := d.everyKthRowExceptLast(CycleHeight)

	var cs []Constraint
	add := func(name string, numerator Expr, zerofier Expr) {
		cs = append(cs, Constraint{Name: name, Numerator: numerator, Zerofier: zerofier})
	}

	zDiluted := Challenge{Index: ChZDiluted}
	unsorted := col(ColDilutedUnsorted, 0, "diluted_unsorted")
	sorted := col(ColSortedDiluted, 0, "sorted_diluted")

	extCur := col(ColExtDilutedProduct, 0, "diluted_product")
	extNext := col(ColExtDilutedProduct, CycleHeight, "diluted_product_next")
	extEnd := col(ColExtDilutedProduct, CycleHeight-1, "diluted_product_end")
	numer := Sub(zDiluted, unsorted)
	denom := Sub(zDiluted, sorted)
	add("diluted_permutation_step", Sub(Mul(extNext, denom), Mul(extCur, numer)), exceptLast)
	add("diluted_permutation_last_step", Sub(Mul(extEnd, denom), Mul(extCur, numer)), d.singleRow(n-CycleHeight))
	add("diluted_initial", Sub(col(ColExtDilutedProduct, 0, "diluted_product"), One()), d.singleRow(0))
	add("diluted_terminal", Sub(col(ColExtDilutedProduct, 0, "diluted_product"), One()), d.singleRow(n-1))

	// Allowed sorted-column gaps: {0} union every consecutive dilute_s(v),
	// dilute_s(v+1) delta for v in [0, 2^DilutedNBits - 1).
	gaps := map[string]field.Fp{field.ZeroFp().String(): field.ZeroFp()}
	prev := field.DiluteFp(0, DilutedNBits, DilutedSpacing)
	for v := uint64(1); v < uint64(1)<<uint(DilutedNBits); v++ {
		cur := field.DiluteFp(v, DilutedNBits, DilutedSpacing)
		gap := cur.Sub(prev)
		gaps[gap.String()] = gap
		prev = cur
	}
	// Diluted values are one-per-cycle (unlike mem's per-row stream or rc's
	// 3 slots), so the sorted column's continuity is checked cycle to cycle.
	sortedCur, sortedNext := col(ColSortedDiluted, 0, "sorted_diluted"), col(ColSortedDiluted, CycleHeight, "sorted_diluted_next")
	diff := Sub(sortedNext, sortedCur)
	gapPoly := Expr(One())
	for _, g := range gaps {
		gapPoly = Mul(gapPoly, Sub(diff, Constant{V: g}))
	}
	add("diluted_sorted_gap_allowed", gapPoly, exceptLast)
	add("diluted_sorted_first_is_zero", col(ColSortedDiluted, 0, "sorted_diluted"), d.singleRow(0))
	maxVal := field.DiluteFp(uint64(1)<<uint(DilutedNBits)-1, DilutedNBits, DilutedSpacing)
	add("diluted_sorted_last_is_max", Sub(col(ColSortedDiluted, 0, "sorted_diluted"), Constant{V: maxVal}), d.singleRow(n-1))

	zAgg, alphaAgg := Challenge{Index: ChZDilutedAgg}, Challenge{Index: ChAlphaDilutedAgg}
	aggCur := col(ColExtDilutedAgg, 0, "diluted_agg")
	aggNext := col(ColExtDilutedAgg, CycleHeight, "diluted_agg_next")
	aggEnd := col(ColExtDilutedAgg, CycleHeight-1, "diluted_agg_end")
	aggDiff := Sub(sortedNext, sortedCur)
	aggStep := Add(Mul(aggCur, Add(One(), Mul(zAgg, aggDiff))), Mul(alphaAgg, Mul(aggDiff, aggDiff)))
	add("diluted_agg_step", Sub(aggNext, aggStep), exceptLast)
	// The last cycle has no next sorted value to fold in (sortedNext would
	// wrap around to row 0), so its aggregate carries unchanged through the
	// cycle; diluted_agg_terminal below pins the carried value.
	add("diluted_agg_last_step", Sub(aggEnd, aggCur), d.singleRow(n-CycleHeight))
	add("diluted_agg_initial", Sub(col(ColExtDilutedAgg, 0, "diluted_agg"), One()), d.singleRow(0))
	add("diluted_agg_terminal", Sub(col(ColExtDilutedAgg, 0, "diluted_agg"), Hint{Index: HintDilutedCheckCumulativeValue}), d.singleRow(n-1))

	return cs
}

// dilutionExpr returns the unique degree-<2^nBits polynomial agreeing with
// dilute_spacing at every integer point in [0, 2^nBits), evaluated at v
// (Lagrange interpolation over the small alphabet, computed once at
// construction time). Lets a builtin feed a value into the diluted-check
// pool without a bit-decomposition chain of its own.
func dilutionExpr(v Expr, nBits, spacing int) Expr {
	count := 1 << uint(nBits)
	xs := make([]field.Fp, count)
	ys := make([]field.Fp, count)
	for i := 0; i < count; i++ {
		xs[i] = field.FpFromUint64(uint64(i))
		ys[i] = field.DiluteFp(uint64(i), nBits, spacing)
	}
	var sum Expr = ZeroExpr()
	for i := 0; i < count; i++ {
		numer := Expr(One())
		denom := field.OneFp()
		for j := 0; j < count; j++ {
			if j == i {
				continue
			}
			numer = Mul(numer, Sub(v, Constant{V: xs[j]}))
			denom = denom.Mul(xs[i].Sub(xs[j]))
		}
		denomInv, err := denom.Inv()
		if err != nil {
			panic("air: dilutionExpr: degenerate alphabet: " + err.Error())
		}
		coeff := ys[i].Mul(denomInv)
		sum = Add(sum, Mul(Constant{V: coeff}, numer))
	}
	return sum
}
