package trace

import (
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/air"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"
)

// BuildExtension computes the extension columns from the already-committed
// base matrix and the challenges drawn after that commitment.
//
// The memory grand product folds one stream pair per row:
// pi_{r+1} = pi_r * (z - (a_r + alpha*v_r)) / (z - (a'_r + alpha*v'_r)),
// reading the program-order stream (ColMemAddr/ColMemVal) against the
// address-sorted companion columns. The sorted side is a reordering of the
// stream, so the ratio chain telescopes end to end; both ends are anchored
// at memoryQuotient, the verifier-known public-memory quotient the
// constraints check at row 0 and at the final fold. The range-check and
// diluted products keep cycle granularity, matching their constraints'
// CycleHeight-strided reads. The range-check product has no public-side
// anchor and starts at 1.
func BuildExtension(cfg air.Config, base *Matrix, challenges []field.Fp, memoryQuotient field.Fp) (*Matrix, error) {
	n := base.NumRows
	ext := newMatrix(air.NumCPUExtensionColumns, n)

	zMem, alphaMem := challenges[air.ChZMem], challenges[air.ChAlphaMem]
	zRC := challenges[air.ChZRC]
	zDiluted := challenges[air.ChZDiluted]
	zDilutedAgg, alphaDilutedAgg := challenges[air.ChZDilutedAgg], challenges[air.ChAlphaDilutedAgg]

	// Extension columns live in the reserved air.ExtColumnBase namespace;
	// this matrix only has NumCPUExtensionColumns columns of its own, so
	// indices into it are relative to that base.
	extMemCol := air.ColExtMemProduct - air.ExtColumnBase
	extRCCol := air.ColExtRCProduct - air.ExtColumnBase
	extDilutedCol := air.ColExtDilutedProduct - air.ExtColumnBase
	extDilutedAggCol := air.ColExtDilutedAgg - air.ExtColumnBase

	memProduct := memoryQuotient
	for r := 0; r < n; r++ {
		ext.Columns[extMemCol][r] = memProduct
		if r == n-1 {
			// The final row's own ratio is checked by the terminal
			// constraint against the quotient anchor, not stored.
			break
		}
		numer := zMem.Sub(base.Columns[air.ColMemAddr][r].Add(alphaMem.Mul(base.Columns[air.ColMemVal][r])))
		denom := zMem.Sub(base.Columns[air.ColSortedAddr][r].Add(alphaMem.Mul(base.Columns[air.ColSortedVal][r])))
		ratio, err := numer.Div(denom)
		if err != nil {
			return nil, err
		}
		memProduct = memProduct.Mul(ratio)
	}

	rcProduct := field.OneFp()
	dilutedProduct := field.OneFp()
	dilutedAgg := field.OneFp()
	steps := n / air.CycleHeight
	for step := 0; step < steps; step++ {
		row := step * air.CycleHeight
		ext.Columns[extRCCol][row] = rcProduct
		ext.Columns[extDilutedCol][row] = dilutedProduct
		ext.Columns[extDilutedAggCol][row] = dilutedAgg

		rcNumer := field.OneFp()
		rcDenom := field.OneFp()
		for i, c := range []int{air.ColOffDst, air.ColOffOp0, air.ColOffOp1} {
			off := base.Columns[c][row]
			rcNumer = rcNumer.Mul(zRC.Sub(off))
			sorted := base.Columns[air.ColSortedRC][row+i]
			rcDenom = rcDenom.Mul(zRC.Sub(sorted))
		}
		rcRatio, err := rcNumer.Div(rcDenom)
		if err != nil {
			return nil, err
		}
		rcProduct = rcProduct.Mul(rcRatio)

		unsorted := base.Columns[air.ColDilutedUnsorted][row]
		sortedDiluted := base.Columns[air.ColSortedDiluted][row]
		dilutedRatio, err := zDiluted.Sub(unsorted).Div(zDiluted.Sub(sortedDiluted))
		if err != nil {
			return nil, err
		}
		dilutedProduct = dilutedProduct.Mul(dilutedRatio)

		// The aggregation's delta compares this cycle's sorted value to the
		// next cycle's, so advancing the running aggregate needs one cycle
		// of lookahead; the last cycle carries it unchanged.
		nextAgg := dilutedAgg
		if step < steps-1 {
			nextSorted := base.Columns[air.ColSortedDiluted][row+air.CycleHeight]
			delta := nextSorted.Sub(sortedDiluted)
			nextAgg = dilutedAgg.Mul(field.OneFp().Add(zDilutedAgg.Mul(delta))).Add(alphaDilutedAgg.Mul(delta.Mul(delta)))
		}

		for i := 1; i < air.CycleHeight; i++ {
			ext.Columns[extRCCol][row+i] = rcProduct
			ext.Columns[extDilutedCol][row+i] = dilutedProduct
			ext.Columns[extDilutedAggCol][row+i] = nextAgg
		}
		dilutedAgg = nextAgg
	}
	return ext, nil
}

// PublicMemoryQuotient computes the anchor value the memory permutation
// grand product is pinned to at both ends: a grand product over the public
// memory entries, padded by repeating the final entry up to n terms.
func PublicMemoryQuotient(publicMemory []MemoryEntry, z, alpha field.Fp, n int) (field.Fp, error) {
	numer := field.OneFp()
	for i := 0; i < n; i++ {
		var e MemoryEntry
		if i < len(publicMemory) {
			e = publicMemory[i]
		} else {
			e = publicMemory[len(publicMemory)-1]
		}
		term := z.Sub(field.FpFromUint64(e.Address).Add(alpha.Mul(e.Value)))
		numer = numer.Mul(term)
	}
	return numer, nil
}
