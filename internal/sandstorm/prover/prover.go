// Package prover implements the proving pipeline: build the AIR, build
// and commit the base and extension traces, fold the composition
// constraint into a single evaluation vector, run FRI on the resulting
// DEEP polynomial, and assemble the wire-format Proof. One linear function
// walks commit -> draw -> commit -> draw -> query in strict order against
// a single transcript, so the verifier can replay it deterministically;
// the per-column interpolate+LDE fan-out runs on an errgroup worker pool.
package prover

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/rs/zerolog/log"

	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/air"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/claim"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/fri"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/hash"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/merkle"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/poly"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/proof"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/trace"
)

// domainOffset shifts every LDE/FRI coset off of the trace subgroup: the
// field's canonical multiplicative generator (poly/fft.go builds its whole
// root-of-unity tower from the same g=3), which by construction lies
// outside every power-of-two subgroup this prover ever interpolates over.
var domainOffset = field.FpFromUint64(3)

// Prover holds everything a proof run needs besides the witness itself.
type Prover struct {
	Claim   *claim.Claim
	Options proof.Options
}

// New validates opts and returns a Prover for c.
func New(c *claim.Claim, opts proof.Options) (*Prover, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("prover: %w", err)
	}
	return &Prover{Claim: c, Options: opts}, nil
}

// columnSet is a committed group of columns: one interpolated polynomial
// and one LDE evaluation vector per column, plus the row-wise Merkle tree
// over all of them -- one leaf commits an entire trace row, so a single
// query opens every column at that position together.
type columnSet struct {
	polys []poly.Polynomial
	lde   [][]field.Fp
	tree  *merkle.Tree
}

func commitColumns(h hash.Fn, m *trace.Matrix, numCols, ldeSize int, offset field.Fp) (*columnSet, error) {
	polys := make([]poly.Polynomial, numCols)
	lde := make([][]field.Fp, numCols)

	var g errgroup.Group
	for c := 0; c < numCols; c++ {
		c := c
		g.Go(func() error {
			p, err := poly.InterpolateFromDomain(m.Col(c))
			if err != nil {
				return fmt.Errorf("column %d: %w", c, err)
			}
			l, err := poly.LowDegreeExtend(p, ldeSize, offset)
			if err != nil {
				return fmt.Errorf("column %d: %w", c, err)
			}
			polys[c] = p
			lde[c] = l
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("prover: interpolate/lde: %w", err)
	}

	leafChunks := make([][][]byte, ldeSize)
	for i := 0; i < ldeSize; i++ {
		chunks := make([][]byte, numCols)
		for c := 0; c < numCols; c++ {
			b := lde[c][i].Bytes32BE()
			chunks[c] = b[:]
		}
		leafChunks[i] = chunks
	}
	tree, err := merkle.NewFromLeafData(h, leafChunks)
	if err != nil {
		return nil, fmt.Errorf("prover: committing columns: %w", err)
	}
	return &columnSet{polys: polys, lde: lde, tree: tree}, nil
}

func commitSingleColumn(h hash.Fn, vals []field.Fp) (*merkle.Tree, error) {
	leafChunks := make([][][]byte, len(vals))
	for i, v := range vals {
		b := v.Bytes32BE()
		leafChunks[i] = [][]byte{b[:]}
	}
	return merkle.NewFromLeafData(h, leafChunks)
}

// rowFn builds an air.Env.Row accessor closing over the LDE index i: it
// routes a Trace leaf's column to the base or extension LDE matrix (see
// air.ExtColumnBase) and shifts rowOffset trace-rows into blowup*rowOffset
// LDE-domain steps, since DomainGenerator(ldeSize)^blowup ==
// DomainGenerator(trace_len) by construction (poly/fft.go).
func rowFn(base, ext *columnSet, numBaseColumns, blowup, ldeSize, i int) func(col, rowOffset int) field.Fp {
	return func(col, rowOffset int) field.Fp {
		idx := (i + rowOffset*blowup) % ldeSize
		if col < numBaseColumns {
			return base.lde[col][idx]
		}
		return ext.lde[col-air.ExtColumnBase][idx]
	}
}

// evalAt evaluates a trace argument's underlying column polynomial at an
// arbitrary field point (used for out-of-domain evaluations, where z need
// not be an LDE-domain element).
func evalAt(base, ext *columnSet, numBaseColumns int, t air.Trace, point field.Fp) field.Fp {
	if t.Col < numBaseColumns {
		return base.polys[t.Col].Eval(point)
	}
	return ext.polys[t.Col-air.ExtColumnBase].Eval(point)
}

// Prove runs the full pipeline and returns the assembled Proof.
func (p *Prover) Prove(w trace.Witness) (*proof.Proof, error) {
	cfg := p.Claim.Config
	pub := p.Claim.PublicInput

	steps := len(w.Registers)
	if uint64(steps) != pub.NSteps {
		return nil, fmt.Errorf("prover: witness has %d steps, public input declares %d", steps, pub.NSteps)
	}
	n := steps * air.CycleHeight
	blowup := p.Options.LDEBlowupFactor
	ldeSize := n * blowup

	h, err := p.Claim.HashFn()
	if err != nil {
		return nil, err
	}
	a, err := air.NewAir(cfg, n, domainOffset)
	if err != nil {
		return nil, err
	}
	coin, err := p.Claim.NewCoin()
	if err != nil {
		return nil, err
	}

	log.Debug().Int("trace_len", n).Str("layout", string(cfg.Layout)).Msg("prover: building base trace")
	builder, err := trace.NewBuilder(cfg, w, pub)
	if err != nil {
		return nil, err
	}
	baseMatrix, err := builder.BuildBase()
	if err != nil {
		return nil, err
	}
	// Fills the builtin blocks (none on the plain layout) and then the
	// memory stream and sorted companion columns, which depend on them.
	if err := builder.BuildBuiltins(baseMatrix, w.Private); err != nil {
		return nil, err
	}
	base, err := commitColumns(h, baseMatrix, cfg.NumBaseColumns, ldeSize, domainOffset)
	if err != nil {
		return nil, err
	}
	coin.ReseedWithDigest(base.tree.Root())

	challenges := a.DrawChallenges(coin)
	hints, err := trace.GenHints(n, pub, challenges)
	if err != nil {
		return nil, err
	}

	extMatrix, err := trace.BuildExtension(cfg, baseMatrix, challenges, hints[air.HintMemoryQuotient])
	if err != nil {
		return nil, err
	}
	ext, err := commitColumns(h, extMatrix, air.NumCPUExtensionColumns, ldeSize, domainOffset)
	if err != nil {
		return nil, err
	}
	coin.ReseedWithDigest(ext.tree.Root())

	compCoeffs := a.DrawCompositionCoeffs(coin)

	log.Debug().Int("num_constraints", a.NumConstraints()).Msg("prover: evaluating composition")
	ldeDomain, err := poly.Domain(ldeSize, domainOffset)
	if err != nil {
		return nil, err
	}
	compLDE := make([]field.Fp, ldeSize)
	for i, x := range ldeDomain {
		env := &air.Env{
			X:          x,
			Row:        rowFn(base, ext, cfg.NumBaseColumns, blowup, ldeSize, i),
			Challenges: challenges,
			Hints:      hints,
			CompCoeffs: compCoeffs,
		}
		compLDE[i] = a.EvaluateComposition(env)
	}
	compTree, err := commitSingleColumn(h, compLDE)
	if err != nil {
		return nil, err
	}
	coin.ReseedWithDigest(compTree.Root())

	z := coin.Draw()
	argTraces := a.TraceArguments()
	traceOodEvals := make([]field.Fp, len(argTraces))
	for i, t := range argTraces {
		point := z.Mul(a.Omega.Pow(uint64(t.RowOffset)))
		traceOodEvals[i] = evalAt(base, ext, cfg.NumBaseColumns, t, point)
	}
	compPoly, err := poly.InterpolateFromCoset(compLDE, domainOffset)
	if err != nil {
		return nil, err
	}
	compositionOodEvals := []field.Fp{compPoly.Eval(z)}

	coin.ReseedWithFieldElements(traceOodEvals)
	coin.ReseedWithFieldElements(compositionOodEvals)

	if err := checkOodConsistency(a, argTraces, z, traceOodEvals, compositionOodEvals[0], challenges, hints, compCoeffs); err != nil {
		return nil, err
	}

	deepCoeffs := make([]field.Fp, len(argTraces)+1)
	for i := range deepCoeffs {
		deepCoeffs[i] = coin.Draw()
	}

	deepLDE, err := buildDeepComposition(base, ext, cfg.NumBaseColumns, argTraces, compLDE, ldeDomain, z, a.Omega, traceOodEvals, compositionOodEvals[0], deepCoeffs)
	if err != nil {
		return nil, err
	}

	log.Debug().Int("lde_size", ldeSize).Msg("prover: running FRI")
	friCommit, err := fri.Commit(deepLDE, domainOffset, p.Options.FriFoldingFactor, p.Options.FriMaxRemainderCoeffs, coin, h)
	if err != nil {
		return nil, err
	}

	nonce, err := coin.GrindProofOfWork(p.Options.ProofOfWorkBits)
	if err != nil {
		return nil, err
	}
	coin.ReseedWithInt(nonce)

	positions := coin.DrawQueries(p.Options.NumQueries, ldeSize)
	friQueries, err := friCommit.Query(positions)
	if err != nil {
		return nil, err
	}

	traceQueries := make([]proof.TraceQuery, len(positions))
	for i, pos := range positions {
		baseVals, baseProof, err := openRow(base, pos)
		if err != nil {
			return nil, err
		}
		extVals, extProof, err := openRow(ext, pos)
		if err != nil {
			return nil, err
		}
		compProof, err := compTree.Prove(pos)
		if err != nil {
			return nil, err
		}
		traceQueries[i] = proof.TraceQuery{
			Position:         pos,
			BaseVals:         baseVals,
			ExtVals:          extVals,
			CompositionVals:  []field.Fp{compLDE[pos]},
			BaseProof:        baseProof,
			ExtProof:         extProof,
			CompositionProof: compProof,
		}
	}

	return &proof.Proof{
		BaseCommit:          base.tree.Root(),
		ExtensionCommit:     ext.tree.Root(),
		CompositionCommit:   compTree.Root(),
		TraceOodEvals:       traceOodEvals,
		CompositionOodEvals: compositionOodEvals,
		QueryPositions:      positions,
		TraceQueries:        traceQueries,
		FRI: proof.FriProof{
			Roots:     friCommit.Roots(),
			Remainder: friCommit.Remainder,
			Queries:   friQueries,
		},
		PowNonce: nonce,
		TraceLen: n,
		Options:  p.Options,
	}, nil
}

func openRow(cs *columnSet, pos int) ([]field.Fp, []merkle.ProofNode, error) {
	vals := make([]field.Fp, len(cs.lde))
	for c := range cs.lde {
		vals[c] = cs.lde[c][pos]
	}
	pf, err := cs.tree.Prove(pos)
	if err != nil {
		return nil, nil, err
	}
	return vals, pf, nil
}

// checkOodConsistency recomputes the composition value from the emitted
// OOD trace evaluations and asserts it matches the horner-evaluated OOD
// composition value before the prover commits to the DEEP polynomial
// built from them.
func checkOodConsistency(a *air.Air, argTraces []air.Trace, z field.Fp, traceOodEvals []field.Fp, compositionOodEval field.Fp, challenges, hints, compCoeffs []field.Fp) error {
	lookup := make(map[[2]int]field.Fp, len(argTraces))
	for i, t := range argTraces {
		lookup[[2]int{t.Col, t.RowOffset}] = traceOodEvals[i]
	}
	env := &air.Env{
		X: z,
		Row: func(col, rowOffset int) field.Fp {
			return lookup[[2]int{col, rowOffset}]
		},
		Challenges: challenges,
		Hints:      hints,
		CompCoeffs: compCoeffs,
	}
	got := a.EvaluateComposition(env)
	if !got.Equal(compositionOodEval) {
		return fmt.Errorf("prover: out-of-domain consistency check failed: composition(z) from trace evals != horner composition(z)")
	}
	return nil
}

// buildDeepComposition evaluates the DEEP composition polynomial
// pointwise over the LDE domain: one quotient term per trace argument plus
// one for the composition polynomial itself, weighted by deepCoeffs and
// summed.
func buildDeepComposition(base, ext *columnSet, numBaseColumns int, argTraces []air.Trace, compLDE []field.Fp, ldeDomain []field.Fp, z field.Fp, omega field.Fp, traceOodEvals []field.Fp, compositionOodEval field.Fp, deepCoeffs []field.Fp) ([]field.Fp, error) {
	argPoints := make([]field.Fp, len(argTraces))
	for i, t := range argTraces {
		argPoints[i] = z.Mul(omega.Pow(uint64(t.RowOffset)))
	}

	out := make([]field.Fp, len(ldeDomain))
	for i, x := range ldeDomain {
		acc := field.ZeroFp()

		compTerm, err := compLDE[i].Sub(compositionOodEval).Div(x.Sub(z))
		if err != nil {
			return nil, fmt.Errorf("prover: deep composition: %w", err)
		}
		acc = acc.Add(deepCoeffs[0].Mul(compTerm))

		for j, t := range argTraces {
			var colVal field.Fp
			if t.Col < numBaseColumns {
				colVal = base.lde[t.Col][i]
			} else {
				colVal = ext.lde[t.Col-air.ExtColumnBase][i]
			}
			denom := x.Sub(argPoints[j])
			term, err := colVal.Sub(traceOodEvals[j]).Div(denom)
			if err != nil {
				return nil, fmt.Errorf("prover: deep composition: trace argument %d: %w", j, err)
			}
			acc = acc.Add(deepCoeffs[j+1].Mul(term))
		}
		out[i] = acc
	}
	return out, nil
}
