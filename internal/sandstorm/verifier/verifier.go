package verifier

import (
	"fmt"

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

// domainOffset must match the coset shift the prover committed under
// (internal/sandstorm/prover.domainOffset).
var domainOffset = field.FpFromUint64(3)

// Verifier holds the claim a proof is checked against plus the minimum
// security level the caller requires.
type Verifier struct {
	Claim                *claim.Claim
	RequiredSecurityBits uint32
}

// New returns a Verifier for c, requiring at least requiredSecurityBits
// bits of soundness from any proof it checks.
func New(c *claim.Claim, requiredSecurityBits uint32) *Verifier {
	return &Verifier{Claim: c, RequiredSecurityBits: requiredSecurityBits}
}

// Verify replays the prover's transcript against p and returns nil if p
// is a valid proof of c, or a *Error naming the specific rejection kind.
func (v *Verifier) Verify(p *proof.Proof) error {
	cfg := v.Claim.Config
	pub := v.Claim.PublicInput

	if p.Options.SecurityBits() < v.RequiredSecurityBits {
		return fail(KindInvalidProofSecurity, fmt.Sprintf("proof offers %d security bits, %d required", p.Options.SecurityBits(), v.RequiredSecurityBits), nil)
	}
	if err := p.Options.Validate(); err != nil {
		return fail(KindInvalidProofSecurity, "proof options fail validation", err)
	}

	n := int(pub.NSteps) * air.CycleHeight
	if n != p.TraceLen {
		return fail(KindInvalidProofSecurity, fmt.Sprintf("proof trace_len %d does not match public input (expected %d)", p.TraceLen, n), nil)
	}
	blowup := p.Options.LDEBlowupFactor
	ldeSize := n * blowup

	h, err := v.Claim.HashFn()
	if err != nil {
		return fail(KindUnknown, "resolving hash family", err)
	}
	a, err := air.NewAir(cfg, n, domainOffset)
	if err != nil {
		return fail(KindUnknown, "building air", err)
	}
	coin, err := v.Claim.NewCoin()
	if err != nil {
		return fail(KindUnknown, "seeding transcript", err)
	}

	log.Debug().Int("trace_len", n).Msg("verifier: replaying transcript")

	coin.ReseedWithDigest(p.BaseCommit)
	challenges := a.DrawChallenges(coin)

	coin.ReseedWithDigest(p.ExtensionCommit)
	compCoeffs := a.DrawCompositionCoeffs(coin)

	coin.ReseedWithDigest(p.CompositionCommit)
	z := coin.Draw()

	argTraces := a.TraceArguments()
	if len(p.TraceOodEvals) != len(argTraces) {
		return fail(KindInconsistentOodConstraintEvaluations, fmt.Sprintf("proof has %d trace OOD evals, expected %d", len(p.TraceOodEvals), len(argTraces)), nil)
	}
	if len(p.CompositionOodEvals) != 1 {
		return fail(KindInconsistentOodConstraintEvaluations, fmt.Sprintf("proof has %d composition OOD evals, expected 1", len(p.CompositionOodEvals)), nil)
	}

	coin.ReseedWithFieldElements(p.TraceOodEvals)
	coin.ReseedWithFieldElements(p.CompositionOodEvals)

	// Hints are not carried by the proof: the verifier rederives the
	// identical hint vector from the public input alone, the same
	// trace.GenHints call the prover made (see DESIGN.md: hints.go).
	hints, err := trace.GenHints(n, pub, challenges)
	if err != nil {
		return fail(KindUnknown, "deriving hints from public input", err)
	}

	if err := checkOodConsistency(a, argTraces, z, p.TraceOodEvals, p.CompositionOodEvals[0], challenges, hints, compCoeffs); err != nil {
		return fail(KindInconsistentOodConstraintEvaluations, "out-of-domain composition mismatch", err)
	}

	deepCoeffs := make([]field.Fp, len(argTraces)+1)
	for i := range deepCoeffs {
		deepCoeffs[i] = coin.Draw()
	}

	if len(p.FRI.Remainder.Coeffs) > p.Options.FriMaxRemainderCoeffs {
		return fail(KindFriVerification, fmt.Sprintf("remainder has %d coefficients, exceeding the %d limit", len(p.FRI.Remainder.Coeffs), p.Options.FriMaxRemainderCoeffs), nil)
	}

	friParams := fri.Params{
		BaseDomainSize: ldeSize,
		BaseOffset:     domainOffset,
		FoldingFactor:  p.Options.FriFoldingFactor,
		Roots:          p.FRI.Roots,
		Remainder:      p.FRI.Remainder,
	}
	friChallenges := make([]field.Fp, len(p.FRI.Roots))
	for i, root := range p.FRI.Roots {
		coin.ReseedWithDigest(root)
		friChallenges[i] = coin.Draw()
	}
	friParams.Challenges = friChallenges

	if p.Options.ProofOfWorkBits != 0 {
		if !coin.VerifyProofOfWork(p.Options.ProofOfWorkBits, p.PowNonce) {
			return fail(KindFriProofOfWork, "proof-of-work nonce does not meet the required difficulty", nil)
		}
	}
	coin.ReseedWithInt(p.PowNonce)

	positions := coin.DrawQueries(p.Options.NumQueries, ldeSize)
	if len(positions) != len(p.QueryPositions) {
		return fail(KindFriVerification, fmt.Sprintf("proof opens %d query positions, transcript demands %d", len(p.QueryPositions), len(positions)), nil)
	}
	for i, pos := range positions {
		if pos != p.QueryPositions[i] {
			return fail(KindFriVerification, "query positions do not match the replayed transcript draw", nil)
		}
	}

	argPoints := make([]field.Fp, len(argTraces))
	for i, t := range argTraces {
		argPoints[i] = z.Mul(a.Omega.Pow(uint64(t.RowOffset)))
	}

	for i, pos := range positions {
		if i >= len(p.TraceQueries) {
			return fail(KindBaseTraceQueryMismatch, "missing trace query opening for a drawn position", nil)
		}
		tq := p.TraceQueries[i]
		if tq.Position != pos {
			return fail(KindBaseTraceQueryMismatch, "trace query position does not match the drawn position", nil)
		}
		if len(tq.BaseVals) != cfg.NumBaseColumns {
			return fail(KindBaseTraceQueryMismatch, "base row has the wrong number of columns", nil)
		}
		if !verifyRow(h, p.BaseCommit, tq.BaseVals, pos, tq.BaseProof) {
			return fail(KindBaseTraceQueryMismatch, fmt.Sprintf("base row at position %d does not match base_commit", pos), nil)
		}
		if len(tq.ExtVals) != air.NumCPUExtensionColumns {
			return fail(KindExtensionTraceQueryMismatch, "extension row has the wrong number of columns", nil)
		}
		if !verifyRow(h, p.ExtensionCommit, tq.ExtVals, pos, tq.ExtProof) {
			return fail(KindExtensionTraceQueryMismatch, fmt.Sprintf("extension row at position %d does not match extension_commit", pos), nil)
		}
		if len(tq.CompositionVals) != 1 {
			return fail(KindCompositionTraceQueryMismatch, "composition row must carry exactly one value", nil)
		}
		if !verifyRow(h, p.CompositionCommit, tq.CompositionVals, pos, tq.CompositionProof) {
			return fail(KindCompositionTraceQueryMismatch, fmt.Sprintf("composition row at position %d does not match composition_commit", pos), nil)
		}

		x := ldeDomainPoint(ldeSize, pos)
		deepVal, err := recomputeDeepValue(cfg.NumBaseColumns, argTraces, tq, x, z, argPoints, p.TraceOodEvals, p.CompositionOodEvals[0], deepCoeffs)
		if err != nil {
			return fail(KindFriVerification, "recomputing DEEP value at query position", err)
		}

		if i >= len(p.FRI.Queries) {
			return fail(KindFriVerification, "missing FRI query opening for a drawn position", nil)
		}
		if err := fri.VerifyQuery(friParams, h, pos, deepVal, p.FRI.Queries[i]); err != nil {
			return fail(KindFriVerification, fmt.Sprintf("FRI verification failed at position %d", pos), err)
		}
	}

	return nil
}

// checkOodConsistency mirrors the prover's self-check: recompute the
// composition value from the trace OOD evaluations and assert it equals
// the OOD composition value the proof claims.
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
		return fmt.Errorf("composition(z) recomputed from trace evals does not equal the claimed composition OOD value")
	}
	return nil
}

// recomputeDeepValue rebuilds the DEEP composition polynomial's value at
// an opened query position from the row openings alone, the same formula
// the prover used to build the FRI input vector.
func recomputeDeepValue(numBaseColumns int, argTraces []air.Trace, tq proof.TraceQuery, x, z field.Fp, argPoints []field.Fp, traceOodEvals []field.Fp, compositionOodEval field.Fp, deepCoeffs []field.Fp) (field.Fp, error) {
	acc := field.ZeroFp()

	compTerm, err := tq.CompositionVals[0].Sub(compositionOodEval).Div(x.Sub(z))
	if err != nil {
		return field.Fp{}, err
	}
	acc = acc.Add(deepCoeffs[0].Mul(compTerm))

	for j, t := range argTraces {
		var colVal field.Fp
		if t.Col < numBaseColumns {
			colVal = tq.BaseVals[t.Col]
		} else {
			colVal = tq.ExtVals[t.Col-air.ExtColumnBase]
		}
		term, err := colVal.Sub(traceOodEvals[j]).Div(x.Sub(argPoints[j]))
		if err != nil {
			return field.Fp{}, fmt.Errorf("trace argument %d: %w", j, err)
		}
		acc = acc.Add(deepCoeffs[j+1].Mul(term))
	}
	return acc, nil
}

func verifyRow(h hash.Fn, root hash.Digest, vals []field.Fp, pos int, proofNodes []merkle.ProofNode) bool {
	chunks := make([][]byte, len(vals))
	for i, v := range vals {
		b := v.Bytes32BE()
		chunks[i] = b[:]
	}
	leaf := h.HashChunks(chunks)
	return merkle.Verify(h, root, leaf, pos, proofNodes)
}

func ldeDomainPoint(ldeSize, idx int) field.Fp {
	g, err := poly.DomainGenerator(ldeSize)
	if err != nil {
		panic(err)
	}
	return domainOffset.Mul(g.Pow(uint64(idx)))
}
