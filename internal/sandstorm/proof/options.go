// Package proof defines the wire-level Proof object and its
// prover-configurable parameters, independent of how a proof is produced
// or checked.
package proof

import "fmt"

// Options are the prover-chosen parameters both prover and verifier must
// agree on.
type Options struct {
	NumQueries             int
	LDEBlowupFactor        int
	ProofOfWorkBits        uint8
	FriFoldingFactor       int
	FriMaxRemainderCoeffs  int
}

// DefaultOptions returns a conservative, test-friendly parameter set.
func DefaultOptions() Options {
	return Options{
		NumQueries:            32,
		LDEBlowupFactor:       4,
		ProofOfWorkBits:       16,
		FriFoldingFactor:      8,
		FriMaxRemainderCoeffs: 16,
	}
}

func (o Options) WithNumQueries(n int) Options             { o.NumQueries = n; return o }
func (o Options) WithLDEBlowupFactor(n int) Options         { o.LDEBlowupFactor = n; return o }
func (o Options) WithProofOfWorkBits(n uint8) Options       { o.ProofOfWorkBits = n; return o }
func (o Options) WithFriFoldingFactor(n int) Options        { o.FriFoldingFactor = n; return o }
func (o Options) WithFriMaxRemainderCoeffs(n int) Options   { o.FriMaxRemainderCoeffs = n; return o }

// Validate checks the options are internally consistent: parameters that
// can never yield a sound proof regardless of what the prover sends are
// rejected at construction time.
func (o Options) Validate() error {
	if o.NumQueries <= 0 {
		return fmt.Errorf("proof: num_queries must be positive, got %d", o.NumQueries)
	}
	if o.LDEBlowupFactor <= 1 || o.LDEBlowupFactor&(o.LDEBlowupFactor-1) != 0 {
		return fmt.Errorf("proof: lde_blowup_factor must be a power of two > 1, got %d", o.LDEBlowupFactor)
	}
	if o.FriFoldingFactor < 2 || o.FriFoldingFactor&(o.FriFoldingFactor-1) != 0 {
		return fmt.Errorf("proof: fri_folding_factor must be a power of two >= 2, got %d", o.FriFoldingFactor)
	}
	if o.FriMaxRemainderCoeffs <= 0 || o.FriMaxRemainderCoeffs&(o.FriMaxRemainderCoeffs-1) != 0 {
		return fmt.Errorf("proof: fri_max_remainder_coeffs must be a power of two, got %d", o.FriMaxRemainderCoeffs)
	}
	return nil
}

// SecurityBits estimates the achieved soundness, combining query count
// (each rejects a false claim with probability roughly 1/blowup) with
// grinding.
func (o Options) SecurityBits() uint32 {
	perQuery := 0
	for f := o.LDEBlowupFactor; f > 1; f >>= 1 {
		perQuery++
	}
	return uint32(o.NumQueries*perQuery) + uint32(o.ProofOfWorkBits)
}
