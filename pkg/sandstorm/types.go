// Package sandstorm is the stable public API over this module's internal
// STARK prover/verifier: build a Claim from a program's public input, hand
// it a Witness to get a Proof, and hand that Proof back to Verify. A thin
// type-alias and wrapper layer keeps the internal packages free to change
// shape without breaking callers.
package sandstorm

import (
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/air"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/claim"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/proof"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/trace"
)

// Fp is this system's base field element, from the 252-bit Stark-friendly
// prime field.
type Fp = field.Fp

// LayoutKind names which AIR configuration a claim uses.
type LayoutKind = air.LayoutKind

const (
	LayoutPlain                 = air.LayoutPlain
	LayoutSmall                 = air.LayoutSmall
	LayoutStarknet              = air.LayoutStarknet
	LayoutRecursive             = air.LayoutRecursive
	LayoutDex                   = air.LayoutDex
	LayoutRecursiveWithPoseidon = air.LayoutRecursiveWithPoseidon
	LayoutRecursiveLargeOutput  = air.LayoutRecursiveLargeOutput
	LayoutAllSolidity           = air.LayoutAllSolidity
	LayoutStarknetWithKeccak    = air.LayoutStarknetWithKeccak
)

// Target names which verifier a claim/proof targets.
type Target = claim.Target

const (
	TargetSolidity = claim.TargetSolidity
	TargetCairo    = claim.TargetCairo
)

// Config is a layout's column/constraint/builtin bundle.
type Config = air.Config

// AirPublicInput is the public input both prover and verifier bind a
// claim to.
type AirPublicInput = trace.AirPublicInput

// MemorySegment is a {begin_addr, stop_ptr} memory region.
type MemorySegment = trace.Segment

// MemoryEntry is one committed (address, value) public-memory pair.
type MemoryEntry = trace.MemoryEntry

// RegisterState is one VM step's (pc, ap, fp) snapshot.
type RegisterState = trace.RegisterState

// Witness is the recorded execution a prover turns into a Proof.
type Witness = trace.Witness

// AirPrivateInput bundles a builtin-bearing layout's per-instance private
// witness data (Pedersen operands, range-check values, ECDSA signatures,
// ...), assigned to Witness.Private.
type AirPrivateInput = trace.AirPrivateInput

// PedersenInput is one pedersen(a, b) instance's private input.
type PedersenInput = trace.PedersenInput

// RangeCheck128Input is one range_check128(v) instance's private input.
type RangeCheck128Input = trace.RangeCheck128Input

// ECDSAInput is one ecdsa signature-verification instance's private input.
type ECDSAInput = trace.ECDSAInput

// BitwiseInput is one bitwise(x, y) instance's private input.
type BitwiseInput = trace.BitwiseInput

// ECOpInput is one ec_op(p, m, q) instance's private input.
type ECOpInput = trace.ECOpInput

// PoseidonInput is one Poseidon permutation instance's private input.
type PoseidonInput = trace.PoseidonInput

// Point is an affine point on the Stark curve, used by ECDSA/ec_op inputs.
type Point = field.Point

// Claim binds a Config, a Target, and an AirPublicInput together.
type Claim = claim.Claim

// Proof is the wire-format artifact a prover emits and a verifier checks.
type Proof = proof.Proof

// Options are the prover-chosen, verifier-checked protocol parameters.
type Options = proof.Options

// DefaultOptions returns a conservative, test-friendly parameter set.
func DefaultOptions() Options { return proof.DefaultOptions() }

// PlainConfig is the layout with no builtins.
func PlainConfig() Config { return air.PlainConfig() }

// StarknetConfig is the production Starknet layout.
func StarknetConfig() Config { return air.StarknetConfig() }

// RecursiveConfig is the recursive/Cairo-verifier layout.
func RecursiveConfig() Config { return air.RecursiveConfig() }

// NewClaim validates and binds cfg/target/pub into a Claim.
func NewClaim(cfg Config, target Target, pub AirPublicInput) (*Claim, error) {
	return claim.New(cfg, target, pub)
}
