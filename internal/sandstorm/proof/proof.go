package proof

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/fri"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/hash"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/merkle"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/poly"
)

// TraceQuery is one opened query position's trace/composition row values
// plus their Merkle authentication paths.
type TraceQuery struct {
	Position        int
	BaseVals        []field.Fp
	ExtVals         []field.Fp // empty when the layout has no extension columns opened at this position
	CompositionVals []field.Fp
	BaseProof       []merkle.ProofNode
	ExtProof        []merkle.ProofNode
	CompositionProof []merkle.ProofNode
}

// FriProof bundles the FRI sub-protocol's commit-phase roots, remainder
// polynomial, and per-query-position openings.
type FriProof struct {
	Roots     []hash.Digest
	Remainder poly.Polynomial
	Queries   []fri.QueryProof
}

// Proof is the full artifact a prover emits and a verifier checks.
type Proof struct {
	BaseCommit          hash.Digest
	ExtensionCommit     hash.Digest // nil when the layout has no extension columns
	CompositionCommit   hash.Digest
	TraceOodEvals       []field.Fp
	CompositionOodEvals []field.Fp
	QueryPositions      []int
	TraceQueries        []TraceQuery
	FRI                 FriProof
	PowNonce            uint64
	TraceLen            int
	Options             Options
}

// --- binary wire format ---
//
// Every variable-length field (byte slices, Fp slices, proof-node slices,
// query lists) is length-prefixed with a uint32; Fp elements are encoded
// as their 32-byte canonical big-endian form (field.Bytes32BE) -- the
// canonical form is the rule at every external boundary.

type writer struct{ buf bytes.Buffer }

func (w *writer) u8(v uint8)   { w.buf.WriteByte(v) }
func (w *writer) u32(v uint32) { var b [4]byte; binary.BigEndian.PutUint32(b[:], v); w.buf.Write(b[:]) }
func (w *writer) u64(v uint64) { var b [8]byte; binary.BigEndian.PutUint64(b[:], v); w.buf.Write(b[:]) }
func (w *writer) bytes(b []byte) {
	w.u32(uint32(len(b)))
	w.buf.Write(b)
}
func (w *writer) fp(v field.Fp) {
	b := v.Bytes32BE()
	w.buf.Write(b[:])
}
func (w *writer) fps(vs []field.Fp) {
	w.u32(uint32(len(vs)))
	for _, v := range vs {
		w.fp(v)
	}
}
func (w *writer) ints(xs []int) {
	w.u32(uint32(len(xs)))
	for _, x := range xs {
		w.u64(uint64(x))
	}
}
func (w *writer) proofNodes(ns []merkle.ProofNode) {
	w.u32(uint32(len(ns)))
	for _, n := range ns {
		var flag uint8
		if n.IsRight {
			flag = 1
		}
		w.u8(flag)
		w.bytes(n.Sibling)
	}
}

type reader struct {
	b   []byte
	pos int
	err error
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *reader) need(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.pos+n > len(r.b) {
		r.fail(fmt.Errorf("proof: unexpected end of data"))
		return nil
	}
	out := r.b[r.pos : r.pos+n]
	r.pos += n
	return out
}

func (r *reader) u8() uint8 {
	b := r.need(1)
	if b == nil {
		return 0
	}
	return b[0]
}
func (r *reader) u32() uint32 {
	b := r.need(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}
func (r *reader) u64() uint64 {
	b := r.need(8)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}
func (r *reader) bytesField() []byte {
	n := r.u32()
	b := r.need(int(n))
	return append([]byte{}, b...)
}
func (r *reader) fp() field.Fp {
	b := r.need(32)
	if b == nil {
		return field.Fp{}
	}
	return field.FpFromBytesBE(b)
}
func (r *reader) fps() []field.Fp {
	n := r.u32()
	out := make([]field.Fp, n)
	for i := range out {
		out[i] = r.fp()
	}
	return out
}
func (r *reader) ints() []int {
	n := r.u32()
	out := make([]int, n)
	for i := range out {
		out[i] = int(r.u64())
	}
	return out
}
func (r *reader) proofNodes() []merkle.ProofNode {
	n := r.u32()
	out := make([]merkle.ProofNode, n)
	for i := range out {
		isRight := r.u8() != 0
		sib := r.bytesField()
		out[i] = merkle.ProofNode{Sibling: sib, IsRight: isRight}
	}
	return out
}

func (w *writer) traceQuery(q TraceQuery) {
	w.u64(uint64(q.Position))
	w.fps(q.BaseVals)
	w.fps(q.ExtVals)
	w.fps(q.CompositionVals)
	w.proofNodes(q.BaseProof)
	w.proofNodes(q.ExtProof)
	w.proofNodes(q.CompositionProof)
}

func (r *reader) traceQuery() TraceQuery {
	var q TraceQuery
	q.Position = int(r.u64())
	q.BaseVals = r.fps()
	q.ExtVals = r.fps()
	q.CompositionVals = r.fps()
	q.BaseProof = r.proofNodes()
	q.ExtProof = r.proofNodes()
	q.CompositionProof = r.proofNodes()
	return q
}

func (w *writer) friLayerQuery(lq fri.LayerQuery) {
	w.u64(uint64(lq.GroupIndex))
	w.fps(lq.GroupValues)
	w.proofNodes(lq.Proof)
}

func (r *reader) friLayerQuery() fri.LayerQuery {
	var lq fri.LayerQuery
	lq.GroupIndex = int(r.u64())
	lq.GroupValues = r.fps()
	lq.Proof = r.proofNodes()
	return lq
}

func (w *writer) friQueryProof(qp fri.QueryProof) {
	w.u32(uint32(len(qp.Layers)))
	for _, lq := range qp.Layers {
		w.friLayerQuery(lq)
	}
}

func (r *reader) friQueryProof() fri.QueryProof {
	n := r.u32()
	layers := make([]fri.LayerQuery, n)
	for i := range layers {
		layers[i] = r.friLayerQuery()
	}
	return fri.QueryProof{Layers: layers}
}

func (w *writer) friProof(p FriProof) {
	w.u32(uint32(len(p.Roots)))
	for _, root := range p.Roots {
		w.bytes(root)
	}
	w.fps(p.Remainder.Coeffs)
	w.u32(uint32(len(p.Queries)))
	for _, q := range p.Queries {
		w.friQueryProof(q)
	}
}

func (r *reader) friProof() FriProof {
	var p FriProof
	n := r.u32()
	p.Roots = make([]hash.Digest, n)
	for i := range p.Roots {
		p.Roots[i] = r.bytesField()
	}
	p.Remainder = poly.Polynomial{Coeffs: r.fps()}
	qn := r.u32()
	p.Queries = make([]fri.QueryProof, qn)
	for i := range p.Queries {
		p.Queries[i] = r.friQueryProof()
	}
	return p
}

// wireVersion tags the format so a future incompatible layout change
// fails loudly on Unmarshal instead of silently misparsing.
const wireVersion = 1

// Marshal encodes p into the canonical binary wire format.
func (p *Proof) Marshal() ([]byte, error) {
	var w writer
	w.u8(wireVersion)
	w.bytes(p.BaseCommit)
	w.bytes(p.ExtensionCommit)
	w.bytes(p.CompositionCommit)
	w.fps(p.TraceOodEvals)
	w.fps(p.CompositionOodEvals)
	w.ints(p.QueryPositions)
	w.u32(uint32(len(p.TraceQueries)))
	for _, q := range p.TraceQueries {
		w.traceQuery(q)
	}
	w.friProof(p.FRI)
	w.u64(p.PowNonce)
	w.u64(uint64(p.TraceLen))
	w.u64(uint64(p.Options.NumQueries))
	w.u64(uint64(p.Options.LDEBlowupFactor))
	w.u8(p.Options.ProofOfWorkBits)
	w.u64(uint64(p.Options.FriFoldingFactor))
	w.u64(uint64(p.Options.FriMaxRemainderCoeffs))
	return w.buf.Bytes(), nil
}

// Unmarshal decodes a Proof from the wire format Marshal produces.
func Unmarshal(data []byte) (*Proof, error) {
	r := reader{b: data}
	version := r.u8()
	if version != wireVersion {
		return nil, fmt.Errorf("proof: unsupported wire version %d", version)
	}
	p := &Proof{}
	p.BaseCommit = r.bytesField()
	p.ExtensionCommit = r.bytesField()
	p.CompositionCommit = r.bytesField()
	p.TraceOodEvals = r.fps()
	p.CompositionOodEvals = r.fps()
	p.QueryPositions = r.ints()
	n := r.u32()
	p.TraceQueries = make([]TraceQuery, n)
	for i := range p.TraceQueries {
		p.TraceQueries[i] = r.traceQuery()
	}
	p.FRI = r.friProof()
	p.PowNonce = r.u64()
	p.TraceLen = int(r.u64())
	p.Options.NumQueries = int(r.u64())
	p.Options.LDEBlowupFactor = int(r.u64())
	p.Options.ProofOfWorkBits = r.u8()
	p.Options.FriFoldingFactor = int(r.u64())
	p.Options.FriMaxRemainderCoeffs = int(r.u64())
	if r.err != nil {
		return nil, r.err
	}
	return p, nil
}
