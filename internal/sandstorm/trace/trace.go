// Package trace turns a VM execution witness (register-state log plus
// memory image) into the fixed-layout column matrix the air package's
// constraints check: decode each instruction, fill in operand
// addresses/values and the builtin blocks, then derive the program-order
// memory stream and the sorted auxiliary columns the permutation
// arguments need.
package trace

import (
	"fmt"
	"sort"

	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/air"
	"github.com/andrewmilson/sandstorm-sub000/internal/sandstorm/field"
)

// RegisterState is one VM step's (pc, ap, fp) snapshot.
type RegisterState struct {
	PC, AP, FP uint64
}

// MemoryEntry is one committed (address, value) pair.
type MemoryEntry struct {
	Address uint64
	Value   field.Fp
}

// Memory is the VM's sparse address->value map.
type Memory map[uint64]field.Fp

// Segment is a {begin_addr, stop_ptr} region of the flat memory.
type Segment struct {
	BeginAddr uint64
	StopPtr   uint64
}

// AirPublicInput bundles the public inputs the verifier also computes
// independently.
type AirPublicInput struct {
	RCMin, RCMax    uint64
	NSteps          uint64
	Layout          air.LayoutKind
	MemorySegments  map[string]Segment
	PublicMemory    []MemoryEntry
}

// Witness is the recorded execution (register log + memory) a claim binds
// to an AIR, plus whatever builtin private input the layout's builtins
// need. Private is ignored on the plain layout, which has no builtin
// columns to fill.
type Witness struct {
	Registers []RegisterState
	Memory    Memory
	Private   AirPrivateInput
}

// Matrix is a set of equal-length columns.
type Matrix struct {
	Columns [][]field.Fp
	NumRows int
}

// Col returns column c.
func (m *Matrix) Col(c int) []field.Fp { return m.Columns[c] }

func newMatrix(numCols, numRows int) *Matrix {
	cols := make([][]field.Fp, numCols)
	for i := range cols {
		col := make([]field.Fp, numRows)
		for r := range col {
			col[r] = field.ZeroFp()
		}
		cols[i] = col
	}
	return &Matrix{Columns: cols, NumRows: numRows}
}

// Builder accumulates the base trace for a CPU-only (plain layout) or
// builtin-bearing execution. Builtin columns are left zero here; a
// layout-specific builder (trace/builtins.go) fills them in once a
// builtin's private input is supplied.
type Builder struct {
	cfg     air.Config
	witness Witness
	pub     AirPublicInput
}

// NewBuilder checks that the witness's register log is non-empty and a
// power of two in length and returns a Builder ready to produce the base
// matrix. The public input is stored as given, without checks.
func NewBuilder(cfg air.Config, w Witness, pub AirPublicInput) (*Builder, error) {
	steps := len(w.Registers)
	if steps == 0 {
		return nil, fmt.Errorf("trace: empty register log")
	}
	if steps&(steps-1) != 0 {
		return nil, fmt.Errorf("trace: step count %d is not a power of two", steps)
	}
	return &Builder{cfg: cfg, witness: w, pub: pub}, nil
}

// BuildBase constructs the CPU part of the base column matrix: one
// air.CycleHeight-row cycle per register-log step, decoding each
// instruction word and filling in operand addresses/values. The builtin
// blocks and the permutation companion columns are filled afterwards by
// BuildBuiltins, which must run before the matrix is committed.
func (b *Builder) BuildBase() (*Matrix, error) {
	steps := len(b.witness.Registers)
	n := steps * air.CycleHeight
	m := newMatrix(b.cfg.NumBaseColumns, n)

	for step, rs := range b.witness.Registers {
		row := step * air.CycleHeight
		instrVal, ok := b.witness.Memory[rs.PC]
		if !ok {
			return nil, fmt.Errorf("trace: no instruction at pc=%d (step %d)", rs.PC, step)
		}
		word := field.WordFromFp(instrVal)
		dec := word.Decode()

		for i := 0; i < air.CycleHeight; i++ {
			m.Columns[air.ColFlags][row+i] = field.FpFromUint64(word.FlagPrefix(i))
		}
		m.Columns[air.ColInstr][row] = instrVal
		m.Columns[air.ColPC][row] = field.FpFromUint64(rs.PC)
		m.Columns[air.ColAP][row] = field.FpFromUint64(rs.AP)
		m.Columns[air.ColFP][row] = field.FpFromUint64(rs.FP)
		m.Columns[air.ColOffDst][row] = field.FpFromUint64(uint64(dec.OffDst + (1 << 15)))
		m.Columns[air.ColOffOp0][row] = field.FpFromUint64(uint64(dec.OffOp0 + (1 << 15)))
		m.Columns[air.ColOffOp1][row] = field.FpFromUint64(uint64(dec.OffOp1 + (1 << 15)))

		dstReg := dec.Flags[air.FlagDstReg] == 1
		op0Reg := dec.Flags[air.FlagOp0Reg] == 1
		dstAddr := addrFromOffset(rs, dstReg, dec.OffDst)
		op0Addr := addrFromOffset(rs, op0Reg, dec.OffOp0)

		dstVal, err := lookup(b.witness.Memory, dstAddr)
		if err != nil {
			return nil, fmt.Errorf("trace: step %d: %w", step, err)
		}
		op0Val, err := lookup(b.witness.Memory, op0Addr)
		if err != nil {
			return nil, fmt.Errorf("trace: step %d: %w", step, err)
		}

		op1Addr := op1AddressFromFlags(rs, dec, op0Val)
		op1Val, err := lookup(b.witness.Memory, op1Addr)
		if err != nil {
			return nil, fmt.Errorf("trace: step %d: %w", step, err)
		}

		m.Columns[air.ColDstAddr][row] = field.FpFromUint64(dstAddr)
		m.Columns[air.ColDstVal][row] = dstVal
		m.Columns[air.ColOp0Addr][row] = field.FpFromUint64(op0Addr)
		m.Columns[air.ColOp0Val][row] = op0Val
		m.Columns[air.ColOp1Addr][row] = field.FpFromUint64(op1Addr)
		m.Columns[air.ColOp1Val][row] = op1Val

		res := computeRes(dec, op0Val, op1Val)
		m.Columns[air.ColRes][row] = res

		t0 := field.ZeroFp()
		if dec.Flags[air.FlagPcJnz] == 1 {
			t0 = dstVal
		}
		m.Columns[air.ColT0][row] = t0
		m.Columns[air.ColT1][row] = t0.Mul(res)
	}

	return m, nil
}

func lookup(mem Memory, addr uint64) (field.Fp, error) {
	v, ok := mem[addr]
	if !ok {
		return field.Fp{}, fmt.Errorf("no memory value at address %d", addr)
	}
	return v, nil
}

func addrFromOffset(rs RegisterState, useFP bool, off int64) uint64 {
	base := rs.AP
	if useFP {
		base = rs.FP
	}
	return uint64(int64(base) + off)
}

func op1AddressFromFlags(rs RegisterState, dec field.DecodedInstruction, op0Val field.Fp) uint64 {
	var base uint64
	switch {
	case dec.Flags[air.FlagOp1Imm] == 1:
		base = rs.PC
	case dec.Flags[air.FlagOp1Ap] == 1:
		base = rs.AP
	case dec.Flags[air.FlagOp1Fp] == 1:
		base = rs.FP
	default:
		base = uint64(op0Val.Big().Int64())
	}
	return uint64(int64(base) + dec.OffOp1)
}

func computeRes(dec field.DecodedInstruction, op0Val, op1Val field.Fp) field.Fp {
	switch {
	case dec.Flags[air.FlagResAdd] == 1:
		return op0Val.Add(op1Val)
	case dec.Flags[air.FlagResMul] == 1:
		return op0Val.Mul(op1Val)
	case dec.Flags[air.FlagPcJnz] == 1:
		return field.ZeroFp()
	default:
		return op1Val
	}
}

// fillPermutationColumns derives the memory stream and the sorted
// companion columns. Must run after the builtin blocks are filled: the
// stream's per-cycle slots carry the CPU's four accesses followed by one
// slot per enabled builtin's (addr, val) cell pair, with the remaining
// slots repeating the last real pair, and the sorted side is the
// address-ordered permutation of exactly those row-level entries.
//
// For the sorted side's continuity checks to hold, the combined address
// multiset must cover a contiguous range starting at 1 -- program,
// execution, and builtin segments laid end to end with no gaps, the flat
// relocated memory the VM runner emits.
func (b *Builder) fillPermutationColumns(m *Matrix) error {
	type addrVal struct {
		addr uint64
		val  field.Fp
	}
	n := m.NumRows
	steps := n / air.CycleHeight
	pairs := air.BuiltinMemPairs(b.cfg)

	entries := make([]addrVal, 0, n)
	for step := 0; step < steps; step++ {
		row := step * air.CycleHeight
		slot := 0
		write := func(addr uint64, val field.Fp) {
			m.Columns[air.ColMemAddr][row+slot] = field.FpFromUint64(addr)
			m.Columns[air.ColMemVal][row+slot] = val
			entries = append(entries, addrVal{addr, val})
			slot++
		}
		for _, pair := range [][2]int{
			{air.ColPC, air.ColInstr}, {air.ColDstAddr, air.ColDstVal},
			{air.ColOp0Addr, air.ColOp0Val}, {air.ColOp1Addr, air.ColOp1Val},
		} {
			write(m.Columns[pair[0]][row].Big().Uint64(), m.Columns[pair[1]][row])
		}
		for _, p := range pairs {
			write(m.Columns[p.AddrCol][row].Big().Uint64(), m.Columns[p.ValCol][row])
		}
		last := entries[len(entries)-1]
		for slot < air.CycleHeight {
			write(last.addr, last.val)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].addr != entries[j].addr {
			return entries[i].addr < entries[j].addr
		}
		return entries[i].val.Cmp(entries[j].val) < 0
	})
	for r := 0; r < n; r++ {
		m.Columns[air.ColSortedAddr][r] = field.FpFromUint64(entries[r].addr)
		m.Columns[air.ColSortedVal][r] = entries[r].val
	}

	rcs := make([]uint64, 0, steps*3)
	for step := 0; step < steps; step++ {
		row := step * air.CycleHeight
		for _, c := range []int{air.ColOffDst, air.ColOffOp0, air.ColOffOp1} {
			rcs = append(rcs, m.Columns[c][row].Big().Uint64())
		}
	}
	sort.Slice(rcs, func(i, j int) bool { return rcs[i] < rcs[j] })
	// The sorted range-check entries sit at each cycle's own first rows:
	// the constraints read the companion column at offsets 0..2 relative to
	// each cycle's start. Remaining rows repeat the cycle's last entry,
	// which keeps the adjacent-pair continuity checks satisfied across the
	// padding while still exposing the true delta between consecutive
	// globally-sorted values at each cycle boundary.
	for step := 0; step < steps; step++ {
		row := step * air.CycleHeight
		base := step * 3
		var last uint64
		for i := 0; i < 3; i++ {
			v := rcs[len(rcs)-1]
			if base+i < len(rcs) {
				v = rcs[base+i]
			}
			m.Columns[air.ColSortedRC][row+i] = field.FpFromUint64(v)
			last = v
		}
		for i := 3; i < air.CycleHeight; i++ {
			m.Columns[air.ColSortedRC][row+i] = field.FpFromUint64(last)
		}
	}
	return nil
}
