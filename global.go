package wavm

import (
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/a4a881d4/WAVM/ir"
)

// UntaggedValue is a global's payload: a 64-bit word wide enough for any
// scalar value type, plus a side pointer used only when the value type is
// v128 (spec.md §4.D: "v128 globals hold a side pointer" — the 64-bit word
// alone isn't wide enough for a 16-byte vector).
type UntaggedValue struct {
	word uint64
	v128 *[16]byte
}

func I32Value(v uint32) UntaggedValue  { return UntaggedValue{word: uint64(v)} }
func I64Value(v uint64) UntaggedValue  { return UntaggedValue{word: v} }
func F32Value(v float32) UntaggedValue { return UntaggedValue{word: uint64(math.Float32bits(v))} }
func F64Value(v float64) UntaggedValue { return UntaggedValue{word: math.Float64bits(v)} }
func V128Value(v [16]byte) UntaggedValue {
	cp := v
	return UntaggedValue{v128: &cp}
}

func (u UntaggedValue) I32() uint32   { return uint32(u.word) }
func (u UntaggedValue) I64() uint64   { return u.word }
func (u UntaggedValue) F32() float32  { return math.Float32frombits(uint32(u.word)) }
func (u UntaggedValue) F64() float64  { return math.Float64frombits(u.word) }
func (u UntaggedValue) V128() [16]byte {
	if u.v128 == nil {
		return [16]byte{}
	}
	return *u.v128
}

func (u UntaggedValue) String(t ir.ValueType) string {
	switch t {
	case ir.ValueTypeI32:
		return fmt.Sprintf("i32(%d)", u.I32())
	case ir.ValueTypeI64:
		return fmt.Sprintf("i64(%d)", u.I64())
	case ir.ValueTypeF32:
		return fmt.Sprintf("f32(%f)", u.F32())
	case ir.ValueTypeF64:
		return fmt.Sprintf("f64(%f)", u.F64())
	case ir.ValueTypeV128:
		return fmt.Sprintf("v128(%x)", u.V128())
	default:
		return fmt.Sprintf("ref(%v)", u.v128 != nil)
	}
}

// Global is a runtime global object: a typed, optionally mutable cell
// (spec.md §4.D).
type Global struct {
	object
	mu    sync.Mutex
	Type  ir.GlobalType
	value UntaggedValue
}

func newGlobal(compartmentID uuid.UUID, t ir.GlobalType, initial UntaggedValue) *Global {
	return &Global{
		object: object{kind: ir.ObjectKindGlobal, compartmentID: compartmentID},
		Type:   t,
		value:  initial,
	}
}

// Get returns the global's current value.
func (g *Global) Get() UntaggedValue {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}

// Set stores v. Setting an immutable global is an InvariantViolation: the
// producer of valid IR is responsible for ensuring global.set only targets
// a mutable global (spec.md §4.D, §4.G — this is a module-validation
// concern, not a runtime one).
func (g *Global) Set(v UntaggedValue) {
	if !g.Type.Mutable {
		invariantViolation("Global.Set on immutable global")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.value = v
}
